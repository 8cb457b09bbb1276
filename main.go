package main

import (
	"context"
	"log"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/config"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/datasource"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/handlers"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/llm"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/middleware"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/schema"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Host),
		zap.String("llm_endpoint", cfg.LLM.Endpoint),
		zap.String("llm_model", cfg.LLM.Model))

	ctx := context.Background()

	pool, err := datasource.NewPool(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	postgres := datasource.NewPostgres(pool, logger)
	runner := datasource.WithTimeout(postgres, cfg.Pipeline.QueryTimeout())

	completer, err := llm.NewClient(&llm.Config{
		Endpoint:       cfg.LLM.Endpoint,
		Model:          cfg.LLM.Model,
		APIKey:         cfg.LLM.APIKey,
		RequestTimeout: cfg.LLM.RequestTimeout(),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	schemas := schema.NewService(postgres, cfg.Pipeline.SchemaCacheTTL(), logger)
	knowledge := services.NewInMemoryKnowledgeStore(logger)

	reports := services.NewReportService(
		schemas,
		services.NewAnalysisService(completer, logger),
		services.NewTableResolver(completer, logger),
		services.NewSQLGenerator(completer, knowledge, logger),
		services.NewQueryExecutor(runner, cfg.Pipeline.MaxFallbackTables, logger),
		services.NewEnrichmentService(runner, logger),
		services.NewAnalyticsService(logger),
		completer,
		logger,
	)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewReportHandler(reports, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	logger.Info("Starting ai-report-assistant", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
