// Package config loads service configuration from config.yaml with
// environment variable overrides. Secrets come from the environment only.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the report engine.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3001"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// DatabaseConfig holds PostgreSQL connection settings for the data source
// the engine reports over.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"postgres"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"postgres"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
}

// LLMConfig holds the completion endpoint settings.
type LLMConfig struct {
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.mistral.ai/v1"`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"mistral-large-latest"`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML

	// RequestTimeoutSeconds bounds each completion call.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" env:"LLM_REQUEST_TIMEOUT_SECONDS" env-default:"120"`
}

// PipelineConfig tunes pipeline behavior.
type PipelineConfig struct {
	// SchemaCacheTTLMinutes is how long an introspected schema snapshot stays valid.
	SchemaCacheTTLMinutes int `yaml:"schema_cache_ttl_minutes" env:"SCHEMA_CACHE_TTL_MINUTES" env-default:"5"`
	// QueryTimeoutSeconds bounds each database query.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"QUERY_TIMEOUT_SECONDS" env-default:"60"`
	// MaxFallbackTables caps how many schema tables the executor samples when
	// every targeted query has failed.
	MaxFallbackTables int `yaml:"max_fallback_tables" env:"MAX_FALLBACK_TABLES" env-default:"10"`
}

// RequestTimeout returns the LLM per-call deadline as a duration.
func (c *LLMConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// SchemaCacheTTL returns the schema cache TTL as a duration.
func (c *PipelineConfig) SchemaCacheTTL() time.Duration {
	return time.Duration(c.SchemaCacheTTLMinutes) * time.Minute
}

// QueryTimeout returns the per-query deadline as a duration.
func (c *PipelineConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Load reads configuration from config.yaml with environment overrides. The
// version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	return cfg, nil
}
