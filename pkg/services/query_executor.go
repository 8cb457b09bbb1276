package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/datasource"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/logging"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
	sqlutil "github.com/muhammedshafeeque/AI-Report-Assistant/pkg/sql"
)

const (
	fallbackTableLimit  = 1000
	fallbackSampleLimit = 100
)

// QueryExecutor runs generated SQL against the database and degrades through
// a ladder of simpler queries on failure. It never returns an error: the
// worst outcome is an empty result with an explanatory message.
type QueryExecutor struct {
	runner            datasource.QueryRunner
	maxFallbackTables int
	logger            *zap.Logger
}

// NewQueryExecutor creates an executor. maxFallbackTables bounds the
// last-resort schema enumeration; values < 1 fall back to 10.
func NewQueryExecutor(runner datasource.QueryRunner, maxFallbackTables int, logger *zap.Logger) *QueryExecutor {
	if maxFallbackTables < 1 {
		maxFallbackTables = 10
	}
	return &QueryExecutor{
		runner:            runner,
		maxFallbackTables: maxFallbackTables,
		logger:            logger.Named("executor"),
	}
}

// Execute runs sqlQuery, falling back when it fails:
//  1. per-table scan of the first table referenced in the failed SQL, with
//     secondary scans for each other referenced table (joined in memory by
//     the enrichment stage);
//  2. enumerate schema tables and return the first that yields any rows.
//
// An exhausted ladder yields empty rows with fallbackUsed set.
func (e *QueryExecutor) Execute(ctx context.Context, sqlQuery string, minimal models.SchemaSnapshot) models.ExecutionResult {
	rows, err := e.runner.Query(ctx, sqlQuery)
	if err == nil {
		return models.ExecutionResult{Rows: rows, SQLUsed: sqlQuery}
	}
	e.logger.Warn("Primary query failed, entering fallback ladder",
		zap.String("sql", logging.SanitizeQuery(sqlQuery)),
		zap.String("error", logging.SanitizeError(err)))

	referenced := referencedExistingTables(sqlQuery, minimal)
	if len(referenced) > 0 {
		if result, ok := e.perTableFallback(ctx, referenced); ok {
			return result
		}
	}

	if result, ok := e.anyTableSample(ctx, minimal); ok {
		return result
	}

	return models.ExecutionResult{
		Rows:         []models.Row{},
		SQLUsed:      sqlQuery,
		FallbackUsed: true,
		Message:      "Query failed and no fallback table returned data; no data found.",
	}
}

// perTableFallback scans the primary referenced table and, when more tables
// were referenced, scans each of those too for the in-memory join downstream.
func (e *QueryExecutor) perTableFallback(ctx context.Context, tables []string) (models.ExecutionResult, bool) {
	primary := tables[0]
	primarySQL := fmt.Sprintf("SELECT * FROM %s LIMIT %d", primary, fallbackTableLimit)

	rows, err := e.runner.Query(ctx, primarySQL)
	if err != nil {
		e.logger.Warn("Primary-table fallback failed",
			zap.String("table", primary), zap.Error(err))
		return models.ExecutionResult{}, false
	}

	result := models.ExecutionResult{
		Rows:         rows,
		SQLUsed:      primarySQL,
		FallbackUsed: true,
		Message:      fmt.Sprintf("The original query failed; showing data from %s instead.", primary),
	}

	for _, table := range tables[1:] {
		secondarySQL := fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, fallbackTableLimit)
		result.AdditionalSQL = append(result.AdditionalSQL, secondarySQL)
		secondary, err := e.runner.Query(ctx, secondarySQL)
		if err != nil {
			e.logger.Warn("Secondary-table fallback failed",
				zap.String("table", table), zap.Error(err))
			continue
		}
		if result.SecondaryRows == nil {
			result.SecondaryRows = make(map[string][]models.Row)
		}
		result.SecondaryRows[table] = secondary
	}

	return result, true
}

// anyTableSample is the last rung: walk the schema and return the first table
// that yields any rows at all.
func (e *QueryExecutor) anyTableSample(ctx context.Context, minimal models.SchemaSnapshot) (models.ExecutionResult, bool) {
	names := minimal.TableNames()
	sort.Strings(names)
	if len(names) > e.maxFallbackTables {
		names = names[:e.maxFallbackTables]
	}

	for _, table := range names {
		sampleSQL := fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, fallbackSampleLimit)
		rows, err := e.runner.Query(ctx, sampleSQL)
		if err != nil || len(rows) == 0 {
			continue
		}
		return models.ExecutionResult{
			Rows:         rows,
			SQLUsed:      sampleSQL,
			FallbackUsed: true,
			Message:      fmt.Sprintf("The requested query could not run; showing a sample from %s instead.", table),
		}, true
	}
	return models.ExecutionResult{}, false
}

// referencedExistingTables pulls table names out of the failed SQL, keeping
// only those the schema actually contains.
func referencedExistingTables(sqlQuery string, minimal models.SchemaSnapshot) []string {
	var existing []string
	for _, name := range sqlutil.ExtractTableNames(sqlQuery) {
		if minimal.HasTable(name) {
			existing = append(existing, name)
		}
	}
	return existing
}
