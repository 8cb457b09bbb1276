package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/llm"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/schema"
	sqlutil "github.com/muhammedshafeeque/AI-Report-Assistant/pkg/sql"
)

// reportSampleRows caps how many enriched rows are embedded in the report prompt.
const reportSampleRows = 5

// supplementalRowLimit caps the sample scans over resolved tables the main
// query did not cover.
const supplementalRowLimit = 100

// SchemaProvider yields the current schema snapshot and FK list.
type SchemaProvider interface {
	GetSchema(ctx context.Context) (models.SchemaSnapshot, []models.Relationship, error)
}

var _ SchemaProvider = (*schema.Service)(nil)

// ReportService orchestrates the full pipeline: analysis, table resolution,
// SQL generation, execution with fallback, enrichment, analytics, and report
// composition. Failures before query execution are fatal for the request;
// everything after degrades stage by stage so a best-effort result always
// comes back.
type ReportService struct {
	schemas    SchemaProvider
	analysis   *AnalysisService
	resolver   *TableResolver
	generator  *SQLGenerator
	executor   *QueryExecutor
	enrichment *EnrichmentService
	analytics  *AnalyticsService
	completer  llm.Completer
	logger     *zap.Logger
}

// NewReportService wires the pipeline together.
func NewReportService(
	schemas SchemaProvider,
	analysis *AnalysisService,
	resolver *TableResolver,
	generator *SQLGenerator,
	executor *QueryExecutor,
	enrichment *EnrichmentService,
	analytics *AnalyticsService,
	completer llm.Completer,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		schemas:    schemas,
		analysis:   analysis,
		resolver:   resolver,
		generator:  generator,
		executor:   executor,
		enrichment: enrichment,
		analytics:  analytics,
		completer:  completer,
		logger:     logger.Named("report"),
	}
}

// Generate runs the pipeline for one prompt. emit receives milestone events
// as stages complete; pass nil to skip progress reporting. On a fatal error
// the returned result still carries everything gathered so far, so callers
// can deliver a partial payload alongside the error event.
func (s *ReportService) Generate(ctx context.Context, prompt string, history []models.ChatMessage, emit func(models.Event)) (*models.FinalResult, error) {
	if emit == nil {
		emit = func(models.Event) {}
	}

	result := &models.FinalResult{
		Status:            "complete",
		RawData:           []models.Row{},
		AdditionalQueries: []string{},
		Calculations:      []string{},
		TablesUsed:        []string{},
		AnalysisSteps:     []string{},
		AIInsights:        []models.Insight{},
	}

	emit(models.NewProcessingEvent("Reading database schema..."))
	snapshot, relationships, err := s.schemas.GetSchema(ctx)
	if err != nil {
		return result, fmt.Errorf("reading schema: %w", err)
	}
	result.AnalysisSteps = append(result.AnalysisSteps, "schema introspection")

	emit(models.NewProcessingEvent("Analyzing your question..."))
	analysis, err := s.analysis.Analyze(ctx, prompt, history)
	if err != nil {
		return result, err
	}
	result.AnalysisSteps = append(result.AnalysisSteps, "prompt analysis")

	emit(models.NewProcessingEvent("Identifying relevant tables..."))
	tables, err := s.resolver.Resolve(ctx, prompt, snapshot, analysis)
	if err != nil {
		return result, err
	}
	sort.Strings(tables)
	result.TablesUsed = tables
	result.AnalysisSteps = append(result.AnalysisSteps, "table resolution")
	minimal := snapshot.Restrict(tables)

	graph := NewRelationshipGraph(relationships)

	emit(models.NewProcessingEvent("Generating SQL query..."))
	generated, err := s.generator.Generate(ctx, prompt, minimal, analysis, joinPathHints(graph, tables), history)
	if err != nil {
		return result, err
	}
	result.GeneratedSQL = generated.SQL
	result.AnalysisSteps = append(result.AnalysisSteps, "sql generation")

	emit(models.NewProcessingEventWithData("Executing query...", "sql", generated.SQL))
	execution := s.executeAsync(ctx, generated.SQL, minimal)
	result.RawData = execution.Rows
	result.RowCount = len(execution.Rows)
	result.GeneratedSQL = execution.SQLUsed
	result.AnalysisSteps = append(result.AnalysisSteps, "query execution")
	if execution.FallbackUsed && execution.Message != "" {
		emit(models.NewProcessingEvent(execution.Message))
	}

	s.generator.Record(prompt, execution.SQLUsed, len(execution.Rows))

	// Post-execution stages degrade individually. Enrichment and statistics
	// are independent of each other, so they run concurrently.
	emit(models.NewProcessingEvent("Enriching and analyzing data..."))

	enriched := execution.Rows
	var relatedData map[string][]models.Row
	var stats models.Statistics

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		enriched, relatedData = s.enrichment.Enrich(ctx, execution.Rows, snapshot, relationships)
	}()
	go func() {
		defer wg.Done()
		stats = s.analytics.ComputeStatistics(execution.Rows)
	}()
	wg.Wait()

	if relatedData == nil && len(execution.SecondaryRows) > 0 {
		relatedData = execution.SecondaryRows
	} else {
		for table, rows := range execution.SecondaryRows {
			if _, ok := relatedData[table]; !ok {
				relatedData[table] = rows
			}
		}
	}
	result.AdditionalQueries = append(result.AdditionalQueries, execution.AdditionalSQL...)

	// Resolved tables the main query and enrichment never touched still get a
	// sample scan, batched, so the payload carries context for every table the
	// question mentioned.
	if supplemental := s.fetchSupplemental(ctx, tables, execution.SQLUsed, relatedData); len(supplemental.queries) > 0 {
		result.AdditionalQueries = append(result.AdditionalQueries, supplemental.queries...)
		if len(supplemental.rows) > 0 {
			if relatedData == nil {
				relatedData = make(map[string][]models.Row)
			}
			for table, rows := range supplemental.rows {
				if _, ok := relatedData[table]; !ok {
					relatedData[table] = rows
				}
			}
		}
	}

	result.RelatedData = relatedData
	result.AnalysisSteps = append(result.AnalysisSteps, "data enrichment", "statistics")

	metadata := InferColumnMetadata(enriched)
	structure := DeriveTableStructure(metadata, enriched)
	result.ColumnMetadata = metadata
	result.TableStructure = &structure
	result.RawData = enriched
	result.AIInsights = s.analytics.Insights(enriched, stats)
	for col := range stats.Aggregates {
		result.Calculations = append(result.Calculations, col)
	}
	sort.Strings(result.Calculations)
	result.EnhancedResults = map[string]any{
		"statistics": stats,
	}

	emit(models.NewProcessingEvent("Composing report..."))
	result.Report = s.composeReport(ctx, prompt, enriched, result.AIInsights, history)
	result.AnalysisSteps = append(result.AnalysisSteps, "report composition")

	return result, nil
}

// joinPathHints describes FK routes from the first resolved table to each of
// the others, for the generation prompt. One path per pair is plenty.
func joinPathHints(graph *RelationshipGraph, tables []string) []string {
	if len(tables) < 2 {
		return nil
	}
	var hints []string
	for _, target := range tables[1:] {
		paths := graph.FindPaths(tables[0], target, 0)
		if len(paths) > 0 {
			hints = append(hints, DescribePath(paths[0]))
		}
	}
	return hints
}

// supplementalData is the outcome of the batched scans over resolved tables
// the main query never touched.
type supplementalData struct {
	queries []string
	rows    map[string][]models.Row
}

// fetchSupplemental sample-scans every resolved table that neither the
// executed SQL nor enrichment covered. The scans run as one batch; failures
// are recorded per statement and never block the others.
func (s *ReportService) fetchSupplemental(ctx context.Context, tables []string, sqlUsed string, relatedData map[string][]models.Row) supplementalData {
	covered := make(map[string]struct{})
	for _, t := range sqlutil.ExtractTableNames(sqlUsed) {
		covered[t] = struct{}{}
	}
	for t := range relatedData {
		covered[t] = struct{}{}
	}

	var names []string
	var queries []string
	for _, t := range tables {
		if _, ok := covered[t]; ok {
			continue
		}
		names = append(names, t)
		queries = append(queries, fmt.Sprintf("SELECT * FROM %s LIMIT %d", t, supplementalRowLimit))
	}
	if len(queries) == 0 {
		return supplementalData{}
	}

	rows := make(map[string][]models.Row)
	for i, batch := range s.enrichment.ExecuteBatch(ctx, queries) {
		if batch.Err == nil && len(batch.Rows) > 0 {
			rows[names[i]] = batch.Rows
		}
	}
	return supplementalData{queries: queries, rows: rows}
}

// executeAsync runs the blocking database call on its own goroutine so the
// caller's event channel keeps draining while the query runs.
func (s *ReportService) executeAsync(ctx context.Context, sqlQuery string, minimal models.SchemaSnapshot) models.ExecutionResult {
	done := make(chan models.ExecutionResult, 1)
	go func() {
		done <- s.executor.Execute(ctx, sqlQuery, minimal)
	}()
	select {
	case execution := <-done:
		return execution
	case <-ctx.Done():
		return models.ExecutionResult{
			Rows:         []models.Row{},
			SQLUsed:      sqlQuery,
			FallbackUsed: true,
			Message:      "Query cancelled before completion.",
		}
	}
}

// composeReport asks the model for a narrative answer. The output is opaque
// text; an LLM failure degrades to a plain data summary rather than erroring.
func (s *ReportService) composeReport(ctx context.Context, prompt string, rows []models.Row, insights []models.Insight, history []models.ChatMessage) string {
	report, err := s.completer.Complete(ctx, buildReportPrompt(prompt, rows, insights), history)
	if err != nil {
		s.logger.Warn("Report composition failed, using data summary", zap.Error(err))
		return fallbackReport(rows)
	}
	return report
}

func buildReportPrompt(prompt string, rows []models.Row, insights []models.Insight) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Answer this business question using the data below.\n\nQuestion: %s\n\n", prompt)
	fmt.Fprintf(&b, "Total rows: %d\n", len(rows))

	sample := rows
	if len(sample) > reportSampleRows {
		sample = sample[:reportSampleRows]
	}
	if len(sample) > 0 {
		b.WriteString("Sample rows:\n")
		if encoded, err := json.Marshal(sample); err == nil {
			b.Write(encoded)
			b.WriteString("\n")
		}
	}

	if len(insights) > 0 {
		b.WriteString("\nComputed insights:\n")
		if encoded, err := json.Marshal(insights); err == nil {
			b.Write(encoded)
			b.WriteString("\n")
		}
	}

	b.WriteString(`
Instructions:
- Start with an executive summary.
- Answer the question directly.
- Use human-readable names instead of raw identifiers where available.
- Mention notable statistics, trends, or outliers from the insights.
`)
	return b.String()
}

func fallbackReport(rows []models.Row) string {
	if len(rows) == 0 {
		return "No data was found for your question."
	}
	return fmt.Sprintf("Found %d rows matching your question. See the attached data table for details.", len(rows))
}
