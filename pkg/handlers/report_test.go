package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/llm"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/services"
)

type stubRunner struct {
	rows []models.Row
	err  error
}

func (s *stubRunner) Query(ctx context.Context, sqlQuery string, args ...any) ([]models.Row, error) {
	if s.err != nil {
		return nil, s.err
	}
	return models.CloneRows(s.rows), nil
}

type stubSchemas struct {
	snapshot models.SchemaSnapshot
	err      error
}

func (s *stubSchemas) GetSchema(ctx context.Context) (models.SchemaSnapshot, []models.Relationship, error) {
	return s.snapshot, nil, s.err
}

func newTestReportService(completer llm.Completer, runner *stubRunner) *services.ReportService {
	logger := zap.NewNop()
	schemas := &stubSchemas{snapshot: models.SchemaSnapshot{
		"products": {Name: "products", Columns: []models.Column{
			{Name: "id"}, {Name: "name"}, {Name: "price"},
		}},
	}}
	return services.NewReportService(
		schemas,
		services.NewAnalysisService(completer, logger),
		services.NewTableResolver(completer, logger),
		services.NewSQLGenerator(completer, services.NewInMemoryKnowledgeStore(logger), logger),
		services.NewQueryExecutor(runner, 10, logger),
		services.NewEnrichmentService(runner, logger),
		services.NewAnalyticsService(logger),
		completer,
		logger,
	)
}

func happyCompleter() *llm.MockClient {
	mock := llm.NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, prompt string, history []models.ChatMessage) (string, error) {
		switch {
		case strings.Contains(prompt, "exact JSON structure"):
			return `{"core_question": "products", "data_requirements": {"relevant_tables": ["products"]}}`, nil
		case strings.Contains(prompt, "Generate a PostgreSQL SELECT"):
			return "SELECT * FROM products", nil
		default:
			return "Executive summary: products look fine.", nil
		}
	}
	return mock
}

func newMux(reports *services.ReportService) *http.ServeMux {
	mux := http.NewServeMux()
	NewReportHandler(reports, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func sseEvents(t *testing.T, body string) []models.Event {
	t.Helper()
	var events []models.Event
	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event models.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		events = append(events, event)
	}
	return events
}

func TestGenerateReport_MissingPrompt(t *testing.T) {
	mux := newMux(newTestReportService(happyCompleter(), &stubRunner{}))

	for _, path := range []string{"/api/ai/generate-report", "/api/ai/generate-report-stream"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		mux.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "prompt is required", path)
	}
}

func TestGenerateReport_InvalidBody(t *testing.T) {
	mux := newMux(newTestReportService(happyCompleter(), &stubRunner{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/generate-report", strings.NewReader("not json"))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateReport_JSONVariant(t *testing.T) {
	runner := &stubRunner{rows: []models.Row{
		{"id": 1, "name": "widget", "price": 9.99},
		{"id": 2, "name": "gadget", "price": 19.99},
	}}
	mux := newMux(newTestReportService(happyCompleter(), runner))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/generate-report",
		strings.NewReader(`{"prompt": "show products"}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result models.FinalResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "complete", result.Status)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, "SELECT * FROM products", result.GeneratedSQL)
	assert.Contains(t, result.Report, "Executive summary")
}

func TestGenerateReportStream_CompleteFlow(t *testing.T) {
	runner := &stubRunner{rows: []models.Row{{"id": 1, "name": "widget", "price": 9.99}}}
	mux := newMux(newTestReportService(happyCompleter(), runner))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/generate-report-stream",
		strings.NewReader(`{"prompt": "show all data from products"}`))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := sseEvents(t, rec.Body.String())
	require.NotEmpty(t, events)

	final := events[len(events)-1]
	assert.Equal(t, "complete", final.Status())
	rawData, ok := final["rawData"].([]any)
	require.True(t, ok)
	assert.Len(t, rawData, 1)

	// Milestones precede the terminal event.
	for _, e := range events[:len(events)-1] {
		assert.Equal(t, "processing", e.Status())
	}
}

func TestGenerateReportStream_RateLimitErrorEvent(t *testing.T) {
	mock := llm.NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, prompt string, history []models.ChatMessage) (string, error) {
		return "", llm.ErrRateLimitExceeded
	}
	mux := newMux(newTestReportService(mock, &stubRunner{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/generate-report-stream",
		strings.NewReader(`{"prompt": "show products"}`))
	mux.ServeHTTP(rec, req)

	events := sseEvents(t, rec.Body.String())
	require.NotEmpty(t, events)

	final := events[len(events)-1]
	assert.Equal(t, "error", final.Status())
	message, _ := final["message"].(string)
	assert.Contains(t, strings.ToLower(message), "rate limit")
}

func TestGenerateReport_FatalFailureReturns500(t *testing.T) {
	mock := llm.NewMockClient()
	mock.CompleteFunc = func(ctx context.Context, prompt string, history []models.ChatMessage) (string, error) {
		return "", llm.ErrRateLimitExceeded
	}
	mux := newMux(newTestReportService(mock, &stubRunner{}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/ai/generate-report",
		strings.NewReader(`{"prompt": "show products"}`))
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}