package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/llm"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/services"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/streaming"
)

// ReportRequest is the body of both report endpoints.
type ReportRequest struct {
	Prompt              string               `json:"prompt"`
	ConversationHistory []models.ChatMessage `json:"conversationHistory"`
}

// ReportHandler serves report generation, streaming and non-streaming.
type ReportHandler struct {
	reports *services.ReportService
	logger  *zap.Logger
}

// NewReportHandler creates a report handler.
func NewReportHandler(reports *services.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// RegisterRoutes registers the report endpoints on the given mux.
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ai/generate-report-stream", h.GenerateReportStream)
	mux.HandleFunc("POST /api/ai/generate-report", h.GenerateReport)
}

// GenerateReportStream handles POST /api/ai/generate-report-stream.
// The response is an SSE stream of processing events ending in either a
// complete result (chunked when large) or a terminal error event.
func (h *ReportHandler) GenerateReportStream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	dispatcher := streaming.NewDispatcher(h.logger)

	go func() {
		defer dispatcher.Close()

		result, err := h.reports.Generate(r.Context(), req.Prompt, req.ConversationHistory, dispatcher.Emit)
		if err != nil {
			h.logger.Error("Report generation failed", zap.Error(err))
			dispatcher.Fail(errorMessage(err), err)
			return
		}
		dispatcher.Complete(result)
	}()

	streaming.WriteSSE(w, r, dispatcher.Events(), h.logger)
	dispatcher.Stop()
}

// GenerateReport handles POST /api/ai/generate-report, the non-streaming
// variant: one JSON object with the full result shape, or 500 on failure.
func (h *ReportHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.reports.Generate(r.Context(), req.Prompt, req.ConversationHistory, nil)
	if err != nil {
		h.logger.Error("Report generation failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "report_generation_failed", errorMessage(err))
		return
	}

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode report response", zap.Error(err))
	}
}

func (h *ReportHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (ReportRequest, bool) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return req, false
	}
	if req.Prompt == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_prompt", "prompt is required")
		return req, false
	}
	return req, true
}

// errorMessage keeps rate-limit failures identifiable in client-facing text.
func errorMessage(err error) string {
	if llm.IsRateLimited(err) {
		return "The AI service is rate limited right now; please try again shortly."
	}
	return "Report generation failed: " + err.Error()
}
