package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/jsonutil"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/llm"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

// AnalysisService derives a structured PromptAnalysis from a user prompt via
// one LLM call. Malformed model output is never fatal: the service always
// returns a fully populated analysis, substituting defaults on parse failure.
type AnalysisService struct {
	completer llm.Completer
	logger    *zap.Logger
}

// NewAnalysisService creates an analysis service.
func NewAnalysisService(completer llm.Completer, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		completer: completer,
		logger:    logger.Named("analysis"),
	}
}

// Analyze interprets the prompt. Rate-limit exhaustion propagates (the caller
// decides whether the request can continue); every other failure degrades to
// the default analysis.
func (s *AnalysisService) Analyze(ctx context.Context, prompt string, history []models.ChatMessage) (models.PromptAnalysis, error) {
	response, err := s.completer.Complete(ctx, buildAnalysisPrompt(prompt), history)
	if err != nil {
		if llm.IsRateLimited(err) {
			return models.DefaultPromptAnalysis(prompt), err
		}
		s.logger.Warn("Prompt analysis call failed, using defaults", zap.Error(err))
		return models.DefaultPromptAnalysis(prompt), nil
	}

	analysis, err := llm.ParseJSON[models.PromptAnalysis](response)
	if err != nil {
		// Models sometimes drift on field types (a number for core_question, a
		// comma string for relevant_tables). Salvage what we can before giving up.
		analysis = salvageAnalysis(response, prompt)
		if analysis.CoreQuestion == prompt && len(analysis.DataRequirements.RelevantTables) == 0 {
			s.logger.Warn("Prompt analysis output unparseable, using defaults", zap.Error(err))
		}
	}

	// Backfill anything the model left empty so downstream stages never
	// branch on missing analysis.
	if strings.TrimSpace(analysis.CoreQuestion) == "" {
		analysis.CoreQuestion = prompt
	}
	if analysis.IntentClassification.Type == "" {
		analysis.IntentClassification.Type = "general"
	}
	if analysis.ComplexityAssessment.Level == "" {
		analysis.ComplexityAssessment.Level = "simple"
	}
	ensureSlices(&analysis)

	return analysis, nil
}

// salvageAnalysis recovers the fields that matter most to the pipeline from a
// response whose JSON is valid but typed loosely.
func salvageAnalysis(response, prompt string) models.PromptAnalysis {
	analysis := models.DefaultPromptAnalysis(prompt)

	jsonStr, err := llm.ExtractJSON(response)
	if err != nil {
		return analysis
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &fields); err != nil {
		return analysis
	}

	if q := strings.TrimSpace(jsonutil.FlexibleStringValue(fields["core_question"])); q != "" {
		analysis.CoreQuestion = q
	}
	var reqs map[string]json.RawMessage
	if err := json.Unmarshal(fields["data_requirements"], &reqs); err == nil {
		if tables := jsonutil.FlexibleStringSlice(reqs["relevant_tables"]); len(tables) > 0 {
			analysis.DataRequirements.RelevantTables = tables
		}
		if filters := jsonutil.FlexibleStringSlice(reqs["filters"]); len(filters) > 0 {
			analysis.DataRequirements.Filters = filters
		}
	}
	return analysis
}

func ensureSlices(a *models.PromptAnalysis) {
	if a.IntentClassification.Metrics == nil {
		a.IntentClassification.Metrics = []string{}
	}
	if a.EntitiesAndRelationships.Entities == nil {
		a.EntitiesAndRelationships.Entities = []string{}
	}
	if a.EntitiesAndRelationships.Relationships == nil {
		a.EntitiesAndRelationships.Relationships = []string{}
	}
	if a.EntitiesAndRelationships.TimePeriods == nil {
		a.EntitiesAndRelationships.TimePeriods = []string{}
	}
	if a.DataRequirements.RelevantTables == nil {
		a.DataRequirements.RelevantTables = []string{}
	}
	if a.DataRequirements.RelevantFields == nil {
		a.DataRequirements.RelevantFields = []string{}
	}
	if a.DataRequirements.Filters == nil {
		a.DataRequirements.Filters = []string{}
	}
}

func buildAnalysisPrompt(prompt string) string {
	return fmt.Sprintf(`Analyze this business question and respond with JSON only.

Question: %s

Respond with this exact JSON structure:
{
  "core_question": "the essential question being asked",
  "intent_classification": {"type": "aggregation|comparison|trend|lookup|general", "metrics": ["metric names mentioned"]},
  "entities_and_relationships": {"entities": ["business entities"], "relationships": ["relationships between entities"], "time_periods": ["time ranges mentioned"]},
  "data_requirements": {"relevant_tables": ["likely table names"], "relevant_fields": ["likely column names"], "filters": ["filter conditions implied"]},
  "complexity_assessment": {"level": "simple|moderate|complex", "requires_multiple_queries": false, "requires_advanced_analysis": false}
}`, prompt)
}
