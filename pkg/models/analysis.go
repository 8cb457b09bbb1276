package models

// IntentClassification categorizes what kind of answer the user is after.
type IntentClassification struct {
	Type    string   `json:"type"`
	Metrics []string `json:"metrics"`
}

// EntitiesAndRelationships captures the business entities mentioned in a prompt.
type EntitiesAndRelationships struct {
	Entities      []string `json:"entities"`
	Relationships []string `json:"relationships"`
	TimePeriods   []string `json:"time_periods"`
}

// DataRequirements lists the tables, fields and filters the prompt implies.
type DataRequirements struct {
	RelevantTables []string `json:"relevant_tables"`
	RelevantFields []string `json:"relevant_fields"`
	Filters        []string `json:"filters"`
}

// ComplexityAssessment estimates how involved answering the prompt will be.
type ComplexityAssessment struct {
	Level                    string `json:"level"`
	RequiresMultipleQueries  bool   `json:"requires_multiple_queries"`
	RequiresAdvancedAnalysis bool   `json:"requires_advanced_analysis"`
}

// PromptAnalysis is the structured interpretation of a user prompt, produced
// by one LLM call. Downstream stages rely on it always being fully populated:
// when model output cannot be parsed, DefaultPromptAnalysis is substituted.
type PromptAnalysis struct {
	CoreQuestion             string                   `json:"core_question"`
	IntentClassification     IntentClassification     `json:"intent_classification"`
	EntitiesAndRelationships EntitiesAndRelationships `json:"entities_and_relationships"`
	DataRequirements         DataRequirements         `json:"data_requirements"`
	ComplexityAssessment     ComplexityAssessment     `json:"complexity_assessment"`
}

// DefaultPromptAnalysis returns a structurally valid analysis that treats the
// raw prompt as the core question and assumes a simple single-query request.
func DefaultPromptAnalysis(prompt string) PromptAnalysis {
	return PromptAnalysis{
		CoreQuestion: prompt,
		IntentClassification: IntentClassification{
			Type:    "general",
			Metrics: []string{},
		},
		EntitiesAndRelationships: EntitiesAndRelationships{
			Entities:      []string{},
			Relationships: []string{},
			TimePeriods:   []string{},
		},
		DataRequirements: DataRequirements{
			RelevantTables: []string{},
			RelevantFields: []string{},
			Filters:        []string{},
		},
		ComplexityAssessment: ComplexityAssessment{
			Level:                    "simple",
			RequiresMultipleQueries:  false,
			RequiresAdvancedAnalysis: false,
		},
	}
}
