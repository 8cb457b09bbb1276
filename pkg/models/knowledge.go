package models

import "time"

// KnowledgeEntry records one SQL query that returned at least one row, so
// later prompts with similar wording can reuse it as a template. Entries live
// for the process lifetime only.
type KnowledgeEntry struct {
	Query           string    `json:"query"`
	UserPrompt      string    `json:"user_prompt"`
	Tables          []string  `json:"tables"`
	Joins           []string  `json:"joins"`
	WhereConditions []string  `json:"where_conditions"`
	ResultCount     int       `json:"result_count"`
	Timestamp       time.Time `json:"timestamp"`
}
