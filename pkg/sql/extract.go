// Package sql provides extraction and static validation of model-generated SQL.
package sql

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	fencePattern   = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	keywordPattern = regexp.MustCompile(`(?is)\b(select|with)\b`)
)

// ExtractStatement recovers a single SELECT/WITH statement from free-form
// model output. Markdown fences and leading prose are discarded; everything
// from the first SELECT or WITH keyword onward is kept and normalized.
// Returns false when no such keyword exists anywhere in the text.
func ExtractStatement(raw string) (string, bool) {
	text := raw

	// Prefer fenced content when present.
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	loc := keywordPattern.FindStringIndex(text)
	if loc == nil {
		return "", false
	}

	return Normalize(text[loc[0]:]), true
}

// Normalize trims whitespace and a trailing semicolon.
func Normalize(sqlQuery string) string {
	sqlQuery = strings.TrimSpace(sqlQuery)
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimRight(strings.TrimSuffix(sqlQuery, ";"), " \t\n\r")
	}
	return sqlQuery
}

// IsSelect reports whether the (trimmed) statement starts with SELECT or WITH.
func IsSelect(sqlQuery string) bool {
	trimmed := strings.TrimSpace(strings.ToUpper(sqlQuery))
	return strings.HasPrefix(trimmed, "SELECT") || strings.HasPrefix(trimmed, "WITH")
}

// HasLimit reports whether the statement carries a top-level LIMIT clause.
func HasLimit(sqlQuery string) bool {
	return limitPattern.MatchString(sqlQuery)
}

// Matches a trailing LIMIT, tolerating an OFFSET clause and a line comment
// after it.
var limitPattern = regexp.MustCompile(`(?i)\bLIMIT\s+\d+(?:\s+OFFSET\s+\d+)?\s*(?:--[^\n]*)?\s*$`)

// StripLimit removes a trailing LIMIT clause (and its OFFSET), if any.
func StripLimit(sqlQuery string) string {
	return strings.TrimSpace(limitPattern.ReplaceAllString(Normalize(sqlQuery), ""))
}

// EnsureLimit appends a LIMIT clause when the statement has none.
func EnsureLimit(sqlQuery string, limit int) string {
	normalized := Normalize(sqlQuery)
	if HasLimit(normalized) {
		return normalized
	}
	return normalized + " LIMIT " + strconv.Itoa(limit)
}
