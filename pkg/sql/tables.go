package sql

import (
	"regexp"
	"strings"
)

// tableRefPattern matches FROM/JOIN clauses followed by a bare table name
// with an optional alias. Subqueries (parenthesized) are skipped.
var tableRefPattern = regexp.MustCompile(`(?i)\b(?:from|join)\s+([a-zA-Z_][a-zA-Z0-9_]*)(?:\s+(?:as\s+)?([a-zA-Z_][a-zA-Z0-9_]*))?`)

// reserved words that the alias capture group must never be mistaken for.
var aliasStopWords = map[string]bool{
	"on": true, "where": true, "join": true, "left": true, "right": true,
	"inner": true, "outer": true, "full": true, "cross": true, "group": true,
	"order": true, "limit": true, "having": true, "union": true, "using": true,
	"set": true, "as": true, "and": true, "or": true, "natural": true,
}

// TableRef is one table referenced in a FROM or JOIN clause.
type TableRef struct {
	Table string
	Alias string // empty when the table is referenced without alias
}

// ExtractTableRefs returns every table referenced in FROM/JOIN clauses, in
// order of appearance, with duplicates removed.
func ExtractTableRefs(sqlQuery string) []TableRef {
	matches := tableRefPattern.FindAllStringSubmatch(sqlQuery, -1)
	seen := make(map[string]bool)
	var refs []TableRef
	for _, m := range matches {
		table := strings.ToLower(m[1])
		if seen[table] {
			continue
		}
		seen[table] = true

		alias := strings.ToLower(m[2])
		if aliasStopWords[alias] {
			alias = ""
		}
		refs = append(refs, TableRef{Table: table, Alias: alias})
	}
	return refs
}

// ExtractTableNames returns just the table names referenced in the statement.
func ExtractTableNames(sqlQuery string) []string {
	refs := ExtractTableRefs(sqlQuery)
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Table
	}
	return names
}
