package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

// IssueType classifies a structural problem found in generated SQL.
type IssueType string

const (
	IssueAmbiguousColumn IssueType = "ambiguous_column"
	IssueUnionArity      IssueType = "union_arity"
	IssueUnknownAlias    IssueType = "unknown_alias"
)

// Issue is one structural problem, described precisely enough that a repair
// prompt can tell the model what to fix.
type Issue struct {
	Type        IssueType
	Description string
}

// Validate statically scans a SELECT statement for ambiguous unqualified
// columns, UNION branches with mismatched arity, and column references using
// aliases never declared in any FROM/JOIN. It is a heuristic scan over
// well-formed SQL, not a parser; real correctness checking happens at
// execution time.
func Validate(sqlQuery string, schema models.SchemaSnapshot) []Issue {
	var issues []Issue

	refs := ExtractTableRefs(sqlQuery)
	issues = append(issues, checkAmbiguousColumns(sqlQuery, refs, schema)...)
	issues = append(issues, checkUnionArity(sqlQuery)...)
	issues = append(issues, checkAliasReferences(sqlQuery, refs)...)

	return issues
}

// ValidAliases returns the set of alias/table tokens a column qualifier may
// legally use in the statement.
func ValidAliases(sqlQuery string) []string {
	refs := ExtractTableRefs(sqlQuery)
	var valid []string
	for _, r := range refs {
		valid = append(valid, r.Table)
		if r.Alias != "" {
			valid = append(valid, r.Alias)
		}
	}
	return valid
}

// DescribeIssues renders issues as a numbered list for the repair prompt.
func DescribeIssues(issues []Issue) string {
	var b strings.Builder
	for i, issue := range issues {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, issue.Type, issue.Description)
	}
	return b.String()
}

// checkAmbiguousColumns flags unqualified select-list columns that exist in
// more than one referenced table.
func checkAmbiguousColumns(sqlQuery string, refs []TableRef, schema models.SchemaSnapshot) []Issue {
	if len(refs) < 2 {
		return nil // A single table cannot produce ambiguity.
	}

	// Column name -> number of referenced tables containing it.
	occurrences := make(map[string]int)
	for _, ref := range refs {
		for _, col := range schema.ColumnNames(ref.Table) {
			occurrences[strings.ToLower(col)]++
		}
	}

	var issues []Issue
	seen := make(map[string]bool)
	for _, col := range selectListColumns(sqlQuery) {
		if strings.Contains(col, ".") || col == "*" {
			continue // Qualified or star references are fine.
		}
		name := strings.ToLower(baseColumnToken(col))
		if name == "" || seen[name] {
			continue
		}
		if occurrences[name] > 1 {
			seen[name] = true
			issues = append(issues, Issue{
				Type:        IssueAmbiguousColumn,
				Description: fmt.Sprintf("column %q exists in multiple referenced tables and must be qualified", name),
			})
		}
	}
	return issues
}

// checkUnionArity verifies that every top-level UNION branch selects the same
// number of columns. Branches selecting * are skipped since their arity is
// unknown without execution.
func checkUnionArity(sqlQuery string) []Issue {
	branches := splitTopLevel(sqlQuery, unionSplitPattern)
	if len(branches) < 2 {
		return nil
	}

	arity := -1
	for _, branch := range branches {
		cols := selectListColumns(branch)
		if len(cols) == 0 {
			continue
		}
		star := false
		for _, c := range cols {
			if strings.HasSuffix(c, "*") {
				star = true
				break
			}
		}
		if star {
			continue
		}
		if arity == -1 {
			arity = len(cols)
			continue
		}
		if len(cols) != arity {
			return []Issue{{
				Type:        IssueUnionArity,
				Description: fmt.Sprintf("UNION branches select different column counts (%d vs %d)", arity, len(cols)),
			}}
		}
	}
	return nil
}

var (
	unionSplitPattern = regexp.MustCompile(`(?i)\bUNION(?:\s+ALL)?\b`)
	qualifiedColumn   = regexp.MustCompile(`\b([a-zA-Z_][a-zA-Z0-9_]*)\.([a-zA-Z_][a-zA-Z0-9_]*)`)
)

// checkAliasReferences flags qualified references whose qualifier was never
// declared as a table or alias in any FROM/JOIN.
func checkAliasReferences(sqlQuery string, refs []TableRef) []Issue {
	valid := make(map[string]bool)
	for _, r := range refs {
		valid[r.Table] = true
		if r.Alias != "" {
			valid[r.Alias] = true
		}
	}
	if len(valid) == 0 {
		return nil
	}

	var issues []Issue
	flagged := make(map[string]bool)
	for _, m := range qualifiedColumn.FindAllStringSubmatch(sqlQuery, -1) {
		qualifier := strings.ToLower(m[1])
		if valid[qualifier] || flagged[qualifier] {
			continue
		}
		flagged[qualifier] = true
		issues = append(issues, Issue{
			Type:        IssueUnknownAlias,
			Description: fmt.Sprintf("alias %q is used but never declared in FROM/JOIN", qualifier),
		})
	}
	return issues
}

// selectListColumns extracts the select-list expressions of the first SELECT
// in the statement, split on top-level commas.
func selectListColumns(sqlQuery string) []string {
	lower := strings.ToLower(sqlQuery)
	selectIdx := strings.Index(lower, "select")
	if selectIdx == -1 {
		return nil
	}

	endIdx := len(sqlQuery)
	for _, keyword := range []string{" from ", " where ", " group ", " order ", " limit "} {
		if idx := strings.Index(lower[selectIdx:], keyword); idx != -1 && selectIdx+idx < endIdx {
			endIdx = selectIdx + idx
		}
	}

	clause := strings.TrimSpace(sqlQuery[selectIdx+len("select") : endIdx])
	clause = strings.TrimPrefix(clause, "DISTINCT ")
	clause = strings.TrimPrefix(clause, "distinct ")

	var cols []string
	for _, col := range splitRespectingParens(clause, ',') {
		col = strings.TrimSpace(col)
		if col != "" {
			cols = append(cols, col)
		}
	}
	return cols
}

// baseColumnToken strips an AS alias and trailing decoration from a
// select-list expression, returning the bare column token (or "" for
// expressions such as function calls).
func baseColumnToken(expr string) string {
	lower := strings.ToLower(expr)
	if idx := strings.Index(lower, " as "); idx != -1 {
		expr = expr[:idx]
	}
	expr = strings.TrimSpace(expr)
	if strings.ContainsAny(expr, "() ") {
		return ""
	}
	return expr
}

// splitRespectingParens splits on sep at paren depth zero.
func splitRespectingParens(s string, sep rune) []string {
	var parts []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		default:
			if ch == sep && depth == 0 {
				parts = append(parts, current.String())
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// splitTopLevel splits the statement on a pattern, but only at paren depth
// zero so subquery UNIONs are not mistaken for top-level branches.
func splitTopLevel(sqlQuery string, pattern *regexp.Regexp) []string {
	locs := pattern.FindAllStringIndex(sqlQuery, -1)
	if len(locs) == 0 {
		return []string{sqlQuery}
	}

	var branches []string
	prev := 0
	for _, loc := range locs {
		if parenDepthAt(sqlQuery, loc[0]) != 0 {
			continue
		}
		branches = append(branches, sqlQuery[prev:loc[0]])
		prev = loc[1]
	}
	branches = append(branches, sqlQuery[prev:])
	return branches
}

// parenDepthAt returns the parenthesis nesting depth at byte offset pos.
func parenDepthAt(s string, pos int) int {
	depth := 0
	for i := 0; i < pos && i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	return depth
}
