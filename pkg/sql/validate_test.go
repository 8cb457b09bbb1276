package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

func testSchema() models.SchemaSnapshot {
	return models.SchemaSnapshot{
		"orders": {Name: "orders", Columns: []models.Column{
			{Name: "id"}, {Name: "customer_id"}, {Name: "total"}, {Name: "created_at"},
		}},
		"customers": {Name: "customers", Columns: []models.Column{
			{Name: "id"}, {Name: "name"}, {Name: "total"},
		}},
	}
}

func issueTypes(issues []Issue) []IssueType {
	types := make([]IssueType, len(issues))
	for i, issue := range issues {
		types[i] = issue.Type
	}
	return types
}

func TestValidate_CleanQuery(t *testing.T) {
	issues := Validate("SELECT o.id, o.total, c.name FROM orders o JOIN customers c ON o.customer_id = c.id", testSchema())
	assert.Empty(t, issues)
}

func TestValidate_AmbiguousColumn(t *testing.T) {
	issues := Validate("SELECT total FROM orders o JOIN customers c ON o.customer_id = c.id", testSchema())
	require.Len(t, issues, 1)
	assert.Equal(t, IssueAmbiguousColumn, issues[0].Type)
	assert.Contains(t, issues[0].Description, "total")
}

func TestValidate_AmbiguityNeedsTwoTables(t *testing.T) {
	// A single-table query cannot be ambiguous even for shared column names.
	issues := Validate("SELECT total FROM orders", testSchema())
	assert.Empty(t, issues)
}

func TestValidate_UnionArityMismatch(t *testing.T) {
	issues := Validate("SELECT id, name FROM customers UNION SELECT id FROM orders", testSchema())
	assert.Contains(t, issueTypes(issues), IssueUnionArity)
}

func TestValidate_UnionArityMatching(t *testing.T) {
	issues := Validate("SELECT name FROM customers UNION ALL SELECT created_at FROM orders", testSchema())
	assert.Empty(t, issues)
}

func TestValidate_UnionStarBranchSkipped(t *testing.T) {
	issues := Validate("SELECT * FROM customers UNION SELECT id, total FROM orders", testSchema())
	assert.Empty(t, issues)
}

func TestValidate_UnknownAlias(t *testing.T) {
	issues := Validate("SELECT x.name FROM customers c", testSchema())
	require.Len(t, issues, 1)
	assert.Equal(t, IssueUnknownAlias, issues[0].Type)
	assert.Contains(t, issues[0].Description, `"x"`)
}

func TestValidAliases(t *testing.T) {
	aliases := ValidAliases("SELECT o.id FROM orders o JOIN customers ON customers.id = o.customer_id")
	assert.Contains(t, aliases, "orders")
	assert.Contains(t, aliases, "o")
	assert.Contains(t, aliases, "customers")
}

func TestDescribeIssues(t *testing.T) {
	out := DescribeIssues([]Issue{
		{Type: IssueAmbiguousColumn, Description: "column total"},
		{Type: IssueUnknownAlias, Description: "alias x"},
	})
	assert.Contains(t, out, "1. [ambiguous_column] column total")
	assert.Contains(t, out, "2. [unknown_alias] alias x")
}
