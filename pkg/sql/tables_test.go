package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTableRefs(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []TableRef
	}{
		{
			name: "single table no alias",
			sql:  "SELECT * FROM products",
			want: []TableRef{{Table: "products"}},
		},
		{
			name: "alias with AS",
			sql:  "SELECT p.id FROM products AS p",
			want: []TableRef{{Table: "products", Alias: "p"}},
		},
		{
			name: "alias without AS",
			sql:  "SELECT p.id FROM products p",
			want: []TableRef{{Table: "products", Alias: "p"}},
		},
		{
			name: "join with aliases",
			sql:  "SELECT o.id, c.name FROM orders o JOIN customers c ON o.customer_id = c.id",
			want: []TableRef{{Table: "orders", Alias: "o"}, {Table: "customers", Alias: "c"}},
		},
		{
			name: "keyword after table not captured as alias",
			sql:  "SELECT * FROM orders WHERE total > 10",
			want: []TableRef{{Table: "orders"}},
		},
		{
			name: "left join",
			sql:  "SELECT * FROM orders o LEFT JOIN customers c ON o.customer_id = c.id",
			want: []TableRef{{Table: "orders", Alias: "o"}, {Table: "customers", Alias: "c"}},
		},
		{
			name: "duplicate reference deduplicated",
			sql:  "SELECT * FROM orders UNION SELECT * FROM orders",
			want: []TableRef{{Table: "orders"}},
		},
		{
			name: "case insensitive",
			sql:  "select * from Products",
			want: []TableRef{{Table: "products"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTableRefs(tt.sql))
		})
	}
}

func TestExtractTableNames(t *testing.T) {
	names := ExtractTableNames("SELECT * FROM orders o JOIN customers c ON o.customer_id = c.id")
	assert.Equal(t, []string{"orders", "customers"}, names)

	assert.Empty(t, ExtractTableNames("not sql"))
}
