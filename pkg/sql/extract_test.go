package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStatement(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{
			name:   "bare select",
			raw:    "SELECT * FROM products",
			want:   "SELECT * FROM products",
			wantOK: true,
		},
		{
			name:   "markdown fence",
			raw:    "Here is the query:\n```sql\nSELECT id, name FROM users;\n```",
			want:   "SELECT id, name FROM users",
			wantOK: true,
		},
		{
			name:   "leading prose",
			raw:    "Sure! This should work: SELECT count(*) FROM orders",
			want:   "SELECT count(*) FROM orders",
			wantOK: true,
		},
		{
			name:   "with clause",
			raw:    "WITH recent AS (SELECT * FROM orders) SELECT * FROM recent",
			want:   "WITH recent AS (SELECT * FROM orders) SELECT * FROM recent",
			wantOK: true,
		},
		{
			name:   "lowercase keyword",
			raw:    "select id from products",
			want:   "select id from products",
			wantOK: true,
		},
		{
			name:   "trailing semicolon and whitespace",
			raw:    "SELECT 1;  \n",
			want:   "SELECT 1",
			wantOK: true,
		},
		{
			name:   "no sql at all",
			raw:    "I'm sorry, I can't generate a query for that.",
			wantOK: false,
		},
		{
			name:   "empty",
			raw:    "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractStatement(tt.raw)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestIsSelect(t *testing.T) {
	assert.True(t, IsSelect("SELECT 1"))
	assert.True(t, IsSelect("  with x as (select 1) select * from x"))
	assert.False(t, IsSelect("DELETE FROM users"))
	assert.False(t, IsSelect(""))
}

func TestLimitHandling(t *testing.T) {
	assert.True(t, HasLimit("SELECT * FROM t LIMIT 100"))
	assert.False(t, HasLimit("SELECT * FROM t"))
	assert.False(t, HasLimit("SELECT * FROM t WHERE note = 'limit 5 things'"))

	assert.True(t, HasLimit("SELECT * FROM t LIMIT 100 OFFSET 10"))

	assert.Equal(t, "SELECT * FROM t", StripLimit("SELECT * FROM t LIMIT 100"))
	assert.Equal(t, "SELECT * FROM t", StripLimit("SELECT * FROM t limit 5;"))
	assert.Equal(t, "SELECT * FROM t", StripLimit("SELECT * FROM t"))
	assert.Equal(t, "SELECT * FROM t", StripLimit("SELECT * FROM t LIMIT 100 OFFSET 10"))
	assert.Equal(t, "SELECT * FROM t", StripLimit("SELECT * FROM t LIMIT 100 -- cap result"))

	assert.Equal(t, "SELECT * FROM t LIMIT 50", EnsureLimit("SELECT * FROM t", 50))
	assert.Equal(t, "SELECT * FROM t LIMIT 10", EnsureLimit("SELECT * FROM t LIMIT 10", 50))
}
