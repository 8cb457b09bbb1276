package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

func TestPromptSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "show total revenue", b: "show total revenue", want: 1},
		{name: "disjoint", a: "show revenue", b: "list customers", want: 0},
		{name: "empty", a: "", b: "show revenue", want: 0},
		{name: "short words ignored", a: "a an to", b: "a an to", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PromptSimilarity(tt.a, tt.b), 1e-9)
		})
	}

	// Symmetric and bounded.
	a, b := "monthly revenue by product category", "show revenue by category"
	assert.Equal(t, PromptSimilarity(a, b), PromptSimilarity(b, a))
	score := PromptSimilarity(a, b)
	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestInMemoryKnowledgeStore_FindSimilar(t *testing.T) {
	store := NewInMemoryKnowledgeStore(zap.NewNop())

	store.Append(models.KnowledgeEntry{
		Query:      "SELECT * FROM orders",
		UserPrompt: "show all orders from last month",
		Tables:     []string{"orders"},
	})
	store.Append(models.KnowledgeEntry{
		Query:      "SELECT * FROM products",
		UserPrompt: "list every product with price",
		Tables:     []string{"products"},
	})
	require.Equal(t, 2, store.Len())

	found := store.FindSimilar("show orders from last month", 0.3)
	require.NotNil(t, found)
	assert.Equal(t, "SELECT * FROM orders", found.Query)

	// Below threshold finds nothing.
	assert.Nil(t, store.FindSimilar("employee headcount by office", 0.3))

	// Returned entry is a copy; mutating it must not affect the store.
	found.Query = "mutated"
	again := store.FindSimilar("show orders from last month", 0.3)
	require.NotNil(t, again)
	assert.Equal(t, "SELECT * FROM orders", again.Query)
}

func TestInMemoryKnowledgeStore_TimestampDefaulted(t *testing.T) {
	store := NewInMemoryKnowledgeStore(zap.NewNop())
	store.Append(models.KnowledgeEntry{Query: "SELECT 1", UserPrompt: "quick sanity check query"})

	found := store.FindSimilar("quick sanity check query", 0.3)
	require.NotNil(t, found)
	assert.False(t, found.Timestamp.IsZero())
}
