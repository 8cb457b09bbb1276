package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

func testRelationships() []models.Relationship {
	return []models.Relationship{
		{Table: "orders", Column: "customer_id", ReferencedTable: "customers", ReferencedColumn: "id"},
		{Table: "order_items", Column: "order_id", ReferencedTable: "orders", ReferencedColumn: "id"},
		{Table: "order_items", Column: "product_id", ReferencedTable: "products", ReferencedColumn: "id"},
	}
}

func TestNeighbors_BothDirections(t *testing.T) {
	g := NewRelationshipGraph(testRelationships())

	// orders points at customers and is pointed at by order_items.
	assert.Equal(t, []string{"customers", "order_items"}, g.Neighbors("orders"))
	assert.Equal(t, []string{"order_items"}, g.Neighbors("products"))
	assert.Empty(t, g.Neighbors("unknown"))
}

func TestFindPaths(t *testing.T) {
	g := NewRelationshipGraph(testRelationships())

	paths := g.FindPaths("customers", "products", 3)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"customers", "orders", "order_items", "products"}, paths[0])

	// Too shallow to reach.
	assert.Empty(t, g.FindPaths("customers", "products", 2))

	// Direct edge.
	direct := g.FindPaths("orders", "customers", 1)
	require.Len(t, direct, 1)
	assert.Equal(t, []string{"orders", "customers"}, direct[0])
}

func TestFindPaths_Memoized(t *testing.T) {
	g := NewRelationshipGraph(testRelationships())

	first := g.FindPaths("customers", "products", 3)
	second := g.FindPaths("customers", "products", 3)
	assert.Equal(t, first, second)
}

func TestFindPaths_NoRoute(t *testing.T) {
	g := NewRelationshipGraph(testRelationships())
	assert.Empty(t, g.FindPaths("products", "warehouses", 3))
}

func TestRelationshipsFor(t *testing.T) {
	g := NewRelationshipGraph(testRelationships())
	rels := g.RelationshipsFor("order_items")
	assert.Len(t, rels, 2)
	assert.Empty(t, g.RelationshipsFor("customers"))
}

func TestDescribePath(t *testing.T) {
	assert.Equal(t, "a -> b -> c", DescribePath([]string{"a", "b", "c"}))
}
