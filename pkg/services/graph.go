package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

// defaultMaxPathDepth bounds the relationship path search.
const defaultMaxPathDepth = 3

// RelationshipGraph indexes foreign-key edges for path-finding between
// tables. Edges are traversable both ways: a FK from orders to customers
// also connects customers back to orders.
type RelationshipGraph struct {
	direct  map[string][]models.Relationship
	inverse map[string][]models.Relationship

	mu        sync.Mutex
	pathCache map[string][][]string
}

// NewRelationshipGraph builds the adjacency index from a flat edge list.
func NewRelationshipGraph(relationships []models.Relationship) *RelationshipGraph {
	g := &RelationshipGraph{
		direct:    make(map[string][]models.Relationship),
		inverse:   make(map[string][]models.Relationship),
		pathCache: make(map[string][][]string),
	}
	for _, rel := range relationships {
		g.direct[rel.Table] = append(g.direct[rel.Table], rel)
		g.inverse[rel.ReferencedTable] = append(g.inverse[rel.ReferencedTable], rel)
	}
	return g
}

// Neighbors returns the tables one edge away from table, in either direction.
func (g *RelationshipGraph) Neighbors(table string) []string {
	seen := make(map[string]struct{})
	for _, rel := range g.direct[table] {
		seen[rel.ReferencedTable] = struct{}{}
	}
	for _, rel := range g.inverse[table] {
		seen[rel.Table] = struct{}{}
	}

	neighbors := make([]string, 0, len(seen))
	for t := range seen {
		neighbors = append(neighbors, t)
	}
	sort.Strings(neighbors)
	return neighbors
}

// RelationshipsFor returns the outgoing FK edges declared on table.
func (g *RelationshipGraph) RelationshipsFor(table string) []models.Relationship {
	return g.direct[table]
}

// FindPaths returns all table-name paths from source to target up to maxDepth
// edges long (maxDepth < 1 uses the default of 3). Results are memoized per
// (source, target, maxDepth).
func (g *RelationshipGraph) FindPaths(source, target string, maxDepth int) [][]string {
	if maxDepth < 1 {
		maxDepth = defaultMaxPathDepth
	}
	key := fmt.Sprintf("%s|%s|%d", source, target, maxDepth)

	g.mu.Lock()
	if cached, ok := g.pathCache[key]; ok {
		g.mu.Unlock()
		return cached
	}
	g.mu.Unlock()

	var paths [][]string
	visited := map[string]bool{source: true}
	g.dfs(source, target, maxDepth, []string{source}, visited, &paths)

	g.mu.Lock()
	g.pathCache[key] = paths
	g.mu.Unlock()
	return paths
}

func (g *RelationshipGraph) dfs(current, target string, remaining int, path []string, visited map[string]bool, paths *[][]string) {
	if current == target && len(path) > 1 {
		found := make([]string, len(path))
		copy(found, path)
		*paths = append(*paths, found)
		return
	}
	if remaining == 0 {
		return
	}

	for _, next := range g.Neighbors(current) {
		if visited[next] && next != target {
			continue
		}
		visited[next] = true
		g.dfs(next, target, remaining-1, append(path, next), visited, paths)
		visited[next] = false
	}
}

// DescribePath renders a path for logs and LLM prompts.
func DescribePath(path []string) string {
	return strings.Join(path, " -> ")
}
