package services

import (
	"context"
	"sync"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

// fakeRunner is a scriptable QueryRunner for tests.
type fakeRunner struct {
	mu      sync.Mutex
	queryFn func(ctx context.Context, sqlQuery string, args ...any) ([]models.Row, error)
	queries []string
}

func (f *fakeRunner) Query(ctx context.Context, sqlQuery string, args ...any) ([]models.Row, error) {
	f.mu.Lock()
	f.queries = append(f.queries, sqlQuery)
	f.mu.Unlock()
	if f.queryFn != nil {
		return f.queryFn(ctx, sqlQuery, args...)
	}
	return []models.Row{}, nil
}

func (f *fakeRunner) queryLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.queries))
	copy(out, f.queries)
	return out
}

// fakeSchemaProvider serves a fixed snapshot.
type fakeSchemaProvider struct {
	snapshot      models.SchemaSnapshot
	relationships []models.Relationship
	err           error
}

func (f *fakeSchemaProvider) GetSchema(ctx context.Context) (models.SchemaSnapshot, []models.Relationship, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.snapshot, f.relationships, nil
}

func productsSchema() models.SchemaSnapshot {
	return models.SchemaSnapshot{
		"products": {Name: "products", Columns: []models.Column{
			{Name: "id"}, {Name: "name"}, {Name: "price"},
		}},
	}
}

func ordersSchema() models.SchemaSnapshot {
	return models.SchemaSnapshot{
		"orders": {Name: "orders", Columns: []models.Column{
			{Name: "id"}, {Name: "customer_id"}, {Name: "total"}, {Name: "created_at"},
		}},
		"customers": {Name: "customers", Columns: []models.Column{
			{Name: "id"}, {Name: "name"}, {Name: "email"},
		}},
	}
}
