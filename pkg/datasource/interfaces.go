// Package datasource provides PostgreSQL access for schema introspection and
// query execution against the reported-on database.
package datasource

import (
	"context"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

// QueryRunner executes SQL against the data source and returns rows as
// column-name-keyed maps. Use this interface for dependency injection so
// tests can fake database behavior.
type QueryRunner interface {
	// Query runs a statement with optional positional parameters ($1, $2, ...).
	Query(ctx context.Context, sql string, args ...any) ([]models.Row, error)
}

// SchemaReader introspects table, column and foreign-key metadata.
type SchemaReader interface {
	ReadSchema(ctx context.Context) (models.SchemaSnapshot, []models.Relationship, error)
}
