package datasource

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/config"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

// NewPool creates a pgx connection pool for the configured data source.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConnections

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// Postgres implements QueryRunner and SchemaReader over a pgx pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres wraps an existing pool. If logger is nil, a no-op logger is used.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{pool: pool, logger: logger.Named("datasource")}
}

// Close releases the underlying pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Query runs a statement and collects rows as column-keyed maps.
func (p *Postgres) Query(ctx context.Context, sqlQuery string, args ...any) ([]models.Row, error) {
	rows, err := p.pool.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	result := make([]models.Row, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}

		row := make(models.Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return result, nil
}

// ReadSchema introspects all user tables, their columns and foreign keys.
// System schemas are excluded. Only the public-facing table name is kept as
// the map key since the pipeline targets a single application schema.
func (p *Postgres) ReadSchema(ctx context.Context) (models.SchemaSnapshot, []models.Relationship, error) {
	const columnsQuery = `
		SELECT
			c.table_name,
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS is_nullable,
			c.column_default
		FROM information_schema.columns c
		JOIN information_schema.tables t
			ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE t.table_type = 'BASE TABLE'
		  AND c.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY c.table_name, c.ordinal_position
	`

	rows, err := p.pool.Query(ctx, columnsQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	snapshot := make(models.SchemaSnapshot)
	for rows.Next() {
		var tableName string
		var col models.Column
		if err := rows.Scan(&tableName, &col.Name, &col.DataType, &col.IsNullable, &col.Default); err != nil {
			return nil, nil, fmt.Errorf("scan column: %w", err)
		}

		table := snapshot[tableName]
		table.Name = tableName
		table.Columns = append(table.Columns, col)
		snapshot[tableName] = table
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate columns: %w", err)
	}

	relationships, err := p.readForeignKeys(ctx)
	if err != nil {
		return nil, nil, err
	}

	p.logger.Debug("Schema introspected",
		zap.Int("tables", len(snapshot)),
		zap.Int("relationships", len(relationships)))

	return snapshot, relationships, nil
}

// readForeignKeys collects all FK constraints as flat relationship edges.
func (p *Postgres) readForeignKeys(ctx context.Context) ([]models.Relationship, error) {
	const query = `
		SELECT
			kcu.table_name AS source_table,
			kcu.column_name AS source_column,
			ccu.table_name AS target_table,
			ccu.column_name AS target_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var rels []models.Relationship
	for rows.Next() {
		var r models.Relationship
		if err := rows.Scan(&r.Table, &r.Column, &r.ReferencedTable, &r.ReferencedColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		rels = append(rels, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign keys: %w", err)
	}

	return rels, nil
}

// Ensure Postgres implements both interfaces at compile time.
var (
	_ QueryRunner  = (*Postgres)(nil)
	_ SchemaReader = (*Postgres)(nil)
)
