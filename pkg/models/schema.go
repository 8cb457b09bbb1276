package models

// Column describes a single column as reported by database introspection.
type Column struct {
	Name       string  `json:"name"`
	DataType   string  `json:"data_type"`
	IsNullable bool    `json:"is_nullable"`
	Default    *string `json:"default,omitempty"`
}

// Table holds the ordered column list for one table.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// SchemaSnapshot maps table name to its definition. Snapshots are immutable
// once built; the schema cache replaces whole values on refresh.
type SchemaSnapshot map[string]Table

// TableNames returns all table names in the snapshot.
func (s SchemaSnapshot) TableNames() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	return names
}

// HasTable reports whether the snapshot contains the named table.
func (s SchemaSnapshot) HasTable(name string) bool {
	_, ok := s[name]
	return ok
}

// ColumnNames returns the column names of a table, or nil if the table is unknown.
func (s SchemaSnapshot) ColumnNames(table string) []string {
	t, ok := s[table]
	if !ok {
		return nil
	}
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Restrict returns a minimal view of the snapshot limited to the given tables.
// Unknown tables are ignored.
func (s SchemaSnapshot) Restrict(tables []string) SchemaSnapshot {
	minimal := make(SchemaSnapshot, len(tables))
	for _, name := range tables {
		if t, ok := s[name]; ok {
			minimal[name] = t
		}
	}
	return minimal
}

// Relationship is a single foreign-key edge between two tables.
type Relationship struct {
	Table            string `json:"table"`
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// ChatMessage is one turn of conversation history passed through to the LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
