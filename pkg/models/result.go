package models

// Row is one database result row: column name to scalar or nested value.
// Rows are never mutated in place across pipeline stages; each stage that
// changes row content produces a new copy.
type Row map[string]any

// CloneRows returns a shallow per-row copy of rows, so a stage can add
// columns without touching its caller's data.
func CloneRows(rows []Row) []Row {
	cloned := make([]Row, len(rows))
	for i, r := range rows {
		c := make(Row, len(r)+2)
		for k, v := range r {
			c[k] = v
		}
		cloned[i] = c
	}
	return cloned
}

// ColumnType is the inferred logical type of a result column.
type ColumnType string

const (
	ColumnTypeNumber  ColumnType = "number"
	ColumnTypeString  ColumnType = "string"
	ColumnTypeBoolean ColumnType = "boolean"
	ColumnTypeDate    ColumnType = "date"
)

// ColumnFormat refines a column type for display purposes.
type ColumnFormat string

const (
	FormatCurrency ColumnFormat = "currency"
	FormatPercent  ColumnFormat = "percent"
	FormatInteger  ColumnFormat = "integer"
	FormatDecimal  ColumnFormat = "decimal"
	FormatDate     ColumnFormat = "date"
	FormatText     ColumnFormat = "text"
)

// ColumnMetadata is the per-column result of type/format inference.
type ColumnMetadata struct {
	Name        string       `json:"name"`
	Type        ColumnType   `json:"type"`
	Format      ColumnFormat `json:"format"`
	IsID        bool         `json:"isId"`
	IsName      bool         `json:"isName"`
	DisplayName string       `json:"displayName"`
}

// TableStructure groups columns by role for the presentation layer.
// Derived purely from ColumnMetadata, no I/O involved.
type TableStructure struct {
	DisplayColumns   []string `json:"displayColumns"`
	SummaryColumns   []string `json:"summaryColumns"`
	GroupableColumns []string `json:"groupableColumns"`
	SortableColumns  []string `json:"sortableColumns"`
}

// ExecutionResult is what the fallback query executor returns. It never
// carries an error: a failed ladder degrades to empty rows plus a message.
type ExecutionResult struct {
	Rows         []Row  `json:"rows"`
	SQLUsed      string `json:"sqlUsed"`
	FallbackUsed bool   `json:"fallbackUsed"`
	Message      string `json:"message,omitempty"`

	// SecondaryRows holds per-table scans for additional tables referenced by
	// a failed multi-table query. Joining happens in memory downstream.
	SecondaryRows map[string][]Row `json:"-"`

	// AdditionalSQL lists the secondary statements issued while falling back,
	// surfaced in the final payload's additionalQueries.
	AdditionalSQL []string `json:"-"`
}

// FinalResult is the complete report payload delivered to the client, either
// as one JSON object (non-streaming endpoint) or chunked over SSE.
type FinalResult struct {
	Status            string                    `json:"status"`
	Report            string                    `json:"report"`
	RawData           []Row                     `json:"rawData"`
	GeneratedSQL      string                    `json:"generatedSQL"`
	AdditionalQueries []string                  `json:"additionalQueries"`
	Calculations      []string                  `json:"calculations"`
	RowCount          int                       `json:"rowCount"`
	TablesUsed        []string                  `json:"tablesUsed"`
	AnalysisSteps     []string                  `json:"analysisSteps"`
	EnhancedResults   map[string]any            `json:"enhancedResults"`
	RelatedData       map[string][]Row          `json:"relatedData"`
	TableStructure    *TableStructure           `json:"tableStructure"`
	ColumnMetadata    map[string]ColumnMetadata `json:"columnMetadata"`
	AIInsights        []Insight                 `json:"aiInsights"`
	Processing        bool                      `json:"processing"`
}
