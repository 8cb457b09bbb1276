package services

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/datasource"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/logging"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
	sqlutil "github.com/muhammedshafeeque/AI-Report-Assistant/pkg/sql"
)

const (
	relatedRowLimit   = 1000
	displayColumnCap  = 10
	groupableMaxRatio = 0.5
	groupableMaxCard  = 20
	batchConcurrency  = 5
)

// descriptiveFields, in priority order, pick the human-readable column of a
// referenced row for name substitution.
var descriptiveFields = []string{"name", "title", "label", "description", "code", "username", "email"}

var safeIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ForeignKey is one inferred FK column on the result set.
type ForeignKey struct {
	Column           string
	ReferencedTable  string
	ReferencedColumn string
}

// EnrichmentService resolves foreign keys into readable names, fetches
// related rows, and infers column metadata and table structure. Every
// subtask is failure-isolated: an error logs and leaves the input unchanged,
// never aborting the pipeline.
type EnrichmentService struct {
	runner datasource.QueryRunner
	logger *zap.Logger
}

// NewEnrichmentService creates an enrichment service.
func NewEnrichmentService(runner datasource.QueryRunner, logger *zap.Logger) *EnrichmentService {
	return &EnrichmentService{
		runner: runner,
		logger: logger.Named("enrichment"),
	}
}

// Enrich resolves foreign keys in rows to related tables, fetches the
// referenced rows, and returns a new row slice with `<base>_name` columns
// added, plus the related rows keyed by table name. The input rows are
// never mutated.
func (s *EnrichmentService) Enrich(ctx context.Context, rows []models.Row, snapshot models.SchemaSnapshot, relationships []models.Relationship) ([]models.Row, map[string][]models.Row) {
	if len(rows) == 0 {
		return rows, nil
	}

	enriched := models.CloneRows(rows)
	related := make(map[string][]models.Row)

	for _, fk := range InferForeignKeys(rows[0], snapshot, relationships) {
		referencedRows, err := s.fetchRelated(ctx, fk, rows)
		if err != nil {
			s.logger.Warn("Related-row fetch failed",
				zap.String("column", fk.Column),
				zap.String("table", fk.ReferencedTable),
				zap.Error(err))
			continue
		}
		if len(referencedRows) == 0 {
			continue
		}
		related[fk.ReferencedTable] = referencedRows
		substituteNames(enriched, fk, referencedRows)
	}

	if len(related) == 0 {
		related = nil
	}
	return enriched, related
}

// InferForeignKeys finds candidate FK columns on a sample row. Known
// relationships win; otherwise the column base name is pluralized to guess
// the referenced table, kept only when that table exists.
func InferForeignKeys(sample models.Row, snapshot models.SchemaSnapshot, relationships []models.Relationship) []ForeignKey {
	byColumn := make(map[string]models.Relationship, len(relationships))
	for _, rel := range relationships {
		byColumn[strings.ToLower(rel.Column)] = rel
	}

	columns := make([]string, 0, len(sample))
	for col := range sample {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	var keys []ForeignKey
	for _, col := range columns {
		base, ok := foreignKeyBase(col)
		if !ok {
			continue
		}
		if rel, found := byColumn[strings.ToLower(col)]; found {
			keys = append(keys, ForeignKey{
				Column:           col,
				ReferencedTable:  rel.ReferencedTable,
				ReferencedColumn: rel.ReferencedColumn,
			})
			continue
		}
		guess := inflection.Plural(strings.ToLower(base))
		if snapshot.HasTable(guess) {
			keys = append(keys, ForeignKey{
				Column:           col,
				ReferencedTable:  guess,
				ReferencedColumn: "id",
			})
		}
	}
	return keys
}

// foreignKeyBase strips an id suffix from a column name. A bare "id" column
// is the row's own key, not a reference, so it yields no base.
func foreignKeyBase(column string) (string, bool) {
	lower := strings.ToLower(column)
	switch {
	case strings.HasSuffix(lower, "_id") && len(column) > 3:
		return column[:len(column)-3], true
	case strings.HasSuffix(column, "Id") && len(column) > 2:
		return column[:len(column)-2], true
	default:
		return "", false
	}
}

// fetchRelated loads the referenced rows for one foreign key. FK values are
// bound as a single array parameter; string values are additionally screened
// for injection patterns and dropped when flagged.
func (s *EnrichmentService) fetchRelated(ctx context.Context, fk ForeignKey, rows []models.Row) ([]models.Row, error) {
	if !safeIdentifier.MatchString(fk.ReferencedTable) || !safeIdentifier.MatchString(fk.ReferencedColumn) {
		return nil, fmt.Errorf("unsafe identifier in foreign key %s -> %s.%s", fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
	}

	values := distinctColumnValues(rows, fk.Column)
	safe, flagged := sqlutil.FilterSafeValues(values)
	for _, f := range flagged {
		s.logger.Warn("Dropped foreign-key value flagged by injection screen",
			zap.String("column", fk.Column),
			zap.String("fingerprint", f.Fingerprint))
	}
	if len(safe) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = ANY($1) LIMIT %d",
		fk.ReferencedTable, fk.ReferencedColumn, relatedRowLimit)
	return s.runner.Query(ctx, query, safe)
}

func distinctColumnValues(rows []models.Row, column string) []any {
	// Keyed by printed form: driver values can be unhashable ([]byte for
	// bytea keys), which would panic as a map key.
	seen := make(map[string]struct{})
	var values []any
	for _, row := range rows {
		v := row[column]
		if v == nil {
			continue
		}
		key := fmt.Sprint(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		values = append(values, v)
		if len(values) >= relatedRowLimit {
			break
		}
	}
	return values
}

// substituteNames adds a `<base>_name` column to each enriched row, looked
// up from the referenced rows by FK value.
func substituteNames(enriched []models.Row, fk ForeignKey, referencedRows []models.Row) {
	lookup := make(map[string]any, len(referencedRows))
	for _, ref := range referencedRows {
		key := ref[fk.ReferencedColumn]
		if key == nil {
			continue
		}
		if descriptive := descriptiveValue(ref); descriptive != nil {
			lookup[fmt.Sprint(key)] = descriptive
		}
	}
	if len(lookup) == 0 {
		return
	}

	base, _ := foreignKeyBase(fk.Column)
	nameColumn := strings.ToLower(base) + "_name"
	for _, row := range enriched {
		v := row[fk.Column]
		if v == nil {
			continue
		}
		if name, ok := lookup[fmt.Sprint(v)]; ok {
			row[nameColumn] = name
		}
	}
}

// descriptiveValue picks the most human-readable field of a row: the fixed
// priority list first, else the first non-id string field.
func descriptiveValue(row models.Row) any {
	for _, field := range descriptiveFields {
		if v, ok := row[field]; ok && v != nil {
			return v
		}
	}

	columns := make([]string, 0, len(row))
	for col := range row {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	for _, col := range columns {
		lower := strings.ToLower(col)
		if lower == "id" || strings.HasSuffix(lower, "_id") {
			continue
		}
		if s, ok := row[col].(string); ok && s != "" {
			return s
		}
	}
	return nil
}

// InferColumnMetadata majority-votes a type for every column over all rows
// and derives a display format. Safe to re-run over already-formatted data:
// numeric strings like "$1,234.56" still count as numbers.
func InferColumnMetadata(rows []models.Row) map[string]models.ColumnMetadata {
	metadata := make(map[string]models.ColumnMetadata)
	if len(rows) == 0 {
		return metadata
	}

	for _, col := range columnNames(rows) {
		counts := map[models.ColumnType]int{}
		wholeNumbers := true
		for _, row := range rows {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			t, whole := classifyValue(v)
			counts[t]++
			if t == models.ColumnTypeNumber && !whole {
				wholeNumbers = false
			}
		}

		colType := majorityType(counts)
		lower := strings.ToLower(col)
		metadata[col] = models.ColumnMetadata{
			Name:        col,
			Type:        colType,
			Format:      inferFormat(lower, colType, wholeNumbers),
			IsID:        lower == "id" || strings.HasSuffix(lower, "_id") || strings.HasSuffix(col, "Id"),
			IsName:      lower == "name" || strings.HasSuffix(lower, "_name"),
			DisplayName: displayName(col),
		}
	}
	return metadata
}

func columnNames(rows []models.Row) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, row := range rows {
		for col := range row {
			if _, ok := seen[col]; !ok {
				seen[col] = struct{}{}
				names = append(names, col)
			}
		}
	}
	sort.Strings(names)
	return names
}

func classifyValue(v any) (models.ColumnType, bool) {
	switch val := v.(type) {
	case bool:
		return models.ColumnTypeBoolean, false
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return models.ColumnTypeNumber, true
	case float32:
		return models.ColumnTypeNumber, float64(val) == math.Trunc(float64(val))
	case float64:
		return models.ColumnTypeNumber, val == math.Trunc(val)
	case time.Time:
		return models.ColumnTypeDate, false
	case string:
		if f, ok := ParseNumeric(val); ok {
			return models.ColumnTypeNumber, f == math.Trunc(f)
		}
		if isDateString(val) {
			return models.ColumnTypeDate, false
		}
		return models.ColumnTypeString, false
	default:
		return models.ColumnTypeString, false
	}
}

func majorityType(counts map[models.ColumnType]int) models.ColumnType {
	best := models.ColumnTypeString
	bestCount := 0
	// Fixed check order keeps ties deterministic.
	for _, t := range []models.ColumnType{models.ColumnTypeNumber, models.ColumnTypeString, models.ColumnTypeBoolean, models.ColumnTypeDate} {
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	return best
}

func inferFormat(lowerName string, colType models.ColumnType, whole bool) models.ColumnFormat {
	switch colType {
	case models.ColumnTypeNumber:
		for _, hint := range []string{"price", "cost", "amount", "revenue", "total", "salary", "fee"} {
			if strings.Contains(lowerName, hint) {
				return models.FormatCurrency
			}
		}
		for _, hint := range []string{"percent", "rate", "ratio"} {
			if strings.Contains(lowerName, hint) {
				return models.FormatPercent
			}
		}
		if whole {
			return models.FormatInteger
		}
		return models.FormatDecimal
	case models.ColumnTypeDate:
		return models.FormatDate
	default:
		return models.FormatText
	}
}

func displayName(column string) string {
	words := strings.FieldsFunc(column, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ParseNumeric interprets a string as a number, tolerating display formatting
// (currency symbols, thousands separators, percent signs).
func ParseNumeric(s string) (float64, bool) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.TrimPrefix(cleaned, "€")
	cleaned = strings.TrimPrefix(cleaned, "£")
	cleaned = strings.TrimSuffix(cleaned, "%")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

func isDateString(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// DeriveTableStructure groups columns for presentation: name columns lead,
// id columns trail, everything else sits alphabetically in between, capped
// at 10 display columns. Pure function of the metadata and rows.
func DeriveTableStructure(metadata map[string]models.ColumnMetadata, rows []models.Row) models.TableStructure {
	var names, ids, others, summary, groupable, sortable []string
	for col, meta := range metadata {
		sortable = append(sortable, col)
		switch {
		case meta.IsName:
			names = append(names, col)
		case meta.IsID:
			ids = append(ids, col)
		default:
			others = append(others, col)
		}
		if meta.Type == models.ColumnTypeNumber {
			summary = append(summary, col)
		}
		if (meta.Type == models.ColumnTypeString || meta.Type == models.ColumnTypeBoolean) && isLowCardinality(rows, col) {
			groupable = append(groupable, col)
		}
	}

	sort.Strings(names)
	sort.Strings(ids)
	sort.Strings(others)
	sort.Strings(summary)
	sort.Strings(groupable)
	sort.Strings(sortable)

	display := append(append(names, others...), ids...)
	if len(display) > displayColumnCap {
		display = display[:displayColumnCap]
	}

	return models.TableStructure{
		DisplayColumns:   display,
		SummaryColumns:   summary,
		GroupableColumns: groupable,
		SortableColumns:  sortable,
	}
}

func isLowCardinality(rows []models.Row, column string) bool {
	if len(rows) == 0 {
		return false
	}
	distinct := make(map[string]struct{})
	for _, row := range rows {
		v := row[column]
		if v == nil {
			continue
		}
		distinct[fmt.Sprint(v)] = struct{}{}
	}
	if len(distinct) == 0 || len(distinct) > groupableMaxCard {
		return false
	}
	return float64(len(distinct))/float64(len(rows)) <= groupableMaxRatio
}

// BatchResult is the outcome of one statement in a batch run.
type BatchResult struct {
	SQL  string
	Rows []models.Row
	Err  error
}

// ExecuteBatch runs independent statements concurrently. One statement's
// failure is recorded in its slot and never aborts the others.
func (s *EnrichmentService) ExecuteBatch(ctx context.Context, queries []string) []BatchResult {
	results := make([]BatchResult, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, q := range queries {
		g.Go(func() error {
			rows, err := s.runner.Query(ctx, q)
			results[i] = BatchResult{SQL: q, Rows: rows, Err: err}
			if err != nil {
				s.logger.Warn("Batch statement failed",
					zap.String("sql", logging.SanitizeQuery(q)),
					zap.String("error", logging.SanitizeError(err)))
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // closures never return errors

	return results
}
