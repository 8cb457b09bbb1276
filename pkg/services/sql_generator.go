package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/llm"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
	sqlutil "github.com/muhammedshafeeque/AI-Report-Assistant/pkg/sql"
)

// similarityThreshold is the minimum prompt overlap for knowledge-base reuse.
const similarityThreshold = 0.3

// defaultRowLimit caps generated queries unless the prompt asks for all data.
const defaultRowLimit = 1000

// allDataPhrases signal that the user wants the full result set, no LIMIT.
var allDataPhrases = []string{
	"show all data",
	"all data",
	"no limit",
	"without limit",
	"every record",
	"all records",
	"all rows",
	"entire table",
	"complete data",
	"full data",
}

// SQLGenerator synthesizes a SELECT statement for a prompt. It never fails on
// malformed model output: some syntactically plausible SELECT always comes
// back, deferring real correctness checking to execution.
type SQLGenerator struct {
	completer llm.Completer
	knowledge KnowledgeStore
	logger    *zap.Logger
}

// NewSQLGenerator creates a generator.
func NewSQLGenerator(completer llm.Completer, knowledge KnowledgeStore, logger *zap.Logger) *SQLGenerator {
	return &SQLGenerator{
		completer: completer,
		knowledge: knowledge,
		logger:    logger.Named("sqlgen"),
	}
}

// GenerationResult is the synthesized statement plus provenance for logging
// and the final payload.
type GenerationResult struct {
	SQL           string
	FromKnowledge bool
	Repaired      bool
}

// Generate synthesizes SQL for the prompt against the minimal schema.
// joinPaths carries known FK routes between the resolved tables, surfaced to
// the model as join hints. Rate-limit exhaustion is the only error that
// propagates.
func (g *SQLGenerator) Generate(ctx context.Context, prompt string, minimal models.SchemaSnapshot, analysis models.PromptAnalysis, joinPaths []string, history []models.ChatMessage) (GenerationResult, error) {
	wantsAllData := WantsAllData(prompt)

	// Reuse a past query when a similar prompt succeeded before and all its
	// tables still exist.
	if entry := g.knowledge.FindSimilar(prompt, similarityThreshold); entry != nil && tablesExist(entry.Tables, minimal) {
		reused := entry.Query
		if wantsAllData {
			reused = sqlutil.StripLimit(reused)
		} else {
			reused = sqlutil.EnsureLimit(reused, defaultRowLimit)
		}
		g.logger.Info("Reusing knowledge base query",
			zap.Strings("tables", entry.Tables),
			zap.Bool("all_data", wantsAllData))
		return GenerationResult{SQL: reused, FromKnowledge: true}, nil
	}

	response, err := g.completer.Complete(ctx, buildGenerationPrompt(prompt, minimal, analysis, joinPaths, wantsAllData), history)
	if err != nil {
		if llm.IsRateLimited(err) {
			return GenerationResult{}, err
		}
		g.logger.Warn("SQL generation call failed, using default query", zap.Error(err))
		return GenerationResult{SQL: defaultQuery(minimal, wantsAllData)}, nil
	}

	statement, ok := sqlutil.ExtractStatement(response)
	if !ok {
		g.logger.Warn("No SELECT/WITH found in model output, using default query",
			zap.Int("response_len", len(response)))
		return GenerationResult{SQL: defaultQuery(minimal, wantsAllData)}, nil
	}

	if wantsAllData {
		statement = sqlutil.StripLimit(statement)
	}

	// Validation pass: statically scan and request one correction when the
	// statement has structural issues. The correction is accepted verbatim.
	issues := sqlutil.Validate(statement, minimal)
	if len(issues) == 0 {
		return GenerationResult{SQL: statement}, nil
	}

	repaired, err := g.repair(ctx, statement, issues)
	if err != nil {
		if llm.IsRateLimited(err) {
			return GenerationResult{}, err
		}
		g.logger.Warn("SQL repair call failed, keeping original statement", zap.Error(err))
		return GenerationResult{SQL: statement}, nil
	}

	return GenerationResult{SQL: repaired, Repaired: true}, nil
}

// repair asks the model to fix exactly the issues found. When the corrected
// output yields no statement, the original stands.
func (g *SQLGenerator) repair(ctx context.Context, statement string, issues []sqlutil.Issue) (string, error) {
	aliases := sqlutil.ValidAliases(statement)

	prompt := fmt.Sprintf(`This SQL query has structural issues:

%s

Issues found:
%s
Valid table aliases in this query: %s

Return only the corrected SQL query, nothing else.`,
		statement, sqlutil.DescribeIssues(issues), strings.Join(aliases, ", "))

	response, err := g.completer.Complete(ctx, prompt, nil)
	if err != nil {
		return "", err
	}

	corrected, ok := sqlutil.ExtractStatement(response)
	if !ok {
		g.logger.Warn("Repair output had no SQL, keeping original statement")
		return statement, nil
	}
	return corrected, nil
}

// Record stores a successful query in the knowledge base. Only queries that
// returned at least one row are worth remembering.
func (g *SQLGenerator) Record(prompt, sqlQuery string, rowCount int) {
	if rowCount < 1 {
		return
	}
	g.knowledge.Append(models.KnowledgeEntry{
		Query:           sqlQuery,
		UserPrompt:      prompt,
		Tables:          sqlutil.ExtractTableNames(sqlQuery),
		Joins:           extractClauses(sqlQuery, "JOIN"),
		WhereConditions: extractClauses(sqlQuery, "WHERE"),
		ResultCount:     rowCount,
	})
}

// WantsAllData detects the fixed phrase set signalling a no-LIMIT request.
func WantsAllData(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, phrase := range allDataPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func tablesExist(tables []string, snapshot models.SchemaSnapshot) bool {
	if len(tables) == 0 {
		return false
	}
	for _, t := range tables {
		if !snapshot.HasTable(t) {
			return false
		}
	}
	return true
}

// defaultQuery is the safe substitute when no statement can be recovered:
// a plain scan over the first minimal-schema table.
func defaultQuery(minimal models.SchemaSnapshot, wantsAllData bool) string {
	names := minimal.TableNames()
	if len(names) == 0 {
		return "SELECT 1"
	}
	sort.Strings(names)
	q := "SELECT * FROM " + names[0]
	if !wantsAllData {
		q += fmt.Sprintf(" LIMIT %d", defaultRowLimit)
	}
	return q
}

// extractClauses pulls out JOIN or WHERE fragments for knowledge entries.
// This is a coarse textual cut, good enough for similarity bookkeeping.
func extractClauses(sqlQuery, keyword string) []string {
	upper := strings.ToUpper(sqlQuery)
	var clauses []string
	for idx := 0; ; {
		pos := strings.Index(upper[idx:], keyword)
		if pos < 0 {
			break
		}
		start := idx + pos
		end := len(sqlQuery)
		for _, stop := range []string{" WHERE ", " GROUP BY ", " ORDER BY ", " LIMIT ", " JOIN ", " LEFT ", " RIGHT ", " INNER ", " UNION "} {
			if p := strings.Index(upper[start+len(keyword):], stop); p >= 0 && start+len(keyword)+p < end {
				end = start + len(keyword) + p
			}
		}
		clauses = append(clauses, strings.TrimSpace(sqlQuery[start:end]))
		idx = start + len(keyword)
	}
	return clauses
}

func buildGenerationPrompt(prompt string, minimal models.SchemaSnapshot, analysis models.PromptAnalysis, joinPaths []string, wantsAllData bool) string {
	var b strings.Builder

	b.WriteString("Generate a PostgreSQL SELECT query for this request.\n\n")
	b.WriteString("Available tables:\n")

	names := minimal.TableNames()
	sort.Strings(names)
	for _, name := range names {
		table := minimal[name]
		cols := make([]string, len(table.Columns))
		for i, c := range table.Columns {
			cols[i] = c.Name + " " + c.DataType
		}
		fmt.Fprintf(&b, "- %s (%s)\n", name, strings.Join(cols, ", "))
	}

	if len(joinPaths) > 0 {
		b.WriteString("\nKnown join paths between these tables:\n")
		for _, p := range joinPaths {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}

	fmt.Fprintf(&b, "\nRequest: %s\n", prompt)
	fmt.Fprintf(&b, "Core question: %s\n", analysis.CoreQuestion)
	if len(analysis.DataRequirements.Filters) > 0 {
		fmt.Fprintf(&b, "Filters implied: %s\n", strings.Join(analysis.DataRequirements.Filters, "; "))
	}

	b.WriteString(`
Rules:
- Alias every table and qualify every column with its table alias.
- If you use UNION, every branch must select the same number of columns.
- Return only the SQL query, no explanation.
`)
	if wantsAllData {
		b.WriteString("- Do not add a LIMIT clause; the user wants all data.\n")
	} else {
		fmt.Fprintf(&b, "- Add LIMIT %d unless aggregating to few rows.\n", defaultRowLimit)
	}

	return b.String()
}
