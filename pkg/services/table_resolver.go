package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/llm"
	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

// ErrNoTablesAvailable means the schema has no tables to resolve against.
var ErrNoTablesAvailable = errors.New("no tables available in schema")

// TableResolver selects the minimal table subset plausibly needed to answer
// a prompt. Callers must treat the result as a set: the concurrent strategy
// merge makes ordering unstable.
type TableResolver struct {
	completer llm.Completer
	logger    *zap.Logger
}

// NewTableResolver creates a resolver.
func NewTableResolver(completer llm.Completer, logger *zap.Logger) *TableResolver {
	return &TableResolver{
		completer: completer,
		logger:    logger.Named("resolver"),
	}
}

// Resolve picks relevant tables. Precedence: analysis-named tables that exist
// in the schema win outright (no LLM call); otherwise three strategies run
// concurrently and their results are unioned; an empty union falls back to
// the first schema table. An empty schema fails with ErrNoTablesAvailable.
func (r *TableResolver) Resolve(ctx context.Context, prompt string, snapshot models.SchemaSnapshot, analysis models.PromptAnalysis) ([]string, error) {
	if len(snapshot) == 0 {
		return nil, ErrNoTablesAvailable
	}

	// Fast path: the analysis already names existing tables.
	if named := existingTables(analysis.DataRequirements.RelevantTables, snapshot); len(named) > 0 {
		r.logger.Debug("Tables resolved from prompt analysis", zap.Strings("tables", named))
		return named, nil
	}

	union := make(map[string]struct{})
	var mu sync.Mutex
	merge := func(tables []string) {
		mu.Lock()
		defer mu.Unlock()
		for _, t := range tables {
			union[t] = struct{}{}
		}
	}

	var wg sync.WaitGroup
	strategies := []func(context.Context) []string{
		func(ctx context.Context) []string { return r.llmSelection(ctx, prompt, snapshot) },
		func(ctx context.Context) []string { return lexicalMatch(prompt, snapshot) },
		func(ctx context.Context) []string { return heuristicMatch(prompt, snapshot, analysis) },
	}
	for _, strategy := range strategies {
		wg.Add(1)
		go func(fn func(context.Context) []string) {
			defer wg.Done()
			merge(fn(ctx))
		}(strategy)
	}
	wg.Wait()

	if len(union) == 0 {
		first := firstTableName(snapshot)
		r.logger.Debug("No strategy matched, falling back to first table", zap.String("table", first))
		return []string{first}, nil
	}

	tables := make([]string, 0, len(union))
	for t := range union {
		tables = append(tables, t)
	}
	return tables, nil
}

// llmSelection asks the model to pick tables; any failure degrades to none.
func (r *TableResolver) llmSelection(ctx context.Context, prompt string, snapshot models.SchemaSnapshot) []string {
	names := snapshot.TableNames()
	sort.Strings(names)

	question := "Given these database tables: " + strings.Join(names, ", ") +
		"\nWhich tables are needed to answer: " + prompt +
		"\nRespond with a comma-separated list of table names only."

	response, err := r.completer.Complete(ctx, question, nil)
	if err != nil {
		r.logger.Debug("LLM table selection failed", zap.Error(err))
		return nil
	}

	var selected []string
	for _, part := range strings.Split(response, ",") {
		name := strings.ToLower(strings.TrimSpace(strings.Trim(part, ".`\"'")))
		if snapshot.HasTable(name) {
			selected = append(selected, name)
		}
	}
	return selected
}

// lexicalMatch finds table names that literally occur in the prompt text,
// in either singular or plural form.
func lexicalMatch(prompt string, snapshot models.SchemaSnapshot) []string {
	lower := strings.ToLower(prompt)
	var matched []string
	for name := range snapshot {
		if strings.Contains(lower, strings.ToLower(name)) ||
			strings.Contains(lower, strings.TrimSuffix(strings.ToLower(name), "s")) {
			matched = append(matched, name)
		}
	}
	return matched
}

// heuristicMatch scores tables by overlap between their column names and the
// entities/fields the analysis extracted, plus prompt words.
func heuristicMatch(prompt string, snapshot models.SchemaSnapshot, analysis models.PromptAnalysis) []string {
	hints := make(map[string]bool)
	for _, e := range analysis.EntitiesAndRelationships.Entities {
		hints[strings.ToLower(e)] = true
	}
	for _, f := range analysis.DataRequirements.RelevantFields {
		hints[strings.ToLower(f)] = true
	}
	for w := range significantWords(prompt) {
		hints[w] = true
	}
	if len(hints) == 0 {
		return nil
	}

	var matched []string
	for name, table := range snapshot {
		score := 0
		if hints[strings.ToLower(name)] || hints[strings.TrimSuffix(strings.ToLower(name), "s")] {
			score += 2
		}
		for _, col := range table.Columns {
			if hints[strings.ToLower(col.Name)] {
				score++
			}
		}
		if score >= 2 {
			matched = append(matched, name)
		}
	}
	return matched
}

func existingTables(candidates []string, snapshot models.SchemaSnapshot) []string {
	var existing []string
	for _, c := range candidates {
		name := strings.ToLower(strings.TrimSpace(c))
		if snapshot.HasTable(name) {
			existing = append(existing, name)
		}
	}
	return existing
}

func firstTableName(snapshot models.SchemaSnapshot) string {
	names := snapshot.TableNames()
	sort.Strings(names)
	return names[0]
}
