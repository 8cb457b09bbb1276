package services

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

// KnowledgeStore records previously successful queries and finds past entries
// whose prompts resemble a new one. Implementations must be safe for
// concurrent use; the pipeline appends from request goroutines.
type KnowledgeStore interface {
	// Append records a query that returned at least one row.
	Append(entry models.KnowledgeEntry)

	// FindSimilar returns the best past entry whose prompt similarity exceeds
	// the threshold, or nil when none qualifies.
	FindSimilar(prompt string, threshold float64) *models.KnowledgeEntry
}

// InMemoryKnowledgeStore keeps entries for the process lifetime only.
type InMemoryKnowledgeStore struct {
	mu      sync.RWMutex
	entries []models.KnowledgeEntry
	logger  *zap.Logger
}

// NewInMemoryKnowledgeStore creates an empty store.
func NewInMemoryKnowledgeStore(logger *zap.Logger) *InMemoryKnowledgeStore {
	return &InMemoryKnowledgeStore{logger: logger.Named("knowledge")}
}

// Append implements KnowledgeStore.
func (s *InMemoryKnowledgeStore) Append(entry models.KnowledgeEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	total := len(s.entries)
	s.mu.Unlock()

	s.logger.Debug("Knowledge entry stored",
		zap.Strings("tables", entry.Tables),
		zap.Int("result_count", entry.ResultCount),
		zap.Int("total_entries", total))
}

// FindSimilar implements KnowledgeStore. Similarity is word overlap over
// words longer than two characters: |intersection| / |union|.
func (s *InMemoryKnowledgeStore) FindSimilar(prompt string, threshold float64) *models.KnowledgeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *models.KnowledgeEntry
	bestScore := threshold

	for i := range s.entries {
		score := PromptSimilarity(prompt, s.entries[i].UserPrompt)
		if score > bestScore {
			bestScore = score
			best = &s.entries[i]
		}
	}

	if best == nil {
		return nil
	}

	// Copy so callers cannot mutate the stored entry.
	entry := *best
	return &entry
}

// Len returns the number of stored entries.
func (s *InMemoryKnowledgeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// PromptSimilarity computes Jaccard similarity over the significant words
// (length > 2) of two prompts.
func PromptSimilarity(a, b string) float64 {
	wordsA := significantWords(a)
	wordsB := significantWords(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}

	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func significantWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?'\"()")
		if len(w) > 2 {
			words[w] = true
		}
	}
	return words
}

// Ensure InMemoryKnowledgeStore implements KnowledgeStore at compile time.
var _ KnowledgeStore = (*InMemoryKnowledgeStore)(nil)
