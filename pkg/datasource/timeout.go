package datasource

import (
	"context"
	"time"

	"github.com/muhammedshafeeque/AI-Report-Assistant/pkg/models"
)

// timeoutRunner bounds every query with a deadline so a stuck statement
// cannot stall the pipeline past the fallback ladder.
type timeoutRunner struct {
	inner   QueryRunner
	timeout time.Duration
}

// WithTimeout wraps a QueryRunner so each call gets its own deadline.
// A non-positive timeout returns the runner unchanged.
func WithTimeout(inner QueryRunner, timeout time.Duration) QueryRunner {
	if timeout <= 0 {
		return inner
	}
	return &timeoutRunner{inner: inner, timeout: timeout}
}

func (t *timeoutRunner) Query(ctx context.Context, sqlQuery string, args ...any) ([]models.Row, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Query(ctx, sqlQuery, args...)
}

var _ QueryRunner = (*timeoutRunner)(nil)
