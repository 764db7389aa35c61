package app

import (
	"context"
	"time"

	"shopseq/domain/core"

	log "github.com/sirupsen/logrus"
)

// RetryPolicy bounds how often a record-creation request is re-run after a
// retryable allocation failure (lock timeout or duplicate identifier).
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy retries twice with a short linear backoff
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 50 * time.Millisecond}

// run calls op until it succeeds, fails with a non-retryable error, or the
// attempts are used up. The last error is returned unchanged.
func (p RetryPolicy) run(ctx context.Context, logger *log.Entry, op func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(attempt)
		if err == nil || !core.IsRetryable(err) || attempt == attempts {
			return err
		}

		logger.WithError(err).WithField("attempt", attempt).Warn("retrying record creation")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * p.Backoff):
		}
	}
	return err
}
