package engine

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/termfx/fql/internal/keyval"
)

// Temporary is implemented by driver errors that represent a transient
// condition (commit conflict, commit-unknown-result) the engine should
// retry rather than surface, per spec §7: "Driver errors that are
// transient ... are retried by the engine via a bounded exponential
// backoff; permanent errors surface to the caller."
type Temporary interface {
	Temporary() bool
}

// isTemporary uses errors.As rather than a direct type assertion so a
// Temporary marker set deep in a driver's error (and passed up through
// fmt.Errorf %w wrapping) is still visible here, not just when the
// driver's error is the outermost value.
func isTemporary(err error) bool {
	var t Temporary
	return errors.As(err, &t) && t.Temporary()
}

// withRetry runs fn, retrying up to cfg.MaxRetries times with exponential
// backoff (plus jitter) while fn's error reports Temporary() == true.
// Context cancellation always wins over a pending retry.
func withRetry(ctx context.Context, cfg Config, fn func() error) error {
	var err error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return keyval.Wrap(keyval.ErrCanceled, "query canceled", ctx.Err())
		}
		if !isTemporary(err) || attempt == cfg.MaxRetries {
			return err
		}
		delay := cfg.RetryBaseDelay * (1 << uint(attempt))
		delay += time.Duration(rand.Int63n(int64(cfg.RetryBaseDelay) + 1))
		select {
		case <-ctx.Done():
			return keyval.Wrap(keyval.ErrCanceled, "query canceled", ctx.Err())
		case <-time.After(delay):
		}
	}
	return err
}
