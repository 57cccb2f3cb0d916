package port

import (
	"context"
	"time"
)

// RateLimitStore defines the persistence operations the transport tier uses
// to enforce sliding-window limits on callers. This is abuse protection for
// the HTTP surface, distinct from the ledger's per-scope submission quota.
type RateLimitStore interface {
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
