package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Vaanter/alphapack-ledger/internal/core/domain"
	"github.com/Vaanter/alphapack-ledger/internal/core/port"
)

// QuotaVerdict is the result of charging one submission against a scope.
type QuotaVerdict struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// QuotaTracker enforces a fixed-window submission quota per scope on top of
// the shared counter store. Windows are aligned to absolute time, so every
// service instance charges the same window for the same instant; bursts
// across a window edge are accepted fixed-window behaviour, not a defect.
type QuotaTracker struct {
	counters port.CounterStore
	window   time.Duration
	limit    int64
	logger   *zap.Logger
	now      func() time.Time
}

// NewQuotaTracker constructs a tracker with the configured window and limit.
func NewQuotaTracker(counters port.CounterStore, window time.Duration, limit int) *QuotaTracker {
	if window <= 0 {
		window = time.Minute
	}
	if limit <= 0 {
		limit = 1
	}
	return &QuotaTracker{
		counters: counters,
		window:   window,
		limit:    int64(limit),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
}

// WithLogger attaches a structured logger to the tracker.
func (q *QuotaTracker) WithLogger(logger *zap.Logger) *QuotaTracker {
	if logger != nil {
		q.logger = logger
	}
	return q
}

// WithNow overrides the clock, primarily for deterministic testing.
func (q *QuotaTracker) WithNow(now func() time.Time) *QuotaTracker {
	if now != nil {
		q.now = now
	}
	return q
}

// Window returns the configured window size.
func (q *QuotaTracker) Window() time.Duration {
	return q.window
}

// Limit returns the configured per-window limit.
func (q *QuotaTracker) Limit() int {
	return int(q.limit)
}

// Admit charges one submission against the scope's current window. The
// counter TTL equals the window size, so stale windows delete themselves.
// The comparison is inclusive: the limit-th submission in a window is still
// within quota.
func (q *QuotaTracker) Admit(ctx context.Context, scope domain.Scope) (QuotaVerdict, error) {
	now := q.now()
	windowID := now.UnixMilli() / q.window.Milliseconds()
	key := fmt.Sprintf("%s:%d", scope, windowID)

	count, err := q.counters.IncrementWithExpiry(ctx, key, q.window)
	if err != nil {
		return QuotaVerdict{}, fmt.Errorf("increment quota window: %w", err)
	}

	verdict := QuotaVerdict{
		ResetAt: time.UnixMilli((windowID + 1) * q.window.Milliseconds()).UTC(),
	}

	if count > q.limit {
		q.logger.Debug("scope over quota",
			zap.String("scope", scope.String()),
			zap.Int64("count", count),
			zap.Int64("limit", q.limit),
		)
		return verdict, nil
	}

	verdict.Allowed = true
	verdict.Remaining = int(q.limit - count)
	return verdict, nil
}
