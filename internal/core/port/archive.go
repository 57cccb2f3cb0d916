package port

import (
	"context"
	"time"

	"github.com/Vaanter/alphapack-ledger/internal/core/domain"
)

// ArchivedDecision is the durable diagnostic record of a ledger decision.
type ArchivedDecision struct {
	ID          string
	Fingerprint domain.Fingerprint
	Scope       domain.Scope
	Outcome     domain.Outcome
	Remaining   *int
	DecidedAt   time.Time
}

// ScopeStats aggregates archived decisions per outcome for one scope.
type ScopeStats struct {
	Scope              domain.Scope
	Admitted           int64
	DuplicateRejected  int64
	QuotaRejected      int64
	FirstDecision      *time.Time
	MostRecentDecision *time.Time
}

// DecisionArchive is the append-only history of decisions, kept for
// diagnostics and per-scope statistics. It is never consulted on the admit
// path; the shared key-value store remains the only authoritative state.
type DecisionArchive interface {
	InsertDecision(ctx context.Context, decision ArchivedDecision) error
	ListRecentByScope(ctx context.Context, scope domain.Scope, limit int) ([]ArchivedDecision, error)
	ScopeStats(ctx context.Context, scope domain.Scope) (*ScopeStats, error)
}
