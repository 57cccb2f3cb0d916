package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrScopeRequired indicates the submission carried no accounting scope.
var ErrScopeRequired = errors.New("scope is required")

// Scope identifies the accounting boundary quota is tracked against, e.g. a
// user within a guild. The granularity is decided by the caller; the ledger
// only requires the value to be stable for the submitting entity.
type Scope string

// NormalizeScope trims surrounding whitespace and validates the scope.
func NormalizeScope(raw string) (Scope, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrScopeRequired
	}
	return Scope(trimmed), nil
}

func (s Scope) String() string {
	return string(s)
}

// LedgerEntry is the durable record of an admitted fingerprint. It is created
// on first successful admit and immutable afterwards; the store deletes it
// when the retention TTL elapses.
type LedgerEntry struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	Scope       Scope       `json:"scope"`
	FirstSeen   time.Time   `json:"first_seen"`
	ExpiresAt   time.Time   `json:"expires_at,omitempty"`
}

// Outcome enumerates the terminal decisions of the deduplication engine.
type Outcome string

const (
	// OutcomeAdmitted permits the submission to proceed.
	OutcomeAdmitted Outcome = "admitted"
	// OutcomeDuplicateRejected rejects a fingerprint already on the ledger.
	OutcomeDuplicateRejected Outcome = "duplicate_rejected"
	// OutcomeQuotaRejected rejects a scope that exhausted its window quota.
	OutcomeQuotaRejected Outcome = "quota_rejected"
)

// Valid reports whether the outcome is one of the known terminal states.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeAdmitted, OutcomeDuplicateRejected, OutcomeQuotaRejected:
		return true
	}
	return false
}

// Decision is the transient verdict for a single submission. It is computed
// from store state at decision time and never persisted as-is.
type Decision struct {
	Outcome     Outcome
	Fingerprint Fingerprint
	Scope       Scope
	DecidedAt   time.Time

	// Remaining quota within the current window, set when admitted.
	Remaining int
	// ResetAt marks the end of the current quota window, set when the
	// decision involved quota accounting.
	ResetAt time.Time
	// DuplicateOf carries the pre-existing entry on duplicate rejection.
	DuplicateOf *LedgerEntry
}

// Admitted reports whether the submission was allowed to proceed.
func (d Decision) Admitted() bool {
	return d.Outcome == OutcomeAdmitted
}
