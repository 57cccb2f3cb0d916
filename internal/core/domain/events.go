package domain

import "time"

// DecisionRecordedEvent is emitted after every terminal ledger decision.
type DecisionRecordedEvent struct {
	EventID     string
	Fingerprint Fingerprint
	Scope       Scope
	Outcome     Outcome
	Remaining   int
	DecidedAt   time.Time
	// DuplicateOfScope is populated for duplicate rejections so consumers
	// can attribute the original submission without a ledger lookup.
	DuplicateOfScope Scope
	Metadata         map[string]any
}
