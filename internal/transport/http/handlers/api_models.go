package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Vaanter/alphapack-ledger/internal/core/domain"
	"github.com/Vaanter/alphapack-ledger/internal/core/port"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// SubmissionRequest defines the payload for the submission endpoint. Token is
// the raw content token, base64 encoded.
type SubmissionRequest struct {
	Token string `json:"token" binding:"required"`
	Scope string `json:"scope" binding:"required"`
}

// LedgerEntryPayload describes a live ledger entry in API responses.
type LedgerEntryPayload struct {
	Fingerprint string    `json:"fingerprint"`
	Scope       string    `json:"scope"`
	FirstSeen   time.Time `json:"first_seen"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// DecisionResponse describes the verdict for one submission.
type DecisionResponse struct {
	Outcome     string              `json:"outcome"`
	Fingerprint string              `json:"fingerprint"`
	Scope       string              `json:"scope"`
	DecidedAt   time.Time           `json:"decided_at"`
	Remaining   *int                `json:"remaining,omitempty"`
	ResetAt     *time.Time          `json:"reset_at,omitempty"`
	DuplicateOf *LedgerEntryPayload `json:"duplicate_of,omitempty"`
}

// ArchivedDecisionPayload describes one archived decision.
type ArchivedDecisionPayload struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Scope       string    `json:"scope"`
	Outcome     string    `json:"outcome"`
	Remaining   *int      `json:"remaining,omitempty"`
	DecidedAt   time.Time `json:"decided_at"`
}

// ScopeStatsResponse aggregates archived decisions for one scope.
type ScopeStatsResponse struct {
	Scope              string     `json:"scope"`
	Admitted           int64      `json:"admitted"`
	DuplicateRejected  int64      `json:"duplicate_rejected"`
	QuotaRejected      int64      `json:"quota_rejected"`
	FirstDecision      *time.Time `json:"first_decision,omitempty"`
	MostRecentDecision *time.Time `json:"most_recent_decision,omitempty"`
}

// ScopeDecisionsResponse wraps recent archived decisions for one scope.
type ScopeDecisionsResponse struct {
	Scope     string                    `json:"scope"`
	Decisions []ArchivedDecisionPayload `json:"decisions"`
}

// TogglesPayload reports the current state of the runtime switches.
type TogglesPayload struct {
	Ledger  bool `json:"ledger"`
	Archive bool `json:"archive"`
	Events  bool `json:"events"`
}

// ToggleUpdateRequest flips a subset of the runtime switches. Omitted fields
// are left untouched.
type ToggleUpdateRequest struct {
	Ledger  *bool `json:"ledger,omitempty"`
	Archive *bool `json:"archive,omitempty"`
	Events  *bool `json:"events,omitempty"`
}

// AdminStatusResponse describes the operator status view.
type AdminStatusResponse struct {
	Status     string         `json:"status"`
	Uptime     string         `json:"uptime"`
	Received   int64          `json:"received"`
	Processing int64          `json:"processing"`
	Toggles    TogglesPayload `json:"toggles"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func newLedgerEntryPayload(entry domain.LedgerEntry) LedgerEntryPayload {
	return LedgerEntryPayload{
		Fingerprint: entry.Fingerprint.String(),
		Scope:       entry.Scope.String(),
		FirstSeen:   entry.FirstSeen,
		ExpiresAt:   entry.ExpiresAt,
	}
}

func newDecisionResponse(decision domain.Decision) DecisionResponse {
	resp := DecisionResponse{
		Outcome:     string(decision.Outcome),
		Fingerprint: decision.Fingerprint.String(),
		Scope:       decision.Scope.String(),
		DecidedAt:   decision.DecidedAt,
	}

	if decision.Admitted() {
		remaining := decision.Remaining
		resp.Remaining = &remaining
	}

	if !decision.ResetAt.IsZero() {
		resetAt := decision.ResetAt
		resp.ResetAt = &resetAt
	}

	if decision.DuplicateOf != nil {
		payload := newLedgerEntryPayload(*decision.DuplicateOf)
		resp.DuplicateOf = &payload
	}

	return resp
}

func newArchivedDecisionPayload(decision port.ArchivedDecision) ArchivedDecisionPayload {
	return ArchivedDecisionPayload{
		ID:          decision.ID,
		Fingerprint: decision.Fingerprint.String(),
		Scope:       decision.Scope.String(),
		Outcome:     string(decision.Outcome),
		Remaining:   decision.Remaining,
		DecidedAt:   decision.DecidedAt,
	}
}
