package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Vaanter/alphapack-ledger/internal/core/domain"
	"github.com/Vaanter/alphapack-ledger/internal/core/port"
	"github.com/Vaanter/alphapack-ledger/internal/infra/logger"
)

// LedgerMetrics captures telemetry hooks for submission processing.
type LedgerMetrics interface {
	IncSubmission()
	IncDecision(outcome domain.Outcome)
	ObserveDecisionLatency(d time.Duration)
}

// LedgerToggles exposes the runtime switches the engine consults for its
// optional side channels. The admit/reject decision itself is never gated
// here; that belongs to the transport tier.
type LedgerToggles interface {
	ArchiveEnabled() bool
	EventsEnabled() bool
}

// LedgerService is the deduplication engine. It orchestrates the fingerprint
// codec, the ledger store and the quota tracker into a single admit/reject
// decision per submission. All authoritative state lives in the shared
// store; the service keeps no cache, so every replica computes decisions
// from the same state.
type LedgerService struct {
	ledger  port.LedgerStore
	quota   *QuotaTracker
	archive port.DecisionArchive
	events  port.EventPublisher
	toggles LedgerToggles

	retention     time.Duration
	maxTokenBytes int

	logger  *zap.Logger
	metrics LedgerMetrics
	now     func() time.Time

	// sideEffectTimeout bounds archive writes and event publishes, which
	// run detached from the request.
	sideEffectTimeout time.Duration
}

// LedgerOptions configures the service.
type LedgerOptions struct {
	RetentionPeriod time.Duration
	MaxTokenBytes   int
}

// NewLedgerService constructs the deduplication engine.
func NewLedgerService(ledger port.LedgerStore, quota *QuotaTracker, opts LedgerOptions) *LedgerService {
	svc := &LedgerService{
		ledger:            ledger,
		quota:             quota,
		retention:         opts.RetentionPeriod,
		maxTokenBytes:     opts.MaxTokenBytes,
		logger:            zap.NewNop(),
		now:               time.Now,
		sideEffectTimeout: 5 * time.Second,
	}
	if svc.retention <= 0 {
		svc.retention = 24 * time.Hour
	}
	if svc.maxTokenBytes <= 0 {
		svc.maxTokenBytes = domain.DefaultMaxTokenBytes
	}
	return svc
}

// WithLogger attaches a structured logger to the service.
func (s *LedgerService) WithLogger(logger *zap.Logger) *LedgerService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithNow overrides the clock, primarily for deterministic testing.
func (s *LedgerService) WithNow(now func() time.Time) *LedgerService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithMetrics wires telemetry observers for submission processing.
func (s *LedgerService) WithMetrics(metrics LedgerMetrics) *LedgerService {
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// WithArchive enables the append-only decision archive.
func (s *LedgerService) WithArchive(archive port.DecisionArchive) *LedgerService {
	s.archive = archive
	return s
}

// WithEvents enables decision event publishing.
func (s *LedgerService) WithEvents(events port.EventPublisher) *LedgerService {
	s.events = events
	return s
}

// WithToggles wires runtime switches for the archive and event side channels.
func (s *LedgerService) WithToggles(toggles LedgerToggles) *LedgerService {
	s.toggles = toggles
	return s
}

// Submit decides whether one submission is admitted. The order is fixed:
// canonicalize, then the atomic duplicate-check-and-insert, then quota.
// Quota comes last because it is scarce and must never be spent on content
// another caller already admitted.
func (s *LedgerService) Submit(ctx context.Context, rawToken []byte, rawScope string) (domain.Decision, error) {
	if s.metrics != nil {
		s.metrics.IncSubmission()
	}
	started := s.now()

	scope, err := domain.NormalizeScope(rawScope)
	if err != nil {
		return domain.Decision{}, err
	}

	fp, err := domain.Canonicalize(rawToken, s.maxTokenBytes)
	if err != nil {
		s.logger.Debug("submission rejected before store access",
			zap.String("token_preview", logger.MaskToken(rawToken)),
			zap.Error(err),
		)
		return domain.Decision{}, err
	}

	now := started.UTC()
	entry := domain.LedgerEntry{
		Fingerprint: fp,
		Scope:       scope,
		FirstSeen:   now,
	}

	inserted, existing, err := s.ledger.TryInsert(ctx, entry, s.retention)
	if err != nil {
		// Store faults bubble unmodified; a fault is never "not a duplicate".
		return domain.Decision{}, fmt.Errorf("ledger insert: %w", err)
	}

	if !inserted {
		decision := domain.Decision{
			Outcome:     domain.OutcomeDuplicateRejected,
			Fingerprint: fp,
			Scope:       scope,
			DecidedAt:   now,
			DuplicateOf: existing,
		}
		s.finishDecision(decision, started)
		return decision, nil
	}

	verdict, err := s.quota.Admit(ctx, scope)
	if err != nil {
		// The entry stays on the ledger with its TTL: a caller that
		// vanishes here still leaves valid state behind, and no retry is
		// attempted to avoid double-charging the quota window.
		return domain.Decision{}, fmt.Errorf("quota admit: %w", err)
	}

	if !verdict.Allowed {
		s.rollbackInsert(ctx, fp)
		decision := domain.Decision{
			Outcome:     domain.OutcomeQuotaRejected,
			Fingerprint: fp,
			Scope:       scope,
			DecidedAt:   now,
			ResetAt:     verdict.ResetAt,
		}
		s.finishDecision(decision, started)
		return decision, nil
	}

	decision := domain.Decision{
		Outcome:     domain.OutcomeAdmitted,
		Fingerprint: fp,
		Scope:       scope,
		DecidedAt:   now,
		Remaining:   verdict.Remaining,
		ResetAt:     verdict.ResetAt,
	}
	s.finishDecision(decision, started)
	return decision, nil
}

// Query returns the live ledger entry for a fingerprint, if any.
func (s *LedgerService) Query(ctx context.Context, fp domain.Fingerprint) (*domain.LedgerEntry, error) {
	entry, err := s.ledger.Get(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("ledger get: %w", err)
	}
	return entry, nil
}

// rollbackInsert removes the ledger entry of a quota-rejected submission so
// the content can be resubmitted once the scope is back within policy. The
// rollback is best effort: when the store is unavailable the entry is left
// in place and its TTL bounds the cost.
func (s *LedgerService) rollbackInsert(ctx context.Context, fp domain.Fingerprint) {
	if err := s.ledger.Delete(ctx, fp); err != nil {
		s.logger.Warn("quota rollback failed, entry left to expire by ttl",
			zap.String("fingerprint", fp.Short()),
			zap.Error(err),
		)
	}
}

func (s *LedgerService) finishDecision(decision domain.Decision, started time.Time) {
	if s.metrics != nil {
		s.metrics.IncDecision(decision.Outcome)
		s.metrics.ObserveDecisionLatency(s.now().Sub(started))
	}

	s.logger.Info("submission decided",
		zap.String("outcome", string(decision.Outcome)),
		zap.String("fingerprint", decision.Fingerprint.Short()),
		zap.String("scope", decision.Scope.String()),
		zap.Int("remaining", decision.Remaining),
	)

	s.recordDecision(decision)
	s.publishDecision(decision)
}

func (s *LedgerService) recordDecision(decision domain.Decision) {
	if s.archive == nil {
		return
	}
	if s.toggles != nil && !s.toggles.ArchiveEnabled() {
		return
	}

	archived := port.ArchivedDecision{
		ID:          uuid.NewString(),
		Fingerprint: decision.Fingerprint,
		Scope:       decision.Scope,
		Outcome:     decision.Outcome,
		DecidedAt:   decision.DecidedAt,
	}
	if decision.Admitted() {
		remaining := decision.Remaining
		archived.Remaining = &remaining
	}

	// Archive writes are diagnostic history and must not delay or fail the
	// decision, so they run detached from the request lifecycle.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.sideEffectTimeout)
		defer cancel()

		if err := s.archive.InsertDecision(ctx, archived); err != nil {
			s.logger.Warn("archive decision failed",
				zap.String("fingerprint", decision.Fingerprint.Short()),
				zap.Error(err),
			)
		}
	}()
}

func (s *LedgerService) publishDecision(decision domain.Decision) {
	if s.events == nil {
		return
	}
	if s.toggles != nil && !s.toggles.EventsEnabled() {
		return
	}

	event := domain.DecisionRecordedEvent{
		EventID:     uuid.NewString(),
		Fingerprint: decision.Fingerprint,
		Scope:       decision.Scope,
		Outcome:     decision.Outcome,
		Remaining:   decision.Remaining,
		DecidedAt:   decision.DecidedAt,
	}
	if decision.DuplicateOf != nil {
		event.DuplicateOfScope = decision.DuplicateOf.Scope
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.sideEffectTimeout)
		defer cancel()

		if err := s.events.PublishDecisionRecorded(ctx, event); err != nil {
			s.logger.Warn("publish decision event failed",
				zap.String("event_id", event.EventID),
				zap.Error(err),
			)
		}
	}()
}
