package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Vaanter/alphapack-ledger/internal/core/domain"
	"github.com/Vaanter/alphapack-ledger/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without brokers.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

// PublishDecisionRecorded logs ledger.decision.recorded events.
func (p *StubPublisher) PublishDecisionRecorded(_ context.Context, event domain.DecisionRecordedEvent) error {
	at := event.DecidedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", decisionRecordedEventType),
		zap.String("event_id", event.EventID),
		zap.String("fingerprint", event.Fingerprint.Short()),
		zap.String("scope", event.Scope.String()),
		zap.String("outcome", string(event.Outcome)),
		zap.Int("remaining", event.Remaining),
		zap.Time("timestamp", at.UTC()),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
