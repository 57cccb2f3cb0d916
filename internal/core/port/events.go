package port

import (
	"context"

	"github.com/Vaanter/alphapack-ledger/internal/core/domain"
)

// EventPublisher publishes ledger domain events to the message bus.
type EventPublisher interface {
	PublishDecisionRecorded(ctx context.Context, event domain.DecisionRecordedEvent) error
}
