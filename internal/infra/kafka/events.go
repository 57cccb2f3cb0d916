package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Vaanter/alphapack-ledger/internal/core/domain"
	"github.com/Vaanter/alphapack-ledger/internal/core/port"
	"github.com/Vaanter/alphapack-ledger/internal/infra/config"
)

const schemaVersion = "1.0"

const decisionRecordedEventType = "decision.recorded"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

var _ port.EventPublisher = (*EventPublisher)(nil)

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Scope     string           `json:"scope,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, scope string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		Scope:     scope,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishDecisionRecorded publishes ledger.decision.recorded events.
func (p *EventPublisher) PublishDecisionRecorded(ctx context.Context, event domain.DecisionRecordedEvent) error {
	payload := struct {
		Fingerprint      string         `json:"fingerprint"`
		Scope            string         `json:"scope"`
		Outcome          string         `json:"outcome"`
		Remaining        int            `json:"remaining"`
		DecidedAt        time.Time      `json:"decided_at"`
		DuplicateOfScope string         `json:"duplicate_of_scope,omitempty"`
		Metadata         map[string]any `json:"metadata,omitempty"`
	}{
		Fingerprint:      event.Fingerprint.String(),
		Scope:            event.Scope.String(),
		Outcome:          string(event.Outcome),
		Remaining:        event.Remaining,
		DecidedAt:        event.DecidedAt.UTC(),
		DuplicateOfScope: event.DuplicateOfScope.String(),
		Metadata:         event.Metadata,
	}

	return p.publish(ctx, event.EventID, decisionRecordedEventType, event.Scope.String(), event.DecidedAt, payload)
}
