package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "storefront.order.events"
	TopicDeadLetterQueue = "storefront.dlq" // Dead Letter Queue для сообщений, не ушедших после всех попыток
)

// Kafka headers
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOriginalTopic = "x-original-topic"
	HeaderFailedAt      = "x-failed-at"
)

// Envelope описывает формат сообщения outbox в Kafka.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope оборачивает outbox-сообщение. Пустой payload кодируется как null.
func NewEnvelope(msg domain.OutboxMessage) Envelope {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishedAt:   time.Now().UTC(),
	}
}

// ParseOrderCreated извлекает payload order.created из конверта.
func ParseOrderCreated(value []byte) (Envelope, domain.OrderCreatedPayload, error) {
	var envelope Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return Envelope{}, domain.OrderCreatedPayload{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if envelope.EventType != domain.EventTypeOrderCreated {
		return envelope, domain.OrderCreatedPayload{}, fmt.Errorf("unexpected event type %q", envelope.EventType)
	}

	var payload domain.OrderCreatedPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return envelope, domain.OrderCreatedPayload{}, fmt.Errorf("failed to unmarshal order.created payload: %w", err)
	}
	return envelope, payload, nil
}
