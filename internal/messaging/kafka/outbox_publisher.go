package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
	// originalTopic заполняет заголовок x-original-topic для DLQ.
	originalTopic string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

// NewDLQPublisher создаёт паблишер в DLQ; originalTopic попадает в заголовок сообщения.
func NewDLQPublisher(producer *Producer, dlqTopic, originalTopic string) *OutboxTopicPublisher {
	if dlqTopic == "" {
		dlqTopic = TopicDeadLetterQueue
	}
	return &OutboxTopicPublisher{
		producer:      producer,
		topic:         dlqTopic,
		originalTopic: originalTopic,
	}
}

// Topic возвращает topic, в который публикуются сообщения.
func (p *OutboxTopicPublisher) Topic() string {
	return p.topic
}

// Publish отправляет сообщение; ключом партиционирования служит AggregateID (или ID, если его нет).
func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderEventType), Value: []byte(event.EventType)},
		{Key: []byte(HeaderAggregateType), Value: []byte(event.AggregateType)},
	}
	if p.originalTopic != "" {
		headers = append(headers,
			sarama.RecordHeader{Key: []byte(HeaderOriginalTopic), Value: []byte(p.originalTopic)},
			sarama.RecordHeader{Key: []byte(HeaderFailedAt), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		)
	}

	return p.producer.PublishEvent(p.topic, key, NewEnvelope(event), headers...)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
