package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/oyushop/storefront/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	return p.producer.PublishOrderEvent(p.topic, OrderEventEnvelope{
		ID:        event.ID,
		OrderID:   event.AggregateID,
		EventType: EventType(event.EventType),
		Payload:   json.RawMessage(event.Payload),
	})
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
