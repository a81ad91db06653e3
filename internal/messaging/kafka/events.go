package kafka

import (
	"encoding/json"
	"time"
)

// EventType определяет тип события витрины.
type EventType string

const (
	// Order события
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	EventTypeOrderCancelled     EventType = "order.cancelled"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "storefront.order.events"
	TopicDeadLetterQueue = "storefront.dlq" // Dead Letter Queue для failed messages
)

// OrderEventEnvelope — форма события заказа на проводе. Payload несёт
// доменные детали события, конверт — адресацию и тип.
type OrderEventEnvelope struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	EventType   EventType       `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	PublishedAt time.Time       `json:"published_at"`
}
