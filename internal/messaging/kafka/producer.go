package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// clientID идентифицирует витрину в логах и квотах брокера.
const clientID = "oyushop-storefront"

// Producer публикует события заказов витрины в Kafka.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
}

// NewProducer подключает синхронный идемпотентный producer к брокерам.
func NewProducer(brokers []string) (*Producer, error) {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1 // требование идемпотентного продюсера

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &Producer{
		producer: producer,
		logger:   log.WithField("component", "kafka-producer"),
	}, nil
}

// PublishOrderEvent отправляет конверт события заказа в topic. Ключ сообщения —
// идентификатор заказа, поэтому события одного заказа попадают в одну партицию
// и сохраняют порядок.
func (p *Producer) PublishOrderEvent(topic string, envelope OrderEventEnvelope) error {
	if envelope.PublishedAt.IsZero() {
		envelope.PublishedAt = time.Now().UTC()
	}

	value, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	key := envelope.OrderID
	if key == "" {
		key = envelope.ID
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(envelope.EventType)},
		},
		Timestamp: envelope.PublishedAt,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic":      topic,
			"order_id":   envelope.OrderID,
			"event_type": envelope.EventType,
		}).Error("failed to send order event to kafka")
		return fmt.Errorf("send order event: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":      topic,
		"order_id":   envelope.OrderID,
		"event_type": envelope.EventType,
		"partition":  partition,
		"offset":     offset,
	}).Debug("order event sent to kafka")

	return nil
}

// Close закрывает соединение с брокерами.
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
