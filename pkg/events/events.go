// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/example/bistro/pkg/models"
)

type Type string

const (
	OrderCreated       Type = "order.created"
	OrderStatusChanged Type = "order.status_changed"
	OrderUpdated       Type = "order.updated"
	OrderDeleted       Type = "order.deleted"
)

// OrderEvent is emitted after a change to an order has been committed.
type OrderEvent struct {
	Type           Type               `json:"type"`
	OrderID        string             `json:"order_id"`
	Status         models.OrderStatus `json:"status,omitempty"`
	PreviousStatus models.OrderStatus `json:"previous_status,omitempty"`
	Order          *models.Order      `json:"order,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// KafkaPublisher sends one message per event, keyed by order id so that
// events for the same order land on the same partition in order.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second
	config.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to start Sarama producer: %w", err)
	}

	return NewPublisher(producer, topic, logger), nil
}

// NewPublisher wraps an existing producer.
func NewPublisher(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger.Named("events"),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", evt.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(evt.OrderID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(evt.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s event: %w", evt.Type, err)
	}
	p.logger.Debug("Event published",
		zap.String("type", string(evt.Type)),
		zap.String("order_id", evt.OrderID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
