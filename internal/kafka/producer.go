package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
)

const (
	TopicOrderPlaced   = "checkout.order.placed"
	TopicOrderPaid     = "checkout.order.paid"
	TopicOrderCanceled = "checkout.order.canceled"
)

type orderEvent struct {
	OrderID    string    `json:"order_id"`
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Producer publishes order lifecycle events to Kafka.
type Producer struct {
	producer sarama.SyncProducer
	logger   *slog.Logger
}

// NewProducer connects a synchronous producer. All-broker acks and bounded
// retries keep publishing reliable without blocking forever.
func NewProducer(brokers []string, logger *slog.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &Producer{
		producer: producer,
		logger:   logger,
	}, nil
}

func (p *Producer) PublishOrderPlaced(ctx context.Context, orderID string) error {
	return p.publish(ctx, TopicOrderPlaced, orderID, "order_placed")
}

func (p *Producer) PublishOrderPaid(ctx context.Context, orderID string) error {
	return p.publish(ctx, TopicOrderPaid, orderID, "order_paid")
}

func (p *Producer) PublishOrderCanceled(ctx context.Context, orderID string) error {
	return p.publish(ctx, TopicOrderCanceled, orderID, "order_canceled")
}

func (p *Producer) publish(ctx context.Context, topic, orderID, event string) error {
	payload, err := json.Marshal(orderEvent{
		OrderID:    orderID,
		Event:      event,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(orderID),
		Value: sarama.ByteEncoder(payload),
	}

	// Trace context rides along in message headers so consumers can link spans.
	carrier := make(headerCarrier, 0)
	otel.GetTextMapPropagator().Inject(ctx, &carrier)
	msg.Headers = []sarama.RecordHeader(carrier)

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish %s event: %w", event, err)
	}

	p.logger.DebugContext(ctx, "event published",
		"topic", topic,
		"order_id", orderID,
		"partition", partition,
		"offset", offset,
	)

	return nil
}

// Close shuts down the underlying producer.
func (p *Producer) Close() error {
	return p.producer.Close()
}

// headerCarrier adapts Kafka record headers to the otel TextMapCarrier interface.
type headerCarrier []sarama.RecordHeader

func (c headerCarrier) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	*c = append(*c, sarama.RecordHeader{
		Key:   []byte(key),
		Value: []byte(value),
	})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
