package adapters

import (
	"context"
	"time"

	"github.com/nfcstore/checkout/internal/checkout/ports"
	"github.com/nfcstore/checkout/internal/kafka"
	"github.com/nfcstore/checkout/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ObservableEventBus wraps an EventBus with tracing and publish metrics.
type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *kafka.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *kafka.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishOrderPlaced(ctx context.Context, orderID string) error {
	return e.publish(ctx, "EventBus.PublishOrderPlaced", kafka.TopicOrderPlaced, orderID, e.bus.PublishOrderPlaced)
}

func (e *ObservableEventBus) PublishOrderPaid(ctx context.Context, orderID string) error {
	return e.publish(ctx, "EventBus.PublishOrderPaid", kafka.TopicOrderPaid, orderID, e.bus.PublishOrderPaid)
}

func (e *ObservableEventBus) PublishOrderCanceled(ctx context.Context, orderID string) error {
	return e.publish(ctx, "EventBus.PublishOrderCanceled", kafka.TopicOrderCanceled, orderID, e.bus.PublishOrderCanceled)
}

func (e *ObservableEventBus) publish(
	ctx context.Context,
	spanName, topic, orderID string,
	fn func(ctx context.Context, orderID string) error,
) error {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", orderID),
		attribute.String("topic", topic),
	)

	start := time.Now()
	err := fn(ctx, orderID)
	e.metrics.RecordPublish(ctx, topic, time.Since(start).Seconds(), err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
