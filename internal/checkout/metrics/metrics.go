package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	ordersPlacedTotal      metric.Int64Counter
	paymentsConfirmedTotal metric.Int64Counter
	placeOrderDuration     metric.Float64Histogram
	confirmPaymentDuration metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.ordersPlacedTotal, err = meter.Int64Counter(
		"checkout_orders_placed_total",
		metric.WithDescription("Total number of orders placed"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout_orders_placed_total counter: %w", err)
	}

	m.paymentsConfirmedTotal, err = meter.Int64Counter(
		"checkout_payments_confirmed_total",
		metric.WithDescription("Total number of payment confirmations processed"),
		metric.WithUnit("{payment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout_payments_confirmed_total counter: %w", err)
	}

	m.placeOrderDuration, err = meter.Float64Histogram(
		"checkout_place_order_duration_seconds",
		metric.WithDescription("Duration of order placement operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout_place_order_duration histogram: %w", err)
	}

	m.confirmPaymentDuration, err = meter.Float64Histogram(
		"checkout_confirm_payment_duration_seconds",
		metric.WithDescription("Duration of payment confirmation operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout_confirm_payment_duration histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordOrderPlaced(ctx context.Context, success bool) {
	m.ordersPlacedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", statusLabel(success)),
	))
}

func (m *Metrics) RecordPlaceOrderDuration(ctx context.Context, durationSeconds float64) {
	m.placeOrderDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordPaymentConfirmed(ctx context.Context, success bool) {
	m.paymentsConfirmedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", statusLabel(success)),
	))
}

func (m *Metrics) RecordConfirmPaymentDuration(ctx context.Context, durationSeconds float64) {
	m.confirmPaymentDuration.Record(ctx, durationSeconds)
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
