package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/nfcstore/checkout/internal/checkout/domain"
	"github.com/nfcstore/checkout/internal/checkout/metrics"
	"github.com/nfcstore/checkout/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableConfirmPaymentHandler struct {
	handler ConfirmPaymentHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableConfirmPaymentHandler(handler ConfirmPaymentHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableConfirmPaymentHandler {
	return &ObservableConfirmPaymentHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableConfirmPaymentHandler) Handle(ctx context.Context, cmd ConfirmPaymentCommand) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "ConfirmPaymentCommand.Handle")
	defer span.End()

	start := time.Now()
	var success bool
	defer func() {
		duration := time.Since(start).Seconds()
		o.metrics.RecordConfirmPaymentDuration(ctx, duration)
		o.metrics.RecordPaymentConfirmed(ctx, success)
	}()

	o.logger.InfoContext(ctx, "confirming payment",
		"order_id", cmd.OrderID,
		"gateway_order_id", cmd.GatewayOrderID,
	)

	order, err := o.handler.Handle(ctx, cmd)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "failed to confirm payment",
			"error", err,
			"order_id", cmd.OrderID,
		)
		return nil, err
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", order.ID),
		attribute.String("order.payment_status", string(order.PaymentStatus)),
		attribute.String("order.status", string(order.OrderStatus)),
	)

	o.logger.InfoContext(ctx, "payment confirmed",
		"order_id", order.ID,
		"gateway_payment_id", order.GatewayPaymentID,
	)

	success = true
	telemetry.SetSpanSuccess(span)

	return order, nil
}
