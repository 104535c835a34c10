package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/nfcstore/checkout/internal/checkout/metrics"
	"github.com/nfcstore/checkout/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservablePlaceOrderHandler struct {
	handler PlaceOrderHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservablePlaceOrderHandler(handler PlaceOrderHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservablePlaceOrderHandler {
	return &ObservablePlaceOrderHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservablePlaceOrderHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*PlaceOrderResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "PlaceOrderCommand.Handle")
	defer span.End()

	start := time.Now()
	var success bool
	defer func() {
		duration := time.Since(start).Seconds()
		o.metrics.RecordPlaceOrderDuration(ctx, duration)
		o.metrics.RecordOrderPlaced(ctx, success)
	}()

	o.logger.InfoContext(ctx, "placing order",
		"user_id", cmd.UserID,
		"coupon_code", cmd.CouponCode,
	)

	result, err := o.handler.Handle(ctx, cmd)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "failed to place order",
			"error", err,
			"user_id", cmd.UserID,
		)
		return nil, err
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", result.Order.ID),
		attribute.String("order.user_id", result.Order.UserID),
		attribute.String("order.total_amount", result.Order.TotalAmount.String()),
		attribute.String("order.gateway_order_id", result.Order.GatewayOrderID),
	)

	o.logger.InfoContext(ctx, "order placed",
		"order_id", result.Order.ID,
		"user_id", result.Order.UserID,
		"total_amount", result.Order.TotalAmount.String(),
	)

	success = true
	telemetry.SetSpanSuccess(span)

	return result, nil
}
