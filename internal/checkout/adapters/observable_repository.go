package adapters

import (
	"context"
	"time"

	"github.com/nfcstore/checkout/internal/checkout/domain"
	"github.com/nfcstore/checkout/internal/checkout/ports"
	"github.com/nfcstore/checkout/internal/database"
	"github.com/nfcstore/checkout/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ObservableRepository wraps a CheckoutRepository with tracing and query metrics.
type ObservableRepository struct {
	repo    ports.CheckoutRepository
	metrics *database.Metrics
}

func NewObservableRepository(repo ports.CheckoutRepository, metrics *database.Metrics) *ObservableRepository {
	return &ObservableRepository{
		repo:    repo,
		metrics: metrics,
	}
}

func (r *ObservableRepository) GetCartByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	ctx, span := telemetry.StartSpan(ctx, "CheckoutRepository.GetCartByUser")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("user.id", userID),
		attribute.String("operation", "get_cart_by_user"),
	)

	start := time.Now()
	cart, err := r.repo.GetCartByUser(ctx, userID)
	r.metrics.RecordQuery(ctx, "get_cart_by_user", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int("cart.items", len(cart.Items)))
	telemetry.SetSpanSuccess(span)
	return cart, nil
}

func (r *ObservableRepository) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	ctx, span := telemetry.StartSpan(ctx, "CheckoutRepository.GetCouponByCode")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("coupon.code", code),
		attribute.String("operation", "get_coupon_by_code"),
	)

	start := time.Now()
	coupon, err := r.repo.GetCouponByCode(ctx, code)
	r.metrics.RecordQuery(ctx, "get_coupon_by_code", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.SetSpanSuccess(span)
	return coupon, nil
}

func (r *ObservableRepository) CreateOrder(ctx context.Context, order domain.Order, consumeCoupon bool) error {
	ctx, span := telemetry.StartSpan(ctx, "CheckoutRepository.CreateOrder")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", order.ID),
		attribute.Bool("order.consume_coupon", consumeCoupon),
		attribute.String("operation", "create_order"),
	)

	start := time.Now()
	err := r.repo.CreateOrder(ctx, order, consumeCoupon)
	r.metrics.RecordTx(ctx, "create_order", time.Since(start).Seconds(), err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (r *ObservableRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "CheckoutRepository.GetOrderByID")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", id),
		attribute.String("operation", "get_order_by_id"),
	)

	start := time.Now()
	order, err := r.repo.GetOrderByID(ctx, id)
	r.metrics.RecordQuery(ctx, "get_order_by_id", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.SetSpanSuccess(span)
	return order, nil
}

func (r *ObservableRepository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	ctx, span := telemetry.StartSpan(ctx, "CheckoutRepository.List")
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("operation", "list_orders"),
		attribute.Int("page", filter.Page),
		attribute.Int("page_size", filter.PageSize),
	}
	if filter.UserID != "" {
		attrs = append(attrs, attribute.String("filter.user_id", filter.UserID))
	}
	if filter.Status != nil {
		attrs = append(attrs, attribute.String("filter.status", string(*filter.Status)))
	}
	telemetry.AddSpanAttributes(span, attrs...)

	start := time.Now()
	orders, err := r.repo.List(ctx, filter)
	r.metrics.RecordQuery(ctx, "list_orders", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(orders)))
	telemetry.SetSpanSuccess(span)
	return orders, nil
}

func (r *ObservableRepository) MarkPaid(ctx context.Context, orderID, gatewayPaymentID string) (*domain.Order, []domain.Product, error) {
	ctx, span := telemetry.StartSpan(ctx, "CheckoutRepository.MarkPaid")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", orderID),
		attribute.String("operation", "mark_paid"),
	)

	start := time.Now()
	order, lowStock, err := r.repo.MarkPaid(ctx, orderID, gatewayPaymentID)
	r.metrics.RecordTx(ctx, "mark_paid", time.Since(start).Seconds(), err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.Int("low_stock.count", len(lowStock)))
	telemetry.SetSpanSuccess(span)
	return order, lowStock, nil
}

func (r *ObservableRepository) Cancel(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "CheckoutRepository.Cancel")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", id),
		attribute.String("operation", "cancel"),
	)

	start := time.Now()
	err := r.repo.Cancel(ctx, id)
	r.metrics.RecordQuery(ctx, "cancel_order", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (r *ObservableRepository) GetUserEmail(ctx context.Context, userID string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "CheckoutRepository.GetUserEmail")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("user.id", userID),
		attribute.String("operation", "get_user_email"),
	)

	start := time.Now()
	email, err := r.repo.GetUserEmail(ctx, userID)
	r.metrics.RecordQuery(ctx, "get_user_email", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return "", err
	}

	telemetry.SetSpanSuccess(span)
	return email, nil
}
