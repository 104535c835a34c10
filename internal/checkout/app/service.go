package app

import (
	"context"
	"log/slog"

	"github.com/nfcstore/checkout/internal/checkout/app/commands"
	"github.com/nfcstore/checkout/internal/checkout/app/queries"
	"github.com/nfcstore/checkout/internal/checkout/domain"
	"github.com/nfcstore/checkout/internal/checkout/metrics"
	"github.com/nfcstore/checkout/internal/checkout/ports"
)

// Service bundles the checkout use cases exposed over the API.
type Service struct {
	repo           ports.CheckoutRepository
	events         ports.EventBus
	idemStore      ports.IdempotencyStore
	logger         *slog.Logger
	placeOrder     commands.PlaceOrderHandler
	confirmPayment commands.ConfirmPaymentHandler
	getOrder       *queries.GetOrderQueryHandler
	listOrders     *queries.ListOrdersQueryHandler
}

// NewService wires required dependencies.
func NewService(
	repo ports.CheckoutRepository,
	gateway ports.PaymentGateway,
	mailer ports.Mailer,
	events ports.EventBus,
	idem ports.IdempotencyStore,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Service {
	placeCore := commands.NewPlaceOrderCommandHandler(repo, gateway, events, logger)
	confirmCore := commands.NewConfirmPaymentCommandHandler(repo, gateway, mailer, events, logger)

	return &Service{
		repo:           repo,
		events:         events,
		idemStore:      idem,
		logger:         logger,
		placeOrder:     commands.NewObservablePlaceOrderHandler(placeCore, logger, metrics),
		confirmPayment: commands.NewObservableConfirmPaymentHandler(confirmCore, logger, metrics),
		getOrder:       queries.NewGetOrderQueryHandler(repo),
		listOrders:     queries.NewListOrdersQueryHandler(repo),
	}
}

// PlaceOrderInput captures payload for placing an order.
type PlaceOrderInput struct {
	UserID     string `json:"user_id"`
	CouponCode string `json:"coupon_code"`
}

// PlaceOrder runs phase one of checkout: cart validation, pricing, gateway
// order creation and PENDING order persistence.
func (s *Service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*commands.PlaceOrderResult, error) {
	return s.placeOrder.Handle(ctx, commands.PlaceOrderCommand{
		UserID:     input.UserID,
		CouponCode: input.CouponCode,
	})
}

// ConfirmPaymentInput captures the payment-completion callback fields.
type ConfirmPaymentInput struct {
	OrderID          string `json:"order_id"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

// ConfirmPayment runs phase two of checkout: signature verification and the
// atomic PAID transition with its side effects.
func (s *Service) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*domain.Order, error) {
	return s.confirmPayment.Handle(ctx, commands.ConfirmPaymentCommand{
		OrderID:          input.OrderID,
		GatewayOrderID:   input.GatewayOrderID,
		GatewayPaymentID: input.GatewayPaymentID,
		Signature:        input.Signature,
	})
}

// GetOrder retrieves an order by ID.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.getOrder.Handle(ctx, queries.GetOrderQuery{OrderID: id})
}

// ListOrders returns orders using a filter.
func (s *Service) ListOrders(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	return s.listOrders.Handle(ctx, queries.ListOrdersQuery{
		UserID:   filter.UserID,
		Status:   filter.Status,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

// CancelOrder abandons a pending unpaid order. Paid or fulfilled orders are
// refused; refunds are out of scope here. The repository performs the status
// check and the transition as one conditional write, so a confirmation racing
// this call wins and the cancellation fails with ErrNotCancelable.
func (s *Service) CancelOrder(ctx context.Context, id string) (*domain.Order, error) {
	if err := s.repo.Cancel(ctx, id); err != nil {
		return nil, err
	}

	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishOrderCanceled(ctx, order.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish order canceled event",
			"order_id", order.ID,
			"error", err,
		)
	}

	return order, nil
}

// SaveIdempotentResponse writes response details for a key.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, key, response)
}

// GetIdempotentResponse retrieves previously stored response data.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Get(ctx, key)
}
