package commands_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/nfcstore/checkout/internal/checkout/domain"
	"github.com/nfcstore/checkout/internal/checkout/ports"
	"github.com/shopspring/decimal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockRepository struct {
	getCartByUserFn   func(ctx context.Context, userID string) (*domain.Cart, error)
	getCouponByCodeFn func(ctx context.Context, code string) (*domain.Coupon, error)
	createOrderFn     func(ctx context.Context, order domain.Order, consumeCoupon bool) error
	getOrderByIDFn    func(ctx context.Context, id string) (*domain.Order, error)
	markPaidFn        func(ctx context.Context, orderID, gatewayPaymentID string) (*domain.Order, []domain.Product, error)
	cancelFn          func(ctx context.Context, id string) error
	getUserEmailFn    func(ctx context.Context, userID string) (string, error)
}

func (m *mockRepository) GetCartByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	if m.getCartByUserFn != nil {
		return m.getCartByUserFn(ctx, userID)
	}
	return nil, ports.ErrNotFound
}

func (m *mockRepository) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	if m.getCouponByCodeFn != nil {
		return m.getCouponByCodeFn(ctx, code)
	}
	return nil, ports.ErrNotFound
}

func (m *mockRepository) CreateOrder(ctx context.Context, order domain.Order, consumeCoupon bool) error {
	if m.createOrderFn != nil {
		return m.createOrderFn(ctx, order, consumeCoupon)
	}
	return nil
}

func (m *mockRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	if m.getOrderByIDFn != nil {
		return m.getOrderByIDFn(ctx, id)
	}
	return nil, ports.ErrNotFound
}

func (m *mockRepository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	return nil, nil
}

func (m *mockRepository) MarkPaid(ctx context.Context, orderID, gatewayPaymentID string) (*domain.Order, []domain.Product, error) {
	if m.markPaidFn != nil {
		return m.markPaidFn(ctx, orderID, gatewayPaymentID)
	}
	return nil, nil, ports.ErrNotFound
}

func (m *mockRepository) Cancel(ctx context.Context, id string) error {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, id)
	}
	return nil
}

func (m *mockRepository) GetUserEmail(ctx context.Context, userID string) (string, error) {
	if m.getUserEmailFn != nil {
		return m.getUserEmailFn(ctx, userID)
	}
	return "", ports.ErrNotFound
}

type mockGateway struct {
	createOrderFn     func(ctx context.Context, amount decimal.Decimal, receipt string) (*ports.GatewayOrder, error)
	verifySignatureFn func(gatewayOrderID, gatewayPaymentID, signature string) bool
}

func (m *mockGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*ports.GatewayOrder, error) {
	if m.createOrderFn != nil {
		return m.createOrderFn(ctx, amount, receipt)
	}
	return &ports.GatewayOrder{ID: "gw-order-1", Amount: amount.Shift(2).IntPart(), Currency: "INR"}, nil
}

func (m *mockGateway) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	if m.verifySignatureFn != nil {
		return m.verifySignatureFn(gatewayOrderID, gatewayPaymentID, signature)
	}
	return true
}

type mockMailer struct {
	sendConfirmationFn func(ctx context.Context, email string, order domain.Order) error
	sendLowStockFn     func(ctx context.Context, product domain.Product) error
}

func (m *mockMailer) SendOrderConfirmation(ctx context.Context, email string, order domain.Order) error {
	if m.sendConfirmationFn != nil {
		return m.sendConfirmationFn(ctx, email, order)
	}
	return nil
}

func (m *mockMailer) SendLowStockAlert(ctx context.Context, product domain.Product) error {
	if m.sendLowStockFn != nil {
		return m.sendLowStockFn(ctx, product)
	}
	return nil
}

type mockEventBus struct {
	publishOrderPlacedFn   func(ctx context.Context, orderID string) error
	publishOrderPaidFn     func(ctx context.Context, orderID string) error
	publishOrderCanceledFn func(ctx context.Context, orderID string) error
}

func (m *mockEventBus) PublishOrderPlaced(ctx context.Context, orderID string) error {
	if m.publishOrderPlacedFn != nil {
		return m.publishOrderPlacedFn(ctx, orderID)
	}
	return nil
}

func (m *mockEventBus) PublishOrderPaid(ctx context.Context, orderID string) error {
	if m.publishOrderPaidFn != nil {
		return m.publishOrderPaidFn(ctx, orderID)
	}
	return nil
}

func (m *mockEventBus) PublishOrderCanceled(ctx context.Context, orderID string) error {
	if m.publishOrderCanceledFn != nil {
		return m.publishOrderCanceledFn(ctx, orderID)
	}
	return nil
}
