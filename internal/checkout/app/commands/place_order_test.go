package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nfcstore/checkout/internal/checkout/app/commands"
	"github.com/nfcstore/checkout/internal/checkout/domain"
	"github.com/nfcstore/checkout/internal/checkout/ports"
	"github.com/shopspring/decimal"
)

func testCart(userID string) *domain.Cart {
	return &domain.Cart{
		ID:     "cart-1",
		UserID: userID,
		Items: []domain.CartItem{
			{ProductID: "p1", ProductName: "NFC Card", Quantity: 2, UnitPrice: decimal.RequireFromString("100.00"), Stock: 10},
		},
	}
}

func TestPlaceOrder(t *testing.T) {
	t.Run("creates pending order from cart", func(t *testing.T) {
		var createdOrder domain.Order
		var consumedCoupon bool

		repo := &mockRepository{
			getCartByUserFn: func(_ context.Context, userID string) (*domain.Cart, error) {
				return testCart(userID), nil
			},
			createOrderFn: func(_ context.Context, order domain.Order, consumeCoupon bool) error {
				createdOrder = order
				consumedCoupon = consumeCoupon
				return nil
			},
		}

		handler := commands.NewPlaceOrderCommandHandler(repo, &mockGateway{}, &mockEventBus{}, discardLogger())

		result, err := handler.Handle(context.Background(), commands.PlaceOrderCommand{UserID: "user-1"})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if result.Order.ID == "" {
			t.Error("expected order ID to be generated")
		}

		if !result.Order.TotalAmount.Equal(decimal.RequireFromString("200.00")) {
			t.Errorf("total = %s, want 200.00", result.Order.TotalAmount)
		}

		if result.Order.PaymentStatus != domain.PaymentPending {
			t.Errorf("payment status = %s, want PENDING", result.Order.PaymentStatus)
		}

		if result.Order.OrderStatus != domain.OrderPending {
			t.Errorf("order status = %s, want PENDING", result.Order.OrderStatus)
		}

		if result.GatewayOrder == nil || result.GatewayOrder.ID == "" {
			t.Fatal("expected gateway order in result")
		}

		if createdOrder.GatewayOrderID != result.GatewayOrder.ID {
			t.Errorf("persisted gateway order id = %s, want %s", createdOrder.GatewayOrderID, result.GatewayOrder.ID)
		}

		if consumedCoupon {
			t.Error("expected no coupon consumption without a coupon code")
		}

		if len(createdOrder.Items) != 1 || createdOrder.Items[0].Quantity != 2 {
			t.Errorf("unexpected item snapshot: %+v", createdOrder.Items)
		}
	})

	t.Run("requires user id", func(t *testing.T) {
		handler := commands.NewPlaceOrderCommandHandler(&mockRepository{}, &mockGateway{}, &mockEventBus{}, discardLogger())

		if _, err := handler.Handle(context.Background(), commands.PlaceOrderCommand{UserID: "  "}); err == nil {
			t.Error("expected error for blank user id")
		}
	})

	t.Run("missing cart maps to empty cart error", func(t *testing.T) {
		handler := commands.NewPlaceOrderCommandHandler(&mockRepository{}, &mockGateway{}, &mockEventBus{}, discardLogger())

		_, err := handler.Handle(context.Background(), commands.PlaceOrderCommand{UserID: "user-1"})
		if !errors.Is(err, domain.ErrEmptyCart) {
			t.Errorf("error = %v, want ErrEmptyCart", err)
		}
	})

	t.Run("empty cart rejected", func(t *testing.T) {
		repo := &mockRepository{
			getCartByUserFn: func(_ context.Context, userID string) (*domain.Cart, error) {
				return &domain.Cart{ID: "cart-1", UserID: userID}, nil
			},
		}
		handler := commands.NewPlaceOrderCommandHandler(repo, &mockGateway{}, &mockEventBus{}, discardLogger())

		_, err := handler.Handle(context.Background(), commands.PlaceOrderCommand{UserID: "user-1"})
		if !errors.Is(err, domain.ErrEmptyCart) {
			t.Errorf("error = %v, want ErrEmptyCart", err)
		}
	})

	t.Run("insufficient stock rejected before gateway call", func(t *testing.T) {
		gatewayCalled := false

		repo := &mockRepository{
			getCartByUserFn: func(_ context.Context, userID string) (*domain.Cart, error) {
				cart := testCart(userID)
				cart.Items[0].Stock = 1
				return cart, nil
			},
		}
		gateway := &mockGateway{
			createOrderFn: func(_ context.Context, amount decimal.Decimal, receipt string) (*ports.GatewayOrder, error) {
				gatewayCalled = true
				return &ports.GatewayOrder{ID: "gw-1"}, nil
			},
		}

		handler := commands.NewPlaceOrderCommandHandler(repo, gateway, &mockEventBus{}, discardLogger())

		_, err := handler.Handle(context.Background(), commands.PlaceOrderCommand{UserID: "user-1"})
		if !errors.Is(err, domain.ErrInsufficientStock) {
			t.Errorf("error = %v, want ErrInsufficientStock", err)
		}

		if gatewayCalled {
			t.Error("gateway should not be called when stock is insufficient")
		}
	})

	t.Run("unknown coupon code rejected", func(t *testing.T) {
		repo := &mockRepository{
			getCartByUserFn: func(_ context.Context, userID string) (*domain.Cart, error) {
				return testCart(userID), nil
			},
		}
		handler := commands.NewPlaceOrderCommandHandler(repo, &mockGateway{}, &mockEventBus{}, discardLogger())

		_, err := handler.Handle(context.Background(), commands.PlaceOrderCommand{UserID: "user-1", CouponCode: "NOPE"})
		if !errors.Is(err, domain.ErrInvalidCoupon) {
			t.Errorf("error = %v, want ErrInvalidCoupon", err)
		}
	})

	t.Run("coupon discount applied and consumed", func(t *testing.T) {
		now := time.Now()
		var consumedCoupon bool
		var gatewayAmount decimal.Decimal

		repo := &mockRepository{
			getCartByUserFn: func(_ context.Context, userID string) (*domain.Cart, error) {
				return testCart(userID), nil
			},
			getCouponByCodeFn: func(_ context.Context, code string) (*domain.Coupon, error) {
				return &domain.Coupon{
					ID:            "coupon-1",
					Code:          code,
					DiscountType:  domain.DiscountPercentage,
					DiscountValue: decimal.NewFromInt(10),
					ValidFrom:     now.Add(-time.Hour),
					ValidUntil:    now.Add(time.Hour),
					IsActive:      true,
				}, nil
			},
			createOrderFn: func(_ context.Context, order domain.Order, consumeCoupon bool) error {
				consumedCoupon = consumeCoupon
				return nil
			},
		}
		gateway := &mockGateway{
			createOrderFn: func(_ context.Context, amount decimal.Decimal, receipt string) (*ports.GatewayOrder, error) {
				gatewayAmount = amount
				return &ports.GatewayOrder{ID: "gw-1", Amount: amount.Shift(2).IntPart()}, nil
			},
		}

		handler := commands.NewPlaceOrderCommandHandler(repo, gateway, &mockEventBus{}, discardLogger())

		result, err := handler.Handle(context.Background(), commands.PlaceOrderCommand{UserID: "user-1", CouponCode: "SAVE10"})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if !result.Order.DiscountAmount.Equal(decimal.RequireFromString("20")) {
			t.Errorf("discount = %s, want 20", result.Order.DiscountAmount)
		}

		if !gatewayAmount.Equal(decimal.RequireFromString("180")) {
			t.Errorf("gateway amount = %s, want 180", gatewayAmount)
		}

		if !consumedCoupon {
			t.Error("expected coupon consumption to be requested")
		}
	})

	t.Run("gateway failure aborts before persistence", func(t *testing.T) {
		orderCreated := false

		repo := &mockRepository{
			getCartByUserFn: func(_ context.Context, userID string) (*domain.Cart, error) {
				return testCart(userID), nil
			},
			createOrderFn: func(_ context.Context, order domain.Order, consumeCoupon bool) error {
				orderCreated = true
				return nil
			},
		}
		gateway := &mockGateway{
			createOrderFn: func(_ context.Context, amount decimal.Decimal, receipt string) (*ports.GatewayOrder, error) {
				return nil, &ports.GatewayError{Op: "create_order", Err: errors.New("timeout")}
			},
		}

		handler := commands.NewPlaceOrderCommandHandler(repo, gateway, &mockEventBus{}, discardLogger())

		_, err := handler.Handle(context.Background(), commands.PlaceOrderCommand{UserID: "user-1"})

		var gatewayErr *ports.GatewayError
		if !errors.As(err, &gatewayErr) {
			t.Errorf("error = %v, want GatewayError", err)
		}

		if orderCreated {
			t.Error("order must not be persisted when the gateway call fails")
		}
	})

	t.Run("event publish failure does not fail the order", func(t *testing.T) {
		repo := &mockRepository{
			getCartByUserFn: func(_ context.Context, userID string) (*domain.Cart, error) {
				return testCart(userID), nil
			},
		}
		events := &mockEventBus{
			publishOrderPlacedFn: func(_ context.Context, orderID string) error {
				return errors.New("broker unavailable")
			},
		}

		handler := commands.NewPlaceOrderCommandHandler(repo, &mockGateway{}, events, discardLogger())

		if _, err := handler.Handle(context.Background(), commands.PlaceOrderCommand{UserID: "user-1"}); err != nil {
			t.Errorf("expected no error when event publish fails, got: %v", err)
		}
	})
}
