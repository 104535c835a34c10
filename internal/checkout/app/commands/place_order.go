package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nfcstore/checkout/internal/checkout/domain"
	"github.com/nfcstore/checkout/internal/checkout/ports"
)

// PlaceOrderCommand starts phase one of checkout: price the caller's cart and
// create a PENDING order plus its gateway-side twin.
type PlaceOrderCommand struct {
	UserID     string
	CouponCode string
}

func (c PlaceOrderCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// PlaceOrderResult carries everything the client needs to complete payment.
type PlaceOrderResult struct {
	Order        *domain.Order       `json:"order"`
	GatewayOrder *ports.GatewayOrder `json:"gateway_order"`
}

type PlaceOrderHandler interface {
	Handle(ctx context.Context, cmd PlaceOrderCommand) (*PlaceOrderResult, error)
}

type PlaceOrderCommandHandler struct {
	repo    ports.CheckoutRepository
	gateway ports.PaymentGateway
	events  ports.EventBus
	logger  *slog.Logger
	now     func() time.Time
}

func NewPlaceOrderCommandHandler(
	repo ports.CheckoutRepository,
	gateway ports.PaymentGateway,
	events ports.EventBus,
	logger *slog.Logger,
) *PlaceOrderCommandHandler {
	return &PlaceOrderCommandHandler{
		repo:    repo,
		gateway: gateway,
		events:  events,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (h *PlaceOrderCommandHandler) Handle(ctx context.Context, cmd PlaceOrderCommand) (*PlaceOrderResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	cart, err := h.repo.GetCartByUser(ctx, cmd.UserID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, domain.ErrEmptyCart
		}
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}

	// Advisory check against current stock; the authoritative guard is the
	// conditional decrement at payment confirmation.
	for _, item := range cart.Items {
		if item.Quantity > item.Stock {
			return nil, fmt.Errorf("%w for %s", domain.ErrInsufficientStock, item.ProductName)
		}
	}

	var coupon *domain.Coupon
	if cmd.CouponCode != "" {
		coupon, err = h.repo.GetCouponByCode(ctx, cmd.CouponCode)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return nil, domain.ErrInvalidCoupon
			}
			return nil, err
		}
	}

	quote, err := domain.PriceCart(cart.Items, coupon, h.now())
	if err != nil {
		return nil, err
	}

	gatewayOrder, err := h.gateway.CreateOrder(ctx, quote.Total, "")
	if err != nil {
		return nil, err
	}

	orderID, err := generateOrderID()
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	now := h.now()
	order := domain.Order{
		ID:             orderID,
		UserID:         cmd.UserID,
		Subtotal:       quote.Subtotal,
		DiscountAmount: quote.Discount,
		TotalAmount:    quote.Total,
		CouponCode:     cmd.CouponCode,
		PaymentStatus:  domain.PaymentPending,
		OrderStatus:    domain.OrderPending,
		GatewayOrderID: gatewayOrder.ID,
		Items:          items,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := h.repo.CreateOrder(ctx, order, coupon != nil); err != nil {
		return nil, err
	}

	if err := h.events.PublishOrderPlaced(ctx, order.ID); err != nil {
		h.logger.WarnContext(ctx, "failed to publish order placed event",
			"order_id", order.ID,
			"error", err,
		)
	}

	return &PlaceOrderResult{Order: &order, GatewayOrder: gatewayOrder}, nil
}

func generateOrderID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
