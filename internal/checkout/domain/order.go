package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks whether the gateway has confirmed payment for an order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// OrderStatus captures the fulfillment lifecycle of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// Order is a purchase placed from a cart. Monetary fields are exact decimals;
// item rows snapshot the unit price at purchase time so later catalog price
// changes never alter historical order value.
type Order struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	CouponCode       string          `json:"coupon_code,omitempty"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	OrderStatus      OrderStatus     `json:"order_status"`
	GatewayOrderID   string          `json:"gateway_order_id"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	Items            []OrderItem     `json:"items"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// OrderItem is an immutable snapshot of one purchased line.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Validate ensures the order adheres to business constraints.
func (o Order) Validate() error {
	if strings.TrimSpace(o.UserID) == "" {
		return errors.New("user_id is required")
	}
	if len(o.Items) == 0 {
		return errors.New("order must have at least one item")
	}
	if o.TotalAmount.IsNegative() {
		return errors.New("total_amount must not be negative")
	}
	if o.GatewayOrderID == "" {
		return errors.New("gateway_order_id is required")
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			return errors.New("item quantity must be positive")
		}
	}
	return nil
}

// IsPaid indicates whether payment has been confirmed.
func (o Order) IsPaid() bool {
	return o.PaymentStatus == PaymentPaid
}

// IsCancelable reports whether the order may still be abandoned by the user.
// Only unpaid, unfulfilled orders qualify; stock is not taken until payment,
// so cancellation releases nothing.
func (o Order) IsCancelable() bool {
	return o.PaymentStatus == PaymentPending && o.OrderStatus == OrderPending
}

// IsTerminal reports whether the order has reached a final state. Terminal
// orders accept no further transitions, including payment confirmation.
func (o Order) IsTerminal() bool {
	return o.OrderStatus == OrderDelivered || o.OrderStatus == OrderCancelled
}
