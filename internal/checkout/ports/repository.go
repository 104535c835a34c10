package ports

import (
	"context"
	"errors"

	"github.com/nfcstore/checkout/internal/checkout/domain"
)

// CheckoutRepository exposes the persistence operations the checkout workflow
// needs. Multi-row mutations (CreateOrder, MarkPaid) must be atomic: either
// every row change lands or none do.
type CheckoutRepository interface {
	// GetCartByUser loads the user's cart with items joined against product
	// price and stock. Returns ErrNotFound when the user has no cart.
	GetCartByUser(ctx context.Context, userID string) (*domain.Cart, error)

	// GetCouponByCode fetches a coupon row. Returns ErrNotFound for unknown codes.
	GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// CreateOrder persists the order with its item snapshots in one
	// transaction. When consumeCoupon is set, the coupon's used_count is
	// incremented conditionally inside the same transaction; hitting the
	// usage cap rolls the whole order back with domain.ErrCouponExhausted.
	CreateOrder(ctx context.Context, order domain.Order, consumeCoupon bool) error

	// GetOrderByID loads an order with its items.
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]domain.Order, error)

	// MarkPaid atomically flips a PENDING order to PAID/PROCESSING, records
	// the gateway payment id, decrements stock for every item, and clears the
	// purchasing user's cart. The status flip is conditional on both payment
	// and order status still being PENDING: a repeat call, or a call against a
	// cancelled order, returns domain.ErrAlreadyProcessed without re-applying
	// side effects. A stock decrement that would go negative aborts the whole
	// transaction with domain.ErrInsufficientStock, leaving the order PENDING.
	//
	// The returned products are those whose stock crossed their low-stock
	// threshold in this transaction, for alerting.
	MarkPaid(ctx context.Context, orderID, gatewayPaymentID string) (*domain.Order, []domain.Product, error)

	// Cancel transitions a pending unpaid order to CANCELLED. The transition
	// is conditional on both statuses still being PENDING; an order already
	// paid or fulfilled returns domain.ErrNotCancelable, an unknown id
	// ErrNotFound.
	Cancel(ctx context.Context, id string) error

	// GetUserEmail resolves the email address for a user id.
	GetUserEmail(ctx context.Context, userID string) (string, error)
}

// ListFilter narrows list queries by user, status and pagination.
type ListFilter struct {
	UserID   string
	Status   *domain.OrderStatus
	Page     int
	PageSize int
}

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
)
