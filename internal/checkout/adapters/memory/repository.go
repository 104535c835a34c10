package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nfcstore/checkout/internal/checkout/domain"
	"github.com/nfcstore/checkout/internal/checkout/ports"
)

// Repository provides an in-memory store useful for local development and
// tests. A single mutex stands in for the database transactions the Postgres
// adapter uses, so the atomicity guarantees match.
type Repository struct {
	mu       sync.RWMutex
	orders   map[string]domain.Order
	carts    map[string]domain.Cart // keyed by user id
	products map[string]domain.Product
	coupons  map[string]domain.Coupon // keyed by code
	emails   map[string]string        // user id -> email
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		orders:   make(map[string]domain.Order),
		carts:    make(map[string]domain.Cart),
		products: make(map[string]domain.Product),
		coupons:  make(map[string]domain.Coupon),
		emails:   make(map[string]string),
	}
}

// SeedCart installs a cart for a user, refreshing item price/stock from any
// seeded products.
func (r *Repository) SeedCart(cart domain.Cart) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, item := range cart.Items {
		if p, ok := r.products[item.ProductID]; ok {
			cart.Items[i].UnitPrice = p.Price
			cart.Items[i].Stock = p.Stock
			cart.Items[i].ProductName = p.Name
		}
	}
	r.carts[cart.UserID] = cart
}

// SeedProduct installs a product row.
func (r *Repository) SeedProduct(product domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = product
}

// SeedCoupon installs a coupon row.
func (r *Repository) SeedCoupon(coupon domain.Coupon) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coupons[coupon.Code] = coupon
}

// SeedUser installs a user id to email mapping.
func (r *Repository) SeedUser(userID, email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails[userID] = email
}

// Product returns the current product row, for test assertions.
func (r *Repository) Product(id string) (domain.Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	return p, ok
}

// Coupon returns the current coupon row, for test assertions.
func (r *Repository) Coupon(code string) (domain.Coupon, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.coupons[code]
	return c, ok
}

func (r *Repository) GetCartByUser(_ context.Context, userID string) (*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cart, ok := r.carts[userID]
	if !ok {
		return nil, ports.ErrNotFound
	}

	out := cart
	out.Items = make([]domain.CartItem, len(cart.Items))
	copy(out.Items, cart.Items)
	for i, item := range out.Items {
		if p, ok := r.products[item.ProductID]; ok {
			out.Items[i].UnitPrice = p.Price
			out.Items[i].Stock = p.Stock
		}
	}
	return &out, nil
}

func (r *Repository) GetCouponByCode(_ context.Context, code string) (*domain.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	coupon, ok := r.coupons[code]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copied := coupon
	return &copied, nil
}

func (r *Repository) CreateOrder(_ context.Context, order domain.Order, consumeCoupon bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if consumeCoupon {
		coupon, ok := r.coupons[order.CouponCode]
		if !ok {
			return domain.ErrCouponExhausted
		}
		if coupon.IsExhausted() {
			return domain.ErrCouponExhausted
		}
		coupon.UsedCount++
		r.coupons[order.CouponCode] = coupon
	}

	r.orders[order.ID] = order
	return nil
}

func (r *Repository) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copied := order
	return &copied, nil
}

func (r *Repository) List(_ context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Order
	for _, order := range r.orders {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		if filter.Status != nil && order.OrderStatus != *filter.Status {
			continue
		}
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	start := (page - 1) * pageSize
	if start >= len(result) {
		return []domain.Order{}, nil
	}

	end := start + pageSize
	if end > len(result) {
		end = len(result)
	}

	slice := make([]domain.Order, end-start)
	copy(slice, result[start:end])

	return slice, nil
}

func (r *Repository) MarkPaid(_ context.Context, orderID, gatewayPaymentID string) (*domain.Order, []domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok {
		return nil, nil, ports.ErrNotFound
	}
	if order.PaymentStatus != domain.PaymentPending || order.OrderStatus != domain.OrderPending {
		return nil, nil, domain.ErrAlreadyProcessed
	}

	// Validate every decrement before applying any, mirroring the Postgres
	// adapter's all-or-nothing transaction.
	for _, item := range order.Items {
		p, ok := r.products[item.ProductID]
		if !ok || p.Stock < item.Quantity {
			return nil, nil, fmt.Errorf("%w: product %s", domain.ErrInsufficientStock, item.ProductID)
		}
	}

	var lowStock []domain.Product
	for _, item := range order.Items {
		p := r.products[item.ProductID]
		p.Stock -= item.Quantity
		r.products[item.ProductID] = p
		if p.IsLowStock() {
			lowStock = append(lowStock, p)
		}
	}

	order.PaymentStatus = domain.PaymentPaid
	order.OrderStatus = domain.OrderProcessing
	order.GatewayPaymentID = gatewayPaymentID
	order.UpdatedAt = time.Now().UTC()
	r.orders[orderID] = order

	if cart, ok := r.carts[order.UserID]; ok {
		cart.Items = nil
		r.carts[order.UserID] = cart
	}

	copied := order
	return &copied, lowStock, nil
}

func (r *Repository) Cancel(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return ports.ErrNotFound
	}
	if !order.IsCancelable() {
		return domain.ErrNotCancelable
	}

	order.OrderStatus = domain.OrderCancelled
	order.UpdatedAt = time.Now().UTC()
	r.orders[id] = order
	return nil
}

func (r *Repository) GetUserEmail(_ context.Context, userID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	email, ok := r.emails[userID]
	if !ok {
		return "", ports.ErrNotFound
	}
	return email, nil
}
