package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nfcstore/checkout/internal/checkout/domain"
	"github.com/nfcstore/checkout/internal/checkout/ports"
	"github.com/shopspring/decimal"
)

// Repository implements ports.CheckoutRepository on Postgres. Monetary columns
// are NUMERIC; values cross the wire as text and are parsed into decimals so
// no float arithmetic ever touches money.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetCartByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	var cartID string
	err := r.pool.QueryRow(ctx, `SELECT id FROM carts WHERE user_id = $1`, userID).Scan(&cartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	query := `
		SELECT ci.product_id, p.name, ci.quantity, p.price::text, p.stock
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.product_id
	`

	rows, err := r.pool.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	cart := &domain.Cart{ID: cartID, UserID: userID}
	for rows.Next() {
		var item domain.CartItem
		var price string
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &price, &item.Stock); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		if item.UnitPrice, err = parseDecimal(price); err != nil {
			return nil, err
		}
		cart.Items = append(cart.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}

	return cart, nil
}

func (r *Repository) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
		SELECT id, code, discount_type, discount_value::text,
		       min_amount::text, max_discount::text, usage_limit, used_count,
		       valid_from, valid_until, is_active
		FROM coupons
		WHERE code = $1
	`

	var coupon domain.Coupon
	var discountValue string
	var minAmount, maxDiscount *string
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.DiscountType,
		&discountValue,
		&minAmount,
		&maxDiscount,
		&coupon.UsageLimit,
		&coupon.UsedCount,
		&coupon.ValidFrom,
		&coupon.ValidUntil,
		&coupon.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select coupon: %w", err)
	}

	if coupon.DiscountValue, err = parseDecimal(discountValue); err != nil {
		return nil, err
	}
	if coupon.MinAmount, err = parseOptionalDecimal(minAmount); err != nil {
		return nil, err
	}
	if coupon.MaxDiscount, err = parseOptionalDecimal(maxDiscount); err != nil {
		return nil, err
	}

	return &coupon, nil
}

func (r *Repository) CreateOrder(ctx context.Context, order domain.Order, consumeCoupon bool) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin create order tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if consumeCoupon {
		// Conditional increment keeps used_count <= usage_limit under
		// concurrent checkouts; losing the race rolls the order back.
		result, err := tx.Exec(ctx, `
			UPDATE coupons
			SET used_count = used_count + 1
			WHERE code = $1
			  AND (usage_limit IS NULL OR used_count < usage_limit)
		`, order.CouponCode)
		if err != nil {
			return fmt.Errorf("consume coupon: %w", err)
		}
		if result.RowsAffected() == 0 {
			return domain.ErrCouponExhausted
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, user_id, subtotal, discount_amount, total_amount, coupon_code,
			payment_status, order_status, gateway_order_id, created_at, updated_at
		)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, NULLIF($6, ''), $7, $8, $9, $10, $11)
	`,
		order.ID,
		order.UserID,
		order.Subtotal.String(),
		order.DiscountAmount.String(),
		order.TotalAmount.String(),
		order.CouponCode,
		order.PaymentStatus,
		order.OrderStatus,
		order.GatewayOrderID,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4::numeric)
		`, order.ID, item.ProductID, item.Quantity, item.UnitPrice.String())
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create order tx: %w", err)
	}

	return nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}

	items, err := r.loadItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]

	return order, nil
}

func (r *Repository) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	query := `
		SELECT id, user_id, subtotal::text, discount_amount::text, total_amount::text,
		       COALESCE(coupon_code, ''), payment_status, order_status,
		       gateway_order_id, COALESCE(gateway_payment_id, ''), created_at, updated_at
		FROM orders
		WHERE ($1::text = '' OR user_id = $1)
		  AND ($2::text IS NULL OR order_status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	var statusFilter *string
	if filter.Status != nil {
		s := string(*filter.Status)
		statusFilter = &s
	}

	offset := (page - 1) * pageSize

	rows, err := r.pool.Query(ctx, query, filter.UserID, statusFilter, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []string
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
		ids = append(ids, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	if len(ids) > 0 {
		items, err := r.loadItems(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range orders {
			orders[i].Items = items[orders[i].ID]
		}
	}

	return orders, nil
}

func (r *Repository) MarkPaid(ctx context.Context, orderID, gatewayPaymentID string) (*domain.Order, []domain.Product, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("begin mark paid tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the order row first so concurrent confirmations serialize here.
	var userID string
	err = tx.QueryRow(ctx, `SELECT user_id FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ports.ErrNotFound
		}
		return nil, nil, fmt.Errorf("lock order: %w", err)
	}

	// Both statuses guard the flip: a cancelled order must never come back
	// to life as PAID.
	result, err := tx.Exec(ctx, `
		UPDATE orders
		SET payment_status = $1, order_status = $2, gateway_payment_id = $3, updated_at = $4
		WHERE id = $5 AND payment_status = $6 AND order_status = $7
	`, domain.PaymentPaid, domain.OrderProcessing, gatewayPaymentID, time.Now().UTC(), orderID, domain.PaymentPending, domain.OrderPending)
	if err != nil {
		return nil, nil, fmt.Errorf("update order status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, nil, domain.ErrAlreadyProcessed
	}

	// Ordered by product id so concurrent transactions take product locks in
	// the same order.
	itemRows, err := tx.Query(ctx, `
		SELECT product_id, quantity FROM order_items WHERE order_id = $1 ORDER BY product_id
	`, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("query order items: %w", err)
	}

	type lineItem struct {
		productID string
		quantity  int
	}
	var lines []lineItem
	for itemRows.Next() {
		var li lineItem
		if err := itemRows.Scan(&li.productID, &li.quantity); err != nil {
			itemRows.Close()
			return nil, nil, fmt.Errorf("scan order item: %w", err)
		}
		lines = append(lines, li)
	}
	itemRows.Close()
	if err := itemRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate order items: %w", err)
	}

	var lowStock []domain.Product
	for _, li := range lines {
		var p domain.Product
		var price string
		err := tx.QueryRow(ctx, `
			UPDATE products
			SET stock = stock - $1
			WHERE id = $2 AND stock >= $1
			RETURNING id, name, price::text, stock, low_stock_threshold
		`, li.quantity, li.productID).Scan(&p.ID, &p.Name, &price, &p.Stock, &p.LowStockThreshold)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, fmt.Errorf("%w: product %s", domain.ErrInsufficientStock, li.productID)
			}
			return nil, nil, fmt.Errorf("decrement stock: %w", err)
		}
		if p.Price, err = parseDecimal(price); err != nil {
			return nil, nil, err
		}
		if p.IsLowStock() {
			lowStock = append(lowStock, p)
		}
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM cart_items
		WHERE cart_id IN (SELECT id FROM carts WHERE user_id = $1)
	`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("clear cart: %w", err)
	}

	order, err := scanOrder(ctx, tx, orderID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit mark paid tx: %w", err)
	}

	items, err := r.loadItems(ctx, []string{orderID})
	if err != nil {
		return nil, nil, err
	}
	order.Items = items[orderID]

	return order, lowStock, nil
}

// Cancel transitions a pending unpaid order to CANCELLED. The status guard in
// the WHERE clause makes cancellation lose cleanly against a concurrent
// payment confirmation instead of clobbering a PAID order.
func (r *Repository) Cancel(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET order_status = $1, updated_at = $2
		WHERE id = $3 AND order_status = $4 AND payment_status = $5
	`, domain.OrderCancelled, time.Now().UTC(), id, domain.OrderPending, domain.PaymentPending)
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check order exists: %w", err)
		}
		if !exists {
			return ports.ErrNotFound
		}
		return domain.ErrNotCancelable
	}

	return nil
}

func (r *Repository) GetUserEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := r.pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ports.ErrNotFound
		}
		return "", fmt.Errorf("select user email: %w", err)
	}
	return email, nil
}

func (r *Repository) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT order_id, product_id, quantity, unit_price::text
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY product_id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem)
	for rows.Next() {
		var orderID, price string
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if item.UnitPrice, err = parseDecimal(price); err != nil {
			return nil, err
		}
		items[orderID] = append(items[orderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanOrder(ctx context.Context, q queryRower, id string) (*domain.Order, error) {
	row := q.QueryRow(ctx, `
		SELECT id, user_id, subtotal::text, discount_amount::text, total_amount::text,
		       COALESCE(coupon_code, ''), payment_status, order_status,
		       gateway_order_id, COALESCE(gateway_payment_id, ''), created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id)

	order, err := scanOrderRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrderRow(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var subtotal, discount, total string
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&subtotal,
		&discount,
		&total,
		&order.CouponCode,
		&order.PaymentStatus,
		&order.OrderStatus,
		&order.GatewayOrderID,
		&order.GatewayPaymentID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if order.Subtotal, err = parseDecimal(subtotal); err != nil {
		return nil, err
	}
	if order.DiscountAmount, err = parseDecimal(discount); err != nil {
		return nil, err
	}
	if order.TotalAmount, err = parseDecimal(total); err != nil {
		return nil, err
	}

	return &order, nil
}

func parseDecimal(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decimal %q: %w", value, err)
	}
	return d, nil
}

func parseOptionalDecimal(value *string) (*decimal.Decimal, error) {
	if value == nil {
		return nil, nil
	}
	d, err := parseDecimal(*value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
