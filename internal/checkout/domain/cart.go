package domain

import "github.com/shopspring/decimal"

// Cart holds a user's pending purchases. Carts are created lazily by the
// storefront on first access and emptied when payment is confirmed.
type Cart struct {
	ID     string     `json:"id"`
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
}

// CartItem joins a cart row with the product fields the checkout needs.
// Stock reflects the product's stock at load time; it is an advisory
// snapshot, not a reservation.
type CartItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Stock       int             `json:"stock"`
}

// IsEmpty reports whether there is anything to check out.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}
