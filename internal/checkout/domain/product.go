package domain

import "github.com/shopspring/decimal"

// Product carries the catalog fields the checkout workflow touches.
// Stock must never go negative; the repository enforces this with a
// conditional decrement.
type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	Stock             int             `json:"stock"`
	LowStockThreshold int             `json:"low_stock_threshold"`
}

// IsLowStock reports whether the product has fallen to or below its alert threshold.
func (p Product) IsLowStock() bool {
	return p.LowStockThreshold > 0 && p.Stock <= p.LowStockThreshold
}
