package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a coupon's value is applied.
type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// Coupon is a redeemable discount code. MinAmount, MaxDiscount and UsageLimit
// are optional; nil means unconstrained.
type Coupon struct {
	ID            string           `json:"id"`
	Code          string           `json:"code"`
	DiscountType  DiscountType     `json:"discount_type"`
	DiscountValue decimal.Decimal  `json:"discount_value"`
	MinAmount     *decimal.Decimal `json:"min_amount,omitempty"`
	MaxDiscount   *decimal.Decimal `json:"max_discount,omitempty"`
	UsageLimit    *int             `json:"usage_limit,omitempty"`
	UsedCount     int              `json:"used_count"`
	ValidFrom     time.Time        `json:"valid_from"`
	ValidUntil    time.Time        `json:"valid_until"`
	IsActive      bool             `json:"is_active"`
}

// IsRedeemable reports whether the coupon is active and inside its validity window.
func (c Coupon) IsRedeemable(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	return !now.Before(c.ValidFrom) && !now.After(c.ValidUntil)
}

// IsExhausted reports whether the usage cap has been reached.
func (c Coupon) IsExhausted() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}
