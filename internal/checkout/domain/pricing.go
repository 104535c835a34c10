package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// Quote is the priced outcome of a cart, before any order exists.
type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// PriceCart computes subtotal, coupon discount and total for the given cart
// items. A nil coupon means no discount. The coupon's redeemability, minimum
// amount and usage cap are all validated here; callers only need to have
// fetched the row.
//
// Percentage discounts are capped at the coupon's MaxDiscount when present.
// Fixed discounts are clamped to the subtotal so the total never goes negative.
func PriceCart(items []CartItem, coupon *Coupon, now time.Time) (Quote, error) {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	discount := decimal.Zero
	if coupon != nil {
		var err error
		discount, err = couponDiscount(subtotal, *coupon, now)
		if err != nil {
			return Quote{}, err
		}
	}

	return Quote{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal.Sub(discount),
	}, nil
}

func couponDiscount(subtotal decimal.Decimal, coupon Coupon, now time.Time) (decimal.Decimal, error) {
	if !coupon.IsRedeemable(now) {
		return decimal.Zero, ErrInvalidCoupon
	}

	if coupon.MinAmount != nil && subtotal.LessThan(*coupon.MinAmount) {
		return decimal.Zero, fmt.Errorf("%w: minimum order amount is %s", ErrCouponMinimumNotMet, coupon.MinAmount)
	}

	if coupon.IsExhausted() {
		return decimal.Zero, ErrCouponExhausted
	}

	var discount decimal.Decimal
	switch coupon.DiscountType {
	case DiscountPercentage:
		discount = subtotal.Mul(coupon.DiscountValue).Div(oneHundred)
		if coupon.MaxDiscount != nil && discount.GreaterThan(*coupon.MaxDiscount) {
			discount = *coupon.MaxDiscount
		}
	case DiscountFixed:
		discount = coupon.DiscountValue
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	default:
		return decimal.Zero, fmt.Errorf("%w: unknown discount type %q", ErrInvalidCoupon, coupon.DiscountType)
	}

	return discount, nil
}
