package domain

import "errors"

// Checkout failure taxonomy. Every error here maps to a user-visible
// failure; none of them are retried by the server.
var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrInvalidCoupon        = errors.New("coupon is not valid")
	ErrCouponMinimumNotMet  = errors.New("order amount below coupon minimum")
	ErrCouponExhausted      = errors.New("coupon usage limit exceeded")
	ErrMissingPaymentFields = errors.New("all payment details are required")
	ErrInvalidSignature     = errors.New("invalid payment signature")
	ErrOrderMismatch        = errors.New("order id mismatch")
	ErrAlreadyProcessed     = errors.New("payment already processed")
	ErrNotCancelable        = errors.New("order cannot be canceled")
)
