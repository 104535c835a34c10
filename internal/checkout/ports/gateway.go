package ports

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// GatewayOrder is the payment-processor-side record created before the user
// completes payment. Amount is in the currency's minor unit. KeyID is the
// publishable key the client needs to open the payment widget.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key"`
}

// PaymentGateway wraps order creation and signature verification with the
// external payment processor.
type PaymentGateway interface {
	// CreateOrder registers a gateway order for the given amount in base
	// currency units. A blank receipt gets a generated reference. Failures
	// surface as *GatewayError and are not retried; the caller aborts.
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*GatewayOrder, error)

	// VerifySignature recomputes the payment-completion signature and reports
	// whether the provided one matches. This is the authenticity check for
	// "payment succeeded".
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool
}

// GatewayError wraps any transport or API-level failure from the payment gateway.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
