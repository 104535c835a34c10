package ports

import (
	"context"

	"github.com/nfcstore/checkout/internal/checkout/domain"
)

// Mailer sends transactional email. Delivery is best effort: callers log
// failures and never let them fail the triggering workflow.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, email string, order domain.Order) error
	SendLowStockAlert(ctx context.Context, product domain.Product) error
}
