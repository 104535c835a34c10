package mailer

import (
	"context"
	"log/slog"

	"github.com/nfcstore/checkout/internal/checkout/domain"
)

// Noop logs mail instead of sending it. Used when email delivery is disabled.
type Noop struct{}

// NewNoop returns a mailer that only logs.
func NewNoop() *Noop {
	return &Noop{}
}

func (n *Noop) SendOrderConfirmation(_ context.Context, email string, order domain.Order) error {
	slog.Debug("mail::order_confirmation", "to", email, "order_id", order.ID)
	return nil
}

func (n *Noop) SendLowStockAlert(_ context.Context, product domain.Product) error {
	slog.Debug("mail::low_stock_alert", "product_id", product.ID, "stock", product.Stock)
	return nil
}
