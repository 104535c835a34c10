package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nfcstore/checkout/internal/checkout/domain"
	"github.com/nfcstore/checkout/internal/checkout/ports"
)

// ConfirmPaymentCommand finishes phase two of checkout: verify the payment
// callback and apply the paid-order side effects.
type ConfirmPaymentCommand struct {
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

func (c ConfirmPaymentCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" ||
		strings.TrimSpace(c.GatewayOrderID) == "" ||
		strings.TrimSpace(c.GatewayPaymentID) == "" ||
		strings.TrimSpace(c.Signature) == "" {
		return domain.ErrMissingPaymentFields
	}
	return nil
}

type ConfirmPaymentHandler interface {
	Handle(ctx context.Context, cmd ConfirmPaymentCommand) (*domain.Order, error)
}

type ConfirmPaymentCommandHandler struct {
	repo    ports.CheckoutRepository
	gateway ports.PaymentGateway
	mailer  ports.Mailer
	events  ports.EventBus
	logger  *slog.Logger
}

func NewConfirmPaymentCommandHandler(
	repo ports.CheckoutRepository,
	gateway ports.PaymentGateway,
	mailer ports.Mailer,
	events ports.EventBus,
	logger *slog.Logger,
) *ConfirmPaymentCommandHandler {
	return &ConfirmPaymentCommandHandler{
		repo:    repo,
		gateway: gateway,
		mailer:  mailer,
		events:  events,
		logger:  logger,
	}
}

// Handle verifies the signature, checks the order matches the gateway order it
// was created against, and applies the PAID transition. Everything up to and
// including MarkPaid either fully lands or leaves the order PENDING; email and
// event emission afterwards are best effort.
func (h *ConfirmPaymentCommandHandler) Handle(ctx context.Context, cmd ConfirmPaymentCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if !h.gateway.VerifySignature(cmd.GatewayOrderID, cmd.GatewayPaymentID, cmd.Signature) {
		return nil, domain.ErrInvalidSignature
	}

	order, err := h.repo.GetOrderByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	// Defends against replaying a valid signature from one order against another.
	if order.GatewayOrderID != cmd.GatewayOrderID {
		return nil, domain.ErrOrderMismatch
	}

	// Early exit for orders whose lifecycle already ended; MarkPaid enforces
	// the same rule transactionally for races this read cannot see.
	if order.IsTerminal() {
		return nil, domain.ErrAlreadyProcessed
	}

	updated, lowStock, err := h.repo.MarkPaid(ctx, order.ID, cmd.GatewayPaymentID)
	if err != nil {
		return nil, err
	}

	h.notify(ctx, updated, lowStock)

	if err := h.events.PublishOrderPaid(ctx, updated.ID); err != nil {
		h.logger.WarnContext(ctx, "failed to publish order paid event",
			"order_id", updated.ID,
			"error", err,
		)
	}

	return updated, nil
}

// notify sends the confirmation email and any low-stock alerts. Failures are
// logged and dropped; delivery is not part of the payment contract.
func (h *ConfirmPaymentCommandHandler) notify(ctx context.Context, order *domain.Order, lowStock []domain.Product) {
	email, err := h.repo.GetUserEmail(ctx, order.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to resolve user email for confirmation",
			"order_id", order.ID,
			"user_id", order.UserID,
			"error", err,
		)
	} else if err := h.mailer.SendOrderConfirmation(ctx, email, *order); err != nil {
		h.logger.ErrorContext(ctx, "failed to send order confirmation email",
			"order_id", order.ID,
			"error", err,
		)
	}

	for _, product := range lowStock {
		if err := h.mailer.SendLowStockAlert(ctx, product); err != nil {
			h.logger.ErrorContext(ctx, "failed to send low stock alert",
				"product_id", product.ID,
				"error", err,
			)
		}
	}
}
