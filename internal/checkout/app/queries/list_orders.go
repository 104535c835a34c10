package queries

import (
	"context"

	"github.com/nfcstore/checkout/internal/checkout/domain"
	"github.com/nfcstore/checkout/internal/checkout/ports"
)

// ListOrdersQuery returns orders newest first, optionally scoped to one user.
type ListOrdersQuery struct {
	UserID   string
	Status   *domain.OrderStatus
	Page     int
	PageSize int
}

type ListOrdersQueryHandler struct {
	repo ports.CheckoutRepository
}

func NewListOrdersQueryHandler(repo ports.CheckoutRepository) *ListOrdersQueryHandler {
	return &ListOrdersQueryHandler{repo: repo}
}

func (h *ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) ([]domain.Order, error) {
	return h.repo.List(ctx, ports.ListFilter{
		UserID:   query.UserID,
		Status:   query.Status,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
}
