package ports

import "context"

// EventBus defines the contract for publishing order lifecycle events.
type EventBus interface {
	PublishOrderPlaced(ctx context.Context, orderID string) error
	PublishOrderPaid(ctx context.Context, orderID string) error
	PublishOrderCanceled(ctx context.Context, orderID string) error
}
