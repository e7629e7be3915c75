package iorderrepo

import (
	"context"

	"github.com/corray333/ordertrack/internal/service/models/order"
	"github.com/google/uuid"
)

// IOrderRepository is an interface for the order postgres repository.
type IOrderRepository interface {
	// Create inserts the order with its items and returns the stored order.
	Create(ctx context.Context, o *order.Order) (*order.Order, error)

	// GetByID retrieves an order with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error)

	// GetStatus retrieves just the current status of an order.
	GetStatus(ctx context.Context, id uuid.UUID) (order.Status, error)

	// FindActiveGuestOrder returns the most recent non-terminal guest order
	// placed from the given device, or ErrOrderNotFound.
	FindActiveGuestOrder(ctx context.Context, fingerprint string) (*order.Order, error)

	// Query retrieves orders matching the filter, items included.
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)

	// UpdateStatus persists the order's status and transition timestamps.
	// The write is conditional on the row still holding previous, so a
	// concurrent command cannot be overwritten; a lost guard reports
	// order.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, o *order.Order, previous order.Status) error

	// NextOrderNumber allocates the next human-facing order number.
	NextOrderNumber(ctx context.Context) (string, error)
}
