package order

import (
	"context"

	"stocklot/internal/core/id"
)

// Filter narrows order listings.
type Filter struct {
	Status *Status
	Limit  int
	Offset int
}

// Repository is the persistence contract for orders.
type Repository interface {
	Create(ctx context.Context, o *Order, items []OrderItem) error
	Get(ctx context.Context, orderID id.ID) (*Order, error)
	GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error)
	GetItems(ctx context.Context, orderID id.ID) ([]OrderItem, error)
	UpdateStatus(ctx context.Context, orderID id.ID, status Status) error
	List(ctx context.Context, filter Filter) ([]Order, error)
}
