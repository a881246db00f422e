package batch

import (
	"context"

	"stocklot/internal/core/id"
)

// Filter narrows batch listings.
type Filter struct {
	Status     *Status
	SupplierID *id.ID
	Limit      int
	Offset     int
}

// Repository is the persistence contract for the batch registry.
type Repository interface {
	Create(ctx context.Context, b *Batch) error
	Get(ctx context.Context, batchID id.ID) (*Batch, error)
	GetForUpdate(ctx context.Context, batchID id.ID) (*Batch, error)
	GetByNumber(ctx context.Context, batchNumber string) (*Batch, error)
	UpdateStatus(ctx context.Context, batchID id.ID, status Status) error
	List(ctx context.Context, filter Filter) ([]Batch, error)

	// UnconsumedQuantity sums currentQuantity across the batch's entries.
	UnconsumedQuantity(ctx context.Context, batchID id.ID) (int64, error)
}
