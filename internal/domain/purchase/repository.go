package purchase

import (
	"context"

	"stocklot/internal/core/id"
)

// Filter narrows purchase listings.
type Filter struct {
	Status     *Status
	SupplierID *id.ID
	Limit      int
	Offset     int
}

// Repository is the persistence contract for purchases.
type Repository interface {
	Create(ctx context.Context, p *Purchase, items []PurchaseItem) error
	Get(ctx context.Context, purchaseID id.ID) (*Purchase, error)
	GetForUpdate(ctx context.Context, purchaseID id.ID) (*Purchase, error)
	GetItems(ctx context.Context, purchaseID id.ID) ([]PurchaseItem, error)
	UpdateStatus(ctx context.Context, purchaseID id.ID, status Status) error
	List(ctx context.Context, filter Filter) ([]Purchase, error)

	// ReceivedQuantities returns, per purchase item id, the quantity already
	// received, derived from the inventory movement log (movements whose
	// reference points at the purchase item).
	ReceivedQuantities(ctx context.Context, purchaseID id.ID) (map[id.ID]int64, error)
}
