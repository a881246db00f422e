package inventory

import (
	"context"
	"time"

	"stocklot/internal/core/id"
	"stocklot/internal/core/refs"
	"stocklot/internal/core/types"
)

// EntryFilter narrows entry listings.
type EntryFilter struct {
	ProductID        *id.ID
	BatchID          *id.ID
	ExcludeExhausted bool
	Limit            int
	Offset           int
}

// MovementFilter narrows movement history listings.
type MovementFilter struct {
	EntryID   *id.ID
	ProductID *id.ID
	Type      *MovementType
	FromDate  *time.Time
	ToDate    *time.Time
	Limit     int
	Offset    int
}

// Repository is the persistence contract for the inventory ledger.
// Implementations must honor the ambient transaction from context.
type Repository interface {
	// CreateEntry inserts a new cost lot.
	CreateEntry(ctx context.Context, entry *InventoryEntry) error

	// GetEntry retrieves an entry by id.
	GetEntry(ctx context.Context, entryID id.ID) (*InventoryEntry, error)

	// GetEntryForUpdate retrieves an entry with a pessimistic row lock.
	GetEntryForUpdate(ctx context.Context, entryID id.ID) (*InventoryEntry, error)

	// OpenEntriesForUpdate locks and returns all entries for a product with
	// CurrentQuantity > 0, ordered by createdAt then id (FIFO order with a
	// deterministic tie-break). The locks are held until the transaction ends.
	OpenEntriesForUpdate(ctx context.Context, productID id.ID) ([]InventoryEntry, error)

	// SetEntryQuantity writes the new CurrentQuantity for an entry.
	SetEntryQuantity(ctx context.Context, entryID id.ID, quantity int64) error

	// InsertMovements appends movement rows.
	InsertMovements(ctx context.Context, movements []Movement) error

	// AvailableQuantity sums CurrentQuantity across a product's entries
	// without locking.
	AvailableQuantity(ctx context.Context, productID id.ID) (int64, error)

	// LastCostPrice returns the cost of the most recently received lot for a
	// product. The second return is false when the product has no lots.
	LastCostPrice(ctx context.Context, productID id.ID) (types.Money, bool, error)

	// OutMovementsByReference returns the "out" movements recorded for a
	// reference (used to reverse an order's consumption).
	OutMovementsByReference(ctx context.Context, ref refs.Ref) ([]Movement, error)

	// HasMovementsByReference reports whether any movement carries the ref.
	HasMovementsByReference(ctx context.Context, ref refs.Ref) (bool, error)

	// ListEntries retrieves entries with filtering.
	ListEntries(ctx context.Context, filter EntryFilter) ([]InventoryEntry, error)

	// ListMovements retrieves movement history with filtering.
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)

	// ClaimOperationKey atomically claims a service-level idempotency key.
	// On first claim it records entityID and returns (entityID, true).
	// On replay it returns the originally recorded entity id and false.
	ClaimOperationKey(ctx context.Context, key, operation string, entityID id.ID) (id.ID, bool, error)
}
