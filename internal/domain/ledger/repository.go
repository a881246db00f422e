package ledger

import (
	"context"
	"time"

	"stocklot/internal/core/id"
	"stocklot/internal/core/refs"
	"stocklot/internal/core/types"
)

// Filter narrows transaction listings. Zero values mean "no constraint".
type Filter struct {
	Type     *TransactionType
	Status   *Status
	Ref      *refs.Ref
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// Repository is the persistence contract for the transaction ledger.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	Get(ctx context.Context, txID id.ID) (*Transaction, error)
	GetForUpdate(ctx context.Context, txID id.ID) (*Transaction, error)
	UpdateStatus(ctx context.Context, txID id.ID, status Status) error
	List(ctx context.Context, filter Filter) ([]Transaction, error)

	// SumCompletedAsOf returns the signed sum of completed transactions with
	// paymentDate <= asOf, optionally restricted to one type.
	SumCompletedAsOf(ctx context.Context, asOf time.Time, typ *TransactionType) (types.Money, error)

	// ClaimOperationKey registers an idempotency key for a posting operation.
	// Returns the entity id already bound to the key and claimed=false when
	// the key was seen before.
	ClaimOperationKey(ctx context.Context, key, operation string, entityID id.ID) (id.ID, bool, error)
}
