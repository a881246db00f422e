package inventory

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/refs"
)

type passthroughTxManager struct{}

func (passthroughTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type opClaim struct {
	operation string
	entityID  id.ID
}

// memRepo is an in-memory Repository for service tests.
type memRepo struct {
	entries   map[id.ID]*InventoryEntry
	movements []Movement
	opKeys    map[string]opClaim
}

func newMemRepo() *memRepo {
	return &memRepo{
		entries: make(map[id.ID]*InventoryEntry),
		opKeys:  make(map[string]opClaim),
	}
}

func (r *memRepo) CreateEntry(_ context.Context, entry *InventoryEntry) error {
	cp := *entry
	r.entries[entry.ID] = &cp
	return nil
}

func (r *memRepo) GetEntry(_ context.Context, entryID id.ID) (*InventoryEntry, error) {
	e, ok := r.entries[entryID]
	if !ok {
		return nil, apperror.NewNotFound("inventory entry", entryID.String())
	}
	cp := *e
	return &cp, nil
}

func (r *memRepo) GetEntryForUpdate(ctx context.Context, entryID id.ID) (*InventoryEntry, error) {
	return r.GetEntry(ctx, entryID)
}

func (r *memRepo) OpenEntriesForUpdate(_ context.Context, productID id.ID) ([]InventoryEntry, error) {
	var out []InventoryEntry
	for _, e := range r.entries {
		if e.ProductID == productID && e.CurrentQuantity > 0 {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *memRepo) SetEntryQuantity(_ context.Context, entryID id.ID, quantity int64) error {
	e, ok := r.entries[entryID]
	if !ok {
		return apperror.NewNotFound("inventory entry", entryID.String())
	}
	e.CurrentQuantity = quantity
	return nil
}

func (r *memRepo) InsertMovements(_ context.Context, movements []Movement) error {
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *memRepo) AvailableQuantity(_ context.Context, productID id.ID) (int64, error) {
	var total int64
	for _, e := range r.entries {
		if e.ProductID == productID {
			total += e.CurrentQuantity
		}
	}
	return total, nil
}

func (r *memRepo) LastCostPrice(_ context.Context, productID id.ID) (decimal.Decimal, bool, error) {
	var latest *InventoryEntry
	for _, e := range r.entries {
		if e.ProductID != productID {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return decimal.Zero, false, nil
	}
	return latest.CostPrice, true, nil
}

func (r *memRepo) OutMovementsByReference(_ context.Context, ref refs.Ref) ([]Movement, error) {
	var out []Movement
	for _, m := range r.movements {
		if m.MovementType != MovementOut || m.ReferenceID == nil {
			continue
		}
		if *m.ReferenceID == ref.ID && *m.ReferenceType == string(ref.Kind) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memRepo) HasMovementsByReference(_ context.Context, ref refs.Ref) (bool, error) {
	for _, m := range r.movements {
		if m.ReferenceID != nil && *m.ReferenceID == ref.ID && *m.ReferenceType == string(ref.Kind) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) ListEntries(_ context.Context, _ EntryFilter) ([]InventoryEntry, error) {
	var out []InventoryEntry
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out, nil
}

func (r *memRepo) ListMovements(_ context.Context, _ MovementFilter) ([]Movement, error) {
	return r.movements, nil
}

func (r *memRepo) ClaimOperationKey(_ context.Context, key, operation string, entityID id.ID) (id.ID, bool, error) {
	if claim, ok := r.opKeys[key]; ok {
		if claim.operation != operation {
			return id.Nil(), false, apperror.NewIdempotencyMismatch(key)
		}
		return claim.entityID, false, nil
	}
	r.opKeys[key] = opClaim{operation: operation, entityID: entityID}
	return entityID, true, nil
}

func (r *memRepo) movementsOfType(mt MovementType) []Movement {
	var out []Movement
	for _, m := range r.movements {
		if m.MovementType == mt {
			out = append(out, m)
		}
	}
	return out
}

// closeRecorder records CloseIfExhausted calls.
type closeRecorder struct {
	closed []id.ID
}

func (c *closeRecorder) CloseIfExhausted(_ context.Context, batchID id.ID) (bool, error) {
	c.closed = append(c.closed, batchID)
	return true, nil
}

func seedEntry(repo *memRepo, productID, batchID id.ID, qty int64, cost string, createdAt time.Time) id.ID {
	entry := &InventoryEntry{
		ID:               id.New(),
		ProductID:        productID,
		BatchID:          batchID,
		CostPrice:        decimal.RequireFromString(cost),
		QuantityReceived: qty,
		CurrentQuantity:  qty,
		CreatedAt:        createdAt,
	}
	repo.entries[entry.ID] = entry
	return entry.ID
}

func newTestService(repo *memRepo, batches BatchRegistry) *Service {
	return NewService(repo, batches, nil, passthroughTxManager{})
}

func TestReceive_CreatesEntryAndMovement(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)

	entry, replayed, err := svc.Receive(context.Background(), ReceiveCommand{
		ProductID: id.New(),
		BatchID:   id.New(),
		CostPrice: decimal.RequireFromString("2.50"),
		Quantity:  10,
	})
	require.NoError(t, err)

	assert.False(t, replayed)
	assert.Equal(t, int64(10), entry.QuantityReceived)
	assert.Equal(t, int64(10), entry.CurrentQuantity)
	require.Len(t, repo.movements, 1)
	assert.Equal(t, MovementIn, repo.movements[0].MovementType)
	assert.Equal(t, int64(10), repo.movements[0].Quantity)
}

func TestReceive_RejectsNonPositiveQuantity(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)

	_, _, err := svc.Receive(context.Background(), ReceiveCommand{
		ProductID: id.New(),
		BatchID:   id.New(),
		Quantity:  0,
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestReceive_IdempotentReplay(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)

	cmd := ReceiveCommand{
		ProductID:      id.New(),
		BatchID:        id.New(),
		CostPrice:      decimal.RequireFromString("1.00"),
		Quantity:       5,
		IdempotencyKey: "receive-abc",
	}

	first, replayed, err := svc.Receive(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := svc.Receive(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, replayed)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.entries, 1)
	assert.Len(t, repo.movements, 1)
}

func TestConsume_FIFOAcrossLots(t *testing.T) {
	repo := newMemRepo()
	productID := id.New()
	batchID := id.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	lot1 := seedEntry(repo, productID, batchID, 5, "1.00", base)
	lot2 := seedEntry(repo, productID, batchID, 5, "2.00", base.Add(time.Hour))
	lot3 := seedEntry(repo, productID, batchID, 5, "3.00", base.Add(2*time.Hour))

	svc := newTestService(repo, nil)

	allocs, err := svc.Consume(context.Background(), ConsumeCommand{
		ProductID: productID,
		Quantity:  7,
	})
	require.NoError(t, err)

	require.Len(t, allocs, 2)
	assert.Equal(t, lot1, allocs[0].EntryID)
	assert.Equal(t, int64(5), allocs[0].QuantityTaken)
	assert.Equal(t, lot2, allocs[1].EntryID)
	assert.Equal(t, int64(2), allocs[1].QuantityTaken)

	assert.Equal(t, int64(0), repo.entries[lot1].CurrentQuantity)
	assert.Equal(t, int64(3), repo.entries[lot2].CurrentQuantity)
	assert.Equal(t, int64(5), repo.entries[lot3].CurrentQuantity)

	outs := repo.movementsOfType(MovementOut)
	require.Len(t, outs, 2)
}

func TestConsume_InsufficientStockLeavesEntriesUntouched(t *testing.T) {
	repo := newMemRepo()
	productID := id.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	lot1 := seedEntry(repo, productID, id.New(), 3, "1.00", base)
	lot2 := seedEntry(repo, productID, id.New(), 1, "1.00", base.Add(time.Minute))

	svc := newTestService(repo, nil)

	_, err := svc.Consume(context.Background(), ConsumeCommand{
		ProductID: productID,
		Quantity:  7,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	assert.Equal(t, int64(3), repo.entries[lot1].CurrentQuantity)
	assert.Equal(t, int64(1), repo.entries[lot2].CurrentQuantity)
	assert.Empty(t, repo.movements)
}

func TestConsume_ClosesExhaustedBatches(t *testing.T) {
	repo := newMemRepo()
	productID := id.New()
	batchID := id.New()
	seedEntry(repo, productID, batchID, 4, "1.00", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	batches := &closeRecorder{}
	svc := newTestService(repo, batches)

	_, err := svc.Consume(context.Background(), ConsumeCommand{
		ProductID: productID,
		Quantity:  4,
	})
	require.NoError(t, err)

	require.Len(t, batches.closed, 1)
	assert.Equal(t, batchID, batches.closed[0])
}

func TestAdjust_BoundsAndMovement(t *testing.T) {
	repo := newMemRepo()
	productID := id.New()
	entryID := seedEntry(repo, productID, id.New(), 10, "1.00", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	repo.entries[entryID].CurrentQuantity = 6

	svc := newTestService(repo, nil)

	tests := []struct {
		name    string
		delta   int64
		wantErr bool
		wantQty int64
	}{
		{name: "decrease within range", delta: -2, wantQty: 4},
		{name: "increase within headroom", delta: 3, wantQty: 7},
		{name: "below zero rejected", delta: -20, wantErr: true},
		{name: "above received rejected", delta: 20, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := repo.entries[entryID].CurrentQuantity
			entry, err := svc.Adjust(context.Background(), AdjustCommand{
				EntryID: entryID,
				Delta:   tt.delta,
				Reason:  "cycle count",
			})
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, before, repo.entries[entryID].CurrentQuantity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantQty, entry.CurrentQuantity)
		})
	}

	adjustments := repo.movementsOfType(MovementAdjustment)
	require.Len(t, adjustments, 2)
	assert.Equal(t, int64(-2), adjustments[0].Quantity)
	assert.Equal(t, int64(3), adjustments[1].Quantity)
}

func TestAdjust_RequiresReason(t *testing.T) {
	repo := newMemRepo()
	entryID := seedEntry(repo, id.New(), id.New(), 10, "1.00", time.Now().UTC())
	svc := newTestService(repo, nil)

	_, err := svc.Adjust(context.Background(), AdjustCommand{EntryID: entryID, Delta: -1})
	require.Error(t, err)
}

func TestReverseConsumption_CreditsAndRejectsSecondRun(t *testing.T) {
	repo := newMemRepo()
	productID := id.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	lot1 := seedEntry(repo, productID, id.New(), 5, "1.00", base)
	lot2 := seedEntry(repo, productID, id.New(), 5, "2.00", base.Add(time.Hour))

	svc := newTestService(repo, nil)

	orderRef := refs.MustNew(refs.KindOrder, id.New())
	refundRef := refs.MustNew(refs.KindRefund, orderRef.ID)

	_, err := svc.Consume(context.Background(), ConsumeCommand{
		ProductID: productID,
		Quantity:  7,
		Ref:       orderRef,
	})
	require.NoError(t, err)

	credited, err := svc.ReverseConsumption(context.Background(), ReverseCommand{
		Of: orderRef,
		As: refundRef,
	})
	require.NoError(t, err)

	var total int64
	for _, c := range credited {
		total += c.QuantityTaken
	}
	assert.Equal(t, int64(7), total)
	assert.Equal(t, int64(5), repo.entries[lot1].CurrentQuantity)
	assert.Equal(t, int64(5), repo.entries[lot2].CurrentQuantity)

	_, err = svc.ReverseConsumption(context.Background(), ReverseCommand{
		Of: orderRef,
		As: refundRef,
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidState, appErr.Code)
}

func TestReverseConsumption_NothingToReverse(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)

	_, err := svc.ReverseConsumption(context.Background(), ReverseCommand{
		Of: refs.MustNew(refs.KindOrder, id.New()),
		As: refs.MustNew(refs.KindRefund, id.New()),
	})
	require.Error(t, err)
}

func TestAvailableQuantity(t *testing.T) {
	repo := newMemRepo()
	productID := id.New()
	seedEntry(repo, productID, id.New(), 5, "1.00", time.Now().UTC())
	seedEntry(repo, productID, id.New(), 3, "1.00", time.Now().UTC())
	seedEntry(repo, id.New(), id.New(), 99, "1.00", time.Now().UTC())

	svc := newTestService(repo, nil)

	got, err := svc.AvailableQuantity(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), got)
}
