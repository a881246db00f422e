package adjustment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/batch"
	"stocklot/internal/domain/inventory"
	"stocklot/internal/domain/ledger"
)

type passthroughTxManager struct{}

func (passthroughTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeInventory struct {
	lastCost types.Money
	hasLast  bool

	receives []inventory.ReceiveCommand
	consumes []inventory.ConsumeCommand

	consumeAllocs []inventory.Allocation
	consumeErr    error
}

func (f *fakeInventory) Receive(_ context.Context, cmd inventory.ReceiveCommand) (*inventory.InventoryEntry, bool, error) {
	f.receives = append(f.receives, cmd)
	return &inventory.InventoryEntry{
		ID:              id.New(),
		ProductID:       cmd.ProductID,
		BatchID:         cmd.BatchID,
		CostPrice:       cmd.CostPrice,
		CurrentQuantity: cmd.Quantity,
	}, false, nil
}

func (f *fakeInventory) Consume(_ context.Context, cmd inventory.ConsumeCommand) ([]inventory.Allocation, error) {
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	f.consumes = append(f.consumes, cmd)
	return append([]inventory.Allocation(nil), f.consumeAllocs...), nil
}

func (f *fakeInventory) LastCostPrice(_ context.Context, _ id.ID) (types.Money, bool, error) {
	return f.lastCost, f.hasLast, nil
}

type fakeBatches struct {
	ensured []string
	batches map[string]*batch.Batch
}

func newFakeBatches() *fakeBatches {
	return &fakeBatches{batches: make(map[string]*batch.Batch)}
}

func (f *fakeBatches) EnsureReserved(_ context.Context, batchNumber string) (*batch.Batch, error) {
	f.ensured = append(f.ensured, batchNumber)
	b, ok := f.batches[batchNumber]
	if !ok {
		b = &batch.Batch{ID: id.New(), BatchNumber: batchNumber, Status: batch.StatusOpen}
		f.batches[batchNumber] = b
	}
	return b, nil
}

type fakePoster struct {
	posted []ledger.PostCommand
}

func (f *fakePoster) Post(_ context.Context, cmd ledger.PostCommand) (*ledger.Transaction, error) {
	f.posted = append(f.posted, cmd)
	return &ledger.Transaction{ID: id.New(), Type: cmd.Type, Amount: cmd.Amount}, nil
}

func money(s string) types.Money {
	return decimal.RequireFromString(s)
}

func setup(t *testing.T, policy CostPolicy, postsLedger bool) (*Service, *fakeInventory, *fakeBatches, *fakePoster) {
	t.Helper()
	inv := &fakeInventory{}
	batches := newFakeBatches()
	poster := &fakePoster{}
	svc, err := NewService(inv, batches, poster, passthroughTxManager{}, policy, postsLedger)
	require.NoError(t, err)
	return svc, inv, batches, poster
}

func TestNewService_RejectsUnknownPolicy(t *testing.T) {
	_, err := NewService(&fakeInventory{}, newFakeBatches(), &fakePoster{}, passthroughTxManager{}, CostPolicy("fifo"), false)
	require.Error(t, err)
}

func TestAdjust_Validation(t *testing.T) {
	svc, _, _, _ := setup(t, CostZero, false)
	ctx := context.Background()

	valid := Command{ProductID: id.New(), Direction: DirectionDecrease, Quantity: 1, Reason: "damaged"}

	tests := []struct {
		name   string
		mutate func(c *Command)
	}{
		{"nil product", func(c *Command) { c.ProductID = id.Nil() }},
		{"zero quantity", func(c *Command) { c.Quantity = 0 }},
		{"negative quantity", func(c *Command) { c.Quantity = -3 }},
		{"missing reason", func(c *Command) { c.Reason = "" }},
		{"unknown direction", func(c *Command) { c.Direction = Direction("sideways") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := valid
			tt.mutate(&cmd)
			_, err := svc.Adjust(ctx, cmd)
			require.Error(t, err)
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
		})
	}
}

func TestAdjust_IncreaseAtLastCost(t *testing.T) {
	svc, inv, batches, poster := setup(t, CostLastCost, true)
	inv.lastCost = money("2.50")
	inv.hasLast = true

	result, err := svc.Adjust(context.Background(), Command{
		ProductID: id.New(),
		Direction: DirectionIncrease,
		Quantity:  4,
		Reason:    "count correction",
	})
	require.NoError(t, err)

	require.Len(t, inv.receives, 1)
	assert.True(t, inv.receives[0].CostPrice.Equal(money("2.50")))
	assert.Equal(t, batches.batches[batch.NumberAdjustment].ID, inv.receives[0].BatchID)
	assert.Equal(t, []string{batch.NumberAdjustment}, batches.ensured)

	assert.True(t, result.Value.Equal(money("10.00")), "got %s", result.Value)
	require.NotNil(t, result.TransactionID)

	require.Len(t, poster.posted, 1)
	assert.Equal(t, ledger.TypeAdjustment, poster.posted[0].Type)
	assert.True(t, poster.posted[0].Amount.Equal(money("10.00")))
}

func TestAdjust_IncreaseWithoutCostHistoryBooksZero(t *testing.T) {
	svc, inv, _, poster := setup(t, CostLastCost, true)
	inv.hasLast = false

	result, err := svc.Adjust(context.Background(), Command{
		ProductID: id.New(),
		Direction: DirectionIncrease,
		Quantity:  4,
		Reason:    "found stock",
	})
	require.NoError(t, err)

	require.Len(t, inv.receives, 1)
	assert.True(t, inv.receives[0].CostPrice.IsZero())
	assert.True(t, result.Value.IsZero())

	// A zero-value adjustment has no monetary side to post.
	assert.Empty(t, poster.posted)
	assert.Nil(t, result.TransactionID)
}

func TestAdjust_IncreaseZeroPolicy(t *testing.T) {
	svc, inv, _, poster := setup(t, CostZero, true)
	inv.lastCost = money("9.99")
	inv.hasLast = true

	result, err := svc.Adjust(context.Background(), Command{
		ProductID: id.New(),
		Direction: DirectionIncrease,
		Quantity:  2,
		Reason:    "found stock",
	})
	require.NoError(t, err)

	assert.True(t, inv.receives[0].CostPrice.IsZero())
	assert.True(t, result.Value.IsZero())
	assert.Empty(t, poster.posted)
}

func TestAdjust_DecreaseConsumesAndPostsNegated(t *testing.T) {
	svc, inv, _, poster := setup(t, CostZero, true)
	inv.consumeAllocs = []inventory.Allocation{
		{EntryID: id.New(), QuantityTaken: 3, UnitCost: money("2.00")},
		{EntryID: id.New(), QuantityTaken: 2, UnitCost: money("3.00")},
	}

	result, err := svc.Adjust(context.Background(), Command{
		ProductID: id.New(),
		Direction: DirectionDecrease,
		Quantity:  5,
		Reason:    "damaged",
		Notes:     "water leak",
	})
	require.NoError(t, err)

	require.Len(t, inv.consumes, 1)
	assert.Equal(t, int64(5), inv.consumes[0].Quantity)
	assert.Equal(t, "damaged: water leak", inv.consumes[0].Notes)

	// 3*2.00 + 2*3.00
	assert.True(t, result.Value.Equal(money("12.00")), "got %s", result.Value)
	require.Len(t, poster.posted, 1)
	assert.True(t, poster.posted[0].Amount.Equal(money("-12.00")), "got %s", poster.posted[0].Amount)
}

func TestAdjust_DecreaseInsufficientStock(t *testing.T) {
	svc, inv, _, poster := setup(t, CostZero, true)
	inv.consumeErr = apperror.NewInsufficientStock(id.New().String(), 5, 2)

	_, err := svc.Adjust(context.Background(), Command{
		ProductID: id.New(),
		Direction: DirectionDecrease,
		Quantity:  5,
		Reason:    "damaged",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Empty(t, poster.posted)
}

func TestAdjust_LedgerPostingDisabled(t *testing.T) {
	svc, inv, _, poster := setup(t, CostZero, false)
	inv.consumeAllocs = []inventory.Allocation{
		{EntryID: id.New(), QuantityTaken: 2, UnitCost: money("4.00")},
	}

	result, err := svc.Adjust(context.Background(), Command{
		ProductID: id.New(),
		Direction: DirectionDecrease,
		Quantity:  2,
		Reason:    "loss",
	})
	require.NoError(t, err)

	assert.True(t, result.Value.Equal(money("8.00")))
	assert.Nil(t, result.TransactionID)
	assert.Empty(t, poster.posted)
}

func TestImportOpeningBalance(t *testing.T) {
	svc, inv, batches, poster := setup(t, CostZero, false)

	productID := id.New()
	result, err := svc.ImportOpeningBalance(context.Background(), OpeningBalanceCommand{
		ProductID:      productID,
		Quantity:       10,
		UnitCost:       money("1.50"),
		IdempotencyKey: "import-2026-01",
	})
	require.NoError(t, err)

	require.Len(t, inv.receives, 1)
	rcv := inv.receives[0]
	assert.Equal(t, productID, rcv.ProductID)
	assert.Equal(t, batches.batches[batch.NumberOpeningBalance].ID, rcv.BatchID)
	assert.Equal(t, "import-2026-01", rcv.IdempotencyKey)

	assert.True(t, result.Value.Equal(money("15.00")), "got %s", result.Value)
	require.NotNil(t, result.TransactionID)

	// Opening balances always post, regardless of the adjustment setting.
	require.Len(t, poster.posted, 1)
	assert.Equal(t, ledger.TypeOpeningBalance, poster.posted[0].Type)
	assert.True(t, poster.posted[0].Amount.Equal(money("15.00")))
	assert.Equal(t, "import-2026-01:tx", poster.posted[0].IdempotencyKey)
}

func TestImportOpeningBalance_Validation(t *testing.T) {
	svc, _, _, _ := setup(t, CostZero, false)
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  OpeningBalanceCommand
	}{
		{"nil product", OpeningBalanceCommand{Quantity: 1, UnitCost: money("1.00")}},
		{"zero quantity", OpeningBalanceCommand{ProductID: id.New(), UnitCost: money("1.00")}},
		{"negative cost", OpeningBalanceCommand{ProductID: id.New(), Quantity: 1, UnitCost: money("-1.00")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ImportOpeningBalance(ctx, tt.cmd)
			require.Error(t, err)
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
		})
	}
}
