package purchase

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/inventory"
	"stocklot/internal/domain/ledger"
)

type passthroughTxManager struct{}

func (passthroughTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memRepo struct {
	purchases map[id.ID]*Purchase
	items     map[id.ID][]PurchaseItem
	received  map[id.ID]map[id.ID]int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		purchases: make(map[id.ID]*Purchase),
		items:     make(map[id.ID][]PurchaseItem),
		received:  make(map[id.ID]map[id.ID]int64),
	}
}

func (r *memRepo) Create(_ context.Context, p *Purchase, items []PurchaseItem) error {
	cp := *p
	r.purchases[p.ID] = &cp
	r.items[p.ID] = append([]PurchaseItem(nil), items...)
	return nil
}

func (r *memRepo) Get(_ context.Context, purchaseID id.ID) (*Purchase, error) {
	p, ok := r.purchases[purchaseID]
	if !ok {
		return nil, apperror.NewNotFound("purchase", purchaseID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) GetForUpdate(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	return r.Get(ctx, purchaseID)
}

func (r *memRepo) GetItems(_ context.Context, purchaseID id.ID) ([]PurchaseItem, error) {
	return append([]PurchaseItem(nil), r.items[purchaseID]...), nil
}

func (r *memRepo) UpdateStatus(_ context.Context, purchaseID id.ID, status Status) error {
	p, ok := r.purchases[purchaseID]
	if !ok {
		return apperror.NewNotFound("purchase", purchaseID.String())
	}
	p.Status = status
	return nil
}

func (r *memRepo) List(_ context.Context, _ Filter) ([]Purchase, error) {
	var out []Purchase
	for _, p := range r.purchases {
		out = append(out, *p)
	}
	return out, nil
}

func (r *memRepo) ReceivedQuantities(_ context.Context, purchaseID id.ID) (map[id.ID]int64, error) {
	out := make(map[id.ID]int64)
	for itemID, qty := range r.received[purchaseID] {
		out[itemID] = qty
	}
	return out, nil
}

// fakeInventory records Receive calls and feeds them back into the repo's
// received-so-far view, the way the movement log does in production. Calls
// carrying an already-claimed idempotency key replay: the original entry
// comes back and nothing is credited.
type fakeInventory struct {
	repo     *memRepo
	received []inventory.ReceiveCommand
	claimed  map[string]*inventory.InventoryEntry
	failAt   int // 1-based call index to fail on, 0 = never
}

func (f *fakeInventory) Receive(_ context.Context, cmd inventory.ReceiveCommand) (*inventory.InventoryEntry, bool, error) {
	if cmd.IdempotencyKey != "" {
		if entry, ok := f.claimed[cmd.IdempotencyKey]; ok {
			return entry, true, nil
		}
	}
	if f.failAt > 0 && len(f.received)+1 == f.failAt {
		return nil, false, apperror.NewInsufficientStock(cmd.ProductID.String(), cmd.Quantity, 0)
	}
	f.received = append(f.received, cmd)
	if cmd.Ref.Kind == "purchase" {
		itemID := cmd.Ref.ID
		for purchaseID, items := range f.repo.items {
			for _, item := range items {
				if item.ID == itemID {
					if f.repo.received[purchaseID] == nil {
						f.repo.received[purchaseID] = make(map[id.ID]int64)
					}
					f.repo.received[purchaseID][itemID] += cmd.Quantity
				}
			}
		}
	}
	entry := &inventory.InventoryEntry{ID: id.New(), ProductID: cmd.ProductID, CurrentQuantity: cmd.Quantity}
	if cmd.IdempotencyKey != "" {
		if f.claimed == nil {
			f.claimed = make(map[string]*inventory.InventoryEntry)
		}
		f.claimed[cmd.IdempotencyKey] = entry
	}
	return entry, false, nil
}

type fakePoster struct {
	posted []ledger.PostCommand
}

func (f *fakePoster) Post(_ context.Context, cmd ledger.PostCommand) (*ledger.Transaction, error) {
	f.posted = append(f.posted, cmd)
	return &ledger.Transaction{ID: id.New(), Type: cmd.Type, Amount: cmd.Amount, Status: ledger.StatusCompleted}, nil
}

func money(s string) types.Money { return decimal.RequireFromString(s) }

func setup(t *testing.T, tolerance float64) (*Service, *memRepo, *fakeInventory, *fakePoster) {
	t.Helper()
	repo := newMemRepo()
	inv := &fakeInventory{repo: repo}
	poster := &fakePoster{}
	svc := NewService(repo, inv, poster, nil, passthroughTxManager{}, tolerance)
	return svc, repo, inv, poster
}

func createTwoItemPurchase(t *testing.T, svc *Service) (*Purchase, []PurchaseItem) {
	t.Helper()
	created, err := svc.Create(context.Background(), CreateCommand{
		SupplierID: id.New(),
		BatchID:    id.New(),
		Items: []ItemCommand{
			{ProductID: id.New(), Quantity: 10, UnitCost: money("2.00")},
			{ProductID: id.New(), Quantity: 10, UnitCost: money("3.50")},
		},
	})
	require.NoError(t, err)
	items, err := svc.GetItems(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	return created, items
}

func TestCreate_ComputesLineTotals(t *testing.T) {
	svc, repo, _, _ := setup(t, 0)

	created, items := createTwoItemPurchase(t, svc)
	assert.Equal(t, StatusPending, created.Status)
	assert.True(t, items[0].TotalCost.Equal(money("20.00")))
	assert.True(t, items[1].TotalCost.Equal(money("35.00")))
	assert.Len(t, repo.purchases, 1)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _, _ := setup(t, 0)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateCommand{BatchID: id.New(), Items: []ItemCommand{{ProductID: id.New(), Quantity: 1}}})
	require.Error(t, err, "missing supplier")

	_, err = svc.Create(ctx, CreateCommand{SupplierID: id.New(), BatchID: id.New()})
	require.Error(t, err, "no items")

	_, err = svc.Create(ctx, CreateCommand{
		SupplierID: id.New(),
		BatchID:    id.New(),
		Items:      []ItemCommand{{ProductID: id.New(), Quantity: -1, UnitCost: money("1.00")}},
	})
	require.Error(t, err, "non-positive quantity")
}

func TestCreate_AcceptsZeroCostLine(t *testing.T) {
	svc, _, _, _ := setup(t, 0)

	created, err := svc.Create(context.Background(), CreateCommand{
		SupplierID: id.New(),
		BatchID:    id.New(),
		Items:      []ItemCommand{{ProductID: id.New(), Quantity: 5, UnitCost: money("0")}},
	})
	require.NoError(t, err)

	items, err := svc.GetItems(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].TotalCost.IsZero())
}

func TestReceive_PartialThenComplete(t *testing.T) {
	svc, repo, inv, poster := setup(t, 0)
	created, items := createTwoItemPurchase(t, svc)
	ctx := context.Background()

	receipt, err := svc.Receive(ctx, ReceiveCommand{
		PurchaseID: created.ID,
		Lines: []ReceivedLine{
			{PurchaseItemID: items[0].ID, QuantityReceived: 10},
			{PurchaseItemID: items[1].ID, QuantityReceived: 6},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, receipt.Purchase.Status)
	// 10*2.00 + 6*3.50
	assert.True(t, receipt.ReceivedValue.Equal(money("41.00")), "got %s", receipt.ReceivedValue)
	require.NotNil(t, receipt.TransactionID)
	require.Len(t, inv.received, 2)
	assert.Equal(t, created.BatchID, inv.received[0].BatchID)

	// Money out is posted negative.
	require.Len(t, poster.posted, 1)
	assert.Equal(t, ledger.TypePurchase, poster.posted[0].Type)
	assert.True(t, poster.posted[0].Amount.Equal(money("-41.00")))

	receipt, err = svc.Receive(ctx, ReceiveCommand{
		PurchaseID: created.ID,
		Lines:      []ReceivedLine{{PurchaseItemID: items[1].ID, QuantityReceived: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, receipt.Purchase.Status)
	assert.Equal(t, StatusReceived, repo.purchases[created.ID].Status)
}

func TestReceive_RetryDoesNotDoubleCount(t *testing.T) {
	svc, repo, _, poster := setup(t, 0)
	created, items := createTwoItemPurchase(t, svc)
	ctx := context.Background()

	cmd := ReceiveCommand{
		PurchaseID:     created.ID,
		Lines:          []ReceivedLine{{PurchaseItemID: items[0].ID, QuantityReceived: 5}},
		IdempotencyKey: "receive-retry-1",
	}

	receipt, err := svc.Receive(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, receipt.Purchase.Status)
	assert.True(t, receipt.ReceivedValue.Equal(money("10.00")))

	// The client retries after a lost response. The stock side replays, so
	// the purchase must stay partial with 5 units on record and no second
	// posting.
	receipt, err = svc.Receive(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, receipt.Purchase.Status)
	assert.Equal(t, StatusPartial, repo.purchases[created.ID].Status)
	assert.Equal(t, int64(5), repo.received[created.ID][items[0].ID])
	assert.True(t, receipt.ReceivedValue.IsZero(), "replay must not re-count value, got %s", receipt.ReceivedValue)
	assert.Len(t, poster.posted, 1)
}

func TestReceive_RetryOfExhaustedLineReplays(t *testing.T) {
	svc, repo, _, _ := setup(t, 0)
	created, items := createTwoItemPurchase(t, svc)
	ctx := context.Background()

	// The first attempt consumes item 0's entire ordered quantity; the
	// purchase stays partial because item 1 is still outstanding.
	cmd := ReceiveCommand{
		PurchaseID:     created.ID,
		Lines:          []ReceivedLine{{PurchaseItemID: items[0].ID, QuantityReceived: 10}},
		IdempotencyKey: "receive-retry-2",
	}

	receipt, err := svc.Receive(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, receipt.Purchase.Status)

	// Item 0 has no outstanding quantity left, but a retry of the same
	// receipt must replay rather than fail as over-delivery.
	receipt, err = svc.Receive(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, receipt.Purchase.Status)
	assert.Equal(t, int64(10), repo.received[created.ID][items[0].ID])
	assert.True(t, receipt.ReceivedValue.IsZero())
}

func TestReceive_RejectsOverDelivery(t *testing.T) {
	svc, _, inv, _ := setup(t, 0)
	created, items := createTwoItemPurchase(t, svc)

	_, err := svc.Receive(context.Background(), ReceiveCommand{
		PurchaseID: created.ID,
		Lines:      []ReceivedLine{{PurchaseItemID: items[0].ID, QuantityReceived: 11}},
	})
	require.Error(t, err)
	assert.Empty(t, inv.received, "no stock credited on a rejected receive")
}

func TestReceive_KeyedOverDeliveryStillRejected(t *testing.T) {
	svc, _, _, _ := setup(t, 0)
	created, items := createTwoItemPurchase(t, svc)

	// A fresh idempotency key is not a replay; genuine over-delivery fails.
	_, err := svc.Receive(context.Background(), ReceiveCommand{
		PurchaseID:     created.ID,
		Lines:          []ReceivedLine{{PurchaseItemID: items[0].ID, QuantityReceived: 11}},
		IdempotencyKey: "receive-over-1",
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestReceive_OverageWithinTolerance(t *testing.T) {
	svc, _, _, _ := setup(t, 0.1)
	created, items := createTwoItemPurchase(t, svc)
	ctx := context.Background()

	// 10 ordered, 10% tolerance: 11 accepted, 12 rejected.
	_, err := svc.Receive(ctx, ReceiveCommand{
		PurchaseID: created.ID,
		Lines:      []ReceivedLine{{PurchaseItemID: items[0].ID, QuantityReceived: 11}},
	})
	require.NoError(t, err)

	_, err = svc.Receive(ctx, ReceiveCommand{
		PurchaseID: created.ID,
		Lines:      []ReceivedLine{{PurchaseItemID: items[1].ID, QuantityReceived: 12}},
	})
	require.Error(t, err)
}

func TestReceive_ValidatesAllLinesBeforeCrediting(t *testing.T) {
	svc, _, inv, poster := setup(t, 0)
	created, items := createTwoItemPurchase(t, svc)

	// Second line is over-delivery; the first must not be credited.
	_, err := svc.Receive(context.Background(), ReceiveCommand{
		PurchaseID: created.ID,
		Lines: []ReceivedLine{
			{PurchaseItemID: items[0].ID, QuantityReceived: 5},
			{PurchaseItemID: items[1].ID, QuantityReceived: 50},
		},
	})
	require.Error(t, err)
	assert.Empty(t, inv.received)
	assert.Empty(t, poster.posted)
}

func TestReceive_CancelledPurchaseRejected(t *testing.T) {
	svc, _, _, _ := setup(t, 0)
	created, items := createTwoItemPurchase(t, svc)
	ctx := context.Background()

	_, err := svc.Cancel(ctx, created.ID)
	require.NoError(t, err)

	_, err = svc.Receive(ctx, ReceiveCommand{
		PurchaseID: created.ID,
		Lines:      []ReceivedLine{{PurchaseItemID: items[0].ID, QuantityReceived: 1}},
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidState, appErr.Code)
}

func TestCancel_OnlyBeforeFullyReceived(t *testing.T) {
	svc, _, _, _ := setup(t, 0)
	created, items := createTwoItemPurchase(t, svc)
	ctx := context.Background()

	_, err := svc.Receive(ctx, ReceiveCommand{
		PurchaseID: created.ID,
		Lines: []ReceivedLine{
			{PurchaseItemID: items[0].ID, QuantityReceived: 10},
			{PurchaseItemID: items[1].ID, QuantityReceived: 10},
		},
	})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, created.ID)
	require.Error(t, err)
}
