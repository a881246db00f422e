package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocklot/internal/core/apperror"
	appctx "stocklot/internal/core/context"
	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
)

type passthroughTxManager struct{}

func (passthroughTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type opClaim struct {
	operation string
	entityID  id.ID
}

type memRepo struct {
	transactions map[id.ID]*Transaction
	opKeys       map[string]opClaim
}

func newMemRepo() *memRepo {
	return &memRepo{
		transactions: make(map[id.ID]*Transaction),
		opKeys:       make(map[string]opClaim),
	}
}

func (r *memRepo) Create(_ context.Context, t *Transaction) error {
	cp := *t
	r.transactions[t.ID] = &cp
	return nil
}

func (r *memRepo) Get(_ context.Context, txID id.ID) (*Transaction, error) {
	t, ok := r.transactions[txID]
	if !ok {
		return nil, apperror.NewNotFound("transaction", txID.String())
	}
	cp := *t
	return &cp, nil
}

func (r *memRepo) GetForUpdate(ctx context.Context, txID id.ID) (*Transaction, error) {
	return r.Get(ctx, txID)
}

func (r *memRepo) UpdateStatus(_ context.Context, txID id.ID, status Status) error {
	t, ok := r.transactions[txID]
	if !ok {
		return apperror.NewNotFound("transaction", txID.String())
	}
	t.Status = status
	return nil
}

func (r *memRepo) List(_ context.Context, _ Filter) ([]Transaction, error) {
	var out []Transaction
	for _, t := range r.transactions {
		out = append(out, *t)
	}
	return out, nil
}

func (r *memRepo) SumCompletedAsOf(_ context.Context, asOf time.Time, typ *TransactionType) (types.Money, error) {
	sum := decimal.Zero
	for _, t := range r.transactions {
		if t.Status != StatusCompleted || t.PaymentDate.After(asOf) {
			continue
		}
		if typ != nil && t.Type != *typ {
			continue
		}
		sum = sum.Add(t.Amount)
	}
	return sum, nil
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

func newTestService(repo *memRepo) *Service {
	return NewService(repo, nil, passthroughTxManager{})
}

func TestPost_SignPolicy(t *testing.T) {
	svc := newTestService(newMemRepo())

	tests := []struct {
		name    string
		typ     TransactionType
		amount  string
		wantErr bool
	}{
		{name: "sale positive", typ: TypeSale, amount: "150.00"},
		{name: "sale negative rejected", typ: TypeSale, amount: "-150.00", wantErr: true},
		{name: "purchase negative", typ: TypePurchase, amount: "-80.00"},
		{name: "purchase positive rejected", typ: TypePurchase, amount: "80.00", wantErr: true},
		{name: "expense negative", typ: TypeExpense, amount: "-10.00"},
		{name: "refund negative", typ: TypeRefund, amount: "-25.00"},
		{name: "adjustment either sign", typ: TypeAdjustment, amount: "-5.00"},
		{name: "opening balance positive", typ: TypeOpeningBalance, amount: "500.00"},
		{name: "zero amount rejected", typ: TypeAdjustment, amount: "0", wantErr: true},
		{name: "unknown type rejected", typ: TransactionType("transfer"), amount: "10.00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Post(context.Background(), PostCommand{
				Type:   tt.typ,
				Amount: decimal.RequireFromString(tt.amount),
			})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPost_StampsOperatorAndDefaults(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	operatorID := id.New()
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: operatorID.String()})

	posted, err := svc.Post(ctx, PostCommand{
		Type:   TypeSale,
		Amount: decimal.RequireFromString("99.90"),
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, posted.Status)
	assert.False(t, posted.PaymentDate.IsZero())
	require.NotNil(t, posted.ProcessedByID)
	assert.Equal(t, operatorID, *posted.ProcessedByID)
}

func TestPost_IdempotentReplay(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	cmd := PostCommand{
		Type:           TypeSale,
		Amount:         decimal.RequireFromString("42.00"),
		IdempotencyKey: "post-xyz",
	}

	first, err := svc.Post(context.Background(), cmd)
	require.NoError(t, err)

	second, err := svc.Post(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.transactions, 1)
}

func TestVoid_FlipsStatusOnce(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	posted, err := svc.Post(context.Background(), PostCommand{
		Type:   TypeSale,
		Amount: decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)

	voided, err := svc.Void(context.Background(), posted.ID, "duplicate entry")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, voided.Status)

	// Row is retained, amount untouched.
	stored := repo.transactions[posted.ID]
	assert.True(t, stored.Amount.Equal(decimal.RequireFromString("10.00")))

	_, err = svc.Void(context.Background(), posted.ID, "again")
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidState, appErr.Code)
}

func TestVoid_RequiresReason(t *testing.T) {
	svc := newTestService(newMemRepo())

	_, err := svc.Void(context.Background(), id.New(), "")
	require.Error(t, err)
}

func TestBalanceAsOf_ExcludesCancelledAndLater(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2026, 4, d, 12, 0, 0, 0, time.UTC) }

	sale, err := svc.Post(ctx, PostCommand{Type: TypeSale, Amount: decimal.RequireFromString("100.00"), PaymentDate: day(1)})
	require.NoError(t, err)
	_, err = svc.Post(ctx, PostCommand{Type: TypePurchase, Amount: decimal.RequireFromString("-40.00"), PaymentDate: day(2)})
	require.NoError(t, err)
	_, err = svc.Post(ctx, PostCommand{Type: TypeSale, Amount: decimal.RequireFromString("500.00"), PaymentDate: day(20)})
	require.NoError(t, err)

	cancelled, err := svc.Post(ctx, PostCommand{Type: TypeExpense, Amount: decimal.RequireFromString("-15.00"), PaymentDate: day(2)})
	require.NoError(t, err)
	_, err = svc.Void(ctx, cancelled.ID, "entered twice")
	require.NoError(t, err)

	balance, err := svc.BalanceAsOf(ctx, day(10), nil)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("60.00")), "got %s", balance)

	saleType := TypeSale
	balance, err = svc.BalanceAsOf(ctx, day(10), &saleType)
	require.NoError(t, err)
	assert.True(t, balance.Equal(sale.Amount))

	badType := TransactionType("transfer")
	_, err = svc.BalanceAsOf(ctx, day(10), &badType)
	require.Error(t, err)
}
