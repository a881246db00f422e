package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/numerator"
)

type passthroughTxManager struct{}

func (passthroughTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memRepo struct {
	batches    map[id.ID]*Batch
	unconsumed map[id.ID]int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		batches:    make(map[id.ID]*Batch),
		unconsumed: make(map[id.ID]int64),
	}
}

func (r *memRepo) Create(_ context.Context, b *Batch) error {
	for _, existing := range r.batches {
		if existing.BatchNumber == b.BatchNumber {
			return apperror.NewDuplicate("batch", "batchNumber", b.BatchNumber)
		}
	}
	cp := *b
	r.batches[b.ID] = &cp
	return nil
}

func (r *memRepo) Get(_ context.Context, batchID id.ID) (*Batch, error) {
	b, ok := r.batches[batchID]
	if !ok {
		return nil, apperror.NewNotFound("batch", batchID.String())
	}
	cp := *b
	return &cp, nil
}

func (r *memRepo) GetForUpdate(ctx context.Context, batchID id.ID) (*Batch, error) {
	return r.Get(ctx, batchID)
}

func (r *memRepo) GetByNumber(_ context.Context, batchNumber string) (*Batch, error) {
	for _, b := range r.batches {
		if b.BatchNumber == batchNumber {
			cp := *b
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("batch", batchNumber)
}

func (r *memRepo) UpdateStatus(_ context.Context, batchID id.ID, status Status) error {
	b, ok := r.batches[batchID]
	if !ok {
		return apperror.NewNotFound("batch", batchID.String())
	}
	b.Status = status
	return nil
}

func (r *memRepo) List(_ context.Context, _ Filter) ([]Batch, error) {
	var out []Batch
	for _, b := range r.batches {
		out = append(out, *b)
	}
	return out, nil
}

func (r *memRepo) UnconsumedQuantity(_ context.Context, batchID id.ID) (int64, error) {
	return r.unconsumed[batchID], nil
}

func newTestService(repo *memRepo, numbers numerator.Generator) *Service {
	return NewService(repo, nil, numbers, passthroughTxManager{})
}

func TestRegister_DuplicateNumberRejected(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterCommand{BatchNumber: "BATCH-2026-00001"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterCommand{BatchNumber: "BATCH-2026-00001"})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
}

func TestRegister_GeneratesNumberWhenOmitted(t *testing.T) {
	repo := newMemRepo()
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(_ context.Context, cfg numerator.Config, _ *numerator.Options, period time.Time) (string, error) {
			return cfg.Prefix + "-" + period.Format("2006") + "-00007", nil
		},
	}
	svc := newTestService(repo, gen)

	created, err := svc.Register(context.Background(), RegisterCommand{
		ReceivedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "BATCH-2026-00007", created.BatchNumber)
}

func TestRegister_NumberRequiredWithoutGenerator(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)

	_, err := svc.Register(context.Background(), RegisterCommand{})
	require.Error(t, err)
}

func TestClose_OpenToClosedOnly(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	created, err := svc.Register(ctx, RegisterCommand{BatchNumber: "B-1"})
	require.NoError(t, err)

	closed, err := svc.Close(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	_, err = svc.Close(ctx, created.ID)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidState, appErr.Code)
}

func TestCloseIfExhausted(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	regular, err := svc.Register(ctx, RegisterCommand{BatchNumber: "B-2"})
	require.NoError(t, err)

	repo.unconsumed[regular.ID] = 3
	closed, err := svc.CloseIfExhausted(ctx, regular.ID)
	require.NoError(t, err)
	assert.False(t, closed)

	repo.unconsumed[regular.ID] = 0
	closed, err = svc.CloseIfExhausted(ctx, regular.ID)
	require.NoError(t, err)
	assert.True(t, closed)

	// Already closed: no-op.
	closed, err = svc.CloseIfExhausted(ctx, regular.ID)
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestCloseIfExhausted_SkipsReservedBatches(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	for _, number := range []string{NumberAdjustment, NumberOpeningBalance} {
		reserved, err := svc.EnsureReserved(ctx, number)
		require.NoError(t, err)

		closed, err := svc.CloseIfExhausted(ctx, reserved.ID)
		require.NoError(t, err)
		assert.False(t, closed, "reserved batch %s must stay open", number)
		assert.Equal(t, StatusOpen, repo.batches[reserved.ID].Status)
	}
}

func TestEnsureReserved_CreatesOnce(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	first, err := svc.EnsureReserved(ctx, NumberAdjustment)
	require.NoError(t, err)
	assert.Nil(t, first.SupplierID)
	assert.Equal(t, StatusOpen, first.Status)

	second, err := svc.EnsureReserved(ctx, NumberAdjustment)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.batches, 1)
}
