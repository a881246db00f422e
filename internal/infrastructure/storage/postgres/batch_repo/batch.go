// Package batch_repo provides the PostgreSQL implementation of the batch
// registry repository.
package batch_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocklot/internal/core/id"
	"stocklot/internal/domain/batch"
	"stocklot/internal/infrastructure/storage/postgres"
)

const batchesTable = "batches"

var batchColumns = []string{
	"id", `"batchNumber"`, `"supplierId"`, "status",
	`"receivedAt"`, `"closedAt"`, "notes", `"createdAt"`,
}

// Repo implements batch.Repository.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewRepo creates the batch repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new batch.
func (r *Repo) Create(ctx context.Context, b *batch.Batch) error {
	q := r.builder.Insert(batchesTable).
		Columns(batchColumns...).
		Values(b.ID, b.BatchNumber, b.SupplierID, b.Status, b.ReceivedAt, b.ClosedAt, b.Notes, b.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert batch: %w", err), "batch", b.ID.String())
	}
	return nil
}

// Get retrieves a batch by id.
func (r *Repo) Get(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{"id": batchID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b batch.Batch
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &b, sql, args...); err != nil {
		return nil, postgres.MapError(err, "batch", batchID.String())
	}
	return &b, nil
}

// GetForUpdate retrieves a batch with a pessimistic row lock.
func (r *Repo) GetForUpdate(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	sql := `
		SELECT id, "batchNumber", "supplierId", status, "receivedAt", "closedAt", notes, "createdAt"
		FROM batches
		WHERE id = $1
		FOR UPDATE
	`

	var b batch.Batch
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &b, sql, batchID); err != nil {
		return nil, postgres.MapError(err, "batch", batchID.String())
	}
	return &b, nil
}

// GetByNumber retrieves a batch by its unique number.
func (r *Repo) GetByNumber(ctx context.Context, batchNumber string) (*batch.Batch, error) {
	q := r.builder.Select(batchColumns...).
		From(batchesTable).
		Where(squirrel.Eq{`"batchNumber"`: batchNumber}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var b batch.Batch
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &b, sql, args...); err != nil {
		return nil, postgres.MapError(err, "batch", batchNumber)
	}
	return &b, nil
}

// UpdateStatus writes a new batch status; closing stamps closedAt.
func (r *Repo) UpdateStatus(ctx context.Context, batchID id.ID, status batch.Status) error {
	q := r.builder.Update(batchesTable).
		Set("status", status).
		Where(squirrel.Eq{"id": batchID})
	if status == batch.StatusClosed {
		q = q.Set(`"closedAt"`, time.Now().UTC())
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("update status: %w", err), "batch", batchID.String())
	}
	return nil
}

// List retrieves batches with filtering.
func (r *Repo) List(ctx context.Context, filter batch.Filter) ([]batch.Batch, error) {
	q := r.builder.Select(batchColumns...).From(batchesTable)

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{`"supplierId"`: *filter.SupplierID})
	}

	q = q.OrderBy(`"receivedAt" DESC`, "id")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []batch.Batch
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &batches, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("select batches: %w", err), "batches", "")
	}
	return batches, nil
}

// UnconsumedQuantity sums remaining stock across the batch's entries.
func (r *Repo) UnconsumedQuantity(ctx context.Context, batchID id.ID) (int64, error) {
	sql := `
		SELECT COALESCE(SUM("currentQuantity"), 0)
		FROM "inventoryEntries"
		WHERE "batchId" = $1
	`

	var total int64
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, batchID).Scan(&total); err != nil {
		return 0, postgres.MapError(fmt.Errorf("sum batch stock: %w", err), "batch", batchID.String())
	}
	return total, nil
}

// Ensure interface compliance.
var _ batch.Repository = (*Repo)(nil)
