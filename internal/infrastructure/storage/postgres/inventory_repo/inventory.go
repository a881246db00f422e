// Package inventory_repo provides the PostgreSQL implementation of the
// inventory ledger repository. Table and column names are camelCase and
// quoted to stay bit-compatible with the original schema.
package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"stocklot/internal/core/id"
	"stocklot/internal/core/refs"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/inventory"
	"stocklot/internal/infrastructure/storage/postgres"
)

const (
	entriesTable   = `"inventoryEntries"`
	movementsTable = `"inventoryMovements"`
)

var entryColumns = []string{
	"id", `"productId"`, `"batchId"`, `"costPrice"`, `"sellingPrice"`,
	`"quantityReceived"`, `"currentQuantity"`, `"expiryDate"`, `"createdAt"`,
}

var movementColumns = []string{
	"id", `"inventoryEntryId"`, "quantity", `"movementType"`,
	`"referenceId"`, `"referenceType"`, "notes", `"createdAt"`,
}

// Repo implements inventory.Repository.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	opKeys  *postgres.OperationKeyStore
	bulk    *postgres.BulkInserter
}

// NewRepo creates the inventory repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		opKeys:  postgres.NewOperationKeyStore(txm),
		bulk:    postgres.NewBulkInserter(txm),
	}
}

// CreateEntry inserts a new cost lot.
func (r *Repo) CreateEntry(ctx context.Context, entry *inventory.InventoryEntry) error {
	q := r.builder.Insert(entriesTable).
		Columns(entryColumns...).
		Values(
			entry.ID, entry.ProductID, entry.BatchID, entry.CostPrice, entry.SellingPrice,
			entry.QuantityReceived, entry.CurrentQuantity, entry.ExpiryDate, entry.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert entry: %w", err), "inventory entry", entry.ID.String())
	}
	return nil
}

// GetEntry retrieves an entry by id.
func (r *Repo) GetEntry(ctx context.Context, entryID id.ID) (*inventory.InventoryEntry, error) {
	q := r.builder.Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{"id": entryID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entry inventory.InventoryEntry
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &entry, sql, args...); err != nil {
		return nil, postgres.MapError(err, "inventory entry", entryID.String())
	}
	return &entry, nil
}

// GetEntryForUpdate retrieves an entry with a pessimistic row lock.
func (r *Repo) GetEntryForUpdate(ctx context.Context, entryID id.ID) (*inventory.InventoryEntry, error) {
	sql := `
		SELECT id, "productId", "batchId", "costPrice", "sellingPrice",
		       "quantityReceived", "currentQuantity", "expiryDate", "createdAt"
		FROM "inventoryEntries"
		WHERE id = $1
		FOR UPDATE
	`

	var entry inventory.InventoryEntry
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &entry, sql, entryID); err != nil {
		return nil, postgres.MapError(err, "inventory entry", entryID.String())
	}
	return &entry, nil
}

// OpenEntriesForUpdate locks a product's open lots in FIFO order. Oldest
// createdAt wins, id breaks ties deterministically.
func (r *Repo) OpenEntriesForUpdate(ctx context.Context, productID id.ID) ([]inventory.InventoryEntry, error) {
	sql := `
		SELECT id, "productId", "batchId", "costPrice", "sellingPrice",
		       "quantityReceived", "currentQuantity", "expiryDate", "createdAt"
		FROM "inventoryEntries"
		WHERE "productId" = $1 AND "currentQuantity" > 0
		ORDER BY "createdAt", id
		FOR UPDATE
	`

	var entries []inventory.InventoryEntry
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &entries, sql, productID); err != nil {
		return nil, postgres.MapError(fmt.Errorf("lock open entries: %w", err), "inventory entries", productID.String())
	}
	return entries, nil
}

// SetEntryQuantity writes the new current quantity for an entry.
func (r *Repo) SetEntryQuantity(ctx context.Context, entryID id.ID, quantity int64) error {
	q := r.builder.Update(entriesTable).
		Set(`"currentQuantity"`, quantity).
		Where(squirrel.Eq{"id": entryID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update quantity: %w", err), "inventory entry", entryID.String())
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(pgx.ErrNoRows, "inventory entry", entryID.String())
	}
	return nil
}

// InsertMovements appends movement rows. Uses COPY inside a transaction,
// multi-row INSERT otherwise.
func (r *Repo) InsertMovements(ctx context.Context, movements []inventory.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	if tx := r.txm.GetTx(ctx); tx != nil {
		columns := []string{
			"id", "inventoryEntryId", "quantity", "movementType",
			"referenceId", "referenceType", "notes", "createdAt",
		}
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, []any{
				m.ID, m.InventoryEntryID, m.Quantity, m.MovementType,
				m.ReferenceID, m.ReferenceType, m.Notes, m.CreatedAt,
			})
		}
		if _, err := r.bulk.CopyFromSlice(ctx, "inventoryMovements", columns, rows); err != nil {
			return postgres.MapError(fmt.Errorf("copy movements: %w", err), "inventory movements", "")
		}
		return nil
	}

	q := r.builder.Insert(movementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(
			m.ID, m.InventoryEntryID, m.Quantity, m.MovementType,
			m.ReferenceID, m.ReferenceType, m.Notes, m.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert movements: %w", err), "inventory movements", "")
	}
	return nil
}

// AvailableQuantity sums current quantity across a product's lots.
func (r *Repo) AvailableQuantity(ctx context.Context, productID id.ID) (int64, error) {
	sql := `
		SELECT COALESCE(SUM("currentQuantity"), 0)
		FROM "inventoryEntries"
		WHERE "productId" = $1
	`

	var total int64
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, productID).Scan(&total); err != nil {
		return 0, postgres.MapError(fmt.Errorf("sum available quantity: %w", err), "inventory entries", productID.String())
	}
	return total, nil
}

// LastCostPrice returns the most recent lot cost for a product.
func (r *Repo) LastCostPrice(ctx context.Context, productID id.ID) (types.Money, bool, error) {
	sql := `
		SELECT "costPrice"
		FROM "inventoryEntries"
		WHERE "productId" = $1
		ORDER BY "createdAt" DESC, id DESC
		LIMIT 1
	`

	var cost decimal.Decimal
	err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, productID).Scan(&cost)
	if err != nil {
		if err == pgx.ErrNoRows {
			return types.ZeroMoney(), false, nil
		}
		return types.ZeroMoney(), false, postgres.MapError(fmt.Errorf("last cost: %w", err), "inventory entries", productID.String())
	}
	return cost, true, nil
}

// OutMovementsByReference returns the "out" movements recorded for a ref.
func (r *Repo) OutMovementsByReference(ctx context.Context, ref refs.Ref) ([]inventory.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{
			`"referenceId"`:   ref.ID,
			`"referenceType"`: string(ref.Kind),
			`"movementType"`:  inventory.MovementOut,
		}).
		OrderBy(`"createdAt"`, "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []inventory.Movement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("select movements: %w", err), "inventory movements", ref.String())
	}
	return movements, nil
}

// HasMovementsByReference reports whether any movement carries the ref.
func (r *Repo) HasMovementsByReference(ctx context.Context, ref refs.Ref) (bool, error) {
	sql := `
		SELECT EXISTS (
			SELECT 1 FROM "inventoryMovements"
			WHERE "referenceId" = $1 AND "referenceType" = $2
		)
	`

	var exists bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, ref.ID, string(ref.Kind)).Scan(&exists); err != nil {
		return false, postgres.MapError(fmt.Errorf("check movements: %w", err), "inventory movements", ref.String())
	}
	return exists, nil
}

// ListEntries retrieves cost lots with filtering.
func (r *Repo) ListEntries(ctx context.Context, filter inventory.EntryFilter) ([]inventory.InventoryEntry, error) {
	q := r.builder.Select(entryColumns...).From(entriesTable)

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{`"productId"`: *filter.ProductID})
	}
	if filter.BatchID != nil {
		q = q.Where(squirrel.Eq{`"batchId"`: *filter.BatchID})
	}
	if filter.ExcludeExhausted {
		q = q.Where(squirrel.Gt{`"currentQuantity"`: 0})
	}

	q = q.OrderBy(`"createdAt"`, "id")
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

	var entries []inventory.InventoryEntry
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("select entries: %w", err), "inventory entries", "")
	}
	return entries, nil
}

// ListMovements retrieves movement history with filtering. Filtering by
// product joins through the entry table.
func (r *Repo) ListMovements(ctx context.Context, filter inventory.MovementFilter) ([]inventory.Movement, error) {
	cols := make([]string, len(movementColumns))
	for i, c := range movementColumns {
		cols[i] = "m." + c
	}
	q := r.builder.Select(cols...).From(movementsTable + " m")

	if filter.ProductID != nil {
		q = q.Join(entriesTable + ` e ON e.id = m."inventoryEntryId"`).
			Where(squirrel.Eq{`e."productId"`: *filter.ProductID})
	}
	if filter.EntryID != nil {
		q = q.Where(squirrel.Eq{`m."inventoryEntryId"`: *filter.EntryID})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{`m."movementType"`: *filter.Type})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{`m."createdAt"`: *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{`m."createdAt"`: *filter.ToDate})
	}

	q = q.OrderBy(`m."createdAt" DESC`, "m.id DESC")
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

	var movements []inventory.Movement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("select movements: %w", err), "inventory movements", "")
	}
	return movements, nil
}

// ClaimOperationKey claims a service-level idempotency key.
func (r *Repo) ClaimOperationKey(ctx context.Context, key, operation string, entityID id.ID) (id.ID, bool, error) {
	return r.opKeys.Claim(ctx, key, operation, entityID)
}

// Ensure interface compliance.
var _ inventory.Repository = (*Repo)(nil)
