// Package purchase_repo provides the PostgreSQL implementation of the
// purchase repository.
package purchase_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocklot/internal/core/id"
	"stocklot/internal/domain/purchase"
	"stocklot/internal/infrastructure/storage/postgres"
)

const (
	purchasesTable     = "purchases"
	purchaseItemsTable = `"purchaseItems"`
)

var purchaseColumns = []string{
	"id", `"supplierId"`, `"batchId"`, "status",
	`"orderDate"`, "notes", `"createdAt"`, `"updatedAt"`,
}

var itemColumns = []string{
	"id", `"purchaseId"`, `"productId"`, "quantity",
	`"unitCost"`, `"totalCost"`, `"sellingPrice"`, `"expiryDate"`,
}

// Repo implements purchase.Repository.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewRepo creates the purchase repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the header and its items.
func (r *Repo) Create(ctx context.Context, p *purchase.Purchase, items []purchase.PurchaseItem) error {
	q := r.builder.Insert(purchasesTable).
		Columns(purchaseColumns...).
		Values(p.ID, p.SupplierID, p.BatchID, p.Status, p.OrderDate, p.Notes, p.CreatedAt, p.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert purchase: %w", err), "purchase", p.ID.String())
	}

	iq := r.builder.Insert(purchaseItemsTable).Columns(itemColumns...)
	for _, item := range items {
		iq = iq.Values(
			item.ID, item.PurchaseID, item.ProductID, item.Quantity,
			item.UnitCost, item.TotalCost, item.SellingPrice, item.ExpiryDate,
		)
	}
	sql, args, err = iq.ToSql()
	if err != nil {
		return fmt.Errorf("build items insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert purchase items: %w", err), "purchase items", p.ID.String())
	}
	return nil
}

// Get retrieves a purchase by id.
func (r *Repo) Get(ctx context.Context, purchaseID id.ID) (*purchase.Purchase, error) {
	q := r.builder.Select(purchaseColumns...).
		From(purchasesTable).
		Where(squirrel.Eq{"id": purchaseID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p purchase.Purchase
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		return nil, postgres.MapError(err, "purchase", purchaseID.String())
	}
	return &p, nil
}

// GetForUpdate retrieves a purchase with a pessimistic row lock. Receiving
// serializes on this lock so two concurrent receipts cannot both read the
// same received-so-far totals.
func (r *Repo) GetForUpdate(ctx context.Context, purchaseID id.ID) (*purchase.Purchase, error) {
	sql := `
		SELECT id, "supplierId", "batchId", status, "orderDate", notes, "createdAt", "updatedAt"
		FROM purchases
		WHERE id = $1
		FOR UPDATE
	`

	var p purchase.Purchase
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, purchaseID); err != nil {
		return nil, postgres.MapError(err, "purchase", purchaseID.String())
	}
	return &p, nil
}

// GetItems retrieves the purchase's items.
func (r *Repo) GetItems(ctx context.Context, purchaseID id.ID) ([]purchase.PurchaseItem, error) {
	q := r.builder.Select(itemColumns...).
		From(purchaseItemsTable).
		Where(squirrel.Eq{`"purchaseId"`: purchaseID}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []purchase.PurchaseItem
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("select items: %w", err), "purchase items", purchaseID.String())
	}
	return items, nil
}

// UpdateStatus writes a new purchase status and bumps updatedAt.
func (r *Repo) UpdateStatus(ctx context.Context, purchaseID id.ID, status purchase.Status) error {
	q := r.builder.Update(purchasesTable).
		Set("status", status).
		Set(`"updatedAt"`, time.Now().UTC()).
		Where(squirrel.Eq{"id": purchaseID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("update status: %w", err), "purchase", purchaseID.String())
	}
	return nil
}

// List retrieves purchases with filtering.
func (r *Repo) List(ctx context.Context, filter purchase.Filter) ([]purchase.Purchase, error) {
	q := r.builder.Select(purchaseColumns...).From(purchasesTable)

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{`"supplierId"`: *filter.SupplierID})
	}

	q = q.OrderBy(`"orderDate" DESC`, "id")
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

	var purchases []purchase.Purchase
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &purchases, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("select purchases: %w", err), "purchases", "")
	}
	return purchases, nil
}

// ReceivedQuantities derives per-item received totals from the inventory
// movement log: "in" movements whose reference points at the purchase item.
func (r *Repo) ReceivedQuantities(ctx context.Context, purchaseID id.ID) (map[id.ID]int64, error) {
	sql := `
		SELECT pi.id, COALESCE(SUM(m.quantity), 0) AS received
		FROM "purchaseItems" pi
		LEFT JOIN "inventoryMovements" m
		       ON m."referenceId" = pi.id
		      AND m."referenceType" = 'purchase'
		      AND m."movementType" = 'in'
		WHERE pi."purchaseId" = $1
		GROUP BY pi.id
	`

	rows, err := r.txm.GetQuerier(ctx).Query(ctx, sql, purchaseID)
	if err != nil {
		return nil, postgres.MapError(fmt.Errorf("sum received: %w", err), "purchase", purchaseID.String())
	}
	defer rows.Close()

	received := make(map[id.ID]int64)
	for rows.Next() {
		var itemID id.ID
		var qty int64
		if err := rows.Scan(&itemID, &qty); err != nil {
			return nil, fmt.Errorf("scan received: %w", err)
		}
		received[itemID] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate received: %w", err)
	}
	return received, nil
}

// Ensure interface compliance.
var _ purchase.Repository = (*Repo)(nil)
