// Package catalog_repo provides read-only PostgreSQL lookups into the
// reference tables owned by the surrounding CRUD application.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/catalog"
	"stocklot/internal/infrastructure/storage/postgres"
)

// Repo implements catalog.Lookup.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewRepo creates the catalog lookup repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *Repo) exists(ctx context.Context, table, entity string, entityID id.ID) (bool, error) {
	sql := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)

	var exists bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, entityID).Scan(&exists); err != nil {
		return false, postgres.MapError(fmt.Errorf("check %s: %w", entity, err), entity, entityID.String())
	}
	return exists, nil
}

// ProductExists reports whether the product id is known.
func (r *Repo) ProductExists(ctx context.Context, productID id.ID) (bool, error) {
	return r.exists(ctx, "products", "product", productID)
}

// GetProduct loads the slice of the product record the ledger needs.
func (r *Repo) GetProduct(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	q := r.builder.Select("id", "name", "sku", `"sellingPrice"`, `"isActive"`).
		From("products").
		Where(squirrel.Eq{"id": productID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p catalog.Product
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		return nil, postgres.MapError(err, "product", productID.String())
	}
	return &p, nil
}

// ProductSellingPrice returns the product's default selling price.
func (r *Repo) ProductSellingPrice(ctx context.Context, productID id.ID) (types.Money, error) {
	sql := `SELECT "sellingPrice" FROM products WHERE id = $1`

	var price decimal.Decimal
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, productID).Scan(&price); err != nil {
		return types.ZeroMoney(), postgres.MapError(fmt.Errorf("selling price: %w", err), "product", productID.String())
	}
	return price, nil
}

// SupplierExists reports whether the supplier id is known.
func (r *Repo) SupplierExists(ctx context.Context, supplierID id.ID) (bool, error) {
	return r.exists(ctx, "suppliers", "supplier", supplierID)
}

// PaymentMethodExists reports whether the payment method id is known.
func (r *Repo) PaymentMethodExists(ctx context.Context, pmID id.ID) (bool, error) {
	return r.exists(ctx, `"paymentMethods"`, "payment method", pmID)
}

// Ensure interface compliance.
var _ catalog.Lookup = (*Repo)(nil)
