// Package catalog exposes read-only lookups into the product, supplier,
// payment-method, and user reference data. The CRUD surface for these
// entities lives outside this service; the ledger only validates references
// and resolves pricing defaults.
package catalog

import (
	"context"

	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
)

// Product is the slice of the product record the ledger needs.
type Product struct {
	ID           id.ID       `db:"id"`
	Name         string      `db:"name"`
	SKU          string      `db:"sku"`
	SellingPrice types.Money `db:"sellingPrice"`
	IsActive     bool        `db:"isActive"`
}

// Lookup is the read-only reference-data contract.
type Lookup interface {
	ProductExists(ctx context.Context, productID id.ID) (bool, error)
	GetProduct(ctx context.Context, productID id.ID) (*Product, error)
	ProductSellingPrice(ctx context.Context, productID id.ID) (types.Money, error)
	SupplierExists(ctx context.Context, supplierID id.ID) (bool, error)
	PaymentMethodExists(ctx context.Context, pmID id.ID) (bool, error)
}
