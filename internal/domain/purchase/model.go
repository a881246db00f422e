// Package purchase implements purchase orders and goods receiving.
// Receiving reconciles ordered vs. received quantities and feeds the
// inventory ledger; money out is posted to the transaction ledger.
package purchase

import (
	"time"

	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
)

// Status is the purchase lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPartial   Status = "partial"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// Purchase is a supplier order header. BatchID is the delivery batch that
// received goods land in.
type Purchase struct {
	ID         id.ID     `db:"id"`
	SupplierID id.ID     `db:"supplierId"`
	BatchID    id.ID     `db:"batchId"`
	Status     Status    `db:"status"`
	OrderDate  time.Time `db:"orderDate"`
	Notes      string    `db:"notes"`
	CreatedAt  time.Time `db:"createdAt"`
	UpdatedAt  time.Time `db:"updatedAt"`
}

// AcceptsReceiving reports whether goods may still be received against the
// purchase.
func (p *Purchase) AcceptsReceiving() bool {
	return p.Status == StatusPending || p.Status == StatusPartial
}

// PurchaseItem is one ordered line. Quantity and UnitCost are immutable once
// the purchase is received; corrections go through stock adjustments.
type PurchaseItem struct {
	ID           id.ID        `db:"id"`
	PurchaseID   id.ID        `db:"purchaseId"`
	ProductID    id.ID        `db:"productId"`
	Quantity     int64        `db:"quantity"`
	UnitCost     types.Money  `db:"unitCost"`
	TotalCost    types.Money  `db:"totalCost"`
	SellingPrice *types.Money `db:"sellingPrice"`
	ExpiryDate   *time.Time   `db:"expiryDate"`
}

// ReceivedLine is one line of a receive() call.
type ReceivedLine struct {
	PurchaseItemID   id.ID
	QuantityReceived int64
}

// Receipt summarizes one receive() call.
type Receipt struct {
	Purchase      *Purchase
	ReceivedValue types.Money
	TransactionID *id.ID
}
