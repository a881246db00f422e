// Package inventory provides the inventory ledger: FIFO cost lots and the
// append-only movement log behind them.
package inventory

import (
	"time"

	"stocklot/internal/core/id"
	"stocklot/internal/core/refs"
	"stocklot/internal/core/types"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

// InventoryEntry is a FIFO cost lot: stock received at a specific cost,
// tracked per batch. QuantityReceived is immutable once set; CurrentQuantity
// is a write-through cache over the movement log. Entries are never deleted -
// an exhausted entry (CurrentQuantity == 0) is retained for costing history.
type InventoryEntry struct {
	ID               id.ID       `db:"id" json:"id"`
	ProductID        id.ID       `db:"productId" json:"productId"`
	BatchID          id.ID       `db:"batchId" json:"batchId"`
	CostPrice        types.Money `db:"costPrice" json:"costPrice"`
	SellingPrice     types.Money `db:"sellingPrice" json:"sellingPrice"`
	QuantityReceived int64       `db:"quantityReceived" json:"quantityReceived"`
	CurrentQuantity  int64       `db:"currentQuantity" json:"currentQuantity"`
	ExpiryDate       *time.Time  `db:"expiryDate" json:"expiryDate,omitempty"`
	CreatedAt        time.Time   `db:"createdAt" json:"createdAt"`
}

// IsExhausted reports whether the lot has been fully consumed.
// Exhausted is terminal for consumption but the entry stays for COGS history.
func (e *InventoryEntry) IsExhausted() bool {
	return e.CurrentQuantity == 0
}

// Headroom returns how many units can be re-credited before hitting the
// QuantityReceived cap.
func (e *InventoryEntry) Headroom() int64 {
	return e.QuantityReceived - e.CurrentQuantity
}

// Movement is one append-only stock event. Movements are never mutated or
// deleted; CurrentQuantity on the entry is derivable from them.
//
// Quantity is a positive magnitude for "in" and "out". For "adjustment" it is
// signed: positive replenishes the lot, negative shrinks it.
type Movement struct {
	ID               id.ID        `db:"id" json:"id"`
	InventoryEntryID id.ID        `db:"inventoryEntryId" json:"inventoryEntryId"`
	Quantity         int64        `db:"quantity" json:"quantity"`
	MovementType     MovementType `db:"movementType" json:"movementType"`
	ReferenceID      *id.ID       `db:"referenceId" json:"referenceId,omitempty"`
	ReferenceType    *string      `db:"referenceType" json:"referenceType,omitempty"`
	Notes            string       `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time    `db:"createdAt" json:"createdAt"`
}

// NewMovement builds a movement row for an entry. A zero ref leaves the
// polymorphic reference columns NULL.
func NewMovement(entryID id.ID, quantity int64, mt MovementType, ref refs.Ref, notes string) Movement {
	m := Movement{
		ID:               id.New(),
		InventoryEntryID: entryID,
		Quantity:         quantity,
		MovementType:     mt,
		Notes:            notes,
		CreatedAt:        time.Now().UTC(),
	}
	if !ref.IsZero() {
		refID := ref.ID
		refType := string(ref.Kind)
		m.ReferenceID = &refID
		m.ReferenceType = &refType
	}
	return m
}

// Signed returns the movement's effect on CurrentQuantity.
func (m Movement) Signed() int64 {
	switch m.MovementType {
	case MovementIn:
		return m.Quantity
	case MovementOut:
		return -m.Quantity
	default:
		return m.Quantity // adjustments carry their own sign
	}
}

// Allocation records stock taken from (or credited back to) one entry during
// consumption, with the lot's unit cost for COGS computation.
type Allocation struct {
	EntryID       id.ID       `json:"entryId"`
	QuantityTaken int64       `json:"quantityTaken"`
	UnitCost      types.Money `json:"unitCost"`
}

// Cost returns the cost basis of the allocation.
func (a Allocation) Cost() types.Money {
	return types.MoneyFromUnits(a.UnitCost, a.QuantityTaken)
}
