// Package batch implements the supplier-delivery batch registry.
// A batch groups the inventory entries created by one delivery (or by the
// reserved system batches used for adjustments and opening balances).
package batch

import (
	"time"

	"stocklot/internal/core/id"
)

// Status is the batch lifecycle state.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Reserved batch numbers for system-generated stock. These batches have no
// supplier and are created lazily on first use.
const (
	NumberAdjustment     = "SYS-ADJUSTMENT"
	NumberOpeningBalance = "SYS-OPENING-BALANCE"
)

// Batch is one registered delivery.
type Batch struct {
	ID          id.ID      `db:"id"`
	BatchNumber string     `db:"batchNumber"`
	SupplierID  *id.ID     `db:"supplierId"`
	Status      Status     `db:"status"`
	ReceivedAt  time.Time  `db:"receivedAt"`
	ClosedAt    *time.Time `db:"closedAt"`
	Notes       string     `db:"notes"`
	CreatedAt   time.Time  `db:"createdAt"`
}

// IsOpen reports whether the batch still accepts entries.
func (b *Batch) IsOpen() bool {
	return b.Status == StatusOpen
}
