package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"stocklot/internal/domain/inventory"
)

// EntryResponse is one FIFO cost lot.
type EntryResponse struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"productId"`
	BatchID          string          `json:"batchId"`
	CostPrice        decimal.Decimal `json:"costPrice"`
	SellingPrice     decimal.Decimal `json:"sellingPrice"`
	QuantityReceived int64           `json:"quantityReceived"`
	CurrentQuantity  int64           `json:"currentQuantity"`
	ExpiryDate       *time.Time      `json:"expiryDate,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// FromEntry converts a domain entry.
func FromEntry(e inventory.InventoryEntry) EntryResponse {
	return EntryResponse{
		ID:               e.ID.String(),
		ProductID:        e.ProductID.String(),
		BatchID:          e.BatchID.String(),
		CostPrice:        e.CostPrice,
		SellingPrice:     e.SellingPrice,
		QuantityReceived: e.QuantityReceived,
		CurrentQuantity:  e.CurrentQuantity,
		ExpiryDate:       e.ExpiryDate,
		CreatedAt:        e.CreatedAt,
	}
}

// MovementResponse is one stock movement event.
type MovementResponse struct {
	ID               string    `json:"id"`
	InventoryEntryID string    `json:"inventoryEntryId"`
	Quantity         int64     `json:"quantity"`
	MovementType     string    `json:"movementType"`
	ReferenceID      *string   `json:"referenceId,omitempty"`
	ReferenceType    *string   `json:"referenceType,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// FromMovement converts a domain movement.
func FromMovement(m inventory.Movement) MovementResponse {
	resp := MovementResponse{
		ID:               m.ID.String(),
		InventoryEntryID: m.InventoryEntryID.String(),
		Quantity:         m.Quantity,
		MovementType:     string(m.MovementType),
		ReferenceType:    m.ReferenceType,
		Notes:            m.Notes,
		CreatedAt:        m.CreatedAt,
	}
	if m.ReferenceID != nil {
		s := m.ReferenceID.String()
		resp.ReferenceID = &s
	}
	return resp
}

// AllocationResponse is stock taken from one lot.
type AllocationResponse struct {
	EntryID       string          `json:"entryId"`
	QuantityTaken int64           `json:"quantityTaken"`
	UnitCost      decimal.Decimal `json:"unitCost"`
}

// FromAllocations converts domain allocations.
func FromAllocations(allocs []inventory.Allocation) []AllocationResponse {
	out := make([]AllocationResponse, len(allocs))
	for i, a := range allocs {
		out[i] = AllocationResponse{
			EntryID:       a.EntryID.String(),
			QuantityTaken: a.QuantityTaken,
			UnitCost:      a.UnitCost,
		}
	}
	return out
}

// AvailableQuantityResponse for GET /inventory/available/:productId.
type AvailableQuantityResponse struct {
	ProductID string `json:"productId"`
	Available int64  `json:"available"`
}

// AdjustStockRequest for POST /inventory/adjust.
type AdjustStockRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Direction string `json:"direction" binding:"required,oneof=increase decrease"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
	Reason    string `json:"reason" binding:"required"`
	Notes     string `json:"notes"`
}

// AdjustStockResponse reports the applied adjustment.
type AdjustStockResponse struct {
	AdjustmentID  string               `json:"adjustmentId"`
	Direction     string               `json:"direction"`
	Quantity      int64                `json:"quantity"`
	Value         decimal.Decimal      `json:"value"`
	Allocations   []AllocationResponse `json:"allocations"`
	TransactionID *string              `json:"transactionId,omitempty"`
}

// OpeningBalanceRequest for POST /inventory/opening-balance.
type OpeningBalanceRequest struct {
	ProductID string          `json:"productId" binding:"required,uuid"`
	Quantity  int64           `json:"quantity" binding:"required,gt=0"`
	UnitCost  decimal.Decimal `json:"unitCost" binding:"required"`
}

// EntryListQuery filters GET /inventory/entries.
type EntryListQuery struct {
	ListQuery
	ProductID        string `form:"productId" binding:"omitempty,uuid"`
	BatchID          string `form:"batchId" binding:"omitempty,uuid"`
	ExcludeExhausted bool   `form:"excludeExhausted"`
}

// MovementListQuery filters GET /inventory/movements.
type MovementListQuery struct {
	ListQuery
	ProductID string     `form:"productId" binding:"omitempty,uuid"`
	EntryID   string     `form:"entryId" binding:"omitempty,uuid"`
	Type      string     `form:"type" binding:"omitempty,oneof=in out adjustment"`
	FromDate  *time.Time `form:"fromDate" time_format:"2006-01-02T15:04:05Z07:00"`
	ToDate    *time.Time `form:"toDate" time_format:"2006-01-02T15:04:05Z07:00"`
}
