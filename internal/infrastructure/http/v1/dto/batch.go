package dto

import (
	"time"

	"stocklot/internal/domain/batch"
)

// RegisterBatchRequest for POST /batches. BatchNumber is optional; an
// omitted number is generated from the batch sequence.
type RegisterBatchRequest struct {
	BatchNumber string     `json:"batchNumber"`
	SupplierID  *string    `json:"supplierId" binding:"omitempty,uuid"`
	ReceivedAt  *time.Time `json:"receivedAt"`
	Notes       string     `json:"notes"`
}

// BatchResponse is one registered batch.
type BatchResponse struct {
	ID          string     `json:"id"`
	BatchNumber string     `json:"batchNumber"`
	SupplierID  *string    `json:"supplierId,omitempty"`
	Status      string     `json:"status"`
	ReceivedAt  time.Time  `json:"receivedAt"`
	ClosedAt    *time.Time `json:"closedAt,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// FromBatch converts a domain batch.
func FromBatch(b *batch.Batch) BatchResponse {
	resp := BatchResponse{
		ID:          b.ID.String(),
		BatchNumber: b.BatchNumber,
		Status:      string(b.Status),
		ReceivedAt:  b.ReceivedAt,
		ClosedAt:    b.ClosedAt,
		Notes:       b.Notes,
		CreatedAt:   b.CreatedAt,
	}
	if b.SupplierID != nil {
		s := b.SupplierID.String()
		resp.SupplierID = &s
	}
	return resp
}

// BatchListQuery filters GET /batches.
type BatchListQuery struct {
	ListQuery
	Status     string `form:"status" binding:"omitempty,oneof=open closed"`
	SupplierID string `form:"supplierId" binding:"omitempty,uuid"`
}
