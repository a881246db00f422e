package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"stocklot/internal/domain/purchase"
)

// CreatePurchaseItemRequest is one ordered line.
type CreatePurchaseItemRequest struct {
	ProductID    string           `json:"productId" binding:"required,uuid"`
	Quantity     int64            `json:"quantity" binding:"required,gt=0"`
	// UnitCost may legitimately be zero (free or promotional units); the
	// service rejects negatives.
	UnitCost     decimal.Decimal  `json:"unitCost"`
	SellingPrice *decimal.Decimal `json:"sellingPrice"`
	ExpiryDate   *time.Time       `json:"expiryDate"`
}

// CreatePurchaseRequest for POST /purchases.
type CreatePurchaseRequest struct {
	SupplierID string                      `json:"supplierId" binding:"required,uuid"`
	BatchID    string                      `json:"batchId" binding:"required,uuid"`
	OrderDate  *time.Time                  `json:"orderDate"`
	Notes      string                      `json:"notes"`
	Items      []CreatePurchaseItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ReceiveLineRequest is one received line.
type ReceiveLineRequest struct {
	PurchaseItemID   string `json:"purchaseItemId" binding:"required,uuid"`
	QuantityReceived int64  `json:"quantityReceived" binding:"required,gt=0"`
}

// ReceivePurchaseRequest for POST /purchases/:id/receive.
type ReceivePurchaseRequest struct {
	Lines []ReceiveLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// PurchaseResponse is a purchase header.
type PurchaseResponse struct {
	ID         string    `json:"id"`
	SupplierID string    `json:"supplierId"`
	BatchID    string    `json:"batchId"`
	Status     string    `json:"status"`
	OrderDate  time.Time `json:"orderDate"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// FromPurchase converts a domain purchase.
func FromPurchase(p *purchase.Purchase) PurchaseResponse {
	return PurchaseResponse{
		ID:         p.ID.String(),
		SupplierID: p.SupplierID.String(),
		BatchID:    p.BatchID.String(),
		Status:     string(p.Status),
		OrderDate:  p.OrderDate,
		Notes:      p.Notes,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// PurchaseItemResponse is one ordered line.
type PurchaseItemResponse struct {
	ID           string           `json:"id"`
	ProductID    string           `json:"productId"`
	Quantity     int64            `json:"quantity"`
	UnitCost     decimal.Decimal  `json:"unitCost"`
	TotalCost    decimal.Decimal  `json:"totalCost"`
	SellingPrice *decimal.Decimal `json:"sellingPrice,omitempty"`
	ExpiryDate   *time.Time       `json:"expiryDate,omitempty"`
}

// FromPurchaseItems converts domain purchase items.
func FromPurchaseItems(items []purchase.PurchaseItem) []PurchaseItemResponse {
	out := make([]PurchaseItemResponse, len(items))
	for i, it := range items {
		out[i] = PurchaseItemResponse{
			ID:           it.ID.String(),
			ProductID:    it.ProductID.String(),
			Quantity:     it.Quantity,
			UnitCost:     it.UnitCost,
			TotalCost:    it.TotalCost,
			SellingPrice: it.SellingPrice,
			ExpiryDate:   it.ExpiryDate,
		}
	}
	return out
}

// PurchaseDetailResponse is a purchase with its items.
type PurchaseDetailResponse struct {
	PurchaseResponse
	Items []PurchaseItemResponse `json:"items"`
}

// ReceiptResponse reports one receiving event.
type ReceiptResponse struct {
	Purchase      PurchaseResponse `json:"purchase"`
	ReceivedValue decimal.Decimal  `json:"receivedValue"`
	TransactionID *string          `json:"transactionId,omitempty"`
}

// FromReceipt converts a domain receipt.
func FromReceipt(r *purchase.Receipt) ReceiptResponse {
	resp := ReceiptResponse{
		Purchase:      FromPurchase(r.Purchase),
		ReceivedValue: r.ReceivedValue,
	}
	if r.TransactionID != nil {
		s := r.TransactionID.String()
		resp.TransactionID = &s
	}
	return resp
}

// PurchaseListQuery filters GET /purchases.
type PurchaseListQuery struct {
	ListQuery
	Status     string `form:"status" binding:"omitempty,oneof=pending partial received cancelled"`
	SupplierID string `form:"supplierId" binding:"omitempty,uuid"`
}
