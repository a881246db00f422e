package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"stocklot/internal/domain/order"
)

// CreateOrderItemRequest is one sales line.
type CreateOrderItemRequest struct {
	ProductID string          `json:"productId" binding:"required,uuid"`
	Quantity  int64           `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unitPrice" binding:"required"`
}

// CreateOrderRequest for POST /orders.
type CreateOrderRequest struct {
	CustomerName string                   `json:"customerName" binding:"required"`
	OrderDate    *time.Time               `json:"orderDate"`
	Notes        string                   `json:"notes"`
	Items        []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// AdvanceOrderRequest for POST /orders/:id/status.
type AdvanceOrderRequest struct {
	Status string `json:"status" binding:"required,oneof=pending paid shipped delivered cancelled"`
}

// OrderResponse is an order header.
type OrderResponse struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customerName"`
	Status       string          `json:"status"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	OrderDate    time.Time       `json:"orderDate"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// FromOrder converts a domain order.
func FromOrder(o *order.Order) OrderResponse {
	return OrderResponse{
		ID:           o.ID.String(),
		CustomerName: o.CustomerName,
		Status:       string(o.Status),
		TotalAmount:  o.TotalAmount,
		OrderDate:    o.OrderDate,
		Notes:        o.Notes,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// OrderItemResponse is one sales line.
type OrderItemResponse struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"productId"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// FromOrderItems converts domain order items.
func FromOrderItems(items []order.OrderItem) []OrderItemResponse {
	out := make([]OrderItemResponse, len(items))
	for i, it := range items {
		out[i] = OrderItemResponse{
			ID:         it.ID.String(),
			ProductID:  it.ProductID.String(),
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		}
	}
	return out
}

// OrderDetailResponse is an order with its items.
type OrderDetailResponse struct {
	OrderResponse
	Items []OrderItemResponse `json:"items"`
}

// FulfillmentResponse reports what fulfilling an order consumed and cost.
type FulfillmentResponse struct {
	Order         OrderResponse        `json:"order"`
	Allocations   []AllocationResponse `json:"allocations"`
	TotalCOGS     decimal.Decimal      `json:"totalCogs"`
	TransactionID string               `json:"transactionId"`
}

// FromFulfillment converts a domain fulfillment result.
func FromFulfillment(r *order.FulfillmentResult) FulfillmentResponse {
	return FulfillmentResponse{
		Order:         FromOrder(r.Order),
		Allocations:   FromAllocations(r.Allocations),
		TotalCOGS:     r.TotalCOGS,
		TransactionID: r.TransactionID.String(),
	}
}

// ReversalResponse reports what reversing a fulfillment credited back.
type ReversalResponse struct {
	Order         OrderResponse        `json:"order"`
	Credited      []AllocationResponse `json:"credited"`
	TransactionID string               `json:"transactionId"`
}

// FromReversal converts a domain reversal result.
func FromReversal(r *order.ReversalResult) ReversalResponse {
	return ReversalResponse{
		Order:         FromOrder(r.Order),
		Credited:      FromAllocations(r.Credited),
		TransactionID: r.TransactionID.String(),
	}
}

// OrderListQuery filters GET /orders.
type OrderListQuery struct {
	ListQuery
	Status string `form:"status" binding:"omitempty,oneof=pending paid shipped delivered cancelled"`
}
