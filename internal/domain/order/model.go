// Package order implements sales orders and the fulfillment allocator that
// turns order lines into FIFO inventory consumption and COGS.
package order

import (
	"time"

	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/inventory"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// nextStatuses enumerates the permitted forward transitions.
var nextStatuses = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusShipped, StatusCancelled},
	StatusShipped: {StatusDelivered},
}

// CanTransition reports whether from -> to is a legal state change.
func CanTransition(from, to Status) bool {
	for _, s := range nextStatuses[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Order is a sales order header. TotalAmount is fixed at creation from the
// line prices.
type Order struct {
	ID           id.ID       `db:"id"`
	CustomerName string      `db:"customerName"`
	Status       Status      `db:"status"`
	TotalAmount  types.Money `db:"totalAmount"`
	OrderDate    time.Time   `db:"orderDate"`
	Notes        string      `db:"notes"`
	CreatedAt    time.Time   `db:"createdAt"`
	UpdatedAt    time.Time   `db:"updatedAt"`
}

// IsFulfillable reports whether the order's stock may still be allocated.
func (o *Order) IsFulfillable() bool {
	return o.Status == StatusPending
}

// OrderItem is one sales line.
type OrderItem struct {
	ID         id.ID       `db:"id"`
	OrderID    id.ID       `db:"orderId"`
	ProductID  id.ID       `db:"productId"`
	Quantity   int64       `db:"quantity"`
	UnitPrice  types.Money `db:"unitPrice"`
	TotalPrice types.Money `db:"totalPrice"`
}

// FulfillmentResult reports what fulfilling an order consumed and cost.
type FulfillmentResult struct {
	Order         *Order
	Allocations   []inventory.Allocation
	TotalCOGS     types.Money
	TransactionID id.ID
}

// ReversalResult reports what reversing a fulfillment credited back.
type ReversalResult struct {
	Order         *Order
	Credited      []inventory.Allocation
	TransactionID id.ID
}
