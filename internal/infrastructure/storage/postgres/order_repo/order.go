// Package order_repo provides the PostgreSQL implementation of the order
// repository.
package order_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocklot/internal/core/id"
	"stocklot/internal/domain/order"
	"stocklot/internal/infrastructure/storage/postgres"
)

const (
	ordersTable     = "orders"
	orderItemsTable = `"orderItems"`
)

var orderColumns = []string{
	"id", `"customerName"`, "status", `"totalAmount"`,
	`"orderDate"`, "notes", `"createdAt"`, `"updatedAt"`,
}

var itemColumns = []string{
	"id", `"orderId"`, `"productId"`, "quantity", `"unitPrice"`, `"totalPrice"`,
}

// Repo implements order.Repository.
type Repo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewRepo creates the order repository.
func NewRepo(txm *postgres.TxManager) *Repo {
	return &Repo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the header and its items.
func (r *Repo) Create(ctx context.Context, o *order.Order, items []order.OrderItem) error {
	q := r.builder.Insert(ordersTable).
		Columns(orderColumns...).
		Values(o.ID, o.CustomerName, o.Status, o.TotalAmount, o.OrderDate, o.Notes, o.CreatedAt, o.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert order: %w", err), "order", o.ID.String())
	}

	iq := r.builder.Insert(orderItemsTable).Columns(itemColumns...)
	for _, item := range items {
		iq = iq.Values(item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.TotalPrice)
	}
	sql, args, err = iq.ToSql()
	if err != nil {
		return fmt.Errorf("build items insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert order items: %w", err), "order items", o.ID.String())
	}
	return nil
}

// Get retrieves an order by id.
func (r *Repo) Get(ctx context.Context, orderID id.ID) (*order.Order, error) {
	q := r.builder.Select(orderColumns...).
		From(ordersTable).
		Where(squirrel.Eq{"id": orderID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var o order.Order
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &o, sql, args...); err != nil {
		return nil, postgres.MapError(err, "order", orderID.String())
	}
	return &o, nil
}

// GetForUpdate retrieves an order with a pessimistic row lock so concurrent
// fulfill/reverse calls serialize per order.
func (r *Repo) GetForUpdate(ctx context.Context, orderID id.ID) (*order.Order, error) {
	sql := `
		SELECT id, "customerName", status, "totalAmount", "orderDate", notes, "createdAt", "updatedAt"
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	var o order.Order
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &o, sql, orderID); err != nil {
		return nil, postgres.MapError(err, "order", orderID.String())
	}
	return &o, nil
}

// GetItems retrieves the order's items.
func (r *Repo) GetItems(ctx context.Context, orderID id.ID) ([]order.OrderItem, error) {
	q := r.builder.Select(itemColumns...).
		From(orderItemsTable).
		Where(squirrel.Eq{`"orderId"`: orderID}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []order.OrderItem
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("select items: %w", err), "order items", orderID.String())
	}
	return items, nil
}

// UpdateStatus writes a new order status and bumps updatedAt.
func (r *Repo) UpdateStatus(ctx context.Context, orderID id.ID, status order.Status) error {
	q := r.builder.Update(ordersTable).
		Set("status", status).
		Set(`"updatedAt"`, time.Now().UTC()).
		Where(squirrel.Eq{"id": orderID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("update status: %w", err), "order", orderID.String())
	}
	return nil
}

// List retrieves orders with filtering.
func (r *Repo) List(ctx context.Context, filter order.Filter) ([]order.Order, error) {
	q := r.builder.Select(orderColumns...).From(ordersTable)

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	q = q.OrderBy(`"orderDate" DESC`, "id")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var orders []order.Order
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &orders, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("select orders: %w", err), "orders", "")
	}
	return orders, nil
}

// Ensure interface compliance.
var _ order.Repository = (*Repo)(nil)
