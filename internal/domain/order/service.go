package order

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/refs"
	"stocklot/internal/core/tx"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/inventory"
	"stocklot/internal/domain/ledger"
	"stocklot/pkg/logger"
)

// InventoryAllocator is the slice of the inventory service fulfillment
// depends on. AvailableQuantityForUpdate must lock the product's entries so
// the subsequent Consume sees the same FIFO candidate set.
type InventoryAllocator interface {
	AvailableQuantityForUpdate(ctx context.Context, productID id.ID) (int64, error)
	Consume(ctx context.Context, cmd inventory.ConsumeCommand) ([]inventory.Allocation, error)
	ReverseConsumption(ctx context.Context, cmd inventory.ReverseCommand) ([]inventory.Allocation, error)
}

// LedgerPoster posts sale and refund transactions.
type LedgerPoster interface {
	Post(ctx context.Context, cmd ledger.PostCommand) (*ledger.Transaction, error)
}

// Service converts order lines into inventory consumption and COGS.
type Service struct {
	repo   Repository
	inv    InventoryAllocator
	poster LedgerPoster
	txm    tx.Manager
}

// NewService creates the fulfillment service.
func NewService(repo Repository, inv InventoryAllocator, poster LedgerPoster, txm tx.Manager) *Service {
	return &Service{repo: repo, inv: inv, poster: poster, txm: txm}
}

// ItemCommand is one line of a new order.
type ItemCommand struct {
	ProductID id.ID
	Quantity  int64
	UnitPrice types.Money
}

// CreateCommand describes a new sales order.
type CreateCommand struct {
	CustomerName string
	OrderDate    time.Time
	Notes        string
	Items        []ItemCommand
}

// Create records a pending order; no stock moves until Fulfill.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if len(cmd.Items) == 0 {
		return nil, apperror.NewValidation("order needs at least one item").WithDetail("field", "items")
	}
	for i, item := range cmd.Items {
		if id.IsNil(item.ProductID) {
			return nil, apperror.NewValidation("product is required").
				WithDetail("field", fmt.Sprintf("items[%d].productId", i))
		}
		if item.Quantity <= 0 {
			return nil, apperror.NewValidation("quantity must be positive").
				WithDetail("field", fmt.Sprintf("items[%d].quantity", i))
		}
		if item.UnitPrice.IsNegative() {
			return nil, apperror.NewValidation("unit price must not be negative").
				WithDetail("field", fmt.Sprintf("items[%d].unitPrice", i))
		}
	}
	if cmd.OrderDate.IsZero() {
		cmd.OrderDate = time.Now().UTC()
	}

	now := time.Now().UTC()
	o := &Order{
		ID:           id.New(),
		CustomerName: cmd.CustomerName,
		Status:       StatusPending,
		TotalAmount:  types.ZeroMoney(),
		OrderDate:    cmd.OrderDate,
		Notes:        cmd.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	items := make([]OrderItem, 0, len(cmd.Items))
	for _, ic := range cmd.Items {
		lineTotal := types.MoneyFromUnits(ic.UnitPrice, ic.Quantity)
		items = append(items, OrderItem{
			ID:         id.New(),
			OrderID:    o.ID,
			ProductID:  ic.ProductID,
			Quantity:   ic.Quantity,
			UnitPrice:  ic.UnitPrice,
			TotalPrice: lineTotal,
		})
		o.TotalAmount = o.TotalAmount.Add(lineTotal)
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, o, items)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order created", "order_id", o.ID, "items", len(items), "total", o.TotalAmount.String())
	return o, nil
}

// Fulfill allocates stock for every line of the order, all-or-nothing: the
// whole order's demand is checked against locked stock before any unit is
// consumed. On success the order moves to paid and a sale transaction for
// the order total is posted. Returns the per-lot allocations and total COGS.
func (s *Service) Fulfill(ctx context.Context, orderID id.ID) (*FulfillmentResult, error) {
	var result *FulfillmentResult
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.IsFulfillable() {
			return apperror.NewInvalidState("order", orderID.String(), string(o.Status))
		}

		items, err := s.repo.GetItems(ctx, orderID)
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		if len(items) == 0 {
			return apperror.NewValidation("order has no items").WithDetail("order_id", orderID.String())
		}

		// Aggregate demand per product, then lock products in ascending id
		// order so concurrent orders touching overlapping products cannot
		// deadlock.
		demand := make(map[id.ID]int64, len(items))
		for _, item := range items {
			demand[item.ProductID] += item.Quantity
		}
		productIDs := make([]id.ID, 0, len(demand))
		for pid := range demand {
			productIDs = append(productIDs, pid)
		}
		sort.Slice(productIDs, func(i, j int) bool {
			return bytes.Compare(productIDs[i][:], productIDs[j][:]) < 0
		})

		for _, pid := range productIDs {
			available, err := s.inv.AvailableQuantityForUpdate(ctx, pid)
			if err != nil {
				return err
			}
			if available < demand[pid] {
				return apperror.NewInsufficientStock(pid.String(), demand[pid], available)
			}
		}

		ref := refs.Ref{Kind: refs.KindOrder, ID: orderID}
		totalCOGS := types.ZeroMoney()
		var allocations []inventory.Allocation
		for _, item := range items {
			allocs, err := s.inv.Consume(ctx, inventory.ConsumeCommand{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Ref:       ref,
				Notes:     fmt.Sprintf("order %s fulfillment", orderID),
			})
			if err != nil {
				return err
			}
			for _, a := range allocs {
				totalCOGS = totalCOGS.Add(a.Cost())
			}
			allocations = append(allocations, allocs...)
		}

		t, err := s.poster.Post(ctx, ledger.PostCommand{
			Type:        ledger.TypeSale,
			Amount:      o.TotalAmount,
			Description: fmt.Sprintf("sale for order %s", orderID),
			Ref:         ref,
		})
		if err != nil {
			return err
		}

		if err := s.repo.UpdateStatus(ctx, orderID, StatusPaid); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		o.Status = StatusPaid

		result = &FulfillmentResult{
			Order:         o,
			Allocations:   allocations,
			TotalCOGS:     totalCOGS,
			TransactionID: t.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order fulfilled",
		"order_id", orderID,
		"lots", len(result.Allocations),
		"cogs", result.TotalCOGS.String(),
	)
	return result, nil
}

// ReverseFulfillment re-credits the stock an order consumed (best-effort, up
// to each lot's received cap), posts a refund for the order total, and
// cancels the order.
func (s *Service) ReverseFulfillment(ctx context.Context, orderID id.ID) (*ReversalResult, error) {
	var result *ReversalResult
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != StatusPaid && o.Status != StatusShipped {
			return apperror.NewInvalidState("order", orderID.String(), string(o.Status))
		}

		credited, err := s.inv.ReverseConsumption(ctx, inventory.ReverseCommand{
			Of:    refs.Ref{Kind: refs.KindOrder, ID: orderID},
			As:    refs.Ref{Kind: refs.KindRefund, ID: orderID},
			Notes: fmt.Sprintf("order %s fulfillment reversed", orderID),
		})
		if err != nil {
			return err
		}

		t, err := s.poster.Post(ctx, ledger.PostCommand{
			Type:        ledger.TypeRefund,
			Amount:      o.TotalAmount.Neg(),
			Description: fmt.Sprintf("refund for order %s", orderID),
			Ref:         refs.Ref{Kind: refs.KindRefund, ID: orderID},
		})
		if err != nil {
			return err
		}

		if err := s.repo.UpdateStatus(ctx, orderID, StatusCancelled); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		o.Status = StatusCancelled

		result = &ReversalResult{Order: o, Credited: credited, TransactionID: t.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order fulfillment reversed",
		"order_id", orderID,
		"lots_credited", len(result.Credited),
	)
	return result, nil
}

// Advance moves an order along its lifecycle (paid -> shipped -> delivered).
// Cancellation of a fulfilled order goes through ReverseFulfillment instead.
func (s *Service) Advance(ctx context.Context, orderID id.ID, to Status) (*Order, error) {
	if to == StatusCancelled {
		return nil, apperror.NewValidation("use fulfillment reversal to cancel a fulfilled order").
			WithDetail("field", "status")
	}

	var advanced *Order
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(o.Status, to) {
			return apperror.NewInvalidState("order", orderID.String(), string(o.Status)).
				WithDetail("requested", string(to))
		}
		if err := s.repo.UpdateStatus(ctx, orderID, to); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		o.Status = to
		advanced = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order advanced", "order_id", orderID, "status", to)
	return advanced, nil
}

// Get retrieves one order.
func (s *Service) Get(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.repo.Get(ctx, orderID)
}

// GetItems retrieves an order's items.
func (s *Service) GetItems(ctx context.Context, orderID id.ID) ([]OrderItem, error) {
	return s.repo.GetItems(ctx, orderID)
}

// List retrieves orders with filtering.
func (s *Service) List(ctx context.Context, filter Filter) ([]Order, error) {
	return s.repo.List(ctx, filter)
}
