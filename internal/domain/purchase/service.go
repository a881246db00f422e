package purchase

import (
	"context"
	"fmt"
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

// InventoryLedger is the slice of the inventory service receiving depends on.
// The bool result reports an idempotent replay: the entry already existed and
// no stock was credited.
type InventoryLedger interface {
	Receive(ctx context.Context, cmd inventory.ReceiveCommand) (*inventory.InventoryEntry, bool, error)
}

// LedgerPoster posts monetary transactions for received goods.
type LedgerPoster interface {
	Post(ctx context.Context, cmd ledger.PostCommand) (*ledger.Transaction, error)
}

// ProductCatalog resolves product defaults for receiving.
type ProductCatalog interface {
	ProductExists(ctx context.Context, productID id.ID) (bool, error)
	ProductSellingPrice(ctx context.Context, productID id.ID) (types.Money, error)
}

// Service reconciles ordered vs. received quantities and advances purchase
// status. Stock lands in the inventory ledger; money out goes through the
// transaction ledger.
type Service struct {
	repo    Repository
	inv     InventoryLedger
	poster  LedgerPoster
	catalog ProductCatalog // optional
	txm     tx.Manager

	// overageTolerance is the fraction by which a line's received total may
	// exceed its ordered quantity (supplier rounding, free units). 0 means
	// exact.
	overageTolerance float64
}

// NewService creates the purchase receiving service.
func NewService(repo Repository, inv InventoryLedger, poster LedgerPoster, catalog ProductCatalog, txm tx.Manager, overageTolerance float64) *Service {
	if overageTolerance < 0 {
		overageTolerance = 0
	}
	return &Service{
		repo:             repo,
		inv:              inv,
		poster:           poster,
		catalog:          catalog,
		txm:              txm,
		overageTolerance: overageTolerance,
	}
}

// ItemCommand is one ordered line of a new purchase.
type ItemCommand struct {
	ProductID    id.ID
	Quantity     int64
	UnitCost     types.Money
	SellingPrice *types.Money
	ExpiryDate   *time.Time
}

// CreateCommand describes a new purchase order.
type CreateCommand struct {
	SupplierID id.ID
	BatchID    id.ID
	OrderDate  time.Time
	Notes      string
	Items      []ItemCommand
}

// Create records a pending purchase with its items.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Purchase, error) {
	if id.IsNil(cmd.SupplierID) {
		return nil, apperror.NewValidation("supplier is required").WithDetail("field", "supplierId")
	}
	if id.IsNil(cmd.BatchID) {
		return nil, apperror.NewValidation("batch is required").WithDetail("field", "batchId")
	}
	if len(cmd.Items) == 0 {
		return nil, apperror.NewValidation("purchase needs at least one item").WithDetail("field", "items")
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
		if item.UnitCost.IsNegative() {
			return nil, apperror.NewValidation("unit cost must not be negative").
				WithDetail("field", fmt.Sprintf("items[%d].unitCost", i))
		}
	}
	if cmd.OrderDate.IsZero() {
		cmd.OrderDate = time.Now().UTC()
	}

	var created *Purchase
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if s.catalog != nil {
			for _, item := range cmd.Items {
				exists, err := s.catalog.ProductExists(ctx, item.ProductID)
				if err != nil {
					return fmt.Errorf("check product: %w", err)
				}
				if !exists {
					return apperror.NewNotFound("product", item.ProductID.String())
				}
			}
		}

		now := time.Now().UTC()
		created = &Purchase{
			ID:         id.New(),
			SupplierID: cmd.SupplierID,
			BatchID:    cmd.BatchID,
			Status:     StatusPending,
			OrderDate:  cmd.OrderDate,
			Notes:      cmd.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		items := make([]PurchaseItem, 0, len(cmd.Items))
		for _, ic := range cmd.Items {
			items = append(items, PurchaseItem{
				ID:           id.New(),
				PurchaseID:   created.ID,
				ProductID:    ic.ProductID,
				Quantity:     ic.Quantity,
				UnitCost:     ic.UnitCost,
				TotalCost:    types.MoneyFromUnits(ic.UnitCost, ic.Quantity),
				SellingPrice: ic.SellingPrice,
				ExpiryDate:   ic.ExpiryDate,
			})
		}
		return s.repo.Create(ctx, created, items)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase created",
		"purchase_id", created.ID,
		"supplier_id", cmd.SupplierID,
		"items", len(cmd.Items),
	)
	return created, nil
}

// ReceiveCommand describes one receiving event against a purchase.
type ReceiveCommand struct {
	PurchaseID id.ID
	Lines      []ReceivedLine

	// IdempotencyKey, when set, is combined with each line's item id so a
	// retried receive does not double-credit stock.
	IdempotencyKey string
}

// Receive books received quantities into inventory and advances the purchase
// status: received when every item's total meets its ordered quantity,
// partial otherwise. A line may exceed its ordered quantity only within the
// configured overage tolerance. Posts one purchase transaction for the value
// received in this call.
func (s *Service) Receive(ctx context.Context, cmd ReceiveCommand) (*Receipt, error) {
	if len(cmd.Lines) == 0 {
		return nil, apperror.NewValidation("at least one received line is required").WithDetail("field", "lines")
	}
	for i, line := range cmd.Lines {
		if id.IsNil(line.PurchaseItemID) {
			return nil, apperror.NewValidation("purchase item is required").
				WithDetail("field", fmt.Sprintf("lines[%d].purchaseItemId", i))
		}
		if line.QuantityReceived <= 0 {
			return nil, apperror.NewValidation("received quantity must be positive").
				WithDetail("field", fmt.Sprintf("lines[%d].quantityReceived", i))
		}
	}

	var receipt *Receipt
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, cmd.PurchaseID)
		if err != nil {
			return err
		}
		if !p.AcceptsReceiving() {
			return apperror.NewInvalidState("purchase", cmd.PurchaseID.String(), string(p.Status))
		}

		items, err := s.repo.GetItems(ctx, cmd.PurchaseID)
		if err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		itemsByID := make(map[id.ID]*PurchaseItem, len(items))
		for i := range items {
			itemsByID[items[i].ID] = &items[i]
		}

		received, err := s.repo.ReceivedQuantities(ctx, cmd.PurchaseID)
		if err != nil {
			return fmt.Errorf("load received quantities: %w", err)
		}

		// Validate every line against its outstanding quantity before any
		// stock is credited. A line carrying an idempotency key may exceed
		// the outstanding quantity because a retried receipt's units are
		// already counted; its verdict is settled after the replay check,
		// where a genuine over-delivery still rolls the transaction back.
		deferred := make([]error, len(cmd.Lines))
		for i, line := range cmd.Lines {
			item, ok := itemsByID[line.PurchaseItemID]
			if !ok {
				return apperror.NewNotFound("purchase item", line.PurchaseItemID.String())
			}
			maxQty := s.maxReceivable(item.Quantity)
			if received[item.ID]+line.QuantityReceived > maxQty {
				overErr := apperror.NewValidation("received quantity exceeds ordered quantity").
					WithDetail("purchase_item_id", item.ID.String()).
					WithDetail("ordered", item.Quantity).
					WithDetail("already_received", received[item.ID]).
					WithDetail("receiving", line.QuantityReceived).
					WithDetail("max_receivable", maxQty)
				if cmd.IdempotencyKey == "" {
					return overErr
				}
				deferred[i] = overErr
			}
		}

		receivedValue := types.ZeroMoney()
		for i, line := range cmd.Lines {
			item := itemsByID[line.PurchaseItemID]

			sellingPrice, err := s.resolveSellingPrice(ctx, item)
			if err != nil {
				return err
			}

			ref := refs.Ref{Kind: refs.KindPurchase, ID: item.ID}
			rc := inventory.ReceiveCommand{
				ProductID:    item.ProductID,
				BatchID:      p.BatchID,
				CostPrice:    item.UnitCost,
				SellingPrice: sellingPrice,
				Quantity:     line.QuantityReceived,
				ExpiryDate:   item.ExpiryDate,
				Ref:          ref,
				Notes:        fmt.Sprintf("purchase %s receiving", p.ID),
			}
			if cmd.IdempotencyKey != "" {
				rc.IdempotencyKey = fmt.Sprintf("%s:%s", cmd.IdempotencyKey, item.ID)
			}
			_, replayed, err := s.inv.Receive(ctx, rc)
			if err != nil {
				return err
			}
			if replayed {
				// The movement-log totals already include this line.
				continue
			}
			if deferred[i] != nil {
				return deferred[i]
			}

			received[item.ID] += line.QuantityReceived
			receivedValue = receivedValue.Add(types.MoneyFromUnits(item.UnitCost, line.QuantityReceived))
		}

		status := StatusReceived
		for _, item := range items {
			if received[item.ID] < item.Quantity {
				status = StatusPartial
				break
			}
		}
		if err := s.repo.UpdateStatus(ctx, cmd.PurchaseID, status); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		p.Status = status

		receipt = &Receipt{Purchase: p, ReceivedValue: receivedValue}
		if receivedValue.IsPositive() {
			pc := ledger.PostCommand{
				Type:        ledger.TypePurchase,
				Amount:      receivedValue.Neg(),
				Description: fmt.Sprintf("goods received for purchase %s", p.ID),
				Ref:         refs.Ref{Kind: refs.KindPurchase, ID: p.ID},
			}
			if cmd.IdempotencyKey != "" {
				pc.IdempotencyKey = fmt.Sprintf("%s:tx", cmd.IdempotencyKey)
			}
			t, err := s.poster.Post(ctx, pc)
			if err != nil {
				return err
			}
			txID := t.ID
			receipt.TransactionID = &txID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase receiving booked",
		"purchase_id", cmd.PurchaseID,
		"lines", len(cmd.Lines),
		"status", receipt.Purchase.Status,
		"received_value", receipt.ReceivedValue.String(),
	)
	return receipt, nil
}

// maxReceivable applies the overage tolerance to an ordered quantity.
func (s *Service) maxReceivable(ordered int64) int64 {
	if s.overageTolerance == 0 {
		return ordered
	}
	extra := int64(float64(ordered) * s.overageTolerance)
	return ordered + extra
}

func (s *Service) resolveSellingPrice(ctx context.Context, item *PurchaseItem) (types.Money, error) {
	if item.SellingPrice != nil {
		return *item.SellingPrice, nil
	}
	if s.catalog == nil {
		return types.ZeroMoney(), nil
	}
	price, err := s.catalog.ProductSellingPrice(ctx, item.ProductID)
	if err != nil {
		return types.ZeroMoney(), fmt.Errorf("resolve selling price: %w", err)
	}
	return price, nil
}

// Cancel stops all further receiving against the purchase. Goods already
// received stay in inventory; corrections go through stock adjustments.
func (s *Service) Cancel(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	var cancelled *Purchase
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		if p.Status == StatusReceived || p.Status == StatusCancelled {
			return apperror.NewInvalidState("purchase", purchaseID.String(), string(p.Status))
		}
		if err := s.repo.UpdateStatus(ctx, purchaseID, StatusCancelled); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		p.Status = StatusCancelled
		cancelled = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase cancelled", "purchase_id", purchaseID)
	return cancelled, nil
}

// Get retrieves one purchase.
func (s *Service) Get(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	return s.repo.Get(ctx, purchaseID)
}

// GetItems retrieves a purchase's items.
func (s *Service) GetItems(ctx context.Context, purchaseID id.ID) ([]PurchaseItem, error) {
	return s.repo.GetItems(ctx, purchaseID)
}

// List retrieves purchases with filtering.
func (s *Service) List(ctx context.Context, filter Filter) ([]Purchase, error) {
	return s.repo.List(ctx, filter)
}
