package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/refs"
	"stocklot/internal/core/tx"
	"stocklot/internal/core/types"
	"stocklot/pkg/logger"
)

// BatchRegistry lets the ledger close a batch once every lot in it is
// exhausted. Implemented by the batch service.
type BatchRegistry interface {
	CloseIfExhausted(ctx context.Context, batchID id.ID) (bool, error)
}

// ProductLookup validates product references against the catalog (read-only).
type ProductLookup interface {
	ProductExists(ctx context.Context, productID id.ID) (bool, error)
}

// Service is the sole authority over CurrentQuantity correctness and FIFO
// consumption order. Every mutating operation runs in a single transaction.
type Service struct {
	repo     Repository
	batches  BatchRegistry // optional
	products ProductLookup // optional
	txm      tx.Manager
}

// NewService creates the inventory ledger service.
func NewService(repo Repository, batches BatchRegistry, products ProductLookup, txm tx.Manager) *Service {
	return &Service{
		repo:     repo,
		batches:  batches,
		products: products,
		txm:      txm,
	}
}

// ReceiveCommand describes a new cost lot to record.
type ReceiveCommand struct {
	ProductID    id.ID
	BatchID      id.ID
	CostPrice    types.Money
	SellingPrice types.Money
	Quantity     int64
	ExpiryDate   *time.Time
	Ref          refs.Ref
	Notes        string

	// IdempotencyKey, when set, makes retried calls return the originally
	// created entry instead of crediting stock twice.
	IdempotencyKey string
}

// Receive creates a new entry with CurrentQuantity = Quantity and records the
// matching "in" movement. The returned replayed flag is true when the
// command's idempotency key was already claimed; in that case the originally
// created entry is returned and no stock is credited.
func (s *Service) Receive(ctx context.Context, cmd ReceiveCommand) (*InventoryEntry, bool, error) {
	if cmd.Quantity <= 0 {
		return nil, false, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", cmd.Quantity)
	}
	if id.IsNil(cmd.ProductID) {
		return nil, false, apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if id.IsNil(cmd.BatchID) {
		return nil, false, apperror.NewValidation("batch is required").WithDetail("field", "batchId")
	}
	if cmd.CostPrice.IsNegative() || cmd.SellingPrice.IsNegative() {
		return nil, false, apperror.NewValidation("prices must not be negative")
	}

	var entry *InventoryEntry
	var replayed bool
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if s.products != nil {
			exists, err := s.products.ProductExists(ctx, cmd.ProductID)
			if err != nil {
				return fmt.Errorf("check product: %w", err)
			}
			if !exists {
				return apperror.NewNotFound("product", cmd.ProductID.String())
			}
		}

		newID := id.New()
		if cmd.IdempotencyKey != "" {
			claimedID, claimed, err := s.repo.ClaimOperationKey(ctx, cmd.IdempotencyKey, "inventory.receive", newID)
			if err != nil {
				return fmt.Errorf("claim idempotency key: %w", err)
			}
			if !claimed {
				existing, err := s.repo.GetEntry(ctx, claimedID)
				if err != nil {
					return fmt.Errorf("load entry for replayed key: %w", err)
				}
				entry = existing
				replayed = true
				return nil
			}
		}

		entry = &InventoryEntry{
			ID:               newID,
			ProductID:        cmd.ProductID,
			BatchID:          cmd.BatchID,
			CostPrice:        cmd.CostPrice,
			SellingPrice:     cmd.SellingPrice,
			QuantityReceived: cmd.Quantity,
			CurrentQuantity:  cmd.Quantity,
			ExpiryDate:       cmd.ExpiryDate,
			CreatedAt:        time.Now().UTC(),
		}

		if err := s.repo.CreateEntry(ctx, entry); err != nil {
			return fmt.Errorf("create entry: %w", err)
		}

		movement := NewMovement(entry.ID, cmd.Quantity, MovementIn, cmd.Ref, cmd.Notes)
		if err := s.repo.InsertMovements(ctx, []Movement{movement}); err != nil {
			return fmt.Errorf("insert movement: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, false, err
	}

	logger.Info(ctx, "inventory received",
		"entry_id", entry.ID,
		"product_id", cmd.ProductID,
		"batch_id", cmd.BatchID,
		"quantity", cmd.Quantity,
		"replayed", replayed,
	)
	return entry, replayed, nil
}

// ConsumeCommand describes a FIFO consumption request.
type ConsumeCommand struct {
	ProductID id.ID
	Quantity  int64
	Ref       refs.Ref
	Notes     string
}

// Consume takes stock from the product's open entries in FIFO order (oldest
// createdAt first, id as tie-break), decrementing each lot and writing one
// "out" movement per lot touched. All-or-nothing: if the product's total
// available quantity is short, nothing is consumed.
func (s *Service) Consume(ctx context.Context, cmd ConsumeCommand) ([]Allocation, error) {
	if cmd.Quantity <= 0 {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", cmd.Quantity)
	}
	if id.IsNil(cmd.ProductID) {
		return nil, apperror.NewValidation("product is required").WithDetail("field", "productId")
	}

	var allocations []Allocation
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		allocs, err := s.consumeLocked(ctx, cmd)
		if err != nil {
			return err
		}
		allocations = allocs
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "inventory consumed",
		"product_id", cmd.ProductID,
		"quantity", cmd.Quantity,
		"lots", len(allocations),
		"reference", cmd.Ref.String(),
	)
	return allocations, nil
}

// consumeLocked performs the FIFO selection inside an ambient transaction.
// The availability check runs before any mutation so a shortage leaves every
// entry untouched.
func (s *Service) consumeLocked(ctx context.Context, cmd ConsumeCommand) ([]Allocation, error) {
	entries, err := s.repo.OpenEntriesForUpdate(ctx, cmd.ProductID)
	if err != nil {
		return nil, fmt.Errorf("lock entries: %w", err)
	}

	var available int64
	for _, e := range entries {
		available += e.CurrentQuantity
	}
	if available < cmd.Quantity {
		return nil, apperror.NewInsufficientStock(cmd.ProductID.String(), cmd.Quantity, available)
	}

	remaining := cmd.Quantity
	allocations := make([]Allocation, 0, len(entries))
	movements := make([]Movement, 0, len(entries))
	exhaustedBatches := make(map[id.ID]struct{})

	for i := range entries {
		if remaining == 0 {
			break
		}
		e := &entries[i]

		take := e.CurrentQuantity
		if take > remaining {
			take = remaining
		}

		if err := s.repo.SetEntryQuantity(ctx, e.ID, e.CurrentQuantity-take); err != nil {
			return nil, fmt.Errorf("decrement entry %s: %w", e.ID, err)
		}
		if e.CurrentQuantity == take {
			exhaustedBatches[e.BatchID] = struct{}{}
		}

		movements = append(movements, NewMovement(e.ID, take, MovementOut, cmd.Ref, cmd.Notes))
		allocations = append(allocations, Allocation{
			EntryID:       e.ID,
			QuantityTaken: take,
			UnitCost:      e.CostPrice,
		})
		remaining -= take
	}

	if err := s.repo.InsertMovements(ctx, movements); err != nil {
		return nil, fmt.Errorf("insert movements: %w", err)
	}

	if s.batches != nil {
		for batchID := range exhaustedBatches {
			closed, err := s.batches.CloseIfExhausted(ctx, batchID)
			if err != nil {
				return nil, fmt.Errorf("close exhausted batch %s: %w", batchID, err)
			}
			if closed {
				logger.Info(ctx, "batch closed after exhaustion", "batch_id", batchID)
			}
		}
	}

	return allocations, nil
}

// AdjustCommand applies a signed delta to one entry.
type AdjustCommand struct {
	EntryID id.ID
	Delta   int64
	Reason  string
	Ref     refs.Ref
}

// Adjust moves an entry's CurrentQuantity by Delta, bounded to
// [0, QuantityReceived], and writes a signed "adjustment" movement carrying
// the reason in its notes.
func (s *Service) Adjust(ctx context.Context, cmd AdjustCommand) (*InventoryEntry, error) {
	if cmd.Delta == 0 {
		return nil, apperror.NewValidation("delta must not be zero")
	}
	if cmd.Reason == "" {
		return nil, apperror.NewValidation("reason is required").WithDetail("field", "reason")
	}

	var entry *InventoryEntry
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		e, err := s.repo.GetEntryForUpdate(ctx, cmd.EntryID)
		if err != nil {
			return err
		}

		newQuantity := e.CurrentQuantity + cmd.Delta
		if newQuantity < 0 || newQuantity > e.QuantityReceived {
			return apperror.NewValidation("adjustment would leave quantity out of range").
				WithDetail("entry_id", e.ID.String()).
				WithDetail("current", e.CurrentQuantity).
				WithDetail("delta", cmd.Delta).
				WithDetail("quantity_received", e.QuantityReceived)
		}

		if err := s.repo.SetEntryQuantity(ctx, e.ID, newQuantity); err != nil {
			return fmt.Errorf("set quantity: %w", err)
		}

		movement := NewMovement(e.ID, cmd.Delta, MovementAdjustment, cmd.Ref, cmd.Reason)
		if err := s.repo.InsertMovements(ctx, []Movement{movement}); err != nil {
			return fmt.Errorf("insert movement: %w", err)
		}

		e.CurrentQuantity = newQuantity
		entry = e

		if newQuantity == 0 && s.batches != nil {
			if _, err := s.batches.CloseIfExhausted(ctx, e.BatchID); err != nil {
				return fmt.Errorf("close exhausted batch: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "inventory entry adjusted",
		"entry_id", cmd.EntryID,
		"delta", cmd.Delta,
		"reason", cmd.Reason,
	)
	return entry, nil
}

// AvailableQuantity returns the total on-hand quantity for a product.
func (s *Service) AvailableQuantity(ctx context.Context, productID id.ID) (int64, error) {
	if id.IsNil(productID) {
		return 0, apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	return s.repo.AvailableQuantity(ctx, productID)
}

// AvailableQuantityForUpdate locks the product's open entries and returns the
// total. Callers use this inside a transaction to pre-check multi-line
// operations before committing any consumption; the locks serialize FIFO
// selection against concurrent consumers.
func (s *Service) AvailableQuantityForUpdate(ctx context.Context, productID id.ID) (int64, error) {
	entries, err := s.repo.OpenEntriesForUpdate(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("lock entries: %w", err)
	}
	var total int64
	for _, e := range entries {
		total += e.CurrentQuantity
	}
	return total, nil
}

// LastCostPrice returns the most recent lot cost for a product, or false when
// the product has no history.
func (s *Service) LastCostPrice(ctx context.Context, productID id.ID) (types.Money, bool, error) {
	return s.repo.LastCostPrice(ctx, productID)
}

// ReverseCommand re-credits consumption previously recorded under Of,
// tagging the compensating movements with As.
type ReverseCommand struct {
	Of    refs.Ref
	As    refs.Ref
	Notes string
}

// ReverseConsumption re-opens the entries consumed under cmd.Of, best-effort:
// each lot is credited back up to its QuantityReceived cap. Compensating "in"
// movements are tagged with cmd.As so a second reversal is rejected.
func (s *Service) ReverseConsumption(ctx context.Context, cmd ReverseCommand) ([]Allocation, error) {
	if cmd.Of.IsZero() || cmd.As.IsZero() {
		return nil, apperror.NewValidation("both source and reversal references are required")
	}

	var credited []Allocation
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		already, err := s.repo.HasMovementsByReference(ctx, cmd.As)
		if err != nil {
			return fmt.Errorf("check reversal: %w", err)
		}
		if already {
			return apperror.NewInvalidState("consumption", cmd.Of.String(), "already reversed")
		}

		outs, err := s.repo.OutMovementsByReference(ctx, cmd.Of)
		if err != nil {
			return fmt.Errorf("load movements: %w", err)
		}
		if len(outs) == 0 {
			return apperror.NewInvalidState("consumption", cmd.Of.String(), "nothing to reverse")
		}

		// Aggregate per entry, then lock entries in a stable order.
		taken := make(map[id.ID]int64)
		for _, m := range outs {
			taken[m.InventoryEntryID] += m.Quantity
		}
		entryIDs := make([]id.ID, 0, len(taken))
		for entryID := range taken {
			entryIDs = append(entryIDs, entryID)
		}
		sort.Slice(entryIDs, func(i, j int) bool {
			return entryIDs[i].String() < entryIDs[j].String()
		})

		movements := make([]Movement, 0, len(entryIDs))
		for _, entryID := range entryIDs {
			e, err := s.repo.GetEntryForUpdate(ctx, entryID)
			if err != nil {
				return err
			}

			credit := taken[entryID]
			if headroom := e.Headroom(); credit > headroom {
				credit = headroom
			}
			if credit == 0 {
				continue
			}

			if err := s.repo.SetEntryQuantity(ctx, e.ID, e.CurrentQuantity+credit); err != nil {
				return fmt.Errorf("re-credit entry %s: %w", e.ID, err)
			}
			movements = append(movements, NewMovement(e.ID, credit, MovementIn, cmd.As, cmd.Notes))
			credited = append(credited, Allocation{
				EntryID:       e.ID,
				QuantityTaken: credit,
				UnitCost:      e.CostPrice,
			})
		}

		if len(movements) > 0 {
			if err := s.repo.InsertMovements(ctx, movements); err != nil {
				return fmt.Errorf("insert movements: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "consumption reversed",
		"of", cmd.Of.String(),
		"as", cmd.As.String(),
		"lots", len(credited),
	)
	return credited, nil
}

// ListEntries retrieves cost lots with filtering.
func (s *Service) ListEntries(ctx context.Context, filter EntryFilter) ([]InventoryEntry, error) {
	return s.repo.ListEntries(ctx, filter)
}

// ListMovements retrieves movement history with filtering.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.ListMovements(ctx, filter)
}
