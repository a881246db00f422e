// Package adjustment implements operator-initiated stock corrections
// (damage, loss, count correction, found stock) outside the purchase flow.
package adjustment

import (
	"context"
	"fmt"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/refs"
	"stocklot/internal/core/tx"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/batch"
	"stocklot/internal/domain/inventory"
	"stocklot/internal/domain/ledger"
	"stocklot/pkg/logger"
)

// Direction is the way an adjustment moves stock.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// CostPolicy selects the cost basis for increase adjustments. There is no
// implicit default: the server wires the deployed policy from configuration.
type CostPolicy string

const (
	// CostZero books found stock at zero cost; COGS stays conservative.
	CostZero CostPolicy = "zero"
	// CostLastCost books found stock at the product's most recent lot cost.
	CostLastCost CostPolicy = "last_cost"
)

// Valid reports whether p is a known policy.
func (p CostPolicy) Valid() bool {
	return p == CostZero || p == CostLastCost
}

// InventoryLedger is the slice of the inventory service adjustments use.
type InventoryLedger interface {
	Receive(ctx context.Context, cmd inventory.ReceiveCommand) (*inventory.InventoryEntry, bool, error)
	Consume(ctx context.Context, cmd inventory.ConsumeCommand) ([]inventory.Allocation, error)
	LastCostPrice(ctx context.Context, productID id.ID) (types.Money, bool, error)
}

// BatchRegistry resolves the reserved batch adjustment stock lands in.
type BatchRegistry interface {
	EnsureReserved(ctx context.Context, batchNumber string) (*batch.Batch, error)
}

// LedgerPoster posts the optional monetary side of an adjustment.
type LedgerPoster interface {
	Post(ctx context.Context, cmd ledger.PostCommand) (*ledger.Transaction, error)
}

// Service applies operator stock corrections through the inventory ledger.
type Service struct {
	inv     InventoryLedger
	batches BatchRegistry
	poster  LedgerPoster
	txm     tx.Manager

	costPolicy  CostPolicy
	postsLedger bool
}

// NewService creates the adjustment service. costPolicy must be a valid
// policy; postsLedger controls whether cost-bearing adjustments also post a
// ledger transaction.
func NewService(inv InventoryLedger, batches BatchRegistry, poster LedgerPoster, txm tx.Manager, costPolicy CostPolicy, postsLedger bool) (*Service, error) {
	if !costPolicy.Valid() {
		return nil, fmt.Errorf("unknown adjustment cost policy %q", costPolicy)
	}
	return &Service{
		inv:         inv,
		batches:     batches,
		poster:      poster,
		txm:         txm,
		costPolicy:  costPolicy,
		postsLedger: postsLedger,
	}, nil
}

// Command describes one adjustment.
type Command struct {
	ProductID id.ID
	Direction Direction
	Quantity  int64
	Reason    string
	Notes     string
}

// Result reports what an adjustment moved and, when posted, the ledger row.
type Result struct {
	AdjustmentID  id.ID
	Direction     Direction
	Quantity      int64
	Value         types.Money
	Allocations   []inventory.Allocation
	TransactionID *id.ID
}

// Adjust moves stock for a product up or down. Increases land in the
// reserved adjustment batch at the configured cost basis; decreases consume
// existing lots FIFO and fail with insufficient stock rather than going
// negative.
func (s *Service) Adjust(ctx context.Context, cmd Command) (*Result, error) {
	if id.IsNil(cmd.ProductID) {
		return nil, apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if cmd.Quantity <= 0 {
		return nil, apperror.NewValidation("quantity must be positive").WithDetail("quantity", cmd.Quantity)
	}
	if cmd.Reason == "" {
		return nil, apperror.NewValidation("reason is required").WithDetail("field", "reason")
	}
	if cmd.Direction != DirectionIncrease && cmd.Direction != DirectionDecrease {
		return nil, apperror.NewValidation(fmt.Sprintf("unknown direction %q", cmd.Direction)).
			WithDetail("field", "direction")
	}

	var result *Result
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		adjustmentID := id.New()
		ref := refs.Ref{Kind: refs.KindAdjustment, ID: adjustmentID}
		notes := cmd.Reason
		if cmd.Notes != "" {
			notes = cmd.Reason + ": " + cmd.Notes
		}

		switch cmd.Direction {
		case DirectionIncrease:
			r, err := s.increase(ctx, cmd, ref, notes)
			if err != nil {
				return err
			}
			result = r
		case DirectionDecrease:
			r, err := s.decrease(ctx, cmd, ref, notes)
			if err != nil {
				return err
			}
			result = r
		}
		result.AdjustmentID = adjustmentID

		if s.postsLedger && result.Value.IsPositive() {
			amount := result.Value
			if cmd.Direction == DirectionDecrease {
				amount = amount.Neg()
			}
			t, err := s.poster.Post(ctx, ledger.PostCommand{
				Type:        ledger.TypeAdjustment,
				Amount:      amount,
				Description: fmt.Sprintf("stock adjustment (%s): %s", cmd.Direction, cmd.Reason),
				Ref:         ref,
			})
			if err != nil {
				return err
			}
			txID := t.ID
			result.TransactionID = &txID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjusted",
		"adjustment_id", result.AdjustmentID,
		"product_id", cmd.ProductID,
		"direction", cmd.Direction,
		"quantity", cmd.Quantity,
		"reason", cmd.Reason,
	)
	return result, nil
}

func (s *Service) increase(ctx context.Context, cmd Command, ref refs.Ref, notes string) (*Result, error) {
	costPrice := types.ZeroMoney()
	if s.costPolicy == CostLastCost {
		last, ok, err := s.inv.LastCostPrice(ctx, cmd.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve last cost: %w", err)
		}
		if ok {
			costPrice = last
		}
	}

	reserved, err := s.batches.EnsureReserved(ctx, batch.NumberAdjustment)
	if err != nil {
		return nil, fmt.Errorf("resolve adjustment batch: %w", err)
	}

	entry, _, err := s.inv.Receive(ctx, inventory.ReceiveCommand{
		ProductID:    cmd.ProductID,
		BatchID:      reserved.ID,
		CostPrice:    costPrice,
		SellingPrice: types.ZeroMoney(),
		Quantity:     cmd.Quantity,
		Ref:          ref,
		Notes:        notes,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Direction: cmd.Direction,
		Quantity:  cmd.Quantity,
		Value:     types.MoneyFromUnits(costPrice, cmd.Quantity),
		Allocations: []inventory.Allocation{{
			EntryID:       entry.ID,
			QuantityTaken: cmd.Quantity,
			UnitCost:      costPrice,
		}},
	}, nil
}

func (s *Service) decrease(ctx context.Context, cmd Command, ref refs.Ref, notes string) (*Result, error) {
	allocs, err := s.inv.Consume(ctx, inventory.ConsumeCommand{
		ProductID: cmd.ProductID,
		Quantity:  cmd.Quantity,
		Ref:       ref,
		Notes:     notes,
	})
	if err != nil {
		return nil, err
	}

	value := types.ZeroMoney()
	for _, a := range allocs {
		value = value.Add(a.Cost())
	}
	return &Result{
		Direction:   cmd.Direction,
		Quantity:    cmd.Quantity,
		Value:       value,
		Allocations: allocs,
	}, nil
}

// OpeningBalanceCommand describes one line of an opening-balance import.
type OpeningBalanceCommand struct {
	ProductID id.ID
	Quantity  int64
	UnitCost  types.Money

	// IdempotencyKey guards re-runs of an import file.
	IdempotencyKey string
}

// ImportOpeningBalance seeds initial stock into the reserved opening-balance
// batch and posts a matching opening_balance transaction for the stock
// value.
func (s *Service) ImportOpeningBalance(ctx context.Context, cmd OpeningBalanceCommand) (*Result, error) {
	if id.IsNil(cmd.ProductID) {
		return nil, apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if cmd.Quantity <= 0 {
		return nil, apperror.NewValidation("quantity must be positive").WithDetail("quantity", cmd.Quantity)
	}
	if cmd.UnitCost.IsNegative() {
		return nil, apperror.NewValidation("unit cost must not be negative").WithDetail("field", "unitCost")
	}

	var result *Result
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		importID := id.New()
		ref := refs.Ref{Kind: refs.KindOpeningBalance, ID: importID}

		reserved, err := s.batches.EnsureReserved(ctx, batch.NumberOpeningBalance)
		if err != nil {
			return fmt.Errorf("resolve opening-balance batch: %w", err)
		}

		entry, _, err := s.inv.Receive(ctx, inventory.ReceiveCommand{
			ProductID:      cmd.ProductID,
			BatchID:        reserved.ID,
			CostPrice:      cmd.UnitCost,
			SellingPrice:   types.ZeroMoney(),
			Quantity:       cmd.Quantity,
			Ref:            ref,
			Notes:          "opening balance import",
			IdempotencyKey: cmd.IdempotencyKey,
		})
		if err != nil {
			return err
		}

		result = &Result{
			AdjustmentID: importID,
			Direction:    DirectionIncrease,
			Quantity:     cmd.Quantity,
			Value:        types.MoneyFromUnits(cmd.UnitCost, cmd.Quantity),
			Allocations: []inventory.Allocation{{
				EntryID:       entry.ID,
				QuantityTaken: cmd.Quantity,
				UnitCost:      cmd.UnitCost,
			}},
		}

		if result.Value.IsPositive() {
			pc := ledger.PostCommand{
				Type:        ledger.TypeOpeningBalance,
				Amount:      result.Value,
				Description: fmt.Sprintf("opening balance for product %s", cmd.ProductID),
				Ref:         ref,
			}
			if cmd.IdempotencyKey != "" {
				pc.IdempotencyKey = cmd.IdempotencyKey + ":tx"
			}
			t, err := s.poster.Post(ctx, pc)
			if err != nil {
				return err
			}
			txID := t.ID
			result.TransactionID = &txID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "opening balance imported",
		"product_id", cmd.ProductID,
		"quantity", cmd.Quantity,
		"value", result.Value.String(),
	)
	return result, nil
}
