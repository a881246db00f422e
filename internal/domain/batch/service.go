package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
	"stocklot/internal/core/numerator"
	"stocklot/internal/core/tx"
	"stocklot/pkg/logger"
)

// SupplierLookup validates supplier references (read-only catalog).
type SupplierLookup interface {
	SupplierExists(ctx context.Context, supplierID id.ID) (bool, error)
}

// Service manages the batch registry.
type Service struct {
	repo      Repository
	suppliers SupplierLookup      // optional
	numbers   numerator.Generator // optional
	txm       tx.Manager
}

// NewService creates the batch registry service.
func NewService(repo Repository, suppliers SupplierLookup, numbers numerator.Generator, txm tx.Manager) *Service {
	return &Service{repo: repo, suppliers: suppliers, numbers: numbers, txm: txm}
}

// batchNumberConfig formats generated batch numbers (BATCH-2026-00001).
var batchNumberConfig = numerator.DefaultConfig("BATCH")

// RegisterCommand describes a new supplier batch.
type RegisterCommand struct {
	BatchNumber string
	SupplierID  *id.ID
	ReceivedAt  time.Time
	Notes       string
}

// Register creates an open batch. Batch numbers are unique across the
// registry.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*Batch, error) {
	if cmd.ReceivedAt.IsZero() {
		cmd.ReceivedAt = time.Now().UTC()
	}
	if cmd.BatchNumber == "" {
		if s.numbers == nil {
			return nil, apperror.NewValidation("batch number is required").WithDetail("field", "batchNumber")
		}
		generated, err := s.numbers.GetNextNumber(ctx, batchNumberConfig, nil, cmd.ReceivedAt)
		if err != nil {
			return nil, fmt.Errorf("generate batch number: %w", err)
		}
		cmd.BatchNumber = generated
	}

	var created *Batch
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByNumber(ctx, cmd.BatchNumber)
		if err != nil && !apperror.IsNotFound(err) {
			return fmt.Errorf("check batch number: %w", err)
		}
		if existing != nil {
			return apperror.NewDuplicate("batch", "batchNumber", cmd.BatchNumber)
		}

		if cmd.SupplierID != nil && s.suppliers != nil {
			exists, err := s.suppliers.SupplierExists(ctx, *cmd.SupplierID)
			if err != nil {
				return fmt.Errorf("check supplier: %w", err)
			}
			if !exists {
				return apperror.NewNotFound("supplier", cmd.SupplierID.String())
			}
		}

		created = &Batch{
			ID:          id.New(),
			BatchNumber: cmd.BatchNumber,
			SupplierID:  cmd.SupplierID,
			Status:      StatusOpen,
			ReceivedAt:  cmd.ReceivedAt,
			Notes:       cmd.Notes,
			CreatedAt:   time.Now().UTC(),
		}
		return s.repo.Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batch registered", "batch_id", created.ID, "batch_number", cmd.BatchNumber)
	return created, nil
}

// Close marks a batch closed. Closing an already-closed batch is an invalid
// state transition.
func (s *Service) Close(ctx context.Context, batchID id.ID) (*Batch, error) {
	var closed *Batch
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if !b.IsOpen() {
			return apperror.NewInvalidState("batch", batchID.String(), string(b.Status))
		}
		if err := s.repo.UpdateStatus(ctx, batchID, StatusClosed); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		now := time.Now().UTC()
		b.Status = StatusClosed
		b.ClosedAt = &now
		closed = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "batch closed", "batch_id", batchID)
	return closed, nil
}

// CloseIfExhausted closes the batch when every entry in it has reached zero.
// Reserved system batches stay open so they can keep absorbing entries.
// Returns true when the batch transitioned to closed.
func (s *Service) CloseIfExhausted(ctx context.Context, batchID id.ID) (bool, error) {
	var closed bool
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if !b.IsOpen() {
			return nil
		}
		if b.BatchNumber == NumberAdjustment || b.BatchNumber == NumberOpeningBalance {
			return nil
		}
		remaining, err := s.repo.UnconsumedQuantity(ctx, batchID)
		if err != nil {
			return fmt.Errorf("sum batch stock: %w", err)
		}
		if remaining > 0 {
			return nil
		}
		if err := s.repo.UpdateStatus(ctx, batchID, StatusClosed); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		closed = true
		return nil
	})
	return closed, err
}

// EnsureReserved returns the reserved batch with the given number, creating
// it (open, no supplier) on first use.
func (s *Service) EnsureReserved(ctx context.Context, batchNumber string) (*Batch, error) {
	b, err := s.repo.GetByNumber(ctx, batchNumber)
	if err == nil {
		return b, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	var created *Batch
	txErr := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		// Re-check inside the transaction; a concurrent caller may have won.
		if existing, err := s.repo.GetByNumber(ctx, batchNumber); err == nil {
			created = existing
			return nil
		} else if !apperror.IsNotFound(err) {
			return err
		}

		created = &Batch{
			ID:          id.New(),
			BatchNumber: batchNumber,
			Status:      StatusOpen,
			ReceivedAt:  time.Now().UTC(),
			Notes:       "reserved system batch",
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.repo.Create(ctx, created); err != nil {
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Code == apperror.CodeDuplicate {
				existing, getErr := s.repo.GetByNumber(ctx, batchNumber)
				if getErr != nil {
					return getErr
				}
				created = existing
				return nil
			}
			return err
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return created, nil
}

// Get retrieves one batch.
func (s *Service) Get(ctx context.Context, batchID id.ID) (*Batch, error) {
	return s.repo.Get(ctx, batchID)
}

// List retrieves batches with filtering.
func (s *Service) List(ctx context.Context, filter Filter) ([]Batch, error) {
	return s.repo.List(ctx, filter)
}
