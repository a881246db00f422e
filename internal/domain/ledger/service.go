package ledger

import (
	"context"
	"fmt"
	"time"

	"stocklot/internal/core/apperror"
	appctx "stocklot/internal/core/context"
	"stocklot/internal/core/id"
	"stocklot/internal/core/refs"
	"stocklot/internal/core/tx"
	"stocklot/internal/core/types"
	"stocklot/pkg/logger"
)

// PaymentMethodLookup validates payment method references (read-only catalog).
type PaymentMethodLookup interface {
	PaymentMethodExists(ctx context.Context, pmID id.ID) (bool, error)
}

// Service posts and voids ledger transactions. It is the single place the
// sign policy is enforced; callers (fulfillment, receiving, adjustments)
// never write ledger rows directly.
type Service struct {
	repo           Repository
	paymentMethods PaymentMethodLookup // optional
	policy         SignPolicy
	txm            tx.Manager
}

// NewService creates the ledger service with the default sign policy.
func NewService(repo Repository, paymentMethods PaymentMethodLookup, txm tx.Manager) *Service {
	return &Service{
		repo:           repo,
		paymentMethods: paymentMethods,
		policy:         DefaultSignPolicy,
		txm:            txm,
	}
}

// PostCommand describes a transaction to record.
type PostCommand struct {
	Type            TransactionType
	Amount          types.Money
	Description     string
	PaymentDate     time.Time
	Ref             refs.Ref
	PaymentMethodID *id.ID

	// IdempotencyKey, when set, makes retried posts return the original
	// transaction instead of double-booking.
	IdempotencyKey string
}

// Post records a completed transaction after validating the amount's sign
// against the type's policy.
func (s *Service) Post(ctx context.Context, cmd PostCommand) (*Transaction, error) {
	if !cmd.Type.Valid() {
		return nil, apperror.NewValidation(fmt.Sprintf("unknown transaction type %q", cmd.Type)).
			WithDetail("field", "type")
	}
	if !s.policy.Allows(cmd.Type, cmd.Amount) {
		return nil, apperror.NewValidation("amount sign not permitted for transaction type").
			WithDetail("type", string(cmd.Type)).
			WithDetail("amount", cmd.Amount.String())
	}
	if cmd.PaymentDate.IsZero() {
		cmd.PaymentDate = time.Now().UTC()
	}

	var posted *Transaction
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		newID := id.New()
		if cmd.IdempotencyKey != "" {
			claimedID, claimed, err := s.repo.ClaimOperationKey(ctx, cmd.IdempotencyKey, "ledger.post", newID)
			if err != nil {
				return fmt.Errorf("claim idempotency key: %w", err)
			}
			if !claimed {
				existing, err := s.repo.Get(ctx, claimedID)
				if err != nil {
					return fmt.Errorf("load transaction for replayed key: %w", err)
				}
				posted = existing
				return nil
			}
		}

		if cmd.PaymentMethodID != nil && s.paymentMethods != nil {
			exists, err := s.paymentMethods.PaymentMethodExists(ctx, *cmd.PaymentMethodID)
			if err != nil {
				return fmt.Errorf("check payment method: %w", err)
			}
			if !exists {
				return apperror.NewNotFound("payment method", cmd.PaymentMethodID.String())
			}
		}

		t := &Transaction{
			ID:              newID,
			Type:            cmd.Type,
			Amount:          cmd.Amount,
			Description:     cmd.Description,
			PaymentDate:     cmd.PaymentDate,
			PaymentMethodID: cmd.PaymentMethodID,
			Status:          StatusCompleted,
			CreatedAt:       time.Now().UTC(),
		}
		if !cmd.Ref.IsZero() {
			refID := cmd.Ref.ID
			refType := string(cmd.Ref.Kind)
			t.ReferenceID = &refID
			t.ReferenceType = &refType
		}
		if userID := appctx.GetUserID(ctx); userID != "" {
			if uid, err := id.Parse(userID); err == nil {
				t.ProcessedByID = &uid
			}
		}

		if err := s.repo.Create(ctx, t); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		posted = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transaction posted",
		"transaction_id", posted.ID,
		"type", posted.Type,
		"amount", posted.Amount.String(),
	)
	return posted, nil
}

// Void cancels a transaction. The row stays in the ledger with its amount
// untouched; only the status changes, so the audit trail is preserved and
// the row drops out of balance sums.
func (s *Service) Void(ctx context.Context, txID id.ID, reason string) (*Transaction, error) {
	if reason == "" {
		return nil, apperror.NewValidation("void reason is required").WithDetail("field", "reason")
	}

	var voided *Transaction
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		t, err := s.repo.GetForUpdate(ctx, txID)
		if err != nil {
			return err
		}
		if !t.IsVoidable() {
			return apperror.NewInvalidState("transaction", txID.String(), string(t.Status))
		}
		if err := s.repo.UpdateStatus(ctx, txID, StatusCancelled); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		t.Status = StatusCancelled
		voided = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "transaction voided", "transaction_id", txID, "reason", reason)
	return voided, nil
}

// BalanceAsOf returns the signed sum of completed transactions dated up to
// asOf. Cancelled transactions never count.
func (s *Service) BalanceAsOf(ctx context.Context, asOf time.Time, typ *TransactionType) (types.Money, error) {
	if typ != nil && !typ.Valid() {
		return types.ZeroMoney(), apperror.NewValidation(fmt.Sprintf("unknown transaction type %q", *typ)).
			WithDetail("field", "type")
	}
	return s.repo.SumCompletedAsOf(ctx, asOf, typ)
}

// Get retrieves one transaction.
func (s *Service) Get(ctx context.Context, txID id.ID) (*Transaction, error) {
	return s.repo.Get(ctx, txID)
}

// List retrieves transactions with filtering.
func (s *Service) List(ctx context.Context, filter Filter) ([]Transaction, error) {
	return s.repo.List(ctx, filter)
}
