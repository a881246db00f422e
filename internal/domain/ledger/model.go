// Package ledger implements the signed monetary transaction ledger.
// Every money movement in the system lands here as a single signed amount.
package ledger

import (
	"time"

	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TypeSale           TransactionType = "sale"
	TypePurchase       TransactionType = "purchase"
	TypeExpense        TransactionType = "expense"
	TypeRefund         TransactionType = "refund"
	TypeAdjustment     TransactionType = "adjustment"
	TypeOpeningBalance TransactionType = "opening_balance"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	_, ok := DefaultSignPolicy[t]
	return ok
}

// Status is the lifecycle state of a transaction. Ledger rows are never
// deleted; voiding flips the status to cancelled.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Sign constrains which signs a transaction type's amount may carry.
type Sign int

const (
	SignPositive Sign = iota + 1
	SignNegative
	SignEither
)

// SignPolicy maps each transaction type to its permitted amount sign.
// Inflows are positive, outflows negative; adjustments and opening balances
// go either way.
type SignPolicy map[TransactionType]Sign

// DefaultSignPolicy is the policy the service enforces on post().
var DefaultSignPolicy = SignPolicy{
	TypeSale:           SignPositive,
	TypePurchase:       SignNegative,
	TypeExpense:        SignNegative,
	TypeRefund:         SignNegative,
	TypeAdjustment:     SignEither,
	TypeOpeningBalance: SignEither,
}

// Allows reports whether the policy permits amount's sign for typ.
// A zero amount is never allowed.
func (p SignPolicy) Allows(typ TransactionType, amount types.Money) bool {
	sign, ok := p[typ]
	if !ok || amount.IsZero() {
		return false
	}
	switch sign {
	case SignPositive:
		return amount.IsPositive()
	case SignNegative:
		return amount.IsNegative()
	case SignEither:
		return true
	}
	return false
}

// Transaction is one signed ledger entry.
type Transaction struct {
	ID              id.ID           `db:"id"`
	Type            TransactionType `db:"transactionType"`
	Amount          types.Money     `db:"amount"`
	Description     string          `db:"description"`
	PaymentDate     time.Time       `db:"paymentDate"`
	ReferenceID     *id.ID          `db:"referenceId"`
	ReferenceType   *string         `db:"referenceType"`
	PaymentMethodID *id.ID          `db:"paymentMethodId"`
	ProcessedByID   *id.ID          `db:"processedById"`
	Status          Status          `db:"status"`
	CreatedAt       time.Time       `db:"createdAt"`
}

// IsVoidable reports whether the transaction can still be cancelled.
func (t *Transaction) IsVoidable() bool {
	return t.Status != StatusCancelled
}
