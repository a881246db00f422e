package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"stocklot/internal/domain/ledger"
)

// PostTransactionRequest for POST /transactions.
type PostTransactionRequest struct {
	Type            string          `json:"type" binding:"required,oneof=sale purchase expense refund adjustment opening_balance"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Description     string          `json:"description"`
	PaymentDate     *time.Time      `json:"paymentDate"`
	PaymentMethodID *string         `json:"paymentMethodId" binding:"omitempty,uuid"`
}

// VoidTransactionRequest for POST /transactions/:id/void.
type VoidTransactionRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// TransactionResponse is one ledger row.
type TransactionResponse struct {
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description,omitempty"`
	PaymentDate     time.Time       `json:"paymentDate"`
	PaymentMethodID *string         `json:"paymentMethodId,omitempty"`
	ReferenceID     *string         `json:"referenceId,omitempty"`
	ReferenceType   *string         `json:"referenceType,omitempty"`
	ProcessedByID   *string         `json:"processedById,omitempty"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// FromTransaction converts a domain transaction.
func FromTransaction(t *ledger.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:            t.ID.String(),
		Type:          string(t.Type),
		Amount:        t.Amount,
		Description:   t.Description,
		PaymentDate:   t.PaymentDate,
		ReferenceType: t.ReferenceType,
		Status:        string(t.Status),
		CreatedAt:     t.CreatedAt,
	}
	if t.PaymentMethodID != nil {
		s := t.PaymentMethodID.String()
		resp.PaymentMethodID = &s
	}
	if t.ReferenceID != nil {
		s := t.ReferenceID.String()
		resp.ReferenceID = &s
	}
	if t.ProcessedByID != nil {
		s := t.ProcessedByID.String()
		resp.ProcessedByID = &s
	}
	return resp
}

// TransactionListQuery filters GET /transactions.
type TransactionListQuery struct {
	ListQuery
	Type     string     `form:"type" binding:"omitempty,oneof=sale purchase expense refund adjustment opening_balance"`
	Status   string     `form:"status" binding:"omitempty,oneof=pending completed failed cancelled"`
	FromDate *time.Time `form:"fromDate" time_format:"2006-01-02T15:04:05Z07:00"`
	ToDate   *time.Time `form:"toDate" time_format:"2006-01-02T15:04:05Z07:00"`
}

// BalanceQuery for GET /transactions/balance.
type BalanceQuery struct {
	AsOf *time.Time `form:"asOf" time_format:"2006-01-02T15:04:05Z07:00"`
	Type string     `form:"type" binding:"omitempty,oneof=sale purchase expense refund adjustment opening_balance"`
}

// BalanceResponse is the signed ledger balance.
type BalanceResponse struct {
	AsOf    time.Time       `json:"asOf"`
	Type    *string         `json:"type,omitempty"`
	Balance decimal.Decimal `json:"balance"`
}
