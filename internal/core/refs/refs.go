// Package refs models the loose polymorphic references used by inventory
// movements and ledger transactions (referenceId/referenceType columns).
//
// The database enforces no foreign key on these columns; the application
// validates the kind against an enumerated set instead.
package refs

import (
	"fmt"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
)

// Kind identifies the entity family a reference points at.
type Kind string

const (
	KindOrder          Kind = "order"
	KindPurchase       Kind = "purchase"
	KindAdjustment     Kind = "adjustment"
	KindRefund         Kind = "refund"
	KindOpeningBalance Kind = "opening_balance"
)

var validKinds = map[Kind]struct{}{
	KindOrder:          {},
	KindPurchase:       {},
	KindAdjustment:     {},
	KindRefund:         {},
	KindOpeningBalance: {},
}

// Valid reports whether k is one of the enumerated reference kinds.
func (k Kind) Valid() bool {
	_, ok := validKinds[k]
	return ok
}

// Ref is a tagged reference to the originating entity of a stock or money
// movement. A zero Ref means "no reference".
type Ref struct {
	Kind Kind
	ID   id.ID
}

// New constructs a validated Ref.
func New(kind Kind, refID id.ID) (Ref, error) {
	if !kind.Valid() {
		return Ref{}, apperror.NewValidation(fmt.Sprintf("unknown reference kind %q", kind)).
			WithDetail("field", "referenceType")
	}
	if id.IsNil(refID) {
		return Ref{}, apperror.NewValidation("reference id is required").
			WithDetail("field", "referenceId")
	}
	return Ref{Kind: kind, ID: refID}, nil
}

// MustNew constructs a Ref, panicking on invalid input. Use only in tests.
func MustNew(kind Kind, refID id.ID) Ref {
	r, err := New(kind, refID)
	if err != nil {
		panic(err)
	}
	return r
}

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool {
	return r.Kind == "" && id.IsNil(r.ID)
}

// String renders the reference for logs and error details.
func (r Ref) String() string {
	if r.IsZero() {
		return ""
	}
	return string(r.Kind) + ":" + r.ID.String()
}
