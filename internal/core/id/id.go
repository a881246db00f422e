// Package id generates UUIDv7 identifiers for every stored entity.
// The embedded timestamp makes ids sort in creation order, which the
// inventory ledger relies on as the deterministic tie-break when lots share
// a createdAt.
package id

import (
	"github.com/google/uuid"
)

// ID aliases uuid.UUID so entities and repositories share one id type.
type ID = uuid.UUID

// New returns a UUIDv7 (RFC 9562). The first 48 bits carry a Unix
// millisecond timestamp, so freshly minted ids compare chronologically and
// cluster well in B-tree indexes.
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does; fall back to V4.
		return uuid.New()
	}
	return id
}

// Parse validates and converts a string form of an id.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts a string to an ID, panicking on malformed input.
// For constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns the zero id.
func Nil() ID {
	return uuid.Nil
}

// IsNil reports whether id is the zero id.
func IsNil(id ID) bool {
	return id == uuid.Nil
}
