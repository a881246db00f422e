// Package tx defines the transaction boundaries the domain services run
// inside. Services see only these interfaces; the pgx-backed implementation
// lives in infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager runs a function inside a database transaction. Every mutating
// operation in this system goes through it: receiving stock, consuming FIFO
// lots, and posting money all commit or roll back as a unit.
type Manager interface {
	// RunInTransaction begins a transaction, runs fn with the transaction
	// carried in ctx, and commits when fn returns nil. Any error from fn
	// rolls the whole transaction back.
	//
	// When ctx already carries a transaction, fn joins it instead of
	// opening a new one.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only execution for report queries that need a
// consistent snapshot without taking row locks.
type ReadOnlyManager interface {
	Manager

	// ReadOnly runs fn in a read-only transaction; writes inside fn fail.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
