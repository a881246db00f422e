// Package audit defines the append-only audit trail for mutating API calls.
package audit

import (
	"context"
	"time"

	"stocklot/internal/core/id"
)

// Entry is one recorded action. Payload carries the request body; the
// storage layer compresses large payloads before persisting.
type Entry struct {
	ID        id.ID     `db:"id"`
	Action    string    `db:"action"`
	Entity    string    `db:"entity"`
	EntityID  *id.ID    `db:"entityId"`
	UserID    string    `db:"userId"`
	TraceID   string    `db:"traceId"`
	Payload   []byte    `db:"payload"`
	CreatedAt time.Time `db:"createdAt"`
}

// Recorder persists audit entries. Recording must never fail the audited
// operation; implementations log and swallow their own errors.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}
