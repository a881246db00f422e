package postgres

import (
	"context"
	"fmt"
	"time"

	"stocklot/internal/core/apperror"
	"stocklot/internal/core/id"
)

// OperationKeyStore implements service-level idempotency over
// sys_operation_keys. Unlike the HTTP replay store, it binds a key to the
// entity the operation created, inside the operation's own transaction: a
// rolled-back operation releases its key with the rollback.
type OperationKeyStore struct {
	txManager *TxManager
}

// NewOperationKeyStore creates the store.
func NewOperationKeyStore(txManager *TxManager) *OperationKeyStore {
	return &OperationKeyStore{txManager: txManager}
}

// Claim attempts to bind key to entityID for the given operation.
// First claim returns (entityID, true). A replay returns the originally
// bound entity id and false. Reusing a key for a different operation is an
// idempotency mismatch.
func (s *OperationKeyStore) Claim(ctx context.Context, key, operation string, entityID id.ID) (id.ID, bool, error) {
	q := s.txManager.GetQuerier(ctx)

	var boundID id.ID
	var boundOp string
	err := q.QueryRow(ctx, `
		INSERT INTO sys_operation_keys (operation_key, operation, entity_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (operation_key) DO UPDATE SET operation_key = sys_operation_keys.operation_key
		RETURNING entity_id, operation
	`, key, operation, entityID, time.Now().UTC()).Scan(&boundID, &boundOp)
	if err != nil {
		return id.Nil(), false, MapError(fmt.Errorf("claim operation key: %w", err), "operation key", key)
	}

	if boundID == entityID {
		return entityID, true, nil
	}
	if boundOp != operation {
		return id.Nil(), false, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", boundOp).
			WithDetail("request_operation", operation)
	}
	return boundID, false, nil
}
