package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "stocklot/internal/core/context"
	"stocklot/internal/core/id"
	"stocklot/internal/domain/audit"
	"stocklot/pkg/logger"
)

// CompressionAlgo specifies the compression algorithm used for a payload.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// Compile-time check that AuditRecorder implements audit.Recorder.
var _ audit.Recorder = (*AuditRecorder)(nil)

// AuditRecorder persists audit entries into sys_audit, compressing large
// payloads with zstd. Recording never fails the audited operation.
type AuditRecorder struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

// NewAuditRecorder creates the recorder.
func NewAuditRecorder(txManager *TxManager) (*AuditRecorder, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditRecorder{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record persists one audit entry. Errors are logged, never returned.
func (r *AuditRecorder) Record(ctx context.Context, entry audit.Entry) {
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.UserID == "" {
		entry.UserID = appctx.GetUserID(ctx)
	}
	if entry.TraceID == "" {
		entry.TraceID = appctx.GetTraceID(ctx)
	}

	payload := entry.Payload
	algo := CompressionNone
	if len(payload) > r.compressThreshold {
		payload = r.encoder.EncodeAll(payload, nil)
		algo = CompressionZstd
	}

	_, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (id, action, entity, entity_id, user_id, trace_id, payload, compression_algo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, entry.Action, entry.Entity, entry.EntityID, entry.UserID, entry.TraceID, payload, algo, entry.CreatedAt)
	if err != nil {
		logger.Error(ctx, "audit record failed", "action", entry.Action, "entity", entry.Entity, "error", err)
	}
}

// Payload returns a stored payload, decompressing when needed.
func (r *AuditRecorder) Payload(ctx context.Context, entryID id.ID) ([]byte, error) {
	var payload []byte
	var algo CompressionAlgo
	err := r.txManager.GetQuerier(ctx).QueryRow(ctx, `
		SELECT payload, compression_algo FROM sys_audit WHERE id = $1
	`, entryID).Scan(&payload, &algo)
	if err != nil {
		return nil, MapError(fmt.Errorf("load audit payload: %w", err), "audit entry", entryID.String())
	}

	if algo == CompressionZstd {
		decoded, err := r.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress audit payload: %w", err)
		}
		return decoded, nil
	}
	return payload, nil
}
