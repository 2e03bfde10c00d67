package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"facet/internal/core/id"
)

// AuditAction is the kind of audited mutation.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// CompressionAlgo marks how an entry's change payload is stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry is one recorded mutation of a schema object or entity.
// Resource names what was touched: "attribute", "attribute_set",
// "entity_type" or "entity".
type AuditEntry struct {
	ID                id.ID           `db:"id"`
	Resource          string          `db:"resource"`
	ResourceID        id.ID           `db:"resource_id"`
	Action            AuditAction     `db:"action"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditLog records mutations in the audit_log table. Large change
// payloads are zstd-compressed; entity field bags can carry sizable
// text values.
type AuditLog struct {
	tm                *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditLog creates the audit log. Payloads above 10KB are compressed.
func NewAuditLog(tm *TxManager) (*AuditLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditLog{
		tm:                tm,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Log records one entry. Joins the caller's transaction when present, so
// audit rows commit with the mutation they describe.
func (l *AuditLog) Log(ctx context.Context, entry AuditEntry) error {
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo = l.pack(entry.Changes)

	sql := `
		INSERT INTO audit_log (
			id, resource, resource_id, action,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := l.tm.GetQuerier(ctx).Exec(ctx, sql,
		entry.ID, entry.Resource, entry.ResourceID, entry.Action,
		entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// LogChange marshals a change map and records it.
func (l *AuditLog) LogChange(ctx context.Context, resource string, resourceID id.ID, action AuditAction, changes map[string]any) error {
	payload, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	return l.Log(ctx, AuditEntry{
		Resource:   resource,
		ResourceID: resourceID,
		Action:     action,
		Changes:    payload,
	})
}

// History returns the most recent entries for a resource, change
// payloads decompressed.
func (l *AuditLog) History(ctx context.Context, resource string, resourceID id.ID, limit int) ([]AuditEntry, error) {
	sql := `
		SELECT id, resource, resource_id, action,
			   changes, changes_compressed, compression_algo, created_at
		FROM audit_log
		WHERE resource = $1 AND resource_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := l.tm.GetQuerier(ctx).Query(ctx, sql, resource, resourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		err := rows.Scan(
			&e.ID, &e.Resource, &e.ResourceID, &e.Action,
			&e.Changes, &e.ChangesCompressed, &e.CompressionAlgo, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if e.Changes, err = l.unpack(e); err != nil {
			return nil, err
		}
		e.ChangesCompressed = nil
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (l *AuditLog) pack(changes json.RawMessage) (json.RawMessage, []byte, CompressionAlgo) {
	if len(changes) <= l.compressThreshold {
		return changes, nil, CompressionNone
	}
	return nil, l.encoder.EncodeAll(changes, nil), CompressionZstd
}

func (l *AuditLog) unpack(e AuditEntry) (json.RawMessage, error) {
	if e.CompressionAlgo != CompressionZstd || len(e.ChangesCompressed) == 0 {
		return e.Changes, nil
	}
	decompressed, err := l.decoder.DecodeAll(e.ChangesCompressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress audit changes: %w", err)
	}
	return decompressed, nil
}

// AuditDiff produces a field-keyed {old, new} change map between two
// states of one resource.
func AuditDiff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)
	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		switch {
		case !exists:
			changes[key] = map[string]any{"old": nil, "new": newVal}
		case fmt.Sprintf("%v", oldVal) != fmt.Sprintf("%v", newVal):
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}
	for key, oldVal := range oldState {
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}
	return changes
}
