package handlers

import (
	"context"

	"facet/internal/core/id"
	"facet/internal/infrastructure/storage/postgres"
	"facet/pkg/logger"
)

// AuditRecorder records mutation audit entries best-effort: a failed
// audit write never fails the request. Nil-safe so audit can be left
// unconfigured.
type AuditRecorder struct {
	log *postgres.AuditLog
}

// NewAuditRecorder wraps the audit log; log may be nil.
func NewAuditRecorder(log *postgres.AuditLog) *AuditRecorder {
	return &AuditRecorder{log: log}
}

// Record writes one audit entry.
func (r *AuditRecorder) Record(ctx context.Context, resource string, resourceID id.ID, action postgres.AuditAction, changes map[string]any) {
	if r == nil || r.log == nil {
		return
	}
	if err := r.log.LogChange(ctx, resource, resourceID, action, changes); err != nil {
		logger.Warn(ctx, "audit write failed",
			"resource", resource,
			"resource_id", resourceID,
			"action", action,
			"error", err,
		)
	}
}
