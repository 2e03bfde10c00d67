// Package cache provides schema caching with PostgreSQL LISTEN/NOTIFY
// invalidation. Attribute and set definitions change rarely but are read
// on every entity operation, so repositories publish an invalidation
// after each schema write and readers subscribe instead of polling.
package cache

import (
	"context"
	"fmt"

	"facet/internal/infrastructure/storage/postgres"
)

// Invalidation kinds. The kind is the NOTIFY payload; subscribers decide
// what to reload from it.
const (
	KindAttributes    = "attributes"
	KindAttributeSets = "attribute_sets"
	KindEntityTypes   = "entity_types"
)

// channel is the NOTIFY channel schema writers publish on.
const channel = "facet_schema_changed"

// Invalidator publishes schema-change notifications. Repositories call
// Forget after every write that alters definitions.
type Invalidator interface {
	Forget(ctx context.Context, kind string) error
}

// Noop discards invalidations. For tests and single-process setups that
// skip the cache.
type Noop struct{}

func (Noop) Forget(ctx context.Context, kind string) error { return nil }

// PgInvalidator publishes via pg_notify so every process listening on
// the channel drops its cached schema. When called inside a transaction
// the notification is delivered on commit, which is exactly the ordering
// the cache needs.
type PgInvalidator struct {
	tm *postgres.TxManager
}

// NewPgInvalidator creates a NOTIFY-based invalidator.
func NewPgInvalidator(tm *postgres.TxManager) *PgInvalidator {
	return &PgInvalidator{tm: tm}
}

func (i *PgInvalidator) Forget(ctx context.Context, kind string) error {
	_, err := i.tm.GetQuerier(ctx).Exec(ctx, "SELECT pg_notify($1, $2)", channel, kind)
	if err != nil {
		return fmt.Errorf("notify %s: %w", kind, err)
	}
	return nil
}
