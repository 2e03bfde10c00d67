package schema_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"facet/internal/core/id"
	"facet/internal/domain"
	"facet/internal/domain/entitytype"
	"facet/internal/domain/fieldtype"
	"facet/internal/infrastructure/cache"
	"facet/internal/infrastructure/storage/postgres"
	"facet/pkg/logger"
)

var entityTypeCols = []string{"id", "code", "name", "created_at", "updated_at"}

// EntityTypeRepo resolves entity types addressed by code.
type EntityTypeRepo struct {
	*baseRepo[*entitytype.EntityType]
	registry    *fieldtype.Registry
	invalidator cache.Invalidator
}

// NewEntityTypeRepo creates the entity type repository.
func NewEntityTypeRepo(tm *postgres.TxManager, registry *fieldtype.Registry, invalidator cache.Invalidator) *EntityTypeRepo {
	if invalidator == nil {
		invalidator = cache.Noop{}
	}
	return &EntityTypeRepo{
		baseRepo: newBaseRepo(tm, "entity_types", entityTypeCols, func() *entitytype.EntityType {
			return &entitytype.EntityType{}
		}),
		registry:    registry,
		invalidator: invalidator,
	}
}

// Create writes a new entity type.
func (r *EntityTypeRepo) Create(ctx context.Context, et *entitytype.EntityType) (*entitytype.EntityType, error) {
	if err := et.Validate(ctx); err != nil {
		return nil, err
	}

	if id.IsNil(et.ID) {
		et.ID = id.New()
	}
	now := time.Now().UTC()
	et.CreatedAt = now
	et.UpdatedAt = now

	if err := r.insert(ctx, et); err != nil {
		return nil, err
	}
	if err := r.invalidator.Forget(ctx, cache.KindEntityTypes); err != nil {
		logger.Warn(ctx, "entity type cache invalidation failed", "error", err)
	}
	return r.getByID(ctx, et.ID)
}

// Fetch loads an entity type.
func (r *EntityTypeRepo) Fetch(ctx context.Context, etID id.ID) (*entitytype.EntityType, error) {
	return r.getByID(ctx, etID)
}

// FetchByCode loads an entity type addressed by code.
func (r *EntityTypeRepo) FetchByCode(ctx context.Context, code string) (*entitytype.EntityType, error) {
	return r.getByCode(ctx, code)
}

// Get lists entity types with filtering, sorting and pagination.
func (r *EntityTypeRepo) Get(ctx context.Context, q domain.ListQuery) (domain.ListResult[*entitytype.EntityType], error) {
	return r.list(ctx, q)
}

// Delete removes the entity type and cascades: stored values of its
// entities, the entities, and its attribute sets with their membership.
func (r *EntityTypeRepo) Delete(ctx context.Context, etID id.ID) error {
	if _, err := r.getByID(ctx, etID); err != nil {
		return err
	}

	err := r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		seen := make(map[string]struct{})
		for _, binding := range r.registry.Bindings() {
			if _, done := seen[binding.Descriptor.Table]; done {
				continue
			}
			seen[binding.Descriptor.Table] = struct{}{}
			if err := binding.Handler.DeleteByEntityType(ctx, etID); err != nil {
				return err
			}
		}
		if err := r.execDelete(ctx, "entities", squirrel.Eq{"entity_type_id": etID}); err != nil {
			return err
		}
		if err := r.execDelete(ctx, "set_attributes", squirrel.Expr(
			"attribute_set_id IN (SELECT id FROM attribute_sets WHERE entity_type_id = ?)", etID)); err != nil {
			return err
		}
		if err := r.execDelete(ctx, "attribute_sets", squirrel.Eq{"entity_type_id": etID}); err != nil {
			return err
		}
		return r.delete(ctx, etID)
	})
	if err != nil {
		return err
	}

	if err := r.invalidator.Forget(ctx, cache.KindEntityTypes); err != nil {
		logger.Warn(ctx, "entity type cache invalidation failed", "error", err)
	}
	return nil
}

func (r *EntityTypeRepo) execDelete(ctx context.Context, table string, where squirrel.Sqlizer) error {
	sql, args, err := r.Builder().
		Delete(table).
		Where(where).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete %s: %w", table, err)
	}
	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}
