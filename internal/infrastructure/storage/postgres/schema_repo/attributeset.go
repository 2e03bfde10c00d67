package schema_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
	"facet/internal/domain"
	"facet/internal/domain/attributeset"
	"facet/internal/domain/fieldtype"
	"facet/internal/infrastructure/cache"
	"facet/internal/infrastructure/storage/postgres"
	"facet/pkg/logger"
)

var attributeSetCols = []string{
	"id", "code", "name", "entity_type_id", "created_at", "updated_at",
}

// AttributeSetRepo manages named, ordered attribute collections.
type AttributeSetRepo struct {
	*baseRepo[*attributeset.AttributeSet]
	registry    *fieldtype.Registry
	attrs       *AttributeRepo
	entityTypes *EntityTypeRepo
	invalidator cache.Invalidator
}

// NewAttributeSetRepo creates the attribute set repository.
func NewAttributeSetRepo(
	tm *postgres.TxManager,
	registry *fieldtype.Registry,
	attrs *AttributeRepo,
	entityTypes *EntityTypeRepo,
	invalidator cache.Invalidator,
) *AttributeSetRepo {
	if invalidator == nil {
		invalidator = cache.Noop{}
	}
	return &AttributeSetRepo{
		baseRepo: newBaseRepo(tm, "attribute_sets", attributeSetCols, func() *attributeset.AttributeSet {
			return &attributeset.AttributeSet{}
		}),
		registry:    registry,
		attrs:       attrs,
		entityTypes: entityTypes,
		invalidator: invalidator,
	}
}

// Create writes the set and its membership in one transaction.
func (r *AttributeSetRepo) Create(ctx context.Context, set *attributeset.AttributeSet) (*attributeset.AttributeSet, error) {
	if err := set.Validate(ctx); err != nil {
		return nil, err
	}
	if err := r.validateMembers(ctx, set.Attributes); err != nil {
		return nil, err
	}
	if _, err := r.entityTypes.Fetch(ctx, set.EntityTypeID); err != nil {
		return nil, err
	}

	if id.IsNil(set.ID) {
		set.ID = id.New()
	}
	now := time.Now().UTC()
	set.CreatedAt = now
	set.UpdatedAt = now

	err := r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.insert(ctx, set); err != nil {
			return err
		}
		return r.insertMembership(ctx, set.ID, set.Attributes)
	})
	if err != nil {
		return nil, err
	}

	if err := r.invalidator.Forget(ctx, cache.KindAttributeSets); err != nil {
		logger.Warn(ctx, "attribute set cache invalidation failed", "error", err)
	}
	return r.Fetch(ctx, set.ID)
}

// Update rewrites the set columns. When set.Attributes is non-nil the
// membership is replaced wholesale in the given order; nil preserves the
// stored membership.
func (r *AttributeSetRepo) Update(ctx context.Context, setID id.ID, set *attributeset.AttributeSet) (*attributeset.AttributeSet, error) {
	existing, err := r.Fetch(ctx, setID)
	if err != nil {
		return nil, err
	}
	if err := set.Validate(ctx); err != nil {
		return nil, err
	}
	if set.Attributes != nil {
		if err := r.validateMembers(ctx, set.Attributes); err != nil {
			return nil, err
		}
	}

	set.ID = existing.ID
	set.Code = existing.Code
	set.EntityTypeID = existing.EntityTypeID
	set.CreatedAt = existing.CreatedAt
	set.UpdatedAt = time.Now().UTC()

	err = r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.update(ctx, setID, set); err != nil {
			return err
		}
		if set.Attributes == nil {
			return nil
		}
		if err := r.deleteMembership(ctx, setID); err != nil {
			return err
		}
		return r.insertMembership(ctx, setID, set.Attributes)
	})
	if err != nil {
		return nil, err
	}

	if err := r.invalidator.Forget(ctx, cache.KindAttributeSets); err != nil {
		logger.Warn(ctx, "attribute set cache invalidation failed", "error", err)
	}
	return r.Fetch(ctx, setID)
}

// Delete removes the set and cascades: stored values of its entities
// across every value table, the entities themselves, and the membership.
func (r *AttributeSetRepo) Delete(ctx context.Context, setID id.ID) error {
	if _, err := r.Fetch(ctx, setID); err != nil {
		return err
	}

	err := r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		seen := make(map[string]struct{})
		for _, binding := range r.registry.Bindings() {
			// Types sharing a value table cascade once.
			if _, done := seen[binding.Descriptor.Table]; done {
				continue
			}
			seen[binding.Descriptor.Table] = struct{}{}
			if err := binding.Handler.DeleteByAttributeSet(ctx, setID); err != nil {
				return err
			}
		}
		if err := r.deleteEntities(ctx, setID); err != nil {
			return err
		}
		if err := r.deleteMembership(ctx, setID); err != nil {
			return err
		}
		return r.delete(ctx, setID)
	})
	if err != nil {
		return err
	}

	if err := r.invalidator.Forget(ctx, cache.KindAttributeSets); err != nil {
		logger.Warn(ctx, "attribute set cache invalidation failed", "error", err)
	}
	return nil
}

// Fetch loads a set with its ordered membership.
func (r *AttributeSetRepo) Fetch(ctx context.Context, setID id.ID) (*attributeset.AttributeSet, error) {
	set, err := r.getByID(ctx, setID)
	if err != nil {
		return nil, err
	}
	if err := r.resolveMembership(ctx, []*attributeset.AttributeSet{set}); err != nil {
		return nil, err
	}
	return set, nil
}

// FetchByCode loads a set addressed by code.
func (r *AttributeSetRepo) FetchByCode(ctx context.Context, code string) (*attributeset.AttributeSet, error) {
	set, err := r.getByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := r.resolveMembership(ctx, []*attributeset.AttributeSet{set}); err != nil {
		return nil, err
	}
	return set, nil
}

// Get lists sets with filtering, sorting and pagination.
func (r *AttributeSetRepo) Get(ctx context.Context, q domain.ListQuery) (domain.ListResult[*attributeset.AttributeSet], error) {
	result, err := r.list(ctx, q)
	if err != nil {
		return result, err
	}
	if err := r.resolveMembership(ctx, result.Items); err != nil {
		return result, err
	}
	return result, nil
}

// LoadAttributeSets returns every set with membership, for the schema
// cache.
func (r *AttributeSetRepo) LoadAttributeSets(ctx context.Context) ([]*attributeset.AttributeSet, error) {
	result, err := r.Get(ctx, domain.ListQuery{})
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// validateMembers checks that every referenced attribute exists.
func (r *AttributeSetRepo) validateMembers(ctx context.Context, members []attributeset.SetAttribute) error {
	ids := make([]id.ID, len(members))
	for i, m := range members {
		ids[i] = m.AttributeID
	}
	found, err := r.attrs.FetchByIDs(ctx, ids)
	if err != nil {
		return err
	}

	var v apperror.Violations
	for _, m := range members {
		if _, ok := found[m.AttributeID]; !ok {
			v.Addf("attributes", "attribute %s does not exist", m.AttributeID)
		}
	}
	return v.Err()
}

func (r *AttributeSetRepo) resolveMembership(ctx context.Context, sets []*attributeset.AttributeSet) error {
	if len(sets) == 0 {
		return nil
	}

	byID := make(map[id.ID]*attributeset.AttributeSet, len(sets))
	ids := make([]id.ID, len(sets))
	for i, s := range sets {
		byID[s.ID] = s
		ids[i] = s.ID
	}

	sql, args, err := r.Builder().
		Select("attribute_set_id", "attribute_id", "sort_order").
		From("set_attributes").
		Where(squirrel.Eq{"attribute_set_id": ids}).
		OrderBy("attribute_set_id", "sort_order").
		ToSql()
	if err != nil {
		return fmt.Errorf("build membership query: %w", err)
	}

	var members []attributeset.SetAttribute
	if err := pgxscan.Select(ctx, r.tm.GetQuerier(ctx), &members, sql, args...); err != nil {
		return fmt.Errorf("fetch membership: %w", err)
	}

	for _, m := range members {
		if s, ok := byID[m.AttributeSetID]; ok {
			s.Attributes = append(s.Attributes, m)
		}
	}
	return nil
}

func (r *AttributeSetRepo) insertMembership(ctx context.Context, setID id.ID, members []attributeset.SetAttribute) error {
	if len(members) == 0 {
		return nil
	}

	q := r.Builder().
		Insert("set_attributes").
		Columns("attribute_set_id", "attribute_id", "sort_order")
	for i, m := range members {
		q = q.Values(setID, m.AttributeID, i)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build membership insert: %w", err)
	}
	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (r *AttributeSetRepo) deleteMembership(ctx context.Context, setID id.ID) error {
	sql, args, err := r.Builder().
		Delete("set_attributes").
		Where(squirrel.Eq{"attribute_set_id": setID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build membership delete: %w", err)
	}
	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

func (r *AttributeSetRepo) deleteEntities(ctx context.Context, setID id.ID) error {
	sql, args, err := r.Builder().
		Delete("entities").
		Where(squirrel.Eq{"attribute_set_id": setID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build entities delete: %w", err)
	}
	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete entities: %w", err)
	}
	return nil
}
