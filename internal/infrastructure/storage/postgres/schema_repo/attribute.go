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
	"facet/internal/domain/attribute"
	"facet/internal/domain/fieldtype"
	"facet/internal/infrastructure/cache"
	"facet/internal/infrastructure/storage/postgres"
	"facet/pkg/logger"
)

var attributeCols = []string{
	"id", "code", "field_type", "localized", "is_unique", "required",
	"filterable", "default_value", "data", "status", "created_at", "updated_at",
}

var optionCols = []string{
	"id", "attribute_id", "value", "label", "locale_id", "is_default", "sort_order",
}

// AttributeRepo manages attribute definitions and their options.
type AttributeRepo struct {
	*baseRepo[*attribute.Attribute]
	registry    *fieldtype.Registry
	invalidator cache.Invalidator
}

// NewAttributeRepo creates the attribute repository.
func NewAttributeRepo(tm *postgres.TxManager, registry *fieldtype.Registry, invalidator cache.Invalidator) *AttributeRepo {
	if invalidator == nil {
		invalidator = cache.Noop{}
	}
	return &AttributeRepo{
		baseRepo: newBaseRepo(tm, "attributes", attributeCols, func() *attribute.Attribute {
			return &attribute.Attribute{}
		}),
		registry:    registry,
		invalidator: invalidator,
	}
}

// Create validates the definition against its field type and writes the
// attribute with its options in one transaction.
func (r *AttributeRepo) Create(ctx context.Context, attr *attribute.Attribute) (*attribute.Attribute, error) {
	if err := attr.Validate(ctx); err != nil {
		return nil, err
	}
	binding, err := r.registry.ForAttribute(attr)
	if err != nil {
		return nil, err
	}
	if err := binding.Validator.ValidateForInsert(ctx, attr); err != nil {
		return nil, err
	}
	if err := validateOptions(attr.Options, binding.Descriptor); err != nil {
		return nil, err
	}

	if id.IsNil(attr.ID) {
		attr.ID = id.New()
	}
	now := time.Now().UTC()
	attr.CreatedAt = now
	attr.UpdatedAt = now
	if attr.Status == "" {
		attr.Status = attribute.UserDefined
	}

	err = r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.insert(ctx, attr); err != nil {
			return err
		}
		return r.insertOptions(ctx, attr.ID, normalizeOptions(attr.ID, attr.Options))
	})
	if err != nil {
		return nil, err
	}

	if err := r.invalidator.Forget(ctx, cache.KindAttributes); err != nil {
		logger.Warn(ctx, "attribute cache invalidation failed", "error", err)
	}
	return r.Fetch(ctx, attr.ID)
}

// Update rewrites the mutable columns and reconciles options by diff:
// surviving options keep their ids so stored values stay valid.
func (r *AttributeRepo) Update(ctx context.Context, attrID id.ID, attr *attribute.Attribute) (*attribute.Attribute, error) {
	existing, err := r.Fetch(ctx, attrID)
	if err != nil {
		return nil, err
	}

	binding, err := r.registry.ForAttribute(existing)
	if err != nil {
		return nil, err
	}
	if err := binding.Validator.ValidateForUpdate(ctx, attr, existing); err != nil {
		return nil, err
	}
	if attr.Options != nil {
		if err := validateOptions(attr.Options, binding.Descriptor); err != nil {
			return nil, err
		}
	}

	// Immutable columns always come from the stored row.
	attr.ID = existing.ID
	attr.Code = existing.Code
	attr.FieldType = existing.FieldType
	attr.Status = existing.Status
	attr.CreatedAt = existing.CreatedAt
	attr.UpdatedAt = time.Now().UTC()

	err = r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.update(ctx, attrID, attr); err != nil {
			return err
		}
		if attr.Options == nil {
			return nil
		}

		changes := planOptionChanges(existing.Options, normalizeOptions(attrID, attr.Options))
		for _, optionID := range changes.remove {
			if err := binding.Handler.DeleteByOption(ctx, optionID); err != nil {
				return err
			}
			if err := r.deleteOption(ctx, optionID); err != nil {
				return err
			}
		}
		for _, opt := range changes.update {
			if err := r.updateOption(ctx, opt); err != nil {
				return err
			}
		}
		return r.insertOptions(ctx, attrID, changes.insert)
	})
	if err != nil {
		return nil, err
	}

	if err := r.invalidator.Forget(ctx, cache.KindAttributes); err != nil {
		logger.Warn(ctx, "attribute cache invalidation failed", "error", err)
	}
	return r.Fetch(ctx, attrID)
}

// Delete removes the attribute and cascades: stored values in its value
// table, options, and set membership rows.
func (r *AttributeRepo) Delete(ctx context.Context, attrID id.ID) error {
	attr, err := r.Fetch(ctx, attrID)
	if err != nil {
		return err
	}
	if attr.Status == attribute.SystemDefined {
		return apperror.NewConflict("system defined attributes cannot be deleted").
			WithDetail("id", attrID.String())
	}

	binding, err := r.registry.ForAttribute(attr)
	if err != nil {
		return err
	}

	err = r.tm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := binding.Handler.DeleteByAttribute(ctx, attrID); err != nil {
			return err
		}
		if err := r.deleteAllOptions(ctx, attrID); err != nil {
			return err
		}
		if err := r.deleteSetMembership(ctx, attrID); err != nil {
			return err
		}
		return r.delete(ctx, attrID)
	})
	if err != nil {
		return err
	}

	if err := r.invalidator.Forget(ctx, cache.KindAttributes); err != nil {
		logger.Warn(ctx, "attribute cache invalidation failed", "error", err)
	}
	return nil
}

// Fetch loads an attribute with its options.
func (r *AttributeRepo) Fetch(ctx context.Context, attrID id.ID) (*attribute.Attribute, error) {
	attr, err := r.getByID(ctx, attrID)
	if err != nil {
		return nil, err
	}
	if err := r.resolveOptions(ctx, []*attribute.Attribute{attr}); err != nil {
		return nil, err
	}
	return attr, nil
}

// FetchByCode loads an attribute addressed by code.
func (r *AttributeRepo) FetchByCode(ctx context.Context, code string) (*attribute.Attribute, error) {
	attr, err := r.getByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := r.resolveOptions(ctx, []*attribute.Attribute{attr}); err != nil {
		return nil, err
	}
	return attr, nil
}

// Get lists attributes with filtering, sorting and pagination on the
// definition columns.
func (r *AttributeRepo) Get(ctx context.Context, q domain.ListQuery) (domain.ListResult[*attribute.Attribute], error) {
	result, err := r.list(ctx, q)
	if err != nil {
		return result, err
	}
	if err := r.resolveOptions(ctx, result.Items); err != nil {
		return result, err
	}
	return result, nil
}

// Exists probes an attribute by id.
func (r *AttributeRepo) Exists(ctx context.Context, attrID id.ID) (bool, error) {
	return r.exists(ctx, attrID)
}

// FetchByIDs loads a batch of attributes with options, keyed by id.
func (r *AttributeRepo) FetchByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*attribute.Attribute, error) {
	if len(ids) == 0 {
		return map[id.ID]*attribute.Attribute{}, nil
	}

	sql, args, err := r.baseSelect().
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var attrs []*attribute.Attribute
	if err := pgxscan.Select(ctx, r.tm.GetQuerier(ctx), &attrs, sql, args...); err != nil {
		return nil, fmt.Errorf("fetch attributes: %w", err)
	}
	if err := r.resolveOptions(ctx, attrs); err != nil {
		return nil, err
	}

	out := make(map[id.ID]*attribute.Attribute, len(attrs))
	for _, a := range attrs {
		out[a.ID] = a
	}
	return out, nil
}

// LoadAttributes returns every attribute with options, for the schema
// cache.
func (r *AttributeRepo) LoadAttributes(ctx context.Context) ([]*attribute.Attribute, error) {
	result, err := r.Get(ctx, domain.ListQuery{})
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// --- Options ---

// resolveOptions loads options for a batch of attributes in one query
// and materializes default values for option-bearing types.
func (r *AttributeRepo) resolveOptions(ctx context.Context, attrs []*attribute.Attribute) error {
	withOptions := make(map[id.ID]*attribute.Attribute)
	var ids []id.ID
	for _, a := range attrs {
		binding, err := r.registry.ForAttribute(a)
		if err != nil {
			return err
		}
		if !binding.Descriptor.HasOptions {
			continue
		}
		withOptions[a.ID] = a
		ids = append(ids, a.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	sql, args, err := r.Builder().
		Select(optionCols...).
		From("attribute_options").
		Where(squirrel.Eq{"attribute_id": ids}).
		OrderBy("attribute_id", "sort_order").
		ToSql()
	if err != nil {
		return fmt.Errorf("build options query: %w", err)
	}

	var options []attribute.Option
	if err := pgxscan.Select(ctx, r.tm.GetQuerier(ctx), &options, sql, args...); err != nil {
		return fmt.Errorf("fetch options: %w", err)
	}

	for _, opt := range options {
		if a, ok := withOptions[opt.AttributeID]; ok {
			a.Options = append(a.Options, opt)
		}
	}

	// The default option doubles as the definition's default value.
	for _, a := range withOptions {
		if a.DefaultValue != nil {
			continue
		}
		if defaults := a.DefaultOptions(); len(defaults) > 0 {
			v := defaults[0].Value
			a.DefaultValue = &v
		}
	}
	return nil
}

func (r *AttributeRepo) insertOptions(ctx context.Context, attrID id.ID, options []attribute.Option) error {
	if len(options) == 0 {
		return nil
	}

	q := r.Builder().
		Insert("attribute_options").
		Columns(optionCols...)
	for _, opt := range options {
		q = q.Values(opt.ID, attrID, opt.Value, opt.Label, opt.LocaleID, opt.Default, opt.SortOrder)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build options insert: %w", err)
	}
	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert options: %w", err)
	}
	return nil
}

func (r *AttributeRepo) updateOption(ctx context.Context, opt attribute.Option) error {
	sql, args, err := r.Builder().
		Update("attribute_options").
		Set("value", opt.Value).
		Set("label", opt.Label).
		Set("locale_id", opt.LocaleID).
		Set("is_default", opt.Default).
		Set("sort_order", opt.SortOrder).
		Where(squirrel.Eq{"id": opt.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build option update: %w", err)
	}
	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("update option: %w", err)
	}
	return nil
}

func (r *AttributeRepo) deleteOption(ctx context.Context, optionID id.ID) error {
	sql, args, err := r.Builder().
		Delete("attribute_options").
		Where(squirrel.Eq{"id": optionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build option delete: %w", err)
	}
	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete option: %w", err)
	}
	return nil
}

func (r *AttributeRepo) deleteAllOptions(ctx context.Context, attrID id.ID) error {
	sql, args, err := r.Builder().
		Delete("attribute_options").
		Where(squirrel.Eq{"attribute_id": attrID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build options delete: %w", err)
	}
	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete options: %w", err)
	}
	return nil
}

func (r *AttributeRepo) deleteSetMembership(ctx context.Context, attrID id.ID) error {
	sql, args, err := r.Builder().
		Delete("set_attributes").
		Where(squirrel.Eq{"attribute_id": attrID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build membership delete: %w", err)
	}
	if _, err := r.tm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete set membership: %w", err)
	}
	return nil
}

// --- Option reconciliation ---

// optionChanges is the result of diffing stored options against an
// incoming definition.
type optionChanges struct {
	insert []attribute.Option
	update []attribute.Option
	remove []id.ID
}

// planOptionChanges diffs options by id. Incoming options without an id
// are inserts; stored options absent from the incoming list are removed
// together with any values referencing them. Pure.
func planOptionChanges(existing, incoming []attribute.Option) optionChanges {
	var changes optionChanges

	stored := make(map[id.ID]attribute.Option, len(existing))
	for _, opt := range existing {
		stored[opt.ID] = opt
	}

	seen := make(map[id.ID]struct{}, len(incoming))
	for _, opt := range incoming {
		prev, known := stored[opt.ID]
		if !known {
			changes.insert = append(changes.insert, opt)
			continue
		}
		seen[opt.ID] = struct{}{}
		if prev != opt {
			changes.update = append(changes.update, opt)
		}
	}

	for _, opt := range existing {
		if _, kept := seen[opt.ID]; !kept {
			changes.remove = append(changes.remove, opt.ID)
		}
	}
	return changes
}

// normalizeOptions assigns ids to new options, stamps the attribute id
// and makes sort order positional.
func normalizeOptions(attrID id.ID, options []attribute.Option) []attribute.Option {
	out := make([]attribute.Option, len(options))
	for i, opt := range options {
		if id.IsNil(opt.ID) {
			opt.ID = id.New()
		}
		opt.AttributeID = attrID
		opt.SortOrder = i
		out[i] = opt
	}
	return out
}

// validateOptions checks option-level invariants for the definition.
func validateOptions(options []attribute.Option, desc fieldtype.Descriptor) error {
	var v apperror.Violations
	if len(options) > 0 && !desc.HasOptions {
		v.Addf("options", "field type %q does not take options", desc.Key)
		return v.Err()
	}

	values := make(map[string]struct{}, len(options))
	for _, opt := range options {
		if opt.Value == "" {
			v.Add("options", "option value is required")
			continue
		}
		if _, dup := values[opt.Value]; dup {
			v.Addf("options", "duplicate option value %q", opt.Value)
			continue
		}
		values[opt.Value] = struct{}{}
	}

	if !desc.HasMultipleValues {
		defaults := 0
		for _, opt := range options {
			if opt.Default {
				defaults++
			}
		}
		if defaults > 1 {
			v.Add("options", "single-valued attributes allow at most one default option")
		}
	}
	return v.Err()
}
