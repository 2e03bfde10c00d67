package field_repo

import (
	"context"
	"fmt"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
	"facet/internal/domain/asset"
	"facet/internal/domain/attribute"
	"facet/internal/domain/fieldtype"
	"facet/internal/domain/filter"
	"facet/internal/infrastructure/rules"
	"facet/internal/infrastructure/storage/postgres"
)

// BaseValidator implements fieldtype.Validator for one field type.
// Definition checks come from the descriptor's capability flags; value
// checks combine required/unique with the optional rule engine.
type BaseValidator struct {
	desc  fieldtype.Descriptor
	store *postgres.ValueStore
	codec Codec
	rules rules.Engine
}

// NewBaseValidator creates a validator over a value store and codec.
func NewBaseValidator(desc fieldtype.Descriptor, store *postgres.ValueStore, codec Codec, engine rules.Engine) *BaseValidator {
	if engine == nil {
		engine = rules.Noop{}
	}
	return &BaseValidator{desc: desc, store: store, codec: codec, rules: engine}
}

// ValidateForInsert rejects definition combinations the type forbids.
// All violations are collected before returning.
func (v *BaseValidator) ValidateForInsert(ctx context.Context, attr *attribute.Attribute) error {
	var violations apperror.Violations
	v.checkCapabilities(attr, &violations)
	return violations.Err()
}

// ValidateForUpdate additionally guards the immutable columns.
func (v *BaseValidator) ValidateForUpdate(ctx context.Context, attr, existing *attribute.Attribute) error {
	var violations apperror.Violations
	if attr.Code != "" && attr.Code != existing.Code {
		violations.Add("code", "code is immutable")
	}
	if attr.FieldType != "" && attr.FieldType != existing.FieldType {
		violations.Add("field_type", "field type is immutable")
	}
	v.checkCapabilities(attr, &violations)
	return violations.Err()
}

func (v *BaseValidator) checkCapabilities(attr *attribute.Attribute, violations *apperror.Violations) {
	if attr.Unique && !v.desc.CanBeUnique {
		violations.Addf("unique", "field type %q cannot be unique", v.desc.Key)
	}
	if attr.Localized && !v.desc.CanBeLocalized {
		violations.Addf("localized", "field type %q cannot be localized", v.desc.Key)
	}
	if attr.DefaultValue != nil && !v.desc.CanHaveDefault {
		violations.Addf("default_value", "field type %q cannot have a default value", v.desc.Key)
	}
	if len(attr.Options) > 0 && !v.desc.HasOptions {
		violations.Addf("options", "field type %q does not take options", v.desc.Key)
	}
	if attr.Filterable && !v.desc.CanBeFilterable {
		violations.Addf("filterable", "field type %q cannot be filtered", v.desc.Key)
	}
	if attr.Unique && attr.Localized {
		violations.Add("unique", "an attribute cannot be both unique and localized")
	}
}

// ValidateValue enforces required, type shape, uniqueness and the
// attribute's rule expression. The uniqueness probe is read-then-decide
// against the type's value table; excludeEntity is skipped on update.
func (v *BaseValidator) ValidateValue(ctx context.Context, value any, attr *attribute.Attribute, excludeEntity id.ID) error {
	var violations apperror.Violations

	if value == nil || value == "" {
		if attr.Required {
			violations.Add(attr.Code, "value is required")
		}
		return violations.Err()
	}

	formatted, err := v.codec.Format(value, attr)
	if err != nil {
		violations.Add(attr.Code, err.Error())
		return violations.Err()
	}

	if attr.Unique {
		taken, err := v.store.ValueExists(ctx, attr.ID, formatted, excludeEntity)
		if err != nil {
			return err
		}
		if taken {
			violations.Add(attr.Code, "value is already in use")
		}
	}

	if rule := attr.Rule(); rule != "" {
		for _, msg := range v.rules.Validate(ctx, value, rule) {
			violations.Add(attr.Code, msg)
		}
	}

	return violations.Err()
}

// ValidateFilter normalizes the expression against the type's operator
// set. Filtering a non-filterable attribute is a bad request.
func (v *BaseValidator) ValidateFilter(expr filter.Expr, attr *attribute.Attribute) (filter.Expr, error) {
	if !attr.Filterable {
		return nil, apperror.NewBadRequest(fmt.Sprintf("attribute %q is not filterable", attr.Code))
	}
	return expr.Normalize(v.desc.FilterOperators)
}

// --- Relation ---

// EntityLookupFunc probes a relation target, reporting whether it
// exists and the code of its entity type.
type EntityLookupFunc func(ctx context.Context, entityID id.ID) (typeCode string, found bool, err error)

// RelationValidator extends the base with a referential check on the
// target entity, including the attribute's allowed-entity-type
// restriction when the data blob carries one.
type RelationValidator struct {
	*BaseValidator
	lookup EntityLookupFunc
}

// NewRelationValidator creates a relation validator.
func NewRelationValidator(base *BaseValidator, lookup EntityLookupFunc) *RelationValidator {
	return &RelationValidator{BaseValidator: base, lookup: lookup}
}

func (v *RelationValidator) ValidateValue(ctx context.Context, value any, attr *attribute.Attribute, excludeEntity id.ID) error {
	if err := v.BaseValidator.ValidateValue(ctx, value, attr, excludeEntity); err != nil {
		return err
	}
	if value == nil || value == "" || v.lookup == nil {
		return nil
	}

	targetID, err := refID(value)
	if err != nil {
		return nil // shape already reported by the base validator
	}
	typeCode, found, err := v.lookup(ctx, targetID)
	if err != nil {
		return err
	}
	var violations apperror.Violations
	if !found {
		violations.Addf(attr.Code, "related entity %s does not exist", targetID)
		return violations.Err()
	}
	if allowed := attr.RelatedEntityTypes(); len(allowed) > 0 && !containsString(allowed, typeCode) {
		violations.Addf(attr.Code, "related entity %s has entity type %q, which this attribute does not allow", targetID, typeCode)
	}
	return violations.Err()
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// --- Asset ---

// AssetValidator extends the base with an existence check against the
// asset collaborator.
type AssetValidator struct {
	*BaseValidator
	assets asset.Store
}

// NewAssetValidator creates an asset validator.
func NewAssetValidator(base *BaseValidator, assets asset.Store) *AssetValidator {
	if assets == nil {
		assets = asset.AllowAll{}
	}
	return &AssetValidator{BaseValidator: base, assets: assets}
}

func (v *AssetValidator) ValidateValue(ctx context.Context, value any, attr *attribute.Attribute, excludeEntity id.ID) error {
	if err := v.BaseValidator.ValidateValue(ctx, value, attr, excludeEntity); err != nil {
		return err
	}
	if value == nil || value == "" {
		return nil
	}

	assetID, err := refID(value)
	if err != nil {
		return nil
	}
	ok, err := v.assets.Exists(ctx, assetID)
	if err != nil {
		return err
	}
	if !ok {
		var violations apperror.Violations
		violations.Addf(attr.Code, "asset %s does not exist", assetID)
		return violations.Err()
	}
	return nil
}
