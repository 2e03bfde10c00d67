// Package attribute defines attribute and attribute-option models.
// An attribute is a typed, optionally localized, optionally multi-valued
// field definition; its concrete values live in the per-type value tables.
package attribute

import (
	"context"
	"regexp"
	"time"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
	"facet/internal/core/jsonb"
)

// Status marks whether an attribute is owned by the system or a user.
type Status string

const (
	SystemDefined Status = "system_defined"
	UserDefined   Status = "user_defined"
)

// Attribute is a field definition. Code is the unique, immutable
// identifier entities address their field values by.
type Attribute struct {
	ID        id.ID  `db:"id" json:"id"`
	Code      string `db:"code" json:"code"`
	FieldType string `db:"field_type" json:"fieldType"`

	Localized  bool `db:"localized" json:"localized"`
	Unique     bool `db:"is_unique" json:"unique"`
	Required   bool `db:"required" json:"required"`
	Filterable bool `db:"filterable" json:"filterable"`

	// DefaultValue is the raw default. For option-bearing types it is
	// materialized at read time from the option marked default.
	DefaultValue *string `db:"default_value" json:"defaultValue,omitempty"`

	// Data is the opaque type-specific configuration blob
	// (e.g. allowed relation entity types, a validation rule).
	Data jsonb.Map `db:"data" json:"data,omitempty"`

	Status Status `db:"status" json:"status"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// Options are resolved separately and kept in sort order.
	Options []Option `db:"-" json:"options,omitempty"`
}

// Option is one selectable value of an option-bearing attribute.
// LocaleID 0 means the option label is not localized.
type Option struct {
	ID          id.ID  `db:"id" json:"id"`
	AttributeID id.ID  `db:"attribute_id" json:"attributeId"`
	Value       string `db:"value" json:"value"`
	Label       string `db:"label" json:"label"`
	LocaleID    int    `db:"locale_id" json:"localeId"`
	Default     bool   `db:"is_default" json:"default"`
	SortOrder   int    `db:"sort_order" json:"sortOrder"`
}

// codePattern constrains attribute codes to snake_case identifiers.
// Codes name SQL join aliases and JSON keys; anything outside this set
// would need escaping in both.
var codePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Validate checks model invariants that hold regardless of field type.
func (a *Attribute) Validate(ctx context.Context) error {
	var v apperror.Violations
	if a.Code == "" {
		v.Add("code", "code is required")
	} else if !codePattern.MatchString(a.Code) {
		v.Addf("code", "code %q must be snake_case: lowercase letters, digits and underscores, starting with a letter", a.Code)
	}
	if a.FieldType == "" {
		v.Add("field_type", "field type is required")
	}
	if a.Status != "" && a.Status != SystemDefined && a.Status != UserDefined {
		v.Addf("status", "unknown status %q", a.Status)
	}
	return v.Err()
}

// DefaultOptions returns the options marked default, in sort order.
// Exactly these seed default values on entity creation.
func (a *Attribute) DefaultOptions() []Option {
	var out []Option
	for _, o := range a.Options {
		if o.Default {
			out = append(out, o)
		}
	}
	return out
}

// OptionByID finds an option by id, or nil.
func (a *Attribute) OptionByID(optionID id.ID) *Option {
	for i := range a.Options {
		if a.Options[i].ID == optionID {
			return &a.Options[i]
		}
	}
	return nil
}

// OptionByValue finds an option by stored value, or nil.
func (a *Attribute) OptionByValue(value string) *Option {
	for i := range a.Options {
		if a.Options[i].Value == value {
			return &a.Options[i]
		}
	}
	return nil
}

// Rule returns the optional validation-rule expression from the data blob.
func (a *Attribute) Rule() string {
	return a.Data.GetString("rule")
}

// RelatedEntityTypes returns the entity type codes a relation attribute
// may point at; empty means unrestricted.
func (a *Attribute) RelatedEntityTypes() []string {
	return a.Data.GetStrings("related_entity_types")
}
