package field_repo

import (
	"facet/internal/domain/asset"
	"facet/internal/domain/fieldtype"
	"facet/internal/domain/filter"
	"facet/internal/infrastructure/rules"
	"facet/internal/infrastructure/storage/postgres"
)

// Deps carries the collaborators the default bindings need.
type Deps struct {
	TxManager *postgres.TxManager
	Rules     rules.Engine
	Assets    asset.Store

	// LookupEntity backs the relation validators. May be nil during
	// wiring; the entity repository sets it once constructed.
	LookupEntity EntityLookupFunc
}

var scalarOperators = filter.All

var refOperators = []filter.Operator{
	filter.Equal, filter.NotEqual, filter.In, filter.NotIn,
}

// NewDefaultRegistry builds the registry with every built-in field type
// bound to its value table, handler and validator. Called once at
// startup; registration failures are programming errors.
func NewDefaultRegistry(deps Deps) *fieldtype.Registry {
	stores := map[string]*postgres.ValueStore{}
	store := func(table string) *postgres.ValueStore {
		if s, ok := stores[table]; ok {
			return s
		}
		s := postgres.NewValueStore(deps.TxManager, table)
		stores[table] = s
		return s
	}

	reg := fieldtype.NewRegistry()

	register := func(desc fieldtype.Descriptor, codec Codec, wrap func(*BaseValidator) fieldtype.Validator) {
		s := store(desc.Table)
		base := NewBaseValidator(desc, s, codec, deps.Rules)
		var validator fieldtype.Validator = base
		if wrap != nil {
			validator = wrap(base)
		}
		reg.MustRegister(fieldtype.Binding{
			Descriptor: desc,
			Handler:    NewBaseHandler(desc, s, codec),
			Validator:  validator,
		})
	}

	register(fieldtype.Descriptor{
		Key:             fieldtype.Text,
		Table:           fieldtype.TableText,
		CanHaveDefault:  true,
		CanBeUnique:     true,
		CanBeLocalized:  true,
		CanBeFilterable: true,
		Sortable:        true,
		FilterOperators: scalarOperators,
	}, textCodec{}, nil)

	register(fieldtype.Descriptor{
		Key:             fieldtype.Integer,
		Table:           fieldtype.TableInteger,
		CanHaveDefault:  true,
		CanBeUnique:     true,
		CanBeLocalized:  true,
		CanBeFilterable: true,
		Sortable:        true,
		FilterOperators: scalarOperators,
	}, integerCodec{}, nil)

	register(fieldtype.Descriptor{
		Key:             fieldtype.Decimal,
		Table:           fieldtype.TableDecimal,
		CanHaveDefault:  true,
		CanBeUnique:     true,
		CanBeLocalized:  true,
		CanBeFilterable: true,
		Sortable:        true,
		FilterOperators: scalarOperators,
	}, decimalCodec{}, nil)

	register(fieldtype.Descriptor{
		Key:             fieldtype.Datetime,
		Table:           fieldtype.TableDatetime,
		CanHaveDefault:  true,
		CanBeUnique:     true,
		CanBeLocalized:  true,
		CanBeFilterable: true,
		Sortable:        true,
		FilterOperators: scalarOperators,
	}, datetimeCodec{}, nil)

	register(fieldtype.Descriptor{
		Key:             fieldtype.Boolean,
		Table:           fieldtype.TableInteger,
		CanHaveDefault:  true,
		CanBeLocalized:  true,
		CanBeFilterable: true,
		FilterOperators: []filter.Operator{filter.Equal, filter.NotEqual},
	}, booleanCodec{}, nil)

	register(fieldtype.Descriptor{
		Key:             fieldtype.Select,
		Table:           fieldtype.TableRef,
		CanBeLocalized:  true,
		CanBeFilterable: true,
		HasOptions:      true,
		FilterOperators: refOperators,
	}, selectCodec{}, nil)

	register(fieldtype.Descriptor{
		Key:               fieldtype.Multiselect,
		Table:             fieldtype.TableRef,
		CanBeLocalized:    true,
		CanBeFilterable:   true,
		HasOptions:        true,
		HasMultipleValues: true,
		FilterOperators:   refOperators,
	}, selectCodec{}, nil)

	register(fieldtype.Descriptor{
		Key:             fieldtype.Relation,
		Table:           fieldtype.TableRef,
		CanBeFilterable: true,
		FilterOperators: refOperators,
	}, relationCodec{}, func(base *BaseValidator) fieldtype.Validator {
		return NewRelationValidator(base, deps.LookupEntity)
	})

	register(fieldtype.Descriptor{
		Key:               fieldtype.RelationCollection,
		Table:             fieldtype.TableRef,
		CanBeFilterable:   true,
		HasMultipleValues: true,
		FilterOperators:   refOperators,
	}, relationCodec{}, func(base *BaseValidator) fieldtype.Validator {
		return NewRelationValidator(base, deps.LookupEntity)
	})

	register(fieldtype.Descriptor{
		Key:             fieldtype.Asset,
		Table:           fieldtype.TableRef,
		CanBeFilterable: true,
		FilterOperators: refOperators,
	}, assetCodec{}, func(base *BaseValidator) fieldtype.Validator {
		return NewAssetValidator(base, deps.Assets)
	})

	return reg
}
