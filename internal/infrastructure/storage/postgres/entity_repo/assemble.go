package entity_repo

import (
	"context"
	"sort"

	"facet/internal/core/id"
	"facet/internal/domain/attribute"
	"facet/internal/domain/entity"
	"facet/internal/domain/fieldtype"
	"facet/internal/domain/locale"
)

// assembleInput is everything field assembly needs besides the rows:
// the set's attributes in sort order, their bindings, and the locale
// code table.
type assembleInput struct {
	// Attributes in set order. Rows for attributes outside this list are
	// dropped (stale values of attributes removed from the set).
	Attributes []*attribute.Attribute

	// Bindings keyed by field type.
	Bindings map[string]fieldtype.Binding

	// LocaleCodes maps locale id to code for localized presentation.
	LocaleCodes map[int]string

	// LocaleID is the requested locale, or locale.None when the caller
	// did not scope the read (all locales are presented).
	LocaleID int
}

// assembleFields merges value rows unioned from every value table into
// one ordered field bag per entity. Pure over its inputs.
//
// Ordering: attributes follow the set's sort order; values of a
// multi-valued attribute follow their stored sort order. Localized
// attributes collapse to the requested locale with fallback to the
// non-localized sentinel, or present a locale-keyed map when no locale
// was requested.
func assembleFields(ctx context.Context, rows []fieldtype.ValueRow, in assembleInput) (map[id.ID]*entity.Fields, error) {
	// Stable order regardless of which table each row came from.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SetSortOrder != rows[j].SetSortOrder {
			return rows[i].SetSortOrder < rows[j].SetSortOrder
		}
		if rows[i].LocaleID != rows[j].LocaleID {
			return rows[i].LocaleID < rows[j].LocaleID
		}
		return rows[i].SortOrder < rows[j].SortOrder
	})

	byEntity := make(map[id.ID][]fieldtype.ValueRow)
	for _, row := range rows {
		byEntity[row.EntityID] = append(byEntity[row.EntityID], row)
	}

	out := make(map[id.ID]*entity.Fields, len(byEntity))
	for entityID, entityRows := range byEntity {
		fields := entity.NewFields()

		byAttr := make(map[id.ID][]fieldtype.ValueRow)
		for _, row := range entityRows {
			byAttr[row.AttributeID] = append(byAttr[row.AttributeID], row)
		}

		for _, attr := range in.Attributes {
			attrRows := byAttr[attr.ID]
			if len(attrRows) == 0 {
				continue
			}
			binding, ok := in.Bindings[attr.FieldType]
			if !ok {
				continue
			}

			value, err := assembleAttribute(ctx, attrRows, attr, binding, in)
			if err != nil {
				return nil, err
			}
			fields.Set(attr.Code, value)
		}
		out[entityID] = fields
	}
	return out, nil
}

func assembleAttribute(ctx context.Context, rows []fieldtype.ValueRow, attr *attribute.Attribute, binding fieldtype.Binding, in assembleInput) (entity.Value, error) {
	byLocale := make(map[int][]fieldtype.ValueRow)
	var localeOrder []int
	for _, row := range rows {
		if _, seen := byLocale[row.LocaleID]; !seen {
			localeOrder = append(localeOrder, row.LocaleID)
		}
		byLocale[row.LocaleID] = append(byLocale[row.LocaleID], row)
	}

	if !attr.Localized {
		return parseRows(ctx, byLocale[locale.None], attr, binding)
	}

	if in.LocaleID != locale.None {
		// Requested locale with fallback to the non-localized sentinel.
		scoped := byLocale[in.LocaleID]
		if len(scoped) == 0 {
			scoped = byLocale[locale.None]
		}
		return parseRows(ctx, scoped, attr, binding)
	}

	// No requested locale: only sentinel values collapse to a plain
	// value, otherwise present the locale-keyed map.
	if len(localeOrder) == 1 && localeOrder[0] == locale.None {
		return parseRows(ctx, byLocale[locale.None], attr, binding)
	}

	codes := make([]string, 0, len(localeOrder))
	values := make(map[string]entity.Value, len(localeOrder))
	for _, localeID := range localeOrder {
		if localeID == locale.None {
			continue
		}
		code, known := in.LocaleCodes[localeID]
		if !known {
			continue
		}
		v, err := parseRows(ctx, byLocale[localeID], attr, binding)
		if err != nil {
			return entity.Value{}, err
		}
		codes = append(codes, code)
		values[code] = v
	}
	return entity.Localized(codes, values), nil
}

// parseRows converts a locale-scoped row group into a scalar or list
// value depending on the type's multiplicity.
func parseRows(ctx context.Context, rows []fieldtype.ValueRow, attr *attribute.Attribute, binding fieldtype.Binding) (entity.Value, error) {
	parsed := make([]any, 0, len(rows))
	for _, row := range rows {
		v, err := binding.Handler.ParseValue(ctx, row.Value, attr)
		if err != nil {
			return entity.Value{}, err
		}
		parsed = append(parsed, v)
	}

	if binding.Descriptor.HasMultipleValues {
		return entity.List(parsed), nil
	}
	if len(parsed) == 0 {
		return entity.Scalar(nil), nil
	}
	return entity.Scalar(parsed[len(parsed)-1]), nil
}
