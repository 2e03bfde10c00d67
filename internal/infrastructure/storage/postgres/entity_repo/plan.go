package entity_repo

import (
	"context"
	"fmt"
	"sort"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
	"facet/internal/domain/attribute"
	"facet/internal/domain/fieldtype"
	"facet/internal/domain/locale"
)

// localeValues is one attribute's write payload, split by locale scope.
// The order slice keeps locale writes deterministic.
type localeValues struct {
	order  []int
	values map[int][]any
}

func (lv *localeValues) add(localeID int, vals []any) {
	if lv.values == nil {
		lv.values = make(map[int][]any)
	}
	if _, seen := lv.values[localeID]; !seen {
		lv.order = append(lv.order, localeID)
	}
	lv.values[localeID] = append(lv.values[localeID], vals...)
}

func (lv *localeValues) empty() bool { return len(lv.values) == 0 }

// writeOp is one attribute's planned write.
type writeOp struct {
	attr    *attribute.Attribute
	binding fieldtype.Binding
	scopes  localeValues
}

// planWrites resolves the raw field payload into per-attribute,
// per-locale write operations, validating every value on the way.
// Unknown field codes are rejected; when applyDefaults is set (create
// path), attributes absent from the payload are seeded from their
// default value or default options.
func (r *Repo) planWrites(
	ctx context.Context,
	attrs []*attribute.Attribute,
	fields map[string]any,
	localeCode string,
	applyDefaults bool,
	excludeEntity id.ID,
) ([]writeOp, error) {
	var violations apperror.Violations

	known := make(map[string]struct{}, len(attrs))
	for _, attr := range attrs {
		known[attr.Code] = struct{}{}
	}
	for code := range fields {
		if _, ok := known[code]; !ok {
			violations.Addf(code, "unknown field %q", code)
		}
	}

	var ops []writeOp
	for _, attr := range attrs {
		binding, err := r.registry.ForAttribute(attr)
		if err != nil {
			return nil, err
		}

		raw, present := fields[attr.Code]
		if !present {
			if !applyDefaults {
				continue
			}
			raw = defaultValue(attr, binding.Descriptor)
			if raw == nil && !attr.Required {
				continue
			}
		}

		scopes, err := r.scopeByLocale(ctx, attr, binding.Descriptor, raw, localeCode)
		if err != nil {
			if !mergeViolations(&violations, err) {
				return nil, err
			}
			continue
		}

		if scopes.empty() {
			// Surfaces the required violation for empty payloads.
			if err := binding.Validator.ValidateValue(ctx, nil, attr, excludeEntity); err != nil {
				if !mergeViolations(&violations, err) {
					return nil, err
				}
			}
			if present {
				ops = append(ops, writeOp{attr: attr, binding: binding, scopes: scopes})
			}
			continue
		}

		for _, localeID := range scopes.order {
			for _, v := range scopes.values[localeID] {
				if err := binding.Validator.ValidateValue(ctx, v, attr, excludeEntity); err != nil {
					if !mergeViolations(&violations, err) {
						return nil, err
					}
				}
			}
		}
		ops = append(ops, writeOp{attr: attr, binding: binding, scopes: scopes})
	}

	if err := violations.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

// scopeByLocale splits one attribute's raw payload into locale-scoped
// value lists. Non-localized attributes always write under the
// sentinel.
func (r *Repo) scopeByLocale(ctx context.Context, attr *attribute.Attribute, desc fieldtype.Descriptor, raw any, localeCode string) (localeValues, error) {
	var scopes localeValues
	if raw == nil {
		return scopes, nil
	}

	if attr.Localized {
		// A map on a localized attribute is locale-keyed. Reference
		// payloads ({"id": ...}) never reach this branch: the
		// reference-shaped types cannot be localized.
		if localeMap, ok := raw.(map[string]any); ok {
			for _, code := range sortedKeys(localeMap) {
				loc, err := r.locales.Resolve(ctx, code)
				if err != nil {
					var v apperror.Violations
					v.Addf(attr.Code, "unknown locale %q", code)
					return scopes, v.Err()
				}
				vals, err := coerceValues(localeMap[code], desc, attr)
				if err != nil {
					return scopes, err
				}
				scopes.add(loc.ID, vals)
			}
			return scopes, nil
		}

		if localeCode == "" {
			var v apperror.Violations
			v.Addf(attr.Code, "attribute %q is localized: supply a locale or a locale-keyed value", attr.Code)
			return scopes, v.Err()
		}
		loc, err := r.locales.Resolve(ctx, localeCode)
		if err != nil {
			return scopes, err
		}
		vals, err := coerceValues(raw, desc, attr)
		if err != nil {
			return scopes, err
		}
		scopes.add(loc.ID, vals)
		return scopes, nil
	}

	vals, err := coerceValues(raw, desc, attr)
	if err != nil {
		return scopes, err
	}
	scopes.add(locale.None, vals)
	return scopes, nil
}

// coerceValues shapes a raw payload into an ordered value list,
// enforcing the type's multiplicity.
func coerceValues(raw any, desc fieldtype.Descriptor, attr *attribute.Attribute) ([]any, error) {
	if raw == nil || raw == "" {
		return nil, nil
	}

	if list, ok := raw.([]any); ok {
		if !desc.HasMultipleValues && len(list) > 1 {
			var v apperror.Violations
			v.Addf(attr.Code, "attribute %q takes a single value", attr.Code)
			return nil, v.Err()
		}
		return list, nil
	}
	return []any{raw}, nil
}

// defaultValue derives the create-time seed for an absent attribute:
// the default options for option-bearing types, the raw default
// otherwise.
func defaultValue(attr *attribute.Attribute, desc fieldtype.Descriptor) any {
	if desc.HasOptions {
		defaults := attr.DefaultOptions()
		if len(defaults) == 0 {
			return nil
		}
		if desc.HasMultipleValues {
			vals := make([]any, len(defaults))
			for i, opt := range defaults {
				vals[i] = opt.Value
			}
			return vals
		}
		return defaults[0].Value
	}
	if attr.DefaultValue != nil {
		return *attr.DefaultValue
	}
	return nil
}

// mergeViolations folds a validation error's field messages into the
// accumulator so a single request surfaces every violation. Returns
// false for non-validation errors, which propagate untouched.
func mergeViolations(violations *apperror.Violations, err error) bool {
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeValidation {
		return false
	}
	if len(appErr.Details) == 0 {
		violations.Add("fields", appErr.Message)
		return true
	}
	for field, detail := range appErr.Details {
		switch messages := detail.(type) {
		case []string:
			for _, msg := range messages {
				violations.Add(field, msg)
			}
		case string:
			violations.Add(field, messages)
		default:
			violations.Add(field, fmt.Sprintf("%v", detail))
		}
	}
	return true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
