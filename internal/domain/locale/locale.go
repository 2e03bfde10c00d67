// Package locale provides locale resolution for localized field values.
// Locale id 0 is the non-localized sentinel and is always included in
// value reads alongside any specifically requested locale.
package locale

import (
	"context"

	"facet/internal/core/apperror"
)

// None is the non-localized sentinel id.
const None = 0

// Locale is a resolvable locale.
type Locale struct {
	ID   int    `json:"id"`
	Code string `json:"code"` // e.g. "en_US"
}

// Resolver confirms locale existence and maps between codes and ids.
type Resolver interface {
	// Resolve returns the locale for a code, or NOT_FOUND.
	Resolve(ctx context.Context, code string) (Locale, error)

	// ByID returns the locale for an id, or NOT_FOUND. ByID(None) fails:
	// the sentinel is not a locale.
	ByID(ctx context.Context, id int) (Locale, error)

	// All returns every known locale.
	All(ctx context.Context) ([]Locale, error)
}

// StaticResolver is a config-loaded Resolver. The engine never mutates
// locales at runtime.
type StaticResolver struct {
	byCode map[string]Locale
	byID   map[int]Locale
	all    []Locale
}

// NewStaticResolver builds a resolver from an ordered locale list.
// Ids are assigned 1..n in list order when zero.
func NewStaticResolver(locales []Locale) *StaticResolver {
	r := &StaticResolver{
		byCode: make(map[string]Locale, len(locales)),
		byID:   make(map[int]Locale, len(locales)),
	}
	for i, l := range locales {
		if l.ID == 0 {
			l.ID = i + 1
		}
		r.byCode[l.Code] = l
		r.byID[l.ID] = l
		r.all = append(r.all, l)
	}
	return r
}

// NewStaticResolverFromCodes builds a resolver from locale codes,
// assigning ids in order.
func NewStaticResolverFromCodes(codes []string) *StaticResolver {
	locales := make([]Locale, len(codes))
	for i, code := range codes {
		locales[i] = Locale{Code: code}
	}
	return NewStaticResolver(locales)
}

func (r *StaticResolver) Resolve(ctx context.Context, code string) (Locale, error) {
	if l, ok := r.byCode[code]; ok {
		return l, nil
	}
	return Locale{}, apperror.NewNotFound("locale", code)
}

func (r *StaticResolver) ByID(ctx context.Context, id int) (Locale, error) {
	if l, ok := r.byID[id]; ok {
		return l, nil
	}
	return Locale{}, apperror.NewNotFound("locale", id)
}

func (r *StaticResolver) All(ctx context.Context) ([]Locale, error) {
	return r.all, nil
}
