// Package handlers implements the HTTP API handlers. The layer is thin:
// it binds payloads, translates query strings into list queries and
// defers every semantic decision to the repositories.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"facet/internal/core/apperror"
	"facet/internal/core/id"
	"facet/internal/domain"
	"facet/internal/domain/filter"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates a JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers the error on the gin context and aborts. The JSON
// response is produced by the error middleware.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// PathID parses the :id path parameter.
func (h *BaseHandler) PathID(c *gin.Context) (id.ID, bool) {
	parsed, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewBadRequest("invalid id").WithDetail("id", c.Param("id")))
		return id.Nil(), false
	}
	return parsed, true
}

// Locale returns the request's locale scope, empty when unscoped.
func (h *BaseHandler) Locale(c *gin.Context) string {
	return c.Query("locale")
}

// ListQuery translates query parameters into a list query.
// Pagination: limit, offset. Sort: sort=-created_at,code. Filters:
// filter[name]=x for equality, filter[weight][gt]=10 per operator;
// entity field filters use filter[fields.<code>].
func (h *BaseHandler) ListQuery(c *gin.Context) (domain.ListQuery, bool) {
	q := domain.ListQuery{
		Limit:  h.parseUintQuery(c, "limit", 20),
		Offset: h.parseUintQuery(c, "offset", 0),
	}
	if sort := c.Query("sort"); sort != "" {
		for _, token := range strings.Split(sort, ",") {
			if token = strings.TrimSpace(token); token != "" {
				q.Sort = append(q.Sort, token)
			}
		}
	}

	set, err := parseFilterParams(c.Request.URL.Query())
	if err != nil {
		h.Error(c, err)
		return q, false
	}
	q.Filter = set
	return q, true
}

func (h *BaseHandler) parseUintQuery(c *gin.Context, key string, defaultVal uint64) uint64 {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// parseFilterParams extracts filter[field] and filter[field][op] query
// parameters into a filter set.
func parseFilterParams(values map[string][]string) (filter.Set, error) {
	var set filter.Set
	for key, vals := range values {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") || len(vals) == 0 {
			continue
		}
		inner := key[len("filter[") : len(key)-1]

		field, op := inner, ""
		if i := strings.Index(inner, "]["); i >= 0 {
			field, op = inner[:i], inner[i+2:]
		}
		if field == "" || strings.ContainsAny(field, "[]") {
			return nil, apperror.NewBadRequest("malformed filter parameter").WithDetail("parameter", key)
		}

		if set == nil {
			set = make(filter.Set)
		}
		if op == "" {
			if _, exists := set[field]; exists {
				return nil, apperror.NewBadRequest("conflicting filter parameters").WithDetail("field", field)
			}
			set[field] = vals[0]
			continue
		}

		expr, ok := set[field].(map[string]any)
		if !ok {
			if _, exists := set[field]; exists {
				return nil, apperror.NewBadRequest("conflicting filter parameters").WithDetail("field", field)
			}
			expr = make(map[string]any)
			set[field] = expr
		}
		expr[op] = vals[0]
	}
	return set, nil
}

// Created sends 201 with the created resource.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// OK sends 200 with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// NoContent sends 204.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
