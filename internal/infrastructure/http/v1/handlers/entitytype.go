package handlers

import (
	"github.com/gin-gonic/gin"

	"facet/internal/domain"
	"facet/internal/domain/entitytype"
	"facet/internal/infrastructure/storage/postgres"
)

// EntityTypeHandler serves the entity type catalog.
type EntityTypeHandler struct {
	*BaseHandler
	repo  domain.EntityTypeRepository
	audit *AuditRecorder
}

// NewEntityTypeHandler creates the entity type handler.
func NewEntityTypeHandler(base *BaseHandler, repo domain.EntityTypeRepository, audit *AuditRecorder) *EntityTypeHandler {
	return &EntityTypeHandler{BaseHandler: base, repo: repo, audit: audit}
}

// List handles GET /entity-types.
func (h *EntityTypeHandler) List(c *gin.Context) {
	q, ok := h.ListQuery(c)
	if !ok {
		return
	}
	result, err := h.repo.Get(c.Request.Context(), q)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Create handles POST /entity-types.
func (h *EntityTypeHandler) Create(c *gin.Context) {
	var et entitytype.EntityType
	if !h.BindJSON(c, &et) {
		return
	}
	created, err := h.repo.Create(c.Request.Context(), &et)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), "entity_type", created.ID, postgres.AuditActionCreate,
		map[string]any{"code": created.Code})
	h.Created(c, created)
}

// Get handles GET /entity-types/:id.
func (h *EntityTypeHandler) Get(c *gin.Context) {
	etID, ok := h.PathID(c)
	if !ok {
		return
	}
	et, err := h.repo.Fetch(c.Request.Context(), etID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, et)
}

// Delete handles DELETE /entity-types/:id. Cascades to the type's
// attribute sets, entities and values.
func (h *EntityTypeHandler) Delete(c *gin.Context) {
	etID, ok := h.PathID(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), etID); err != nil {
		h.Error(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), "entity_type", etID, postgres.AuditActionDelete, nil)
	h.NoContent(c)
}
