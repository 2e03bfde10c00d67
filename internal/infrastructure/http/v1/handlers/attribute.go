package handlers

import (
	"github.com/gin-gonic/gin"

	"facet/internal/domain"
	"facet/internal/domain/attribute"
	"facet/internal/infrastructure/storage/postgres"
)

// AttributeHandler serves attribute definition CRUD.
type AttributeHandler struct {
	*BaseHandler
	repo  domain.AttributeRepository
	audit *AuditRecorder
}

// NewAttributeHandler creates the attribute handler.
func NewAttributeHandler(base *BaseHandler, repo domain.AttributeRepository, audit *AuditRecorder) *AttributeHandler {
	return &AttributeHandler{BaseHandler: base, repo: repo, audit: audit}
}

// List handles GET /attributes.
func (h *AttributeHandler) List(c *gin.Context) {
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

// Create handles POST /attributes.
func (h *AttributeHandler) Create(c *gin.Context) {
	var attr attribute.Attribute
	if !h.BindJSON(c, &attr) {
		return
	}
	created, err := h.repo.Create(c.Request.Context(), &attr)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), "attribute", created.ID, postgres.AuditActionCreate,
		map[string]any{"code": created.Code, "field_type": created.FieldType})
	h.Created(c, created)
}

// Get handles GET /attributes/:id.
func (h *AttributeHandler) Get(c *gin.Context) {
	attrID, ok := h.PathID(c)
	if !ok {
		return
	}
	attr, err := h.repo.Fetch(c.Request.Context(), attrID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, attr)
}

// Update handles PUT /attributes/:id.
func (h *AttributeHandler) Update(c *gin.Context) {
	attrID, ok := h.PathID(c)
	if !ok {
		return
	}
	var attr attribute.Attribute
	if !h.BindJSON(c, &attr) {
		return
	}
	updated, err := h.repo.Update(c.Request.Context(), attrID, &attr)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), "attribute", attrID, postgres.AuditActionUpdate,
		map[string]any{"code": updated.Code})
	h.OK(c, updated)
}

// Delete handles DELETE /attributes/:id.
func (h *AttributeHandler) Delete(c *gin.Context) {
	attrID, ok := h.PathID(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), attrID); err != nil {
		h.Error(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), "attribute", attrID, postgres.AuditActionDelete, nil)
	h.NoContent(c)
}
