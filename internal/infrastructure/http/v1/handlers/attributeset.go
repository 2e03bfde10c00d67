package handlers

import (
	"github.com/gin-gonic/gin"

	"facet/internal/domain"
	"facet/internal/domain/attributeset"
	"facet/internal/infrastructure/storage/postgres"
)

// AttributeSetHandler serves attribute set CRUD.
type AttributeSetHandler struct {
	*BaseHandler
	repo  domain.AttributeSetRepository
	audit *AuditRecorder
}

// NewAttributeSetHandler creates the attribute set handler.
func NewAttributeSetHandler(base *BaseHandler, repo domain.AttributeSetRepository, audit *AuditRecorder) *AttributeSetHandler {
	return &AttributeSetHandler{BaseHandler: base, repo: repo, audit: audit}
}

// List handles GET /attribute-sets.
func (h *AttributeSetHandler) List(c *gin.Context) {
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

// Create handles POST /attribute-sets.
func (h *AttributeSetHandler) Create(c *gin.Context) {
	var set attributeset.AttributeSet
	if !h.BindJSON(c, &set) {
		return
	}
	created, err := h.repo.Create(c.Request.Context(), &set)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), "attribute_set", created.ID, postgres.AuditActionCreate,
		map[string]any{"code": created.Code})
	h.Created(c, created)
}

// Get handles GET /attribute-sets/:id.
func (h *AttributeSetHandler) Get(c *gin.Context) {
	setID, ok := h.PathID(c)
	if !ok {
		return
	}
	set, err := h.repo.Fetch(c.Request.Context(), setID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, set)
}

// Update handles PUT /attribute-sets/:id. Membership is replaced when
// the payload names attributes and preserved when it omits them.
func (h *AttributeSetHandler) Update(c *gin.Context) {
	setID, ok := h.PathID(c)
	if !ok {
		return
	}
	var set attributeset.AttributeSet
	if !h.BindJSON(c, &set) {
		return
	}
	updated, err := h.repo.Update(c.Request.Context(), setID, &set)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), "attribute_set", setID, postgres.AuditActionUpdate,
		map[string]any{"code": updated.Code})
	h.OK(c, updated)
}

// Delete handles DELETE /attribute-sets/:id. Cascades to the set's
// entities and their values.
func (h *AttributeSetHandler) Delete(c *gin.Context) {
	setID, ok := h.PathID(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), setID); err != nil {
		h.Error(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), "attribute_set", setID, postgres.AuditActionDelete, nil)
	h.NoContent(c)
}
