package handlers

import (
	"github.com/gin-gonic/gin"

	"facet/internal/domain"
	"facet/internal/infrastructure/http/v1/dto"
	"facet/internal/infrastructure/storage/postgres"
)

// EntityHandler serves entity CRUD and listing. The locale query
// parameter scopes localized field reads and writes.
type EntityHandler struct {
	*BaseHandler
	repo  domain.EntityRepository
	audit *AuditRecorder
}

// NewEntityHandler creates the entity handler.
func NewEntityHandler(base *BaseHandler, repo domain.EntityRepository, audit *AuditRecorder) *EntityHandler {
	return &EntityHandler{BaseHandler: base, repo: repo, audit: audit}
}

// List handles GET /entities.
func (h *EntityHandler) List(c *gin.Context) {
	q, ok := h.ListQuery(c)
	if !ok {
		return
	}
	result, err := h.repo.Get(c.Request.Context(), q, h.Locale(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Create handles POST /entities.
func (h *EntityHandler) Create(c *gin.Context) {
	var req dto.EntityRequest
	if !h.BindJSON(c, &req) {
		return
	}
	created, err := h.repo.Create(c.Request.Context(), domain.EntityParams{
		EntityType:   req.EntityType,
		AttributeSet: req.AttributeSet,
		Locale:       h.Locale(c),
		Fields:       req.Fields,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), "entity", created.ID, postgres.AuditActionCreate,
		map[string]any{"attribute_set_id": created.AttributeSetID})
	h.Created(c, created)
}

// Get handles GET /entities/:id.
func (h *EntityHandler) Get(c *gin.Context) {
	entityID, ok := h.PathID(c)
	if !ok {
		return
	}
	e, err := h.repo.Fetch(c.Request.Context(), entityID, h.Locale(c))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, e)
}

// Update handles PUT /entities/:id. Omitted fields keep their stored
// values; fields present with an empty payload are cleared.
func (h *EntityHandler) Update(c *gin.Context) {
	entityID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.EntityRequest
	if !h.BindJSON(c, &req) {
		return
	}
	updated, err := h.repo.Update(c.Request.Context(), entityID, domain.EntityParams{
		Locale: h.Locale(c),
		Fields: req.Fields,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), "entity", entityID, postgres.AuditActionUpdate,
		map[string]any{"fields": req.Fields})
	h.OK(c, updated)
}

// Delete handles DELETE /entities/:id.
func (h *EntityHandler) Delete(c *gin.Context) {
	entityID, ok := h.PathID(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), entityID); err != nil {
		h.Error(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), "entity", entityID, postgres.AuditActionDelete, nil)
	h.NoContent(c)
}
