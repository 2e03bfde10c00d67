// Package dto provides request/response shapes for the HTTP API. The
// schema and entity models carry their own JSON tags; this package only
// adds the envelopes and the entity write payload.
package dto

import (
	"facet/internal/core/id"
)

// EntityRequest is the write payload for an entity. Fields maps
// attribute code to a raw value: a scalar, an ordered list, or a
// locale-keyed map for localized attributes.
type EntityRequest struct {
	EntityType   string         `json:"entityType"`
	AttributeSet string         `json:"attributeSet"`
	Fields       map[string]any `json:"fields"`
}

// IDResponse is returned by create operations alongside the resource.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates an ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// ErrorResponse is the error envelope produced by the error middleware.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
