// Package asset defines the file/asset collaborator consumed by the
// asset field type. The engine owns only the reference it stores; file
// metadata and content live elsewhere.
package asset

import (
	"context"

	"facet/internal/core/id"
)

// Store confirms asset existence by reference.
type Store interface {
	Exists(ctx context.Context, assetID id.ID) (bool, error)
}

// AllowAll accepts every reference. Used when no asset subsystem is
// wired in.
type AllowAll struct{}

func (AllowAll) Exists(ctx context.Context, assetID id.ID) (bool, error) {
	return true, nil
}
