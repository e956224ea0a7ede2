// Package fetch retrieves the raw cell grid and background colors for one
// configured sheet or HTML source. Merged regions are expanded here so the
// scan engine only ever sees dense rectangular grids.
package fetch

import (
	"context"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

// Fetcher returns equal-dimension data and color grids for one config.
// The empty string denotes a blank cell or no fill.
type Fetcher interface {
	Fetch(ctx context.Context, cfg domain.ProjectConfig) (domain.Grid, domain.ColorGrid, error)
}
