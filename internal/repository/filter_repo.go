package repository

import (
	"context"

	"github.com/user/olx-watcher/internal/entity"
)

// FilterRepository stores the ordered list of tracked filters.
type FilterRepository interface {
	// Load returns the filters in evaluation order. An empty store yields an empty list.
	Load(ctx context.Context) ([]entity.Filter, error)
	// Save replaces the stored list.
	Save(ctx context.Context, filters []entity.Filter) error
}
