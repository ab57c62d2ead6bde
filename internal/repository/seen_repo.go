package repository

import (
	"context"

	"github.com/user/olx-watcher/internal/entity"
)

// SeenRepository stores the records of listings that were already notified.
type SeenRepository interface {
	// Load returns every stored record. An empty store yields an empty map.
	Load(ctx context.Context) (entity.SeenRecords, error)
	// Save persists the given records. Records are append-only, so implementations
	// may skip IDs that are already stored.
	Save(ctx context.Context, records entity.SeenRecords) error
}
