package repository

import (
	"context"

	"github.com/user/olx-watcher/internal/entity"
)

// StatusRepository stores the watcher run status.
type StatusRepository interface {
	// Load returns the stored status, or nil when none has been saved yet.
	Load(ctx context.Context) (*entity.RunStatus, error)
	Save(ctx context.Context, status *entity.RunStatus) error
}
