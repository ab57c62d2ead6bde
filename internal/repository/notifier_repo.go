package repository

import (
	"context"

	"github.com/user/olx-watcher/internal/entity"
)

// Notifier delivers a notification about a new match.
type Notifier interface {
	Send(ctx context.Context, match entity.Match) error
}
