package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/olx-watcher/internal/entity"
)

type StatusRepoImpl struct {
	client *redis.Client
}

func NewStatusRepo(client *redis.Client) *StatusRepoImpl {
	return &StatusRepoImpl{client: client}
}

// Load returns nil when no status has been stored.
func (r *StatusRepoImpl) Load(ctx context.Context) (*entity.RunStatus, error) {
	data, err := r.client.Get(ctx, statusKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	var status entity.RunStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	if status.ModelsTracked == nil {
		status.ModelsTracked = []entity.Filter{}
	}
	return &status, nil
}

func (r *StatusRepoImpl) Save(ctx context.Context, status *entity.RunStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	if err := r.client.Set(ctx, statusKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	return nil
}
