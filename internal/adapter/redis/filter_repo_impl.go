package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/olx-watcher/internal/entity"
)

// FilterRepoImpl stores the filter list as one JSON value.
type FilterRepoImpl struct {
	client *redis.Client
}

func NewFilterRepo(client *redis.Client) *FilterRepoImpl {
	return &FilterRepoImpl{client: client}
}

func (r *FilterRepoImpl) Load(ctx context.Context) ([]entity.Filter, error) {
	data, err := r.client.Get(ctx, filtersKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return []entity.Filter{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get filters: %w", err)
	}

	filters := []entity.Filter{}
	if err := json.Unmarshal(data, &filters); err != nil {
		return nil, fmt.Errorf("failed to decode filters: %w", err)
	}
	return filters, nil
}

func (r *FilterRepoImpl) Save(ctx context.Context, filters []entity.Filter) error {
	if filters == nil {
		filters = []entity.Filter{}
	}
	data, err := json.Marshal(filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}
	if err := r.client.Set(ctx, filtersKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set filters: %w", err)
	}
	return nil
}
