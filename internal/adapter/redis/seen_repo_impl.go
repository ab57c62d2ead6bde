package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/olx-watcher/internal/entity"
)

// SeenRepoImpl keeps seen records in a hash keyed by listing ID.
type SeenRepoImpl struct {
	client *redis.Client
}

func NewSeenRepo(client *redis.Client) *SeenRepoImpl {
	return &SeenRepoImpl{client: client}
}

func (r *SeenRepoImpl) Load(ctx context.Context) (entity.SeenRecords, error) {
	raw, err := r.client.HGetAll(ctx, seenKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get seen records: %w", err)
	}

	records := make(entity.SeenRecords, len(raw))
	for id, value := range raw {
		var rec entity.SeenRecord
		if err := json.Unmarshal([]byte(value), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode seen record %s: %w", id, err)
		}
		records[id] = rec
	}
	return records, nil
}

// Save writes records with HSETNX in one pipeline, so stored entries are never overwritten.
func (r *SeenRepoImpl) Save(ctx context.Context, records entity.SeenRecords) error {
	if len(records) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for id, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode seen record %s: %w", id, err)
		}
		pipe.HSetNX(ctx, seenKey, id, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save seen records: %w", err)
	}
	return nil
}
