package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/olx-watcher/internal/entity"
)

// StatusRepoImpl keeps the run status in the single row of watcher_status.
type StatusRepoImpl struct {
	db *pgxpool.Pool
}

func NewStatusRepo(db *pgxpool.Pool) *StatusRepoImpl {
	return &StatusRepoImpl{db: db}
}

func (r *StatusRepoImpl) Load(ctx context.Context) (*entity.RunStatus, error) {
	query := `
		SELECT running, last_check, check_interval, total_posts_found, models_tracked
		FROM watcher_status
		WHERE id = 1;
	`
	var status entity.RunStatus
	var modelsJSON []byte
	err := r.db.QueryRow(ctx, query).Scan(
		&status.Running,
		&status.LastCheck,
		&status.CheckInterval,
		&status.TotalPostsFound,
		&modelsJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load status: %w", err)
	}

	status.ModelsTracked = []entity.Filter{}
	if len(modelsJSON) > 0 {
		if err := json.Unmarshal(modelsJSON, &status.ModelsTracked); err != nil {
			return nil, fmt.Errorf("failed to decode tracked models: %w", err)
		}
	}
	return &status, nil
}

func (r *StatusRepoImpl) Save(ctx context.Context, status *entity.RunStatus) error {
	models := status.ModelsTracked
	if models == nil {
		models = []entity.Filter{}
	}
	modelsJSON, err := json.Marshal(models)
	if err != nil {
		return fmt.Errorf("failed to encode tracked models: %w", err)
	}

	query := `
		INSERT INTO watcher_status (id, running, last_check, check_interval, total_posts_found, models_tracked)
		VALUES (1, $1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			running = EXCLUDED.running,
			last_check = EXCLUDED.last_check,
			check_interval = EXCLUDED.check_interval,
			total_posts_found = EXCLUDED.total_posts_found,
			models_tracked = EXCLUDED.models_tracked;
	`
	_, err = r.db.Exec(ctx, query,
		status.Running,
		status.LastCheck,
		status.CheckInterval,
		status.TotalPostsFound,
		string(modelsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}
