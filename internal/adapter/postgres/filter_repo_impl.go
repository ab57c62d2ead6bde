package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/olx-watcher/internal/entity"
)

// FilterRepoImpl stores filters in watch_filters, ordered by position.
type FilterRepoImpl struct {
	db *pgxpool.Pool
}

func NewFilterRepo(db *pgxpool.Pool) *FilterRepoImpl {
	return &FilterRepoImpl{db: db}
}

func (r *FilterRepoImpl) Load(ctx context.Context) ([]entity.Filter, error) {
	rows, err := r.db.Query(ctx, `SELECT model, max_price FROM watch_filters ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query filters: %w", err)
	}

	filters, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Filter, error) {
		var f entity.Filter
		err := row.Scan(&f.Model, &f.MaxPrice)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan filters: %w", err)
	}
	return filters, nil
}

// Save replaces the whole list in one transaction.
func (r *FilterRepoImpl) Save(ctx context.Context, filters []entity.Filter) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM watch_filters`); err != nil {
		return fmt.Errorf("failed to clear filters: %w", err)
	}
	for i, f := range filters {
		_, err := tx.Exec(ctx,
			`INSERT INTO watch_filters (model, position, max_price) VALUES ($1, $2, $3)`,
			f.Model, i, f.MaxPrice,
		)
		if err != nil {
			return fmt.Errorf("failed to insert filter %q: %w", f.Model, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit filters: %w", err)
	}
	return nil
}
