package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/olx-watcher/internal/entity"
)

type SeenRepoImpl struct {
	db *pgxpool.Pool
}

func NewSeenRepo(db *pgxpool.Pool) *SeenRepoImpl {
	return &SeenRepoImpl{db: db}
}

func (r *SeenRepoImpl) Load(ctx context.Context) (entity.SeenRecords, error) {
	rows, err := r.db.Query(ctx, `SELECT listing_id, title, model, price_text, link, found_at FROM seen_listings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen listings: %w", err)
	}
	defer rows.Close()

	records := make(entity.SeenRecords)
	for rows.Next() {
		var id string
		var rec entity.SeenRecord
		if err := rows.Scan(&id, &rec.Title, &rec.Model, &rec.PriceText, &rec.Link, &rec.FoundAt); err != nil {
			return nil, fmt.Errorf("failed to scan seen listing: %w", err)
		}
		records[id] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seen listings: %w", err)
	}
	return records, nil
}

// Save inserts the records in one batch. Existing IDs are left untouched.
func (r *SeenRepoImpl) Save(ctx context.Context, records entity.SeenRecords) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for id, rec := range records {
		batch.Queue(`
			INSERT INTO seen_listings (listing_id, title, model, price_text, link, found_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (listing_id) DO NOTHING`,
			id, rec.Title, rec.Model, rec.PriceText, rec.Link, rec.FoundAt,
		)
	}
	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save seen listings: %w", err)
	}
	return nil
}
