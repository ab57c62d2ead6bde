package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS watch_filters (
		model     TEXT PRIMARY KEY,
		position  INTEGER NOT NULL,
		max_price INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS seen_listings (
		listing_id TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		model      TEXT NOT NULL,
		price_text TEXT NOT NULL,
		link       TEXT NOT NULL,
		found_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS seen_listings_link_idx ON seen_listings (link)`,
	`CREATE TABLE IF NOT EXISTS watcher_status (
		id                INTEGER PRIMARY KEY CHECK (id = 1),
		running           BOOLEAN NOT NULL,
		last_check        TIMESTAMPTZ,
		check_interval    INTEGER NOT NULL,
		total_posts_found INTEGER NOT NULL,
		models_tracked    JSONB NOT NULL DEFAULT '[]'
	)`,
}

// Migrate creates the tables used by the store if they do not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
