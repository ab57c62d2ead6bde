package repository

import (
	"context"

	"github.com/user/olx-watcher/internal/entity"
)

// ListingFetcher obtains the current page of listings. A fetcher holds a single
// session and is not safe for concurrent use.
type ListingFetcher interface {
	// Open prepares the session. It must succeed before Fetch is called.
	Open(ctx context.Context) error
	// Fetch returns the listing cards of the current page, most recent first.
	Fetch(ctx context.Context) ([]entity.RawListing, error)
	// Close releases the session.
	Close() error
}
