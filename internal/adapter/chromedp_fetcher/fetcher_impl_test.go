package chromedp_fetcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/olx-watcher/internal/adapter/listingparser"
	"github.com/user/olx-watcher/internal/repository"
)

func newFetcher(t *testing.T, opts Options) *ChromedpFetcher {
	t.Helper()
	parser, err := listingparser.New("https://www.olx.pl", listingparser.DefaultSelectors)
	require.NoError(t, err)
	return NewChromedpFetcher(opts, parser)
}

func TestFetchBeforeOpen(t *testing.T) {
	f := newFetcher(t, Options{ListingsURL: "https://www.olx.pl", PageLoadTimeout: time.Second})

	_, err := f.Fetch(context.Background())
	assert.ErrorIs(t, err, repository.ErrSessionClosed)
	assert.NoError(t, f.Close())
	assert.NoError(t, f.Close())
}

func TestOpenFailsWithoutBrowser(t *testing.T) {
	f := newFetcher(t, Options{
		ListingsURL:     "https://www.olx.pl",
		PageLoadTimeout: time.Second,
		ChromeBin:       "/nonexistent/chrome",
	})

	err := f.Open(context.Background())
	require.Error(t, err)

	_, err = f.Fetch(context.Background())
	assert.ErrorIs(t, err, repository.ErrSessionClosed, "a failed launch leaves the fetcher closed")
}

func TestAllocatorOptions(t *testing.T) {
	plain := newFetcher(t, Options{})
	custom := newFetcher(t, Options{UserAgent: "ua", ChromeBin: "/usr/bin/chromium"})

	assert.Len(t, custom.allocatorOptions(), len(plain.allocatorOptions())+2)
}
