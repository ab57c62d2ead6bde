package colly_fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/olx-watcher/internal/adapter/listingparser"
	"github.com/user/olx-watcher/internal/repository"
)

const page = `<html><body>
<div data-cy="l-card">
  <a href="/d/oferta/iphone-13-IDabc123.html"><h6>iPhone 13 128GB</h6></a>
  <p data-testid="ad-price">2 100 zł</p>
  <p data-testid="location-date">Kraków - Dzisiaj o 10:15</p>
</div>
<div data-cy="l-card">
  <a href="/d/oferta/iphone-12-IDdef456.html"><h6>iPhone 12</h6></a>
</div>
</body></html>`

func newFetcher(t *testing.T, srv *httptest.Server, timeout time.Duration) *CollyFetcher {
	t.Helper()
	parser, err := listingparser.New(srv.URL, listingparser.DefaultSelectors)
	require.NoError(t, err)
	return NewCollyFetcher(Options{ListingsURL: srv.URL + "/list", RequestTimeout: timeout, UserAgent: "olx-watcher-test"}, parser)
}

func TestFetchParsesCards(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.UserAgent()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := newFetcher(t, srv, 5*time.Second)
	require.NoError(t, f.Open(context.Background()))
	defer f.Close()

	listings, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 2)

	assert.Equal(t, srv.URL+"/d/oferta/iphone-13-IDabc123.html", listings[0].Link)
	assert.Equal(t, "iPhone 13 128GB", listings[0].Title)
	assert.Equal(t, "2 100 zł", listings[0].PriceText)
	assert.Equal(t, "Kraków - Dzisiaj o 10:15", listings[0].LocationAndTime)
	assert.Empty(t, listings[1].PriceText)
	assert.Equal(t, "olx-watcher-test", gotAgent)

	// A second fetch revisits the same URL.
	listings, err = f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, listings, 2)
}

func TestFetchRequiresOpen(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := newFetcher(t, srv, time.Second)
	_, err := f.Fetch(context.Background())
	assert.ErrorIs(t, err, repository.ErrSessionClosed)
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newFetcher(t, srv, time.Second)
	require.NoError(t, f.Open(context.Background()))

	_, err := f.Fetch(context.Background())
	assert.ErrorIs(t, err, repository.ErrFetchFailed)
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := newFetcher(t, srv, 100*time.Millisecond)
	require.NoError(t, f.Open(context.Background()))

	_, err := f.Fetch(context.Background())
	assert.ErrorIs(t, err, repository.ErrFetchTimeout)
}
