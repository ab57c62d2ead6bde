package colly_fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/user/olx-watcher/internal/adapter/listingparser"
	"github.com/user/olx-watcher/internal/entity"
	"github.com/user/olx-watcher/internal/repository"
)

// Options configures the HTTP fetcher.
type Options struct {
	ListingsURL    string
	RequestTimeout time.Duration
	UserAgent      string
}

// CollyFetcher downloads the listings page over plain HTTP. It does not run
// scripts, so it only sees cards that are rendered server side.
type CollyFetcher struct {
	opts   Options
	parser *listingparser.Parser
	open   atomic.Bool
}

func NewCollyFetcher(opts Options, parser *listingparser.Parser) *CollyFetcher {
	return &CollyFetcher{opts: opts, parser: parser}
}

func (f *CollyFetcher) Open(ctx context.Context) error {
	f.open.Store(true)
	return nil
}

func (f *CollyFetcher) Close() error {
	f.open.Store(false)
	return nil
}

// Fetch builds a fresh collector per call so no cookies survive between cycles.
func (f *CollyFetcher) Fetch(ctx context.Context) ([]entity.RawListing, error) {
	if !f.open.Load() {
		return nil, repository.ErrSessionClosed
	}

	options := []colly.CollectorOption{
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	}
	if f.opts.UserAgent != "" {
		options = append(options, colly.UserAgent(f.opts.UserAgent))
	}
	c := colly.NewCollector(options...)
	if f.opts.RequestTimeout > 0 {
		c.SetRequestTimeout(f.opts.RequestTimeout)
	}

	var (
		listings []entity.RawListing
		parseErr error
	)
	c.OnResponse(func(r *colly.Response) {
		listings, parseErr = f.parser.Parse(bytes.NewReader(r.Body))
		slog.Debug("Received listings page", "url", r.Request.URL.String(), "status", r.StatusCode, "bytes", len(r.Body))
	})

	startTime := time.Now()
	if err := c.Visit(f.opts.ListingsURL); err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w after %s: %v", repository.ErrFetchTimeout, f.opts.RequestTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", repository.ErrFetchFailed, err)
	}
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrFetchFailed, parseErr)
	}

	slog.Info("Fetched listings page", "url", f.opts.ListingsURL, "cards", len(listings), "duration_ms", time.Since(startTime).Milliseconds())
	slog.Debug("First listing titles", "titles", listingparser.Titles(listings, 5))
	return listings, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
