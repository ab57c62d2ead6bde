package chromedp_fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/user/olx-watcher/internal/adapter/listingparser"
	"github.com/user/olx-watcher/internal/entity"
	"github.com/user/olx-watcher/internal/repository"
)

const clearStorageJS = `localStorage.clear(); sessionStorage.clear();`
const scrollToBottomJS = `window.scrollTo(0, document.body.scrollHeight);`

// Options configures the browser session.
type Options struct {
	ListingsURL     string
	PageLoadTimeout time.Duration
	ScrollDelay     time.Duration
	UserAgent       string
	ChromeBin       string
}

// ChromedpFetcher loads the listings page in a single headless Chrome tab
// that is kept open across fetches.
type ChromedpFetcher struct {
	opts   Options
	parser *listingparser.Parser

	mu            sync.Mutex
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

// NewChromedpFetcher creates a fetcher. The browser is not launched until Open.
func NewChromedpFetcher(opts Options, parser *listingparser.Parser) *ChromedpFetcher {
	return &ChromedpFetcher{opts: opts, parser: parser}
}

func (f *ChromedpFetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if f.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.opts.UserAgent))
	}
	if f.opts.ChromeBin != "" {
		opts = append(opts, chromedp.ExecPath(f.opts.ChromeBin))
	}
	return opts
}

// Open launches the browser. A launch failure is returned to the caller and
// leaves the fetcher closed.
func (f *ChromedpFetcher) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browserCtx != nil {
		return nil
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), f.allocatorOptions()...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(slogf(slog.LevelDebug)), chromedp.WithErrorf(slogf(slog.LevelWarn)))

	// The first Run starts the browser process. It must get browserCtx itself:
	// cancelling the context of the first Run kills the browser.
	if err := ctx.Err(); err != nil {
		cancelBrowser()
		cancelAlloc()
		return err
	}
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	f.browserCtx = browserCtx
	f.cancelAlloc = cancelAlloc
	f.cancelBrowser = cancelBrowser
	slog.Info("Browser session opened")
	return nil
}

// Fetch reloads the listings page with a clean cookie jar and storage,
// scrolls to trigger lazy loading and parses the rendered cards.
func (f *ChromedpFetcher) Fetch(ctx context.Context) ([]entity.RawListing, error) {
	f.mu.Lock()
	browserCtx := f.browserCtx
	f.mu.Unlock()
	if browserCtx == nil {
		return nil, repository.ErrSessionClosed
	}

	taskCtx, cancel := context.WithTimeout(browserCtx, f.opts.PageLoadTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	startTime := time.Now()
	var html string
	err := chromedp.Run(taskCtx,
		network.ClearBrowserCookies(),
		chromedp.Navigate(f.opts.ListingsURL),
		chromedp.Evaluate(clearStorageJS, nil),
		chromedp.Reload(),
		chromedp.WaitVisible(listingparser.DefaultSelectors.Card, chromedp.ByQuery),
		chromedp.Evaluate(scrollToBottomJS, nil),
		chromedp.Sleep(f.opts.ScrollDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %v", repository.ErrFetchTimeout, f.opts.PageLoadTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", repository.ErrFetchFailed, err)
	}

	listings, err := f.parser.Parse(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrFetchFailed, err)
	}

	slog.Info("Fetched listings page", "url", f.opts.ListingsURL, "cards", len(listings), "duration_ms", time.Since(startTime).Milliseconds())
	slog.Debug("First listing titles", "titles", listingparser.Titles(listings, 5))
	return listings, nil
}

// Close shuts the browser down. It is safe to call on a closed fetcher.
func (f *ChromedpFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browserCtx == nil {
		return nil
	}
	f.cancelBrowser()
	f.cancelAlloc()
	f.browserCtx = nil
	f.cancelBrowser = nil
	f.cancelAlloc = nil
	slog.Info("Browser session closed")
	return nil
}

func slogf(level slog.Level) func(string, ...interface{}) {
	return func(format string, args ...interface{}) {
		slog.Log(context.Background(), level, fmt.Sprintf(format, args...), "component", "chromedp")
	}
}
