package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/user/olx-watcher/internal/entity"
	"github.com/user/olx-watcher/internal/repository"
	"github.com/user/olx-watcher/pkg/metrics"
)

var (
	ErrNoFilters     = errors.New("no filters are tracked")
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrLoopBusy is returned by Start while a scrape loop that outlived its
	// stop timeout is still finishing.
	ErrLoopBusy = errors.New("previous scrape loop still running")
)

const defaultStopTimeout = 5 * time.Second

// Watcher is the control surface of the periodic scrape loop.
type Watcher interface {
	// Start launches the scrape loop. It reports false if the loop was already running.
	Start(ctx context.Context) (bool, error)
	// Stop halts the scrape loop. It reports false if the loop was not running.
	Stop(ctx context.Context) (bool, error)
	// AddFilter appends a filter, replacing one with the same pattern. It reports whether a filter was replaced.
	AddFilter(ctx context.Context, model string, maxPrice *int) (entity.Filter, bool, error)
	// RemoveFilter deletes the filter with the given pattern. It reports false if there was none.
	RemoveFilter(ctx context.Context, model string) (bool, error)
	ListFilters(ctx context.Context) ([]entity.Filter, error)
	GetStatus(ctx context.Context) (*entity.RunStatus, error)
}

// WatcherOptions tunes the scrape loop.
type WatcherOptions struct {
	MaxListings   int
	CheckInterval int // seconds; a positive value replaces the persisted interval on Start
	StopTimeout   time.Duration
}

type watcherUseCase struct {
	fetcher    repository.ListingFetcher
	notifier   repository.Notifier
	filterRepo repository.FilterRepository
	seenRepo   repository.SeenRepository
	statusRepo repository.StatusRepository
	matcher    *Matcher
	opts       WatcherOptions
	// overrideInterval is set when the caller configured a check interval.
	overrideInterval bool

	// mu serializes Start and Stop.
	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	// stateMu guards the snapshot below and every read-modify-write of persisted state.
	stateMu     sync.Mutex
	filters     []entity.Filter
	seen        entity.SeenRecords
	pendingSeen entity.SeenRecords // matched but not yet persisted
	status      *entity.RunStatus
}

// NewWatcher creates the scrape loop coordinator.
func NewWatcher(
	fetcher repository.ListingFetcher,
	notifier repository.Notifier,
	filterRepo repository.FilterRepository,
	seenRepo repository.SeenRepository,
	statusRepo repository.StatusRepository,
	opts WatcherOptions,
) Watcher {
	return newWatcher(fetcher, notifier, filterRepo, seenRepo, statusRepo, opts)
}

func newWatcher(
	fetcher repository.ListingFetcher,
	notifier repository.Notifier,
	filterRepo repository.FilterRepository,
	seenRepo repository.SeenRepository,
	statusRepo repository.StatusRepository,
	opts WatcherOptions,
) *watcherUseCase {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	overrideInterval := opts.CheckInterval > 0
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = entity.DefaultCheckInterval
	}
	return &watcherUseCase{
		fetcher:          fetcher,
		notifier:         notifier,
		filterRepo:       filterRepo,
		seenRepo:         seenRepo,
		statusRepo:       statusRepo,
		matcher:          NewMatcher(opts.MaxListings),
		opts:             opts,
		overrideInterval: overrideInterval,
		seen:             entity.SeenRecords{},
		pendingSeen:      entity.SeenRecords{},
		status:           entity.DefaultRunStatus(opts.CheckInterval),
	}
}

func (w *watcherUseCase) Start(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running.Load() {
		return false, nil
	}

	filters, err := w.filterRepo.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load filters: %w", err)
	}
	if len(filters) == 0 {
		return false, ErrNoFilters
	}

	// A previous loop that outlived its stop timeout still owns the session.
	if err := w.waitPreviousLoop(ctx); err != nil {
		return false, err
	}

	if err := w.fetcher.Open(ctx); err != nil {
		return false, fmt.Errorf("failed to open fetcher session: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running.Store(true)
	metrics.WatcherRunning.Set(1)

	if err := w.updateStatus(ctx, func(s *entity.RunStatus) {
		s.Running = true
		if w.overrideInterval {
			s.CheckInterval = w.opts.CheckInterval
		}
	}); err != nil {
		slog.Error("Failed to persist running status", "error", err)
	}

	go w.loop(loopCtx, w.done)

	slog.Info("Watcher started", "filters", len(filters))
	return true, nil
}

// waitPreviousLoop waits at most StopTimeout for an earlier loop to exit.
func (w *watcherUseCase) waitPreviousLoop(ctx context.Context) error {
	if w.done == nil {
		return nil
	}
	timer := time.NewTimer(w.opts.StopTimeout)
	defer timer.Stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		slog.Warn("Previous scrape loop has not exited yet", "timeout", w.opts.StopTimeout)
		return ErrLoopBusy
	}
}

func (w *watcherUseCase) Stop(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running.Load() {
		return false, nil
	}

	w.running.Store(false)
	w.cancel()

	timer := time.NewTimer(w.opts.StopTimeout)
	defer timer.Stop()
	select {
	case <-w.done:
	case <-timer.C:
		slog.Warn("Scrape loop did not exit before the stop timeout", "timeout", w.opts.StopTimeout)
	}
	metrics.WatcherRunning.Set(0)

	if err := w.updateStatus(ctx, func(s *entity.RunStatus) { s.Running = false }); err != nil {
		slog.Error("Failed to persist stopped status", "error", err)
	}

	slog.Info("Watcher stopped")
	return true, nil
}

func (w *watcherUseCase) AddFilter(ctx context.Context, model string, maxPrice *int) (entity.Filter, bool, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return entity.Filter{}, false, fmt.Errorf("%w: model must not be empty", ErrInvalidFilter)
	}
	if maxPrice != nil && *maxPrice < 0 {
		return entity.Filter{}, false, fmt.Errorf("%w: max price must not be negative", ErrInvalidFilter)
	}

	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	filters, err := w.filterRepo.Load(ctx)
	if err != nil {
		return entity.Filter{}, false, fmt.Errorf("failed to load filters: %w", err)
	}

	added := entity.NewFilter(model, maxPrice)
	updated := make([]entity.Filter, 0, len(filters)+1)
	replaced := false
	for _, f := range filters {
		if f.Model == model {
			replaced = true
			continue
		}
		updated = append(updated, f)
	}
	updated = append(updated, added)

	if err := w.filterRepo.Save(ctx, updated); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("save_filters").Inc()
		return entity.Filter{}, false, fmt.Errorf("failed to save filters: %w", err)
	}
	w.filters = updated

	if err := w.updateStatusLocked(ctx, func(s *entity.RunStatus) { s.ModelsTracked = updated }); err != nil {
		slog.Error("Failed to persist tracked models", "error", err)
	}

	slog.Info("Filter added", "model", added.Model, "max_price", added.MaxPrice, "replaced", replaced, "total", len(updated))
	return added, replaced, nil
}

func (w *watcherUseCase) RemoveFilter(ctx context.Context, model string) (bool, error) {
	model = strings.TrimSpace(model)

	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	filters, err := w.filterRepo.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load filters: %w", err)
	}

	updated := make([]entity.Filter, 0, len(filters))
	for _, f := range filters {
		if f.Model != model {
			updated = append(updated, f)
		}
	}
	if len(updated) == len(filters) {
		return false, nil
	}

	if err := w.filterRepo.Save(ctx, updated); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("save_filters").Inc()
		return false, fmt.Errorf("failed to save filters: %w", err)
	}
	w.filters = updated

	if err := w.updateStatusLocked(ctx, func(s *entity.RunStatus) { s.ModelsTracked = updated }); err != nil {
		slog.Error("Failed to persist tracked models", "error", err)
	}

	slog.Info("Filter removed", "model", model, "total", len(updated))
	return true, nil
}

func (w *watcherUseCase) ListFilters(ctx context.Context) ([]entity.Filter, error) {
	filters, err := w.filterRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load filters: %w", err)
	}
	return filters, nil
}

func (w *watcherUseCase) GetStatus(ctx context.Context) (*entity.RunStatus, error) {
	w.stateMu.Lock()
	status := w.refreshStatusLocked(ctx)
	w.stateMu.Unlock()

	filters, err := w.filterRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load filters: %w", err)
	}

	out := *status
	out.Running = w.running.Load()
	out.ModelsTracked = filters
	return &out, nil
}

// loop runs cycles until ctx is cancelled, then releases the fetcher session.
func (w *watcherUseCase) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := w.fetcher.Close(); err != nil {
			slog.Error("Failed to close fetcher session", "error", err)
		}
	}()

	slog.Info("Scrape loop started")
	for ctx.Err() == nil {
		interval := w.runCycle(ctx)
		if ctx.Err() != nil {
			break
		}

		slog.Info("Waiting until next cycle", "interval", interval)
		if !sleepCtx(ctx, interval) {
			break
		}
	}
	slog.Info("Scrape loop stopped")
}

// sleepCtx waits for d or until ctx is done. It reports whether the full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// runCycle performs one fetch, match, notify and persist pass and returns the
// wait before the next one.
func (w *watcherUseCase) runCycle(ctx context.Context) time.Duration {
	log := slog.With("cycle_id", uuid.NewString())
	started := time.Now()

	filters := w.loadFilters(ctx, log)
	if len(filters) == 0 {
		log.Warn("No filters to track, skipping cycle")
		metrics.CyclesTotal.WithLabelValues("skipped").Inc()
		return w.currentInterval()
	}

	w.stateMu.Lock()
	seen := w.refreshSeenLocked(ctx, log).Clone()
	totalFound := w.refreshStatusLocked(ctx).TotalPostsFound
	w.stateMu.Unlock()

	log.Info("Starting scrape cycle", "filters", len(filters), "seen", len(seen))

	outcome := "completed"
	raw, err := w.fetcher.Fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			log.Info("Scrape cycle interrupted by stop")
			return 0
		}
		outcome = "fetch_failed"
		log.Error("Failed to fetch listings, treating as empty page", "error", err, "error_type", fetchErrorType(err))
		raw = nil
	}
	checkedAt := time.Now()

	res := w.matcher.Match(raw, filters, seen, totalFound)

	// A stop request must not drop the state of a cycle that already matched.
	persistCtx := context.WithoutCancel(ctx)
	for _, m := range res.Matches {
		w.notify(persistCtx, log, m)
	}

	w.stateMu.Lock()
	for _, m := range res.Matches {
		rec := res.Seen[m.Listing.ID]
		w.seen[m.Listing.ID] = rec
		w.pendingSeen[m.Listing.ID] = rec
	}
	w.flushSeenLocked(persistCtx, log)
	err = w.updateStatusLocked(persistCtx, func(s *entity.RunStatus) {
		s.LastCheck = &checkedAt
		if res.TotalFound > s.TotalPostsFound {
			s.TotalPostsFound = res.TotalFound
		}
	})
	interval := w.status.Interval()
	w.stateMu.Unlock()
	if err != nil {
		log.Error("Failed to persist run status", "error", err)
	}

	metrics.CyclesTotal.WithLabelValues(outcome).Inc()
	metrics.CycleDuration.Observe(time.Since(started).Seconds())
	metrics.ListingsTotal.WithLabelValues("checked").Add(float64(res.Checked))
	metrics.ListingsTotal.WithLabelValues("already_seen").Add(float64(res.AlreadySeen))
	metrics.ListingsTotal.WithLabelValues("matched").Add(float64(res.Matched))
	metrics.ListingsTotal.WithLabelValues("duplicate_link").Add(float64(res.DuplicateLinks))
	metrics.ListingsTotal.WithLabelValues("invalid").Add(float64(res.Invalid))

	log.Info("Scan summary",
		"checked", res.Checked,
		"already_seen", res.AlreadySeen,
		"new_matches", res.Matched,
		"duplicate_links", res.DuplicateLinks,
		"invalid", res.Invalid,
		"total_found", res.TotalFound,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return interval
}

func (w *watcherUseCase) notify(ctx context.Context, log *slog.Logger, m entity.Match) {
	if err := w.notifier.Send(ctx, m); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		log.Error("Failed to send notification", "listing_id", m.Listing.ID, "link", m.Listing.Link, "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	log.Info("Match found", "model", m.Filter.Model, "price", m.Listing.PriceText, "listing_id", m.Listing.ID)
}

// loadFilters reloads the filter list so runtime edits are picked up, falling
// back to the last known list when the store is unavailable.
func (w *watcherUseCase) loadFilters(ctx context.Context, log *slog.Logger) []entity.Filter {
	filters, err := w.filterRepo.Load(ctx)

	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("load_filters").Inc()
		log.Error("Failed to load filters, using last known list", "error", err, "filters", len(w.filters))
		return w.filters
	}
	w.filters = filters
	return filters
}

// refreshSeenLocked reloads the dedup map and re-applies records that were
// matched but not persisted yet.
func (w *watcherUseCase) refreshSeenLocked(ctx context.Context, log *slog.Logger) entity.SeenRecords {
	loaded, err := w.seenRepo.Load(ctx)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("load_seen").Inc()
		log.Error("Failed to load seen listings, using in-memory state", "error", err, "seen", len(w.seen))
		return w.seen
	}
	if loaded == nil {
		loaded = entity.SeenRecords{}
	}
	loaded.Merge(w.pendingSeen)
	w.seen = loaded
	metrics.SeenRecords.Set(float64(len(w.seen)))
	return w.seen
}

func (w *watcherUseCase) flushSeenLocked(ctx context.Context, log *slog.Logger) {
	metrics.SeenRecords.Set(float64(len(w.seen)))
	if len(w.pendingSeen) == 0 {
		return
	}
	if err := w.seenRepo.Save(ctx, w.pendingSeen); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("save_seen").Inc()
		log.Error("Failed to persist seen listings, will retry next cycle", "error", err, "pending", len(w.pendingSeen))
		return
	}
	w.pendingSeen = entity.SeenRecords{}
}

// refreshStatusLocked reloads the status, keeping the larger all-time counter
// of the stored and in-memory copies.
func (w *watcherUseCase) refreshStatusLocked(ctx context.Context) *entity.RunStatus {
	loaded, err := w.statusRepo.Load(ctx)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("load_status").Inc()
		slog.Error("Failed to load run status, using in-memory state", "error", err)
		return w.status
	}
	if loaded == nil {
		loaded = entity.DefaultRunStatus(w.opts.CheckInterval)
	}
	if w.status.TotalPostsFound > loaded.TotalPostsFound {
		loaded.TotalPostsFound = w.status.TotalPostsFound
	}
	if loaded.CheckInterval <= 0 {
		loaded.CheckInterval = w.opts.CheckInterval
	}
	w.status = loaded
	return w.status
}

func (w *watcherUseCase) updateStatus(ctx context.Context, mutate func(*entity.RunStatus)) error {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.updateStatusLocked(ctx, mutate)
}

// updateStatusLocked applies mutate to a fresh copy of the status and saves it.
// The in-memory copy keeps the change even when the save fails.
func (w *watcherUseCase) updateStatusLocked(ctx context.Context, mutate func(*entity.RunStatus)) error {
	status := w.refreshStatusLocked(ctx)
	mutate(status)
	if err := w.statusRepo.Save(ctx, status); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("save_status").Inc()
		return fmt.Errorf("failed to save run status: %w", err)
	}
	return nil
}

func (w *watcherUseCase) currentInterval() time.Duration {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.refreshStatusLocked(context.Background()).Interval()
}

func fetchErrorType(err error) string {
	switch {
	case errors.Is(err, repository.ErrFetchTimeout):
		return "timeout"
	case errors.Is(err, repository.ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, repository.ErrFetchFailed):
		return "fetch"
	default:
		return "unknown"
	}
}
