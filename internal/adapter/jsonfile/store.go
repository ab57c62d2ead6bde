// Package jsonfile keeps watcher state in three JSON files inside one
// directory, using the same layout as the earlier bot so existing state
// files keep working.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/user/olx-watcher/internal/entity"
)

const (
	FiltersFile = "iphone_models.json"
	SeenFile    = "seen_posts.json"
	StatusFile  = "bot_status.json"

	timeLayout = "2006-01-02 15:04:05"
)

// Store is the file backend. One Store serves the filter, seen and status
// repositories; writes go through a temp file and a rename.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates the state directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Filters() *FilterRepo { return &FilterRepo{store: s} }
func (s *Store) Seen() *SeenRepo      { return &SeenRepo{store: s} }
func (s *Store) Status() *StatusRepo  { return &StatusRepo{store: s} }

// readJSON decodes the named file into v. A missing file reports found=false.
func (s *Store) readJSON(name string, v interface{}) (bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return true, nil
}

func (s *Store) writeJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

type FilterRepo struct{ store *Store }

func (r *FilterRepo) Load(ctx context.Context) ([]entity.Filter, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var filters []entity.Filter
	if _, err := r.store.readJSON(FiltersFile, &filters); err != nil {
		return nil, err
	}
	if filters == nil {
		filters = []entity.Filter{}
	}
	return filters, nil
}

func (r *FilterRepo) Save(ctx context.Context, filters []entity.Filter) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if filters == nil {
		filters = []entity.Filter{}
	}
	return r.store.writeJSON(FiltersFile, filters)
}

// seenDTO is the on-disk form of a seen record.
type seenDTO struct {
	Title   string `json:"title"`
	Model   string `json:"model"`
	Price   string `json:"price"`
	Link    string `json:"link"`
	FoundAt string `json:"found_at"`
}

type SeenRepo struct{ store *Store }

func (r *SeenRepo) Load(ctx context.Context) (entity.SeenRecords, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.load()
}

func (r *SeenRepo) load() (entity.SeenRecords, error) {
	var raw map[string]seenDTO
	if _, err := r.store.readJSON(SeenFile, &raw); err != nil {
		return nil, err
	}
	records := make(entity.SeenRecords, len(raw))
	for id, dto := range raw {
		records[id] = entity.SeenRecord{
			Title:     dto.Title,
			Model:     dto.Model,
			PriceText: dto.Price,
			Link:      dto.Link,
			FoundAt:   parseTime(dto.FoundAt),
		}
	}
	return records, nil
}

// Save merges records into the file. Entries already on disk are kept as they are.
func (r *SeenRepo) Save(ctx context.Context, records entity.SeenRecords) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, err := r.load()
	if err != nil {
		return err
	}
	current.Merge(records)

	raw := make(map[string]seenDTO, len(current))
	for id, rec := range current {
		raw[id] = seenDTO{
			Title:   rec.Title,
			Model:   rec.Model,
			Price:   rec.PriceText,
			Link:    rec.Link,
			FoundAt: formatTime(rec.FoundAt),
		}
	}
	return r.store.writeJSON(SeenFile, raw)
}

type statusDTO struct {
	Running         bool            `json:"running"`
	LastCheck       *string         `json:"last_check"`
	CheckInterval   int             `json:"check_interval"`
	TotalPostsFound int             `json:"total_posts_found"`
	ModelsTracked   []entity.Filter `json:"models_tracked"`
}

type StatusRepo struct{ store *Store }

func (r *StatusRepo) Load(ctx context.Context) (*entity.RunStatus, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var dto statusDTO
	found, err := r.store.readJSON(StatusFile, &dto)
	if err != nil || !found {
		return nil, err
	}

	status := &entity.RunStatus{
		Running:         dto.Running,
		CheckInterval:   dto.CheckInterval,
		TotalPostsFound: dto.TotalPostsFound,
		ModelsTracked:   dto.ModelsTracked,
	}
	if dto.LastCheck != nil && *dto.LastCheck != "" {
		t := parseTime(*dto.LastCheck)
		status.LastCheck = &t
	}
	if status.ModelsTracked == nil {
		status.ModelsTracked = []entity.Filter{}
	}
	return status, nil
}

func (r *StatusRepo) Save(ctx context.Context, status *entity.RunStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	dto := statusDTO{
		Running:         status.Running,
		CheckInterval:   status.CheckInterval,
		TotalPostsFound: status.TotalPostsFound,
		ModelsTracked:   status.ModelsTracked,
	}
	if status.LastCheck != nil {
		s := formatTime(*status.LastCheck)
		dto.LastCheck = &s
	}
	if dto.ModelsTracked == nil {
		dto.ModelsTracked = []entity.Filter{}
	}
	return r.store.writeJSON(StatusFile, dto)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(timeLayout)
}

// parseTime reads the legacy local timestamp, or RFC 3339. Unknown input yields the zero time.
func parseTime(s string) time.Time {
	if t, err := time.ParseInLocation(timeLayout, s, time.Local); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
