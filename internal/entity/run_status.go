package entity

import "time"

// DefaultCheckInterval is the wait between two scrape cycles, in seconds.
const DefaultCheckInterval = 120

// RunStatus is the persisted state of the watcher.
type RunStatus struct {
	Running         bool       `json:"running"`
	LastCheck       *time.Time `json:"last_check"`
	CheckInterval   int        `json:"check_interval"`
	TotalPostsFound int        `json:"total_posts_found"`
	ModelsTracked   []Filter   `json:"models_tracked"`
}

// DefaultRunStatus returns the status used when nothing has been persisted yet.
func DefaultRunStatus(checkInterval int) *RunStatus {
	if checkInterval <= 0 {
		checkInterval = DefaultCheckInterval
	}
	return &RunStatus{
		CheckInterval: checkInterval,
		ModelsTracked: []Filter{},
	}
}

// Interval returns the check interval as a duration, falling back to the default.
func (s *RunStatus) Interval() time.Duration {
	if s.CheckInterval <= 0 {
		return DefaultCheckInterval * time.Second
	}
	return time.Duration(s.CheckInterval) * time.Second
}
