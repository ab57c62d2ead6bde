package response

import (
	"time"

	"github.com/user/olx-watcher/internal/entity"
)

// ActionResponse answers start, stop, add and remove requests. Changed is
// false when the request was a no-op.
type ActionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Changed bool   `json:"changed"`
}

type FilterResponse struct {
	Model    string `json:"model"`
	MaxPrice *int   `json:"max_price,omitempty"`
	Display  string `json:"display"`
}

type FilterListResponse struct {
	Filters []FilterResponse `json:"filters"`
	Total   int              `json:"total"`
}

type AddFilterResponse struct {
	ActionResponse
	Filter FilterResponse `json:"filter"`
}

// StatusResponse is a DTO for the watcher status, mirroring entity.RunStatus
type StatusResponse struct {
	Running         bool             `json:"running"`
	LastCheck       *time.Time       `json:"last_check"`
	CheckInterval   int              `json:"check_interval"`
	TotalPostsFound int              `json:"total_posts_found"`
	ModelsTracked   []FilterResponse `json:"models_tracked"`
}

func NewFilterResponse(f entity.Filter) FilterResponse {
	return FilterResponse{Model: f.Model, MaxPrice: f.MaxPrice, Display: f.String()}
}

func NewFilterList(filters []entity.Filter) []FilterResponse {
	out := make([]FilterResponse, 0, len(filters))
	for _, f := range filters {
		out = append(out, NewFilterResponse(f))
	}
	return out
}

func NewStatusResponse(s *entity.RunStatus) StatusResponse {
	return StatusResponse{
		Running:         s.Running,
		LastCheck:       s.LastCheck,
		CheckInterval:   s.CheckInterval,
		TotalPostsFound: s.TotalPostsFound,
		ModelsTracked:   NewFilterList(s.ModelsTracked),
	}
}
