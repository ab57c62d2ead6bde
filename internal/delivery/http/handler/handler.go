package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/user/olx-watcher/internal/delivery/http/request"
	"github.com/user/olx-watcher/internal/delivery/http/response"
	"github.com/user/olx-watcher/internal/usecase"
)

type Handler struct {
	watcher usecase.Watcher
}

func NewHandler(watcher usecase.Watcher) *Handler {
	return &Handler{
		watcher: watcher,
	}
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	started, err := h.watcher.Start(r.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrNoFilters) {
			h.writeJSONError(w, "No models to track, add a filter first", http.StatusConflict)
			return
		}
		if errors.Is(err, usecase.ErrLoopBusy) {
			h.writeJSONError(w, "Previous scrape loop is still finishing, try again shortly", http.StatusConflict)
			return
		}
		slog.Error("Failed to start watcher", "error", err)
		h.writeJSONError(w, "Failed to start watcher", http.StatusInternalServerError)
		return
	}

	msg := "Watcher started"
	if !started {
		msg = "Watcher is already running"
	}
	h.writeJSON(w, http.StatusOK, response.ActionResponse{Status: "success", Message: msg, Changed: started})
}

func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	stopped, err := h.watcher.Stop(r.Context())
	if err != nil {
		slog.Error("Failed to stop watcher", "error", err)
		h.writeJSONError(w, "Failed to stop watcher", http.StatusInternalServerError)
		return
	}

	msg := "Watcher stopped"
	if !stopped {
		msg = "Watcher is not running"
	}
	h.writeJSON(w, http.StatusOK, response.ActionResponse{Status: "success", Message: msg, Changed: stopped})
}

func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.watcher.GetStatus(r.Context())
	if err != nil {
		slog.Error("Failed to get watcher status", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewStatusResponse(status))
}

func (h *Handler) HandleListFilters(w http.ResponseWriter, r *http.Request) {
	filters, err := h.watcher.ListFilters(r.Context())
	if err != nil {
		slog.Error("Failed to list filters", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.FilterListResponse{Filters: response.NewFilterList(filters), Total: len(filters)})
}

func (h *Handler) HandleAddFilter(w http.ResponseWriter, r *http.Request) {
	var req request.AddFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	filter, replaced, err := h.watcher.AddFilter(r.Context(), req.Model, req.MaxPrice)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidFilter) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to add filter", "model", req.Model, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusCreated
	msg := fmt.Sprintf("Added '%s' to tracked models", filter.Model)
	if replaced {
		status = http.StatusOK
		msg = fmt.Sprintf("Replaced '%s' in tracked models", filter.Model)
	}
	h.writeJSON(w, status, response.AddFilterResponse{
		ActionResponse: response.ActionResponse{Status: "success", Message: msg, Changed: true},
		Filter:         response.NewFilterResponse(filter),
	})
}

func (h *Handler) HandleRemoveFilter(w http.ResponseWriter, r *http.Request) {
	model := strings.TrimSpace(r.URL.Query().Get("model"))
	if model == "" {
		h.writeJSONError(w, "model query parameter is required", http.StatusBadRequest)
		return
	}

	removed, err := h.watcher.RemoveFilter(r.Context(), model)
	if err != nil {
		slog.Error("Failed to remove filter", "model", model, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	msg := fmt.Sprintf("Removed '%s' from tracked models", model)
	if !removed {
		msg = fmt.Sprintf("'%s' is not tracked", model)
	}
	h.writeJSON(w, http.StatusOK, response.ActionResponse{Status: "success", Message: msg, Changed: removed})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
