package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/olx-watcher/internal/delivery/http/handler"
	"github.com/user/olx-watcher/internal/delivery/http/middleware"
)

func New(h *handler.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)
		r.Get("/status", h.HandleGetStatus)

		r.Post("/watcher/start", h.HandleStart)
		r.Post("/watcher/stop", h.HandleStop)

		r.Get("/filters", h.HandleListFilters)
		r.Post("/filters", h.HandleAddFilter)
		r.Delete("/filters", h.HandleRemoveFilter)
	})

	return r
}
