package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/serp-rank-service/internal/delivery/http/handler"
	"github.com/user/serp-rank-service/internal/delivery/http/middleware"
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

		r.Post("/run", h.HandleRun)
		r.Post("/pause", h.HandlePause)
		r.Post("/resume", h.HandleResume)
		r.Post("/stop", h.HandleStop)
		r.Post("/captcha/solved", h.HandleCaptchaSolved)

		r.Get("/status", h.HandleStatus)
		r.Get("/download", h.HandleDownload)
	})

	return r
}
