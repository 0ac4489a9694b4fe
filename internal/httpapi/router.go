package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter builds the HTTP routing table.
func NewRouter(h *Handler, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(Recovery(logger))
	r.Use(RequestLogger(logger))

	r.Get("/health", h.Health)
	r.Post("/update-readings", h.UpdateReadings)
	r.Post("/acknowledge-warning", h.AcknowledgeWarning)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
