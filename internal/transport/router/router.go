package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/trunov/converthub/internal/transport/handler"
)

func NewRouter(h *handler.Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Post("/convert", h.Convert)
		r.Get("/status/{jobID}", h.Status)
		r.Get("/download/{jobID}", h.Download)
		r.Delete("/jobs/{jobID}", h.DeleteJob)
		r.Get("/jobs", h.Jobs)
		r.Get("/formats", h.Formats)
		r.Get("/health", h.Health)
		r.Post("/cleanup", h.Cleanup)
		r.Get("/storage/stats", h.StorageStats)
		r.Get("/ws", h.WS)
	})

	return r
}
