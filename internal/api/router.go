package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/layerline/internal/layerservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *layerservice.Service, axis layerservice.AxisDefaults, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, axis)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/layers", h.ListLayers)
	r.Post("/layers", h.CreateLayer)
	r.Get("/layers/{id}", h.GetLayer)
	r.Put("/layers/{id}", h.UpdateLayer)
	r.Delete("/layers/{id}", h.DeleteLayer)
	r.Get("/layers/{id}/coverage", h.LayerCoverage)

	r.Get("/coverage", h.Coverage)
	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
