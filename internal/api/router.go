package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/graphlint/internal/graphservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// onRefresh, if non-nil, is called after a forced re-lint.
func NewRouter(svc *graphservice.Service, authEnabled bool, token string, sseHandler http.Handler, onRefresh RefreshHook) chi.Router {
	h := NewHandler(svc, onRefresh)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/report", h.Report)
	r.Post("/lint", h.Lint)
	r.Get("/documents", h.Documents)
	r.Get("/graph", h.Graph)
	r.Get("/backlinks/*", h.Backlinks)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
