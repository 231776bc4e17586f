package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/graphlint/internal/apperr"
	"github.com/starford/graphlint/internal/graphservice"
	"github.com/starford/graphlint/internal/lint"
	"github.com/starford/graphlint/internal/report"
)

// RefreshHook observes reports produced by a forced re-lint.
type RefreshHook func(rep *lint.Report)

// Handler holds API route handlers.
type Handler struct {
	svc       *graphservice.Service
	onRefresh RefreshHook
}

// NewHandler creates a new Handler.
func NewHandler(svc *graphservice.Service, onRefresh RefreshHook) *Handler {
	return &Handler{svc: svc, onRefresh: onRefresh}
}

// docPath extracts the document path from the wildcard segment.
// Supports encoded slashes (e.g. concepts%2Fnote.md).
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Report handles GET /api/report.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Report(r.Context())
	if err != nil {
		internalError(w, "report", err)
		return
	}
	writeJSON(w, http.StatusOK, report.NewSummary(rep))
}

// Lint handles POST /api/lint: forces a fresh pass over the tree.
func (h *Handler) Lint(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Refresh(r.Context())
	if err != nil {
		internalError(w, "lint", err)
		return
	}
	if h.onRefresh != nil {
		h.onRefresh(rep)
	}
	writeJSON(w, http.StatusOK, report.NewSummary(rep))
}

// Documents handles GET /api/documents.
func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Documents(r.Context())
	if err != nil {
		internalError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: len(items)})
}

// Graph handles GET /api/graph.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		internalError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}

// Backlinks handles GET /api/backlinks/*.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	bl, err := h.svc.Backlinks(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		internalError(w, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Path: path, Backlinks: bl})
}
