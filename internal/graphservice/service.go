// Package graphservice coordinates lint runs, the cached report and the
// optional persisted index for the long-running front ends.
package graphservice

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/starford/graphlint/internal/apperr"
	"github.com/starford/graphlint/internal/graph"
	"github.com/starford/graphlint/internal/index"
	"github.com/starford/graphlint/internal/lint"
	"github.com/starford/graphlint/internal/storage"
)

// DocumentItem is a lightweight document listing entry.
type DocumentItem struct {
	Path    string `json:"path"`
	ID      string `json:"id,omitempty"`
	Title   string `json:"title,omitempty"`
	Inbound int    `json:"inbound"`
}

// Service runs lint over a store and keeps the latest report.
type Service struct {
	store  storage.Provider
	opts   lint.Options
	db     index.GraphIndex // nil when no index is configured
	logger *slog.Logger

	// refreshMu serialises whole passes: lint, index sync and caching.
	refreshMu sync.Mutex

	mu   sync.RWMutex
	last *lint.Report
}

// NewService creates a new graph service. db may be nil.
func NewService(store storage.Provider, opts lint.Options, db index.GraphIndex, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts.Logger = logger
	return &Service{store: store, opts: opts, db: db, logger: logger}
}

// Root returns the canonical scan root.
func (s *Service) Root() string { return s.store.Root() }

// Refresh runs a full lint pass, syncs the index and caches the report.
func (s *Service) Refresh(ctx context.Context) (*lint.Report, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	rep, err := lint.Run(ctx, s.store, s.opts)
	if err != nil {
		return nil, err
	}
	if s.db != nil {
		if err := index.Sync(s.db, rep.Documents, rep.Findings, s.logger); err != nil {
			s.logger.Warn("index sync failed", slog.String("error", err.Error()))
		}
	}

	s.mu.Lock()
	s.last = rep
	s.mu.Unlock()

	s.logger.Info("lint complete",
		slog.Int("documents", len(rep.Documents)),
		slog.Int("findings", len(rep.Findings)),
		slog.Int("duplicates", len(rep.Duplicates)))
	return rep, nil
}

// Report returns the cached report, running a pass when none exists.
func (s *Service) Report(ctx context.Context) (*lint.Report, error) {
	s.mu.RLock()
	rep := s.last
	s.mu.RUnlock()
	if rep != nil {
		return rep, nil
	}
	return s.Refresh(ctx)
}

// Backlinks returns the documents linking to path. Relative paths are
// taken from the scan root.
func (s *Service) Backlinks(ctx context.Context, path string) ([]string, error) {
	rep, err := s.Report(ctx)
	if err != nil {
		return nil, err
	}
	target, ok := s.lookup(rep, path)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return nonNilSlice(rep.Backlinks(target)), nil
}

// lookup accepts an absolute path, a root-relative path or a rendered path
// (relative to the root's parent) and returns the document's identity.
func (s *Service) lookup(rep *lint.Report, path string) (string, bool) {
	p := filepath.FromSlash(path)
	candidates := []string{p}
	if !filepath.IsAbs(p) {
		candidates = []string{filepath.Join(s.Root(), p), filepath.Join(filepath.Dir(s.Root()), p)}
	}
	for _, c := range candidates {
		c = graph.Canonical(c)
		if _, ok := rep.Document(c); ok {
			return c, true
		}
	}
	return "", false
}

// Documents lists every discovered document with its inbound count.
func (s *Service) Documents(ctx context.Context) ([]DocumentItem, error) {
	rep, err := s.Report(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]DocumentItem, len(rep.Documents))
	for i, d := range rep.Documents {
		items[i] = DocumentItem{Path: d.Rel, Inbound: rep.Inbound[d.Path]}
		if d.Metadata != nil {
			items[i].ID = d.Metadata.ID
			items[i].Title = d.Metadata.Title
		}
	}
	return items, nil
}

// Graph returns the document nodes and the links between them.
func (s *Service) Graph(ctx context.Context) ([]DocumentItem, []lint.Edge, error) {
	nodes, err := s.Documents(ctx)
	if err != nil {
		return nil, nil, err
	}
	rep, err := s.Report(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nodes, nonNilSlice(rep.Edges()), nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
