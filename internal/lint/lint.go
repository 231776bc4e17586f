// Package lint runs the graph memory bank checks over a document tree.
package lint

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/starford/graphlint/internal/graph"
	"github.com/starford/graphlint/internal/models"
	"github.com/starford/graphlint/internal/parser"
	"github.com/starford/graphlint/internal/storage"
)

// Options configures a lint run.
type Options struct {
	// Required lists the metadata keys that must be present and non-empty.
	Required     []string
	CheckLinks   bool
	CheckOrphans bool
	// RootIndex is the orphan-exempt document, relative to the scan root.
	RootIndex string
	// Workers bounds the per-document pass; 0 means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

// Run lints every document the store lists. Per-document failures become
// findings; only a listing failure or cancellation returns an error.
func Run(ctx context.Context, store storage.Provider, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	entries, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Each worker owns its slot; the reducer below is single-threaded.
	results := make([]docResult, len(entries))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, e := range entries {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = checkDocument(store, e, opts.Required, logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return reduce(store.Root(), results, opts), nil
}

type docResult struct {
	doc      models.Document
	findings []models.Finding
}

// checkDocument reads one file, parses its frontmatter and resolves its
// document links.
func checkDocument(store storage.Provider, e storage.Entry, required []string, logger *slog.Logger) docResult {
	res := docResult{doc: models.Document{Path: e.Path, Rel: e.Rel}}
	add := func(code string) {
		res.findings = append(res.findings, models.Finding{Path: e.Path, Rel: e.Rel, Code: code})
	}

	text, err := store.Read(e.Path)
	if err != nil {
		logger.Warn("lint: read failed", slog.String("path", e.Rel), slog.String("error", err.Error()))
		add(models.ReadError(readDetail(err)))
		return res
	}
	res.doc.Checksum = storage.Checksum(text)

	meta, code := parser.ParseFrontmatter(text)
	if code != "" {
		add(code)
	} else {
		res.doc.Metadata = meta
		for _, key := range required {
			if _, ok := meta.Lookup(key); !ok {
				add(models.MissingKey(key))
			}
		}
	}

	for _, target := range parser.InternalTargets(text) {
		res.doc.Links = append(res.doc.Links, models.Link{
			Target:   target,
			Resolved: graph.Resolve(e.Path, target),
		})
	}
	logger.Debug("lint: checked", slog.String("path", e.Rel), slog.Int("links", len(res.doc.Links)))
	return res
}

func readDetail(err error) string {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}

func reduce(root string, results []docResult, opts Options) *Report {
	rep := &Report{Root: root}
	ids := graph.NewIDIndex()
	rels := make(map[string]string, len(results))

	var findings []models.Finding
	for _, r := range results {
		rep.Documents = append(rep.Documents, r.doc)
		rels[r.doc.Path] = r.doc.Rel
		findings = append(findings, r.findings...)
		if r.doc.Metadata != nil {
			ids.Add(r.doc.Metadata.ID, r.doc.Path)
		}
	}

	analysis := graph.Analyze(rep.Documents, graph.Options{
		CheckLinks:   opts.CheckLinks,
		CheckOrphans: opts.CheckOrphans,
		RootIndex:    graph.Canonical(filepath.Join(root, opts.RootIndex)),
	})
	rep.Inbound = analysis.Inbound
	rep.Findings = sortFindings(append(findings, analysis.Findings...))

	for _, d := range ids.Duplicates() {
		for _, p := range d.Paths {
			d.Rels = append(d.Rels, rels[p])
		}
		rep.Duplicates = append(rep.Duplicates, d)
	}
	return rep
}

// sortFindings orders by rendered path then code and drops exact repeats.
func sortFindings(in []models.Finding) []models.Finding {
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].Rel != in[j].Rel {
			return in[i].Rel < in[j].Rel
		}
		return in[i].Code < in[j].Code
	})
	out := in[:0]
	for i, f := range in {
		if i > 0 && f.Path == in[i-1].Path && f.Code == in[i-1].Code {
			continue
		}
		out = append(out, f)
	}
	return out
}
