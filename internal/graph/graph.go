package graph

import (
	"github.com/starford/graphlint/internal/models"
)

// Options toggles the graph checks. They are passed explicitly so analysis
// stays a function of its inputs.
type Options struct {
	CheckLinks   bool
	CheckOrphans bool
	// RootIndex is the canonical path of the orphan-exempt document.
	RootIndex string
	// Exists overrides the filesystem probe used for broken links.
	Exists func(path string) bool
}

// Result is the outcome of Analyze.
type Result struct {
	// Inbound maps every document path to the number of links it receives
	// from other discovered documents.
	Inbound  map[string]int
	Findings []models.Finding
}

// Analyze computes inbound counts over docs and emits broken_link and
// orphan_node findings. Findings are grouped by document in input order.
func Analyze(docs []models.Document, opts Options) Result {
	exists := opts.Exists
	if exists == nil {
		exists = FileExists
	}

	inbound := make(map[string]int, len(docs))
	for _, d := range docs {
		inbound[d.Path] = 0
	}

	var findings []models.Finding
	for _, d := range docs {
		reported := make(map[string]struct{})
		for _, l := range d.Links {
			if _, known := inbound[l.Resolved]; known && l.Resolved != d.Path {
				inbound[l.Resolved]++
			}
			if !opts.CheckLinks || exists(l.Resolved) {
				continue
			}
			code := models.BrokenLink(l.Target)
			if _, dup := reported[code]; dup {
				continue
			}
			reported[code] = struct{}{}
			findings = append(findings, models.Finding{Path: d.Path, Rel: d.Rel, Code: code})
		}
	}

	if opts.CheckOrphans {
		for _, d := range docs {
			if d.Path == opts.RootIndex || inbound[d.Path] > 0 {
				continue
			}
			findings = append(findings, models.Finding{Path: d.Path, Rel: d.Rel, Code: models.CodeOrphanNode})
		}
	}

	return Result{Inbound: inbound, Findings: findings}
}
