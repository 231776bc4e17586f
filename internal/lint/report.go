package lint

import (
	"sort"

	"github.com/starford/graphlint/internal/models"
)

// Report is the combined outcome of a lint run.
type Report struct {
	Root       string
	Documents  []models.Document
	Findings   []models.Finding
	Duplicates []models.Duplicate
	// Inbound maps document paths to inbound link counts.
	Inbound map[string]int
}

// HasFindings reports whether the run found any defect.
func (r *Report) HasFindings() bool {
	return len(r.Findings) > 0 || len(r.Duplicates) > 0
}

// Document returns the document at canonical path p.
func (r *Report) Document(p string) (models.Document, bool) {
	for _, d := range r.Documents {
		if d.Path == p {
			return d, true
		}
	}
	return models.Document{}, false
}

// Backlinks returns the rendered paths of the documents linking to p,
// sorted and without self-links.
func (r *Report) Backlinks(p string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, d := range r.Documents {
		if d.Path == p {
			continue
		}
		for _, l := range d.Links {
			if l.Resolved != p {
				continue
			}
			if _, dup := seen[d.Rel]; !dup {
				seen[d.Rel] = struct{}{}
				out = append(out, d.Rel)
			}
			break
		}
	}
	sort.Strings(out)
	return out
}

// Edge is a link between two discovered documents.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Edges returns every link between distinct discovered documents, using
// rendered paths, sorted and deduplicated.
func (r *Report) Edges() []Edge {
	rels := make(map[string]string, len(r.Documents))
	for _, d := range r.Documents {
		rels[d.Path] = d.Rel
	}
	seen := make(map[Edge]struct{})
	var out []Edge
	for _, d := range r.Documents {
		for _, l := range d.Links {
			target, ok := rels[l.Resolved]
			if !ok || l.Resolved == d.Path {
				continue
			}
			e := Edge{Source: d.Rel, Target: target}
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}
