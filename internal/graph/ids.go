package graph

import (
	"sort"

	"github.com/starford/graphlint/internal/models"
)

// IDIndex maps identifiers to the documents that declare them, in the
// order they were added.
type IDIndex struct {
	claims map[string][]string
}

// NewIDIndex returns an empty index.
func NewIDIndex() *IDIndex {
	return &IDIndex{claims: make(map[string][]string)}
}

// Add records that path declares id. Empty ids are ignored.
func (x *IDIndex) Add(id, path string) {
	if id == "" {
		return
	}
	x.claims[id] = append(x.claims[id], path)
}

// Claimants returns the documents that declared id.
func (x *IDIndex) Claimants(id string) []string {
	return x.claims[id]
}

// Duplicates returns every id with more than one claimant, sorted by id.
func (x *IDIndex) Duplicates() []models.Duplicate {
	var out []models.Duplicate
	for id, paths := range x.claims {
		if len(paths) < 2 {
			continue
		}
		out = append(out, models.Duplicate{ID: id, Paths: append([]string(nil), paths...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
