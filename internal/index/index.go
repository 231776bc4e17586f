package index

import "github.com/starford/graphlint/internal/models"

// GraphIndex defines the persisted graph operations. Consumers should depend
// on this interface rather than the concrete *DB type.
type GraphIndex interface {
	UpsertDocument(d models.Document) error
	DeleteDocument(path string) error
	ReplaceFindings(findings []models.Finding) error
	AllChecksums() (map[string]string, error)
	Backlinks(resolved string) ([]string, error)
	Graph() ([]GraphNode, []GraphLink, error)
	Findings() ([]models.Finding, error)
	DuplicateIDs() (map[string][]string, error)
	Close() error
}

// Verify *DB satisfies GraphIndex at compile time.
var _ GraphIndex = (*DB)(nil)
