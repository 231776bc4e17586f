// Package storage discovers and reads the markdown documents of a graph.
package storage

import "context"

// Entry is a discovered document.
type Entry struct {
	// Path is the canonical absolute path, the document's identity.
	Path string
	// RootRel is the slash-separated path relative to the scan root, as
	// matched by exclude globs.
	RootRel string
	// Rel is the path rendered in reports: relative to the root's parent.
	Rel string
}

// Provider is the interface for document discovery and reads.
type Provider interface {
	// Root returns the canonical scan root.
	Root() string
	// List returns every markdown document under the root, sorted by RootRel.
	List(ctx context.Context) ([]Entry, error)
	// Read returns the document text with invalid UTF-8 replaced.
	Read(path string) (string, error)
}
