// Package models defines the domain types for graphlint.
package models

// Metadata holds the four recognised frontmatter scalars. Empty string means
// the key was absent.
type Metadata struct {
	ID     string `json:"id,omitempty"`
	Type   string `json:"type,omitempty"`
	Title  string `json:"title,omitempty"`
	Status string `json:"status,omitempty"`
}

// Lookup returns the value for a recognised key. Unknown keys always report
// absent.
func (m Metadata) Lookup(key string) (string, bool) {
	var v string
	switch key {
	case "id":
		v = m.ID
	case "type":
		v = m.Type
	case "title":
		v = m.Title
	case "status":
		v = m.Status
	default:
		return "", false
	}
	return v, v != ""
}

// Link is an internal document link found in a Document.
type Link struct {
	Target   string `json:"target"`   // normalized target as written
	Resolved string `json:"resolved"` // canonical absolute path
}

// Document is a discovered markdown file. Path is canonical and absolute.
type Document struct {
	Path     string    `json:"path"`
	Rel      string    `json:"rel"`
	Checksum string    `json:"checksum,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
	Links    []Link    `json:"links,omitempty"`
}
