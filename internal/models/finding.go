package models

import "strings"

// Finding codes. Parameterised codes are built with the helpers below.
const (
	CodeMissingFrontmatter      = "missing_frontmatter"
	CodeUnterminatedFrontmatter = "unterminated_frontmatter"
	CodeOrphanNode              = "orphan_node"

	codeReadError  = "read_error:"
	codeBrokenLink = "broken_link:"
	codeMissing    = "missing_"
)

// Finding is a single defect scoped to one document.
type Finding struct {
	Path string `json:"-"`
	Rel  string `json:"path"`
	Code string `json:"code"`
}

// ReadError builds the read_error code.
func ReadError(detail string) string { return codeReadError + detail }

// BrokenLink builds the broken_link code for a normalized target.
func BrokenLink(target string) string { return codeBrokenLink + target }

// MissingKey builds the missing_<key> code.
func MissingKey(key string) string { return codeMissing + key }

// IsBrokenLink reports whether code is a broken_link finding and returns its target.
func IsBrokenLink(code string) (string, bool) {
	if !strings.HasPrefix(code, codeBrokenLink) {
		return "", false
	}
	return strings.TrimPrefix(code, codeBrokenLink), true
}

// Duplicate is an identifier claimed by more than one document.
type Duplicate struct {
	ID    string   `json:"id"`
	Paths []string `json:"-"`
	Rels  []string `json:"paths"`
}
