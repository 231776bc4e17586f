// Package parser extracts frontmatter scalars and markdown link targets from
// raw document text.
package parser

import (
	"regexp"
	"strings"

	"github.com/starford/graphlint/internal/models"
)

const delim = "---"

// keyRes holds one anchored pattern per recognised key. Matching is per line;
// values never span lines.
var keyRes = map[string]*regexp.Regexp{
	"id":     keyPattern("id"),
	"type":   keyPattern("type"),
	"title":  keyPattern("title"),
	"status": keyPattern("status"),
}

func keyPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(key) + `:[ \t]*"?([^"\n]+)"?[ \t\r]*$`)
}

// ParseFrontmatter extracts the recognised scalars from the leading
// frontmatter block. On structural failure it returns nil and the finding
// code (missing_frontmatter or unterminated_frontmatter).
func ParseFrontmatter(text string) (*models.Metadata, string) {
	block, code := frontmatterBlock(text)
	if code != "" {
		return nil, code
	}
	return &models.Metadata{
		ID:     pick(block, "id"),
		Type:   pick(block, "type"),
		Title:  pick(block, "title"),
		Status: pick(block, "status"),
	}, ""
}

// frontmatterBlock returns the text between the opening and closing
// delimiter lines. The opening delimiter must be the very first bytes.
func frontmatterBlock(text string) (string, string) {
	if !strings.HasPrefix(text, delim+"\n") {
		return "", models.CodeMissingFrontmatter
	}
	start := len(delim) + 1

	// The closing delimiter is searched after the opening line, so
	// "---\n---\n" has no closing line of its own.
	for from := start; from < len(text); {
		i := strings.Index(text[from:], "\n"+delim)
		if i < 0 {
			break
		}
		end := from + i
		after := end + 1 + len(delim)
		if after == len(text) || text[after] == '\n' {
			return text[start:end], ""
		}
		from = end + 1
	}
	return "", models.CodeUnterminatedFrontmatter
}

func pick(block, key string) string {
	m := keyRes[key].FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
