package parser

import (
	"encoding/hex"
	"regexp"
	"strings"
)

const (
	fence  = "```"
	docExt = ".md"
)

var linkRe = regexp.MustCompile(`!?\[[^\]]*\]\(([^)]*)\)`)

// ExtractTargets returns the raw targets of every inline link or image in
// text, in document order. Fenced code regions are skipped.
func ExtractTargets(text string) []string {
	matches := linkRe.FindAllStringSubmatch(stripFences(text), -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		t := strings.TrimSpace(m[1])
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// stripFences drops every line inside a fence, including both fence lines.
// An unterminated fence swallows the rest of the document.
func stripFences(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inside := false
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), fence) {
			inside = !inside
			continue
		}
		if inside {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}

// Normalize unwraps angle brackets, cuts the fragment and query, unescapes
// \( and \), and percent-decodes the result.
func Normalize(raw string) string {
	t := strings.TrimSpace(raw)
	if len(t) >= 2 && strings.HasPrefix(t, "<") && strings.HasSuffix(t, ">") {
		t = t[1 : len(t)-1]
	}
	if i := strings.IndexAny(t, "#?"); i >= 0 {
		t = t[:i]
	}
	t = strings.NewReplacer(`\(`, "(", `\)`, ")").Replace(t)
	return unquote(t)
}

// unquote decodes every valid %XX escape and copies malformed ones through
// unchanged. Decoded bytes that are not valid UTF-8 become U+FFFD.
func unquote(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if v, err := hex.DecodeString(s[i+1 : i+3]); err == nil {
				b = append(b, v[0])
				i += 2
				continue
			}
		}
		b = append(b, s[i])
	}
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

// IsExternal reports whether a target points outside the document graph:
// fragment-only, scheme-qualified, mailto: or tel:.
func IsExternal(raw string) bool {
	t := strings.TrimSpace(raw)
	if len(t) >= 2 && strings.HasPrefix(t, "<") && strings.HasSuffix(t, ">") {
		t = t[1 : len(t)-1]
	}
	switch {
	case strings.HasPrefix(t, "#"),
		strings.Contains(t, "://"),
		strings.HasPrefix(t, "mailto:"),
		strings.HasPrefix(t, "tel:"):
		return true
	}
	return false
}

// InternalTargets extracts, classifies and normalizes the document links
// in text. Only targets ending in .md (any case) are kept.
func InternalTargets(text string) []string {
	var out []string
	for _, raw := range ExtractTargets(text) {
		if IsExternal(raw) {
			continue
		}
		t := Normalize(raw)
		if t == "" || !strings.HasSuffix(strings.ToLower(t), docExt) {
			continue
		}
		out = append(out, t)
	}
	return out
}
