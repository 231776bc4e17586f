// Package report renders lint results and selects the process exit status.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/starford/graphlint/internal/lint"
	"github.com/starford/graphlint/internal/models"
)

// Formats accepted by Render.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Exit statuses. ExitUsage covers runs that could not start.
const (
	ExitOK           = 0
	ExitFindings     = 1
	ExitRootNotFound = 2
	ExitUsage        = 2
)

// ExitCode returns ExitFindings when rep has any finding or duplicate.
func ExitCode(rep *lint.Report) int {
	if rep.HasFindings() {
		return ExitFindings
	}
	return ExitOK
}

// Render writes rep to w in the given format. The first write error is
// returned; callers treat it as a closed downstream reader.
func Render(w io.Writer, rep *lint.Report, format string) error {
	switch format {
	case FormatJSON:
		return JSON(w, rep)
	default:
		return Text(w, rep)
	}
}

// Text writes the human-readable report.
func Text(w io.Writer, rep *lint.Report) error {
	bw := bufio.NewWriter(w)

	if len(rep.Findings) > 0 {
		fmt.Fprintln(bw, "Frontmatter issues:")
		for _, f := range rep.Findings {
			fmt.Fprintf(bw, "- %s: %s\n", f.Rel, f.Code)
		}
	}

	if len(rep.Duplicates) > 0 {
		fmt.Fprintln(bw, "\nDuplicate ids:")
		for _, d := range rep.Duplicates {
			fmt.Fprintf(bw, "- id: %s\n", d.ID)
			for _, rel := range d.Rels {
				fmt.Fprintf(bw, "  - %s\n", rel)
			}
		}
	}

	if !rep.HasFindings() {
		fmt.Fprintf(bw, "OK: %d markdown files under %s\n", len(rep.Documents), rep.Root)
	}
	return bw.Flush()
}

// Summary is the JSON form of a report.
type Summary struct {
	Root       string             `json:"root"`
	Files      int                `json:"files"`
	OK         bool               `json:"ok"`
	Findings   []models.Finding   `json:"findings"`
	Duplicates []models.Duplicate `json:"duplicates"`
}

// NewSummary builds the JSON form of rep with non-nil slices.
func NewSummary(rep *lint.Report) Summary {
	s := Summary{
		Root:       rep.Root,
		Files:      len(rep.Documents),
		OK:         !rep.HasFindings(),
		Findings:   rep.Findings,
		Duplicates: rep.Duplicates,
	}
	if s.Findings == nil {
		s.Findings = []models.Finding{}
	}
	if s.Duplicates == nil {
		s.Duplicates = []models.Duplicate{}
	}
	return s
}

// JSON writes the machine-readable report.
func JSON(w io.Writer, rep *lint.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewSummary(rep))
}
