package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/graphlint/internal/graph"
	"github.com/starford/graphlint/internal/report"
	"github.com/starford/graphlint/internal/testutil"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"graphlint"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

var cleanGraph = map[string]string{
	"index.md":          testutil.Doc("root", "- [A](a.md)\n- [B](concepts/b.md)\n- [N](concepts/notes.MD)\n"),
	"a.md":              testutil.Doc("a", "See [B](concepts/b.md#intro).\n"),
	"concepts/b.md":     testutil.Doc("b", "Up: [A](<../a.md>)\n"),
	"concepts/notes.MD": testutil.Doc("notes", "[A](../a.md)\n"),
}

func TestRun_Clean(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"index.md":      testutil.Doc("root", "[A](a.md)\n"),
		"a.md":          testutil.Doc("a", "[B](concepts/b.md)\n"),
		"concepts/b.md": testutil.Doc("b", "[A](../a.md)\n"),
	})

	code, out, errOut := runCLI(t, "--root", root)
	if code != report.ExitOK {
		t.Fatalf("exit = %d, stdout = %q, stderr = %q", code, out, errOut)
	}
	want := "OK: 3 markdown files under " + graph.Canonical(root) + "\n"
	if out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}
}

func TestRun_OrphanAndBrokenLink(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"index.md": testutil.Doc("root", "[A](a.md)\n"),
		"a.md":     testutil.Doc("a", "[gone](missing.md)\n"),
		"b.md":     testutil.Doc("b", ""),
	})

	code, out, _ := runCLI(t, "--root", root)
	if code != report.ExitFindings {
		t.Fatalf("exit = %d", code)
	}
	want := "Frontmatter issues:\n" +
		"- graph/a.md: broken_link:missing.md\n" +
		"- graph/b.md: orphan_node\n"
	if out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}

	code, out, _ = runCLI(t, "--root", root, "--no-check-links", "--no-check-orphans")
	if code != report.ExitOK || !strings.HasPrefix(out, "OK: 3 markdown files") {
		t.Errorf("with checks disabled: exit = %d, stdout = %q", code, out)
	}
}

func TestRun_NegativeFlagWins(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"index.md": testutil.Doc("root", ""),
		"b.md":     testutil.Doc("b", ""),
	})
	code, _, _ := runCLI(t, "--root", root, "--check-orphans", "--no-check-orphans")
	if code != report.ExitOK {
		t.Errorf("exit = %d, want 0 with orphans disabled", code)
	}
}

func TestRun_DuplicatesAndFrontmatter(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"index.md": testutil.Doc("root", "[x](x.md) [y](y.md) [z](z.md)\n"),
		"x.md":     testutil.Doc("same", ""),
		"y.md":     testutil.Doc("same", ""),
		"z.md":     "no frontmatter here\n",
	})

	code, out, _ := runCLI(t, "--root", root)
	if code != report.ExitFindings {
		t.Fatalf("exit = %d", code)
	}
	want := "Frontmatter issues:\n" +
		"- graph/z.md: missing_frontmatter\n" +
		"\nDuplicate ids:\n" +
		"- id: same\n" +
		"  - graph/x.md\n" +
		"  - graph/y.md\n"
	if out != want {
		t.Errorf("stdout = %q, want %q", out, want)
	}
}

func TestRun_RequiredAndExclude(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"index.md":             "---\nid: root\n---\n[g](_generated/x.md)\n",
		"_generated/x.md":      "garbage",
		"_generated/deep/y.md": "garbage",
	})

	code, out, _ := runCLI(t, "--root", root, "--required", "id")
	if code != report.ExitFindings || !strings.Contains(out, "- graph/_generated/x.md: missing_frontmatter\n") {
		t.Fatalf("without exclude: exit = %d, stdout = %q", code, out)
	}

	// Excluded files are never scanned; the link into them still resolves.
	code, out, _ = runCLI(t, "--root", root, "--required", "id", "--exclude", "**/_generated/**", "--exclude", "_generated/*")
	want := "OK: 1 markdown files under " + graph.Canonical(root) + "\n"
	if code != report.ExitOK || out != want {
		t.Errorf("with exclude: exit = %d, stdout = %q, want %q", code, out, want)
	}

	code, out, _ = runCLI(t, "--root", root, "--required", "id,owner", "--exclude", "_generated/*")
	if code != report.ExitFindings || out != "Frontmatter issues:\n- graph/index.md: missing_owner\n" {
		t.Errorf("exit = %d, stdout = %q", code, out)
	}
}

func TestRun_ExcludeKeepsCommas(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"index.md":  testutil.Doc("root", ""),
		"a,b/x.md":  testutil.Doc("x", ""),
		"b/keep.md": testutil.Doc("keep", ""),
	})

	code, out, _ := runCLI(t, "--root", root, "--exclude", "a,b/*", "--no-check-orphans")
	want := "OK: 2 markdown files under " + graph.Canonical(root) + "\n"
	if code != report.ExitOK || out != want {
		t.Errorf("exit = %d, stdout = %q, want %q", code, out, want)
	}
}

func TestRun_RootNotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	code, out, errOut := runCLI(t, "--root", missing)
	if code != report.ExitRootNotFound {
		t.Errorf("exit = %d, want 2", code)
	}
	if out != "" {
		t.Errorf("stdout = %q, want empty", out)
	}
	if !strings.HasPrefix(errOut, "ERROR: root not found: ") || !strings.Contains(errOut, "nope") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestRun_Idempotent(t *testing.T) {
	root := testutil.WriteTree(t, cleanGraph)
	code1, out1, _ := runCLI(t, "--root", root)
	code2, out2, _ := runCLI(t, "--root", root, "--workers", "1")
	if code1 != code2 || out1 != out2 {
		t.Errorf("runs differ:\n%q (%d)\n%q (%d)", out1, code1, out2, code2)
	}
	if code1 != report.ExitOK {
		t.Errorf("exit = %d, stdout = %q", code1, out1)
	}
}

func TestRun_JSON(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"index.md": testutil.Doc("root", ""),
		"b.md":     testutil.Doc("b", ""),
	})
	code, out, _ := runCLI(t, "--root", root, "--format", "json")
	if code != report.ExitFindings {
		t.Fatalf("exit = %d", code)
	}
	var got report.Summary
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.OK || got.Files != 2 || len(got.Findings) != 1 || got.Findings[0].Code != "orphan_node" {
		t.Errorf("summary = %+v", got)
	}
}

func TestRun_ConfigFile(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"index.md": testutil.Doc("root", ""),
		"b.md":     testutil.Doc("b", ""),
	})
	cfgPath := filepath.Join(t.TempDir(), "graphlint.yaml")
	content := "lint:\n  root: " + root + "\n  check_orphans: false\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	code, out, _ := runCLI(t, "--config", cfgPath)
	if code != report.ExitOK {
		t.Errorf("exit = %d, stdout = %q", code, out)
	}

	// Flags override the file.
	code, _, _ = runCLI(t, "--config", cfgPath, "--check-orphans")
	if code != report.ExitFindings {
		t.Errorf("exit = %d, want 1 with orphans re-enabled", code)
	}

	code, _, errOut := runCLI(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if code != report.ExitUsage || !strings.Contains(errOut, "failed to parse config") {
		t.Errorf("missing explicit config: exit = %d, stderr = %q", code, errOut)
	}
}

func TestRun_InvalidFlags(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"index.md": testutil.Doc("root", "")})
	if code, _, _ := runCLI(t, "--root", root, "--format", "xml"); code != report.ExitUsage {
		t.Errorf("bad format exit = %d", code)
	}
	if code, _, _ := runCLI(t, "--root", root, "--log-level", "loud"); code != report.ExitUsage {
		t.Errorf("bad log level exit = %d", code)
	}
}

func TestRun_IndexAndBacklinks(t *testing.T) {
	root := testutil.WriteTree(t, cleanGraph)
	dbPath := filepath.Join(t.TempDir(), "graph.db")

	if code, out, _ := runCLI(t, "--root", root, "--index-db", dbPath); code != report.ExitOK {
		t.Fatalf("lint exit = %d, stdout = %q", code, out)
	}

	code, out, errOut := runCLI(t, "--root", root, "--index-db", dbPath, "backlinks", "a.md")
	if code != report.ExitOK {
		t.Fatalf("backlinks exit = %d, stderr = %q", code, errOut)
	}
	want := "graph/concepts/b.md\ngraph/concepts/notes.MD\ngraph/index.md\n"
	if out != want {
		t.Errorf("backlinks = %q, want %q", out, want)
	}

	if code, out, _ := runCLI(t, "--root", root, "--index-db", dbPath, "backlinks", "index.md"); code != report.ExitFindings || out != "" {
		t.Errorf("unlinked: exit = %d, stdout = %q", code, out)
	}

	code, _, errOut = runCLI(t, "--root", root, "backlinks", "a.md")
	if code != report.ExitUsage || !strings.Contains(errOut, "index not configured") {
		t.Errorf("no index: exit = %d, stderr = %q", code, errOut)
	}
}

type brokenPipe struct{}

func (brokenPipe) Write([]byte) (int, error) { return 0, errors.New("write: broken pipe") }

func TestRun_ClosedOutput(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"index.md": testutil.Doc("root", "")})
	var stderr bytes.Buffer
	code := run(context.Background(), []string{"graphlint", "--root", root}, brokenPipe{}, &stderr)
	if code != report.ExitFindings {
		t.Errorf("exit = %d, want 1", code)
	}
	if stderr.Len() != 0 {
		t.Errorf("stderr = %q, want silent", stderr.String())
	}
}
