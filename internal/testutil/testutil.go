// Package testutil provides shared test helpers for building document trees
// and index databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/graphlint/internal/index"
)

// WriteTree materialises files (slash-separated relative path to content)
// under a fresh "graph" directory and returns its path.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "graph")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// Doc returns a document with complete frontmatter followed by body.
func Doc(id, body string) string {
	return "---\nid: " + id + "\ntype: note\ntitle: \"" + id + "\"\nstatus: active\n---\n" + body
}

// TestDB creates a temporary index database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "graphlint-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
