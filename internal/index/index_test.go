package index

import (
	"io"
	"log/slog"
	"os"
	"reflect"
	"testing"

	"github.com/starford/graphlint/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "graphlint-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func document(path, id, checksum string, links ...string) models.Document {
	d := models.Document{
		Path:     path,
		Rel:      "graph" + path,
		Checksum: checksum,
		Metadata: &models.Metadata{ID: id, Title: "T " + id},
	}
	for _, l := range links {
		d.Links = append(d.Links, models.Link{Target: l[1:], Resolved: l})
	}
	return d
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"documents", "links", "findings"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndBacklinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(document("/a.md", "a", "1", "/b.md", "/a.md"))
	_ = db.UpsertDocument(document("/c.md", "c", "2", "/b.md"))
	_ = db.UpsertDocument(document("/b.md", "b", "3"))

	bl, err := db.Backlinks("/b.md")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if want := []string{"graph/a.md", "graph/c.md"}; !reflect.DeepEqual(bl, want) {
		t.Errorf("backlinks = %v, want %v", bl, want)
	}
	self, _ := db.Backlinks("/a.md")
	if len(self) != 0 {
		t.Errorf("self link counted as backlink: %v", self)
	}
}

func TestUpsertReplacesLinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(document("/up.md", "up", "1", "/x.md"))
	_ = db.UpsertDocument(document("/up.md", "up", "2", "/y.md"))

	cs, _ := db.AllChecksums()
	if cs["/up.md"] != "2" {
		t.Errorf("checksum = %q, want 2", cs["/up.md"])
	}
	if bl, _ := db.Backlinks("/x.md"); len(bl) != 0 {
		t.Error("old link should be removed on upsert")
	}
	if bl, _ := db.Backlinks("/y.md"); len(bl) != 1 {
		t.Error("new link should exist")
	}
}

func TestGraphOnlyKnownTargets(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(document("/a.md", "a", "1", "/b.md", "/missing.md"))
	_ = db.UpsertDocument(document("/b.md", "b", "2"))

	nodes, links, err := db.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("nodes = %+v", nodes)
	}
	if want := []GraphLink{{Source: "graph/a.md", Target: "graph/b.md"}}; !reflect.DeepEqual(links, want) {
		t.Errorf("links = %+v, want %+v", links, want)
	}
}

func TestDuplicateIDs(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(document("/a.md", "x-1", "1"))
	_ = db.UpsertDocument(document("/b.md", "x-1", "2"))
	_ = db.UpsertDocument(document("/c.md", "solo", "3"))
	_ = db.UpsertDocument(document("/d.md", "", "4"))
	_ = db.UpsertDocument(document("/e.md", "", "5"))

	dups, err := db.DuplicateIDs()
	if err != nil {
		t.Fatalf("DuplicateIDs: %v", err)
	}
	want := map[string][]string{"x-1": {"graph/a.md", "graph/b.md"}}
	if !reflect.DeepEqual(dups, want) {
		t.Errorf("dups = %v, want %v", dups, want)
	}
}

func TestSync_SkipsUnchangedAndRemovesStale(t *testing.T) {
	db := testDB(t)
	logger := quietLogger()

	first := []models.Document{document("/a.md", "a", "1", "/b.md"), document("/b.md", "b", "2")}
	findings := []models.Finding{{Path: "/a.md", Rel: "graph/a.md", Code: models.CodeOrphanNode}}
	if err := Sync(db, first, findings, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	// Same checksum with different links must not be rewritten.
	second := []models.Document{document("/a.md", "a", "1", "/other.md")}
	if err := Sync(db, second, nil, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if bl, _ := db.Backlinks("/b.md"); len(bl) != 1 {
		t.Errorf("unchanged document was re-indexed: backlinks(b) = %v", bl)
	}
	cs, _ := db.AllChecksums()
	if _, ok := cs["/b.md"]; ok {
		t.Error("stale document /b.md not removed")
	}
	if fs, _ := db.Findings(); len(fs) != 0 {
		t.Errorf("findings not replaced: %+v", fs)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(document("/del.md", "d", "x", "/target.md"))
	_ = db.ReplaceFindings([]models.Finding{{Path: "/del.md", Rel: "graph/del.md", Code: "orphan_node"}})

	if err := db.DeleteDocument("/del.md"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if bl, _ := db.Backlinks("/target.md"); len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %v", bl)
	}
	if fs, _ := db.Findings(); len(fs) != 0 {
		t.Errorf("findings remain after delete: %+v", fs)
	}
}

func TestDeleteDocument_ReportsFailure(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(document("/del.md", "d", "x"))
	if _, err := db.conn.Exec(`DROP TABLE findings`); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteDocument("/del.md"); err == nil {
		t.Fatal("expected error when a delete statement fails")
	}
	sums, err := db.AllChecksums()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sums["/del.md"]; !ok {
		t.Error("failed delete should roll back and keep the document")
	}
}
