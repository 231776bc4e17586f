package graphservice

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/graphlint/internal/apperr"
	"github.com/starford/graphlint/internal/lint"
	"github.com/starford/graphlint/internal/storage"
	"github.com/starford/graphlint/internal/testutil"
)

func testService(t *testing.T, withDB bool) (*Service, string) {
	t.Helper()
	root := testutil.WriteTree(t, map[string]string{
		"index.md":   testutil.Doc("root", "[a](notes/a.md) [b](notes/b.md)\n"),
		"notes/a.md": testutil.Doc("a", "[b](b.md)\n"),
		"notes/b.md": testutil.Doc("b", ""),
		"lonely.md":  testutil.Doc("lonely", ""),
	})
	store, err := storage.NewFS(root, storage.Options{})
	if err != nil {
		t.Fatal(err)
	}
	opts := lint.Options{
		Required:     []string{"id", "type", "title", "status"},
		CheckLinks:   true,
		CheckOrphans: true,
		RootIndex:    "index.md",
	}
	if withDB {
		return NewService(store, opts, testutil.TestDB(t), nil), root
	}
	return NewService(store, opts, nil, nil), root
}

func TestReport_CachesUntilRefresh(t *testing.T) {
	svc, _ := testService(t, false)
	ctx := context.Background()

	first, err := svc.Report(ctx)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	second, _ := svc.Report(ctx)
	if first != second {
		t.Error("Report should return the cached run")
	}
	third, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if third == first {
		t.Error("Refresh should produce a new report")
	}
	if len(third.Findings) != 1 || third.Findings[0].Code != "orphan_node" {
		t.Errorf("findings = %+v", third.Findings)
	}
}

func TestBacklinks_PathForms(t *testing.T) {
	svc, root := testService(t, false)
	ctx := context.Background()
	want := []string{filepath.Join("graph", "index.md"), filepath.Join("graph", "notes", "a.md")}

	for _, p := range []string{"notes/b.md", "graph/notes/b.md", filepath.Join(root, "notes", "b.md")} {
		got, err := svc.Backlinks(ctx, p)
		if err != nil {
			t.Fatalf("Backlinks(%q): %v", p, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Backlinks(%q) = %v, want %v", p, got, want)
		}
	}

	got, err := svc.Backlinks(ctx, "lonely.md")
	if err != nil || len(got) != 0 || got == nil {
		t.Errorf("Backlinks(lonely) = %v, %v; want empty non-nil", got, err)
	}

	if _, err := svc.Backlinks(ctx, "nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGraph(t *testing.T) {
	svc, _ := testService(t, true)
	nodes, edges, err := svc.Graph(context.Background())
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if len(nodes) != 4 {
		t.Errorf("nodes = %+v", nodes)
	}
	if len(edges) != 3 {
		t.Errorf("edges = %+v", edges)
	}
	for _, n := range nodes {
		if n.Path == filepath.Join("graph", "notes", "b.md") && n.Inbound != 2 {
			t.Errorf("b inbound = %d, want 2", n.Inbound)
		}
	}
}

// gatedStore blocks the first List call until gate is closed.
type gatedStore struct {
	storage.Provider
	calls   atomic.Int32
	entered chan struct{}
	gate    chan struct{}
}

func (s *gatedStore) List(ctx context.Context) ([]storage.Entry, error) {
	if s.calls.Add(1) == 1 {
		close(s.entered)
		<-s.gate
	}
	return s.Provider.List(ctx)
}

func TestRefresh_Serialised(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"index.md": testutil.Doc("root", "")})
	fs, err := storage.NewFS(root, storage.Options{})
	if err != nil {
		t.Fatal(err)
	}
	store := &gatedStore{Provider: fs, entered: make(chan struct{}), gate: make(chan struct{})}
	svc := NewService(store, lint.Options{CheckLinks: true}, testutil.TestDB(t), nil)
	ctx := context.Background()

	firstDone := make(chan *lint.Report, 1)
	go func() {
		rep, _ := svc.Refresh(ctx)
		firstDone <- rep
	}()
	<-store.entered

	secondDone := make(chan *lint.Report, 1)
	go func() {
		rep, _ := svc.Refresh(ctx)
		secondDone <- rep
	}()
	// Give the second pass time to overtake the first if it could.
	time.Sleep(50 * time.Millisecond)
	close(store.gate)

	first, second := <-firstDone, <-secondDone
	if first == nil || second == nil {
		t.Fatal("refresh failed")
	}
	cached, err := svc.Report(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cached != second {
		t.Error("cached report should come from the pass that started last")
	}
}
