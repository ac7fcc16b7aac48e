package tree

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudtree/cloudtree/internal/rclone"
)

// fakeLister serves canned listings and counts calls per path.
type fakeLister struct {
	entries map[string][]rclone.Entry
	errs    map[string]error
	calls   map[string]int
}

func newFakeLister() *fakeLister {
	return &fakeLister{
		entries: make(map[string][]rclone.Entry),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeLister) ListDir(_ context.Context, remotePath string) ([]rclone.Entry, error) {
	f.calls[remotePath]++
	if err := f.errs[remotePath]; err != nil {
		return nil, err
	}
	return append([]rclone.Entry(nil), f.entries[remotePath]...), nil
}

func dir(name string) rclone.Entry  { return rclone.Entry{Name: name, Path: name, IsDir: true} }
func file(name string) rclone.Entry { return rclone.Entry{Name: name, Path: name, Size: 1} }

func TestExpandSortsFoldersFirstCaseInsensitive(t *testing.T) {
	f := newFakeLister()
	f.entries["gdrive:"] = []rclone.Entry{
		file("zeta.txt"), dir("beta"), file("Alpha.txt"), dir("Alpha"),
	}
	m := New(f)
	m.SetRemote("gdrive")

	children, err := m.Expand(context.Background(), m.Root())
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	var names []string
	for _, id := range children {
		n, _ := m.Node(id)
		names = append(names, n.Entry.Name)
	}
	want := []string{"Alpha", "beta", "Alpha.txt", "zeta.txt"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}
}

func TestExpandCachesListings(t *testing.T) {
	f := newFakeLister()
	f.entries["gdrive:"] = []rclone.Entry{dir("docs")}
	m := New(f)
	m.SetRemote("gdrive")

	root := m.Root()
	if _, err := m.Expand(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	m.Collapse(root)
	if _, err := m.Expand(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	if got := f.calls["gdrive:"]; got != 1 {
		t.Errorf("list calls = %d, want 1", got)
	}
}

func TestExpandFailureLeavesTreeIntact(t *testing.T) {
	f := newFakeLister()
	f.entries["gdrive:"] = []rclone.Entry{dir("good"), dir("bad")}
	f.entries["gdrive:good"] = []rclone.Entry{file("a.txt")}
	f.errs["gdrive:bad"] = &rclone.ListError{Path: "gdrive:bad", Err: errors.New("permission denied")}
	m := New(f)
	m.SetRemote("gdrive")

	kids, err := m.Expand(context.Background(), m.Root())
	if err != nil {
		t.Fatal(err)
	}
	goodID, badID := kids[0], kids[1]
	if _, err := m.Expand(context.Background(), goodID); err != nil {
		t.Fatal(err)
	}

	before := m.Len()
	_, err = m.Expand(context.Background(), badID)
	var le *rclone.ListError
	if !errors.As(err, &le) {
		t.Fatalf("expected ListError, got %v", err)
	}
	if m.Len() != before {
		t.Errorf("arena grew from %d to %d on failed expand", before, m.Len())
	}
	good, _ := m.Node(goodID)
	if !good.Loaded || len(good.Children) != 1 {
		t.Errorf("sibling lost its children after failed expand: %+v", good)
	}
	bad, _ := m.Node(badID)
	if bad.Loaded || bad.Expanded {
		t.Errorf("failed node should stay unloaded: %+v", bad)
	}
}

func TestSetRemoteResetsArenaAndCache(t *testing.T) {
	f := newFakeLister()
	f.entries["gdrive:"] = []rclone.Entry{dir("docs")}
	f.entries["s3:"] = []rclone.Entry{dir("bucket")}
	m := New(f)
	m.SetRemote("gdrive")
	if _, err := m.Expand(context.Background(), m.Root()); err != nil {
		t.Fatal(err)
	}

	m.SetRemote("s3")
	if m.Len() != 1 {
		t.Errorf("arena len = %d after remote switch, want 1", m.Len())
	}
	kids, err := m.Expand(context.Background(), m.Root())
	if err != nil {
		t.Fatal(err)
	}
	n, _ := m.Node(kids[0])
	if n.Entry.Name != "bucket" {
		t.Errorf("child = %q, want bucket", n.Entry.Name)
	}
	if f.calls["s3:"] != 1 {
		t.Errorf("expected fresh listing for new remote")
	}
}

// blockingLister parks ListDir until released so a remote switch can
// land while a listing is in flight.
type blockingLister struct {
	*fakeLister
	entered chan string
	release chan struct{}
}

func (b *blockingLister) ListDir(ctx context.Context, remotePath string) ([]rclone.Entry, error) {
	b.entered <- remotePath
	<-b.release
	return b.fakeLister.ListDir(ctx, remotePath)
}

func TestSetRemoteDuringExpandDiscardsStaleListing(t *testing.T) {
	f := newFakeLister()
	f.entries["a:"] = []rclone.Entry{dir("d1"), dir("d2")}
	f.entries["a:d2"] = []rclone.Entry{file("old.txt")}
	f.entries["b:"] = []rclone.Entry{dir("fresh")}
	bl := &blockingLister{
		fakeLister: f,
		entered:    make(chan string),
		release:    make(chan struct{}),
	}
	m := New(bl)
	m.SetRemote("a")

	kids, err := func() ([]NodeID, error) {
		go func() { <-bl.entered; close(bl.release) }()
		return m.Expand(context.Background(), m.Root())
	}()
	if err != nil {
		t.Fatal(err)
	}

	// Expand a:d2 in the background and switch remotes while its
	// listing is still held open.
	bl.release = make(chan struct{})
	done := make(chan struct{})
	var staleKids []NodeID
	var staleErr error
	go func() {
		defer close(done)
		staleKids, staleErr = m.Expand(context.Background(), kids[1])
	}()
	<-bl.entered
	m.SetRemote("b")
	close(bl.release)
	<-done

	if staleErr != nil {
		t.Fatalf("stale expand: %v", staleErr)
	}
	if staleKids != nil {
		t.Errorf("stale expand returned children %v, want nil", staleKids)
	}
	if m.Len() != 1 {
		t.Errorf("arena len = %d after switch, want the new root only", m.Len())
	}

	// The new remote must list fresh, not read a cache entry written
	// by the superseded expand.
	bl.release = make(chan struct{})
	go func() { <-bl.entered; close(bl.release) }()
	newKids, err := m.Expand(context.Background(), m.Root())
	if err != nil {
		t.Fatal(err)
	}
	n, _ := m.Node(newKids[0])
	if n.Entry.Name != "fresh" {
		t.Errorf("child = %q, want fresh", n.Entry.Name)
	}
	if f.calls["b:"] != 1 {
		t.Errorf("calls[b:] = %d, want 1", f.calls["b:"])
	}
}

func TestRefreshForcesRelist(t *testing.T) {
	f := newFakeLister()
	f.entries["gdrive:"] = []rclone.Entry{dir("docs")}
	m := New(f)
	m.SetRemote("gdrive")

	root := m.Root()
	if _, err := m.Expand(context.Background(), root); err != nil {
		t.Fatal(err)
	}
	m.Refresh(root)

	f.entries["gdrive:"] = []rclone.Entry{dir("docs"), dir("new")}
	kids, err := m.Expand(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if len(kids) != 2 {
		t.Errorf("got %d children after refresh, want 2", len(kids))
	}
	if f.calls["gdrive:"] != 2 {
		t.Errorf("list calls = %d, want 2", f.calls["gdrive:"])
	}
}

func TestExpandFileIsNoOp(t *testing.T) {
	f := newFakeLister()
	f.entries["gdrive:"] = []rclone.Entry{file("a.txt")}
	m := New(f)
	m.SetRemote("gdrive")
	kids, _ := m.Expand(context.Background(), m.Root())

	out, err := m.Expand(context.Background(), kids[0])
	if err != nil || out != nil {
		t.Errorf("expanding a file: got %v, %v; want nil, nil", out, err)
	}
	if f.calls["gdrive:a.txt"] != 0 {
		t.Error("file expand must not list")
	}
}

func TestFlattenFollowsExpansion(t *testing.T) {
	f := newFakeLister()
	f.entries["gdrive:"] = []rclone.Entry{dir("a"), dir("b")}
	f.entries["gdrive:a"] = []rclone.Entry{dir("inner")}
	m := New(f)
	m.SetRemote("gdrive")

	rootKids, _ := m.Expand(context.Background(), m.Root())
	if _, err := m.Expand(context.Background(), rootKids[0]); err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, id := range m.Flatten() {
		n, _ := m.Node(id)
		names = append(names, n.Entry.Name)
	}
	want := []string{"gdrive", "a", "inner", "b"}
	if len(names) != len(want) {
		t.Fatalf("flatten = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("flatten = %v, want %v", names, want)
		}
	}

	m.Collapse(rootKids[0])
	if got := len(m.Flatten()); got != 3 {
		t.Errorf("flatten after collapse = %d nodes, want 3", got)
	}

	// RemotePath uses the slash-joined node path.
	inner := rootKids[0]
	if got := m.RemotePath(inner); got != "gdrive:a" {
		t.Errorf("RemotePath = %q, want gdrive:a", got)
	}
}
