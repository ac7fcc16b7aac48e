// Package tree maintains the lazily loaded folder hierarchy of one
// remote. Nodes live in an index-linked arena so the structure holds
// no pointer cycles and flattens cheaply for display.
package tree

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cloudtree/cloudtree/internal/rclone"
)

// Lister is the subset of the rclone client the tree needs.
type Lister interface {
	ListDir(ctx context.Context, remotePath string) ([]rclone.Entry, error)
}

// NodeID indexes a node in the arena.
type NodeID int

// InvalidNode is returned by lookups that found nothing.
const InvalidNode NodeID = -1

// Node is one row of the hierarchy. Children is populated on first
// expand; Loaded distinguishes "no children" from "not listed yet".
type Node struct {
	Entry    rclone.Entry
	Path     string // slash-joined path under the remote, "" for root
	Parent   NodeID
	Children []NodeID
	Depth    int
	Loaded   bool
	Expanded bool
}

// Model owns the arena and a per-path listing cache. Both are scoped
// to the selected remote; switching remotes discards them.
type Model struct {
	mu     sync.Mutex
	lister Lister
	remote string
	gen    int // bumped by SetRemote; stale expands check it
	nodes  []Node
	cache  map[string][]rclone.Entry
}

// New creates an empty model with no remote selected.
func New(lister Lister) *Model {
	return &Model{lister: lister, cache: make(map[string][]rclone.Entry)}
}

// SetRemote selects a remote and resets the arena and cache to a
// single unloaded root node.
func (m *Model) SetRemote(remote string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remote = remote
	m.gen++
	m.cache = make(map[string][]rclone.Entry)
	m.nodes = []Node{{
		Entry:  rclone.Entry{Name: remote, IsDir: true},
		Path:   "",
		Parent: InvalidNode,
	}}
}

// Remote returns the selected remote, "" when none is set.
func (m *Model) Remote() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remote
}

// Root returns the root node id, or InvalidNode before SetRemote.
func (m *Model) Root() NodeID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.nodes) == 0 {
		return InvalidNode
	}
	return 0
}

// Len returns the number of nodes in the arena.
func (m *Model) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.nodes)
}

// Node returns a copy of the node at id.
func (m *Model) Node(id NodeID) (Node, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid(id) {
		return Node{}, false
	}
	return m.nodes[id], true
}

// RemotePath returns the rclone-addressable path of a node, e.g.
// "gdrive:photos/2024".
func (m *Model) RemotePath(id NodeID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid(id) {
		return ""
	}
	return m.remote + ":" + m.nodes[id].Path
}

// Expand lists a folder's children on first use and marks the node
// expanded. Listings are cached per path, so re-expanding a collapsed
// node never reaches rclone again. A failed listing returns a
// ListError and leaves the node and its loaded siblings untouched.
// Expanding disjoint nodes from separate goroutines is safe.
func (m *Model) Expand(ctx context.Context, id NodeID) ([]NodeID, error) {
	m.mu.Lock()
	if !m.valid(id) || !m.nodes[id].Entry.IsDir {
		m.mu.Unlock()
		return nil, nil
	}
	if m.nodes[id].Loaded {
		m.nodes[id].Expanded = true
		children := append([]NodeID(nil), m.nodes[id].Children...)
		m.mu.Unlock()
		return children, nil
	}

	path := m.nodes[id].Path
	entries, cached := m.cache[path]
	remotePath := m.remote + ":" + path
	gen := m.gen
	m.mu.Unlock()

	if !cached {
		listed, err := m.lister.ListDir(ctx, remotePath)
		if err != nil {
			return nil, err
		}
		entries = listed
	}

	sortEntries(entries)

	m.mu.Lock()
	defer m.mu.Unlock()
	// A remote switch while the listing was in flight replaced the
	// arena and cache; the stale result must not touch either.
	if gen != m.gen || !m.valid(id) {
		return nil, nil
	}
	// A concurrent expand of the same node may have won the race.
	if m.nodes[id].Loaded {
		m.nodes[id].Expanded = true
		return append([]NodeID(nil), m.nodes[id].Children...), nil
	}
	m.cache[path] = entries

	children := make([]NodeID, 0, len(entries))
	for _, e := range entries {
		childPath := e.Name
		if path != "" {
			childPath = path + "/" + e.Name
		}
		m.nodes = append(m.nodes, Node{
			Entry:  e,
			Path:   childPath,
			Parent: id,
			Depth:  m.nodes[id].Depth + 1,
		})
		children = append(children, NodeID(len(m.nodes)-1))
	}
	m.nodes[id].Children = children
	m.nodes[id].Loaded = true
	m.nodes[id].Expanded = true
	return append([]NodeID(nil), children...), nil
}

// Refresh drops a folder's cached listing so the next Expand reaches
// rclone again. Former child nodes are detached and stay orphaned in
// the arena until the next remote switch.
func (m *Model) Refresh(id NodeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid(id) || !m.nodes[id].Entry.IsDir {
		return
	}
	delete(m.cache, m.nodes[id].Path)
	m.nodes[id].Children = nil
	m.nodes[id].Loaded = false
	m.nodes[id].Expanded = false
}

// Collapse hides a node's children without discarding them.
func (m *Model) Collapse(id NodeID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.valid(id) {
		m.nodes[id].Expanded = false
	}
}

// Flatten returns the ids of all visible nodes in display order: a
// depth-first walk that descends only into expanded folders.
func (m *Model) Flatten() []NodeID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.nodes) == 0 {
		return nil
	}
	var out []NodeID
	var walk func(id NodeID)
	walk = func(id NodeID) {
		out = append(out, id)
		if m.nodes[id].Expanded {
			for _, c := range m.nodes[id].Children {
				walk(c)
			}
		}
	}
	walk(0)
	return out
}

func (m *Model) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(m.nodes)
}

// sortEntries orders folders before files, then by case-insensitive
// name. Equal lowercase names keep rclone's emitted order.
func sortEntries(entries []rclone.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}
