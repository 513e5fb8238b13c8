// Package refgraph implements the bidirectional parent/child adjacency over
// project identifiers. All operations are concurrency-safe, using the same
// mutex-guarded adjacency map style as the rest of this codebase's graph
// types.
package refgraph

import (
	"sync"

	"github.com/vk/pbuild/internal/pathid"
)

// Map is a bidirectional parent<->child adjacency over project identifiers.
// The zero value is not usable; construct with New.
type Map struct {
	mu       sync.RWMutex
	childOf  map[string]map[string]pathid.ID // child -> set of parents
	parentOf map[string]map[string]pathid.ID // parent -> set of children
}

// New returns an empty reference map.
func New() *Map {
	return &Map{
		childOf:  make(map[string]map[string]pathid.ID),
		parentOf: make(map[string]map[string]pathid.ID),
	}
}

// AddReference records that child references parent (parent must build
// before child). Idempotent: adding the same pair twice is a no-op after
// the first call. Both ids must already be canonical; refgraph does not
// canonicalize on the caller's behalf.
func (m *Map) AddReference(child, parent pathid.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, p := child.String(), parent.String()

	if m.childOf[c] == nil {
		m.childOf[c] = make(map[string]pathid.ID)
	}
	m.childOf[c][p] = parent

	if m.parentOf[p] == nil {
		m.parentOf[p] = make(map[string]pathid.ID)
	}
	m.parentOf[p][c] = child

	// Record both endpoints as keys of both maps, even with no edges in that
	// direction yet. ParentsOf/ChildrenOf still return nil for such a
	// project, the same as for a project the map has never seen.
	if _, ok := m.childOf[p]; !ok {
		m.childOf[p] = make(map[string]pathid.ID)
	}
	if _, ok := m.parentOf[c]; !ok {
		m.parentOf[c] = make(map[string]pathid.ID)
	}
}

// ParentsOf returns the set of projects that child directly references.
func (m *Map) ParentsOf(child pathid.ID) []pathid.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.childOf[child.String()])
}

// ChildrenOf returns the set of projects that directly reference parent.
func (m *Map) ChildrenOf(parent pathid.ID) []pathid.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return values(m.parentOf[parent.String()])
}

func values(set map[string]pathid.ID) []pathid.ID {
	if len(set) == 0 {
		return nil
	}
	out := make([]pathid.ID, 0, len(set))
	for _, id := range set {
		out = append(out, id)
	}
	return out
}
