package spatial

import (
	"fmt"
	"sort"
	"sync"
)

// Model tracks entity placement and an explicit adjacency graph.
// Placement drives distance queries; adjacency drives topology-aware
// operations like broadcast. The two are independent.
type Model struct {
	mu        sync.RWMutex
	locations map[string]Location
	adjacency map[string]map[string]struct{}
}

// NewModel creates an empty spatial model.
func NewModel() *Model {
	return &Model{
		locations: make(map[string]Location),
		adjacency: make(map[string]map[string]struct{}),
	}
}

// Place records or replaces an entity's location.
func (m *Model) Place(id string, loc Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[id] = loc
}

// Remove drops an entity's location and all its adjacency edges.
func (m *Model) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.locations, id)
	for peer := range m.adjacency[id] {
		delete(m.adjacency[peer], id)
	}
	delete(m.adjacency, id)
}

// LocationOf returns an entity's current location.
func (m *Model) LocationOf(id string) (Location, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.locations[id]
	return loc, ok
}

// DistanceBetween computes the distance between two placed entities.
func (m *Model) DistanceBetween(a, b string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	locA, ok := m.locations[a]
	if !ok {
		return 0, fmt.Errorf("entity %s not placed", a)
	}
	locB, ok := m.locations[b]
	if !ok {
		return 0, fmt.Errorf("entity %s not placed", b)
	}
	return Distance(locA, locB), nil
}

// Neighbors returns the ids of all other placed entities within radius of
// the given entity, sorted for deterministic iteration.
func (m *Model) Neighbors(id string, radius float64) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	origin, ok := m.locations[id]
	if !ok {
		return nil
	}

	var out []string
	for other, loc := range m.locations {
		if other == id {
			continue
		}
		if Distance(origin, loc) <= radius {
			out = append(out, other)
		}
	}
	sort.Strings(out)
	return out
}

// Connect adds an undirected adjacency edge between two entities.
func (m *Model) Connect(a, b string) {
	if a == b {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.adjacency[a] == nil {
		m.adjacency[a] = make(map[string]struct{})
	}
	if m.adjacency[b] == nil {
		m.adjacency[b] = make(map[string]struct{})
	}
	m.adjacency[a][b] = struct{}{}
	m.adjacency[b][a] = struct{}{}
}

// ConnectedTo returns the ids adjacent to an entity, sorted.
func (m *Model) ConnectedTo(id string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	peers := m.adjacency[id]
	if len(peers) == 0 {
		return nil
	}
	out := make([]string, 0, len(peers))
	for p := range peers {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
