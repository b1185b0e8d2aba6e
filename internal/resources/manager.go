// Package resources provides fixed-size shared resource pools with atomic
// multi-resource allocation. All reads and writes go through Manager; the
// pools themselves are never exposed.
package resources

import (
	"fmt"
	"sync"
)

// Pool is one named resource pool.
// Invariant: Used + Allocated <= Total at every observable instant.
type Pool struct {
	Name      string
	Total     float64
	Used      float64 // organic background load
	Allocated float64 // reserved by agents
}

// Usage is the read-only view of one pool returned by Usage().
type Usage struct {
	Total       float64 `json:"total"`
	Used        float64 `json:"used"`
	Allocated   float64 `json:"allocated"`
	Available   float64 `json:"available"`
	Utilization float64 `json:"utilization"`
}

// Manager owns the pools and the per-entity allocation ledger.
type Manager struct {
	mu          sync.Mutex
	pools       map[string]*Pool
	allocations map[string]map[string]float64 // entity id → resource → amount
}

// NewManager creates a manager over the given pool capacities.
func NewManager(totals map[string]float64) *Manager {
	pools := make(map[string]*Pool, len(totals))
	for name, total := range totals {
		pools[name] = &Pool{Name: name, Total: total}
	}
	return &Manager{
		pools:       pools,
		allocations: make(map[string]map[string]float64),
	}
}

// Request atomically reserves all wanted amounts for an entity.
// Either every requested pool has capacity and every amount is committed,
// or nothing changes and an error names the first insufficient pool.
func (m *Manager) Request(entityID string, wanted map[string]float64) error {
	if len(wanted) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Verify every pool before committing anything.
	for name, amount := range wanted {
		if amount < 0 {
			return fmt.Errorf("negative request for %s", name)
		}
		p, ok := m.pools[name]
		if !ok {
			return fmt.Errorf("unknown resource %s", name)
		}
		if p.Total-p.Used-p.Allocated < amount {
			return fmt.Errorf("insufficient %s: want %.2f, available %.2f",
				name, amount, p.Total-p.Used-p.Allocated)
		}
	}

	held := m.allocations[entityID]
	if held == nil {
		held = make(map[string]float64)
		m.allocations[entityID] = held
	}
	for name, amount := range wanted {
		m.pools[name].Allocated += amount
		held[name] += amount
	}
	return nil
}

// Release returns previously reserved amounts to the pools. Amounts beyond
// what the entity actually holds are clamped; zeroed entries are removed.
func (m *Manager) Release(entityID string, amounts map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked(entityID, amounts)
}

// ReleaseAll returns everything an entity holds, e.g. on removal.
func (m *Manager) ReleaseAll(entityID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	held := m.allocations[entityID]
	if held == nil {
		return
	}
	all := make(map[string]float64, len(held))
	for name, amount := range held {
		all[name] = amount
	}
	m.releaseLocked(entityID, all)
}

func (m *Manager) releaseLocked(entityID string, amounts map[string]float64) {
	held := m.allocations[entityID]
	if held == nil {
		return
	}

	for name, amount := range amounts {
		current, ok := held[name]
		if !ok {
			continue
		}
		if amount > current {
			amount = current
		}
		if amount <= 0 {
			continue
		}
		if p, ok := m.pools[name]; ok {
			p.Allocated -= amount
			if p.Allocated < 0 {
				p.Allocated = 0
			}
		}
		held[name] = current - amount
		if held[name] <= 0 {
			delete(held, name)
		}
	}
	if len(held) == 0 {
		delete(m.allocations, entityID)
	}
}

// AllocationsOf returns a copy of an entity's current holdings.
func (m *Manager) AllocationsOf(entityID string) map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	held := m.allocations[entityID]
	out := make(map[string]float64, len(held))
	for name, amount := range held {
		out[name] = amount
	}
	return out
}

// Usage returns a snapshot of every pool. This is the only observation path.
func (m *Manager) Usage() map[string]Usage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Usage, len(m.pools))
	for name, p := range m.pools {
		u := Usage{
			Total:     p.Total,
			Used:      p.Used,
			Allocated: p.Allocated,
			Available: p.Total - p.Used,
		}
		if p.Total > 0 {
			u.Utilization = (p.Used + p.Allocated) / p.Total
		}
		out[name] = u
	}
	return out
}

// Drift shifts a pool's organic Used load by delta, clamped so that
// Used stays non-negative and Used + Allocated never exceeds Total.
func (m *Manager) Drift(name string, delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pools[name]
	if !ok {
		return
	}
	used := p.Used + delta
	if used < 0 {
		used = 0
	}
	if max := p.Total - p.Allocated; used > max {
		used = max
	}
	p.Used = used
}

// Names returns the pool names, for callers that iterate deterministically.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.pools))
	for name := range m.pools {
		out = append(out, name)
	}
	return out
}
