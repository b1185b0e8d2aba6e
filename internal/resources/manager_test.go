package resources

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return NewManager(map[string]float64{"cpu": 100, "memory": 100})
}

func requireInvariant(t *testing.T, m *Manager) {
	t.Helper()
	for name, u := range m.Usage() {
		require.LessOrEqual(t, u.Used+u.Allocated, u.Total+1e-9,
			"pool %s violated used+allocated<=total", name)
	}
}

func TestRequestAllOrNothing(t *testing.T) {
	m := newTestManager()

	// memory is insufficient, so cpu must not be touched either.
	err := m.Request("a1", map[string]float64{"cpu": 10, "memory": 500})
	require.Error(t, err)

	usage := m.Usage()
	require.Zero(t, usage["cpu"].Allocated)
	require.Zero(t, usage["memory"].Allocated)
	require.Empty(t, m.AllocationsOf("a1"))
}

func TestRequestCommitsAll(t *testing.T) {
	m := newTestManager()

	require.NoError(t, m.Request("a1", map[string]float64{"cpu": 30, "memory": 20}))

	usage := m.Usage()
	require.Equal(t, 30.0, usage["cpu"].Allocated)
	require.Equal(t, 20.0, usage["memory"].Allocated)
	require.Equal(t, map[string]float64{"cpu": 30, "memory": 20}, m.AllocationsOf("a1"))
	requireInvariant(t, m)
}

func TestRequestUnknownResource(t *testing.T) {
	m := newTestManager()
	require.Error(t, m.Request("a1", map[string]float64{"gpu": 1}))
	require.Error(t, m.Request("a1", map[string]float64{"cpu": -5}))
}

func TestReleaseClampsAtZero(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.Request("a1", map[string]float64{"cpu": 10}))

	// Releasing far more than held must clamp, never go negative.
	m.Release("a1", map[string]float64{"cpu": 9999, "memory": 50})

	usage := m.Usage()
	require.Zero(t, usage["cpu"].Allocated)
	require.Zero(t, usage["memory"].Allocated)
	require.Empty(t, m.AllocationsOf("a1"))
	requireInvariant(t, m)
}

func TestReleaseAllOnRemoval(t *testing.T) {
	m := newTestManager()
	require.NoError(t, m.Request("a1", map[string]float64{"cpu": 25, "memory": 40}))

	m.ReleaseAll("a1")

	usage := m.Usage()
	require.Zero(t, usage["cpu"].Allocated)
	require.Zero(t, usage["memory"].Allocated)
}

// Two concurrent requests for 60 cpu against 80 available: exactly one
// must win, and the final allocation must be 60, never 120.
func TestConcurrentRequestsNeverOvercommit(t *testing.T) {
	m := NewManager(map[string]float64{"cpu": 100})
	m.Drift("cpu", 20) // used=20, available=80

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = m.Request("agent", map[string]float64{"cpu": 60})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	require.Equal(t, 1, succeeded, "exactly one of two competing requests may win")
	require.Equal(t, 60.0, m.Usage()["cpu"].Allocated)
	requireInvariant(t, m)
}

func TestDriftRespectsAllocations(t *testing.T) {
	m := NewManager(map[string]float64{"cpu": 100})
	require.NoError(t, m.Request("a1", map[string]float64{"cpu": 70}))

	// Drift may not push used past what allocation leaves behind.
	m.Drift("cpu", 500)
	u := m.Usage()["cpu"]
	require.Equal(t, 30.0, u.Used)
	requireInvariant(t, m)

	m.Drift("cpu", -500)
	require.Zero(t, m.Usage()["cpu"].Used)
}

func TestUtilizationDerivation(t *testing.T) {
	m := NewManager(map[string]float64{"cpu": 200})
	m.Drift("cpu", 50)
	require.NoError(t, m.Request("a1", map[string]float64{"cpu": 50}))

	u := m.Usage()["cpu"]
	require.Equal(t, 150.0, u.Available) // total - used
	require.InDelta(t, 0.5, u.Utilization, 1e-9)
}
