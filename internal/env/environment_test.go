package env

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/swarmsim/internal/spatial"
	"github.com/talgya/swarmsim/internal/types"
)

func testEnv(t *testing.T) *Environment {
	t.Helper()
	return New(Options{Seed: 7})
}

func loc(host, process, namespace string) spatial.Location {
	return spatial.Location{Host: host, Process: process, Namespace: namespace}
}

func TestAddRemoveAgent(t *testing.T) {
	e := testEnv(t)

	require.NoError(t, e.AddAgent("a1", loc("h1", "p1", "/work"), types.VisibilityFull))
	require.True(t, e.Present("a1"))

	err := e.AddAgent("a1", loc("h1", "p1", "/work"), types.VisibilityFull)
	require.Error(t, err, "duplicate id must be rejected")

	err = e.AddAgent("a2", loc("h1", "p1", "/work"), "sideways")
	require.Error(t, err, "unknown visibility level must be rejected")

	require.NoError(t, e.RemoveAgent("a1"))
	require.False(t, e.Present("a1"))
	require.Error(t, e.RemoveAgent("a1"))
}

func TestRemoveReleasesAllocations(t *testing.T) {
	e := testEnv(t)
	require.NoError(t, e.AddAgent("a1", loc("h1", "p1", "/work"), types.VisibilityFull))

	res := e.ExecuteAction("a1", types.Action{
		Type:    "allocate_resource",
		Content: map[string]any{"resources": map[string]any{"compute": 30.0, "memory": 10.0}},
	})
	require.True(t, res.Success, res.Reason)
	require.InDelta(t, 30.0, e.Resources.Usage()["compute"].Allocated, 1e-9)

	require.NoError(t, e.RemoveAgent("a1"))
	require.InDelta(t, 0.0, e.Resources.Usage()["compute"].Allocated, 1e-9)
	require.InDelta(t, 0.0, e.Resources.Usage()["memory"].Allocated, 1e-9)
}

func TestPerceiveFiltersByVisibility(t *testing.T) {
	e := testEnv(t)
	require.NoError(t, e.AddAgent("observer", loc("h1", "p1", "/work/a"), types.VisibilityHost))
	require.NoError(t, e.AddAgent("same-host", loc("h1", "p2", "/work/b"), types.VisibilityFull))
	require.NoError(t, e.AddAgent("other-host", loc("h2", "p1", "/work/a"), types.VisibilityFull))

	p, err := e.Perceive("observer")
	require.NoError(t, err)
	require.Equal(t, "observer", p.Self.ID)
	require.True(t, p.Sees("same-host"))
	require.False(t, p.Sees("other-host"))

	// Resource and dynamics context always comes through.
	require.NotEmpty(t, p.Resources)
	require.NotEmpty(t, p.Dynamics)

	_, err = e.Perceive("nobody")
	require.Error(t, err)
}

func TestPerceptionDoesNotAliasState(t *testing.T) {
	e := testEnv(t)
	require.NoError(t, e.AddAgent("a1", loc("h1", "p1", "/work"), types.VisibilityFull))

	res := e.ExecuteAction("a1", types.Action{
		Type:    "allocate_resource",
		Content: map[string]any{"resources": map[string]any{"compute": 10.0}},
	})
	require.True(t, res.Success, res.Reason)

	p, err := e.Perceive("a1")
	require.NoError(t, err)
	p.Self.Allocations["compute"] = 9999

	q, err := e.Perceive("a1")
	require.NoError(t, err)
	require.InDelta(t, 10.0, q.Self.Allocations["compute"], 1e-9)
}

func TestUnsupportedActionFails(t *testing.T) {
	e := testEnv(t)
	require.NoError(t, e.AddAgent("a1", loc("h1", "p1", "/work"), types.VisibilityFull))

	res := e.ExecuteAction("a1", types.Action{Type: "levitate"})
	require.False(t, res.Success)
	require.Contains(t, res.Reason, "unsupported")

	res = e.ExecuteAction("ghost", types.Action{Type: "move"})
	require.False(t, res.Success)
	require.Equal(t, "entity not present", res.Reason)
}

func TestConstraintBlocksWithoutMutation(t *testing.T) {
	e := testEnv(t)
	require.NoError(t, e.AddAgent("a1", loc("h1", "p1", "/work"), types.VisibilityFull))

	// 60 of a 100 pool trips the single-allocation ceiling.
	res := e.ExecuteAction("a1", types.Action{
		Type:    "allocate_resource",
		Content: map[string]any{"resources": map[string]any{"compute": 60.0}},
	})
	require.False(t, res.Success)
	require.Equal(t, "constraint violation", res.Reason)
	require.NotEmpty(t, res.Violations)
	require.InDelta(t, 0.0, e.Resources.Usage()["compute"].Allocated, 1e-9)
}

func TestAllocateAndRelease(t *testing.T) {
	e := testEnv(t)
	require.NoError(t, e.AddAgent("a1", loc("h1", "p1", "/work"), types.VisibilityFull))

	res := e.ExecuteAction("a1", types.Action{
		Type:    "allocate_resource",
		Content: map[string]any{"resources": map[string]any{"compute": 20.0, "io": 5.0}},
	})
	require.True(t, res.Success, res.Reason)

	res = e.ExecuteAction("a1", types.Action{
		Type:    "release_resource",
		Content: map[string]any{"resources": map[string]any{"compute": 5.0}},
	})
	require.True(t, res.Success, res.Reason)
	require.InDelta(t, 15.0, e.Resources.Usage()["compute"].Allocated, 1e-9)

	// No amounts means release everything held.
	res = e.ExecuteAction("a1", types.Action{Type: "release_resource"})
	require.True(t, res.Success, res.Reason)
	require.InDelta(t, 0.0, e.Resources.Usage()["compute"].Allocated, 1e-9)
	require.InDelta(t, 0.0, e.Resources.Usage()["io"].Allocated, 1e-9)
}

func TestMoveWithinHost(t *testing.T) {
	e := testEnv(t)
	require.NoError(t, e.AddAgent("a1", loc("h1", "p1", "/work/a"), types.VisibilityFull))

	res := e.ExecuteAction("a1", types.Action{
		Type:    "move",
		Content: map[string]any{"namespace": "/work/b", "coordinates": map[string]any{"x": 3.0}},
	})
	require.True(t, res.Success, res.Reason)

	got, ok := e.Spatial.LocationOf("a1")
	require.True(t, ok)
	require.Equal(t, "/work/b", got.Namespace)
	require.Equal(t, "h1", got.Host, "unspecified fields keep current values")
	require.InDelta(t, 3.0, got.Coordinates["x"], 1e-9)
}

func TestMoveAcrossHostsBlocked(t *testing.T) {
	e := testEnv(t)
	require.NoError(t, e.AddAgent("a1", loc("h1", "p1", "/work"), types.VisibilityFull))

	res := e.ExecuteAction("a1", types.Action{
		Type:    "move",
		Content: map[string]any{"host": "h2"},
	})
	require.False(t, res.Success)
	require.Contains(t, res.Violations, "host_isolation")

	got, _ := e.Spatial.LocationOf("a1")
	require.Equal(t, "h1", got.Host)
}

func TestCommunicateRequiresVisibility(t *testing.T) {
	e := testEnv(t)
	require.NoError(t, e.AddAgent("a1", loc("h1", "p1", "/work"), types.VisibilityHost))
	require.NoError(t, e.AddAgent("near", loc("h1", "p2", "/work"), types.VisibilityFull))
	require.NoError(t, e.AddAgent("far", loc("h2", "p1", "/work"), types.VisibilityFull))

	res := e.ExecuteAction("a1", types.Action{
		Type:    "communicate",
		Target:  "near",
		Content: map[string]any{"message": "hi"},
	})
	require.True(t, res.Success, res.Reason)

	res = e.ExecuteAction("a1", types.Action{
		Type:    "communicate",
		Target:  "far",
		Content: map[string]any{"message": "hi"},
	})
	require.False(t, res.Success)
	require.Contains(t, res.Reason, "not visible")

	res = e.ExecuteAction("a1", types.Action{Type: "communicate"})
	require.False(t, res.Success)

	res = e.ExecuteAction("a1", types.Action{Type: "communicate", Target: "nobody"})
	require.False(t, res.Success)
}

func TestBroadcastFollowsConnections(t *testing.T) {
	e := testEnv(t)
	require.NoError(t, e.AddAgent("a1", loc("h1", "p1", "/work"), types.VisibilityFull))
	require.NoError(t, e.AddAgent("a2", loc("h1", "p2", "/work"), types.VisibilityFull))
	require.NoError(t, e.AddAgent("a3", loc("h2", "p1", "/work"), types.VisibilityFull))

	res := e.ExecuteAction("a1", types.Action{Type: "broadcast", Content: map[string]any{"message": "all"}})
	require.False(t, res.Success, "no connections yet")

	e.Spatial.Connect("a1", "a2")
	e.Spatial.Connect("a1", "a3")

	res = e.ExecuteAction("a1", types.Action{Type: "broadcast", Content: map[string]any{"message": "all"}})
	require.True(t, res.Success)
	require.EqualValues(t, 2, res.Detail["delivered"])
}

func TestUpdateKeepsResourcesInRange(t *testing.T) {
	e := testEnv(t)
	require.NoError(t, e.AddAgent("a1", loc("h1", "p1", "/work"), types.VisibilityFull))

	res := e.ExecuteAction("a1", types.Action{
		Type:    "allocate_resource",
		Content: map[string]any{"resources": map[string]any{"compute": 40.0}},
	})
	require.True(t, res.Success, res.Reason)

	for i := 0; i < 500; i++ {
		e.Update(1.0)
	}

	for name, u := range e.Resources.Usage() {
		require.GreaterOrEqual(t, u.Used, 0.0, name)
		require.LessOrEqual(t, u.Used+u.Allocated, u.Total+1e-9, name)
	}
	require.InDelta(t, 40.0, e.Resources.Usage()["compute"].Allocated, 1e-9)
}

func TestEventWindowIsBounded(t *testing.T) {
	e := testEnv(t)
	require.NoError(t, e.AddAgent("a1", loc("h1", "p1", "/work"), types.VisibilityFull))
	require.NoError(t, e.AddAgent("a2", loc("h1", "p1", "/work"), types.VisibilityFull))

	for i := 0; i < EventRetention+50; i++ {
		res := e.ExecuteAction("a1", types.Action{
			Type:    "communicate",
			Target:  "a2",
			Content: map[string]any{"message": "tick"},
		})
		require.True(t, res.Success, res.Reason)
	}

	all := e.RecentEvents(EventRetention * 2)
	require.Len(t, all, EventRetention)

	p, err := e.Perceive("a1")
	require.NoError(t, err)
	require.Len(t, p.Events, PerceptionEventWindow)
	require.True(t, p.Events[0].Timestamp.Before(p.Events[len(p.Events)-1].Timestamp) ||
		p.Events[0].Timestamp.Equal(p.Events[len(p.Events)-1].Timestamp))
}

func TestEventSinkReceivesEverything(t *testing.T) {
	var archived []types.Event
	e := New(Options{Seed: 3, EventSink: func(ev types.Event) { archived = append(archived, ev) }})

	require.NoError(t, e.AddAgent("a1", loc("h1", "p1", "/work"), types.VisibilityFull))
	require.NoError(t, e.RemoveAgent("a1"))

	require.Len(t, archived, 2)
	require.Equal(t, "agent_joined", archived[0].Type)
	require.Equal(t, "agent_left", archived[1].Type)
	require.NotEmpty(t, archived[0].ID)
	require.False(t, archived[0].Timestamp.IsZero())
}
