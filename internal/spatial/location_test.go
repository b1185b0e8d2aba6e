package spatial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistanceTiers(t *testing.T) {
	base := Location{Host: "alpha", Process: "p1", Namespace: "/work/cell-0"}

	cases := []struct {
		name string
		other Location
		want  float64
	}{
		{
			name:  "different hosts",
			other: Location{Host: "beta", Process: "p1", Namespace: "/work/cell-0"},
			want:  CrossHostDistance,
		},
		{
			name:  "same host different process",
			other: Location{Host: "alpha", Process: "p2", Namespace: "/work/cell-0"},
			want:  CrossProcessDistance,
		},
		{
			name:  "sibling namespaces",
			other: Location{Host: "alpha", Process: "p1", Namespace: "/work/cell-1"},
			want:  20, // one segment up, one segment down
		},
		{
			name:  "deeper divergence",
			other: Location{Host: "alpha", Process: "p1", Namespace: "/data/raw/in"},
			want:  50, // depths 2+3, no common prefix
		},
		{
			name:  "identical",
			other: Location{Host: "alpha", Process: "p1", Namespace: "/work/cell-0"},
			want:  0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Distance(base, tc.other))
		})
	}
}

func TestDistanceSymmetric(t *testing.T) {
	locs := []Location{
		{Host: "alpha", Namespace: "/a/b"},
		{Host: "beta", Namespace: "/a/b"},
		{Host: "alpha", Process: "p9", Namespace: "/a"},
		{Host: "alpha", Namespace: "/a/b", Coordinates: map[string]float64{"x": 3}},
		{Host: "alpha", Namespace: "/a/b", Coordinates: map[string]float64{"x": 0, "y": 4}},
	}
	for i := range locs {
		for j := range locs {
			require.Equal(t, Distance(locs[i], locs[j]), Distance(locs[j], locs[i]),
				"distance must be symmetric for %d,%d", i, j)
		}
	}
}

func TestDistanceCoordinates(t *testing.T) {
	a := Location{Host: "h", Namespace: "/ns", Coordinates: map[string]float64{"x": 3, "y": 0}}
	b := Location{Host: "h", Namespace: "/ns", Coordinates: map[string]float64{"y": 4}}

	// Missing keys count as zero: sqrt(3² + 4²).
	require.InDelta(t, 5.0, Distance(a, b), 1e-9)
}

func TestNeighborsWithinRadius(t *testing.T) {
	m := NewModel()
	m.Place("center", Location{Host: "h", Namespace: "/ns", Coordinates: map[string]float64{"x": 0}})
	m.Place("near", Location{Host: "h", Namespace: "/ns", Coordinates: map[string]float64{"x": 3}})
	m.Place("far", Location{Host: "h", Namespace: "/ns", Coordinates: map[string]float64{"x": 50}})
	m.Place("offhost", Location{Host: "elsewhere", Namespace: "/ns"})

	require.Equal(t, []string{"near"}, m.Neighbors("center", 10))
	require.Empty(t, m.Neighbors("missing", 10))
}

func TestAdjacencyIndependentOfDistance(t *testing.T) {
	m := NewModel()
	m.Place("a", Location{Host: "h1", Namespace: "/x"})
	m.Place("b", Location{Host: "h2", Namespace: "/y"})
	m.Place("c", Location{Host: "h3", Namespace: "/z"})

	m.Connect("a", "b")
	m.Connect("a", "c")
	m.Connect("a", "a") // self edges are ignored

	require.Equal(t, []string{"b", "c"}, m.ConnectedTo("a"))
	require.Equal(t, []string{"a"}, m.ConnectedTo("b"))

	m.Remove("b")
	require.Equal(t, []string{"c"}, m.ConnectedTo("a"))
	require.Empty(t, m.ConnectedTo("b"))
}
