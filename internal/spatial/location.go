// Package spatial tracks where entities live and how far apart they are.
// Distance is tiered rather than Euclidean: crossing a host or process
// boundary costs a fixed penalty, namespace divergence costs per path
// segment, and coordinates only matter inside one namespace.
package spatial

import (
	"math"
	"strings"
)

// Fixed penalties for crossing placement boundaries.
const (
	CrossHostDistance    = 1000.0
	CrossProcessDistance = 100.0
	namespaceStepCost    = 10.0
)

// Location describes where an entity sits in the habitat. Immutable once
// issued; a move replaces the whole value.
type Location struct {
	Host        string             `json:"host"`
	Process     string             `json:"process,omitempty"`
	Namespace   string             `json:"namespace"`
	Coordinates map[string]float64 `json:"coordinates,omitempty"`
}

// Distance computes the tiered distance between two locations.
// Symmetric: Distance(a, b) == Distance(b, a).
func Distance(a, b Location) float64 {
	if a.Host != b.Host {
		return CrossHostDistance
	}
	if a.Process != b.Process {
		return CrossProcessDistance
	}
	if a.Namespace != b.Namespace {
		return namespaceStepCost * float64(namespaceDivergence(a.Namespace, b.Namespace))
	}
	if len(a.Coordinates) > 0 || len(b.Coordinates) > 0 {
		return euclidean(a.Coordinates, b.Coordinates)
	}
	return 0
}

// namespaceDivergence counts the path segments by which two namespaces
// diverge: depth(a) + depth(b) - 2*commonPrefixDepth.
func namespaceDivergence(a, b string) int {
	segsA := splitNamespace(a)
	segsB := splitNamespace(b)

	common := 0
	for common < len(segsA) && common < len(segsB) && segsA[common] == segsB[common] {
		common++
	}
	return len(segsA) + len(segsB) - 2*common
}

func splitNamespace(ns string) []string {
	ns = strings.Trim(ns, "/")
	if ns == "" {
		return nil
	}
	return strings.Split(ns, "/")
}

// TopSegment returns the first namespace path segment, or "" for the root.
func (l Location) TopSegment() string {
	segs := splitNamespace(l.Namespace)
	if len(segs) == 0 {
		return ""
	}
	return segs[0]
}

// euclidean measures coordinate distance over the union of keys; a key
// missing on either side contributes as zero.
func euclidean(a, b map[string]float64) float64 {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}

	var sum float64
	for k := range keys {
		d := a[k] - b[k]
		sum += d * d
	}
	return math.Sqrt(sum)
}
