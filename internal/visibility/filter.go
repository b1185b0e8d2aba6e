// Package visibility gates what one entity can perceive of the others.
// Only the entity list is level-filtered; resource and dynamics sections
// pass through untouched; scarcity is a system-wide signal every agent
// must see to behave cooperatively.
package visibility

import (
	"github.com/talgya/swarmsim/internal/types"
)

// rank orders levels from most to least permissive.
var rank = map[types.VisibilityLevel]int{
	types.VisibilityFull:      4,
	types.VisibilityHost:      3,
	types.VisibilityProcess:   2,
	types.VisibilityNamespace: 1,
	types.VisibilityNone:      0,
}

// Valid reports whether a level is one of the known levels.
func Valid(level types.VisibilityLevel) bool {
	_, ok := rank[level]
	return ok
}

// FilterPerception drops entities the observer's level does not admit.
// The observer's own record is always retained. The input is not mutated.
func FilterPerception(observer types.Entity, raw types.Perception) types.Perception {
	out := raw
	out.Entities = filterEntities(observer, raw.Entities)
	return out
}

func filterEntities(observer types.Entity, entities []types.Entity) []types.Entity {
	var out []types.Entity
	for _, e := range entities {
		if e.ID == observer.ID || visible(observer, e) {
			out = append(out, e)
		}
	}
	return out
}

// visible applies the observer's level to one candidate entity. Each
// level tightens the previous one: host, then process, then top-level
// namespace segment.
func visible(observer, e types.Entity) bool {
	switch observer.Visibility {
	case types.VisibilityFull:
		return true
	case types.VisibilityHost:
		return e.Location.Host == observer.Location.Host
	case types.VisibilityProcess:
		return e.Location.Host == observer.Location.Host &&
			e.Location.Process == observer.Location.Process
	case types.VisibilityNamespace:
		return e.Location.Host == observer.Location.Host &&
			e.Location.Process == observer.Location.Process &&
			e.Location.TopSegment() == observer.Location.TopSegment()
	default:
		return false
	}
}
