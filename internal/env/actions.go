// Action dispatch for the environment's supported operation kinds.
package env

import (
	"fmt"

	"github.com/talgya/swarmsim/internal/spatial"
	"github.com/talgya/swarmsim/internal/types"
	"github.com/talgya/swarmsim/internal/visibility"
)

func (e *Environment) allocateLocked(actor *types.Entity, action types.Action) types.ActionResult {
	wanted := amountsFromContent(action.Content)
	if len(wanted) == 0 {
		return types.ActionResult{Success: false, Reason: "no resources requested"}
	}

	if err := e.Resources.Request(actor.ID, wanted); err != nil {
		return types.ActionResult{Success: false, Reason: err.Error()}
	}

	e.events.append(types.Event{
		Type:    "resource_allocated",
		Source:  actor.ID,
		Payload: map[string]any{"resources": wanted},
	})
	return types.ActionResult{Success: true}
}

func (e *Environment) releaseLocked(actor *types.Entity, action types.Action) types.ActionResult {
	amounts := amountsFromContent(action.Content)
	if len(amounts) == 0 {
		// Releasing nothing in particular means releasing everything.
		e.Resources.ReleaseAll(actor.ID)
	} else {
		e.Resources.Release(actor.ID, amounts)
	}

	e.events.append(types.Event{
		Type:    "resource_released",
		Source:  actor.ID,
		Payload: map[string]any{"resources": amounts},
	})
	return types.ActionResult{Success: true}
}

func (e *Environment) moveLocked(actor *types.Entity, action types.Action) types.ActionResult {
	loc, err := locationFromContent(actor.Location, action.Content)
	if err != nil {
		return types.ActionResult{Success: false, Reason: err.Error()}
	}

	actor.Location = loc
	e.Spatial.Place(actor.ID, loc)
	e.events.append(types.Event{
		Type:    "entity_moved",
		Source:  actor.ID,
		Payload: map[string]any{"namespace": loc.Namespace, "host": loc.Host},
	})
	return types.ActionResult{Success: true}
}

// communicateLocked delivers a message event to a target the caller can
// actually see. An agent cannot address an entity outside its own
// filtered perception.
func (e *Environment) communicateLocked(actor *types.Entity, action types.Action) types.ActionResult {
	if action.Target == "" {
		return types.ActionResult{Success: false, Reason: "communicate requires a target"}
	}
	target, ok := e.entities[action.Target]
	if !ok {
		return types.ActionResult{Success: false, Reason: fmt.Sprintf("target %s not present", action.Target)}
	}

	observerView := e.entityViewLocked(actor)
	if actor.ID != target.ID {
		raw := types.Perception{Self: observerView, Entities: e.entityListLocked()}
		filtered := visibility.FilterPerception(observerView, raw)
		if !filtered.Sees(target.ID) {
			return types.ActionResult{Success: false, Reason: fmt.Sprintf("target %s not visible", action.Target)}
		}
	}

	e.events.append(types.Event{
		Type:   "communication",
		Source: actor.ID,
		Payload: map[string]any{
			"target":  action.Target,
			"content": action.Content["message"],
		},
	})
	return types.ActionResult{Success: true}
}

// broadcastLocked delivers a message event to every entity adjacent to
// the caller in the explicit connection graph.
func (e *Environment) broadcastLocked(actor *types.Entity, action types.Action) types.ActionResult {
	peers := e.Spatial.ConnectedTo(actor.ID)
	if len(peers) == 0 {
		return types.ActionResult{Success: false, Reason: "no connected peers"}
	}

	delivered := 0
	for _, peer := range peers {
		if _, ok := e.entities[peer]; !ok {
			continue
		}
		e.events.append(types.Event{
			Type:   "communication",
			Source: actor.ID,
			Payload: map[string]any{
				"target":    peer,
				"content":   action.Content["message"],
				"broadcast": true,
			},
		})
		delivered++
	}
	return types.ActionResult{
		Success: delivered > 0,
		Detail:  map[string]any{"delivered": delivered},
	}
}

// amountsFromContent reads a resource→amount map out of action content,
// accepting the JSON-decoded form as well as directly built maps.
func amountsFromContent(content map[string]any) map[string]float64 {
	out := make(map[string]float64)
	switch raw := content["resources"].(type) {
	case map[string]float64:
		for name, v := range raw {
			out[name] = v
		}
	case map[string]any:
		for name, v := range raw {
			switch n := v.(type) {
			case float64:
				out[name] = n
			case int:
				out[name] = float64(n)
			}
		}
	}
	for name, v := range out {
		if v <= 0 {
			delete(out, name)
		}
	}
	return out
}

// locationFromContent builds the replacement location for a move. Fields
// not supplied keep the actor's current values; the location is replaced
// wholesale either way.
func locationFromContent(current spatial.Location, content map[string]any) (spatial.Location, error) {
	loc := spatial.Location{
		Host:      current.Host,
		Process:   current.Process,
		Namespace: current.Namespace,
	}
	if h, ok := content["host"].(string); ok && h != "" {
		loc.Host = h
	}
	if p, ok := content["process"].(string); ok {
		loc.Process = p
	}
	if ns, ok := content["namespace"].(string); ok && ns != "" {
		loc.Namespace = ns
	}
	if raw, ok := content["coordinates"].(map[string]any); ok {
		loc.Coordinates = make(map[string]float64, len(raw))
		for k, v := range raw {
			f, ok := v.(float64)
			if !ok {
				return loc, fmt.Errorf("coordinate %s is not numeric", k)
			}
			loc.Coordinates[k] = f
		}
	} else if typed, ok := content["coordinates"].(map[string]float64); ok {
		loc.Coordinates = make(map[string]float64, len(typed))
		for k, v := range typed {
			loc.Coordinates[k] = v
		}
	}
	if loc.Host == "" {
		return loc, fmt.Errorf("move requires a host")
	}
	return loc, nil
}
