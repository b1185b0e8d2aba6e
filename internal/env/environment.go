// Package env is the habitat orchestrator: it owns the entity registry
// and composes the spatial model, resource pools, dynamics, constraint
// checks, and visibility filtering behind three calls: Perceive,
// ExecuteAction, and Update.
//
// Concurrency contract: every mutating entry point serializes on one
// write lock; Perceive takes the read lock and may run alongside other
// Perceive calls. Agents see the latest committed state, not a
// tick-synchronized one.
package env

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/talgya/swarmsim/internal/constraints"
	"github.com/talgya/swarmsim/internal/dynamics"
	"github.com/talgya/swarmsim/internal/resources"
	"github.com/talgya/swarmsim/internal/spatial"
	"github.com/talgya/swarmsim/internal/types"
	"github.com/talgya/swarmsim/internal/visibility"
)

// Environment is the single shared world all agents act inside.
type Environment struct {
	mu sync.RWMutex

	Spatial     *spatial.Model
	Resources   *resources.Manager
	Dynamics    *dynamics.State
	Constraints *constraints.Engine

	entities map[string]*types.Entity
	events   *eventLog
	drift    *rand.Rand
	started  time.Time
}

// Options configures a new environment.
type Options struct {
	Seed          int64
	Pools         map[string]float64
	ExtraDynamics map[string]float64

	// EventSink, when set, receives every appended event (used by the
	// persistence layer to archive beyond the in-memory retention).
	EventSink func(types.Event)
}

// New constructs an environment with the given resource pools.
func New(opts Options) *Environment {
	if len(opts.Pools) == 0 {
		opts.Pools = map[string]float64{
			"compute":   100,
			"memory":    100,
			"io":        100,
			"bandwidth": 100,
		}
	}
	log := newEventLog(EventRetention)
	log.sink = opts.EventSink

	return &Environment{
		Spatial:     spatial.NewModel(),
		Resources:   resources.NewManager(opts.Pools),
		Dynamics:    dynamics.NewState(opts.Seed, opts.ExtraDynamics),
		Constraints: constraints.Defaults(),
		entities:    make(map[string]*types.Entity),
		events:      log,
		drift:       rand.New(rand.NewSource(opts.Seed + 1)),
		started:     time.Now(),
	}
}

// StartedAt returns when the environment was constructed.
func (e *Environment) StartedAt() time.Time { return e.started }

// AddAgent registers an entity for an agent at the given location with
// the given visibility level.
func (e *Environment) AddAgent(id string, loc spatial.Location, level types.VisibilityLevel) error {
	if !visibility.Valid(level) {
		return fmt.Errorf("unknown visibility level %q", level)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.entities[id]; exists {
		return fmt.Errorf("entity %s already present", id)
	}

	e.entities[id] = &types.Entity{
		ID:         id,
		Location:   loc,
		State:      types.EntityActive,
		Visibility: level,
		CreatedAt:  time.Now(),
	}
	e.Spatial.Place(id, loc)
	e.events.append(types.Event{Type: "agent_joined", Source: id})
	slog.Info("agent joined habitat", "agent", id, "host", loc.Host, "namespace", loc.Namespace)
	return nil
}

// RemoveAgent destroys an agent's entity and releases everything it held.
func (e *Environment) RemoveAgent(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.entities[id]
	if !ok {
		return fmt.Errorf("entity %s not present", id)
	}

	e.Resources.ReleaseAll(id)
	e.Spatial.Remove(id)
	ent.State = types.EntityRemoved
	delete(e.entities, id)
	e.events.append(types.Event{Type: "agent_left", Source: id})
	slog.Info("agent left habitat", "agent", id)
	return nil
}

// Present reports whether an agent currently has a live entity.
func (e *Environment) Present(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.entities[id]
	return ok
}

// Perceive returns the visibility-filtered snapshot for one agent.
// Read-only; safe to call concurrently with other Perceive calls.
func (e *Environment) Perceive(agentID string) (*types.Perception, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	observer, ok := e.entities[agentID]
	if !ok {
		return nil, fmt.Errorf("entity %s not present", agentID)
	}

	raw := types.Perception{
		Self:      e.entityViewLocked(observer),
		Entities:  e.entityListLocked(),
		Resources: e.Resources.Usage(),
		Dynamics:  e.Dynamics.Snapshot(),
		Events:    e.events.recent(PerceptionEventWindow),
	}
	filtered := visibility.FilterPerception(raw.Self, raw)
	return &filtered, nil
}

// ExecuteAction runs one agent action: constraint check first, then
// dispatch by action type. Nothing is mutated when a constraint blocks.
func (e *Environment) ExecuteAction(agentID string, action types.Action) types.ActionResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	actor, ok := e.entities[agentID]
	if !ok {
		return types.ActionResult{Success: false, Reason: "entity not present"}
	}

	snap := constraints.Snapshot{
		Actor:     e.entityViewLocked(actor),
		Resources: e.Resources.Usage(),
		Dynamics:  e.Dynamics.Snapshot(),
		Entities:  len(e.entities),
	}
	if passed, violated := e.Constraints.CheckAll(action, snap); !passed {
		return types.ActionResult{
			Success:    false,
			Reason:     "constraint violation",
			Violations: violated,
		}
	}

	switch action.Type {
	case "allocate_resource":
		return e.allocateLocked(actor, action)
	case "release_resource":
		return e.releaseLocked(actor, action)
	case "move":
		return e.moveLocked(actor, action)
	case "communicate":
		return e.communicateLocked(actor, action)
	case "broadcast":
		return e.broadcastLocked(actor, action)
	default:
		return types.ActionResult{
			Success: false,
			Reason:  fmt.Sprintf("unsupported action %q", action.Type),
		}
	}
}

// Update advances dynamics by deltaTime, drains triggered effects into
// the event log, and applies organic drift to resource background load.
func (e *Environment) Update(deltaTime float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, eff := range e.Dynamics.Update(deltaTime) {
		e.events.append(types.Event{
			Type:   "dynamics",
			Source: eff.Rule,
			Payload: map[string]any{
				"variable": eff.Variable,
				"delta":    eff.Delta,
				"value":    eff.Value,
			},
		})
	}

	// Organic background load wanders independently of agent allocation.
	for _, name := range e.Resources.Names() {
		e.Resources.Drift(name, (e.drift.Float64()*2-1)*deltaTime*2)
	}
}

// RecentEvents returns up to n of the newest events, oldest first.
func (e *Environment) RecentEvents(n int) []types.Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.events.recent(n)
}

// Entities returns a snapshot of every live entity, sorted by id.
func (e *Environment) Entities() []types.Entity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.entityListLocked()
}

func (e *Environment) entityListLocked() []types.Entity {
	out := make([]types.Entity, 0, len(e.entities))
	for _, ent := range e.entities {
		out = append(out, e.entityViewLocked(ent))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// entityViewLocked copies an entity record, attaching its current
// allocations so perceptions never alias manager state.
func (e *Environment) entityViewLocked(ent *types.Entity) types.Entity {
	view := *ent
	view.Allocations = e.Resources.AllocationsOf(ent.ID)
	return view
}
