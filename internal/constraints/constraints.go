// Package constraints evaluates proposed actions against declared system
// constraints before the environment executes them. Violations block the
// action and name themselves; they are never fatal and never partial.
package constraints

import (
	"log/slog"

	"github.com/talgya/swarmsim/internal/resources"
	"github.com/talgya/swarmsim/internal/types"
)

// Kind classifies a constraint for operators reading the declaration.
type Kind string

const (
	KindResourceLimit Kind = "resource_limit"
	KindPolicy        Kind = "policy"
	KindThreshold     Kind = "threshold"
	KindIsolation     Kind = "isolation"
)

// Snapshot is the slice of habitat state constraints evaluate against.
type Snapshot struct {
	Actor     types.Entity
	Resources map[string]resources.Usage
	Dynamics  map[string]float64
	Entities  int
}

// Constraint is one declarative pre-action check. Check returns true
// when the action is permitted.
type Constraint struct {
	Name   string
	Kind   Kind
	Params map[string]float64
	Check  func(action types.Action, snap Snapshot) bool
}

// Engine holds the declared constraints in declaration order.
type Engine struct {
	constraints []Constraint
}

// NewEngine creates an engine with the given constraints.
func NewEngine(cs ...Constraint) *Engine {
	return &Engine{constraints: cs}
}

// Add declares another constraint.
func (e *Engine) Add(c Constraint) {
	e.constraints = append(e.constraints, c)
}

// CheckAll evaluates every constraint against the proposed action.
// Returns whether all passed, plus the names of those that did not.
// A constraint without a Check func counts as passing.
func (e *Engine) CheckAll(action types.Action, snap Snapshot) (bool, []string) {
	var violations []string
	for _, c := range e.constraints {
		if c.Check == nil {
			continue
		}
		if !c.Check(action, snap) {
			violations = append(violations, c.Name)
			slog.Debug("constraint violated",
				"constraint", c.Name, "kind", string(c.Kind),
				"action", action.Type, "actor", snap.Actor.ID)
		}
	}
	return len(violations) == 0, violations
}

// Defaults returns the habitat's standing constraints: a per-request
// allocation ceiling, a utilization brake, and cross-host isolation for
// direct communication.
func Defaults() *Engine {
	return NewEngine(
		Constraint{
			Name:   "max_single_allocation",
			Kind:   KindResourceLimit,
			Params: map[string]float64{"max_fraction": 0.5},
			Check: func(action types.Action, snap Snapshot) bool {
				if action.Type != "allocate_resource" {
					return true
				}
				for name, amount := range amountsFrom(action) {
					u, ok := snap.Resources[name]
					if !ok {
						continue
					}
					if u.Total > 0 && amount > u.Total*0.5 {
						return false
					}
				}
				return true
			},
		},
		Constraint{
			Name:   "utilization_brake",
			Kind:   KindThreshold,
			Params: map[string]float64{"max_utilization": 0.95},
			Check: func(action types.Action, snap Snapshot) bool {
				if action.Type != "allocate_resource" {
					return true
				}
				for name := range amountsFrom(action) {
					if u, ok := snap.Resources[name]; ok && u.Utilization >= 0.95 {
						return false
					}
				}
				return true
			},
		},
		Constraint{
			Name: "host_isolation",
			Kind: KindIsolation,
			Check: func(action types.Action, snap Snapshot) bool {
				// Moves may not leave the actor's host; cross-host
				// placement is the provisioner's job, not an agent's.
				if action.Type != "move" {
					return true
				}
				host, _ := action.Content["host"].(string)
				return host == "" || host == snap.Actor.Location.Host
			},
		},
	)
}

// amountsFrom extracts the resource→amount map from an allocation
// action's content, tolerating both float64 and int literals.
func amountsFrom(action types.Action) map[string]float64 {
	raw, _ := action.Content["resources"].(map[string]any)
	out := make(map[string]float64, len(raw))
	for name, v := range raw {
		switch n := v.(type) {
		case float64:
			out[name] = n
		case int:
			out[name] = float64(n)
		}
	}
	// Direct float map is also accepted (internal callers).
	if typed, ok := action.Content["resources"].(map[string]float64); ok {
		for name, n := range typed {
			out[name] = n
		}
	}
	return out
}
