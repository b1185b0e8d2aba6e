// Package types holds the shared records passed between the habitat's
// components: entities, perceptions, actions, events, and stimuli.
package types

import (
	"time"

	"github.com/talgya/swarmsim/internal/resources"
	"github.com/talgya/swarmsim/internal/spatial"
)

// Mode is the processing path a controller used to produce an action.
type Mode string

const (
	ModeReflexive Mode = "reflexive"
	ModeCognitive Mode = "cognitive"
	ModeMixed     Mode = "mixed"
)

// EntityState is an entity's lifecycle state.
type EntityState string

const (
	EntityActive  EntityState = "active"
	EntityRemoved EntityState = "removed"
)

// Entity is an agent's environment-facing record.
type Entity struct {
	ID          string             `json:"id"`
	Location    spatial.Location   `json:"location"`
	Allocations map[string]float64 `json:"allocations,omitempty"`
	State       EntityState        `json:"state"`
	Visibility  VisibilityLevel    `json:"visibility"`
	CreatedAt   time.Time          `json:"created_at"`
}

// VisibilityLevel bounds what an entity can perceive of the others,
// ordered from most to least permissive.
type VisibilityLevel string

const (
	VisibilityFull      VisibilityLevel = "full"
	VisibilityHost      VisibilityLevel = "host"
	VisibilityProcess   VisibilityLevel = "process"
	VisibilityNamespace VisibilityLevel = "namespace"
	VisibilityNone      VisibilityLevel = "none"
)

// Event is one entry in the habitat's append-only log. Agents only ever
// see the most recent bounded window through perception.
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Source    string         `json:"source,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Action is the record a controller produces and the environment executes.
// Type names the operation (allocate_resource, release_resource, move,
// communicate, or a domain performative like inform); Content carries the
// operation's parameters.
type Action struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Target         string         `json:"target,omitempty"`
	Content        map[string]any `json:"content,omitempty"`
	Confidence     float64        `json:"confidence"`
	ProcessingMode Mode           `json:"processing_mode"`
	RuleName       string         `json:"rule_name,omitempty"`
	TriggeredBy    string         `json:"triggered_by,omitempty"`
}

// ActionResult reports what happened when an action was executed.
// Failures are values, never panics: constraint violations list the
// constraints that blocked the action.
type ActionResult struct {
	Success    bool           `json:"success"`
	Reason     string         `json:"reason,omitempty"`
	Violations []string       `json:"violations,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
}

// Perception is the filtered snapshot returned to one agent. Never
// mutated after construction; recomputed on every call.
type Perception struct {
	Self      Entity                     `json:"self"`
	Entities  []Entity                   `json:"entities"`
	Resources map[string]resources.Usage `json:"resources"`
	Dynamics  map[string]float64         `json:"dynamics"`
	Events    []Event                    `json:"events"`
}

// Sees reports whether the perception contains the given entity.
func (p *Perception) Sees(id string) bool {
	for _, e := range p.Entities {
		if e.ID == id {
			return true
		}
	}
	return p.Self.ID == id
}
