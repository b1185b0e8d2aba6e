// Package controller runs each agent's hybrid decision loop: perceive,
// assess complexity, pick a processing mode, run the reflexive and/or
// cognitive path, merge, act, learn. Reflexes are cheap rule matches;
// cognition delegates to the external generation collaborator.
package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/talgya/swarmsim/internal/env"
	"github.com/talgya/swarmsim/internal/llm"
	"github.com/talgya/swarmsim/internal/rules"
	"github.com/talgya/swarmsim/internal/types"
)

// StimulusSource feeds a controller its inbound messages and tasks. The
// core treats both as opaque records from an external bus/queue.
type StimulusSource interface {
	PendingMessages(agentID string) []types.Message
	PendingTasks(agentID string) []types.Task
}

// ActionSink receives actions the environment itself does not execute
// (message delivery, tool invocation, other external dispatch).
type ActionSink interface {
	Dispatch(agentID string, actions []types.Action)
}

// DefaultCognitiveTimeout bounds the only blocking call in the loop.
const DefaultCognitiveTimeout = 15 * time.Second

// Options configures a controller.
type Options struct {
	AgentID   string
	Env       *env.Environment
	Reflexes  *rules.Engine
	Generator llm.Generator // nil disables the cognitive path entirely
	Source    StimulusSource
	Sink      ActionSink

	// CognitiveTimeout caps one generation call. Zero means default.
	CognitiveTimeout time.Duration

	// CognitiveSlots, when set, bounds in-flight generation calls
	// across all controllers sharing it.
	CognitiveSlots *semaphore.Weighted

	// State restores persisted agent state; nil starts fresh.
	State *AgentState
}

// Controller is one agent's decision loop state machine. Mode is
// recomputed every cycle; there is no terminal state.
type Controller struct {
	agentID   string
	env       *env.Environment
	reflexes  *rules.Engine
	generator llm.Generator
	source    StimulusSource
	sink      ActionSink
	timeout   time.Duration
	slots     *semaphore.Weighted

	mu      sync.Mutex
	state   *AgentState
	history *historyRing
}

// New creates a controller for one agent.
func New(opts Options) *Controller {
	state := opts.State
	if state == nil {
		state = NewAgentState()
	}
	timeout := opts.CognitiveTimeout
	if timeout <= 0 {
		timeout = DefaultCognitiveTimeout
	}
	return &Controller{
		agentID:   opts.AgentID,
		env:       opts.Env,
		reflexes:  opts.Reflexes,
		generator: opts.Generator,
		source:    opts.Source,
		sink:      opts.Sink,
		timeout:   timeout,
		slots:     opts.CognitiveSlots,
		state:     state,
		history:   newHistoryRing(ModeHistoryCapacity),
	}
}

// AgentID returns the agent this controller drives.
func (c *Controller) AgentID() string { return c.agentID }

// State returns the agent's adaptive state for persistence at cycle
// boundaries. Callers must not mutate it concurrently with RunCycle.
func (c *Controller) State() *AgentState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns the last n mode decisions, oldest first.
func (c *Controller) History(n int) []ModeHistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.recent(n)
}

// CycleResult summarizes one completed decision cycle.
type CycleResult struct {
	Mode       types.Mode
	Complexity float64
	Stimuli    int
	Actions    []types.Action
	Executed   []types.ActionResult
}

// RunCycle executes one full perceive→decide→act→learn cycle. Every
// failure path degrades; nothing here may crash the agent's loop.
func (c *Controller) RunCycle(ctx context.Context) (*CycleResult, error) {
	perception, err := c.env.Perceive(c.agentID)
	if err != nil {
		return nil, err
	}

	stimuli := c.gatherStimuli(perception)

	complexity := AssessComplexity(stimuli, len(perception.Entities)-1)

	c.mu.Lock()
	mode := SelectMode(complexity, c.state.CognitiveThreshold)
	c.history.add(ModeHistoryEntry{Mode: mode, Complexity: complexity, Timestamp: time.Now()})
	c.mu.Unlock()

	var actions []types.Action
	switch mode {
	case types.ModeReflexive:
		actions = c.reflexivePath(stimuli)
	case types.ModeCognitive:
		actions = c.cognitivePath(ctx, perception, stimuli)
		if len(actions) == 0 {
			// Degraded: deliberation produced nothing usable.
			actions = c.reflexivePath(stimuli)
		}
	case types.ModeMixed:
		actions = c.mixedPath(ctx, perception, stimuli, complexity)
	}

	// An agent removed mid-cycle executes nothing; late cognitive
	// results are simply discarded.
	if !c.env.Present(c.agentID) {
		slog.Debug("agent removed mid-cycle, discarding actions",
			"agent", c.agentID, "dropped", len(actions))
		return &CycleResult{Mode: mode, Complexity: complexity, Stimuli: len(stimuli)}, nil
	}

	executed := c.act(actions)

	slog.Debug("cycle complete",
		"agent", c.agentID,
		"mode", string(mode),
		"complexity", complexity,
		"stimuli", len(stimuli),
		"actions", len(actions),
	)

	return &CycleResult{
		Mode:       mode,
		Complexity: complexity,
		Stimuli:    len(stimuli),
		Actions:    actions,
		Executed:   executed,
	}, nil
}

// gatherStimuli collects messages, tasks, nearby agents, and conflicts
// into one stimulus batch for this cycle.
func (c *Controller) gatherStimuli(p *types.Perception) []types.Stimulus {
	var out []types.Stimulus

	if c.source != nil {
		for _, m := range c.source.PendingMessages(c.agentID) {
			out = append(out, types.FromMessage(m))
		}
		for _, t := range c.source.PendingTasks(c.agentID) {
			out = append(out, types.FromTask(t))
		}
	}

	for _, e := range p.Entities {
		if e.ID == c.agentID {
			continue
		}
		out = append(out, types.Stimulus{
			ID:   "sighting-" + e.ID,
			Kind: types.StimulusAgent,
			Fields: map[string]any{
				"agent":     e.ID,
				"host":      e.Location.Host,
				"namespace": e.Location.Namespace,
			},
		})
	}

	// Resource contention surfaces as a conflict stimulus: someone
	// holds part of a pool this agent is already squeezed on.
	for name, usage := range p.Resources {
		if usage.Utilization >= 0.9 {
			out = append(out, types.Stimulus{
				ID:   "contention-" + name,
				Kind: types.StimulusConflict,
				Fields: map[string]any{
					"resource":    name,
					"utilization": usage.Utilization,
				},
			})
		}
	}
	return out
}

// reflexivePath matches every stimulus against the rule engine.
func (c *Controller) reflexivePath(stimuli []types.Stimulus) []types.Action {
	if c.reflexes == nil {
		return nil
	}
	return c.reflexes.MatchAll(stimuli)
}

// act hands environment-kind actions to the environment and the rest to
// the outbound sink. Execution results feed the learning step.
func (c *Controller) act(actions []types.Action) []types.ActionResult {
	var results []types.ActionResult
	var outbound []types.Action

	for _, a := range actions {
		switch a.Type {
		case "allocate_resource", "release_resource", "move", "communicate", "broadcast":
			res := c.env.ExecuteAction(c.agentID, a)
			results = append(results, res)
			c.Learn(res.Success, a.ProcessingMode)
		default:
			outbound = append(outbound, a)
		}
	}

	if len(outbound) > 0 && c.sink != nil {
		c.sink.Dispatch(c.agentID, outbound)
	}
	return results
}
