// The cognitive path: build a deliberation context, call the generation
// collaborator under an explicit timeout, and recover whatever actions
// its output contains.
package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/swarmsim/internal/llm"
	"github.com/talgya/swarmsim/internal/types"
)

// cognitiveConfidence tags deliberative actions that arrive without
// their own confidence estimate.
const cognitiveConfidence = 0.9

// historyContextDepth is how many mode decisions go into the prompt.
const historyContextDepth = 8

const responseFormat = `{"actions": [{"type": "<action type>", "target": "<who or what>", "content": {}, "confidence": 0.0}]}`

// cognitivePath runs one deliberation. Timeout, transport failure, and
// unusable output all degrade to an empty action list.
func (c *Controller) cognitivePath(ctx context.Context, p *types.Perception, stimuli []types.Stimulus) []types.Action {
	if c.generator == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.slots != nil {
		if err := c.slots.Acquire(ctx, 1); err != nil {
			slog.Debug("no cognitive slot before deadline", "agent", c.agentID, "error", err)
			return nil
		}
		defer c.slots.Release(1)
	}

	req := llm.Request{
		System:         c.systemPrompt(),
		Prompt:         c.deliberationPrompt(p, stimuli),
		ResponseFormat: responseFormat,
		MaxTokens:      800,
	}

	result, err := c.generator.Generate(ctx, req)
	if err != nil {
		slog.Warn("cognitive path failed", "agent", c.agentID, "error", err)
		return nil
	}
	if !result.Success {
		slog.Debug("cognitive path degraded", "agent", c.agentID, "detail", result.ErrorDetail)
		return nil
	}

	actions := llm.DecodeActions(result.Response)
	for i := range actions {
		actions[i].ID = uuid.NewString()
		actions[i].ProcessingMode = types.ModeCognitive
		if actions[i].Confidence == 0 {
			actions[i].Confidence = cognitiveConfidence
		}
	}
	return actions
}

func (c *Controller) systemPrompt() string {
	c.mu.Lock()
	caps := strings.Join(c.state.Capabilities, ", ")
	c.mu.Unlock()

	if caps == "" {
		caps = "communicate, allocate_resource, release_resource, move"
	}
	return fmt.Sprintf(
		"You are agent %s operating in a shared, resource-constrained habitat "+
			"alongside other autonomous agents. Decide what to do next. "+
			"Your capabilities: %s. Favor cooperative, resource-frugal behavior.",
		c.agentID, caps)
}

// deliberationPrompt assembles the context object: perception summary,
// recent mode history, BDI state, and this cycle's stimuli.
func (c *Controller) deliberationPrompt(p *types.Perception, stimuli []types.Stimulus) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are at host=%s process=%s namespace=%s.\n",
		p.Self.Location.Host, p.Self.Location.Process, p.Self.Location.Namespace)

	if len(p.Entities) > 1 {
		b.WriteString("Visible agents:\n")
		for _, e := range p.Entities {
			if e.ID == p.Self.ID {
				continue
			}
			fmt.Fprintf(&b, "- %s at %s/%s\n", e.ID, e.Location.Host, e.Location.Namespace)
		}
	}

	b.WriteString("Resources:\n")
	for name, u := range p.Resources {
		fmt.Fprintf(&b, "- %s: %.0f/%.0f used, utilization %.0f%%\n",
			name, u.Used+u.Allocated, u.Total, u.Utilization*100)
	}

	if len(p.Dynamics) > 0 {
		b.WriteString("Environment:\n")
		for name, v := range p.Dynamics {
			fmt.Fprintf(&b, "- %s: %.1f\n", name, v)
		}
	}

	c.mu.Lock()
	if beliefs, err := json.Marshal(c.state.Beliefs); err == nil && len(c.state.Beliefs) > 0 {
		fmt.Fprintf(&b, "Beliefs: %s\n", beliefs)
	}
	if len(c.state.Desires) > 0 {
		fmt.Fprintf(&b, "Desires: %s\n", strings.Join(c.state.Desires, "; "))
	}
	if len(c.state.Intentions) > 0 {
		fmt.Fprintf(&b, "Intentions: %s\n", strings.Join(c.state.Intentions, "; "))
	}
	recent := c.history.recent(historyContextDepth)
	c.mu.Unlock()

	if len(recent) > 0 {
		b.WriteString("Recent mode decisions:\n")
		for _, h := range recent {
			fmt.Fprintf(&b, "- %s (complexity %.2f)\n", h.Mode, h.Complexity)
		}
	}

	if len(stimuli) > 0 {
		b.WriteString("Current stimuli:\n")
		for _, s := range stimuli {
			if data, err := json.Marshal(s.Fields); err == nil {
				fmt.Fprintf(&b, "- %s %s: %s\n", s.Kind, s.ID, data)
			}
		}
	}

	b.WriteString("Respond with a JSON list of zero or more actions.")
	return b.String()
}
