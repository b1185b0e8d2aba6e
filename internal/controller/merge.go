// Mixed-mode processing: reflexive first, conditional cognitive
// escalation, and (type, target) conflict resolution where deliberative
// output wins.
package controller

import (
	"context"

	"github.com/talgya/swarmsim/internal/types"
)

// escalationComplexity is the mixed-mode complexity above which the
// cognitive path always also runs.
const escalationComplexity = 0.8

func (c *Controller) mixedPath(ctx context.Context, p *types.Perception, stimuli []types.Stimulus, complexity float64) []types.Action {
	reflexive := c.reflexivePath(stimuli)

	if !c.shouldEscalate(stimuli, reflexive, complexity) {
		return reflexive
	}

	cognitive := c.cognitivePath(ctx, p, stimuli)
	if len(cognitive) == 0 {
		return reflexive
	}
	return MergeActions(cognitive, reflexive)
}

// shouldEscalate decides whether mixed mode also pays for deliberation:
// high complexity, reflexes silent while messages wait, or a critical
// task pending.
func (c *Controller) shouldEscalate(stimuli []types.Stimulus, reflexive []types.Action, complexity float64) bool {
	if complexity > escalationComplexity {
		return true
	}

	hasMessages := false
	for _, s := range stimuli {
		switch s.Kind {
		case types.StimulusMessage:
			hasMessages = true
		case types.StimulusTask:
			if s.StringField("priority") == "critical" {
				return true
			}
		}
	}
	return hasMessages && len(reflexive) == 0
}

// MergeActions keeps every cognitive action and appends each reflexive
// action only when no cognitive action shares its (type, target) pair.
func MergeActions(cognitive, reflexive []types.Action) []types.Action {
	merged := make([]types.Action, 0, len(cognitive)+len(reflexive))
	merged = append(merged, cognitive...)

	taken := make(map[[2]string]struct{}, len(cognitive))
	for _, a := range cognitive {
		taken[[2]string{a.Type, a.Target}] = struct{}{}
	}
	for _, a := range reflexive {
		if _, dup := taken[[2]string{a.Type, a.Target}]; dup {
			continue
		}
		merged = append(merged, a)
	}
	return merged
}
