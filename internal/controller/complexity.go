package controller

import (
	"github.com/talgya/swarmsim/internal/types"
)

// Complexity scoring increments. Each contributing factor adds its
// weight; the sum clamps to [0, 1].
const (
	weightDeliberativeMessage = 0.3
	weightLargeMessage        = 0.2
	weightCriticalTask        = 0.4
	weightCoordinationTask    = 0.3
	weightCrowd               = 0.2
	weightConflict            = 0.5

	largeContentBytes = 200
	crowdSize         = 5
)

// Mode selection boundary below which a reflex always suffices.
const reflexiveCeiling = 0.3

// AssessComplexity estimates how much deliberation the current situation
// warrants, from the cycle's stimuli and the visible peer count.
func AssessComplexity(stimuli []types.Stimulus, visiblePeers int) float64 {
	score := 0.0
	conflict := false

	for _, s := range stimuli {
		switch s.Kind {
		case types.StimulusMessage:
			if types.DeliberativePerformatives[s.StringField("performative")] {
				score += weightDeliberativeMessage
			}
			if len(s.StringField("content")) > largeContentBytes {
				score += weightLargeMessage
			}
		case types.StimulusTask:
			if s.StringField("priority") == "critical" {
				score += weightCriticalTask
			}
			if types.CoordinationTaskTypes[s.StringField("task_type")] {
				score += weightCoordinationTask
			}
		case types.StimulusConflict:
			conflict = true
		}
	}

	if visiblePeers > crowdSize {
		score += weightCrowd
	}
	if conflict {
		score += weightConflict
	}

	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

// SelectMode is a pure function of complexity and the agent's current
// cognitive threshold.
func SelectMode(complexity, threshold float64) types.Mode {
	switch {
	case complexity < reflexiveCeiling:
		return types.ModeReflexive
	case complexity > threshold:
		return types.ModeCognitive
	default:
		return types.ModeMixed
	}
}
