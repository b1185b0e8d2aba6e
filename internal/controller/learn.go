// Post-hoc learning: fold outcome feedback into per-mode success rates
// and retune the cognitive threshold.
package controller

import (
	"log/slog"

	"github.com/talgya/swarmsim/internal/types"
)

// Success-rate boundaries driving threshold adaptation.
const (
	reflexiveWeakRate   = 0.6
	reflexiveStrongRate = 0.8
	cognitiveStrongRate = 0.9
)

// Learn records one outcome for the mode that produced it, then adapts
// the cognitive threshold: weak reflexes pull the threshold down (favor
// deliberation); strong performance on both paths nudges it back up.
func (c *Controller) Learn(success bool, mode types.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	counter := c.state.SuccessRates[mode]
	if counter == nil {
		counter = &RateCounter{}
		c.state.SuccessRates[mode] = counter
	}
	counter.observe(success)

	c.adaptThresholdLocked()
}

func (c *Controller) adaptThresholdLocked() {
	reflexRate, reflexN := c.state.rate(types.ModeReflexive)
	cogRate, cogN := c.state.rate(types.ModeCognitive)

	before := c.state.CognitiveThreshold
	switch {
	case reflexN > 0 && reflexRate < reflexiveWeakRate:
		c.state.CognitiveThreshold -= thresholdDecStep
		if c.state.CognitiveThreshold < ThresholdFloor {
			c.state.CognitiveThreshold = ThresholdFloor
		}
	case reflexN > 0 && cogN > 0 &&
		reflexRate > reflexiveStrongRate && cogRate > cognitiveStrongRate:
		c.state.CognitiveThreshold += thresholdIncStep
		if c.state.CognitiveThreshold > ThresholdCap {
			c.state.CognitiveThreshold = ThresholdCap
		}
	}

	if c.state.CognitiveThreshold != before {
		slog.Debug("cognitive threshold adapted",
			"agent", c.agentID,
			"from", before,
			"to", c.state.CognitiveThreshold,
			"reflexive_rate", reflexRate,
			"cognitive_rate", cogRate,
		)
	}
}
