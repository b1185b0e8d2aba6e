// Package dynamics advances the habitat's ambient state variables over
// time: a clock, smooth noise-driven drift, and declarative reaction rules.
package dynamics

import (
	"math/rand"
	"sync"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Variable bounds for everything except the clock.
const (
	VarMin = 0.0
	VarMax = 100.0

	// TimeOfDay wraps at this value.
	hoursPerDay = 24.0
)

// Well-known variable names. Extra variables may be configured freely.
const (
	VarSystemLoad        = "system_load"
	VarMemoryPressure    = "memory_pressure"
	VarNetworkCongestion = "network_congestion"
	VarTimeOfDay         = "time_of_day"
)

// Effect records one dynamics change worth surfacing in the event log.
type Effect struct {
	Rule     string  `json:"rule"`
	Variable string  `json:"variable"`
	Delta    float64 `json:"delta"`
	Value    float64 `json:"value"`
}

// State holds the named scalar variables and the rules that react to them.
type State struct {
	mu    sync.Mutex
	vars  map[string]float64
	rules []Rule
	noise opensimplex.Noise
	rng   *rand.Rand
	clock float64 // accumulated sim time, noise input
}

// NewState creates dynamics state with the standard variables at their
// initial values plus any extras, seeded deterministically.
func NewState(seed int64, extras map[string]float64) *State {
	vars := map[string]float64{
		VarSystemLoad:        30,
		VarMemoryPressure:    40,
		VarNetworkCongestion: 20,
		VarTimeOfDay:         12,
	}
	for name, v := range extras {
		vars[name] = clamp(v)
	}

	s := &State{
		vars:  vars,
		noise: opensimplex.New(seed),
		rng:   rand.New(rand.NewSource(seed)),
	}
	s.rules = defaultRules()
	return s
}

// SetRules replaces the rule list. Rules run in declaration order.
func (s *State) SetRules(rules []Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = rules
}

// Update advances the clock by deltaTime (sim-hours), applies the bounded
// noise walk to every non-clock variable, then evaluates the rules in
// order. Returns the effects of every rule that fired.
func (s *State) Update(deltaTime float64) []Effect {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock += deltaTime

	tod := s.vars[VarTimeOfDay] + deltaTime
	for tod >= hoursPerDay {
		tod -= hoursPerDay
	}
	s.vars[VarTimeOfDay] = tod

	// Smooth drift: sample a per-variable noise channel so each variable
	// walks independently but without tick-to-tick discontinuities.
	channel := 0.0
	for _, name := range s.sortedVarsLocked() {
		if name == VarTimeOfDay {
			continue
		}
		channel++
		step := s.noise.Eval2(s.clock*0.1, channel*37.0) * 2.0 * deltaTime
		s.vars[name] = clamp(s.vars[name] + step)
	}

	var effects []Effect
	for _, r := range s.rules {
		effects = append(effects, s.applyRuleLocked(r)...)
	}
	return effects
}

// Snapshot returns a copy of all current variables.
func (s *State) Snapshot() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]float64, len(s.vars))
	for name, v := range s.vars {
		out[name] = v
	}
	return out
}

// Get returns one variable's current value.
func (s *State) Get(name string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vars[name]
	return v, ok
}

func (s *State) sortedVarsLocked() []string {
	names := make([]string, 0, len(s.vars))
	for name := range s.vars {
		names = append(names, name)
	}
	// Insertion sort keeps this allocation-light for the handful of vars.
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	return names
}

func clamp(v float64) float64 {
	if v < VarMin {
		return VarMin
	}
	if v > VarMax {
		return VarMax
	}
	return v
}
