package dynamics

// Rule is one declarative reaction: a probabilistic or threshold trigger
// and a bounded adjustment to one or more variables. Rules are evaluated
// in declaration order; several may fire in the same tick.
type Rule struct {
	Name string

	// Probability in (0,1] makes the rule stochastic; zero disables the
	// stochastic trigger and the threshold applies instead.
	Probability float64

	// Threshold trigger: fire when WatchVar crosses Threshold in the
	// direction given by Above.
	WatchVar  string
	Threshold float64
	Above     bool

	// Adjustments applied on fire. MaxJitter adds a uniform random
	// component in [-MaxJitter, +MaxJitter] to each adjustment.
	Adjust    map[string]float64
	MaxJitter float64
}

// defaultRules mirrors the habitat's standing ambient behavior: load
// spikes, memory reclamation, and congestion easing off overnight.
func defaultRules() []Rule {
	return []Rule{
		{
			Name:        "load_spike",
			Probability: 0.05,
			Adjust:      map[string]float64{VarSystemLoad: 10},
			MaxJitter:   5,
		},
		{
			Name:      "memory_reclaim",
			WatchVar:  VarMemoryPressure,
			Threshold: 85,
			Above:     true,
			Adjust:    map[string]float64{VarMemoryPressure: -20},
		},
		{
			Name:        "congestion_wave",
			Probability: 0.03,
			Adjust:      map[string]float64{VarNetworkCongestion: 15},
			MaxJitter:   5,
		},
		{
			Name:      "night_quiesce",
			WatchVar:  VarTimeOfDay,
			Threshold: 4,
			Above:     false,
			Adjust: map[string]float64{
				VarSystemLoad:        -2,
				VarNetworkCongestion: -3,
			},
		},
	}
}

func (s *State) applyRuleLocked(r Rule) []Effect {
	fired := false
	switch {
	case r.Probability > 0:
		fired = s.rng.Float64() < r.Probability
	case r.WatchVar != "":
		v, ok := s.vars[r.WatchVar]
		if !ok {
			return nil
		}
		if r.Above {
			fired = v > r.Threshold
		} else {
			fired = v < r.Threshold
		}
	}
	if !fired {
		return nil
	}

	var effects []Effect
	for name, delta := range r.Adjust {
		if _, ok := s.vars[name]; !ok {
			continue
		}
		if r.MaxJitter > 0 {
			delta += (s.rng.Float64()*2 - 1) * r.MaxJitter
		}
		s.vars[name] = clamp(s.vars[name] + delta)
		effects = append(effects, Effect{
			Rule:     r.Name,
			Variable: name,
			Delta:    delta,
			Value:    s.vars[name],
		})
	}
	return effects
}
