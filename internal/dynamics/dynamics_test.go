package dynamics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimeOfDayWraps(t *testing.T) {
	s := NewState(1, nil)
	s.SetRules(nil)

	s.Update(11.5) // 12 + 11.5 = 23.5
	tod, ok := s.Get(VarTimeOfDay)
	require.True(t, ok)
	require.InDelta(t, 23.5, tod, 1e-9)

	s.Update(1.0) // wraps past 24
	tod, _ = s.Get(VarTimeOfDay)
	require.InDelta(t, 0.5, tod, 1e-9)
}

func TestVariablesStayBounded(t *testing.T) {
	s := NewState(7, map[string]float64{"queue_depth": 99.5})
	for i := 0; i < 500; i++ {
		s.Update(0.5)
	}
	for name, v := range s.Snapshot() {
		if name == VarTimeOfDay {
			require.Less(t, v, 24.0)
			require.GreaterOrEqual(t, v, 0.0)
			continue
		}
		require.GreaterOrEqual(t, v, VarMin, "variable %s under floor", name)
		require.LessOrEqual(t, v, VarMax, "variable %s over ceiling", name)
	}
}

func TestExtrasClampedOnConstruction(t *testing.T) {
	s := NewState(1, map[string]float64{"hot": 250, "cold": -10})
	snap := s.Snapshot()
	require.Equal(t, VarMax, snap["hot"])
	require.Equal(t, VarMin, snap["cold"])
}

func TestThresholdRuleFires(t *testing.T) {
	s := NewState(1, map[string]float64{"pressure": 95})
	s.SetRules([]Rule{{
		Name:      "relief_valve",
		WatchVar:  "pressure",
		Threshold: 90,
		Above:     true,
		Adjust:    map[string]float64{"pressure": -30},
	}})

	effects := s.Update(0.0)
	require.Len(t, effects, 1)
	require.Equal(t, "relief_valve", effects[0].Rule)
	require.Equal(t, "pressure", effects[0].Variable)

	v, _ := s.Get("pressure")
	require.InDelta(t, 65, v, 1e-9)
}

func TestBelowThresholdRule(t *testing.T) {
	s := NewState(1, map[string]float64{"supply": 5})
	s.SetRules([]Rule{{
		Name:      "restock",
		WatchVar:  "supply",
		Threshold: 10,
		Above:     false,
		Adjust:    map[string]float64{"supply": 20},
	}})

	effects := s.Update(0.0)
	require.Len(t, effects, 1)
	v, _ := s.Get("supply")
	require.InDelta(t, 25, v, 1e-9)
}

func TestRulesRunInDeclarationOrder(t *testing.T) {
	s := NewState(1, map[string]float64{"gauge": 95})
	s.SetRules([]Rule{
		{
			Name: "first", WatchVar: "gauge", Threshold: 90, Above: true,
			Adjust: map[string]float64{"gauge": -50},
		},
		{
			// Sees the value only after "first" already pulled it down.
			Name: "second", WatchVar: "gauge", Threshold: 90, Above: true,
			Adjust: map[string]float64{"gauge": -50},
		},
	})

	effects := s.Update(0.0)
	require.Len(t, effects, 1)
	require.Equal(t, "first", effects[0].Rule)
}

func TestProbabilisticRuleEventuallyFires(t *testing.T) {
	s := NewState(3, map[string]float64{"spikes": 0})
	s.SetRules([]Rule{{
		Name:        "spike",
		Probability: 0.5,
		Adjust:      map[string]float64{"spikes": 1},
	}})

	fired := 0
	for i := 0; i < 200; i++ {
		fired += len(s.Update(0.0))
	}
	require.Greater(t, fired, 50)
	require.Less(t, fired, 150)
}
