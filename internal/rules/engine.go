package rules

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/swarmsim/internal/types"
)

// ReflexConfidence is the confidence attached to every rule-produced
// action. Reflexes are fast and usually right, not certain.
const ReflexConfidence = 0.8

// Rule pairs a condition with an action template. Templates may embed
// {{field}} placeholders resolved from the triggering stimulus.
type Rule struct {
	Name             string
	Condition        Condition
	Action           types.Action
	Priority         int  // higher fires first
	ContinueMatching bool // keep trying lower-priority rules after a match
}

// Engine matches stimuli against a fixed rule set.
type Engine struct {
	rules []Rule // kept sorted by descending priority
}

// NewEngine creates an engine over the given rules.
func NewEngine(rs ...Rule) *Engine {
	e := &Engine{}
	for _, r := range rs {
		e.Add(r)
	}
	return e
}

// Add inserts a rule, preserving descending priority order. Insertion
// order breaks priority ties, so matching stays deterministic.
func (e *Engine) Add(r Rule) {
	e.rules = append(e.rules, r)
	sort.SliceStable(e.rules, func(i, j int) bool {
		return e.rules[i].Priority > e.rules[j].Priority
	})
}

// Rules returns the rule set in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Match evaluates one stimulus against the rule set. The first matching
// rule's action template is instantiated and returned; rules marked
// ContinueMatching let lower-priority rules fire as well. A rule whose
// condition errors is skipped and logged, never aborting the cycle.
func (e *Engine) Match(s types.Stimulus) []types.Action {
	var out []types.Action
	for _, r := range e.rules {
		ok, err := r.Condition.evaluate(s)
		if err != nil {
			slog.Warn("rule condition failed, skipping",
				"rule", r.Name, "stimulus", s.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		out = append(out, instantiate(r, s))
		if !r.ContinueMatching {
			break
		}
	}
	return out
}

// MatchAll processes each stimulus independently and concatenates the
// resulting actions.
func (e *Engine) MatchAll(stimuli []types.Stimulus) []types.Action {
	var out []types.Action
	for _, s := range stimuli {
		out = append(out, e.Match(s)...)
	}
	return out
}

// instantiate fills the rule's action template from the stimulus and
// tags the result with its provenance.
func instantiate(r Rule, s types.Stimulus) types.Action {
	a := r.Action
	a.ID = uuid.NewString()
	a.Target = substitute(a.Target, s)

	if len(r.Action.Content) > 0 {
		a.Content = make(map[string]any, len(r.Action.Content))
		for k, v := range r.Action.Content {
			if str, ok := v.(string); ok {
				a.Content[k] = substitute(str, s)
			} else {
				a.Content[k] = v
			}
		}
	}

	// Acknowledgement replies go back to whoever asked.
	if a.Target == "" && s.Kind == types.StimulusMessage {
		if ack, _ := s.Field("requires_ack").(bool); ack {
			a.Target = s.StringField("source")
		}
	}

	a.ProcessingMode = types.ModeReflexive
	if a.Confidence == 0 {
		a.Confidence = ReflexConfidence
	}
	a.RuleName = r.Name
	a.TriggeredBy = s.ID
	return a
}

// substitute replaces {{field}} placeholders with stimulus field values.
func substitute(template string, s types.Stimulus) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	out := template
	for field, value := range s.Fields {
		placeholder := "{{" + field + "}}"
		if strings.Contains(out, placeholder) {
			out = strings.ReplaceAll(out, placeholder, toString(value))
		}
	}
	out = strings.ReplaceAll(out, "{{id}}", s.ID)
	return out
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64)
	case int:
		return strconv.Itoa(s)
	default:
		return ""
	}
}
