package types

// Stimulus is one unit of input to a decision cycle: a message, a task,
// a nearby-agent sighting, or a detected conflict. Fields carries the
// kind-specific payload the rule engine matches against.
type Stimulus struct {
	ID     string         `json:"id"`
	Kind   string         `json:"kind"`
	Fields map[string]any `json:"fields"`
}

// Stimulus kinds.
const (
	StimulusMessage  = "message"
	StimulusTask     = "task"
	StimulusAgent    = "agent"
	StimulusConflict = "conflict"
)

// Message is an inbound communication from another agent or the outside.
type Message struct {
	ID           string `json:"id"`
	Performative string `json:"performative"` // inform, request, propose, negotiate, query...
	Source       string `json:"source"`
	Content      string `json:"content"`
	RequiresAck  bool   `json:"requires_ack"`
}

// Task is a pending unit of work assigned to the agent.
type Task struct {
	ID       string `json:"id"`
	Type     string `json:"type"`     // execution, coordination, negotiation, planning...
	Priority string `json:"priority"` // low, normal, high, critical
}

// Performatives that warrant deliberation rather than a reflex.
var DeliberativePerformatives = map[string]bool{
	"propose":   true,
	"negotiate": true,
	"query":     true,
}

// Task types that involve working with other agents.
var CoordinationTaskTypes = map[string]bool{
	"coordination": true,
	"negotiation":  true,
	"planning":     true,
}

// FromMessage wraps a message as a stimulus record.
func FromMessage(m Message) Stimulus {
	return Stimulus{
		ID:   m.ID,
		Kind: StimulusMessage,
		Fields: map[string]any{
			"performative": m.Performative,
			"source":       m.Source,
			"content":      m.Content,
			"requires_ack": m.RequiresAck,
		},
	}
}

// FromTask wraps a task as a stimulus record.
func FromTask(t Task) Stimulus {
	return Stimulus{
		ID:   t.ID,
		Kind: StimulusTask,
		Fields: map[string]any{
			"task_type": t.Type,
			"priority":  t.Priority,
		},
	}
}

// Field returns a stimulus field, or nil when absent.
func (s Stimulus) Field(name string) any {
	if s.Fields == nil {
		return nil
	}
	return s.Fields[name]
}

// StringField returns a stimulus field as a string, or "" when absent or
// not a string.
func (s Stimulus) StringField(name string) string {
	v, _ := s.Field(name).(string)
	return v
}
