package rules

import "github.com/talgya/swarmsim/internal/types"

// Defaults returns the standing reflex set every agent starts with:
// acknowledge what demands acknowledgement, answer pings, accept plain
// work, and back off from contended pools. Priorities leave room for
// per-agent rules in between.
func Defaults() *Engine {
	return NewEngine(
		Rule{
			Name:     "ack_required",
			Priority: 100,
			Condition: Condition{
				"requires_ack": true,
			},
			Action: types.Action{
				Type: "communicate",
				Content: map[string]any{
					"message":      "ack {{id}}",
					"performative": "acknowledge",
				},
			},
		},
		Rule{
			Name:     "answer_ping",
			Priority: 90,
			Condition: Condition{
				"performative": "ping",
			},
			Action: types.Action{
				Target: "{{source}}",
				Type:   "communicate",
				Content: map[string]any{
					"message":      "pong",
					"performative": "inform",
				},
			},
		},
		Rule{
			Name:     "accept_plain_task",
			Priority: 50,
			Condition: Condition{
				"task_type": Op(OpIn, []any{"execution", "io", "compute"}),
				"priority":  Op(OpNEQ, "critical"),
			},
			Action: types.Action{
				Type: "allocate_resource",
				Content: map[string]any{
					"resources": map[string]any{"compute": 5.0},
				},
			},
		},
		Rule{
			Name:     "shed_contended_pool",
			Priority: 80,
			Condition: Condition{
				"utilization": Op(OpGTE, 0.9),
			},
			// No explicit amounts: release everything held and let the
			// next cycle re-acquire at a calmer utilization.
			Action: types.Action{
				Type: "release_resource",
			},
		},
	)
}
