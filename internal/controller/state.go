// Per-agent adaptive state: BDI bookkeeping, per-mode success rates,
// and the self-tuning cognitive threshold.
package controller

import (
	"time"

	"github.com/talgya/swarmsim/internal/types"
)

// Threshold bounds and adaptation step sizes. The threshold only ever
// moves inside [ThresholdFloor, ThresholdCap].
const (
	DefaultThreshold = 0.7
	ThresholdFloor   = 0.5
	ThresholdCap     = 0.8

	thresholdDecStep = 0.05
	thresholdIncStep = 0.02
)

// ModeHistoryCapacity bounds the mode-history ring buffer.
const ModeHistoryCapacity = 64

// RateCounter is a running success-rate average for one processing mode.
type RateCounter struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// observe folds one outcome into the running average.
func (r *RateCounter) observe(success bool) {
	s := 0.0
	if success {
		s = 1.0
	}
	r.Count++
	r.Rate = (r.Rate*float64(r.Count-1) + s) / float64(r.Count)
}

// AgentState is the in-memory contract for what persists across cycles:
// beliefs/desires/intentions, capabilities, success counters, threshold.
type AgentState struct {
	Beliefs      map[string]any `json:"beliefs"`
	Desires      []string       `json:"desires"`
	Intentions   []string       `json:"intentions"`
	Capabilities []string       `json:"capabilities"`

	CognitiveThreshold float64                       `json:"cognitive_threshold"`
	SuccessRates       map[types.Mode]*RateCounter `json:"success_rates"`
}

// NewAgentState creates state with the default threshold and fresh
// counters. A mode starts optimistic (rate 1.0 at count 0 would skew
// averages, so counters start empty and only observed outcomes count).
func NewAgentState() *AgentState {
	return &AgentState{
		Beliefs:            make(map[string]any),
		CognitiveThreshold: DefaultThreshold,
		SuccessRates: map[types.Mode]*RateCounter{
			types.ModeReflexive: {},
			types.ModeCognitive: {},
			types.ModeMixed:     {},
		},
	}
}

// rate returns the current success rate and observation count for a
// mode. Callers gate on the count so unseeded modes never drive
// adaptation.
func (s *AgentState) rate(mode types.Mode) (float64, int) {
	c := s.SuccessRates[mode]
	if c == nil {
		return 0, 0
	}
	return c.Rate, c.Count
}

// ModeHistoryEntry records one mode decision.
type ModeHistoryEntry struct {
	Mode       types.Mode `json:"mode"`
	Complexity float64    `json:"complexity"`
	Timestamp  time.Time  `json:"timestamp"`
}

// historyRing is a bounded ring of mode decisions, newest last.
type historyRing struct {
	buf   []ModeHistoryEntry
	next  int
	count int
}

func newHistoryRing(capacity int) *historyRing {
	return &historyRing{buf: make([]ModeHistoryEntry, capacity)}
}

func (h *historyRing) add(e ModeHistoryEntry) {
	h.buf[h.next] = e
	h.next = (h.next + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// recent returns up to n of the newest entries, oldest first.
func (h *historyRing) recent(n int) []ModeHistoryEntry {
	if n > h.count {
		n = h.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]ModeHistoryEntry, n)
	start := h.next - n
	if start < 0 {
		start += len(h.buf)
	}
	for i := 0; i < n; i++ {
		out[i] = h.buf[(start+i)%len(h.buf)]
	}
	return out
}
