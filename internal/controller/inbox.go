// In-memory stimulus bus, the default StimulusSource. Production
// deployments can substitute a real message bus behind the same
// interface; this one also backs the tests and the demo runtime.
package controller

import (
	"sync"

	"github.com/talgya/swarmsim/internal/types"
)

// Bus queues messages and tasks per agent. Pending* calls drain the
// queue: each stimulus is offered to exactly one cycle.
type Bus struct {
	mu       sync.Mutex
	messages map[string][]types.Message
	tasks    map[string][]types.Task
}

// NewBus creates an empty stimulus bus.
func NewBus() *Bus {
	return &Bus{
		messages: make(map[string][]types.Message),
		tasks:    make(map[string][]types.Task),
	}
}

// Deliver queues a message for an agent.
func (b *Bus) Deliver(agentID string, m types.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages[agentID] = append(b.messages[agentID], m)
}

// Assign queues a task for an agent.
func (b *Bus) Assign(agentID string, t types.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks[agentID] = append(b.tasks[agentID], t)
}

// PendingMessages drains and returns the agent's queued messages.
func (b *Bus) PendingMessages(agentID string) []types.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.messages[agentID]
	delete(b.messages, agentID)
	return out
}

// PendingTasks drains and returns the agent's queued tasks.
func (b *Bus) PendingTasks(agentID string) []types.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.tasks[agentID]
	delete(b.tasks, agentID)
	return out
}
