package controller

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/swarmsim/internal/types"
)

func TestBusDrainsOnRead(t *testing.T) {
	b := NewBus()
	b.Deliver("a1", types.Message{ID: "m1", Performative: "inform", Source: "a2"})
	b.Deliver("a1", types.Message{ID: "m2", Performative: "ping", Source: "a3"})
	b.Assign("a1", types.Task{ID: "t1", Type: "execution", Priority: "normal"})

	msgs := b.PendingMessages("a1")
	require.Len(t, msgs, 2)
	require.Equal(t, "m1", msgs[0].ID)
	require.Empty(t, b.PendingMessages("a1"), "reads drain the queue")

	tasks := b.PendingTasks("a1")
	require.Len(t, tasks, 1)
	require.Empty(t, b.PendingTasks("a1"))

	require.Empty(t, b.PendingMessages("someone-else"))
}
