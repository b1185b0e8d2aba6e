package env

import (
	"time"

	"github.com/google/uuid"

	"github.com/talgya/swarmsim/internal/types"
)

// Event log retention. The full log keeps EventRetention entries; a
// perception exposes at most PerceptionEventWindow of the newest.
const (
	EventRetention        = 256
	PerceptionEventWindow = 32
)

// eventLog is a fixed-capacity ring buffer of habitat events. Old
// entries are overwritten silently; agents only ever need the recent
// window and the persistence layer archives the rest as they are added.
type eventLog struct {
	buf   []types.Event
	next  int
	count int
	sink  func(types.Event)
}

func newEventLog(capacity int) *eventLog {
	return &eventLog{buf: make([]types.Event, capacity)}
}

// append adds an event, stamping id and timestamp if unset.
func (l *eventLog) append(ev types.Event) types.Event {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	l.buf[l.next] = ev
	l.next = (l.next + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
	if l.sink != nil {
		l.sink(ev)
	}
	return ev
}

// recent returns up to n of the newest events, oldest first.
func (l *eventLog) recent(n int) []types.Event {
	if n > l.count {
		n = l.count
	}
	if n <= 0 {
		return nil
	}

	out := make([]types.Event, n)
	start := l.next - n
	if start < 0 {
		start += len(l.buf)
	}
	for i := 0; i < n; i++ {
		out[i] = l.buf[(start+i)%len(l.buf)]
	}
	return out
}
