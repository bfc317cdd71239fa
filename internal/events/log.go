package events

import (
	"sync"
	"time"

	"nami/promptsvc/internal/types"
)

// Log is a bounded in-memory record of gate activity, the operator's
// view of what the gate decided and why.
type Log struct {
	mu     sync.RWMutex
	events []types.Event
	max    int
}

func New(max int) *Log {
	if max <= 0 {
		max = 200
	}
	return &Log{max: max}
}

func (l *Log) Append(typ string, payload map[string]any) types.Event {
	evt := types.Event{Type: typ, Ts: time.Now().UTC(), Payload: payload}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, evt)
	// Cap total events to avoid unbounded growth
	if n := len(l.events); n > l.max {
		// Keep space for a single truncation warning so the total stays at max
		keep := l.max - 1
		dropped := n - keep
		l.events = append([]types.Event(nil), l.events[n-keep:]...)
		warn := types.Event{Type: "events_truncated", Ts: time.Now().UTC(), Payload: map[string]any{"dropped": dropped, "kept": keep}}
		l.events = append(l.events, warn)
	}
	return evt
}

func (l *Log) List() []types.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]types.Event, len(l.events))
	copy(out, l.events)
	return out
}
