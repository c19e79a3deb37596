package domain

import "time"

// EventType defines the category of an engine event.
type EventType string

const (
	EventCommandApplied  EventType = "command_applied"
	EventCommandRejected EventType = "command_rejected"
)

// CommandEvent reports the outcome of a single dispatch.
type CommandEvent struct {
	Timestamp        time.Time     `json:"timestamp"`
	Type             EventType     `json:"type"`
	Command          string        `json:"command"`
	Duration         time.Duration `json:"duration"`
	StructureChanged bool          `json:"structure_changed,omitempty"`
	Err              error         `json:"-"`
}

// Hooks defines callbacks for engine observability.
// Nil callbacks are skipped.
type Hooks struct {
	OnApplied  func(*CommandEvent)
	OnRejected func(*CommandEvent)
}

// Chain returns hooks that call h first and then next.
func (h Hooks) Chain(next Hooks) Hooks {
	return Hooks{
		OnApplied:  chain(h.OnApplied, next.OnApplied),
		OnRejected: chain(h.OnRejected, next.OnRejected),
	}
}

func chain(a, b func(*CommandEvent)) func(*CommandEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(e *CommandEvent) {
		a(e)
		b(e)
	}
}
