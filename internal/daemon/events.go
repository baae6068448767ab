package daemon

import "sync"

// Event is a daemon lifecycle notification. Names are stable strings
// (daemon_start, daemon_stop, model_loaded, model_unloaded,
// request_start, request_handled, request_failed); Fields carries
// event-specific key/value detail.
type Event struct {
	Name   string
	Fields map[string]any
}

// EventPublisher receives lifecycle events. Implementations must be
// safe for concurrent use and must not block the caller.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher drops all events. It is the default publisher.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// MemoryPublisher retains published events in memory for inspection.
// Intended for tests and debugging.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher constructs an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish appends the event to the in-memory list.
func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

// Events returns a copy of all events published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}
