package events

// Event represents a structured state change emitted by the core.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (RPC stream, metrics,
// indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events.
// Engines default to it so emission stays optional.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
