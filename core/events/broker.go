package events

import (
	"sync"

	"omenchain/core/types"
)

// payloadEvent is implemented by events that can render a canonical payload.
type payloadEvent interface {
	Event() *types.Event
}

// StoredEvent is an emitted event paired with its position in the stream.
type StoredEvent struct {
	Sequence uint64       `json:"sequence"`
	Payload  *types.Event `json:"payload"`
}

// Broker is an in-process Emitter that keeps a bounded backlog and fans
// events out to live subscribers (the RPC websocket stream). Slow
// subscribers are dropped rather than allowed to block the processor.
type Broker struct {
	mu       sync.Mutex
	backlog  []StoredEvent
	capacity int
	seq      uint64
	subs     map[uint64]chan StoredEvent
	nextSub  uint64
}

// NewBroker creates a broker retaining at most capacity past events.
func NewBroker(capacity int) *Broker {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Broker{capacity: capacity, subs: make(map[uint64]chan StoredEvent)}
}

// Emit implements the Emitter interface.
func (b *Broker) Emit(ev Event) {
	if b == nil || ev == nil {
		return
	}
	payload := &types.Event{Type: ev.EventType(), Attributes: map[string]string{}}
	if pe, ok := ev.(payloadEvent); ok {
		if rendered := pe.Event(); rendered != nil {
			payload = rendered
		}
	}
	b.mu.Lock()
	b.seq++
	stored := StoredEvent{Sequence: b.seq, Payload: payload}
	b.backlog = append(b.backlog, stored)
	if len(b.backlog) > b.capacity {
		b.backlog = b.backlog[len(b.backlog)-b.capacity:]
	}
	for id, ch := range b.subs {
		select {
		case ch <- stored:
		default:
			delete(b.subs, id)
			close(ch)
		}
	}
	b.mu.Unlock()
}

// Subscribe returns the retained events after the cursor plus a live channel
// for subsequent ones. The cancel function must be called when the consumer
// goes away.
func (b *Broker) Subscribe(cursor uint64) ([]StoredEvent, <-chan StoredEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var backlog []StoredEvent
	for _, stored := range b.backlog {
		if stored.Sequence > cursor {
			backlog = append(backlog, stored)
		}
	}
	ch := make(chan StoredEvent, 256)
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	cancel := func() {
		b.mu.Lock()
		if live, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(live)
		}
		b.mu.Unlock()
	}
	return backlog, ch, cancel
}
