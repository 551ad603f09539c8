// Package events provides the engine's publish-subscribe event bus.
// Components emit structured events here instead of logging.
package events

import (
	"sync"

	"github.com/mrhavens/becomingone/internal/shared"
)

// Handler is a function that handles events.
type Handler func(event shared.Event)

// Subscription is a receive handle returned by Subscribe.
type Subscription struct {
	ID        int
	EventType shared.EventType
	C         <-chan shared.Event
}

// Bus is a channel-based publish-subscribe event bus. Emission is
// non-blocking: full subscriber channels drop events rather than stall
// the emitting tick.
type Bus struct {
	mu          sync.RWMutex
	nextID      int
	subscribers map[shared.EventType]map[int]chan shared.Event
	handlers    map[shared.EventType][]Handler
	bufferSize  int
	closed      bool
}

// Option configures the Bus.
type Option func(*Bus)

// WithBufferSize sets the subscriber channel buffer size.
func WithBufferSize(size int) Option {
	return func(b *Bus) {
		b.bufferSize = size
	}
}

// New creates a new Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subscribers: make(map[shared.EventType]map[int]chan shared.Event),
		handlers:    make(map[shared.EventType][]Handler),
		bufferSize:  100,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe creates a channel receiving events of the given type. The
// wildcard type "*" receives everything.
func (b *Bus) Subscribe(eventType shared.EventType) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan shared.Event, b.bufferSize)
	if b.subscribers[eventType] == nil {
		b.subscribers[eventType] = make(map[int]chan shared.Event)
	}
	b.nextID++
	b.subscribers[eventType][b.nextID] = ch

	return &Subscription{ID: b.nextID, EventType: eventType, C: ch}
}

// SubscribeAll creates a channel receiving all events.
func (b *Bus) SubscribeAll() *Subscription {
	return b.Subscribe("*")
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subscribers[sub.EventType]; ok {
		if ch, ok := subs[sub.ID]; ok {
			delete(subs, sub.ID)
			close(ch)
		}
	}
}

// On registers a handler for events of the given type. Handlers run on
// their own goroutine per event.
func (b *Bus) On(eventType shared.EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Emit publishes an event to all subscribers and handlers.
func (b *Bus) Emit(event shared.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = shared.Now()
	}

	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
		}
	}
	for _, ch := range b.subscribers["*"] {
		select {
		case ch <- event:
		default:
		}
	}

	for _, handler := range b.handlers[event.Type] {
		go handler(event)
	}
	for _, handler := range b.handlers["*"] {
		go handler(event)
	}
}

// Close closes every subscriber channel and stops the bus.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	b.subscribers = make(map[shared.EventType]map[int]chan shared.Event)
	b.handlers = make(map[shared.EventType][]Handler)
}

// ============================================================================
// Helper Emitters
// ============================================================================

// EmitCollapse emits an oscillator collapse event.
func (b *Bus) EmitCollapse(name string, coherence float64) {
	b.Emit(shared.Event{
		Type:      shared.EventOscillatorCollapse,
		Timestamp: shared.Now(),
		Payload: map[string]interface{}{
			"oscillator": name,
			"coherence":  coherence,
		},
	})
}

// EmitSyncCollapse emits a synchronized collapse event.
func (b *Bus) EmitSyncCollapse(coherence, phaseDifference float64) {
	b.Emit(shared.Event{
		Type:      shared.EventSyncCollapse,
		Timestamp: shared.Now(),
		Payload: map[string]interface{}{
			"combinedCoherence": coherence,
			"phaseDifference":   phaseDifference,
		},
	})
}

// EmitDissipation emits a dissipated-tick event.
func (b *Bus) EmitDissipation(record shared.DissipationRecord) {
	b.Emit(shared.Event{
		Type:      shared.EventSyncDissipated,
		Timestamp: shared.Now(),
		Payload: map[string]interface{}{
			"phaseDifference": record.PhaseDifference,
			"slowCoherence":   record.SlowCoherence,
			"fastCoherence":   record.FastCoherence,
			"reason":          record.Reason,
		},
	})
}

// EmitEncoded emits a signature-encoded event.
func (b *Bus) EmitEncoded(signatureID string, coherence float64, tier string) {
	b.Emit(shared.Event{
		Type:      shared.EventMemoryEncoded,
		Timestamp: shared.Now(),
		Payload: map[string]interface{}{
			"signatureId": signatureID,
			"coherence":   coherence,
			"tier":        tier,
		},
	})
}

// EmitConsolidated emits a consolidation report event.
func (b *Bus) EmitConsolidated(before, after, strengthened, pruned, echoes int) {
	b.Emit(shared.Event{
		Type:      shared.EventMemoryConsolidated,
		Timestamp: shared.Now(),
		Payload: map[string]interface{}{
			"before":       before,
			"after":        after,
			"strengthened": strengthened,
			"pruned":       pruned,
			"echoes":       echoes,
		},
	})
}

// EmitInputSkipped emits an event for an input dropped at the adapter
// boundary.
func (b *Bus) EmitInputSkipped(reason string) {
	b.Emit(shared.Event{
		Type:      shared.EventInputSkipped,
		Timestamp: shared.Now(),
		Payload: map[string]interface{}{
			"reason": reason,
		},
	})
}
