package events

import (
	"sync"
	"testing"
	"time"

	"github.com/mrhavens/becomingone/internal/shared"
)

func TestSubscribeReceivesMatchingType(t *testing.T) {
	bus := New()
	defer bus.Close()

	sub := bus.Subscribe(shared.EventOscillatorCollapse)
	bus.EmitCollapse("slow", 0.95)

	select {
	case event := <-sub.C:
		if event.Type != shared.EventOscillatorCollapse {
			t.Errorf("expected %s, got %s", shared.EventOscillatorCollapse, event.Type)
		}
		if event.Payload["oscillator"] != "slow" {
			t.Errorf("expected oscillator slow, got %v", event.Payload["oscillator"])
		}
		if event.Payload["coherence"] != 0.95 {
			t.Errorf("expected coherence 0.95, got %v", event.Payload["coherence"])
		}
	case <-time.After(time.Second):
		t.Fatal("expected event, got none")
	}
}

func TestSubscribeIgnoresOtherTypes(t *testing.T) {
	bus := New()
	defer bus.Close()

	sub := bus.Subscribe(shared.EventSyncCollapse)
	bus.EmitCollapse("slow", 0.95)

	select {
	case event := <-sub.C:
		t.Errorf("expected no event, got %s", event.Type)
	default:
	}
}

func TestSubscribeAllReceivesEverything(t *testing.T) {
	bus := New()
	defer bus.Close()

	sub := bus.SubscribeAll()
	bus.EmitCollapse("slow", 0.95)
	bus.EmitInputSkipped("unreadable")
	bus.EmitConsolidated(10, 8, 3, 2, 1)

	for i := 0; i < 3; i++ {
		select {
		case <-sub.C:
		case <-time.After(time.Second):
			t.Fatalf("expected 3 events, got %d", i)
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	defer bus.Close()

	sub := bus.Subscribe(shared.EventMemoryEncoded)
	bus.Unsubscribe(sub)

	if _, ok := <-sub.C; ok {
		t.Error("expected closed channel after unsubscribe")
	}

	// Emitting after unsubscribe must not panic.
	bus.EmitEncoded("sig-1", 0.9, "identity")
}

func TestOnHandlerInvoked(t *testing.T) {
	bus := New()
	defer bus.Close()

	var wg sync.WaitGroup
	wg.Add(1)

	var mu sync.Mutex
	var received shared.Event
	bus.On(shared.EventSyncDissipated, func(event shared.Event) {
		mu.Lock()
		received = event
		mu.Unlock()
		wg.Done()
	})

	bus.EmitDissipation(shared.DissipationRecord{
		PhaseDifference: 0.5,
		SlowCoherence:   0.8,
		FastCoherence:   0.2,
		Reason:          "phase difference exceeds threshold",
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if received.Payload["phaseDifference"] != 0.5 {
		t.Errorf("expected phaseDifference 0.5, got %v", received.Payload["phaseDifference"])
	}
}

func TestEmitNonBlockingWhenFull(t *testing.T) {
	bus := New(WithBufferSize(1))
	defer bus.Close()

	sub := bus.Subscribe(shared.EventInputSkipped)

	// Second emit overflows the buffer and must be dropped, not stall.
	done := make(chan struct{})
	go func() {
		bus.EmitInputSkipped("first")
		bus.EmitInputSkipped("second")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a full subscriber channel")
	}

	event := <-sub.C
	if event.Payload["reason"] != "first" {
		t.Errorf("expected first event retained, got %v", event.Payload["reason"])
	}
	select {
	case extra := <-sub.C:
		t.Errorf("expected overflow event dropped, got %v", extra.Payload["reason"])
	default:
	}
}

func TestEmitStampsTimestamp(t *testing.T) {
	bus := New()
	defer bus.Close()

	sub := bus.SubscribeAll()
	bus.Emit(shared.Event{Type: shared.EventPipelineStarted})

	event := <-sub.C
	if event.Timestamp == 0 {
		t.Error("expected a non-zero timestamp")
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	bus := New()
	sub := bus.SubscribeAll()

	bus.Close()
	bus.Close() // idempotent

	if _, ok := <-sub.C; ok {
		t.Error("expected subscriber channel closed")
	}

	// Emitting after close must not panic.
	bus.EmitCollapse("slow", 0.9)
}

func TestEmitSyncCollapsePayload(t *testing.T) {
	bus := New()
	defer bus.Close()

	sub := bus.Subscribe(shared.EventSyncCollapse)
	bus.EmitSyncCollapse(0.85, 0.02)

	event := <-sub.C
	if event.Payload["combinedCoherence"] != 0.85 {
		t.Errorf("expected combinedCoherence 0.85, got %v", event.Payload["combinedCoherence"])
	}
	if event.Payload["phaseDifference"] != 0.02 {
		t.Errorf("expected phaseDifference 0.02, got %v", event.Payload["phaseDifference"])
	}
}
