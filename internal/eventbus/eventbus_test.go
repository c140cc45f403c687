package eventbus_test

import (
	"testing"

	"github.com/gridopt/stochuc/core/lshaped"
	"github.com/gridopt/stochuc/core/model"
	"github.com/gridopt/stochuc/internal/eventbus"
)

func TestBusDeliversIterationEvents(t *testing.T) {
	bus := eventbus.New()
	ch := bus.Subscribe()

	bus.Publish(lshaped.IterationEvent{
		RunID:     "run-1",
		Iteration: 2,
		Bounds:    model.Bounds{Upper: 6.5, Lower: 6},
		Cuts:      8,
	})

	got, ok := (<-ch).(lshaped.IterationEvent)
	if !ok {
		t.Fatal("expected an IterationEvent")
	}
	if got.RunID != "run-1" || got.Iteration != 2 || got.Cuts != 8 {
		t.Fatalf("event = %+v", got)
	}
	if got.Bounds.Upper != 6.5 || got.Bounds.Lower != 6 {
		t.Fatalf("bounds = %+v", got.Bounds)
	}
	bus.Unsubscribe(ch)
}

func TestBusFansOutToAllSubscribers(t *testing.T) {
	bus := eventbus.New()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish(lshaped.RunEvent{RunID: "run-2", Converged: true, Objective: 6})

	for _, ch := range []<-chan eventbus.Event{a, b} {
		ev, ok := (<-ch).(lshaped.RunEvent)
		if !ok {
			t.Fatal("expected a RunEvent")
		}
		if ev.RunID != "run-2" || !ev.Converged {
			t.Fatalf("event = %+v", ev)
		}
	}
}

// Delivery is non-blocking: a subscriber that stops draining loses events
// beyond its buffer instead of stalling the driver.
func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := eventbus.New()
	ch := bus.Subscribe()

	for i := 0; i < 20; i++ {
		bus.Publish(lshaped.IterationEvent{Iteration: i})
	}

	delivered := 0
	for len(ch) > 0 {
		ev := (<-ch).(lshaped.IterationEvent)
		if ev.Iteration != delivered {
			t.Fatalf("event %d carries iteration %d", delivered, ev.Iteration)
		}
		delivered++
	}
	if delivered == 0 || delivered >= 20 {
		t.Fatalf("delivered %d events, want a full but bounded buffer", delivered)
	}
}

func TestBusClose(t *testing.T) {
	bus := eventbus.New()
	a := bus.Subscribe()
	b := bus.Subscribe()
	bus.Close()

	if _, ok := <-a; ok {
		t.Fatal("expected first channel closed")
	}
	if _, ok := <-b; ok {
		t.Fatal("expected second channel closed")
	}
	// Publishing after close must be a no-op, not a panic.
	bus.Publish(lshaped.RunEvent{})
}

func TestBusUnsubscribeAfterClose(t *testing.T) {
	bus := eventbus.New()
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}
