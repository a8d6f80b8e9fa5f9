package events

import (
	"testing"
	"time"
)

func TestPublishAndSubscribe(t *testing.T) {
	t.Parallel()

	hub := NewHub(8)
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish(TypePassStarted, map[string]any{"construct": "k"})

	select {
	case ev := <-ch:
		if ev.Type != TypePassStarted {
			t.Fatalf("unexpected event type %q", ev.Type)
		}
		if ev.ID != 1 {
			t.Fatalf("expected first event id 1, got %d", ev.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
}

func TestSnapshotSince(t *testing.T) {
	t.Parallel()

	hub := NewHub(8)
	hub.Publish(TypePebbleRegistered, nil)
	hub.Publish(TypeCementRegistered, nil)
	hub.Publish(TypeConstructRegistered, nil)

	all := hub.SnapshotSince(0)
	if len(all) != 3 {
		t.Fatalf("expected 3 buffered events, got %d", len(all))
	}

	tail := hub.SnapshotSince(2)
	if len(tail) != 1 || tail[0].Type != TypeConstructRegistered {
		t.Fatalf("unexpected tail: %+v", tail)
	}
}

func TestReplayBufferDropsOldest(t *testing.T) {
	t.Parallel()

	hub := NewHub(2)
	hub.Publish("a", nil)
	hub.Publish("b", nil)
	hub.Publish("c", nil)

	buf := hub.SnapshotSince(0)
	if len(buf) != 2 || buf[0].Type != "b" || buf[1].Type != "c" {
		t.Fatalf("expected oldest dropped, got %+v", buf)
	}
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	t.Parallel()

	hub := NewHub(4)
	_, cancel := hub.Subscribe()
	defer cancel()

	// Fill the subscriber channel far past its buffer; Publish must not
	// block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish("spam", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publisher blocked on slow subscriber")
	}
}

func TestCancelledSubscriberStopsReceiving(t *testing.T) {
	t.Parallel()

	hub := NewHub(4)
	ch, cancel := hub.Subscribe()
	cancel()

	hub.Publish("after-cancel", nil)

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after cancel")
	}
}
