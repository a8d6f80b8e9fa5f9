// Package events is the in-process telemetry collaborator: a small
// pub/sub hub the engine publishes registration and pass/step events
// into, fire-and-forget. The watch TUI and the observability API
// consume it. A bounded replay buffer keeps recent events for clients
// that attach late.
package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Event types published by the engine.
const (
	TypePebbleRegistered    = "pebble.registered"
	TypeCementRegistered    = "cement.registered"
	TypeConstructRegistered = "construct.registered"
	TypePassStarted         = "pass.started"
	TypePassCompleted       = "pass.completed"
	TypePassFailed          = "pass.failed"
)

// Event is one published telemetry record. Data is a JSON payload.
type Event struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data"`
}

// Hub is an in-memory pub/sub hub with a bounded replay buffer.
type Hub struct {
	mu     sync.Mutex
	nextID int64
	buf    []Event
	cap    int

	subs      map[int]chan Event
	nextSubID int
}

// NewHub creates a hub whose replay buffer holds up to capacity events.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 128
	}
	return &Hub{
		buf:  make([]Event, 0, capacity),
		cap:  capacity,
		subs: make(map[int]chan Event),
	}
}

// Publish broadcasts an event to all subscribers and appends it to the
// replay buffer. Slow subscribers are skipped rather than blocking the
// publisher; publishing never fails.
func (h *Hub) Publish(eventType string, data any) {
	payload := json.RawMessage(`{}`)
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = b
		}
	}

	h.mu.Lock()
	h.nextID++
	ev := Event{
		ID:   h.nextID,
		Type: eventType,
		At:   time.Now().UTC(),
		Data: payload,
	}
	if len(h.buf) == h.cap {
		copy(h.buf, h.buf[1:])
		h.buf = h.buf[:h.cap-1]
	}
	h.buf = append(h.buf, ev)

	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	h.mu.Unlock()
}

// Subscribe registers a listener. The returned cancel func must be
// called to release it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	id := h.nextSubID
	h.nextSubID++
	ch := make(chan Event, 64)
	h.subs[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// SnapshotSince returns buffered events with ID > lastID, oldest first.
// lastID 0 returns the whole buffer.
func (h *Hub) SnapshotSince(lastID int64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Event, 0, len(h.buf))
	for _, ev := range h.buf {
		if ev.ID > lastID {
			out = append(out, ev)
		}
	}
	return out
}
