package state

import (
	"sync"
	"time"
)

type EventType string

const (
	EventDriverStarted      EventType = "driver_started"
	EventDriverStopped      EventType = "driver_stopped"
	EventGenerationStarted  EventType = "generation_started"
	EventGenerationFinished EventType = "generation_finished"
)

// Event is one session state transition.
type Event struct {
	Type       EventType `json:"type"`
	ResponseID int64     `json:"response_id,omitempty"`
	Model      string    `json:"model,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
	At         time.Time `json:"at"`
}

// Bus fans session events out to subscribers. Publish never blocks: a
// subscriber that falls behind loses events rather than stalling the
// generation loop.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	closed bool
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a buffered listener. The channel closes with the bus.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *Bus) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
