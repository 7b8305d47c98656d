package core

import (
	"sync"

	"github.com/spaghettifunk/ember/engine/containers"
)

// System event codes posted by the platform layer.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EventQuit SystemEventCode = iota + 1
	// Resized/resolution changed from the OS. Width and Height carry the new
	// framebuffer size, which may be zero while minimized.
	EventResized
)

func (c SystemEventCode) String() string {
	switch c {
	case EventQuit:
		return "quit"
	case EventResized:
		return "resized"
	}
	return "unknown"
}

type Event struct {
	Code   SystemEventCode
	Width  uint32
	Height uint32
}

const maxPendingEvents = 256

// EventQueue buffers platform events between the window callbacks and the
// once-per-tick drain on the main loop.
type EventQueue struct {
	mu    sync.Mutex
	queue *containers.RingQueue[Event]
}

func NewEventQueue() *EventQueue {
	return &EventQueue{queue: containers.NewRingQueue[Event](maxPendingEvents)}
}

// Post enqueues an event. When the queue is full a new quit evicts the
// oldest pending event; anything else is dropped.
func (q *EventQueue) Post(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.queue.IsFull() {
		if e.Code != EventQuit {
			LogWarn("event queue full, dropping %s event", e.Code)
			return
		}
		_, _ = q.queue.Dequeue()
	}
	_ = q.queue.Enqueue(e)
}

// Drain hands every pending event to fn in arrival order.
func (q *EventQueue) Drain(fn func(Event)) {
	q.mu.Lock()
	pending := make([]Event, 0, q.queue.Len())
	for !q.queue.IsEmpty() {
		e, _ := q.queue.Dequeue()
		pending = append(pending, e)
	}
	q.mu.Unlock()

	for _, e := range pending {
		fn(e)
	}
}
