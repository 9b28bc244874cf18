// Package event provides the in-process broadcast bus for session
// lifecycle events. The variant set is closed: listeners switch on the
// concrete type instead of matching stringly-typed event names.
package event

import (
	"sync"
	"time"
)

// Event is a session lifecycle broadcast. Implementations are the closed
// set of types below.
type Event interface {
	isEvent()
}

// LoggedOut announces an involuntary session end. Reason is the only
// context listeners get; they must not re-evaluate expiry themselves.
type LoggedOut struct {
	Reason string
}

// SessionWarning announces that the session will expire soon.
type SessionWarning struct {
	Remaining time.Duration
}

// AccessDenied is an auxiliary event from the surrounding application
// (e.g. an HTTP interceptor). The core only logs it.
type AccessDenied struct {
	Message string
}

// NetworkError is an auxiliary event from the surrounding application.
// The core only logs it.
type NetworkError struct {
	Message string
}

func (LoggedOut) isEvent()      {}
func (SessionWarning) isEvent() {}
func (AccessDenied) isEvent()   {}
func (NetworkError) isEvent()   {}

// Handler receives broadcast events.
type Handler func(Event)

// Bus is a fire-and-forget broadcast bus. Publish delivers to every
// subscriber synchronously; there is no acknowledgement and no delivery
// guarantee once a subscriber has unsubscribed.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]Handler)}
}

// Subscribe registers a handler and returns its unsubscribe function.
// Unsubscribe is idempotent.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers the event to all current subscribers. Handlers run on
// the publisher's goroutine; they must not block.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(e)
	}
}
