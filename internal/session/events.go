// Package session issues, verifies and revokes sign-in sessions and broadcasts auth events.
package session

import (
	"sync"

	"github.com/and161185/pinboard/internal/model"
)

// EventType names an auth state change.
type EventType int

const (
	// InitialSession is emitted the first time a valid token is seen by this process.
	InitialSession EventType = iota + 1
	SignedIn
	SignedOut
	TokenRefreshed
)

func (t EventType) String() string {
	switch t {
	case InitialSession:
		return "INITIAL_SESSION"
	case SignedIn:
		return "SIGNED_IN"
	case SignedOut:
		return "SIGNED_OUT"
	case TokenRefreshed:
		return "TOKEN_REFRESHED"
	default:
		return "UNKNOWN"
	}
}

// Event carries the session the change applies to. Session is never nil.
type Event struct {
	Type    EventType
	Session *model.Session
}

// Handler receives events synchronously on the publisher's goroutine.
type Handler func(Event)

type subscriber struct {
	id int
	fn Handler
}

// Hub fans events out to subscribers in registration order.
type Hub struct {
	mu   sync.Mutex
	next int
	subs []subscriber
}

// Subscribe registers fn and returns a function that removes it. Calling the returned func twice is safe.
func (h *Hub) Subscribe(fn Handler) func() {
	h.mu.Lock()
	h.next++
	id := h.next
	h.subs = append(h.subs, subscriber{id: id, fn: fn})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, s := range h.subs {
				if s.id == id {
					h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers e to a snapshot of the current subscribers.
// Handlers added or removed during delivery take effect on the next event.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	snapshot := make([]subscriber, len(h.subs))
	copy(snapshot, h.subs)
	h.mu.Unlock()

	for _, s := range snapshot {
		s.fn(e)
	}
}
