package app

import (
	"sync"

	"adaptive-quiz-service/internal/domain"
)

// RoomHub fans room snapshots out to in-process subscribers, keyed by room code.
// Snapshots are shared between subscribers and must be treated as read only.
type RoomHub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.Room]struct{}
}

func NewRoomHub() *RoomHub {
	return &RoomHub{
		subscribers: make(map[string]map[chan domain.Room]struct{}),
	}
}

// Subscribe registers a channel for code and primes it with initial.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *RoomHub) Subscribe(code string, initial domain.Room) (<-chan domain.Room, func()) {
	ch := make(chan domain.Room, 8)

	h.mu.Lock()
	set, ok := h.subscribers[code]
	if !ok {
		set = make(map[chan domain.Room]struct{})
		h.subscribers[code] = set
	}
	set[ch] = struct{}{}
	// Primed under the lock so no Publish can overtake the initial snapshot.
	ch <- initial
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		set, ok := h.subscribers[code]
		if !ok {
			return
		}
		if _, ok := set[ch]; ok {
			delete(set, ch)
			close(ch)
		}
		if len(set) == 0 {
			delete(h.subscribers, code)
		}
	}
	return ch, cancel
}

func (h *RoomHub) HasSubscribers(code string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[code]) > 0
}

// Publish delivers room to every subscriber of its code. A subscriber that has
// fallen behind loses its oldest pending snapshot rather than blocking the publisher.
func (h *RoomHub) Publish(room domain.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[room.ID] {
		select {
		case ch <- room:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- room
		}
	}
}
