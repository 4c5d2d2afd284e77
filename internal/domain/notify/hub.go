// Package notify provides change subscriptions for the storefront state
// containers.
package notify

import "sync"

// Hub fans out events to subscribers. Publish never blocks on the hub lock
// while subscribers run, so a subscriber may read the publishing container.
type Hub[T any] struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(T)
}

// Subscribe registers fn and returns a function that removes it.
func (h *Hub[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs == nil {
		h.subs = make(map[int]func(T))
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers ev to every current subscriber.
func (h *Hub[T]) Publish(ev T) {
	h.mu.RLock()
	fns := make([]func(T), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
