package people

import (
	"context"
	"log"
	"sync"
)

// Hub fans events out to in-process subscribers. Publish never blocks: a
// subscriber that cannot keep up misses events.
type Hub struct {
	mu     sync.Mutex
	buffer int
	subs   map[chan Event]struct{}
	closed bool

	// OnDrop and OnSubscribersChanged are optional hooks for metrics.
	OnDrop               func()
	OnSubscribersChanged func(n int)
}

// NewHub creates a hub whose subscriber channels hold buffer events.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		buffer: buffer,
		subs:   make(map[chan Event]struct{}),
	}
}

// Subscribe registers a subscriber until ctx is done. The returned channel is
// closed on unsubscribe or when the hub closes.
func (h *Hub) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch
	}
	h.subs[ch] = struct{}{}
	h.notifyCount()
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.unsubscribe(ch)
	}()
	return ch
}

// Publish delivers evt to every subscriber with buffer room.
func (h *Hub) Publish(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
			log.Printf("[hub] subscriber buffer full, dropping event %s", evt.ID)
			if h.OnDrop != nil {
				h.OnDrop()
			}
		}
	}
}

// Close closes every subscriber channel. Later subscribers get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
	h.notifyCount()
	h.mu.Unlock()
}

func (h *Hub) unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subs, ch)
	close(ch)
	h.notifyCount()
	h.mu.Unlock()
}

// notifyCount must be called with mu held so counts are reported in order.
func (h *Hub) notifyCount() {
	if h.OnSubscribersChanged != nil {
		h.OnSubscribersChanged(len(h.subs))
	}
}
