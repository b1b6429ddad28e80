package realtime

import (
	"context"
	"sync"
)

const subscriberBuffer = 32

type subscriber struct {
	ch     chan ChangeEvent
	tables map[string]bool
}

// Hub fans change events out to in-process subscribers. Delivery is best
// effort: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[*subscriber]struct{})}
}

// Subscribe returns a channel of events for the given tables, or for every
// table when none are given. The channel is closed once ctx is done.
func (h *Hub) Subscribe(ctx context.Context, tables ...string) <-chan ChangeEvent {
	sub := &subscriber{ch: make(chan ChangeEvent, subscriberBuffer)}
	if len(tables) > 0 {
		sub.tables = make(map[string]bool, len(tables))
		for _, t := range tables {
			sub.tables[t] = true
		}
	}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subscribers, sub)
		close(sub.ch)
		h.mu.Unlock()
	}()

	return sub.ch
}

func (h *Hub) Publish(ev ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		if sub.tables != nil && !sub.tables[ev.Table] {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
