package events

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/UkralStul/agora/internal/domain"
)

const subscriberBuffer = 64

// Hub hands events to live subscribers, e.g. websocket clients. A subscriber
// that cannot keep up loses events rather than stalling the ledger.
type Hub struct {
	mu sync.RWMutex
	//   map[entity] map[subscriberID] channel; "" subscribes to everything
	subs map[string]map[string]chan domain.Event
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[string]chan domain.Event),
	}
}

// Subscribe returns a channel of events for entity ("" for all). The
// subscription ends, and the channel is closed, when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, entity string) <-chan domain.Event {
	ch := make(chan domain.Event, subscriberBuffer)
	subID := uuid.NewString()

	h.mu.Lock()
	if h.subs[entity] == nil {
		h.subs[entity] = make(map[string]chan domain.Event)
	}
	h.subs[entity][subID] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if entitySubs, ok := h.subs[entity]; ok {
			delete(entitySubs, subID)
			if len(entitySubs) == 0 {
				delete(h.subs, entity)
			}
		}
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

func (h *Hub) Emit(_ context.Context, events []domain.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, e := range events {
		h.deliver(h.subs[""], e)
		h.deliver(h.subs[e.Entity], e)
	}
	return nil
}

func (h *Hub) deliver(subs map[string]chan domain.Event, e domain.Event) {
	for _, ch := range subs {
		select {
		case ch <- e:
		default:
			// slow subscriber
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, entitySubs := range h.subs {
		n += len(entitySubs)
	}
	return n
}
