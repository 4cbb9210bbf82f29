package memory

import (
	"context"
	"sync"

	"github.com/opsforge/coordd/pkg/domain"
	"github.com/opsforge/coordd/pkg/ports"
)

// InMemoryEventBus implements EventBus with in-process fan-out. Handlers
// run asynchronously; a slow subscriber never blocks a store mutation.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	nextID      int
	subscribers map[string]map[int]ports.EventHandler
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string]map[int]ports.EventHandler),
	}
}

// Publish delivers an event to every subscriber of the topic.
func (e *InMemoryEventBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	e.mu.RLock()
	handlers := make([]ports.EventHandler, 0, len(e.subscribers[topic]))
	for _, h := range e.subscribers[topic] {
		handlers = append(handlers, h)
	}
	e.mu.RUnlock()

	for _, handler := range handlers {
		go func(h ports.EventHandler) {
			_ = h(ctx, event)
		}(handler)
	}
	return nil
}

// Subscribe registers a handler for a topic. The subscription is removed
// when ctx is cancelled.
func (e *InMemoryEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	e.mu.Lock()
	if e.subscribers[topic] == nil {
		e.subscribers[topic] = make(map[int]ports.EventHandler)
	}
	id := e.nextID
	e.nextID++
	e.subscribers[topic][id] = handler
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.mu.Lock()
		delete(e.subscribers[topic], id)
		e.mu.Unlock()
	}()

	return nil
}

// Close drops all subscriptions.
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.subscribers = make(map[string]map[int]ports.EventHandler)
	return nil
}
