package events

import (
	"context"
	"sync"
	"time"

	"followup_backend/platform/logger"
)

// handlerTimeout bounds asynchronous handler execution so a stuck handler
// cannot leak goroutines forever.
const handlerTimeout = 30 * time.Second

// InMemoryBus is a simple in-process event bus. Asynchronous delivery is
// fire-and-forget; handler errors are logged, never propagated to publishers.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish delivers the event to all subscribed handlers asynchronously.
func (b *InMemoryBus) Publish(_ context.Context, event Event) {
	b.mu.RLock()
	subscribed := make([]Handler, len(b.handlers[event.EventName()]))
	copy(subscribed, b.handlers[event.EventName()])
	b.mu.RUnlock()

	for _, handler := range subscribed {
		go func(h Handler) {
			ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
			defer cancel()
			if err := h.Handle(ctx, event); err != nil && b.log != nil {
				b.log.Error("event handler failed", "event", event.EventName(), "error", err)
			}
		}(handler)
	}
}

// PublishSync delivers the event to all subscribed handlers and returns the
// first handler error encountered.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	subscribed := make([]Handler, len(b.handlers[event.EventName()]))
	copy(subscribed, b.handlers[event.EventName()])
	b.mu.RUnlock()

	for _, handler := range subscribed {
		if err := handler.Handle(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// Compile-time check that InMemoryBus implements Bus.
var _ Bus = (*InMemoryBus)(nil)
