// Package events provides the event bus infrastructure used for
// decoupled communication between modules. It is part of the platform
// layer and carries no business logic; domain event definitions live
// in internal/events.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event published on the bus.
type Event interface {
	// EventName uniquely identifies the event type, e.g. "followups.scheduled".
	EventName() string
	// OccurredAt reports when the event happened.
	OccurredAt() time.Time
}

// BaseEvent carries the fields shared by all events. Embed it in
// concrete event structs.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler processes events of a single type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts an ordinary function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes domain events to subscribed handlers.
type Bus interface {
	// Publish dispatches the event to every handler subscribed to its
	// name. Handlers run asynchronously; failures are logged, not
	// returned.
	Publish(ctx context.Context, event Event)

	// PublishSync dispatches the event and waits for all handlers,
	// returning the first handler error.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler for the given event name, which
	// must match Event.EventName() of the published event.
	Subscribe(eventName string, handler Handler)
}
