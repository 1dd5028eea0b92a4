// Package outbox defines the event contract between the transactional
// services and the side-effect consumers.
package outbox

import "context"

// Event is a domain event identified by name.
type Event interface {
	EventName() string
}

// Handler consumes one event. Handler failures are logged by the
// dispatcher, never propagated to the publisher: notification side channels
// must be structurally incapable of unwinding a committed transaction.
type Handler func(ctx context.Context, e Event) error

// Publisher delivers an event to every subscriber of its name.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers a handler for an event name.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}
