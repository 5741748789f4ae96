package shared

import "context"

// EventHandler consumes the domain events raised by ledger writes.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error

	// EventTypes names the event types the handler wants. Nil or empty
	// subscribes it to everything, which is how the summary-cache
	// invalidator listens to the whole ledger.
	EventTypes() []string
}

// EventPublisher is the side the application services see: after a
// successful write they hand the aggregate's recorded events over and move
// on. Delivery is asynchronous and best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber registers handlers. Subscribing with no event types
// means the handler receives every event.
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is the full bus contract: publish, subscribe, and a lifecycle
// so in-flight deliveries drain on shutdown.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
