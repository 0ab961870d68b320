package bus

import "time"

// Lifecycle event types published by the world router.
const (
	EntityCreated    = "entity.created"
	EntityDeleted    = "entity.deleted"
	OperationEmitted = "operation.emitted"
	RouterFault      = "router.fault"
)

// EventBus is an in-process publish/subscribe notifier.
//
//   - Delivery is synchronous, in the publisher's goroutine.
//   - Handlers of one event type run in subscription order.
//   - Handler errors are joined and returned from Publish; delivery continues.
//   - A subscription cancelled during a delivery is skipped immediately; one
//     added during a delivery is first called on the next Publish.
type EventBus interface {
	// Publish delivers event to every active subscriber of event.Type().
	Publish(event Event) error
	// Subscribe registers handler for eventType.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels sub. A nil sub is ignored.
	Unsubscribe(sub Subscription) error
	// PublishBatch publishes events in order and joins their errors.
	PublishBatch(events ...Event) error
	// Metrics returns the delivery counters.
	Metrics() Metrics
}

// Event is an immutable notification.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type (
	// EventHandler is invoked once per delivered event.
	EventHandler func(event Event) error
	// EventFilter decides whether a subscriber sees an event.
	EventFilter func(event Event) bool
)

// Subscription is a registered handler.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	// Cancel stops delivery. Repeated calls are safe.
	Cancel() error
}

// Metrics are cumulative delivery counters.
type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}
