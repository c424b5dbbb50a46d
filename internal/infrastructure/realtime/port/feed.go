package port

import "context"

// Event is one change notification on a topic. Payload encoding is up to publishers.
type Event struct {
	Topic   string
	Payload []byte
}

// Subscription receives the events of one topic until closed.
type Subscription interface {
	// Events is closed once Close returns.
	Events() <-chan Event
	// Lagged fires when events were dropped because the subscriber fell behind.
	Lagged() <-chan struct{}
	// Close detaches the subscription. Safe to call multiple times.
	Close()
}

// ChangeFeed is the live-query primitive: publish changes, subscribe to topics.
type ChangeFeed interface {
	Publish(ctx context.Context, events ...Event) error
	Subscribe(topic string) Subscription
}
