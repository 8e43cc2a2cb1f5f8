package mqtt

import (
	"context"
	"time"
)

// QoS levels accepted by Publish and Subscribe.
const (
	AtMostOnce  = 0
	AtLeastOnce = 1
	ExactlyOnce = 2
)

// Message is a publication received on a subscribed topic.
type Message struct {
	Topic   string
	Payload []byte

	// Retained is set when the broker replayed a stored message on subscribe
	// rather than forwarding a fresh publication.
	Retained bool

	Received time.Time
}

// MessageHandler processes received messages. Messages of one subscription
// are handed over one at a time, in arrival order.
type MessageHandler func(ctx context.Context, msg Message)

// SubscribeOption configures a subscription.
type SubscribeOption func(*SubscribeOptions)

// SubscribeOptions holds the optional settings of a subscription.
type SubscribeOptions struct {
	// Overflow receives the messages dropped because the handler fell too
	// far behind. It runs on its own goroutine, so it may publish.
	Overflow MessageHandler
}

// WithOverflow registers fn for messages the subscription had to drop.
func WithOverflow(fn MessageHandler) SubscribeOption {
	return func(o *SubscribeOptions) { o.Overflow = fn }
}

// NewSubscribeOptions applies opts to the zero options.
func NewSubscribeOptions(opts ...SubscribeOption) SubscribeOptions {
	var o SubscribeOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Client is the broker connection used by the pilot.
type Client interface {
	// Start connects in the background and returns immediately.
	// Use AwaitConnection to wait for the first connection.
	Start(ctx context.Context) error

	// Disconnect closes the connection and stops every subscription.
	Disconnect(ctx context.Context)

	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe registers handler for a topic filter. The subscription is
	// replayed after a reconnect. Subscribing again replaces the handler.
	Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler, opts ...SubscribeOption) error

	Unsubscribe(ctx context.Context, topic string) error

	// AwaitConnection blocks until the client is connected to the broker.
	AwaitConnection(ctx context.Context) error

	IsConnected() bool
}
