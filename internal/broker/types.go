package broker

import (
	"context"

	"inabottle/pkg/events"
)

// Publisher sends an envelope to the exchange under a routing key; every
// queue whose binding matches the key receives a copy.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, env events.Envelope) error
	Close() error
}

// Subscriber consumes one bound queue. Subscribe blocks until ctx is done.
// An envelope is acknowledged only after the handler returns nil; failures
// are retried with backoff and then dead-lettered.
type Subscriber interface {
	Subscribe(ctx context.Context, queue string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type Broker interface {
	Publisher
	Subscriber
}

type HandlerFunc func(ctx context.Context, env events.Envelope) error
