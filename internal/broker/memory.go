package broker

import (
	"context"
	"fmt"
	"sync"

	"inabottle/internal/logger"
	"inabottle/pkg/events"
	"inabottle/pkg/metrics"
	"inabottle/pkg/retry"
)

// MemoryBroker is an in-process exchange with the same fan-out, retry and
// dead-letter behaviour as the networked brokers. It backs tests and
// single-process runs.
type MemoryBroker struct {
	topology    Topology
	policy      retry.Policy
	logger      logger.Logger
	serviceName string

	mu          sync.Mutex
	queues      map[string]*memoryQueue
	published   []events.Envelope
	deadLetters map[string][]events.Envelope
	closed      bool
}

type memoryQueue struct {
	mu     sync.Mutex
	items  []events.Envelope
	notify chan struct{}
}

func newMemoryQueue() *memoryQueue {
	return &memoryQueue{notify: make(chan struct{}, 1)}
}

func (q *memoryQueue) push(env events.Envelope) {
	q.mu.Lock()
	q.items = append(q.items, env)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *memoryQueue) pop(ctx context.Context) (events.Envelope, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			env := q.items[0]
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				select {
				case q.notify <- struct{}{}:
				default:
				}
			}
			return env, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return events.Envelope{}, false
		case <-q.notify:
		}
	}
}

func (q *memoryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func NewMemoryBroker(topology Topology, policy retry.Policy, log logger.Logger) *MemoryBroker {
	queues := make(map[string]*memoryQueue, len(topology.Bindings))
	for _, b := range topology.Bindings {
		queues[b.Queue] = newMemoryQueue()
	}

	return &MemoryBroker{
		topology:    topology,
		policy:      policy,
		logger:      log,
		serviceName: "unknown",
		queues:      queues,
		deadLetters: make(map[string][]events.Envelope),
	}
}

func (b *MemoryBroker) SetServiceName(name string) {
	b.serviceName = name
}

func (b *MemoryBroker) Publish(ctx context.Context, routingKey string, env events.Envelope) error {
	if err := b.topology.CheckRoutingKey(routingKey); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	env.RoutingKey = routingKey

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("memory broker is closed")
	}
	b.published = append(b.published, env)
	b.mu.Unlock()

	for _, queue := range b.topology.QueuesFor(routingKey) {
		b.queues[queue].push(env)
	}

	metrics.IncPublished(b.serviceName, routingKey, "success", len(env.Payload))
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, queue string, handler HandlerFunc) error {
	q, ok := b.queues[queue]
	if !ok {
		return fmt.Errorf("queue %q is not bound on exchange %s", queue, b.topology.Exchange)
	}

	r := runner{service: b.serviceName, queue: queue, policy: b.policy, logger: b.logger}
	b.logger.Infow("Started consuming", "queue", queue, "service_name", b.serviceName)

	for {
		env, ok := q.pop(ctx)
		if !ok {
			b.logger.Infow("Stopped consuming", "queue", queue, "reason", "context canceled")
			return nil
		}

		msgCtx := r.messageContext(ctx, env)
		attempts, err := r.invokeWithRetry(msgCtx, env, handler)
		if err != nil {
			if ctx.Err() != nil {
				q.push(env)
				return nil
			}
			b.deadLetter(msgCtx, queue, env, err, attempts)
			continue
		}
		metrics.IncConsumed(b.serviceName, queue, "success")
	}
}

func (b *MemoryBroker) deadLetter(ctx context.Context, queue string, env events.Envelope, err error, attempts int) {
	reason := dlqReason(err)
	b.mu.Lock()
	b.deadLetters[queue] = append(b.deadLetters[queue], env.DeadLettered(queue, err, attempts))
	b.mu.Unlock()

	metrics.IncConsumed(b.serviceName, queue, "dead_lettered")
	metrics.IncDLQ(b.serviceName, queue, reason)
	b.logger.ErrorwCtx(ctx, "Message sent to DLQ", "reason", reason, "error", err)
}

// Published returns every envelope published with routingKey, in order.
func (b *MemoryBroker) Published(routingKey string) []events.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []events.Envelope
	for _, env := range b.published {
		if env.RoutingKey == routingKey {
			out = append(out, env)
		}
	}
	return out
}

func (b *MemoryBroker) DeadLetters(queue string) []events.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Envelope(nil), b.deadLetters[queue]...)
}

// Pending is the number of envelopes waiting on queue.
func (b *MemoryBroker) Pending(queue string) int {
	if q, ok := b.queues[queue]; ok {
		return q.len()
	}
	return 0
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}
