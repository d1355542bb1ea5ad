package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"inabottle/internal/config"
	"inabottle/internal/logger"
	"inabottle/pkg/events"
	"inabottle/pkg/logging"
	"inabottle/pkg/metrics"
	"inabottle/pkg/retry"
	"inabottle/pkg/tracing"
)

// On JetStream the routing keys are the subjects of one stream, and each queue is a durable consumer filtered to the keys its
// patterns match. Retries are redeliveries driven by NakWithDelay.

// Limits retention keeps messages published before a queue's durable
// consumer first exists.
const streamMaxAge = 7 * 24 * time.Hour

type NATSBroker struct {
	cfg         config.NATSConfig
	topology    Topology
	policy      retry.Policy
	conn        *nats.Conn
	js          jetstream.JetStream
	logger      logger.Logger
	serviceName string

	mu        sync.Mutex
	consumers []jetstream.ConsumeContext
}

func NewNATSBroker(ctx context.Context, cfg config.NATSConfig, topology Topology, policy retry.Policy, log logger.Logger) (*NATSBroker, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(topology.Exchange),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnw("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Infow("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	b := &NATSBroker{
		cfg:         cfg,
		topology:    topology,
		policy:      policy,
		conn:        conn,
		js:          js,
		logger:      log,
		serviceName: "unknown",
	}

	if err := b.ensureStream(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return b, nil
}

func (b *NATSBroker) ensureStream(ctx context.Context) error {
	subjects := append([]string(nil), b.topology.RoutingKeys...)
	subjects = append(subjects, b.cfg.DLQPrefix+">")

	_, err := b.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        b.cfg.Stream,
		Description: "topic exchange " + b.topology.Exchange,
		Subjects:    subjects,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      streamMaxAge,
		Storage:     jetstream.FileStorage,
		Duplicates:  2 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", b.cfg.Stream, err)
	}
	return nil
}

func (b *NATSBroker) SetServiceName(name string) {
	b.serviceName = name
}

func (b *NATSBroker) Publish(ctx context.Context, routingKey string, env events.Envelope) error {
	if err := b.topology.CheckRoutingKey(routingKey); err != nil {
		return err
	}
	env.RoutingKey = routingKey
	return b.publish(ctx, routingKey, env)
}

func (b *NATSBroker) publish(ctx context.Context, subject string, env events.Envelope) error {
	body, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = body
	// JetStream drops a second publish with the same id inside the
	// duplicates window, which covers outbox relay re-sends.
	msg.Header.Set(jetstream.MsgIDHeader, subject+":"+env.ID)
	tracing.InjectNATSHeaders(ctx, msg.Header)

	if _, err := b.js.PublishMsg(ctx, msg); err != nil {
		metrics.IncPublished(b.serviceName, env.RoutingKey, "error", 0)
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	metrics.IncPublished(b.serviceName, env.RoutingKey, "success", len(body))
	return nil
}

func (b *NATSBroker) Subscribe(ctx context.Context, queue string, handler HandlerFunc) error {
	keys := b.topology.KeysFor(queue)
	if len(keys) == 0 {
		return fmt.Errorf("queue %q is not bound on exchange %s", queue, b.topology.Exchange)
	}

	consumer, err := b.js.CreateOrUpdateConsumer(ctx, b.cfg.Stream, jetstream.ConsumerConfig{
		Durable:        queue,
		FilterSubjects: keys,
		AckPolicy:      jetstream.AckExplicitPolicy,
		AckWait:        b.cfg.AckWait,
		MaxDeliver:     -1,
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", queue, err)
	}

	r := runner{service: b.serviceName, queue: queue, policy: b.policy, logger: b.logger}
	consumeCtx := logging.WithQueue(logging.WithServiceName(ctx, b.serviceName), queue)

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		b.handle(ctx, r, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", queue, err)
	}

	b.mu.Lock()
	b.consumers = append(b.consumers, cc)
	b.mu.Unlock()

	b.logger.InfowCtx(consumeCtx, "Started consuming", "subjects", keys)
	<-ctx.Done()
	cc.Stop()
	b.logger.InfowCtx(consumeCtx, "Stopped consuming", "reason", "context canceled")
	return nil
}

func (b *NATSBroker) handle(ctx context.Context, r runner, msg jetstream.Msg, handler HandlerFunc) {
	msgCtx, span := tracing.StartSpanFromNATSMessage(ctx, "nats.consume", msg.Headers())
	defer span.End()

	attempt := 1
	if meta, err := msg.Metadata(); err == nil {
		attempt = int(meta.NumDelivered)
	}

	env, err := events.Unmarshal(msg.Data())
	if err != nil {
		env = events.Envelope{RoutingKey: msg.Subject(), Payload: msg.Data()}
		b.deadLetter(r.messageContext(msgCtx, env), r.queue, msg, env, retry.NewFatalError(err), attempt)
		return
	}

	env.Metadata.Attempt = attempt
	msgCtx = r.messageContext(msgCtx, env)

	err = r.invoke(msgCtx, env, handler)
	switch {
	case err == nil:
		if ackErr := msg.Ack(); ackErr != nil {
			b.logger.ErrorwCtx(msgCtx, "Failed to ack message", "error", ackErr)
			return
		}
		metrics.IncConsumed(b.serviceName, r.queue, "success")
	case retry.IsFatal(err) || attempt >= b.policy.MaxAttempts:
		b.logger.ErrorwCtx(msgCtx, "Failed to process message", "error", err, "attempt", attempt)
		b.deadLetter(msgCtx, r.queue, msg, env, err, attempt)
	default:
		delay := b.policy.NextDelay(attempt)
		metrics.IncRetry(b.serviceName, r.queue)
		b.logger.WarnwCtx(msgCtx, "Retrying message processing",
			"attempt", attempt,
			"max_attempts", b.policy.MaxAttempts,
			"next_delay", delay,
			"error", err,
		)
		if nakErr := msg.NakWithDelay(delay); nakErr != nil {
			b.logger.ErrorwCtx(msgCtx, "Failed to nak message", "error", nakErr)
		}
	}
}

// deadLetter publishes to <dlq_prefix><queue> and terminates the original
// delivery. If the DLQ publish cannot complete the message is left unacked
// and redelivered after AckWait.
func (b *NATSBroker) deadLetter(ctx context.Context, queue string, msg jetstream.Msg, env events.Envelope, cause error, attempts int) {
	subject := b.cfg.DLQPrefix + queue
	dead := env.DeadLettered(queue, cause, attempts)

	err := retry.UntilDone(ctx, b.policy, func() error {
		return b.publish(ctx, subject, dead)
	})
	if err != nil {
		b.logger.ErrorwCtx(ctx, "Failed to send message to DLQ", "error", err, "dlq_subject", subject)
		return
	}

	if err := msg.Term(); err != nil {
		b.logger.ErrorwCtx(ctx, "Failed to terminate message", "error", err)
	}

	reason := dlqReason(cause)
	metrics.IncConsumed(b.serviceName, queue, "dead_lettered")
	metrics.IncDLQ(b.serviceName, queue, reason)
	b.logger.InfowCtx(ctx, "Message sent to DLQ", "dlq_subject", subject, "reason", reason, "error", cause)
}

// Ping reports whether the connection is usable, for health checks.
func (b *NATSBroker) Ping(_ context.Context) error {
	if !b.conn.IsConnected() {
		return fmt.Errorf("nats connection status %s", b.conn.Status())
	}
	return nil
}

func (b *NATSBroker) Close() error {
	b.mu.Lock()
	for _, cc := range b.consumers {
		cc.Stop()
	}
	b.consumers = nil
	b.mu.Unlock()

	return b.conn.Drain()
}
