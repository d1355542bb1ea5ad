package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"inabottle/internal/config"
	"inabottle/internal/constants"
	"inabottle/internal/logger"
	"inabottle/pkg/events"
	"inabottle/pkg/logging"
	"inabottle/pkg/metrics"
	"inabottle/pkg/retry"
	"inabottle/pkg/tracing"
)

// Kafka has no topic exchange, so each declared routing key is its own topic
// and each queue is a consumer group subscribed to the topics its patterns
// match. Both mappings are resolved from the topology at construction.

type KafkaBroker struct {
	cfg         config.KafkaConfig
	topology    Topology
	policy      retry.Policy
	writer      *kafka.Writer
	logger      logger.Logger
	serviceName string

	mu      sync.Mutex
	readers []*kafka.Reader
}

func NewKafkaBroker(cfg config.KafkaConfig, topology Topology, policy retry.Policy, log logger.Logger) *KafkaBroker {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           constants.KafkaBatchTimeout,
		WriteTimeout:           constants.KafkaWriteTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}

	return &KafkaBroker{
		cfg:         cfg,
		topology:    topology,
		policy:      policy,
		writer:      w,
		logger:      log,
		serviceName: "unknown",
	}
}

func (b *KafkaBroker) SetServiceName(name string) {
	b.serviceName = name
}

func (b *KafkaBroker) topic(routingKey string) string {
	return b.cfg.TopicPrefix + routingKey
}

func (b *KafkaBroker) dlqTopic(queue string) string {
	return b.cfg.TopicPrefix + queue + b.cfg.DLQSuffix
}

func (b *KafkaBroker) Publish(ctx context.Context, routingKey string, env events.Envelope) error {
	if err := b.topology.CheckRoutingKey(routingKey); err != nil {
		return err
	}
	env.RoutingKey = routingKey
	return b.write(ctx, b.topic(routingKey), env)
}

func (b *KafkaBroker) write(ctx context.Context, topic string, env events.Envelope) error {
	body, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	err = b.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(env.ID),
		Value:   body,
		Headers: tracing.InjectKafkaHeaders(ctx, nil),
		Time:    time.Now(),
	})
	if err != nil {
		metrics.IncPublished(b.serviceName, env.RoutingKey, "error", 0)
		return fmt.Errorf("failed to write kafka message to %s: %w", topic, err)
	}

	metrics.IncPublished(b.serviceName, env.RoutingKey, "success", len(body))
	return nil
}

func (b *KafkaBroker) Subscribe(ctx context.Context, queue string, handler HandlerFunc) error {
	keys := b.topology.KeysFor(queue)
	if len(keys) == 0 {
		return fmt.Errorf("queue %q is not bound on exchange %s", queue, b.topology.Exchange)
	}

	topics := make([]string, len(keys))
	for i, key := range keys {
		topics[i] = b.topic(key)
	}

	b.logger.Infow("Creating Kafka reader",
		"queue", queue,
		"topics", topics,
		"brokers", b.cfg.Brokers,
		"service_name", b.serviceName,
	)

	readerCfg := kafka.ReaderConfig{
		Brokers:     b.cfg.Brokers,
		GroupID:     queue,
		GroupTopics: topics,
		MinBytes:    b.cfg.MinBytes,
		MaxBytes:    b.cfg.MaxBytes,
	}
	if readerCfg.MinBytes == 0 {
		readerCfg.MinBytes = 1
	}
	if readerCfg.MaxBytes == 0 {
		readerCfg.MaxBytes = 10e6
	}
	reader := kafka.NewReader(readerCfg)

	b.mu.Lock()
	b.readers = append(b.readers, reader)
	b.mu.Unlock()

	r := runner{service: b.serviceName, queue: queue, policy: b.policy, logger: b.logger}
	consumeCtx := logging.WithQueue(logging.WithServiceName(ctx, b.serviceName), queue)
	b.logger.InfowCtx(consumeCtx, "Started consuming")

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.InfowCtx(consumeCtx, "Stopped consuming", "reason", "context canceled")
				return nil
			}
			b.logger.ErrorwCtx(consumeCtx, "Error fetching kafka message", "error", err)
			time.Sleep(constants.KafkaFetchBackoff)
			continue
		}

		if !b.handle(ctx, r, m, handler) {
			// Shutdown interrupted dead-lettering; leave the offset uncommitted
			// so the message is redelivered to the next group member.
			return nil
		}

		if err := reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			b.logger.ErrorwCtx(consumeCtx, "Failed to commit message", "error", err, "offset", m.Offset)
		}
	}
}

// handle processes one message and reports whether its offset may be committed.
func (b *KafkaBroker) handle(ctx context.Context, r runner, m kafka.Message, handler HandlerFunc) bool {
	msgCtx, span := tracing.StartSpanFromKafkaMessage(ctx, "kafka.consume", m.Headers)
	defer span.End()

	env, err := events.Unmarshal(m.Value)
	if err != nil {
		env = events.Envelope{ID: string(m.Key), RoutingKey: m.Topic, Payload: m.Value}
		return b.sendToDLQ(r.messageContext(msgCtx, env), r.queue, env, retry.NewFatalError(err), 1)
	}

	msgCtx = r.messageContext(msgCtx, env)
	attempts, err := r.invokeWithRetry(msgCtx, env, handler)
	if err == nil {
		metrics.IncConsumed(b.serviceName, r.queue, "success")
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	b.logger.ErrorwCtx(msgCtx, "Failed to process message after retries", "error", err, "attempts", attempts)
	return b.sendToDLQ(msgCtx, r.queue, env, err, attempts)
}

// sendToDLQ blocks until the dead-letter write succeeds or ctx is cancelled;
// committing before that would lose the message.
func (b *KafkaBroker) sendToDLQ(ctx context.Context, queue string, env events.Envelope, cause error, attempts int) bool {
	dead := env.DeadLettered(queue, cause, attempts)
	topic := b.dlqTopic(queue)

	err := retry.UntilDone(ctx, b.policy, func() error {
		if err := b.write(ctx, topic, dead); err != nil {
			b.logger.WarnwCtx(ctx, "Failed to send message to DLQ, retrying", "error", err, "dlq_topic", topic)
			return err
		}
		return nil
	})
	if err != nil {
		return false
	}

	reason := dlqReason(cause)
	metrics.IncConsumed(b.serviceName, queue, "dead_lettered")
	metrics.IncDLQ(b.serviceName, queue, reason)
	b.logger.InfowCtx(ctx, "Message sent to DLQ", "dlq_topic", topic, "reason", reason, "error", cause)
	return true
}

// Ping dials the first reachable seed broker, for health checks.
func (b *KafkaBroker) Ping(ctx context.Context) error {
	var lastErr error
	for _, addr := range b.cfg.Brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no kafka brokers configured")
	}
	return fmt.Errorf("kafka unreachable: %w", lastErr)
}

func (b *KafkaBroker) Close() error {
	var firstErr error

	b.mu.Lock()
	for _, r := range b.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	b.readers = nil
	b.mu.Unlock()

	if err := b.writer.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
