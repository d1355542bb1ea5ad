package broker

import (
	"context"
	"time"

	"inabottle/internal/config"
	"inabottle/internal/logger"
	"inabottle/pkg/errors"
	"inabottle/pkg/events"
	"inabottle/pkg/logging"
	"inabottle/pkg/metrics"
	"inabottle/pkg/retry"
)

// PolicyFromConfig maps broker.retry onto a retry policy, keeping defaults for
// unset fields.
func PolicyFromConfig(cfg config.RetryConfig) retry.Policy {
	policy := retry.Policy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
	}

	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialInterval > 0 {
		policy.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		policy.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		policy.Multiplier = cfg.Multiplier
	}
	if cfg.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = cfg.MaxElapsedTime
	}

	return policy
}

// runner invokes handlers for one queue with panic recovery, logging context
// and metrics. Implementations pick single-shot or in-process retry.
type runner struct {
	service string
	queue   string
	policy  retry.Policy
	logger  logger.Logger
}

func (r runner) messageContext(ctx context.Context, env events.Envelope) context.Context {
	if env.Metadata.TraceID != "" {
		ctx = logging.WithTraceID(ctx, env.Metadata.TraceID)
	}
	ctx = logging.WithMessageID(ctx, env.ID)
	ctx = logging.WithRoutingKey(ctx, env.RoutingKey)
	ctx = logging.WithQueue(ctx, r.queue)
	return logging.WithServiceName(ctx, r.service)
}

// invoke runs the handler once.
func (r runner) invoke(ctx context.Context, env events.Envelope, handler HandlerFunc) (err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.RecoverPanic(rec)
			r.logger.ErrorwCtx(ctx, "Panic recovered during message processing", "error", err)
		}
		metrics.ObserveProcessing(r.service, r.queue, time.Since(start))
	}()

	return handler(ctx, env)
}

// invokeWithRetry retries retryable failures in-process according to policy
// and reports how many attempts were made.
func (r runner) invokeWithRetry(ctx context.Context, env events.Envelope, handler HandlerFunc) (int, error) {
	attempt := 0
	err := retry.RetryWithCallback(ctx, r.policy, func() error {
		attempt++
		env.Metadata.Attempt = attempt
		return r.invoke(ctx, env, handler)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.IncRetry(r.service, r.queue)
		r.logger.WarnwCtx(ctx, "Retrying message processing",
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
		)
	})
	return attempt, err
}

func dlqReason(err error) string {
	if retry.IsFatal(err) {
		return "fatal"
	}
	return "max_retries_exceeded"
}
