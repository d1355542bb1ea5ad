package user

import (
	"context"
	"fmt"
	"time"

	"inabottle/internal/broker"
	"inabottle/internal/constants"
	"inabottle/internal/logger"
	"inabottle/pkg/errors"
	"inabottle/pkg/events"
	"inabottle/pkg/metrics"
	"inabottle/pkg/retry"
)

// Consumer keeps user aggregates current from user-queue. Points events
// credit the balance; direct message batches mark their creators active.
type Consumer struct {
	repo   Repository
	logger logger.Logger
	now    func() time.Time
}

func NewConsumer(repo Repository, log logger.Logger) *Consumer {
	return &Consumer{repo: repo, logger: log, now: time.Now}
}

func (c *Consumer) Handle(ctx context.Context, env events.Envelope) error {
	switch {
	case broker.Match("points.#", env.RoutingKey):
		return c.handleCredit(ctx, env)
	case broker.Match("direct.message.#", env.RoutingKey):
		return c.handleMessages(ctx, env)
	default:
		return retry.NewFatalError(fmt.Errorf("unexpected routing key %q on %s", env.RoutingKey, constants.QueueUser))
	}
}

func (c *Consumer) handleCredit(ctx context.Context, env events.Envelope) error {
	var credit events.PointsEvent
	if err := env.DecodePayload(&credit); err != nil {
		return retry.NewFatalError(err)
	}
	if err := credit.Validate(); err != nil {
		return retry.NewFatalError(err)
	}

	email := NormalizeEmail(credit.CreatedBy)
	applied, err := c.repo.ApplyCredit(ctx, email, credit.Selector, credit.Amount)
	switch {
	case errors.IsNotFound(err):
		metrics.IncPointsCredit(constants.ServiceUser, "unknown_user")
		c.logger.WarnwCtx(ctx, "Dropping credit for unknown user",
			"created_by", credit.CreatedBy, "selector", credit.Selector, "amount", credit.Amount)
		return nil
	case err != nil:
		return err
	case !applied:
		metrics.IncPointsCredit(constants.ServiceUser, "duplicate")
		c.logger.InfowCtx(ctx, "Credit already applied", "created_by", credit.CreatedBy, "selector", credit.Selector)
		return nil
	}

	metrics.IncPointsCredit(constants.ServiceUser, "applied")
	c.logger.InfowCtx(ctx, "Credit applied", "created_by", credit.CreatedBy, "amount", credit.Amount)
	return nil
}

func (c *Consumer) handleMessages(ctx context.Context, env events.Envelope) error {
	msgs, err := events.DecodeDirectMessageBatch(env.Payload)
	if err != nil {
		return retry.NewFatalError(err)
	}

	seen := make(map[string]struct{}, len(msgs))
	at := c.now().UTC()
	for _, m := range msgs {
		email := NormalizeEmail(m.CreatedBy)
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}

		err := c.repo.Touch(ctx, email, at)
		if errors.IsNotFound(err) {
			c.logger.WarnwCtx(ctx, "Skipping unknown message creator", "created_by", m.CreatedBy)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}
