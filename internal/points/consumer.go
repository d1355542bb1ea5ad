package points

import (
	"context"

	"inabottle/internal/constants"
	"inabottle/internal/logger"
	"inabottle/pkg/events"
	"inabottle/pkg/metrics"
	"inabottle/pkg/retry"
)

// Consumer records points-queue events into the history collection.
type Consumer struct {
	repo   Repository
	logger logger.Logger
}

func NewConsumer(repo Repository, log logger.Logger) *Consumer {
	return &Consumer{repo: repo, logger: log}
}

func (c *Consumer) Handle(ctx context.Context, env events.Envelope) error {
	var entry PointsHistory
	if err := env.DecodePayload(&entry); err != nil {
		c.logger.WarnwCtx(ctx, "Rejecting points event", "error", err)
		return retry.NewFatalError(err)
	}
	if err := entry.Validate(); err != nil {
		c.logger.WarnwCtx(ctx, "Rejecting points event", "error", err)
		return retry.NewFatalError(err)
	}

	recorded, err := c.repo.Record(ctx, &entry)
	if err != nil {
		return err
	}

	if !recorded {
		metrics.IncPointsCredit(constants.ServicePoint, "duplicate")
		c.logger.InfowCtx(ctx, "Points event already recorded", "selector", entry.Selector)
		return nil
	}

	metrics.IncPointsCredit(constants.ServicePoint, "recorded")
	c.logger.InfowCtx(ctx, "Points recorded",
		"selector", entry.Selector,
		"created_by", entry.CreatedBy,
		"source_type", entry.TypeSource,
		"amount", entry.Amount)
	return nil
}
