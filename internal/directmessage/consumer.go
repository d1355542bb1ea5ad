package directmessage

import (
	"context"

	"inabottle/internal/logger"
	"inabottle/pkg/events"
	"inabottle/pkg/retry"
)

// Consumer persists direct.message.* batches. A batch is converted as a
// whole: one malformed element rejects the batch, which is dead-lettered
// intact and nothing is written.
type Consumer struct {
	repo   Repository
	logger logger.Logger
}

func NewConsumer(repo Repository, log logger.Logger) *Consumer {
	return &Consumer{repo: repo, logger: log}
}

func (c *Consumer) Handle(ctx context.Context, env events.Envelope) error {
	msgs, err := events.DecodeDirectMessageBatch(env.Payload)
	if err != nil {
		c.logger.WarnwCtx(ctx, "Rejecting direct message batch", "error", err)
		return retry.NewFatalError(err)
	}

	if len(msgs) == 0 {
		c.logger.DebugwCtx(ctx, "Empty direct message batch")
		return nil
	}

	if err := c.repo.SaveAll(ctx, msgs); err != nil {
		return err
	}

	c.logger.InfowCtx(ctx, "Direct message batch saved", "count", len(msgs))
	return nil
}
