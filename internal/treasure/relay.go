package treasure

import (
	"context"
	"time"

	"inabottle/internal/config"
	"inabottle/internal/logger"
	"inabottle/pkg/metrics"
)

// Relay republishes outbox entries that are still pending after the grace
// period, which covers publishes that failed or never ran because the
// process died between the insert and OnCreated.
type Relay struct {
	producer    *Producer
	repo        Repository
	interval    time.Duration
	grace       time.Duration
	maxAttempts int
	batchSize   int
	logger      logger.Logger
	now         func() time.Time
}

func NewRelay(producer *Producer, repo Repository, cfg config.OutboxConfig, log logger.Logger) *Relay {
	return &Relay{
		producer:    producer,
		repo:        repo,
		interval:    cfg.RelayInterval,
		grace:       cfg.GracePeriod,
		maxAttempts: cfg.MaxAttempts,
		batchSize:   cfg.BatchSize,
		logger:      log,
		now:         time.Now,
	}
}

// Run polls until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Infow("Outbox relay started", "interval", r.interval, "grace_period", r.grace)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Errorw("Outbox relay pass failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single relay pass and returns how many entries were
// published.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.grace)
	hunts, err := r.repo.FindPending(ctx, cutoff, r.batchSize)
	if err != nil {
		return 0, err
	}

	published, remaining := 0, 0
	for i := range hunts {
		hunt := &hunts[i]
		for _, entry := range hunt.Pending() {
			if entry.CreatedAt.After(cutoff) {
				remaining++
				continue
			}
			if r.maxAttempts > 0 && entry.Attempts >= r.maxAttempts {
				r.giveUp(ctx, hunt.Selector, entry)
				continue
			}
			if r.producer.Deliver(ctx, hunt.Selector, entry) {
				published++
			} else if entry.Status == OutboxPending {
				remaining++
			}
		}
	}

	metrics.SetOutboxPending(remaining)
	if published > 0 {
		r.logger.Infow("Outbox relay republished entries", "count", published, "still_pending", remaining)
	}
	return published, nil
}

func (r *Relay) giveUp(ctx context.Context, huntID string, entry *OutboxEntry) {
	entry.Status = OutboxFailed
	metrics.IncOutbox(entry.RoutingKey, "failed")
	r.logger.ErrorwCtx(ctx, "Outbox entry exceeded max attempts",
		"hunt_id", huntID, "event_id", entry.EventID, "attempts", entry.Attempts)

	if err := r.repo.RecordFailure(ctx, huntID, entry.EventID, "max attempts exceeded", true); err != nil {
		r.logger.ErrorwCtx(ctx, "Failed to mark outbox entry failed", "hunt_id", huntID, "event_id", entry.EventID, "error", err)
	}
}
