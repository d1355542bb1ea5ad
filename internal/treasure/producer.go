package treasure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"inabottle/internal/broker"
	"inabottle/internal/constants"
	"inabottle/internal/logger"
	"inabottle/pkg/events"
	"inabottle/pkg/metrics"
	"inabottle/pkg/tracing"
)

// Producer turns a created hunt into broker events. Prepare records the events
// in the hunt's outbox before the insert; OnCreated delivers them afterwards.
type Producer struct {
	publisher   broker.Publisher
	repo        Repository
	maxAttempts int
	logger      logger.Logger
	now         func() time.Time
}

func NewProducer(publisher broker.Publisher, repo Repository, maxAttempts int, log logger.Logger) *Producer {
	return &Producer{
		publisher:   publisher,
		repo:        repo,
		maxAttempts: maxAttempts,
		logger:      log,
		now:         time.Now,
	}
}

// Prepare assigns ids, stamps every embedded message with the hunt id and
// builds one outbox entry per event the hunt owes: the message batch when
// there are messages, the extra points credit when extraPoints is non-zero.
func (p *Producer) Prepare(hunt *TreasureHunt) error {
	now := p.now()
	if hunt.Selector == "" {
		hunt.Selector = uuid.NewString()
	}
	if hunt.CreatedAt == 0 {
		hunt.CreatedAt = now.UnixMilli()
	}

	for i := range hunt.Messages {
		msg := &hunt.Messages[i]
		if msg.Selector == "" {
			msg.Selector = uuid.NewString()
		}
		if msg.CreatedBy == "" {
			msg.CreatedBy = hunt.CreatedBy
		}
		if msg.CreatedAt == 0 {
			msg.CreatedAt = hunt.CreatedAt
		}
		msg.HuntID = hunt.Selector
	}

	hunt.Outbox = nil

	if len(hunt.Messages) > 0 {
		if err := p.addEntry(hunt, constants.RoutingKeyDirectMessageSave, hunt.Messages, now); err != nil {
			return err
		}
	}

	if hunt.ExtraPoints != nil && *hunt.ExtraPoints != 0 {
		credit := events.PointsEvent{
			Selector:   uuid.NewString(),
			CreatedBy:  hunt.CreatedBy,
			IDSource:   hunt.Selector,
			TypeSource: constants.SourceTypeTreasure,
			Amount:     *hunt.ExtraPoints,
		}
		if err := p.addEntry(hunt, constants.RoutingKeyPointsAdd, credit, now); err != nil {
			return err
		}
	}

	return nil
}

func (p *Producer) addEntry(hunt *TreasureHunt, routingKey string, payload interface{}, now time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", routingKey, err)
	}
	hunt.Outbox = append(hunt.Outbox, OutboxEntry{
		EventID:    uuid.NewString(),
		RoutingKey: routingKey,
		Payload:    data,
		Status:     OutboxPending,
		CreatedAt:  now.UTC(),
	})
	metrics.IncOutbox(routingKey, "created")
	return nil
}

// OnCreated publishes every pending entry of a hunt that has been persisted.
// Publish failures are recorded on the entry and never returned; the relay
// picks the entry up later.
func (p *Producer) OnCreated(ctx context.Context, hunt *TreasureHunt) *TreasureHunt {
	for _, entry := range hunt.Pending() {
		p.Deliver(ctx, hunt.Selector, entry)
	}
	return hunt
}

// Deliver makes one publish attempt for entry and records the outcome both on
// the entry and in the repository. It reports whether the publish succeeded.
func (p *Producer) Deliver(ctx context.Context, huntID string, entry *OutboxEntry) bool {
	err := p.publish(ctx, entry)
	entry.Attempts++

	if err == nil {
		at := p.now().UTC()
		entry.Status = OutboxPublished
		entry.PublishedAt = &at
		entry.LastError = ""
		metrics.IncOutbox(entry.RoutingKey, "published")

		if uerr := p.repo.MarkPublished(ctx, huntID, entry.EventID, at); uerr != nil {
			p.logger.ErrorwCtx(ctx, "Failed to mark outbox entry published",
				"hunt_id", huntID, "event_id", entry.EventID, "error", uerr)
		}
		return true
	}

	final := p.maxAttempts > 0 && entry.Attempts >= p.maxAttempts
	entry.LastError = err.Error()
	if final {
		entry.Status = OutboxFailed
		metrics.IncOutbox(entry.RoutingKey, "failed")
		p.logger.ErrorwCtx(ctx, "Giving up on outbox entry",
			"hunt_id", huntID, "event_id", entry.EventID, "routing_key", entry.RoutingKey,
			"attempts", entry.Attempts, "error", err)
	} else {
		metrics.IncOutbox(entry.RoutingKey, "attempt_failed")
		p.logger.WarnwCtx(ctx, "Failed to publish outbox entry, will retry",
			"hunt_id", huntID, "event_id", entry.EventID, "routing_key", entry.RoutingKey,
			"attempts", entry.Attempts, "error", err)
	}

	if uerr := p.repo.RecordFailure(ctx, huntID, entry.EventID, err.Error(), final); uerr != nil {
		p.logger.ErrorwCtx(ctx, "Failed to record outbox failure",
			"hunt_id", huntID, "event_id", entry.EventID, "error", uerr)
	}
	return false
}

func (p *Producer) publish(ctx context.Context, entry *OutboxEntry) error {
	env, err := events.NewEnvelopeBuilder().
		WithID(entry.EventID).
		WithRoutingKey(entry.RoutingKey).
		WithSource(constants.ServiceTreasureHunt).
		WithTimestamp(entry.CreatedAt).
		WithPayload(entry.Payload).
		WithTraceID(tracing.TraceID(ctx)).
		Build()
	if err != nil {
		return err
	}
	return p.publisher.Publish(ctx, entry.RoutingKey, env)
}
