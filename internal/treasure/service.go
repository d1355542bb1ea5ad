package treasure

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"inabottle/internal/logger"
	"inabottle/pkg/errors"
)

type Service struct {
	repo     Repository
	producer *Producer
	logger   logger.Logger
}

func NewService(repo Repository, producer *Producer, log logger.Logger) *Service {
	return &Service{
		repo:     repo,
		producer: producer,
		logger:   log,
	}
}

// Create persists the hunt together with its outbox and then publishes the
// outbox. Only the insert can fail the call.
func (s *Service) Create(ctx context.Context, hunt *TreasureHunt) (*TreasureHunt, error) {
	if hunt.CreatedBy == "" {
		return nil, errors.Invalid("createdBy", "is required")
	}
	if err := validateSelectors(hunt); err != nil {
		return nil, err
	}
	if err := s.producer.Prepare(hunt); err != nil {
		return nil, errors.ErrValidation.WithCause(err)
	}
	// Consumers reject the whole batch for one bad message, so the batch is
	// checked here where the client can still be told.
	for i := range hunt.Messages {
		if err := hunt.Messages[i].Validate(); err != nil {
			return nil, errors.Invalid(fmt.Sprintf("messages[%d]", i), err.Error())
		}
	}
	if err := s.repo.Insert(ctx, hunt); err != nil {
		return nil, err
	}

	s.logger.InfowCtx(ctx, "Treasure hunt created",
		"hunt_id", hunt.Selector, "messages", len(hunt.Messages), "outbox_entries", len(hunt.Outbox))

	return s.producer.OnCreated(ctx, hunt), nil
}

// validateSelectors rejects client-supplied ids that are not UUIDs. Missing
// ids are filled in by Prepare.
func validateSelectors(hunt *TreasureHunt) error {
	if hunt.Selector != "" {
		if _, err := uuid.Parse(hunt.Selector); err != nil {
			return errors.Invalid("selector", "must be a UUID")
		}
	}
	for i, msg := range hunt.Messages {
		if msg.Selector == "" {
			continue
		}
		if _, err := uuid.Parse(msg.Selector); err != nil {
			return errors.Invalid(fmt.Sprintf("messages[%d].selector", i), "must be a UUID")
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*TreasureHunt, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]TreasureHunt, error) {
	return s.repo.FindAll(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// PendingEvents lists every outbox entry not yet delivered, across hunts.
func (s *Service) PendingEvents(ctx context.Context) ([]PendingEntry, error) {
	hunts, err := s.repo.FindPending(ctx, time.Now(), 0)
	if err != nil {
		return nil, err
	}

	out := make([]PendingEntry, 0)
	for i := range hunts {
		for _, entry := range hunts[i].Pending() {
			out = append(out, PendingEntry{HuntID: hunts[i].Selector, OutboxEntry: *entry})
		}
	}
	return out, nil
}
