package hub

import (
	"context"
	"time"

	"github.com/google/uuid"

	"inabottle/internal/config"
	"inabottle/internal/logger"
	"inabottle/pkg/errors"
	"inabottle/pkg/metrics"
	"inabottle/pkg/retry"
)

// Service owns every write to a hub. Nested mutations take the per-hub
// lock, then read-modify-replace under a version check, retrying on
// conflict until the policy is exhausted.
type Service struct {
	repo   Repository
	locker Locker
	policy retry.Policy
	dedup  bool
	logger logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, locker Locker, cfg config.HubConfig, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		policy: retry.Policy{
			MaxAttempts:     cfg.ConflictRetry.MaxAttempts,
			InitialInterval: cfg.ConflictRetry.InitialInterval,
			MaxInterval:     cfg.ConflictRetry.MaxInterval,
			Multiplier:      cfg.ConflictRetry.Multiplier,
			MaxElapsedTime:  cfg.ConflictRetry.MaxElapsedTime,
		},
		dedup:  cfg.Reactions.Dedup,
		logger: log,
		now:    time.Now,
	}
}

func (s *Service) Create(ctx context.Context, h *Hub) (*Hub, error) {
	if err := s.prepare(h); err != nil {
		return nil, err
	}
	h.Version = 0
	if err := s.repo.Insert(ctx, h); err != nil {
		return nil, err
	}
	s.logger.InfowCtx(ctx, "Hub created", "hub_id", h.Selector, "messages", len(h.MessageChat))
	return h, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Hub, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Hub, error) {
	return s.repo.FindAll(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	release, err := s.locker.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer release()
	return s.repo.Delete(ctx, id)
}

// Update replaces the hub stored under id with h, creating it when absent.
func (s *Service) Update(ctx context.Context, id string, h *Hub) (*Hub, error) {
	h.Selector = id
	if err := s.prepare(h); err != nil {
		return nil, err
	}

	err := s.withLock(ctx, "update", id, func() error {
		current, err := s.repo.FindByID(ctx, id)
		if errors.IsNotFound(err) {
			h.Version = 0
			return s.repo.Insert(ctx, h)
		}
		if err != nil {
			return err
		}
		h.Version = current.Version
		return s.repo.Replace(ctx, h)
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// AppendMessage adds msg to the end of the hub's chat.
func (s *Service) AppendMessage(ctx context.Context, hubID string, msg *HubMessage) error {
	if msg.Selector == "" {
		msg.Selector = uuid.NewString()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = s.now().UnixMilli()
	}
	msg.normalize()

	return s.mutate(ctx, "append_message", hubID, func(h *Hub) bool {
		h.MessageChat = append(h.MessageChat, *msg)
		return true
	})
}

// AddReaction appends r to the first message with messageID. A missing
// message leaves the hub unchanged. With dedup enabled a reaction already
// present for the same creator and selector is not added twice.
func (s *Service) AddReaction(ctx context.Context, hubID, messageID string, r UserReaction) error {
	return s.mutate(ctx, "add_reaction", hubID, func(h *Hub) bool {
		m := h.message(messageID)
		if m == nil {
			return false
		}
		if s.dedup {
			for _, existing := range m.Reactions {
				if existing.Same(r) {
					return false
				}
			}
		}
		m.Reactions = append(m.Reactions, r)
		return true
	})
}

// RemoveReaction drops every reaction on the message that matches r's
// creator and reaction selector.
func (s *Service) RemoveReaction(ctx context.Context, hubID, messageID string, r UserReaction) error {
	return s.mutate(ctx, "remove_reaction", hubID, func(h *Hub) bool {
		m := h.message(messageID)
		if m == nil {
			return false
		}
		kept := m.Reactions[:0]
		for _, existing := range m.Reactions {
			if !existing.Same(r) {
				kept = append(kept, existing)
			}
		}
		changed := len(kept) != len(m.Reactions)
		m.Reactions = kept
		return changed
	})
}

// mutate loads the hub, applies fn and writes the result back when fn
// reports a change.
func (s *Service) mutate(ctx context.Context, op, hubID string, fn func(h *Hub) bool) error {
	return s.withLock(ctx, op, hubID, func() error {
		h, err := s.repo.FindByID(ctx, hubID)
		if err != nil {
			return err
		}
		h.normalize()
		if !fn(h) {
			return nil
		}
		return s.repo.Replace(ctx, h)
	})
}

func (s *Service) withLock(ctx context.Context, op, hubID string, attempt func() error) error {
	release, err := s.locker.Lock(ctx, hubID)
	if err != nil {
		metrics.IncHubMutation(op, "lock_timeout")
		return err
	}
	defer release()

	err = retry.RetryWithCallback(ctx, s.policy, func() error {
		err := attempt()
		if errors.IsConflict(err) {
			metrics.IncHubConflict(op)
		}
		// Not-found and validation errors are fatal and end the loop.
		return err
	}, func(n int, err error, next time.Duration) {
		s.logger.WarnwCtx(ctx, "Retrying hub write", "operation", op, "hub_id", hubID, "attempt", n, "error", err, "next_delay", next)
	})

	switch {
	case err == nil:
		metrics.IncHubMutation(op, "success")
	case errors.IsNotFound(err):
		metrics.IncHubMutation(op, "not_found")
	case errors.IsConflict(err):
		metrics.IncHubMutation(op, "conflict")
		s.logger.ErrorwCtx(ctx, "Hub write gave up after conflicts", "operation", op, "hub_id", hubID)
	default:
		metrics.IncHubMutation(op, "error")
	}
	return err
}

func (s *Service) prepare(h *Hub) error {
	if h.Selector == "" {
		h.Selector = uuid.NewString()
	} else if _, err := uuid.Parse(h.Selector); err != nil {
		return errors.Invalid("selector", "must be a UUID")
	}
	if h.CreatedAt == 0 {
		h.CreatedAt = s.now().UnixMilli()
	}
	h.normalize()
	for i := range h.MessageChat {
		if h.MessageChat[i].Selector == "" {
			h.MessageChat[i].Selector = uuid.NewString()
		}
	}
	return nil
}
