package directmessage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"inabottle/pkg/errors"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, msg *DirectMessage) (*DirectMessage, error) {
	if msg.Selector == "" {
		msg.Selector = uuid.NewString()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().UnixMilli()
	}
	if err := msg.Validate(); err != nil {
		return nil, errors.ErrValidation.WithCause(err)
	}
	if err := s.repo.Save(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Service) Get(ctx context.Context, id string) (*DirectMessage, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, huntID string) ([]DirectMessage, error) {
	return s.repo.Find(ctx, huntID)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
