package user

import (
	"context"
	"time"

	"github.com/google/uuid"

	"inabottle/pkg/errors"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) Create(ctx context.Context, u *User) (*User, error) {
	if err := prepare(u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.UpdatedAt = s.now().UTC()
	if err := s.repo.Insert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login registers the user on first sight and refreshes the profile on
// every later call.
func (s *Service) Login(ctx context.Context, u *User) (*User, error) {
	if err := prepare(u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.UpdatedAt = s.now().UTC()
	return s.repo.UpsertByEmail(ctx, u)
}

func (s *Service) Get(ctx context.Context, email string) (*User, error) {
	return s.repo.FindByEmail(ctx, NormalizeEmail(email))
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.FindAll(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func prepare(u *User) error {
	u.Email = NormalizeEmail(u.Email)
	if u.Email == "" {
		return errors.Invalid("email", "is required")
	}
	if u.ID != "" {
		if _, err := uuid.Parse(u.ID); err != nil {
			return errors.Invalid("id", "must be a UUID")
		}
	}
	// Balances only move through points events.
	u.Points = 0
	u.AppliedEvents = nil
	return nil
}
