package user

import (
	"context"
	"sort"
	"sync"
	"time"

	"inabottle/internal/constants"
	apperrors "inabottle/pkg/errors"
)

type fakeRepository struct {
	mu      sync.Mutex
	byEmail map[string]*User
	err     error
}

func newFakeRepository(users ...User) *fakeRepository {
	r := &fakeRepository{byEmail: make(map[string]*User)}
	for i := range users {
		u := users[i]
		r.byEmail[u.Email] = &u
	}
	return r
}

func (r *fakeRepository) Insert(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return apperrors.ErrConflict.WithDetail("resource", "user")
	}
	cp := *u
	r.byEmail[u.Email] = &cp
	return nil
}

func (r *fakeRepository) UpsertByEmail(_ context.Context, u *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byEmail[u.Email]
	if !ok {
		cp := *u
		r.byEmail[u.Email] = &cp
		out := cp
		return &out, nil
	}
	if u.Name != "" {
		existing.Name = u.Name
	}
	if u.PhotoURL != "" {
		existing.PhotoURL = u.PhotoURL
	}
	if u.Cellphone != "" {
		existing.Cellphone = u.Cellphone
	}
	existing.UpdatedAt = u.UpdatedAt
	out := *existing
	return &out, nil
}

func (r *fakeRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, apperrors.NotFound("user", email)
	}
	out := *u
	return &out, nil
}

func (r *fakeRepository) FindAll(_ context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]User, 0, len(r.byEmail))
	for _, u := range r.byEmail {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *fakeRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for email, u := range r.byEmail {
		if u.ID == id {
			delete(r.byEmail, email)
			return nil
		}
	}
	return apperrors.NotFound("user", id)
}

func (r *fakeRepository) Touch(_ context.Context, email string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	u, ok := r.byEmail[email]
	if !ok {
		return apperrors.NotFound("user", email)
	}
	u.UpdatedAt = at
	return nil
}

func (r *fakeRepository) ApplyCredit(_ context.Context, email, eventID string, amount int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	u, ok := r.byEmail[email]
	if !ok {
		return false, apperrors.NotFound("user", email)
	}
	for _, id := range u.AppliedEvents {
		if id == eventID {
			return false, nil
		}
	}
	u.Points += amount
	u.AppliedEvents = append(u.AppliedEvents, eventID)
	if len(u.AppliedEvents) > constants.MaxAppliedEvents {
		u.AppliedEvents = u.AppliedEvents[len(u.AppliedEvents)-constants.MaxAppliedEvents:]
	}
	return true, nil
}
