package hub

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"inabottle/internal/config"
	"inabottle/internal/logger"
	apperrors "inabottle/pkg/errors"
)

// fakeRepository stores JSON copies and enforces the version check the
// Mongo repository performs.
type fakeRepository struct {
	mu       sync.Mutex
	hubs     map[string][]byte
	replaces int
	// conflicts makes the next n Replace calls lose the race against a
	// concurrent writer.
	conflicts int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{hubs: make(map[string][]byte)}
}

func (r *fakeRepository) load(id string) (*Hub, bool) {
	data, ok := r.hubs[id]
	if !ok {
		return nil, false
	}
	var h Hub
	if err := json.Unmarshal(data, &h); err != nil {
		panic(err)
	}
	return &h, true
}

func (r *fakeRepository) store(h *Hub) {
	data, err := json.Marshal(h)
	if err != nil {
		panic(err)
	}
	r.hubs[h.Selector] = data
}

func (r *fakeRepository) Insert(_ context.Context, h *Hub) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hubs[h.Selector]; ok {
		return apperrors.ErrConflict.WithDetail("resource", "hub")
	}
	r.store(h)
	return nil
}

func (r *fakeRepository) FindByID(_ context.Context, id string) (*Hub, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.load(id)
	if !ok {
		return nil, apperrors.NotFound("hub", id)
	}
	return h, nil
}

func (r *fakeRepository) FindAll(_ context.Context) ([]Hub, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Hub, 0, len(r.hubs))
	for id := range r.hubs {
		h, _ := r.load(id)
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Selector < out[j].Selector })
	return out, nil
}

func (r *fakeRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hubs[id]; !ok {
		return apperrors.NotFound("hub", id)
	}
	delete(r.hubs, id)
	return nil
}

func (r *fakeRepository) Replace(_ context.Context, h *Hub) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaces++

	stored, ok := r.load(h.Selector)
	if !ok {
		return apperrors.NotFound("hub", h.Selector)
	}
	if r.conflicts > 0 {
		r.conflicts--
		stored.Version++
		r.store(stored)
		return ErrVersionConflict
	}
	if stored.Version != h.Version {
		return ErrVersionConflict
	}

	next := *h
	next.Version++
	r.store(&next)
	h.Version = next.Version
	return nil
}

func (r *fakeRepository) replaceCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replaces
}

func testHubConfig(dedup bool) config.HubConfig {
	return config.HubConfig{
		Reactions: config.ReactionsConfig{Dedup: dedup},
		ConflictRetry: config.RetryConfig{
			MaxAttempts:     4,
			InitialInterval: time.Millisecond,
			MaxInterval:     2 * time.Millisecond,
			Multiplier:      2,
		},
	}
}

func newTestService(repo Repository, dedup bool) *Service {
	return NewService(repo, NewLocalLocker(), testHubConfig(dedup), logger.NopLogger())
}
