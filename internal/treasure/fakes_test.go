package treasure

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"inabottle/pkg/events"
	apperrors "inabottle/pkg/errors"
)

type fakeRepository struct {
	mu    sync.Mutex
	hunts map[string]TreasureHunt
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{hunts: make(map[string]TreasureHunt)}
}

// clone round-trips through JSON so callers never share slices with the store.
func clone(h TreasureHunt) TreasureHunt {
	data, _ := json.Marshal(h)
	var out TreasureHunt
	_ = json.Unmarshal(data, &out)
	return out
}

func (r *fakeRepository) Insert(_ context.Context, hunt *TreasureHunt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hunts[hunt.Selector]; ok {
		return apperrors.ErrConflict
	}
	r.hunts[hunt.Selector] = clone(*hunt)
	return nil
}

func (r *fakeRepository) FindByID(_ context.Context, id string) (*TreasureHunt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hunts[id]
	if !ok {
		return nil, apperrors.NotFound("treasure hunt", id)
	}
	out := clone(h)
	return &out, nil
}

func (r *fakeRepository) FindAll(_ context.Context) ([]TreasureHunt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TreasureHunt, 0, len(r.hunts))
	for _, h := range r.hunts {
		out = append(out, clone(h))
	}
	return out, nil
}

func (r *fakeRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hunts[id]; !ok {
		return apperrors.NotFound("treasure hunt", id)
	}
	delete(r.hunts, id)
	return nil
}

func (r *fakeRepository) update(huntID, eventID string, fn func(*OutboxEntry)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hunts[huntID]
	if !ok {
		return apperrors.NotFound("treasure hunt", huntID)
	}
	for i := range h.Outbox {
		if h.Outbox[i].EventID == eventID {
			fn(&h.Outbox[i])
			r.hunts[huntID] = h
			return nil
		}
	}
	return apperrors.NotFound("outbox entry", eventID)
}

func (r *fakeRepository) MarkPublished(_ context.Context, huntID, eventID string, at time.Time) error {
	return r.update(huntID, eventID, func(e *OutboxEntry) {
		e.Status = OutboxPublished
		e.PublishedAt = &at
		e.LastError = ""
		e.Attempts++
	})
}

func (r *fakeRepository) RecordFailure(_ context.Context, huntID, eventID, cause string, final bool) error {
	return r.update(huntID, eventID, func(e *OutboxEntry) {
		e.LastError = cause
		e.Attempts++
		if final {
			e.Status = OutboxFailed
		}
	})
}

func (r *fakeRepository) FindPending(_ context.Context, olderThan time.Time, limit int) ([]TreasureHunt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []TreasureHunt
	for _, h := range r.hunts {
		for _, e := range h.Outbox {
			if e.Status == OutboxPending && !e.CreatedAt.After(olderThan) {
				out = append(out, clone(h))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Selector < out[j].Selector })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type published struct {
	routingKey string
	env        events.Envelope
}

// fakePublisher records envelopes and fails while fail is set.
type fakePublisher struct {
	mu   sync.Mutex
	fail bool
	sent []published
}

func (p *fakePublisher) Publish(_ context.Context, routingKey string, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unreachable")
	}
	p.sent = append(p.sent, published{routingKey: routingKey, env: env})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) setFail(v bool) {
	p.mu.Lock()
	p.fail = v
	p.mu.Unlock()
}

func (p *fakePublisher) byKey(key string) []events.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Envelope
	for _, s := range p.sent {
		if s.routingKey == key {
			out = append(out, s.env)
		}
	}
	return out
}

func intPtr(v int) *int { return &v }
