package points

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inabottle/internal/logger"
	apperrors "inabottle/pkg/errors"
	"inabottle/pkg/events"
	"inabottle/pkg/retry"
)

type fakeRepository struct {
	mu      sync.Mutex
	history map[string]PointsHistory
	err     error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{history: make(map[string]PointsHistory)}
}

func (r *fakeRepository) Record(_ context.Context, entry *PointsHistory) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	if _, ok := r.history[entry.Selector]; ok {
		return false, nil
	}
	r.history[entry.Selector] = *entry
	return true, nil
}

func (r *fakeRepository) FindByID(_ context.Context, id string) (*PointsHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.history[id]
	if !ok {
		return nil, apperrors.NotFound("points history", id)
	}
	return &e, nil
}

func (r *fakeRepository) Find(_ context.Context, createdBy string) ([]PointsHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PointsHistory, 0)
	for _, e := range r.history {
		if createdBy == "" || e.CreatedBy == createdBy {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Selector < out[j].Selector })
	return out, nil
}

func (r *fakeRepository) Balance(ctx context.Context, createdBy string) (*Balance, error) {
	entries, _ := r.Find(ctx, createdBy)
	b := &Balance{CreatedBy: createdBy}
	for _, e := range entries {
		b.Amount += e.Amount
		b.Entries++
	}
	return b, nil
}

func pointsEnvelope(t *testing.T, payload interface{}) events.Envelope {
	t.Helper()
	env, err := events.NewEnvelopeBuilder().
		WithRoutingKey("points.add").
		WithSource("treasure-hunt-service").
		WithPayload(payload).
		Build()
	require.NoError(t, err)
	return env
}

func credit(createdBy string, amount int) PointsHistory {
	return PointsHistory{
		Selector:   uuid.NewString(),
		CreatedBy:  createdBy,
		IDSource:   uuid.NewString(),
		TypeSource: "Treasure",
		Amount:     amount,
	}
}

func TestConsumerRecordsOncePerSelector(t *testing.T) {
	repo := newFakeRepository()
	c := NewConsumer(repo, logger.NopLogger())
	env := pointsEnvelope(t, credit("ana@inabottle.app", 50))

	require.NoError(t, c.Handle(context.Background(), env))
	require.NoError(t, c.Handle(context.Background(), env))

	history, err := repo.Find(context.Background(), "ana@inabottle.app")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 50, history[0].Amount)
	assert.Equal(t, "Treasure", history[0].TypeSource)
}

func TestConsumerRejectsInvalidEvents(t *testing.T) {
	c := NewConsumer(newFakeRepository(), logger.NopLogger())

	tests := []struct {
		name    string
		payload interface{}
	}{
		{name: "zero amount", payload: credit("ana@inabottle.app", 0)},
		{name: "missing creator", payload: credit("", 10)},
		{name: "selector not a uuid", payload: map[string]interface{}{"selector": "x", "createdBy": "a", "amount": 1}},
		{name: "not an object", payload: []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Handle(context.Background(), pointsEnvelope(t, tt.payload))
			require.Error(t, err)
			assert.True(t, retry.IsFatal(err))
		})
	}
}

func TestConsumerStoreFailureIsRetryable(t *testing.T) {
	repo := newFakeRepository()
	repo.err = errors.New("connection reset")
	c := NewConsumer(repo, logger.NopLogger())

	err := c.Handle(context.Background(), pointsEnvelope(t, credit("ana@inabottle.app", 5)))
	require.Error(t, err)
	assert.False(t, retry.IsFatal(err))
}

func TestHandlerReadsHistory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newFakeRepository()
	ctx := context.Background()

	first := credit("ana@inabottle.app", 50)
	_, _ = repo.Record(ctx, &first)
	second := credit("ana@inabottle.app", -20)
	_, _ = repo.Record(ctx, &second)
	other := credit("bo@inabottle.app", 7)
	_, _ = repo.Record(ctx, &other)

	r := gin.New()
	NewHandler(repo, logger.NopLogger()).RegisterRoutes(r)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	var all, mine []PointsHistory
	require.NoError(t, json.Unmarshal(get("/points").Body.Bytes(), &all))
	require.NoError(t, json.Unmarshal(get("/points?createdBy=ana@inabottle.app").Body.Bytes(), &mine))
	assert.Len(t, all, 3)
	assert.Len(t, mine, 2)

	w := get("/points/" + other.Selector)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"amount":7`)

	w = get("/points/" + uuid.NewString())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())

	var balance Balance
	require.NoError(t, json.Unmarshal(get("/points/balance/ana@inabottle.app").Body.Bytes(), &balance))
	assert.Equal(t, Balance{CreatedBy: "ana@inabottle.app", Amount: 30, Entries: 2}, balance)
}
