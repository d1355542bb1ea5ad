package treasure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inabottle/internal/config"
	"inabottle/internal/logger"
)

func newRelayFixture(maxAttempts int) (*fakePublisher, *fakeRepository, *Service, *Relay) {
	pub := &fakePublisher{fail: true}
	repo := newFakeRepository()
	producer := NewProducer(pub, repo, maxAttempts, logger.NopLogger())
	svc := NewService(repo, producer, logger.NopLogger())
	relay := NewRelay(producer, repo, config.OutboxConfig{
		RelayInterval: time.Second,
		GracePeriod:   time.Minute,
		MaxAttempts:   maxAttempts,
		BatchSize:     10,
	}, logger.NopLogger())
	return pub, repo, svc, relay
}

func TestRelayRepublishesAfterGracePeriod(t *testing.T) {
	pub, repo, svc, relay := newRelayFixture(5)
	ctx := context.Background()

	hunt, err := svc.Create(ctx, huntWithMessages(2, intPtr(30)))
	require.NoError(t, err)
	pub.setFail(false)

	n, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "entries inside the grace period are left alone")

	relay.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	n, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Len(t, pub.byKey("direct.message.save"), 1)
	assert.Len(t, pub.byKey("points.add"), 1)

	stored, err := repo.FindByID(ctx, hunt.Selector)
	require.NoError(t, err)
	for _, e := range stored.Outbox {
		assert.Equal(t, OutboxPublished, e.Status)
		assert.Equal(t, 2, e.Attempts)
		assert.NotNil(t, e.PublishedAt)
	}

	n, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelayRepublishKeepsEventID(t *testing.T) {
	pub, _, svc, relay := newRelayFixture(5)
	ctx := context.Background()

	hunt, err := svc.Create(ctx, huntWithMessages(1, nil))
	require.NoError(t, err)
	pub.setFail(false)
	relay.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, err = relay.RunOnce(ctx)
	require.NoError(t, err)

	sent := pub.byKey("direct.message.save")
	require.Len(t, sent, 1)
	assert.Equal(t, hunt.Outbox[0].EventID, sent[0].ID)
}

func TestRelayMarksEntriesFailedAfterMaxAttempts(t *testing.T) {
	_, repo, svc, relay := newRelayFixture(3)
	ctx := context.Background()
	relay.now = func() time.Time { return time.Now().Add(time.Hour) }

	hunt, err := svc.Create(ctx, huntWithMessages(1, nil))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := relay.RunOnce(ctx)
		require.NoError(t, err)
	}

	stored, err := repo.FindByID(ctx, hunt.Selector)
	require.NoError(t, err)
	require.Len(t, stored.Outbox, 1)
	assert.Equal(t, OutboxFailed, stored.Outbox[0].Status)
	assert.Equal(t, 3, stored.Outbox[0].Attempts)

	pending, err := svc.PendingEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRelayRunStopsOnCancel(t *testing.T) {
	_, _, _, relay := newRelayFixture(3)
	relay.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
