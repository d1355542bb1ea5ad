package broker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inabottle/internal/logger"
	"inabottle/pkg/events"
	"inabottle/pkg/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}
}

func newTestBroker() *MemoryBroker {
	return NewMemoryBroker(DefaultTopology(""), testPolicy(), logger.NopLogger())
}

func envelope(t *testing.T, key string, payload interface{}) events.Envelope {
	t.Helper()
	env, err := events.NewEnvelopeBuilder().
		WithRoutingKey(key).
		WithSource("test").
		WithPayload(payload).
		Build()
	require.NoError(t, err)
	return env
}

// consume runs Subscribe in the background and returns a stop func that
// waits for it to exit.
func consume(b *MemoryBroker, queue string, handler HandlerFunc) func() {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Subscribe(ctx, queue, handler)
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func TestMemoryBrokerFansOutToEveryMatchingQueue(t *testing.T) {
	b := newTestBroker()
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, "direct.message.save", envelope(t, "direct.message.save", []string{})))
	require.NoError(t, b.Publish(ctx, "points.add", envelope(t, "points.add", map[string]int{"amount": 1})))

	assert.Equal(t, 1, b.Pending("direct-message-queue"))
	assert.Equal(t, 1, b.Pending("points-queue"))
	assert.Equal(t, 2, b.Pending("user-queue"))
	assert.Len(t, b.Published("points.add"), 1)
}

func TestMemoryBrokerRejectsUndeclaredKey(t *testing.T) {
	b := newTestBroker()
	err := b.Publish(context.Background(), "hub.created", envelope(t, "hub.created", 1))
	assert.Error(t, err)
	assert.Empty(t, b.Published("hub.created"))
}

func TestMemoryBrokerAcksAfterSuccess(t *testing.T) {
	b := newTestBroker()
	done := make(chan events.Envelope, 1)

	stop := consume(b, "points-queue", func(ctx context.Context, env events.Envelope) error {
		done <- env
		return nil
	})
	defer stop()

	sent := envelope(t, "points.add", map[string]int{"amount": 5})
	require.NoError(t, b.Publish(context.Background(), "points.add", sent))

	select {
	case got := <-done:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "points.add", got.RoutingKey)
	case <-time.After(time.Second):
		t.Fatal("handler not invoked")
	}
	assert.Empty(t, b.DeadLetters("points-queue"))
}

func TestMemoryBrokerRetriesTransientFailures(t *testing.T) {
	b := newTestBroker()
	var calls int32
	done := make(chan struct{})

	stop := consume(b, "points-queue", func(ctx context.Context, env events.Envelope) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("mongo unavailable")
		}
		close(done)
		return nil
	})
	defer stop()

	require.NoError(t, b.Publish(context.Background(), "points.add", envelope(t, "points.add", 1)))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never succeeded")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Empty(t, b.DeadLetters("points-queue"))
}

func TestMemoryBrokerDeadLettersAfterMaxAttempts(t *testing.T) {
	b := newTestBroker()
	var calls int32

	stop := consume(b, "points-queue", func(ctx context.Context, env events.Envelope) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("always failing")
	})
	defer stop()

	sent := envelope(t, "points.add", 1)
	require.NoError(t, b.Publish(context.Background(), "points.add", sent))

	require.Eventually(t, func() bool {
		return len(b.DeadLetters("points-queue")) == 1
	}, time.Second, 5*time.Millisecond)

	dead := b.DeadLetters("points-queue")[0]
	assert.Equal(t, sent.ID, dead.ID)
	require.NotNil(t, dead.Metadata.DeadLetter)
	assert.Equal(t, 3, dead.Metadata.DeadLetter.Attempts)
	assert.Contains(t, dead.Metadata.DeadLetter.Reason, "always failing")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestMemoryBrokerFatalErrorSkipsRetries(t *testing.T) {
	b := newTestBroker()
	var calls int32

	stop := consume(b, "direct-message-queue", func(ctx context.Context, env events.Envelope) error {
		atomic.AddInt32(&calls, 1)
		return retry.NewFatalError(errors.New("malformed batch"))
	})
	defer stop()

	require.NoError(t, b.Publish(context.Background(), "direct.message.save", envelope(t, "direct.message.save", 1)))

	require.Eventually(t, func() bool {
		return len(b.DeadLetters("direct-message-queue")) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMemoryBrokerRecoversHandlerPanics(t *testing.T) {
	b := newTestBroker()

	stop := consume(b, "user-queue", func(ctx context.Context, env events.Envelope) error {
		panic("nil map")
	})
	defer stop()

	require.NoError(t, b.Publish(context.Background(), "points.add", envelope(t, "points.add", 1)))

	require.Eventually(t, func() bool {
		return len(b.DeadLetters("user-queue")) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMemoryBrokerUnknownQueue(t *testing.T) {
	b := newTestBroker()
	err := b.Subscribe(context.Background(), "hub-queue", func(context.Context, events.Envelope) error { return nil })
	assert.Error(t, err)
}
