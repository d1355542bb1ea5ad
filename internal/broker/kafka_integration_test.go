//go:build integration

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inabottle/internal/config"
	"inabottle/internal/constants"
	"inabottle/internal/logger"
	"inabottle/internal/testinfra"
	"inabottle/pkg/events"
	"inabottle/pkg/retry"
)

func newKafkaTestBroker(t *testing.T, brokers []string) *KafkaBroker {
	t.Helper()
	b := NewKafkaBroker(config.KafkaConfig{
		Brokers:     brokers,
		TopicPrefix: "it-" + uuid.NewString()[:8] + ".",
		DLQSuffix:   constants.DefaultDLQSuffix,
	}, DefaultTopology(constants.DefaultExchange), testPolicy(), logger.NopLogger())
	t.Cleanup(func() { b.Close() })
	return b
}

// publish retries while the auto-created topic elects a leader.
func publish(t *testing.T, b *KafkaBroker, key string, env events.Envelope) {
	t.Helper()
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return b.Publish(ctx, key, env) == nil
	}, 60*time.Second, 500*time.Millisecond)
}

func TestKafkaBrokerDeliversToBoundQueue(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Kafka: true})
	b := newKafkaTestBroker(t, infra.KafkaBrokers)

	require.NoError(t, b.Ping(context.Background()))

	env := envelope(t, constants.RoutingKeyPointsAdd, events.PointsEvent{
		Selector:  uuid.NewString(),
		CreatedBy: "a@b.c",
		Amount:    50,
	})
	publish(t, b, constants.RoutingKeyPointsAdd, env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan events.Envelope, 1)
	go b.Subscribe(ctx, constants.QueuePoints, func(_ context.Context, got events.Envelope) error {
		received <- got
		return nil
	})

	select {
	case got := <-received:
		assert.Equal(t, env.ID, got.ID)
		var decoded events.PointsEvent
		require.NoError(t, got.DecodePayload(&decoded))
		assert.Equal(t, 50, decoded.Amount)
	case <-time.After(60 * time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestKafkaBrokerDeadLettersFatalFailures(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Kafka: true})
	b := newKafkaTestBroker(t, infra.KafkaBrokers)

	env := envelope(t, constants.RoutingKeyDirectMessageSave, []int{1})
	publish(t, b, constants.RoutingKeyDirectMessageSave, env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Subscribe(ctx, constants.QueueDirectMessage, func(context.Context, events.Envelope) error {
		return retry.NewFatalError(assert.AnError)
	})

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  infra.KafkaBrokers,
		Topic:    b.dlqTopic(constants.QueueDirectMessage),
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	readCtx, readCancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer readCancel()
	m, err := reader.ReadMessage(readCtx)
	require.NoError(t, err)

	dead, err := events.Unmarshal(m.Value)
	require.NoError(t, err)
	assert.Equal(t, env.ID, dead.ID)
	require.NotNil(t, dead.Metadata.DeadLetter)
	assert.Equal(t, constants.QueueDirectMessage, dead.Metadata.DeadLetter.Queue)
	assert.Equal(t, 1, dead.Metadata.DeadLetter.Attempts)
}
