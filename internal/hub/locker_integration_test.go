//go:build integration

package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inabottle/internal/config"
	"inabottle/internal/constants"
	"inabottle/internal/testinfra"
	apperrors "inabottle/pkg/errors"
)

func TestRedisLockerExcludesSecondHolder(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Redis: true})
	l := NewRedisLocker(infra.RedisClient, config.LockingConfig{
		TTL:         5 * time.Second,
		WaitTimeout: 200 * time.Millisecond,
	})
	ctx := context.Background()

	release, err := l.Lock(ctx, "hub-1")
	require.NoError(t, err)

	_, err = l.Lock(ctx, "hub-1")
	assert.Equal(t, apperrors.ErrTimeout.Status, apperrors.ToHTTPStatus(err))

	other, err := l.Lock(ctx, "hub-2")
	require.NoError(t, err)
	other()

	release()
	again, err := l.Lock(ctx, "hub-1")
	require.NoError(t, err)
	again()

	exists, err := infra.RedisClient.Exists(ctx, constants.CacheKeyPrefixHubLock+"hub-1").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestRedisLockerReleaseKeepsForeignToken(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Redis: true})
	l := NewRedisLocker(infra.RedisClient, config.LockingConfig{
		TTL:         50 * time.Millisecond,
		WaitTimeout: time.Second,
	})
	ctx := context.Background()

	stale, err := l.Lock(ctx, "hub-1")
	require.NoError(t, err)

	// The first lease expires and a second holder takes over.
	time.Sleep(100 * time.Millisecond)
	current, err := l.Lock(ctx, "hub-1")
	require.NoError(t, err)

	stale()
	exists, err := infra.RedisClient.Exists(ctx, constants.CacheKeyPrefixHubLock+"hub-1").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	current()
}
