//go:build integration

package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inabottle/internal/config"
	"inabottle/internal/constants"
	"inabottle/internal/logger"
	"inabottle/internal/testinfra"
	"inabottle/pkg/errors"
)

func TestMongoRepositoryReplaceIsCompareAndSwap(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Mongo: true})
	repo := NewRepository(infra.MongoDatabase(t, constants.CollectionHubs))
	ctx := context.Background()

	h := &Hub{Selector: uuid.NewString(), CreatedBy: "a@b.c", CreatedAt: 1}
	h.normalize()
	require.NoError(t, repo.Insert(ctx, h))

	first, err := repo.FindByID(ctx, h.Selector)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, h.Selector)
	require.NoError(t, err)

	first.Title = "first"
	require.NoError(t, repo.Replace(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	second.Title = "second"
	err = repo.Replace(ctx, second)
	assert.True(t, errors.IsConflict(err))

	stored, err := repo.FindByID(ctx, h.Selector)
	require.NoError(t, err)
	assert.Equal(t, "first", stored.Title)
	assert.Equal(t, int64(1), stored.Version)
}

func TestMongoRepositoryReplaceMissingHub(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Mongo: true})
	repo := NewRepository(infra.MongoDatabase(t, constants.CollectionHubs))

	err := repo.Replace(context.Background(), &Hub{Selector: uuid.NewString()})
	assert.True(t, errors.IsNotFound(err))
}

func TestServiceConcurrentReactionsAgainstMongoAndRedis(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Mongo: true, Redis: true})
	repo := NewRepository(infra.MongoDatabase(t, constants.CollectionHubs))

	cfg := testHubConfig(false)
	cfg.Locking = config.LockingConfig{
		Backend:     constants.LockBackendRedis,
		KeyPrefix:   constants.CacheKeyPrefixHubLock,
		TTL:         5 * time.Second,
		WaitTimeout: 10 * time.Second,
	}
	locker, err := NewLocker(cfg.Locking, infra.RedisClient)
	require.NoError(t, err)
	service := NewService(repo, locker, cfg, logger.NopLogger())
	ctx := context.Background()

	created, err := service.Create(ctx, &Hub{CreatedBy: "owner@b.c"})
	require.NoError(t, err)
	require.NoError(t, service.AppendMessage(ctx, created.Selector, &HubMessage{CreatedBy: "owner@b.c", Text: "hi"}))

	stored, err := service.Get(ctx, created.Selector)
	require.NoError(t, err)
	messageID := stored.MessageChat[0].Selector

	const reactions = 20
	var wg sync.WaitGroup
	for i := 0; i < reactions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reaction := UserReaction{CreatedBy: uuid.NewString() + "@b.c", Reaction: TypeReaction{Selector: "like"}}
			assert.NoError(t, service.AddReaction(ctx, created.Selector, messageID, reaction))
		}()
	}
	wg.Wait()

	stored, err = service.Get(ctx, created.Selector)
	require.NoError(t, err)
	assert.Len(t, stored.MessageChat[0].Reactions, reactions)
	assert.Equal(t, int64(reactions+1), stored.Version)
}
