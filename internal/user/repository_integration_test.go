//go:build integration

package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inabottle/internal/constants"
	"inabottle/internal/testinfra"
	"inabottle/pkg/errors"
)

func TestMongoRepositoryApplyCreditOncePerEvent(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Mongo: true})
	repo := NewRepository(infra.MongoDatabase(t, constants.CollectionUsers))
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &User{ID: uuid.NewString(), Email: "a@b.c"}))

	eventID := uuid.NewString()
	applied, err := repo.ApplyCredit(ctx, "a@b.c", eventID, 50)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.ApplyCredit(ctx, "a@b.c", eventID, 50)
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = repo.ApplyCredit(ctx, "a@b.c", uuid.NewString(), -20)
	require.NoError(t, err)
	assert.True(t, applied)

	u, err := repo.FindByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, 30, u.Points)

	_, err = repo.ApplyCredit(ctx, "ghost@b.c", uuid.NewString(), 10)
	assert.True(t, errors.IsNotFound(err))
}

func TestMongoRepositoryUpsertByEmailKeepsPoints(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Mongo: true})
	repo := NewRepository(infra.MongoDatabase(t, constants.CollectionUsers))
	ctx := context.Background()

	first, err := repo.UpsertByEmail(ctx, &User{ID: uuid.NewString(), Email: "a@b.c", Name: "A", UpdatedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, "A", first.Name)

	_, err = repo.ApplyCredit(ctx, "a@b.c", uuid.NewString(), 15)
	require.NoError(t, err)

	second, err := repo.UpsertByEmail(ctx, &User{ID: uuid.NewString(), Email: "a@b.c", Name: "Renamed", UpdatedAt: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Renamed", second.Name)
	assert.Equal(t, 15, second.Points)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMongoRepositoryEmailIsUnique(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Mongo: true})
	repo := NewRepository(infra.MongoDatabase(t, constants.CollectionUsers))
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &User{ID: uuid.NewString(), Email: "a@b.c"}))
	err := repo.Insert(ctx, &User{ID: uuid.NewString(), Email: "a@b.c"})
	assert.True(t, errors.IsConflict(err))
}
