package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inabottle/internal/logger"
)

func TestServiceLoginThenCreditWithMixedCaseEmail(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Login(ctx, &User{Email: "Ana@Inabottle.app"})
	require.NoError(t, err)

	c := NewConsumer(repo, logger.NopLogger())
	require.NoError(t, c.Handle(ctx, envelope(t, "points.add", pointsEvent("Ana@Inabottle.app", 50))))

	u, err := svc.Get(ctx, " Ana@Inabottle.app ")
	require.NoError(t, err)
	assert.Equal(t, "ana@inabottle.app", u.Email)
	assert.Equal(t, 50, u.Points)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@inabottle.app", NormalizeEmail("  Ana@InABottle.APP\t"))
	assert.Empty(t, NormalizeEmail("   "))
}
