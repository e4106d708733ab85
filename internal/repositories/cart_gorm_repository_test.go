package repositories_test

import (
	"context"
	"testing"

	"eshop/internal/database/dbtest"
	"eshop/internal/models"
	"eshop/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartRepository_EnsureForUserKeepsExistingRow(t *testing.T) {
	repo := repositories.NewGORMCartRepository(dbtest.Open(t))
	ctx := context.Background()

	require.NoError(t, repo.EnsureForUser(ctx, "user-1"))
	cart, err := repo.LockByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	cart.Add(&models.Product{ID: "p1", Title: "Widget", Price: decimal.RequireFromString("2.50")}, 2)
	require.NoError(t, repo.Save(ctx, cart))

	// A second ensure must not reset the lines.
	require.NoError(t, repo.EnsureForUser(ctx, "user-1"))
	got, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, cart.ID, got.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, got.Items[0].Price.Equal(decimal.RequireFromString("2.50")))
}

func TestCartRepository_GetByUserIDNotFound(t *testing.T) {
	repo := repositories.NewGORMCartRepository(dbtest.Open(t))

	_, err := repo.GetByUserID(context.Background(), "nobody")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestCartRepository_DeleteByUserID(t *testing.T) {
	repo := repositories.NewGORMCartRepository(dbtest.Open(t))
	ctx := context.Background()

	require.NoError(t, repo.EnsureForUser(ctx, "user-1"))

	existed, err := repo.DeleteByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = repo.DeleteByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, existed)
}
