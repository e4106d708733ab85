package services_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"eshop/internal/models"
	"eshop/internal/repositories"
	"eshop/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCartService(t *testing.T) (*services.CartService, *repositories.Store) {
	store := newStore(t)
	return services.NewCartService(store, zap.NewNop(), nil), store
}

func TestCartService_AddTwiceIncrementsQuantity(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", cpuID, 1)
	require.NoError(t, err)
	cart, err := svc.Add(ctx, "u1", cpuID, 1)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "AMD Ryzen 5 7600", cart.Items[0].Title)
	assert.True(t, cart.Items[0].Price.Equal(decimal.RequireFromString("199.99")))

	lines, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestCartService_AddUnknownProduct(t *testing.T) {
	svc, store := newCartService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", "no-such-product", 1)
	assert.ErrorIs(t, err, services.ErrProductNotFound)

	// The failed add must not leave an empty cart behind.
	_, err = store.Carts.GetByUserID(ctx, "u1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestCartService_AddRejectsNonPositiveQuantity(t *testing.T) {
	svc, _ := newCartService(t)

	_, err := svc.Add(context.Background(), "u1", cpuID, 0)
	assert.ErrorIs(t, err, services.ErrInvalidQuantity)
}

func TestCartService_AddRejectsOversizedQuantity(t *testing.T) {
	svc, store := newCartService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", cpuID, math.MaxInt)
	assert.ErrorIs(t, err, services.ErrInvalidQuantity)
	_, err = store.Carts.GetByUserID(ctx, "u1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	// Repeated adds at the limit never wrap around.
	for range 3 {
		_, err = svc.Add(ctx, "u1", cpuID, models.MaxLineQuantity)
		require.NoError(t, err)
	}
	lines, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, models.MaxLineQuantity, lines[0].Quantity)
}

func TestCartService_ConcurrentAddsAreNotLost(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Add(ctx, "u1", cpuID, 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	lines, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, n, lines[0].Quantity)
}

func TestCartService_CartsArePerUser(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", cpuID, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "u2", ramID, 3)
	require.NoError(t, err)

	lines, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, cpuID, lines[0].ProductID)
}

func TestCartService_RemoveLastLineDeletesCart(t *testing.T) {
	svc, store := newCartService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", cpuID, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "u1", ramID, 1)
	require.NoError(t, err)

	cart, err := svc.Remove(ctx, "u1", cpuID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	cart, err = svc.Remove(ctx, "u1", ramID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = store.Carts.GetByUserID(ctx, "u1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	lines, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCartService_RemoveMissingLineOrCart(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	_, err := svc.Remove(ctx, "u1", cpuID)
	assert.ErrorIs(t, err, services.ErrCartNotFound)

	_, err = svc.Add(ctx, "u1", cpuID, 1)
	require.NoError(t, err)
	cart, err := svc.Remove(ctx, "u1", ramID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestCartService_AdjustQuantityClampsAtZero(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", cpuID, 2)
	require.NoError(t, err)

	cart, err := svc.AdjustQuantity(ctx, "u1", cpuID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	cart, err = svc.AdjustQuantity(ctx, "u1", cpuID, -10)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1, "a zero line stays in the cart")
	assert.Equal(t, 0, cart.Items[0].Quantity)

	_, err = svc.AdjustQuantity(ctx, "u1", ramID, 1)
	assert.ErrorIs(t, err, services.ErrLineNotFound)

	_, err = svc.AdjustQuantity(ctx, "u2", cpuID, 1)
	assert.ErrorIs(t, err, services.ErrCartNotFound)
}

func TestCartService_Clear(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	require.NoError(t, svc.Clear(ctx, "u1"), "clearing a missing cart succeeds")

	_, err := svc.Add(ctx, "u1", cpuID, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, "u1"))

	lines, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}
