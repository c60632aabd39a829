package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/models"
)

func newTestRedis(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	repo := NewRedisRepository(&config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = repo.Close() })
	return repo, mr
}

func TestCartBlobs_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestRedis(t)
	carts := repo.CartBlobs(time.Hour)

	lines := []models.CartLine{
		{MenuItemID: "3", Name: "Grilled Salmon", Price: decimal.RequireFromString("24.99"), Quantity: 2},
		{MenuItemID: "9", Name: "Espresso", Price: decimal.RequireFromString("3.25"), Quantity: 1},
	}
	require.NoError(t, carts.Save(ctx, "s1", lines))
	assert.True(t, mr.Exists("cart:s1"))
	assert.Equal(t, time.Hour, mr.TTL("cart:s1"))

	got, err := carts.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Grilled Salmon", got[0].Name)
	assert.True(t, lines[0].Price.Equal(got[0].Price))
	assert.Equal(t, 1, got[1].Quantity)
}

func TestCartBlobs_LoadMissing(t *testing.T) {
	repo, _ := newTestRedis(t)

	got, err := repo.CartBlobs(time.Hour).Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCartBlobs_SaveEmptyDeletesKey(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestRedis(t)
	carts := repo.CartBlobs(time.Hour)

	require.NoError(t, carts.Save(ctx, "s1", []models.CartLine{{MenuItemID: "1", Name: "Bruschetta", Price: decimal.RequireFromString("8.99"), Quantity: 1}}))
	require.NoError(t, carts.Save(ctx, "s1", nil))

	assert.False(t, mr.Exists("cart:s1"))
}

func TestCartBlobs_LoadFailsWhenRedisDown(t *testing.T) {
	repo, mr := newTestRedis(t)
	mr.Close()

	_, err := repo.CartBlobs(time.Hour).Load(context.Background(), "s1")
	assert.Error(t, err)
}

func TestOrderCache(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestRedis(t)
	cache := repo.OrderCache(time.Minute)

	_, found, err := cache.Get(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, found)

	order := &models.Order{
		ID:           "o1",
		CustomerName: "Jane Doe",
		TotalPrice:   decimal.RequireFromString("49.98"),
		Status:       models.StatusPending,
		Items: []models.OrderItem{
			{ID: "i1", OrderID: "o1", MenuItemID: "3", MenuItemName: "Grilled Salmon", Quantity: 2, Price: decimal.RequireFromString("24.99")},
		},
	}
	require.NoError(t, cache.Set(ctx, order))
	assert.True(t, mr.Exists("order:o1"))

	got, found, err := cache.Get(ctx, "o1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, order.TotalPrice.Equal(got.TotalPrice))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Grilled Salmon", got.Items[0].MenuItemName)

	require.NoError(t, cache.Invalidate(ctx, "o1"))
	assert.False(t, mr.Exists("order:o1"))
}
