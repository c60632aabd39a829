package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/models"
)

func seededMenu(t *testing.T) *MenuStore {
	t.Helper()
	store := NewMenuStore(newTestDB(t))
	seeded, err := store.SeedDefaults(context.Background())
	require.NoError(t, err)
	require.True(t, seeded)
	return store
}

func TestMenuStore_SeedOnce(t *testing.T) {
	store := seededMenu(t)

	seeded, err := store.SeedDefaults(context.Background())
	require.NoError(t, err)
	assert.False(t, seeded)

	items, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, len(DefaultMenu()))
}

func TestMenuStore_GetByID(t *testing.T) {
	store := seededMenu(t)

	item, err := store.GetByID(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "Grilled Salmon", item.Name)
	assert.True(t, decimal.RequireFromString("24.99").Equal(item.Price))
	assert.Equal(t, models.CategoryMain, item.Category)

	_, err = store.GetByID(context.Background(), "404")
	assert.True(t, apperr.IsNotFound(err))
}

func TestMenuStore_ListByCategory(t *testing.T) {
	store := seededMenu(t)

	drinks, err := store.ListByCategory(context.Background(), models.CategoryDrink)
	require.NoError(t, err)
	require.Len(t, drinks, 2)
	for _, d := range drinks {
		assert.Equal(t, models.CategoryDrink, d.Category)
	}

	_, err = store.ListByCategory(context.Background(), models.MenuCategory("brunch"))
	assert.True(t, apperr.IsValidation(err))
}

func TestMenuStore_ListPopular(t *testing.T) {
	popular, err := seededMenu(t).ListPopular(context.Background())
	require.NoError(t, err)
	assert.Len(t, popular, 4)
	for _, p := range popular {
		assert.True(t, p.Popular)
	}
}

func TestMenuStore_Search(t *testing.T) {
	store := seededMenu(t)

	hits, err := store.Search(context.Background(), "SALMON")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "3", hits[0].ID)

	hits, err = store.Search(context.Background(), "chocolate")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	_, err = store.Search(context.Background(), "   ")
	assert.True(t, apperr.IsValidation(err))
}

func TestMenuStore_SearchTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	store := seededMenu(t)

	for _, term := range []string{"%", "_", "!"} {
		hits, err := store.Search(ctx, term)
		require.NoError(t, err)
		assert.Empty(t, hits, term)
	}

	require.NoError(t, store.Upsert(ctx, models.MenuItem{
		ID: "10", Name: "100% Orange Juice", Description: "Fresh_pressed!", Price: decimal.RequireFromString("5.00"), Category: models.CategoryDrink,
	}))

	for _, term := range []string{"100%", "h_p", "d!"} {
		hits, err := store.Search(ctx, term)
		require.NoError(t, err)
		require.Len(t, hits, 1, term)
		assert.Equal(t, "10", hits[0].ID)
	}
}

func TestMenuStore_CategoryCheckConstraint(t *testing.T) {
	store := NewMenuStore(newTestDB(t))

	err := store.Upsert(context.Background(), models.MenuItem{
		ID: "x", Name: "Mystery", Price: decimal.NewFromInt(1), Category: models.MenuCategory("brunch"),
	})
	assert.True(t, apperr.IsPersistence(err))
}

func TestMenuStore_UpsertReplacesPrice(t *testing.T) {
	ctx := context.Background()
	store := seededMenu(t)

	item, err := store.GetByID(ctx, "3")
	require.NoError(t, err)
	item.Price = decimal.RequireFromString("27.50")
	require.NoError(t, store.Upsert(ctx, *item))

	got, err := store.GetByID(ctx, "3")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("27.50").Equal(got.Price))
}
