package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/models"
)

var (
	salmon = &models.MenuItem{ID: "3", Name: "Grilled Salmon", Price: decimal.RequireFromString("24.99"), Category: models.CategoryMain}
	coffee = &models.MenuItem{ID: "9", Name: "Espresso", Price: decimal.RequireFromString("3.25"), Category: models.CategoryDrink}
)

func TestCart_AddTwiceThenDecrementToZero(t *testing.T) {
	c := New(nil)

	c.Add(salmon)
	c.Add(salmon)
	require.Len(t, c.Lines(), 1)
	assert.Equal(t, 2, c.Lines()[0].Quantity)

	require.NoError(t, c.UpdateQuantity("3", -2))
	assert.Empty(t, c.Lines())
	assert.True(t, c.Total().IsZero())
	assert.Zero(t, c.ItemCount())
}

func TestCart_DerivedValues(t *testing.T) {
	c := New(nil)
	c.Add(salmon)
	c.Add(coffee)
	c.Add(salmon)
	require.NoError(t, c.UpdateQuantity("9", 2))

	assert.Equal(t, "59.73", c.Total().StringFixed(2))
	assert.Equal(t, 5, c.ItemCount())

	v := c.View()
	assert.Equal(t, c.ItemCount(), v.ItemCount)
	assert.True(t, c.Total().Equal(v.Total))
	assert.Equal(t, []string{"3", "9"}, []string{v.Items[0].MenuItemID, v.Items[1].MenuItemID})
}

func TestCart_PriceCopiedOnFirstAdd(t *testing.T) {
	c := New(nil)
	c.Add(salmon)

	repriced := *salmon
	repriced.Price = decimal.RequireFromString("30.00")
	c.Add(&repriced)

	require.Len(t, c.Lines(), 1)
	assert.True(t, salmon.Price.Equal(c.Lines()[0].Price))
}

func TestCart_UpdateQuantityBelowZeroRemoves(t *testing.T) {
	c := New(nil)
	c.Add(salmon)
	c.Add(coffee)

	require.NoError(t, c.UpdateQuantity("3", -5))
	require.Len(t, c.Lines(), 1)
	assert.Equal(t, "9", c.Lines()[0].MenuItemID)
}

func TestCart_MissingLine(t *testing.T) {
	c := New(nil)

	assert.True(t, apperr.IsNotFound(c.UpdateQuantity("3", 1)))
	assert.True(t, apperr.IsNotFound(c.Remove("3")))
}

func TestCart_RemoveAndClear(t *testing.T) {
	c := New(nil)
	c.Add(salmon)
	c.Add(coffee)

	require.NoError(t, c.Remove("3"))
	assert.Equal(t, 1, c.ItemCount())

	c.Clear()
	assert.Empty(t, c.Lines())
	assert.True(t, c.Total().IsZero())
}

func TestCart_Subtract(t *testing.T) {
	c := New(nil)
	c.Add(salmon)
	c.Add(salmon)
	c.Add(salmon)
	c.Add(coffee)

	c.Subtract([]models.CartLine{
		{MenuItemID: "3", Quantity: 2},
		{MenuItemID: "9", Quantity: 1},
		{MenuItemID: "42", Quantity: 1},
	})

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "3", lines[0].MenuItemID)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestNew_DropsNonPositiveLines(t *testing.T) {
	c := New([]models.CartLine{
		{MenuItemID: "3", Name: "Grilled Salmon", Price: salmon.Price, Quantity: 0},
		{MenuItemID: "9", Name: "Espresso", Price: coffee.Price, Quantity: 2},
	})
	assert.Equal(t, 2, c.ItemCount())
	assert.Len(t, c.Lines(), 1)
}

func TestLines_ReturnsCopy(t *testing.T) {
	c := New(nil)
	c.Add(salmon)

	lines := c.Lines()
	lines[0].Quantity = 99
	assert.Equal(t, 1, c.ItemCount())
}
