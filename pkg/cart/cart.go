// Package cart holds pre-checkout selections for a browsing session.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/models"
)

// Cart is the ordered set of lines for one session. Each menu item appears
// at most once and every line has a positive quantity.
type Cart struct {
	lines []models.CartLine
}

func New(lines []models.CartLine) *Cart {
	c := &Cart{}
	for _, l := range lines {
		if l.Quantity > 0 {
			c.lines = append(c.lines, l)
		}
	}
	return c
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []models.CartLine {
	return append([]models.CartLine{}, c.lines...)
}

func (c *Cart) index(menuItemID string) int {
	for i := range c.lines {
		if c.lines[i].MenuItemID == menuItemID {
			return i
		}
	}
	return -1
}

// Add puts one more of item in the cart. Name and price are copied on
// first add and kept for later adds of the same item.
func (c *Cart) Add(item *models.MenuItem) {
	if i := c.index(item.ID); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, models.CartLine{
		MenuItemID: item.ID,
		Name:       item.Name,
		Price:      item.Price,
		Quantity:   1,
	})
}

// UpdateQuantity changes a line by delta and drops it once the quantity
// reaches zero or below.
func (c *Cart) UpdateQuantity(menuItemID string, delta int) error {
	i := c.index(menuItemID)
	if i < 0 {
		return apperr.NotFound("cart item", menuItemID)
	}
	c.lines[i].Quantity += delta
	if c.lines[i].Quantity <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
	return nil
}

func (c *Cart) Remove(menuItemID string) error {
	i := c.index(menuItemID)
	if i < 0 {
		return apperr.NotFound("cart item", menuItemID)
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return nil
}

// Subtract takes the quantities in lines out of the cart. Lines that were
// removed in the meantime are skipped; anything added since stays.
func (c *Cart) Subtract(lines []models.CartLine) {
	for _, l := range lines {
		i := c.index(l.MenuItemID)
		if i < 0 {
			continue
		}
		c.lines[i].Quantity -= l.Quantity
		if c.lines[i].Quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
	}
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// View is a read-only snapshot of a cart.
type View struct {
	Items     []models.CartLine `json:"items"`
	Total     decimal.Decimal   `json:"total"`
	ItemCount int               `json:"item_count"`
}

func (c *Cart) View() View {
	return View{
		Items:     c.Lines(),
		Total:     c.Total(),
		ItemCount: c.ItemCount(),
	}
}
