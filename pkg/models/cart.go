package models

import "github.com/shopspring/decimal"

// CartLine is one selection in a pre-checkout cart. Name and Price are
// copied from the catalog when the item is first added.
type CartLine struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
