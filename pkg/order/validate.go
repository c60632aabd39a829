package order

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/example/bistro/pkg/apperr"
)

const (
	maxNameLen    = 100
	maxPhoneLen   = 30
	maxAddressLen = 255
	maxNotesLen   = 1000

	// maxQuantity bounds a single line.
	maxQuantity = 999
)

// maxAmount is the largest value a decimal(10,2) column holds. Prices and
// order totals above it are rejected before they reach the store.
var maxAmount = decimal.RequireFromString("99999999.99")

// Customer identifies who placed an order.
type Customer struct {
	Name    string `json:"customer_name"`
	Phone   string `json:"customer_phone,omitempty"`
	Address string `json:"customer_address,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// LineInput is one requested line. MenuItemName and Price are the
// caller's snapshot of the catalog.
type LineInput struct {
	MenuItemID   string          `json:"menu_item_id"`
	MenuItemName string          `json:"menu_item_name"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

func (c Customer) normalized() Customer {
	return Customer{
		Name:    strings.TrimSpace(c.Name),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
		Notes:   c.Notes,
	}
}

func tooLong(field string, max int) apperr.FieldViolation {
	return apperr.FieldViolation{Field: field, Reason: fmt.Sprintf("must be at most %d characters", max)}
}

func validateCustomer(c Customer) []apperr.FieldViolation {
	var v []apperr.FieldViolation
	switch {
	case c.Name == "":
		v = append(v, apperr.FieldViolation{Field: "customer_name", Reason: "is required"})
	case utf8.RuneCountInString(c.Name) > maxNameLen:
		v = append(v, tooLong("customer_name", maxNameLen))
	}
	if utf8.RuneCountInString(c.Phone) > maxPhoneLen {
		v = append(v, tooLong("customer_phone", maxPhoneLen))
	}
	if utf8.RuneCountInString(c.Address) > maxAddressLen {
		v = append(v, tooLong("customer_address", maxAddressLen))
	}
	v = append(v, validateNotes(c.Notes)...)
	return v
}

func validateNotes(notes string) []apperr.FieldViolation {
	if utf8.RuneCountInString(notes) > maxNotesLen {
		return []apperr.FieldViolation{tooLong("notes", maxNotesLen)}
	}
	return nil
}

func validateLines(lines []LineInput) []apperr.FieldViolation {
	if len(lines) == 0 {
		return []apperr.FieldViolation{{Field: "items", Reason: "must contain at least one item"}}
	}

	var v []apperr.FieldViolation
	for i, l := range lines {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

		if strings.TrimSpace(l.MenuItemID) == "" {
			v = append(v, apperr.FieldViolation{Field: field("menu_item_id"), Reason: "is required"})
		}
		if strings.TrimSpace(l.MenuItemName) == "" {
			v = append(v, apperr.FieldViolation{Field: field("menu_item_name"), Reason: "is required"})
		}
		switch {
		case l.Quantity <= 0:
			v = append(v, apperr.FieldViolation{Field: field("quantity"), Reason: "must be greater than 0"})
		case l.Quantity > maxQuantity:
			v = append(v, apperr.FieldViolation{Field: field("quantity"), Reason: fmt.Sprintf("must be at most %d", maxQuantity)})
		}
		switch {
		case !l.Price.IsPositive():
			v = append(v, apperr.FieldViolation{Field: field("price"), Reason: "must be greater than 0"})
		case l.Price.GreaterThan(maxAmount):
			v = append(v, apperr.FieldViolation{Field: field("price"), Reason: "must be at most " + maxAmount.StringFixed(2)})
		case !l.Price.Equal(l.Price.Round(2)):
			v = append(v, apperr.FieldViolation{Field: field("price"), Reason: "must have at most 2 decimal places"})
		}
	}
	return v
}

// validateTotal rejects orders whose total does not fit the stored column.
func validateTotal(total decimal.Decimal) error {
	if total.GreaterThan(maxAmount) {
		return apperr.Invalid("total_price", "order total must be at most "+maxAmount.StringFixed(2))
	}
	return nil
}
