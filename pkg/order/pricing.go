package order

import (
	"context"
	"fmt"

	"github.com/example/bistro/pkg/apperr"
)

// PricePolicy controls how submitted line prices are checked against the
// catalog when an order is created.
type PricePolicy string

const (
	// PriceTrust uses the submitted price and name as the snapshot.
	PriceTrust PricePolicy = "trust"
	// PriceReprice replaces submitted price and name with catalog values.
	PriceReprice PricePolicy = "reprice"
	// PriceReject fails the order when a submitted price differs from the catalog.
	PriceReject PricePolicy = "reject"
)

func ParsePricePolicy(s string) (PricePolicy, error) {
	switch p := PricePolicy(s); p {
	case PriceTrust, PriceReprice, PriceReject:
		return p, nil
	case "":
		return PriceTrust, nil
	default:
		return "", fmt.Errorf("unsupported price policy %q", s)
	}
}

// applyPricePolicy rewrites or checks lines in place. It returns any
// catalog violations, or a non-validation error when the catalog itself
// cannot be read.
func (s *Service) applyPricePolicy(ctx context.Context, lines []LineInput) ([]apperr.FieldViolation, error) {
	if s.pricing == PriceTrust || s.catalog == nil {
		return nil, nil
	}

	var violations []apperr.FieldViolation
	for i := range lines {
		item, err := s.catalog.GetByID(ctx, lines[i].MenuItemID)
		if err != nil {
			if apperr.IsNotFound(err) {
				violations = append(violations, apperr.FieldViolation{
					Field:  fmt.Sprintf("items[%d].menu_item_id", i),
					Reason: fmt.Sprintf("unknown menu item %q", lines[i].MenuItemID),
				})
				continue
			}
			return nil, err
		}

		switch s.pricing {
		case PriceReprice:
			lines[i].Price = item.Price
			lines[i].MenuItemName = item.Name
		case PriceReject:
			if !lines[i].Price.Equal(item.Price) {
				violations = append(violations, apperr.FieldViolation{
					Field:  fmt.Sprintf("items[%d].price", i),
					Reason: fmt.Sprintf("does not match current menu price %s", item.Price.StringFixed(2)),
				})
			}
		}
	}
	return violations, nil
}
