// Package checkout turns a session cart into a placed order.
package checkout

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/cart"
	"github.com/example/bistro/pkg/models"
	"github.com/example/bistro/pkg/order"
)

type OrderCreator interface {
	CreateOrder(ctx context.Context, customer order.Customer, lines []order.LineInput) (*models.Order, error)
}

type Carts interface {
	Get(ctx context.Context, sessionID string) (cart.View, error)
	Subtract(ctx context.Context, sessionID string, lines []models.CartLine) (cart.View, error)
}

// Orchestrator submits carts as orders. It never retries and never
// touches the cart when submission fails, so the caller can retry safely.
type Orchestrator struct {
	orders OrderCreator
	carts  Carts
	logger *zap.Logger
}

func NewOrchestrator(orders OrderCreator, carts Carts, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		orders: orders,
		carts:  carts,
		logger: logger.Named("checkout"),
	}
}

// Submit places an order for lines. Errors from the order service are
// returned unchanged.
func (o *Orchestrator) Submit(ctx context.Context, customer order.Customer, lines []models.CartLine) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, apperr.Invalid("items", "cart is empty")
	}

	inputs := make([]order.LineInput, len(lines))
	for i, l := range lines {
		inputs[i] = order.LineInput{
			MenuItemID:   l.MenuItemID,
			MenuItemName: l.Name,
			Quantity:     l.Quantity,
			Price:        l.Price,
		}
	}
	return o.orders.CreateOrder(ctx, customer, inputs)
}

// SubmitCart snapshots the session cart once, submits it and takes the
// submitted lines out of the cart after the order is stored. Items added
// while the order was being placed stay in the cart. A failed cart update
// is logged; the order stands either way.
func (o *Orchestrator) SubmitCart(ctx context.Context, sessionID string, customer order.Customer) (*models.Order, error) {
	view, err := o.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	placed, err := o.Submit(ctx, customer, view.Items)
	if err != nil {
		o.logger.Info("Checkout failed, cart kept",
			zap.String("session_id", sessionID),
			zap.String("kind", string(apperr.KindOf(err))),
			zap.Error(err))
		return nil, err
	}

	if _, err := o.carts.Subtract(ctx, sessionID, view.Items); err != nil {
		o.logger.Error("Order placed but cart not cleared",
			zap.String("session_id", sessionID),
			zap.String("order_id", placed.ID),
			zap.Error(err))
	}

	o.logger.Info("Checkout complete",
		zap.String("session_id", sessionID),
		zap.String("order_id", placed.ID))
	return placed, nil
}
