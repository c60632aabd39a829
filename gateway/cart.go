package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/order"
)

type addItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
}

type updateItemRequest struct {
	Delta *int `json:"delta"`
}

func (g *Gateway) getCart(c *gin.Context) {
	view, err := g.deps.Carts.Get(c.Request.Context(), c.GetString(sessionKey))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (g *Gateway) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badBody(c, err)
		return
	}
	if req.MenuItemID == "" {
		g.writeError(c, apperr.Invalid("menu_item_id", "is required"))
		return
	}

	ctx := c.Request.Context()
	item, err := g.deps.Menu.GetByID(ctx, req.MenuItemID)
	if err != nil {
		g.writeError(c, err)
		return
	}
	view, err := g.deps.Carts.Add(ctx, c.GetString(sessionKey), item)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (g *Gateway) updateCartItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badBody(c, err)
		return
	}
	if req.Delta == nil {
		g.writeError(c, apperr.Invalid("delta", "is required"))
		return
	}

	view, err := g.deps.Carts.UpdateQuantity(c.Request.Context(), c.GetString(sessionKey), c.Param("id"), *req.Delta)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (g *Gateway) removeCartItem(c *gin.Context) {
	view, err := g.deps.Carts.Remove(c.Request.Context(), c.GetString(sessionKey), c.Param("id"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (g *Gateway) clearCart(c *gin.Context) {
	view, err := g.deps.Carts.Clear(c.Request.Context(), c.GetString(sessionKey))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// checkout turns the session's cart into an order. The cart is emptied
// only when the order was stored.
func (g *Gateway) checkout(c *gin.Context) {
	var customer order.Customer
	if err := c.ShouldBindJSON(&customer); err != nil {
		g.badBody(c, err)
		return
	}

	o, err := g.deps.Checkout.SubmitCart(c.Request.Context(), c.GetString(sessionKey), customer)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}
