package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/models"
	"github.com/example/bistro/pkg/order"
)

type createOrderRequest struct {
	order.Customer
	Items []order.LineInput `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (g *Gateway) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badBody(c, err)
		return
	}

	o, err := g.deps.Orders.CreateOrder(c.Request.Context(), req.Customer, req.Items)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (g *Gateway) getOrder(c *gin.Context) {
	o, err := g.deps.Orders.GetOrderByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (g *Gateway) listOrders(c *gin.Context) {
	orders, err := g.deps.Orders.ListOrders(c.Request.Context(), c.Query("status"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  len(orders),
	})
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badBody(c, err)
		return
	}

	o, err := g.deps.Orders.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// patchOrder accepts only status and notes. Any other field is rejected
// so clients cannot believe they changed totals or items.
func (g *Gateway) patchOrder(c *gin.Context) {
	var patch models.OrderPatch
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		g.badBody(c, err)
		return
	}

	o, err := g.deps.Orders.PatchOrder(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (g *Gateway) deleteOrder(c *gin.Context) {
	if err := g.deps.Orders.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		g.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (g *Gateway) orderAudit(c *gin.Context) {
	var limit int64
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			g.writeError(c, apperr.Invalid("limit", "must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := g.deps.Orders.AuditTrail(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		g.writeError(c, err)
		return
	}
	if entries == nil {
		entries = []*models.AuditEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
