package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/bistro/pkg/cart"
	"github.com/example/bistro/pkg/models"
	"github.com/example/bistro/pkg/order"
)

const (
	sessionHeader = "X-Session-ID"
	sessionKey    = "session_id"
)

type OrderService interface {
	CreateOrder(ctx context.Context, customer order.Customer, lines []order.LineInput) (*models.Order, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, status string) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error)
	PatchOrder(ctx context.Context, id string, patch models.OrderPatch) (*models.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	AuditTrail(ctx context.Context, id string, limit int64) ([]*models.AuditEntry, error)
}

type Catalog interface {
	List(ctx context.Context) ([]models.MenuItem, error)
	GetByID(ctx context.Context, id string) (*models.MenuItem, error)
	ListByCategory(ctx context.Context, category models.MenuCategory) ([]models.MenuItem, error)
	ListPopular(ctx context.Context) ([]models.MenuItem, error)
	Search(ctx context.Context, term string) ([]models.MenuItem, error)
}

type Carts interface {
	Get(ctx context.Context, sessionID string) (cart.View, error)
	Add(ctx context.Context, sessionID string, item *models.MenuItem) (cart.View, error)
	UpdateQuantity(ctx context.Context, sessionID, menuItemID string, delta int) (cart.View, error)
	Remove(ctx context.Context, sessionID, menuItemID string) (cart.View, error)
	Clear(ctx context.Context, sessionID string) (cart.View, error)
}

type Checkout interface {
	SubmitCart(ctx context.Context, sessionID string, customer order.Customer) (*models.Order, error)
}

// Dependencies are the services the HTTP routes call into.
type Dependencies struct {
	Orders   OrderService
	Menu     Catalog
	Carts    Carts
	Checkout Checkout
	// Health reports whether the backing stores are reachable.
	Health func(ctx context.Context) error
}

type Gateway struct {
	deps   Dependencies
	logger *zap.Logger
	router *gin.Engine
}

func NewGateway(deps Dependencies, logger *zap.Logger) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	g := &Gateway{
		deps:   deps,
		logger: logger.Named("gateway"),
		router: router,
	}
	g.setupRoutes()
	return g
}

func (g *Gateway) setupRoutes() {
	g.router.GET("/health", g.health)

	v1 := g.router.Group("/api/v1")
	{
		menu := v1.Group("/menu")
		{
			menu.GET("", g.listMenu)
			menu.GET("/:id", g.getMenuItem)
		}

		carts := v1.Group("/cart", sessionMiddleware())
		{
			carts.GET("", g.getCart)
			carts.DELETE("", g.clearCart)
			carts.POST("/items", g.addCartItem)
			carts.PATCH("/items/:id", g.updateCartItem)
			carts.DELETE("/items/:id", g.removeCartItem)
		}

		v1.POST("/checkout", sessionMiddleware(), g.checkout)

		orders := v1.Group("/orders")
		{
			orders.POST("", g.createOrder)
			orders.GET("/:id", g.getOrder)
			orders.GET("", g.listOrders)
			orders.PUT("/:id/status", g.updateOrderStatus)
			orders.PATCH("/:id", g.patchOrder)
			orders.DELETE("/:id", g.deleteOrder)
			orders.GET("/:id/audit", g.orderAudit)
		}
	}
}

func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Server wraps the router in an http.Server so callers can shut it down
// gracefully.
func (g *Gateway) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (g *Gateway) health(c *gin.Context) {
	if g.deps.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := g.deps.Health(ctx); err != nil {
			g.logger.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// sessionMiddleware assigns a cart session. A missing or malformed
// X-Session-ID header gets a fresh id, echoed back in the response.
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(sessionHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(sessionKey, id)
		c.Header(sessionHeader, id)
		c.Next()
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("session_id", c.GetString(sessionKey)),
		)
	}
}
