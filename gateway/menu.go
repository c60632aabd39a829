package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/models"
)

// listMenu serves the whole menu or one filtered view of it. When more
// than one filter is given, q wins over category, which wins over popular.
func (g *Gateway) listMenu(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		items []models.MenuItem
		err   error
	)
	if term, ok := c.GetQuery("q"); ok {
		items, err = g.deps.Menu.Search(ctx, term)
	} else if category, ok := c.GetQuery("category"); ok {
		items, err = g.deps.Menu.ListByCategory(ctx, models.MenuCategory(category))
	} else if raw, ok := c.GetQuery("popular"); ok {
		popular, perr := strconv.ParseBool(raw)
		if perr != nil {
			g.writeError(c, apperr.Invalid("popular", "must be true or false"))
			return
		}
		if popular {
			items, err = g.deps.Menu.ListPopular(ctx)
		} else {
			items, err = g.deps.Menu.List(ctx)
		}
	} else {
		items, err = g.deps.Menu.List(ctx)
	}
	if err != nil {
		g.writeError(c, err)
		return
	}
	if items == nil {
		items = []models.MenuItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (g *Gateway) getMenuItem(c *gin.Context) {
	item, err := g.deps.Menu.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}
