package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/pizza-go/internal/service"
	"github.com/kirinyoku/pizza-go/internal/service/admin"
)

// @Summary  Create catalog item
// @Tags     admin
// @Security BearerAuth
// @Param    req body  CreateItemRequest true "item"
// @Success  201 {object} domain.Item
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "name taken"
// @Router   /admin/item [post]
func handleCreateItem(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		it, err := svcs.Admin.CreateItem(c.Request.Context(), admin.NewItem{
			Name:        req.Name,
			Price:       req.Price,
			Type:        req.Type,
			Dietary:     req.Dietary,
			Ingredients: req.Ingredients,
			Size:        req.Size,
			Max:         req.Max,
			Enabled:     req.Enabled == nil || *req.Enabled,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, it)
	}
}

// @Summary  Enable or disable catalog item
// @Tags     admin
// @Security BearerAuth
// @Param    id  path  string             true  "Item ID (uuid)"
// @Param    req body  SetEnabledRequest  true  "flag"
// @Success  200 {object} map[string]any
// @Failure  404 {object} ErrorResponse
// @Router   /admin/item/{id}/enabled [put]
func handleSetItemEnabled(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req SetEnabledRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if err := svcs.Admin.SetItemEnabled(c.Request.Context(), id, *req.Enabled); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "enabled": *req.Enabled})
	}
}

// @Summary  Delete all tickets and orders
// @Tags     admin
// @Security BearerAuth
// @Success  200 {object} admin.ResetResult
// @Router   /admin/reset [post]
func handleReset(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svcs.Admin.Reset(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary  Current engine settings
// @Tags     admin
// @Security BearerAuth
// @Success  200 {object} config.Engine
// @Router   /admin/config [get]
func handleGetSettings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svcs.Admin.Settings())
	}
}

// @Summary  Reload engine settings from disk
// @Tags     admin
// @Security BearerAuth
// @Success  200 {object} config.Engine
// @Failure  500 {object} ErrorResponse "file missing or invalid, old settings kept"
// @Router   /admin/config/reload [post]
func handleReloadSettings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eng, err := svcs.Admin.ReloadSettings(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, eng)
	}
}
