package httpgin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/feed"
	redisrepo "github.com/kirinyoku/pizza-go/internal/repository/redis"
	"github.com/kirinyoku/pizza-go/internal/service"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// idemLockTTL bounds how long a crashed request can block retries that carry
// the same Idempotency-Key.
const idemLockTTL = 60 * time.Second

// NewRouter builds the HTTP API. idem and hub may be nil: requests are then
// processed without idempotency replay and /feed is not mounted. An empty
// jwtSecret leaves staff routes open.
func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	hub *feed.Hub,
	jwtSecret string,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	staff := StaffAuth(jwtSecret, RoleStaff)
	adminOnly := StaffAuth(jwtSecret, RoleAdmin)

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// storefront
	r.GET("/item", handleListItems(svcs))
	r.GET("/order/slots", handleListSlots(svcs))
	r.POST("/order", handleCreateOrder(svcs, idem))
	r.GET("/order/:id", handleGetOrder(svcs))
	r.PUT("/order/:id/cancel", handleCancelOrder(svcs))
	r.GET("/order/:id/pay", handleGetPaid(svcs))

	// kitchen and delivery staff
	r.GET("/order", staff, handleListOrders(svcs))
	r.PUT("/order", staff, handleUpdateOrder(svcs))
	r.PUT("/order/:id/pay", staff, handleSetPaid(svcs))
	r.POST("/order/deliver", staff, handleDeliver(svcs, idem))
	r.POST("/order/retrieve", staff, handleRetrieve(svcs))
	r.GET("/order/ticket", staff, handleListTickets(svcs))
	r.POST("/order/ticket", staff, handleCreateTicket(svcs))
	r.PUT("/order/ticket", staff, handleUpdateTicket(svcs))

	if hub != nil {
		r.GET("/feed", staff, func(c *gin.Context) {
			hub.Serve(c.Writer, c.Request)
		})
	}

	admin := r.Group("/admin", adminOnly)
	{
		admin.POST("/item", handleCreateItem(svcs))
		admin.PUT("/item/:id/enabled", handleSetItemEnabled(svcs))
		admin.POST("/reset", handleReset(svcs))
		admin.GET("/config", handleGetSettings(svcs))
		admin.POST("/config/reload", handleReloadSettings(svcs))
	}

	return r
}

// idempotent runs fn once per Idempotency-Key within scope and replays the
// stored response for repeats. Without a key or a store it simply runs fn.
func idempotent(
	c *gin.Context,
	idem *redisrepo.IdempotencyStore,
	scope string,
	status int,
	fn func(ctx context.Context) (any, error),
) {
	ctx := c.Request.Context()

	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if idem == nil || idemKey == "" {
		resp, err := fn(ctx)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(status, resp)
		return
	}

	replay, acquired, err := idem.Begin(ctx, scope, idemKey, idemLockTTL)
	if err != nil {
		respondErr(c, err)
		return
	}
	if replay != nil {
		c.Header("Idempotency-Key", idemKey)
		c.Data(status, "application/json; charset=utf-8", replay)
		return
	}
	if !acquired {
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{Message: "idempotency key in progress"})
		return
	}

	resp, err := fn(ctx)
	if err != nil {
		_ = idem.Abort(ctx, scope, idemKey)
		respondErr(c, err)
		return
	}

	if b, err := json.Marshal(resp); err == nil {
		_ = idem.Finish(ctx, scope, idemKey, b)
	}

	c.Header("Idempotency-Key", idemKey)
	c.JSON(status, resp)
}

// --- Helpers ---

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	return parseUUID(c, c.Param(name), name)
}

func parseUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	s := c.Query(name)
	if s == "" {
		return nil, true
	}

	id, ok := parseUUID(c, s, name)
	if !ok {
		return nil, false
	}
	return &id, true
}

func parseUUID(c *gin.Context, s, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
