package httpgin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/pizza-go/internal/domain"
	redisrepo "github.com/kirinyoku/pizza-go/internal/repository/redis"
	"github.com/kirinyoku/pizza-go/internal/service"
	"github.com/kirinyoku/pizza-go/internal/service/orders"
)

// @Summary  Place order (idempotent)
// @Tags     orders
// @Param    req body  CreateOrderRequest true "checkout"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.Order
// @Failure  400 {object} ErrorResponse "invalid basket or slot full"
// @Failure  409 {object} ErrorResponse "idempotency key in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /order [post]
func handleCreateOrder(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		ids, err := req.itemIDs()
		if err != nil {
			badRequest(c, "invalid item id")
			return
		}

		in := orders.CreateInput{
			Name:     req.Name,
			Comment:  req.Comment,
			ItemIDs:  ids,
			Timeslot: req.Timeslot,
		}
		rlKey := "ip:" + c.ClientIP()

		idempotent(c, idem, "order", http.StatusCreated, func(ctx context.Context) (any, error) {
			return svcs.Orders.Create(ctx, in, rlKey)
		})
	}
}

// @Summary  List orders
// @Tags     staff
// @Security BearerAuth
// @Param    status query string false "order status, legacy names accepted"
// @Success  200 {array}  OrderSummary
// @Failure  400 {object} ErrorResponse
// @Router   /order [get]
func handleListOrders(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Query.ListOrders(c.Request.Context(), c.Query("status"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, summarize(list))
	}
}

// @Summary  Replace order fields
// @Tags     staff
// @Security BearerAuth
// @Param    req body  UpdateOrderRequest true "patch"
// @Success  200 {object} domain.Order
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse
// @Router   /order [put]
func handleUpdateOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		id, ok := parseUUID(c, req.ID, "id")
		if !ok {
			return
		}

		p := req.Order
		o, err := svcs.Orders.Update(c.Request.Context(), id, orders.UpdateInput{
			Name:       p.Name,
			Comment:    p.Comment,
			Items:      p.Items,
			Timeslot:   p.Timeslot,
			TotalPrice: p.TotalPrice,
			Status:     p.Status,
			IsPaid:     p.IsPaid,
			FinishedAt: p.FinishedAt,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// @Summary  Get order
// @Tags     orders
// @Param    id  path  string  true  "Order ID (uuid)"
// @Success  200 {object} domain.Order
// @Failure  404 {object} ErrorResponse
// @Router   /order/{id} [get]
func handleGetOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		o, err := svcs.Orders.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, o)
	}
}

// @Summary  Cancel order
// @Tags     orders
// @Param    id  path  string  true  "Order ID (uuid)"
// @Success  200 {object} domain.Order
// @Failure  400 {object} ErrorResponse "already ready or delivered"
// @Failure  404 {object} ErrorResponse
// @Router   /order/{id}/cancel [put]
func handleCancelOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		o, err := svcs.Orders.Cancel(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// @Summary  Get payment flag
// @Tags     orders
// @Param    id  path  string  true  "Order ID (uuid)"
// @Success  200 {object} PayResponse
// @Failure  404 {object} ErrorResponse
// @Router   /order/{id}/pay [get]
func handleGetPaid(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		o, err := svcs.Orders.Get(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, PayResponse{IsPaid: o.IsPaid})
	}
}

// @Summary  Set payment flag
// @Tags     staff
// @Security BearerAuth
// @Param    id  path  string      true  "Order ID (uuid)"
// @Param    req body  PayRequest  true  "flag"
// @Success  200 {object} PayResponse
// @Failure  404 {object} ErrorResponse
// @Router   /order/{id}/pay [put]
func handleSetPaid(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req PayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		o, err := svcs.Orders.SetPaid(c.Request.Context(), id, *req.IsPaid)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, PayResponse{IsPaid: o.IsPaid})
	}
}

// @Summary  Deliver order (idempotent)
// @Description Matches READY tickets to the order and completes it.
// @Tags     staff
// @Security BearerAuth
// @Param    req body  DeliverRequest true "order and force flag"
// @Success  200 {object} domain.Order
// @Failure  400 {object} ErrorResponse "not enough ready tickets or order finished"
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "delivery set does not cover the order"
// @Router   /order/deliver [post]
func handleDeliver(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DeliverRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, ok := parseUUID(c, req.ID, "id")
		if !ok {
			return
		}

		idempotent(c, idem, "deliver:"+id.String(), http.StatusOK, func(ctx context.Context) (any, error) {
			return svcs.Allocation.Deliver(ctx, id, req.IgnoreTickets)
		})
	}
}

// @Summary  Retrieve order
// @Description Undoes a delivery or cancellation; bound tickets go back to READY.
// @Tags     staff
// @Security BearerAuth
// @Param    req body  RetrieveRequest true "order"
// @Success  200 {object} domain.Order
// @Failure  400 {object} ErrorResponse "order not finished"
// @Failure  404 {object} ErrorResponse
// @Router   /order/retrieve [post]
func handleRetrieve(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RetrieveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, ok := parseUUID(c, req.ID, "id")
		if !ok {
			return
		}
		o, err := svcs.Allocation.Retrieve(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// @Summary  Slot availability
// @Tags     orders
// @Success  200 {array} capacity.Slot
// @Router   /order/slots [get]
func handleListSlots(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		slots, err := svcs.Capacity.Slots(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, slots, cacheSlots)
	}
}

// @Summary  List orderable items
// @Tags     orders
// @Success  200 {array} domain.Item
// @Router   /item [get]
func handleListItems(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svcs.Catalog.List(c.Request.Context(), true)
		if err != nil {
			respondErr(c, err)
			return
		}
		if items == nil {
			items = []domain.Item{}
		}
		writeJSONWithCache(c, http.StatusOK, items, cacheCatalog)
	}
}
