package httpgin

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/service"
	"github.com/kirinyoku/pizza-go/internal/service/allocation"
	"github.com/kirinyoku/pizza-go/internal/service/query"
)

// @Summary  List tickets
// @Tags     staff
// @Security BearerAuth
// @Param    status  query string false "ticket status"
// @Param    itemId  query string false "item id"
// @Param    orderId query string false "order id"
// @Success  200 {array}  domain.ItemTicket
// @Failure  400 {object} ErrorResponse
// @Router   /order/ticket [get]
func handleListTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := parseUUIDQuery(c, "itemId")
		if !ok {
			return
		}
		orderID, ok := parseUUIDQuery(c, "orderId")
		if !ok {
			return
		}

		tickets, err := svcs.Query.ListTickets(c.Request.Context(), query.TicketQuery{
			ItemID:  itemID,
			OrderID: orderID,
			Status:  c.Query("status"),
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		if tickets == nil {
			tickets = []domain.ItemTicket{}
		}
		c.JSON(http.StatusOK, tickets)
	}
}

// @Summary  Create ticket
// @Tags     staff
// @Security BearerAuth
// @Param    req body  CreateTicketRequest true "ticket"
// @Success  201 {object} domain.ItemTicket
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse "unknown item"
// @Router   /order/ticket [post]
func handleCreateTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTicketRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		itemID, ok := parseUUID(c, req.ItemID, "itemId")
		if !ok {
			return
		}

		t, err := svcs.Allocation.CreateTicket(c.Request.Context(), allocation.NewTicket{
			ItemID:   itemID,
			Timeslot: req.Timeslot,
			Status:   domain.TicketStatus(req.Status),
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, t)
	}
}

// @Summary  Update ticket
// @Description DEMANDED to ACTIVE promotes a whole batch; READY may complete the bound order.
// @Tags     staff
// @Security BearerAuth
// @Param    req body  UpdateTicketRequest true "change"
// @Success  200 {object} allocation.UpdateResult
// @Failure  400 {object} ErrorResponse "invalid transition"
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse
// @Router   /order/ticket [put]
func handleUpdateTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateTicketRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		id, ok := parseUUID(c, req.ID, "id")
		if !ok {
			return
		}

		upd := allocation.TicketUpdate{ID: id}

		if req.Status != nil {
			st := domain.TicketStatus(*req.Status)
			upd.Status = &st
		}

		if len(req.OrderID) > 0 {
			orderID, ok := parseOrderRef(c, req.OrderID)
			if !ok {
				return
			}
			upd.OrderID = &orderID
		}

		res, err := svcs.Allocation.UpdateTicket(c.Request.Context(), upd)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// parseOrderRef decodes the orderId of a ticket update. null and "" mean
// unbind and map to uuid.Nil.
func parseOrderRef(c *gin.Context, raw json.RawMessage) (uuid.UUID, bool) {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		badRequest(c, "invalid orderId")
		return uuid.Nil, false
	}

	if s == nil || *s == "" {
		return uuid.Nil, true
	}

	return parseUUID(c, *s, "orderId")
}
