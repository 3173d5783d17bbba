package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketDemanded       TicketStatus = "DEMANDED"
	TicketActive         TicketStatus = "ACTIVE"
	TicketReady          TicketStatus = "READY"
	TicketCompleted      TicketStatus = "COMPLETED"
	TicketCancelledWaste TicketStatus = "CANCELLED_WASTE"
)

var ticketRank = map[TicketStatus]int{
	TicketDemanded:  0,
	TicketActive:    1,
	TicketReady:     2,
	TicketCompleted: 3,
}

func (s TicketStatus) Valid() bool {
	_, ok := ticketRank[s]
	return ok || s == TicketCancelledWaste
}

// Bindable reports whether a ticket in this status may carry an order id.
func (s TicketStatus) Bindable() bool {
	return s == TicketActive || s == TicketReady || s == TicketCompleted
}

// CanTransitionTicket checks a direct staff update from -> to. Tickets only
// move forward, except that any ticket may be marked READY and that waste is
// reachable from ACTIVE or READY. Retrieval bypasses this check.
func CanTransitionTicket(from, to TicketStatus) bool {
	if !to.Valid() {
		return false
	}

	if from == to {
		return true
	}

	if from == TicketCancelledWaste {
		return false
	}

	switch to {
	case TicketReady:
		return true
	case TicketCancelledWaste:
		return from == TicketActive || from == TicketReady
	}

	return ticketRank[to] > ticketRank[from]
}

type OrderStatus string

const (
	OrderOrdered   OrderStatus = "ordered"
	OrderActive    OrderStatus = "active"
	OrderReady     OrderStatus = "ready_for_pickup"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// legacy names still sent by older staff screens
var orderStatusAliases = map[string]OrderStatus{
	"pending":       OrderOrdered,
	"paid":          OrderOrdered,
	"inPreparation": OrderActive,
	"ready":         OrderReady,
	"delivered":     OrderCompleted,
}

// ParseOrderStatus accepts canonical and legacy status names.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case OrderOrdered, OrderActive, OrderReady, OrderCompleted, OrderCancelled:
		return st, true
	}

	st, ok := orderStatusAliases[s]
	return st, ok
}

func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

type Item struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Type        string          `json:"type"`
	Dietary     string          `json:"dietary,omitempty"`
	Ingredients []string        `json:"ingredients,omitempty"`
	Size        decimal.Decimal `json:"size"`
	Max         int             `json:"max"`
	Enabled     bool            `json:"enabled"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// ItemTicket is one unit of preparation work for one item type.
type ItemTicket struct {
	ID        uuid.UUID    `json:"id"`
	ItemID    uuid.UUID    `json:"itemTypeRef"`
	Item      *Item        `json:"item,omitempty"`
	Status    TicketStatus `json:"status"`
	OrderID   *uuid.UUID   `json:"orderId"`
	Timeslot  string       `json:"timeslot,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (t *ItemTicket) BoundTo(orderID uuid.UUID) bool {
	return t.OrderID != nil && *t.OrderID == orderID
}

// OrderLine is an immutable snapshot of a catalog item taken when the order
// was placed. Only Status changes afterwards.
type OrderLine struct {
	ItemID      uuid.UUID       `json:"item"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Type        string          `json:"type"`
	Dietary     string          `json:"dietary,omitempty"`
	Ingredients []string        `json:"ingredients,omitempty"`
	Size        decimal.Decimal `json:"size"`
	Status      TicketStatus    `json:"status"`
}

func NewOrderLine(it Item) OrderLine {
	ingredients := make([]string, len(it.Ingredients))
	copy(ingredients, it.Ingredients)

	return OrderLine{
		ItemID:      it.ID,
		Name:        it.Name,
		Price:       it.Price,
		Type:        it.Type,
		Dietary:     it.Dietary,
		Ingredients: ingredients,
		Size:        it.Size,
		Status:      TicketDemanded,
	}
}

type Order struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Comment    string          `json:"comment"`
	Items      []OrderLine     `json:"items"`
	OrderDate  time.Time       `json:"orderDate"`
	Timeslot   string          `json:"timeslot"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	IsPaid     bool            `json:"isPaid"`
	Status     OrderStatus     `json:"status"`
	FinishedAt *time.Time      `json:"finishedAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// RequiredCounts groups the order lines by item type. The returned id slice
// keeps first-appearance order so allocation is deterministic.
func (o *Order) RequiredCounts() ([]uuid.UUID, map[uuid.UUID]int) {
	counts := make(map[uuid.UUID]int)
	var ids []uuid.UUID

	for _, l := range o.Items {
		if _, ok := counts[l.ItemID]; !ok {
			ids = append(ids, l.ItemID)
		}
		counts[l.ItemID]++
	}

	return ids, counts
}

// Demand returns one unbound DEMANDED ticket per order line, scheduled for
// the order's slot.
func (o *Order) Demand() []ItemTicket {
	out := make([]ItemTicket, len(o.Items))
	for i, l := range o.Items {
		out[i] = ItemTicket{
			ID:       uuid.New(),
			ItemID:   l.ItemID,
			Status:   TicketDemanded,
			Timeslot: o.Timeslot,
		}
	}
	return out
}

// Complete moves the order to its terminal completed state.
func (o *Order) Complete(now time.Time) {
	o.Status = OrderCompleted
	o.FinishedAt = &now
	o.setLineStatus(TicketCompleted)
}

// Reopen undoes a delivery or cancellation.
func (o *Order) Reopen() {
	o.Status = OrderActive
	o.FinishedAt = nil
	o.setLineStatus(TicketReady)
}

func (o *Order) setLineStatus(s TicketStatus) {
	for i := range o.Items {
		o.Items[i].Status = s
	}
}

// Normalize enforces finishedAt being set iff the order is completed.
func (o *Order) Normalize(now time.Time) {
	if o.Status != OrderCompleted {
		o.FinishedAt = nil
		return
	}

	if o.FinishedAt == nil {
		o.FinishedAt = &now
	}
}
