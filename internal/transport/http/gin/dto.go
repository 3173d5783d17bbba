package httpgin

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/shopspring/decimal"
)

// OrderItemRef is one requested unit as sent by the storefront. Only the key
// it is filed under matters; price and size always come from the catalog.
type OrderItemRef struct {
	ID   string          `json:"_id"`
	Size decimal.Decimal `json:"size"`
}

type CreateOrderRequest struct {
	Items    map[string][]OrderItemRef `json:"items" binding:"required"`
	Name     string                    `json:"name"`
	Comment  string                    `json:"comment"`
	Timeslot string                    `json:"timeslot" binding:"required"`
}

// itemIDs flattens the id-keyed multimap into one id per requested unit.
// Keys are visited in sorted order so the stored lines are stable.
func (r CreateOrderRequest) itemIDs() ([]uuid.UUID, error) {
	keys := make([]string, 0, len(r.Items))
	for k := range r.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var ids []uuid.UUID
	for _, k := range keys {
		id, err := uuid.Parse(k)
		if err != nil {
			return nil, err
		}
		for range r.Items[k] {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

type OrderPatch struct {
	Name       *string            `json:"name"`
	Comment    *string            `json:"comment"`
	Items      []domain.OrderLine `json:"items"`
	Timeslot   *string            `json:"timeslot"`
	TotalPrice *decimal.Decimal   `json:"totalPrice"`
	Status     *string            `json:"status"`
	IsPaid     *bool              `json:"isPaid"`
	FinishedAt *time.Time         `json:"finishedAt"`
}

type UpdateOrderRequest struct {
	ID    string     `json:"id" binding:"required,uuid"`
	Order OrderPatch `json:"order"`
}

type PayRequest struct {
	IsPaid *bool `json:"isPaid" binding:"required"`
}

type PayResponse struct {
	IsPaid bool `json:"isPaid"`
}

type DeliverRequest struct {
	ID            string `json:"id" binding:"required,uuid"`
	IgnoreTickets bool   `json:"ignoreTickets"`
}

type RetrieveRequest struct {
	ID string `json:"id" binding:"required,uuid"`
}

type CreateTicketRequest struct {
	ItemID   string `json:"itemId" binding:"required,uuid"`
	Timeslot string `json:"timeslot"`
	Status   string `json:"status"`
}

// UpdateTicketRequest leaves absent fields alone. orderId set to null or ""
// unbinds the ticket.
type UpdateTicketRequest struct {
	ID      string          `json:"id" binding:"required,uuid"`
	Status  *string         `json:"status"`
	OrderID json.RawMessage `json:"orderId" swaggertype:"string"`
}

type CreateItemRequest struct {
	Name        string          `json:"name" binding:"required"`
	Price       decimal.Decimal `json:"price" swaggertype:"string"`
	Type        string          `json:"type" binding:"required"`
	Dietary     string          `json:"dietary"`
	Ingredients []string        `json:"ingredients"`
	Size        decimal.Decimal `json:"size" swaggertype:"string"`
	Max         int             `json:"max"`
	Enabled     *bool           `json:"enabled"`
}

type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

// OrderSummary is the staff list projection of an order.
type OrderSummary struct {
	ID         uuid.UUID          `json:"id"`
	Name       string             `json:"name"`
	Comment    string             `json:"comment"`
	OrderDate  time.Time          `json:"orderDate"`
	Timeslot   string             `json:"timeslot"`
	TotalPrice decimal.Decimal    `json:"totalPrice" swaggertype:"string"`
	Status     domain.OrderStatus `json:"status"`
	IsPaid     bool               `json:"isPaid"`
	FinishedAt *time.Time         `json:"finishedAt"`
	Items      []LineSummary      `json:"items"`
}

type LineSummary struct {
	Item   uuid.UUID           `json:"item"`
	Status domain.TicketStatus `json:"status"`
}

func summarize(orders []domain.Order) []OrderSummary {
	out := make([]OrderSummary, len(orders))
	for i, o := range orders {
		lines := make([]LineSummary, len(o.Items))
		for j, l := range o.Items {
			lines[j] = LineSummary{Item: l.ItemID, Status: l.Status}
		}

		out[i] = OrderSummary{
			ID:         o.ID,
			Name:       o.Name,
			Comment:    o.Comment,
			OrderDate:  o.OrderDate,
			Timeslot:   o.Timeslot,
			TotalPrice: o.TotalPrice,
			Status:     o.Status,
			IsPaid:     o.IsPaid,
			FinishedAt: o.FinishedAt,
			Items:      lines,
		}
	}

	return out
}
