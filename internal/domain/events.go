package domain

import "github.com/google/uuid"

type EventType string

const (
	EventOrderChanged   EventType = "order_changed"
	EventTicketsChanged EventType = "tickets_changed"
	EventCatalogChanged EventType = "catalog_changed"
	EventReset          EventType = "reset"
)

// Event is published after a committed change so kitchen and delivery
// screens can refresh.
type Event struct {
	Type     EventType `json:"type"`
	OrderID  uuid.UUID `json:"order_id,omitempty"`
	ItemID   uuid.UUID `json:"item_id,omitempty"`
	Status   string    `json:"status,omitempty"`
	Timeslot string    `json:"timeslot,omitempty"`
	Count    int       `json:"count,omitempty"`
	TsUnix   int64     `json:"ts_unix"`
}
