package allocation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrAlreadyFinished   = errors.New("order is already completed or cancelled")
	ErrNotFinished       = errors.New("order is not completed or cancelled")
	ErrInvalidTransition = errors.New("invalid ticket transition")
	ErrContended         = errors.New("tickets changed concurrently, try again")
)

// ShortageError reports an item type that has too few READY tickets to
// deliver an order.
type ShortageError struct {
	ItemID   uuid.UUID
	ItemName string
	Missing  int
}

func (e ShortageError) Error() string {
	return fmt.Sprintf("not enough ready tickets for %s (%s): %d missing", e.ItemName, e.ItemID, e.Missing)
}

// ConflictError reports that the planned delivery set does not cover the
// order, typically because reserved tickets are still ACTIVE.
type ConflictError struct {
	Required  int
	Delivered int
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("could not satisfy full order: %d of %d items deliverable", e.Delivered, e.Required)
}
