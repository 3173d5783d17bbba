package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/shopspring/decimal"
)

// TicketFilter selects tickets. Results are ordered by ascending timeslot
// (tickets without a slot last), then creation time, then storage order.
type TicketFilter struct {
	ItemID     *uuid.UUID
	OrderID    *uuid.UUID
	Unassigned bool
	// Timeslot matches tickets scheduled for exactly this slot when set.
	Timeslot string
	Statuses   []domain.TicketStatus
	Limit      int
	// Lock claims the matched rows for the surrounding transaction and skips
	// rows another transaction already holds.
	Lock bool
}

type ItemRepository interface {
	Create(ctx context.Context, it *domain.Item) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Item, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Item, error)
	List(ctx context.Context, onlyEnabled bool) ([]domain.Item, error)
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
}

type TicketRepository interface {
	Create(ctx context.Context, t *domain.ItemTicket) error
	Get(ctx context.Context, id uuid.UUID) (*domain.ItemTicket, error)
	List(ctx context.Context, f TicketFilter) ([]domain.ItemTicket, error)
	// Update persists status, order id and timeslot of a single ticket.
	Update(ctx context.Context, t *domain.ItemTicket) error
	// Transition moves the given tickets from -> to and reports how many
	// actually were in the from state.
	Transition(ctx context.Context, ids []uuid.UUID, from, to domain.TicketStatus) (int64, error)
	// Claim binds READY tickets that are free or already bound to orderID and
	// marks them COMPLETED. Tickets already COMPLETED for orderID count as
	// claimed so the call can be repeated.
	Claim(ctx context.Context, orderID uuid.UUID, ids []uuid.UUID) (int64, error)
	// Unassign clears the order id of every ticket bound to orderID except
	// the listed ones.
	Unassign(ctx context.Context, orderID uuid.UUID, except []uuid.UUID) (int64, error)
	SetStatusByOrder(ctx context.Context, orderID uuid.UUID, status domain.TicketStatus) (int64, error)
	CountByOrderNotInStatus(ctx context.Context, orderID uuid.UUID, status domain.TicketStatus) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// GetForUpdate reads the order and holds it until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	// LockSlot serializes writers of one time slot until the transaction ends.
	LockSlot(ctx context.Context, timeslot string) error
	BookedSize(ctx context.Context, timeslot string) (decimal.Decimal, error)
	BookedSizes(ctx context.Context) (map[string]decimal.Decimal, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// Tx is the set of repositories bound to one transaction.
type Tx interface {
	Items() ItemRepository
	Tickets() TicketRepository
	Orders() OrderRepository
}

// Store is a transactional persistent store. Repositories obtained directly
// from the store run each call in its own implicit transaction.
type Store interface {
	Tx
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
}
