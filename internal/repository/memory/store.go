// Package memory is an in-process implementation of repository.Store used
// for local runs (STORE_DRIVER=memory) and tests. Transactions are fully
// serialized and roll back by discarding a working copy of the state.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/repository"
)

type ticketRow struct {
	domain.ItemTicket
	seq int64
}

type state struct {
	items   map[uuid.UUID]domain.Item
	tickets map[uuid.UUID]ticketRow
	orders  map[uuid.UUID]domain.Order
	seq     int64
}

func newState() *state {
	return &state{
		items:   make(map[uuid.UUID]domain.Item),
		tickets: make(map[uuid.UUID]ticketRow),
		orders:  make(map[uuid.UUID]domain.Order),
	}
}

func (s *state) clone() *state {
	cp := newState()
	cp.seq = s.seq

	for id, it := range s.items {
		cp.items[id] = cloneItem(it)
	}
	for id, t := range s.tickets {
		cp.tickets[id] = t
	}
	for id, o := range s.orders {
		cp.orders[id] = cloneOrder(o)
	}

	return cp
}

type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		state: newState(),
		now:   time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.state.clone()
	if err := fn(ctx, &txRepos{store: s, st: work}); err != nil {
		return err
	}

	s.state = work
	return nil
}

func (s *Store) Items() repository.ItemRepository     { return &ItemRepo{store: s} }
func (s *Store) Tickets() repository.TicketRepository { return &TicketRepo{store: s} }
func (s *Store) Orders() repository.OrderRepository   { return &OrderRepo{store: s} }

type txRepos struct {
	store *Store
	st    *state
}

func (t *txRepos) Items() repository.ItemRepository {
	return &ItemRepo{store: t.store, tx: t.st}
}

func (t *txRepos) Tickets() repository.TicketRepository {
	return &TicketRepo{store: t.store, tx: t.st}
}

func (t *txRepos) Orders() repository.OrderRepository {
	return &OrderRepo{store: t.store, tx: t.st}
}

// acquire returns the state a repository call operates on. Calls outside a
// transaction take the store lock for their duration.
func acquire(s *Store, tx *state) (*state, func()) {
	if tx != nil {
		return tx, func() {}
	}

	s.mu.Lock()
	return s.state, s.mu.Unlock
}

func cloneItem(it domain.Item) domain.Item {
	if it.Ingredients != nil {
		it.Ingredients = append([]string(nil), it.Ingredients...)
	}
	return it
}

func cloneOrder(o domain.Order) domain.Order {
	lines := make([]domain.OrderLine, len(o.Items))
	for i, l := range o.Items {
		if l.Ingredients != nil {
			l.Ingredients = append([]string(nil), l.Ingredients...)
		}
		lines[i] = l
	}
	o.Items = lines

	if o.FinishedAt != nil {
		at := *o.FinishedAt
		o.FinishedAt = &at
	}

	return o
}
