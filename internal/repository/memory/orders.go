package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/repository"
	"github.com/shopspring/decimal"
)

type OrderRepo struct {
	store *Store
	tx    *state
}

func (r *OrderRepo) Create(_ context.Context, o *domain.Order) error {
	const op = "memory.OrderRepo.Create"

	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	if _, ok := st.orders[o.ID]; ok {
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}

	o.UpdatedAt = r.store.now()
	st.orders[o.ID] = cloneOrder(*o)

	return nil
}

func (r *OrderRepo) Get(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "memory.OrderRepo.Get"

	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	o, ok := st.orders[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	out := cloneOrder(o)
	return &out, nil
}

// GetForUpdate is Get: the surrounding transaction already excludes every
// other writer.
func (r *OrderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.Get(ctx, id)
}

func (r *OrderRepo) List(context.Context) ([]domain.Order, error) {
	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	out := make([]domain.Order, 0, len(st.orders))
	for _, o := range st.orders {
		out = append(out, cloneOrder(o))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].OrderDate.Before(out[j].OrderDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	return out, nil
}

func (r *OrderRepo) Update(_ context.Context, o *domain.Order) error {
	const op = "memory.OrderRepo.Update"

	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	prev, ok := st.orders[o.ID]
	if !ok {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	o.OrderDate = prev.OrderDate
	o.UpdatedAt = r.store.now()
	st.orders[o.ID] = cloneOrder(*o)

	return nil
}

func (r *OrderRepo) LockSlot(context.Context, string) error { return nil }

func (r *OrderRepo) BookedSize(_ context.Context, timeslot string) (decimal.Decimal, error) {
	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	return domain.BookedSize(orderValues(st), timeslot), nil
}

func (r *OrderRepo) BookedSizes(context.Context) (map[string]decimal.Decimal, error) {
	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	out := make(map[string]decimal.Decimal)
	for _, o := range st.orders {
		if o.Status == domain.OrderCancelled {
			continue
		}
		out[o.Timeslot] = out[o.Timeslot].Add(domain.LinesSize(o.Items))
	}

	return out, nil
}

// DeleteAll removes every order and releases the tickets bound to them.
func (r *OrderRepo) DeleteAll(context.Context) (int64, error) {
	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	n := int64(len(st.orders))
	st.orders = make(map[uuid.UUID]domain.Order)

	for id, row := range st.tickets {
		if row.OrderID != nil {
			row.OrderID = nil
			st.tickets[id] = row
		}
	}

	return n, nil
}

func orderValues(st *state) []domain.Order {
	out := make([]domain.Order, 0, len(st.orders))
	for _, o := range st.orders {
		out = append(out, o)
	}
	return out
}

var _ repository.OrderRepository = (*OrderRepo)(nil)
