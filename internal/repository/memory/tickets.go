package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/repository"
)

type TicketRepo struct {
	store *Store
	tx    *state
}

func (r *TicketRepo) Create(_ context.Context, t *domain.ItemTicket) error {
	const op = "memory.TicketRepo.Create"

	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	if _, ok := st.tickets[t.ID]; ok {
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}

	if _, ok := st.items[t.ItemID]; !ok {
		return fmt.Errorf("%s: item %s: %w", op, t.ItemID, repository.ErrNotFound)
	}

	if t.OrderID != nil {
		if _, ok := st.orders[*t.OrderID]; !ok {
			return fmt.Errorf("%s: order %s: %w", op, *t.OrderID, repository.ErrNotFound)
		}
	}

	now := r.store.now()
	t.CreatedAt = now
	t.UpdatedAt = now

	st.seq++
	row := ticketRow{ItemTicket: *t, seq: st.seq}
	row.Item = nil
	st.tickets[t.ID] = row

	return nil
}

func (r *TicketRepo) Get(_ context.Context, id uuid.UUID) (*domain.ItemTicket, error) {
	const op = "memory.TicketRepo.Get"

	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	row, ok := st.tickets[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	t := row.ItemTicket
	return &t, nil
}

func (f filter) match(t domain.ItemTicket) bool {
	if f.ItemID != nil && t.ItemID != *f.ItemID {
		return false
	}

	if f.OrderID != nil && !t.BoundTo(*f.OrderID) {
		return false
	}

	if f.Unassigned && t.OrderID != nil {
		return false
	}

	if f.Timeslot != "" && t.Timeslot != f.Timeslot {
		return false
	}

	if len(f.Statuses) == 0 {
		return true
	}

	for _, s := range f.Statuses {
		if t.Status == s {
			return true
		}
	}

	return false
}

type filter repository.TicketFilter

// List mirrors the SQL ordering: timeslot ascending with empty slots last,
// then creation time, then insertion sequence. Lock is a no-op because
// transactions are already serialized.
func (r *TicketRepo) List(_ context.Context, f repository.TicketFilter) ([]domain.ItemTicket, error) {
	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	var rows []ticketRow
	for _, row := range st.tickets {
		if filter(f).match(row.ItemTicket) {
			rows = append(rows, row)
		}
	}

	sort.Slice(rows, func(i, j int) bool { return ticketLess(rows[i], rows[j]) })

	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}

	out := make([]domain.ItemTicket, len(rows))
	for i, row := range rows {
		out[i] = row.ItemTicket
	}

	return out, nil
}

func ticketLess(a, b ticketRow) bool {
	if a.Timeslot != b.Timeslot {
		switch {
		case a.Timeslot == "":
			return false
		case b.Timeslot == "":
			return true
		}
		return a.Timeslot < b.Timeslot
	}

	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}

	return a.seq < b.seq
}

func (r *TicketRepo) Update(_ context.Context, t *domain.ItemTicket) error {
	const op = "memory.TicketRepo.Update"

	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	row, ok := st.tickets[t.ID]
	if !ok {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	if t.OrderID != nil {
		if _, ok := st.orders[*t.OrderID]; !ok {
			return fmt.Errorf("%s: order %s: %w", op, *t.OrderID, repository.ErrNotFound)
		}
	}

	row.Status = t.Status
	row.OrderID = copyID(t.OrderID)
	row.Timeslot = t.Timeslot
	row.UpdatedAt = r.store.now()
	st.tickets[t.ID] = row

	t.UpdatedAt = row.UpdatedAt

	return nil
}

func (r *TicketRepo) Transition(
	_ context.Context,
	ids []uuid.UUID,
	from, to domain.TicketStatus,
) (int64, error) {
	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	return r.updateEach(st, ids, func(row *ticketRow) bool {
		if row.Status != from {
			return false
		}
		row.Status = to
		return true
	}), nil
}

func (r *TicketRepo) Claim(_ context.Context, orderID uuid.UUID, ids []uuid.UUID) (int64, error) {
	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	return r.updateEach(st, ids, func(row *ticketRow) bool {
		switch {
		case row.Status == domain.TicketReady && (row.OrderID == nil || *row.OrderID == orderID):
		case row.Status == domain.TicketCompleted && row.BoundTo(orderID):
		default:
			return false
		}

		row.Status = domain.TicketCompleted
		row.OrderID = copyID(&orderID)
		return true
	}), nil
}

func (r *TicketRepo) Unassign(_ context.Context, orderID uuid.UUID, except []uuid.UUID) (int64, error) {
	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	keep := make(map[uuid.UUID]bool, len(except))
	for _, id := range except {
		keep[id] = true
	}

	return r.updateBound(st, orderID, func(row *ticketRow) bool {
		if keep[row.ID] {
			return false
		}
		row.OrderID = nil
		return true
	}), nil
}

func (r *TicketRepo) SetStatusByOrder(
	_ context.Context,
	orderID uuid.UUID,
	status domain.TicketStatus,
) (int64, error) {
	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	return r.updateBound(st, orderID, func(row *ticketRow) bool {
		row.Status = status
		return true
	}), nil
}

func (r *TicketRepo) CountByOrderNotInStatus(
	_ context.Context,
	orderID uuid.UUID,
	status domain.TicketStatus,
) (int64, error) {
	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	var n int64
	for _, row := range st.tickets {
		if row.BoundTo(orderID) && row.Status != status {
			n++
		}
	}

	return n, nil
}

func (r *TicketRepo) DeleteAll(context.Context) (int64, error) {
	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	n := int64(len(st.tickets))
	st.tickets = make(map[uuid.UUID]ticketRow)

	return n, nil
}

func (r *TicketRepo) updateEach(st *state, ids []uuid.UUID, fn func(*ticketRow) bool) int64 {
	now := r.store.now()
	seen := make(map[uuid.UUID]bool, len(ids))

	var n int64
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		row, ok := st.tickets[id]
		if !ok || !fn(&row) {
			continue
		}

		row.UpdatedAt = now
		st.tickets[id] = row
		n++
	}

	return n
}

func (r *TicketRepo) updateBound(st *state, orderID uuid.UUID, fn func(*ticketRow) bool) int64 {
	now := r.store.now()

	var n int64
	for id, row := range st.tickets {
		if !row.BoundTo(orderID) || !fn(&row) {
			continue
		}

		row.UpdatedAt = now
		st.tickets[id] = row
		n++
	}

	return n
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

var _ repository.TicketRepository = (*TicketRepo)(nil)
