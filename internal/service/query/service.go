// Package query serves the read side used by kitchen and delivery screens.
package query

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/repository"
	"github.com/kirinyoku/pizza-go/internal/service/catalog"
)

type Service struct {
	store   repository.Store
	catalog *catalog.Service
}

func New(store repository.Store, catalog *catalog.Service) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
	}
}

// TicketQuery narrows ListTickets. Zero values match everything.
type TicketQuery struct {
	ItemID  *uuid.UUID
	OrderID *uuid.UUID
	Status  string
}

// ListTickets returns tickets with their catalog item populated, earliest
// timeslot first.
//
// Parameters:
//   - ctx: request-scoped context.
//   - q: optional filters.
//
// Returns:
//   - []domain.ItemTicket: matching tickets.
//   - error: query.ErrInvalidFilter if q.Status is not a ticket status.
func (s *Service) ListTickets(ctx context.Context, q TicketQuery) ([]domain.ItemTicket, error) {
	const op = "service.query.ListTickets"

	f := repository.TicketFilter{
		ItemID:  q.ItemID,
		OrderID: q.OrderID,
	}

	if q.Status != "" {
		st := domain.TicketStatus(q.Status)
		if !st.Valid() {
			return nil, fmt.Errorf("%s: %w: status %q", op, ErrInvalidFilter, q.Status)
		}
		f.Statuses = []domain.TicketStatus{st}
	}

	tickets, err := s.store.Tickets().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items, err := s.catalog.Index(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range tickets {
		if it, ok := items[tickets[i].ItemID]; ok {
			tickets[i].Item = &it
		}
	}

	return tickets, nil
}

// ListOrders returns orders oldest first, optionally only those in status.
// Legacy status names are accepted.
//
// Returns:
//   - []domain.Order: matching orders.
//   - error: query.ErrInvalidFilter if status is unknown.
func (s *Service) ListOrders(ctx context.Context, status string) ([]domain.Order, error) {
	const op = "service.query.ListOrders"

	var want domain.OrderStatus
	if status != "" {
		st, ok := domain.ParseOrderStatus(status)
		if !ok {
			return nil, fmt.Errorf("%s: %w: status %q", op, ErrInvalidFilter, status)
		}
		want = st
	}

	orders, err := s.store.Orders().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if want == "" {
		return orders, nil
	}

	out := orders[:0]
	for _, o := range orders {
		if o.Status == want {
			out = append(out, o)
		}
	}

	return out, nil
}
