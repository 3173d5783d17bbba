// Package allocation moves item tickets through preparation and matches
// them against orders at delivery time.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/config"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/repository"
	"github.com/kirinyoku/pizza-go/internal/uow"
)

// Publisher receives change events after their transaction committed.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// SlotCache drops cached slot availability once bookings changed.
type SlotCache interface {
	InvalidateSlots(ctx context.Context) error
}

type Service struct {
	store  repository.Store
	uow    *uow.UoW
	cache  SlotCache
	pub    Publisher
	engine *config.EngineSource
	logger *slog.Logger
	now    func() time.Time
}

func New(
	store repository.Store,
	cache SlotCache,
	pub Publisher,
	engine *config.EngineSource,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:  store,
		uow:    uow.NewUoW(store).WithRetries(func() int { return engine.Current().TxRetries }),
		cache:  cache,
		pub:    pub,
		engine: engine,
		logger: logger,
		now:    time.Now,
	}
}

// NewTicket describes a ticket staff add by hand.
type NewTicket struct {
	ItemID   uuid.UUID
	Timeslot string
	// Status defaults to DEMANDED. Only DEMANDED, ACTIVE and READY are
	// accepted.
	Status domain.TicketStatus
}

// TicketUpdate is a staff change to one ticket. Nil fields are left alone.
type TicketUpdate struct {
	ID     uuid.UUID
	Status *domain.TicketStatus
	// OrderID binds the ticket to an order; uuid.Nil unbinds it.
	OrderID *uuid.UUID
}

// UpdateResult is the outcome of UpdateTicket.
type UpdateResult struct {
	Ticket domain.ItemTicket `json:"ticket"`
	// Activated lists the whole batch when the update promoted demand.
	Activated []domain.ItemTicket `json:"activated,omitempty"`
	// Order is set when the update moved the bound order to a new status.
	Order *domain.Order `json:"order,omitempty"`
}

// CreateTicket adds a ticket for an existing catalog item.
//
// Returns:
//   - *domain.ItemTicket: the stored ticket.
//   - error: allocation.ErrItemNotFound if the item does not exist.
//   - error: allocation.ErrInvalidTransition for statuses other than
//     DEMANDED, ACTIVE or READY.
//   - error: domain.ErrBadTimeslot if the timeslot is not HH:MM.
func (s *Service) CreateTicket(ctx context.Context, in NewTicket) (*domain.ItemTicket, error) {
	const op = "service.allocation.CreateTicket"

	if in.Status == "" {
		in.Status = domain.TicketDemanded
	}

	switch in.Status {
	case domain.TicketDemanded, domain.TicketActive, domain.TicketReady:
	default:
		return nil, fmt.Errorf("%s: %w: cannot create a %s ticket", op, ErrInvalidTransition, in.Status)
	}

	if in.Timeslot != "" {
		ts, err := domain.ParseTimeslot(in.Timeslot)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		in.Timeslot = ts.String()
	}

	t := domain.ItemTicket{
		ID:       uuid.New(),
		ItemID:   in.ItemID,
		Status:   in.Status,
		Timeslot: in.Timeslot,
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		item, err := tx.Items().Get(ctx, in.ItemID)
		if err != nil {
			return notFound(err, ErrItemNotFound)
		}

		if err := tx.Tickets().Create(ctx, &t); err != nil {
			return err
		}
		t.Item = item

		after(func(ctx context.Context) {
			s.publish(ctx, domain.Event{
				Type:     domain.EventTicketsChanged,
				ItemID:   t.ItemID,
				Status:   string(t.Status),
				Timeslot: t.Timeslot,
				Count:    1,
			})
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &t, nil
}

// UpdateTicket applies a staff change to one ticket.
//
// Moving a DEMANDED ticket to ACTIVE starts a whole preparation batch: the
// earliest DEMANDED tickets of the item are promoted and missing servings
// are created at the ticket's timeslot. Marking a bound ticket READY moves
// its order to ready_for_pickup once no bound ticket is left behind.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: the ticket id and the fields to change.
//
// Returns:
//   - *UpdateResult: the ticket after the change plus any side effects.
//   - error: allocation.ErrTicketNotFound if the ticket does not exist.
//   - error: allocation.ErrOrderNotFound if in.OrderID names no order.
//   - error: allocation.ErrInvalidTransition if the status change is not
//     allowed or the target status cannot carry an order.
func (s *Service) UpdateTicket(ctx context.Context, in TicketUpdate) (*UpdateResult, error) {
	const op = "service.allocation.UpdateTicket"

	var res *UpdateResult

	err := s.retry(ctx, op, func() error {
		return s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
			var err error
			res, err = s.updateTicket(ctx, tx, in)
			if err != nil {
				return err
			}

			after(func(ctx context.Context) {
				s.publish(ctx, domain.Event{
					Type:     domain.EventTicketsChanged,
					ItemID:   res.Ticket.ItemID,
					Status:   string(res.Ticket.Status),
					Timeslot: res.Ticket.Timeslot,
					Count:    max(1, len(res.Activated)),
				})

				if res.Order != nil {
					s.publish(ctx, orderEvent(res.Order))
				}
			})

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

func (s *Service) updateTicket(ctx context.Context, tx repository.Tx, in TicketUpdate) (*UpdateResult, error) {
	t, err := tx.Tickets().Get(ctx, in.ID)
	if err != nil {
		return nil, notFound(err, ErrTicketNotFound)
	}

	target := t.Status
	if in.Status != nil {
		target = *in.Status
	}

	if !domain.CanTransitionTicket(t.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, target)
	}

	if t.Status == domain.TicketDemanded && target == domain.TicketActive {
		activated, err := s.promote(ctx, tx, *t)
		if err != nil {
			return nil, err
		}

		fresh, err := tx.Tickets().Get(ctx, t.ID)
		if err != nil {
			return nil, err
		}

		return &UpdateResult{Ticket: *fresh, Activated: activated}, nil
	}

	orderID := t.OrderID
	if in.OrderID != nil {
		orderID = nil
		if *in.OrderID != uuid.Nil {
			id := *in.OrderID
			orderID = &id
		}
	}

	if target == domain.TicketCancelledWaste {
		orderID = nil
	}

	if orderID != nil {
		if !target.Bindable() {
			return nil, fmt.Errorf("%w: a %s ticket cannot be bound to an order", ErrInvalidTransition, target)
		}

		if _, err := tx.Orders().Get(ctx, *orderID); err != nil {
			return nil, notFound(err, ErrOrderNotFound)
		}
	}

	t.Status = target
	t.OrderID = orderID

	if err := tx.Tickets().Update(ctx, t); err != nil {
		return nil, err
	}

	res := &UpdateResult{Ticket: *t}

	if orderID == nil {
		return res, nil
	}

	switch target {
	case domain.TicketReady:
		res.Order, err = s.rollupReady(ctx, tx, *orderID)
	case domain.TicketActive:
		res.Order, err = s.rollupActive(ctx, tx, *orderID)
	}
	if err != nil {
		return nil, err
	}

	return res, nil
}

// promote activates one whole batch of the trigger's item: floor(1/size)
// tickets, taken from the earliest DEMANDED tickets first and topped up with
// new ACTIVE tickets at the trigger's timeslot.
func (s *Service) promote(ctx context.Context, tx repository.Tx, trigger domain.ItemTicket) ([]domain.ItemTicket, error) {
	item, err := tx.Items().Get(ctx, trigger.ItemID)
	if err != nil {
		return nil, notFound(err, ErrItemNotFound)
	}

	need := domain.TicketsNeeded(item.Size)

	demanded, err := tx.Tickets().List(ctx, repository.TicketFilter{
		ItemID:   &item.ID,
		Statuses: []domain.TicketStatus{domain.TicketDemanded},
		Limit:    need,
		Lock:     true,
	})
	if err != nil {
		return nil, err
	}

	ids := ticketIDs(demanded)

	n, err := tx.Tickets().Transition(ctx, ids, domain.TicketDemanded, domain.TicketActive)
	if err != nil {
		return nil, err
	}

	if int(n) != len(ids) {
		return nil, fmt.Errorf("promote %d of %d demanded tickets: %w", n, len(ids), repository.ErrConflict)
	}

	activated := make([]domain.ItemTicket, 0, need)
	for _, t := range demanded {
		t.Status = domain.TicketActive
		t.Item = item
		activated = append(activated, t)
	}

	for len(activated) < need {
		t := domain.ItemTicket{
			ID:       uuid.New(),
			ItemID:   item.ID,
			Status:   domain.TicketActive,
			Timeslot: trigger.Timeslot,
		}
		if err := tx.Tickets().Create(ctx, &t); err != nil {
			return nil, err
		}

		t.Item = item
		activated = append(activated, t)
	}

	return activated, nil
}

func (s *Service) rollupReady(ctx context.Context, tx repository.Tx, orderID uuid.UUID) (*domain.Order, error) {
	pending, err := tx.Tickets().CountByOrderNotInStatus(ctx, orderID, domain.TicketReady)
	if err != nil {
		return nil, err
	}

	if pending > 0 {
		return nil, nil
	}

	o, err := tx.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}

	if o.Status.Terminal() || o.Status == domain.OrderReady {
		return nil, nil
	}

	o.Status = domain.OrderReady
	for i := range o.Items {
		o.Items[i].Status = domain.TicketReady
	}

	if err := tx.Orders().Update(ctx, o); err != nil {
		return nil, err
	}

	return o, nil
}

// rollupActive marks a freshly placed order as in preparation once the
// kitchen binds a ticket to it.
func (s *Service) rollupActive(ctx context.Context, tx repository.Tx, orderID uuid.UUID) (*domain.Order, error) {
	o, err := tx.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}

	if o.Status != domain.OrderOrdered {
		return nil, nil
	}

	o.Status = domain.OrderActive
	if err := tx.Orders().Update(ctx, o); err != nil {
		return nil, err
	}

	return o, nil
}

// Deliver hands an order out, binding READY tickets to it.
//
// Per item type the tickets already bound to the order are used first
// (READY ones are delivered, ACTIVE ones only count as reserved), then the
// oldest free READY tickets. Plan and commit run in one transaction; free
// tickets are claimed conditionally and the attempt is retried if another
// delivery took one of them first.
//
// Parameters:
//   - ctx: request-scoped context.
//   - orderID: ID of the order to deliver.
//   - force: complete the order even if tickets are missing.
//
// Returns:
//   - *domain.Order: the completed order.
//   - error: allocation.ErrOrderNotFound if the order does not exist.
//   - error: allocation.ErrAlreadyFinished if the order is completed or
//     cancelled.
//   - error: allocation.ShortageError if an item type lacks tickets.
//   - error: allocation.ConflictError if the delivery set does not cover
//     the order.
//   - error: allocation.ErrContended if retries ran out.
func (s *Service) Deliver(ctx context.Context, orderID uuid.UUID, force bool) (*domain.Order, error) {
	const op = "service.allocation.Deliver"

	var (
		order     *domain.Order
		delivered int
	)

	err := s.retry(ctx, op, func() error {
		return s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
			o, set, err := s.deliver(ctx, tx, orderID, force)
			if err != nil {
				return err
			}

			order, delivered = o, len(set)

			after(func(ctx context.Context) {
				ev := orderEvent(o)
				ev.Count = len(set)
				s.publish(ctx, ev)
			})

			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("order delivered",
		"order_id", orderID,
		"tickets", delivered,
		"forced", force,
	)

	return order, nil
}

func (s *Service) deliver(
	ctx context.Context,
	tx repository.Tx,
	orderID uuid.UUID,
	force bool,
) (*domain.Order, []uuid.UUID, error) {
	o, err := tx.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, nil, notFound(err, ErrOrderNotFound)
	}

	if o.Status.Terminal() {
		return nil, nil, fmt.Errorf("%w: order is %s", ErrAlreadyFinished, o.Status)
	}

	itemIDs, counts := o.RequiredCounts()

	var set []uuid.UUID
	for _, itemID := range itemIDs {
		need := counts[itemID]

		bound, err := tx.Tickets().List(ctx, repository.TicketFilter{
			ItemID:   &itemID,
			OrderID:  &o.ID,
			Statuses: []domain.TicketStatus{domain.TicketReady, domain.TicketActive},
			Limit:    need,
		})
		if err != nil {
			return nil, nil, err
		}

		remaining := need - len(bound)
		for _, t := range bound {
			if t.Status == domain.TicketReady {
				set = append(set, t.ID)
			}
		}

		if remaining > 0 {
			free, err := tx.Tickets().List(ctx, repository.TicketFilter{
				ItemID:     &itemID,
				Unassigned: true,
				Statuses:   []domain.TicketStatus{domain.TicketReady},
				Limit:      remaining,
				Lock:       true,
			})
			if err != nil {
				return nil, nil, err
			}

			set = append(set, ticketIDs(free)...)
			remaining -= len(free)
		}

		if remaining > 0 && !force {
			return nil, nil, ShortageError{
				ItemID:   itemID,
				ItemName: lineName(o, itemID),
				Missing:  remaining,
			}
		}
	}

	if required := len(o.Items); !force && len(set) != required {
		return nil, nil, ConflictError{Required: required, Delivered: len(set)}
	}

	if _, err := tx.Tickets().Unassign(ctx, o.ID, set); err != nil {
		return nil, nil, err
	}

	claimed, err := tx.Tickets().Claim(ctx, o.ID, set)
	if err != nil {
		return nil, nil, err
	}

	if int(claimed) != len(set) {
		return nil, nil, fmt.Errorf("claimed %d of %d tickets: %w", claimed, len(set), repository.ErrConflict)
	}

	o.Complete(s.now().UTC())

	if err := tx.Orders().Update(ctx, o); err != nil {
		return nil, nil, err
	}

	return o, set, nil
}

// Retrieve undoes a delivery or a cancellation: every ticket bound to the
// order goes back to READY and the order becomes active again. A reopened
// cancelled order queues its kitchen demand again and counts toward its
// slot's booked size without a capacity check, like any staff correction.
//
// Returns:
//   - *domain.Order: the reopened order.
//   - error: allocation.ErrOrderNotFound if the order does not exist.
//   - error: allocation.ErrNotFinished if the order is neither completed
//     nor cancelled.
func (s *Service) Retrieve(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	const op = "service.allocation.Retrieve"

	var order *domain.Order

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return notFound(err, ErrOrderNotFound)
		}

		if !o.Status.Terminal() {
			return fmt.Errorf("%w: order is %s", ErrNotFinished, o.Status)
		}

		cancelled := o.Status == domain.OrderCancelled

		n, err := tx.Tickets().SetStatusByOrder(ctx, o.ID, domain.TicketReady)
		if err != nil {
			return err
		}

		o.Reopen()

		if cancelled {
			for _, t := range o.Demand() {
				if err := tx.Tickets().Create(ctx, &t); err != nil {
					return err
				}
			}
		}

		if err := tx.Orders().Update(ctx, o); err != nil {
			return err
		}

		order = o

		after(func(ctx context.Context) {
			if cancelled {
				s.invalidateSlots(ctx)
			}

			ev := orderEvent(o)
			ev.Count = int(n)
			s.publish(ctx, ev)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return order, nil
}

// retry reruns fn while it fails with a ticket claim conflict, at most
// deliver_retries times. Serialization failures are retried by the unit of
// work itself.
func (s *Service) retry(ctx context.Context, op string, fn func() error) error {
	attempts := s.engine.Current().DeliverRetries

	var err error
	for i := 1; i <= attempts; i++ {
		err = fn()
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.logger.Warn("transaction conflict", "op", op, "attempt", i, "error", err)
	}

	return fmt.Errorf("%w: %w", ErrContended, err)
}

func (s *Service) invalidateSlots(ctx context.Context) {
	if s.cache == nil {
		return
	}

	if err := s.cache.InvalidateSlots(ctx); err != nil {
		s.logger.Warn("failed to invalidate slot cache", "error", err)
	}
}

func (s *Service) publish(ctx context.Context, ev domain.Event) {
	if s.pub == nil {
		return
	}

	ev.TsUnix = s.now().Unix()

	if err := s.pub.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event", "type", ev.Type, "error", err)
	}
}

func orderEvent(o *domain.Order) domain.Event {
	return domain.Event{
		Type:     domain.EventOrderChanged,
		OrderID:  o.ID,
		Status:   string(o.Status),
		Timeslot: o.Timeslot,
	}
}

func notFound(err, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %w", target, err)
	}
	return err
}

func lineName(o *domain.Order, itemID uuid.UUID) string {
	for _, l := range o.Items {
		if l.ItemID == itemID {
			return l.Name
		}
	}
	return ""
}

func ticketIDs(ts []domain.ItemTicket) []uuid.UUID {
	ids := make([]uuid.UUID, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}
	return ids
}
