// Package orders implements the order lifecycle: placement under slot
// capacity, cancellation, payment and staff corrections.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/config"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/repository"
	redisrepo "github.com/kirinyoku/pizza-go/internal/repository/redis"
	"github.com/kirinyoku/pizza-go/internal/service/capacity"
	"github.com/kirinyoku/pizza-go/internal/uow"
	"github.com/shopspring/decimal"
)

const (
	DefaultName    = "anonymous"
	DefaultComment = "No comment"

	maxNameLen    = 30
	maxCommentLen = 500
)

type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

type Limiter interface {
	Allow(ctx context.Context, suffix string) (allowed bool, current int64, retryAfter time.Duration, err error)
}

type Service struct {
	store   repository.Store
	uow     *uow.UoW
	cache   *redisrepo.Cache
	pub     Publisher
	limiter Limiter
	engine  *config.EngineSource
	logger  *slog.Logger
	now     func() time.Time
}

func New(
	store repository.Store,
	cache *redisrepo.Cache,
	pub Publisher,
	limiter Limiter,
	engine *config.EngineSource,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:   store,
		uow:     uow.NewUoW(store).WithRetries(func() int { return engine.Current().TxRetries }),
		cache:   cache,
		pub:     pub,
		limiter: limiter,
		engine:  engine,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateInput is a customer checkout. ItemIDs holds one entry per requested
// unit, so two Margheritas appear twice.
type CreateInput struct {
	Name     string
	Comment  string
	ItemIDs  []uuid.UUID
	Timeslot string
}

// Create places an order. Prices and sizes come from the catalog, never from
// the client. The capacity check and the insert share one transaction that
// holds the slot lock, and one DEMANDED ticket per unit is queued for the
// kitchen.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: the checkout.
//   - rlKey: rate limit bucket, usually the client address. Empty skips
//     the limiter.
//
// Returns:
//   - *domain.Order: the stored order.
//   - error: orders.ErrNoItems, orders.ErrOrderTooLarge or
//     orders.ErrInvalidItems when the basket is rejected.
//   - error: capacity.ErrInvalidTimeslot if the slot is not bookable.
//   - error: capacity.ErrCapacityExceeded if the slot is full.
//   - error: orders.ErrRateLimited if the client ordered too often.
func (s *Service) Create(ctx context.Context, in CreateInput, rlKey string) (*domain.Order, error) {
	const op = "service.orders.Create"

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s: %w", op, RateLimitedError{RetryAfter: retry})
		}
	}

	eng := s.engine.Current()

	if len(in.ItemIDs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoItems)
	}

	if len(in.ItemIDs) > eng.MaxItems {
		return nil, fmt.Errorf("%s: %w: %d items, at most %d allowed", op, ErrOrderTooLarge, len(in.ItemIDs), eng.MaxItems)
	}

	slot, err := capacity.ValidateSlot(eng, in.Timeslot)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	o := domain.Order{
		ID:        uuid.New(),
		Name:      orDefault(in.Name, DefaultName, maxNameLen),
		Comment:   orDefault(in.Comment, DefaultComment, maxCommentLen),
		OrderDate: s.now().UTC(),
		Timeslot:  slot,
		Status:    domain.OrderOrdered,
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		lines, err := s.lines(ctx, tx, in.ItemIDs)
		if err != nil {
			return err
		}

		o.Items = lines
		o.TotalPrice = totalPrice(lines)

		size := domain.LinesSize(lines)
		if size.GreaterThan(eng.OrderSizeLimit()) {
			return fmt.Errorf("%w: size %s exceeds %s", ErrOrderTooLarge, size, eng.OrderSizeLimit())
		}

		if err := capacity.Reserve(ctx, tx.Orders(), eng, slot, size); err != nil {
			return err
		}

		if err := tx.Orders().Create(ctx, &o); err != nil {
			return err
		}

		for _, t := range o.Demand() {
			if err := tx.Tickets().Create(ctx, &t); err != nil {
				return err
			}
		}

		after(func(ctx context.Context) {
			s.invalidateSlots(ctx)
			s.publish(ctx, orderEvent(&o, len(lines)))
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.Info("order placed",
		"order_id", o.ID,
		"timeslot", o.Timeslot,
		"items", len(o.Items),
		"total", o.TotalPrice.String(),
	)

	return &o, nil
}

// lines snapshots the catalog entries for the requested units.
func (s *Service) lines(ctx context.Context, tx repository.Tx, ids []uuid.UUID) ([]domain.OrderLine, error) {
	distinct := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			distinct = append(distinct, id)
		}
	}

	items, err := tx.Items().GetByIDs(ctx, distinct)
	if err != nil {
		return nil, err
	}

	if len(items) != len(distinct) {
		return nil, fmt.Errorf("%w: %d of %d items found", ErrInvalidItems, len(items), len(distinct))
	}

	byID := make(map[uuid.UUID]domain.Item, len(items))
	for _, it := range items {
		if !it.Enabled {
			return nil, fmt.Errorf("%w: %s is not available", ErrInvalidItems, it.Name)
		}
		byID[it.ID] = it
	}

	lines := make([]domain.OrderLine, len(ids))
	for i, id := range ids {
		lines[i] = domain.NewOrderLine(byID[id])
	}

	return lines, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "service.orders.Get"

	o, err := s.store.Orders().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return o, nil
}

// Cancel cancels an order and returns its reserved tickets to the pool.
// Orders that are ready for pickup or completed cannot be cancelled; an
// already cancelled order is returned unchanged.
//
// Returns:
//   - *domain.Order: the cancelled order.
//   - error: orders.ErrOrderNotFound if the order does not exist.
//   - error: orders.ErrCannotCancel if the order is ready or completed.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	const op = "service.orders.Cancel"

	var order *domain.Order

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		o, err := s.getForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		order = o

		switch o.Status {
		case domain.OrderCancelled:
			return nil
		case domain.OrderCompleted, domain.OrderReady:
			return fmt.Errorf("%w: order is %s", ErrCannotCancel, o.Status)
		}

		released, err := s.release(ctx, tx, o)
		if err != nil {
			return err
		}

		o.Status = domain.OrderCancelled
		o.Normalize(s.now().UTC())

		if err := tx.Orders().Update(ctx, o); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.invalidateSlots(ctx)
			s.publish(ctx, orderEvent(o, int(released)))
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return order, nil
}

// SetPaid records payment independently of the order status.
func (s *Service) SetPaid(ctx context.Context, id uuid.UUID, paid bool) (*domain.Order, error) {
	const op = "service.orders.SetPaid"

	var order *domain.Order

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		o, err := s.getForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		o.IsPaid = paid

		if err := tx.Orders().Update(ctx, o); err != nil {
			return err
		}

		order = o

		after(func(ctx context.Context) {
			s.publish(ctx, orderEvent(o, 0))
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return order, nil
}

// UpdateInput is a staff correction. Nil fields keep their stored value.
type UpdateInput struct {
	Name       *string
	Comment    *string
	Items      []domain.OrderLine
	Timeslot   *string
	TotalPrice *decimal.Decimal
	Status     *string
	IsPaid     *bool
	FinishedAt *time.Time
}

// Update replaces the given fields of an order. Slot capacity is not
// re-checked: staff may overbook on purpose. finishedAt is kept consistent
// with the resulting status.
//
// Returns:
//   - *domain.Order: the updated order.
//   - error: orders.ErrOrderNotFound if the order does not exist.
//   - error: orders.ErrInvalidStatus for an unknown order or line status.
//   - error: orders.ErrNoItems, orders.ErrOrderTooLarge or
//     orders.ErrInvalidOrder for other rejected fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*domain.Order, error) {
	const op = "service.orders.Update"

	eng := s.engine.Current()

	var order *domain.Order

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		o, err := s.getForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		prev := o.Status

		if err := apply(o, in, eng); err != nil {
			return err
		}

		o.Normalize(s.now().UTC())

		if o.Status == domain.OrderCancelled && prev != domain.OrderCancelled {
			if _, err := s.release(ctx, tx, o); err != nil {
				return err
			}
		}

		if err := tx.Orders().Update(ctx, o); err != nil {
			return err
		}

		order = o

		after(func(ctx context.Context) {
			s.invalidateSlots(ctx)
			s.publish(ctx, orderEvent(o, 0))
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return order, nil
}

func apply(o *domain.Order, in UpdateInput, eng config.Engine) error {
	if in.Name != nil {
		o.Name = orDefault(*in.Name, DefaultName, maxNameLen)
	}

	if in.Comment != nil {
		o.Comment = orDefault(*in.Comment, DefaultComment, maxCommentLen)
	}

	if in.Items != nil {
		switch {
		case len(in.Items) == 0:
			return ErrNoItems
		case len(in.Items) > eng.MaxItems:
			return fmt.Errorf("%w: %d items, at most %d allowed", ErrOrderTooLarge, len(in.Items), eng.MaxItems)
		}

		for i := range in.Items {
			if in.Items[i].Status == "" {
				in.Items[i].Status = domain.TicketDemanded
			}
			if !in.Items[i].Status.Valid() {
				return fmt.Errorf("%w: line %d has status %q", ErrInvalidStatus, i, in.Items[i].Status)
			}
		}

		o.Items = in.Items
	}

	if in.Timeslot != nil {
		ts, err := domain.ParseTimeslot(*in.Timeslot)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOrder, err)
		}
		o.Timeslot = ts.String()
	}

	if in.TotalPrice != nil {
		if in.TotalPrice.IsNegative() {
			return fmt.Errorf("%w: total price must not be negative", ErrInvalidOrder)
		}
		o.TotalPrice = *in.TotalPrice
	}

	if in.Status != nil {
		st, ok := domain.ParseOrderStatus(*in.Status)
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, *in.Status)
		}
		o.Status = st
	}

	if in.IsPaid != nil {
		o.IsPaid = *in.IsPaid
	}

	if in.FinishedAt != nil {
		at := in.FinishedAt.UTC()
		o.FinishedAt = &at
	}

	return nil
}

// release returns the tickets reserved for a cancelled order to the pool and
// withdraws the kitchen demand its placement queued. Demand that was already
// promoted stays in preparation. It reports the number of tickets released.
func (s *Service) release(ctx context.Context, tx repository.Tx, o *domain.Order) (int64, error) {
	released, err := tx.Tickets().Unassign(ctx, o.ID, nil)
	if err != nil {
		return 0, err
	}

	itemIDs, counts := o.RequiredCounts()
	for _, itemID := range itemIDs {
		demand, err := tx.Tickets().List(ctx, repository.TicketFilter{
			ItemID:     &itemID,
			Unassigned: true,
			Timeslot:   o.Timeslot,
			Statuses:   []domain.TicketStatus{domain.TicketDemanded},
			Limit:      counts[itemID],
			Lock:       true,
		})
		if err != nil {
			return 0, err
		}

		if _, err := tx.Tickets().Transition(ctx, ticketIDs(demand), domain.TicketDemanded, domain.TicketCancelledWaste); err != nil {
			return 0, err
		}
	}

	return released, nil
}

func (s *Service) getForUpdate(ctx context.Context, tx repository.Tx, id uuid.UUID) (*domain.Order, error) {
	o, err := tx.Orders().GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return o, nil
}

func (s *Service) invalidateSlots(ctx context.Context) {
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

func orderEvent(o *domain.Order, count int) domain.Event {
	return domain.Event{
		Type:     domain.EventOrderChanged,
		OrderID:  o.ID,
		Status:   string(o.Status),
		Timeslot: o.Timeslot,
		Count:    count,
	}
}

func ticketIDs(ts []domain.ItemTicket) []uuid.UUID {
	ids := make([]uuid.UUID, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}
	return ids
}

func totalPrice(lines []domain.OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price)
	}
	return total
}

// orDefault trims s, falls back to def when empty and cuts the result to
// limit runes.
func orDefault(s, def string, limit int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		s = def
	}

	if r := []rune(s); len(r) > limit {
		s = string(r[:limit])
	}

	return s
}
