// Package capacity accounts committed size units per pickup slot.
package capacity

import (
	"context"
	"fmt"

	"github.com/kirinyoku/pizza-go/internal/config"
	"github.com/kirinyoku/pizza-go/internal/domain"
	redisx "github.com/kirinyoku/pizza-go/internal/redis"
	"github.com/kirinyoku/pizza-go/internal/repository"
	redisrepo "github.com/kirinyoku/pizza-go/internal/repository/redis"
	"github.com/shopspring/decimal"
)

type Service struct {
	store  repository.Store
	cache  *redisrepo.Cache
	engine *config.EngineSource
}

func New(store repository.Store, cache *redisrepo.Cache, engine *config.EngineSource) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		engine: engine,
	}
}

// Slot is the booking state of one pickup slot.
type Slot struct {
	Timeslot  string          `json:"timeslot"`
	Booked    decimal.Decimal `json:"booked"`
	Remaining decimal.Decimal `json:"remaining"`
	Full      bool            `json:"full"`
}

// BookedSize sums the size units of every non-cancelled order in timeslot.
func (s *Service) BookedSize(ctx context.Context, timeslot string) (decimal.Decimal, error) {
	const op = "service.capacity.BookedSize"

	booked, err := s.store.Orders().BookedSize(ctx, timeslot)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	return booked, nil
}

// Slots lists every bookable slot with its remaining capacity. The result
// is cached for the engine's cache TTL.
func (s *Service) Slots(ctx context.Context) ([]Slot, error) {
	const op = "service.capacity.Slots"

	eng := s.engine.Current()

	slots, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeySlotAvailability(),
		eng.CacheTTL,
		func(ctx context.Context) ([]Slot, error) {
			booked, err := s.store.Orders().BookedSizes(ctx)
			if err != nil {
				return nil, err
			}
			return Availability(eng, booked), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return slots, nil
}

// Availability lays the booked sizes over the configured slot grid.
func Availability(eng config.Engine, booked map[string]decimal.Decimal) []Slot {
	open, closing := eng.Hours()
	limit := eng.Capacity()

	grid := domain.Slots(open, closing, eng.SlotMinutes)
	out := make([]Slot, 0, len(grid))

	for _, ts := range grid {
		key := ts.String()
		b := booked[key]

		remaining := limit.Sub(b)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		out = append(out, Slot{
			Timeslot:  key,
			Booked:    b,
			Remaining: remaining,
			Full:      !remaining.IsPositive(),
		})
	}

	return out
}

// ValidateSlot checks that timeslot is a well formed slot on the grid and
// inside opening hours. It returns the canonical HH:MM form.
func ValidateSlot(eng config.Engine, timeslot string) (string, error) {
	ts, err := domain.ParseTimeslot(timeslot)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeslot, timeslot)
	}

	open, closing := eng.Hours()
	if ts < open || ts > closing {
		return "", fmt.Errorf("%w: %s is outside %s-%s", ErrInvalidTimeslot, ts, eng.Opening, eng.Closing)
	}

	if int(ts-open)%eng.SlotMinutes != 0 {
		return "", fmt.Errorf("%w: %s is not on the %d minute grid", ErrInvalidTimeslot, ts, eng.SlotMinutes)
	}

	return ts.String(), nil
}

// Reserve checks that size more units fit into timeslot. It must run inside
// the transaction that persists the order: the slot lock it takes is held
// until that transaction ends, so concurrent bookings of one slot are
// serialized.
//
// Returns:
//   - error: ExceededError (matching ErrCapacityExceeded) when the slot
//     would go over capacity.
func Reserve(
	ctx context.Context,
	orders repository.OrderRepository,
	eng config.Engine,
	timeslot string,
	size decimal.Decimal,
) error {
	const op = "service.capacity.Reserve"

	if err := orders.LockSlot(ctx, timeslot); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	booked, err := orders.BookedSize(ctx, timeslot)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	limit := eng.Capacity()
	if booked.Add(size).GreaterThan(limit) {
		return fmt.Errorf("%s: %w", op, ExceededError{
			Timeslot:  timeslot,
			Booked:    booked,
			Requested: size,
			Max:       limit,
		})
	}

	return nil
}
