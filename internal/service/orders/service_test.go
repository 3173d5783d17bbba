package orders

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/config"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/repository"
	"github.com/kirinyoku/pizza-go/internal/repository/memory"
	"github.com/kirinyoku/pizza-go/internal/service/capacity"
	"github.com/kirinyoku/pizza-go/internal/uow"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (bool, int64, time.Duration, error) {
	return false, 11, 30 * time.Second, nil
}

func newService(t *testing.T, eng config.Engine) (*Service, *memory.Store) {
	t.Helper()

	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(store, nil, nil, nil, config.StaticEngine(eng), logger), store
}

func addItem(t *testing.T, store *memory.Store, name, price, size string, enabled bool) domain.Item {
	t.Helper()

	it := domain.Item{
		ID:      uuid.New(),
		Name:    name,
		Price:   decimal.RequireFromString(price),
		Type:    "pizza",
		Size:    decimal.RequireFromString(size),
		Enabled: enabled,
	}
	require.NoError(t, store.Items().Create(context.Background(), &it))

	return it
}

func units(it domain.Item, n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = it.ID
	}
	return out
}

func TestCreatePricesFromCatalog(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, config.DefaultEngine())

	marg := addItem(t, store, "Margherita", "8.5", "1", true)
	salami := addItem(t, store, "Salami", "9", "0.5", true)

	o, err := svc.Create(ctx, CreateInput{
		ItemIDs:  append(units(marg, 2), salami.ID),
		Timeslot: "18:00",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, DefaultName, o.Name)
	assert.Equal(t, DefaultComment, o.Comment)
	assert.Equal(t, domain.OrderOrdered, o.Status)
	assert.Equal(t, "18:00", o.Timeslot)
	assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("26")), o.TotalPrice.String())
	assert.Nil(t, o.FinishedAt)
	require.Len(t, o.Items, 3)
	for _, l := range o.Items {
		assert.Equal(t, domain.TicketDemanded, l.Status)
	}

	demand, err := store.Tickets().List(ctx, repository.TicketFilter{
		Statuses: []domain.TicketStatus{domain.TicketDemanded},
	})
	require.NoError(t, err)
	require.Len(t, demand, 3)
	for _, tk := range demand {
		assert.Equal(t, "18:00", tk.Timeslot)
		assert.Nil(t, tk.OrderID)
	}

	stored, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, stored.ID)
}

func TestCreateTruncatesNameAndComment(t *testing.T) {
	svc, store := newService(t, config.DefaultEngine())
	it := addItem(t, store, "Funghi", "7", "1", true)

	o, err := svc.Create(context.Background(), CreateInput{
		Name:     strings.Repeat("ä", 40),
		Comment:  strings.Repeat("x", 600),
		ItemIDs:  []uuid.UUID{it.ID},
		Timeslot: "18:15",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, strings.Repeat("ä", 30), o.Name)
	assert.Len(t, o.Comment, 500)
}

func TestCreateCapacityBoundary(t *testing.T) {
	ctx := context.Background()
	eng := config.DefaultEngine()
	eng.MaxCapacityPerSlot = 2
	svc, store := newService(t, eng)

	half := addItem(t, store, "Half", "5", "0.5", true)
	tenth := addItem(t, store, "Tenth", "1", "0.1", true)

	// book 1.5 of 2
	_, err := svc.Create(ctx, CreateInput{ItemIDs: units(half, 3), Timeslot: "18:00"}, "")
	require.NoError(t, err)

	// k + 0.1 is rejected
	_, err = svc.Create(ctx, CreateInput{ItemIDs: []uuid.UUID{half.ID, tenth.ID}, Timeslot: "18:00"}, "")
	require.ErrorIs(t, err, capacity.ErrCapacityExceeded)

	// exactly k fits
	_, err = svc.Create(ctx, CreateInput{ItemIDs: []uuid.UUID{half.ID}, Timeslot: "18:00"}, "")
	require.NoError(t, err)

	// other slots are unaffected
	_, err = svc.Create(ctx, CreateInput{ItemIDs: units(half, 4), Timeslot: "18:15"}, "")
	require.NoError(t, err)
}

func TestCreateRejects(t *testing.T) {
	eng := config.DefaultEngine()
	eng.MaxItems = 3
	eng.MaxSizePerOrder = 2
	svc, store := newService(t, eng)

	whole := addItem(t, store, "Whole", "9", "1", true)
	off := addItem(t, store, "Off", "9", "1", false)

	tests := []struct {
		name string
		in   CreateInput
		want error
	}{
		{name: "no items", in: CreateInput{Timeslot: "18:00"}, want: ErrNoItems},
		{name: "too many lines", in: CreateInput{ItemIDs: units(whole, 4), Timeslot: "18:00"}, want: ErrOrderTooLarge},
		{name: "too much size", in: CreateInput{ItemIDs: units(whole, 3), Timeslot: "18:00"}, want: ErrOrderTooLarge},
		{name: "unknown item", in: CreateInput{ItemIDs: []uuid.UUID{whole.ID, uuid.New()}, Timeslot: "18:00"}, want: ErrInvalidItems},
		{name: "disabled item", in: CreateInput{ItemIDs: []uuid.UUID{off.ID}, Timeslot: "18:00"}, want: ErrInvalidItems},
		{name: "off grid slot", in: CreateInput{ItemIDs: []uuid.UUID{whole.ID}, Timeslot: "18:07"}, want: capacity.ErrInvalidTimeslot},
		{name: "missing slot", in: CreateInput{ItemIDs: []uuid.UUID{whole.ID}}, want: capacity.ErrInvalidTimeslot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	all, err := store.Orders().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	tickets, err := store.Tickets().List(context.Background(), repository.TicketFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestCreateRateLimited(t *testing.T) {
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(store, nil, nil, denyLimiter{}, config.StaticEngine(config.DefaultEngine()), logger)

	it := addItem(t, store, "Limited", "5", "1", true)

	_, err := svc.Create(context.Background(), CreateInput{ItemIDs: []uuid.UUID{it.ID}, Timeslot: "18:00"}, "10.0.0.1")

	var limited RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, 30*time.Second, limited.RetryAfter)
	assert.ErrorIs(t, err, ErrRateLimited)

	// no key, no limiter
	_, err = svc.Create(context.Background(), CreateInput{ItemIDs: []uuid.UUID{it.ID}, Timeslot: "18:00"}, "")
	assert.NoError(t, err)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	eng := config.DefaultEngine()
	eng.MaxCapacityPerSlot = 1
	svc, store := newService(t, eng)
	it := addItem(t, store, "Cancel", "5", "1", true)

	o, err := svc.Create(ctx, CreateInput{ItemIDs: []uuid.UUID{it.ID}, Timeslot: "18:00"}, "")
	require.NoError(t, err)

	reserved := domain.ItemTicket{ID: uuid.New(), ItemID: it.ID, Status: domain.TicketReady, OrderID: &o.ID}
	require.NoError(t, store.Tickets().Create(ctx, &reserved))

	got, err := svc.Cancel(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, got.Status)
	assert.Nil(t, got.FinishedAt)

	tk, err := store.Tickets().Get(ctx, reserved.ID)
	require.NoError(t, err)
	assert.Nil(t, tk.OrderID)

	again, err := svc.Cancel(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, again.Status)

	// the slot is free again
	_, err = svc.Create(ctx, CreateInput{ItemIDs: []uuid.UUID{it.ID}, Timeslot: "18:00"}, "")
	assert.NoError(t, err)

	_, err = svc.Cancel(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCancelForbiddenAfterReady(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, config.DefaultEngine())
	it := addItem(t, store, "Late", "5", "1", true)

	for _, st := range []domain.OrderStatus{domain.OrderReady, domain.OrderCompleted} {
		o, err := svc.Create(ctx, CreateInput{ItemIDs: []uuid.UUID{it.ID}, Timeslot: "18:00"}, "")
		require.NoError(t, err)

		status := string(st)
		_, err = svc.Update(ctx, o.ID, UpdateInput{Status: &status})
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, o.ID)
		assert.ErrorIs(t, err, ErrCannotCancel, st)
	}
}

func TestSetPaid(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, config.DefaultEngine())
	it := addItem(t, store, "Paid", "5", "1", true)

	o, err := svc.Create(ctx, CreateInput{ItemIDs: []uuid.UUID{it.ID}, Timeslot: "18:00"}, "")
	require.NoError(t, err)
	assert.False(t, o.IsPaid)

	got, err := svc.SetPaid(ctx, o.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	assert.Equal(t, domain.OrderOrdered, got.Status)

	_, err = svc.SetPaid(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, config.DefaultEngine())
	it := addItem(t, store, "Edit", "5", "1", true)

	o, err := svc.Create(ctx, CreateInput{ItemIDs: []uuid.UUID{it.ID}, Timeslot: "18:00"}, "")
	require.NoError(t, err)

	delivered := "delivered"
	name := "Kim"
	got, err := svc.Update(ctx, o.ID, UpdateInput{Status: &delivered, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, got.Status)
	assert.Equal(t, "Kim", got.Name)
	require.NotNil(t, got.FinishedAt)

	active := "inPreparation"
	got, err = svc.Update(ctx, o.ID, UpdateInput{Status: &active})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderActive, got.Status)
	assert.Nil(t, got.FinishedAt)

	bogus := "shipped"
	_, err = svc.Update(ctx, o.ID, UpdateInput{Status: &bogus})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.Update(ctx, o.ID, UpdateInput{Items: []domain.OrderLine{}})
	assert.ErrorIs(t, err, ErrNoItems)

	negative := decimal.NewFromInt(-1)
	_, err = svc.Update(ctx, o.ID, UpdateInput{TotalPrice: &negative})
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = svc.Update(ctx, uuid.New(), UpdateInput{Name: &name})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func demandAt(t *testing.T, store repository.Store, it domain.Item, slot string, status domain.TicketStatus) int {
	t.Helper()

	ts, err := store.Tickets().List(context.Background(), repository.TicketFilter{
		ItemID:   &it.ID,
		Timeslot: slot,
		Statuses: []domain.TicketStatus{status},
	})
	require.NoError(t, err)

	return len(ts)
}

func TestCancelWithdrawsDemand(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, config.DefaultEngine())
	p := addItem(t, store, "Pepperoni", "9", "1", true)

	o, err := svc.Create(ctx, CreateInput{ItemIDs: units(p, 3), Timeslot: "18:00"}, "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{ItemIDs: units(p, 1), Timeslot: "18:00"}, "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{ItemIDs: units(p, 1), Timeslot: "18:15"}, "")
	require.NoError(t, err)
	require.Equal(t, 4, demandAt(t, store, p, "18:00", domain.TicketDemanded))

	_, err = svc.Cancel(ctx, o.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, demandAt(t, store, p, "18:00", domain.TicketDemanded))
	assert.Equal(t, 3, demandAt(t, store, p, "18:00", domain.TicketCancelledWaste))
	assert.Equal(t, 1, demandAt(t, store, p, "18:15", domain.TicketDemanded))

	// cancelling twice withdraws nothing more
	_, err = svc.Cancel(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, demandAt(t, store, p, "18:00", domain.TicketDemanded))
}

func TestUpdateToCancelledWithdrawsDemand(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, config.DefaultEngine())
	p := addItem(t, store, "Pepperoni", "9", "0.5", true)
	m := addItem(t, store, "Margherita", "8", "1", true)

	o, err := svc.Create(ctx, CreateInput{ItemIDs: append(units(p, 2), m.ID), Timeslot: "19:00"}, "")
	require.NoError(t, err)

	cancelled := "cancelled"
	_, err = svc.Update(ctx, o.ID, UpdateInput{Status: &cancelled})
	require.NoError(t, err)

	assert.Zero(t, demandAt(t, store, p, "19:00", domain.TicketDemanded))
	assert.Zero(t, demandAt(t, store, m, "19:00", domain.TicketDemanded))
	assert.Equal(t, 2, demandAt(t, store, p, "19:00", domain.TicketCancelledWaste))
}

// abortingStore reports the first n commits as serialization failures and
// rolls them back.
type abortingStore struct {
	*memory.Store
	n     int
	calls int
}

func (s *abortingStore) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.calls++
	if s.calls > s.n {
		return s.Store.RunTx(ctx, fn)
	}

	return s.Store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return fmt.Errorf("could not serialize access: %w", repository.ErrRetryable)
	})
}

func TestCreateRetriesSerializationFailures(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &abortingStore{Store: memory.New(), n: 2}
	svc := New(store, nil, nil, nil, config.StaticEngine(config.DefaultEngine()), logger)
	it := addItem(t, store.Store, "Funghi", "7", "1", true)

	o, err := svc.Create(ctx, CreateInput{ItemIDs: units(it, 2), Timeslot: "18:00"}, "")
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)

	all, err := store.Orders().List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, o.ID, all[0].ID)
	assert.Equal(t, 2, demandAt(t, store, it, "18:00", domain.TicketDemanded))
}

func TestCreateGivesUpOnPersistentConflicts(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &abortingStore{Store: memory.New(), n: 100}
	eng := config.DefaultEngine()
	svc := New(store, nil, nil, nil, config.StaticEngine(eng), logger)
	it := addItem(t, store.Store, "Funghi", "7", "1", true)

	_, err := svc.Create(ctx, CreateInput{ItemIDs: units(it, 1), Timeslot: "18:00"}, "")
	require.ErrorIs(t, err, uow.ErrContended)
	assert.Equal(t, eng.TxRetries, store.calls)

	all, err := store.Orders().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
