package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedItem(t *testing.T, s *Store, name string, size string) domain.Item {
	t.Helper()

	it := domain.Item{
		ID:      uuid.New(),
		Name:    name,
		Price:   decimal.NewFromInt(5),
		Type:    "pizza",
		Size:    decimal.RequireFromString(size),
		Enabled: true,
	}
	require.NoError(t, s.Items().Create(context.Background(), &it))

	return it
}

func seedTicket(t *testing.T, s *Store, itemID uuid.UUID, status domain.TicketStatus, slot string, orderID *uuid.UUID) domain.ItemTicket {
	t.Helper()

	tk := domain.ItemTicket{ID: uuid.New(), ItemID: itemID, Status: status, Timeslot: slot, OrderID: orderID}
	require.NoError(t, s.Tickets().Create(context.Background(), &tk))

	return tk
}

func TestRunTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	it := seedItem(t, s, "Margherita", "1")

	boom := errors.New("boom")
	err := s.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		tk := domain.ItemTicket{ID: uuid.New(), ItemID: it.ID, Status: domain.TicketReady}
		require.NoError(t, tx.Tickets().Create(ctx, &tk))
		require.NoError(t, tx.Items().SetEnabled(ctx, it.ID, false))
		return boom
	})
	require.ErrorIs(t, err, boom)

	tickets, err := s.Tickets().List(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)

	got, err := s.Items().Get(ctx, it.ID)
	require.NoError(t, err)
	assert.True(t, got.Enabled)
}

func TestItemsCreateDuplicateName(t *testing.T) {
	s := New()
	seedItem(t, s, "Salami", "0.5")

	dup := domain.Item{ID: uuid.New(), Name: "Salami", Size: decimal.NewFromInt(1)}
	err := s.Items().Create(context.Background(), &dup)
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestTicketListOrdering(t *testing.T) {
	ctx := context.Background()
	s := New()
	it := seedItem(t, s, "Funghi", "1")

	noSlot := seedTicket(t, s, it.ID, domain.TicketDemanded, "", nil)
	late := seedTicket(t, s, it.ID, domain.TicketDemanded, "19:00", nil)
	early := seedTicket(t, s, it.ID, domain.TicketDemanded, "18:00", nil)
	early2 := seedTicket(t, s, it.ID, domain.TicketDemanded, "18:00", nil)

	got, err := s.Tickets().List(ctx, repository.TicketFilter{ItemID: &it.ID})
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, []uuid.UUID{early.ID, early2.ID, late.ID, noSlot.ID},
		[]uuid.UUID{got[0].ID, got[1].ID, got[2].ID, got[3].ID})

	limited, err := s.Tickets().List(ctx, repository.TicketFilter{ItemID: &it.ID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, early.ID, limited[0].ID)
}

func TestTicketClaimIsConditional(t *testing.T) {
	ctx := context.Background()
	s := New()
	it := seedItem(t, s, "Diavola", "1")

	a := domain.Order{ID: uuid.New(), Items: []domain.OrderLine{domain.NewOrderLine(it)}, Status: domain.OrderOrdered}
	b := domain.Order{ID: uuid.New(), Items: []domain.OrderLine{domain.NewOrderLine(it)}, Status: domain.OrderOrdered}
	require.NoError(t, s.Orders().Create(ctx, &a))
	require.NoError(t, s.Orders().Create(ctx, &b))

	free := seedTicket(t, s, it.ID, domain.TicketReady, "18:00", nil)
	active := seedTicket(t, s, it.ID, domain.TicketActive, "18:00", nil)

	n, err := s.Tickets().Claim(ctx, a.ID, []uuid.UUID{free.ID, active.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// repeating the claim for the same order still counts
	n, err = s.Tickets().Claim(ctx, a.ID, []uuid.UUID{free.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.Tickets().Claim(ctx, b.ID, []uuid.UUID{free.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	got, err := s.Tickets().Get(ctx, free.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketCompleted, got.Status)
	assert.True(t, got.BoundTo(a.ID))
}

func TestTicketUnassignAndCount(t *testing.T) {
	ctx := context.Background()
	s := New()
	it := seedItem(t, s, "Hawaii", "1")

	o := domain.Order{ID: uuid.New(), Items: []domain.OrderLine{domain.NewOrderLine(it)}, Status: domain.OrderActive}
	require.NoError(t, s.Orders().Create(ctx, &o))

	keep := seedTicket(t, s, it.ID, domain.TicketReady, "18:00", &o.ID)
	drop := seedTicket(t, s, it.ID, domain.TicketActive, "18:00", &o.ID)

	n, err := s.Tickets().CountByOrderNotInStatus(ctx, o.ID, domain.TicketReady)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = s.Tickets().Unassign(ctx, o.ID, []uuid.UUID{keep.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := s.Tickets().Get(ctx, drop.ID)
	require.NoError(t, err)
	assert.Nil(t, got.OrderID)

	n, err = s.Tickets().SetStatusByOrder(ctx, o.ID, domain.TicketCompleted)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestOrdersBookedSize(t *testing.T) {
	ctx := context.Background()
	s := New()
	half := seedItem(t, s, "Half", "0.5")
	whole := seedItem(t, s, "Whole", "1")

	orders := []domain.Order{
		{ID: uuid.New(), Timeslot: "18:00", Status: domain.OrderOrdered,
			Items: []domain.OrderLine{domain.NewOrderLine(half), domain.NewOrderLine(whole)}},
		{ID: uuid.New(), Timeslot: "18:00", Status: domain.OrderCancelled,
			Items: []domain.OrderLine{domain.NewOrderLine(whole)}},
		{ID: uuid.New(), Timeslot: "18:15", Status: domain.OrderActive,
			Items: []domain.OrderLine{domain.NewOrderLine(half)}},
	}
	for i := range orders {
		orders[i].OrderDate = time.Now()
		require.NoError(t, s.Orders().Create(ctx, &orders[i]))
	}

	got, err := s.Orders().BookedSize(ctx, "18:00")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("1.5")), got.String())

	all, err := s.Orders().BookedSizes(ctx)
	require.NoError(t, err)
	assert.True(t, all["18:15"].Equal(decimal.RequireFromString("0.5")))
}

func TestOrderGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	it := seedItem(t, s, "Copy", "1")

	o := domain.Order{ID: uuid.New(), Items: []domain.OrderLine{domain.NewOrderLine(it)}, Status: domain.OrderOrdered}
	require.NoError(t, s.Orders().Create(ctx, &o))

	got, err := s.Orders().Get(ctx, o.ID)
	require.NoError(t, err)
	got.Items[0].Status = domain.TicketReady

	again, err := s.Orders().Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketDemanded, again.Items[0].Status)

	_, err = s.Orders().Get(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
