package postgresrepo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/config"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/postgres"
	"github.com/kirinyoku/pizza-go/internal/service/allocation"
	"github.com/kirinyoku/pizza-go/internal/service/capacity"
	"github.com/kirinyoku/pizza-go/internal/service/orders"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to the database named by POSTGRES_TEST_DSN, applies
// the migrations and empties every table.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, postgres.Migrate(dsn, logger))

	pool, err := postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE tickets, orders, items`)
	require.NoError(t, err)

	return NewStore(pool)
}

func seedItem(t *testing.T, s *Store, name string) domain.Item {
	t.Helper()

	it := domain.Item{
		ID:      uuid.New(),
		Name:    name,
		Price:   decimal.NewFromInt(9),
		Type:    "pizza",
		Size:    decimal.NewFromInt(1),
		Enabled: true,
	}
	require.NoError(t, s.Items().Create(context.Background(), &it))

	return it
}

func seedOrder(t *testing.T, s *Store, it domain.Item, slot string) domain.Order {
	t.Helper()

	o := domain.Order{
		ID:         uuid.New(),
		Name:       "anonymous",
		Comment:    "No comment",
		Items:      []domain.OrderLine{domain.NewOrderLine(it)},
		OrderDate:  time.Now().UTC(),
		Timeslot:   slot,
		TotalPrice: it.Price,
		Status:     domain.OrderOrdered,
	}
	require.NoError(t, s.Orders().Create(context.Background(), &o))

	return o
}

func testEngine() *config.EngineSource {
	eng := config.DefaultEngine()
	eng.TxRetries = 10
	return config.StaticEngine(eng)
}

func TestConcurrentDeliveriesClaimOneFreeTicket(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := allocation.New(s, nil, nil, testEngine(), logger)

	it := seedItem(t, s, "Margherita")
	first := seedOrder(t, s, it, "18:00")
	second := seedOrder(t, s, it, "18:00")

	free := domain.ItemTicket{ID: uuid.New(), ItemID: it.ID, Status: domain.TicketReady, Timeslot: "18:00"}
	require.NoError(t, s.Tickets().Create(ctx, &free))

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, id := range []uuid.UUID{first.ID, second.ID} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Deliver(ctx, id, false)
		}()
	}
	wg.Wait()

	var delivered, short int
	for _, err := range errs {
		var shortage allocation.ShortageError
		switch {
		case err == nil:
			delivered++
		case errors.As(err, &shortage):
			short++
		default:
			t.Fatalf("unexpected delivery error: %v", err)
		}
	}
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, short)

	tk, err := s.Tickets().Get(ctx, free.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketCompleted, tk.Status)
	require.NotNil(t, tk.OrderID)
	assert.Contains(t, []uuid.UUID{first.ID, second.ID}, *tk.OrderID)
}

func TestConcurrentCreatesRespectSlotCapacity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	eng := config.DefaultEngine()
	eng.MaxCapacityPerSlot = 2
	eng.TxRetries = 10
	svc := orders.New(s, nil, nil, nil, config.StaticEngine(eng), logger)

	it := seedItem(t, s, "Funghi")

	const clients = 5

	var (
		wg   sync.WaitGroup
		errs = make([]error, clients)
	)
	for i := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Create(ctx, orders.CreateInput{ItemIDs: []uuid.UUID{it.ID}, Timeslot: "18:00"}, "")
		}()
	}
	wg.Wait()

	placed := 0
	for _, err := range errs {
		if err == nil {
			placed++
			continue
		}
		assert.ErrorIs(t, err, capacity.ErrCapacityExceeded)
	}
	assert.Equal(t, 2, placed)

	booked, err := s.Orders().BookedSize(ctx, "18:00")
	require.NoError(t, err)
	assert.True(t, booked.Equal(decimal.NewFromInt(2)), booked.String())
}
