package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTicketsNeeded(t *testing.T) {
	tests := []struct {
		size string
		want int
	}{
		{"1", 1},
		{"0.5", 2},
		{"0.3", 3},
		{"0.25", 4},
		{"0.1", 10},
		{"0.4", 2},
		{"0", 1},
		{"-0.5", 1},
		{"1.5", 1},
	}

	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			assert.Equal(t, tt.want, TicketsNeeded(dec(tt.size)))
		})
	}
}

func TestCanTransitionTicket(t *testing.T) {
	tests := []struct {
		from, to TicketStatus
		want     bool
	}{
		{TicketDemanded, TicketActive, true},
		{TicketActive, TicketReady, true},
		{TicketReady, TicketCompleted, true},
		{TicketDemanded, TicketCompleted, true},
		{TicketCompleted, TicketReady, true},
		{TicketActive, TicketActive, true},
		{TicketActive, TicketDemanded, false},
		{TicketCompleted, TicketActive, false},
		{TicketActive, TicketCancelledWaste, true},
		{TicketReady, TicketCancelledWaste, true},
		{TicketDemanded, TicketCancelledWaste, false},
		{TicketCompleted, TicketCancelledWaste, false},
		{TicketCancelledWaste, TicketReady, false},
		{TicketReady, TicketStatus("BAKING"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransitionTicket(tt.from, tt.to))
		})
	}
}

func TestTicketStatus_Bindable(t *testing.T) {
	assert.False(t, TicketDemanded.Bindable())
	assert.True(t, TicketActive.Bindable())
	assert.True(t, TicketReady.Bindable())
	assert.True(t, TicketCompleted.Bindable())
	assert.False(t, TicketCancelledWaste.Bindable())
}

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		in   string
		want OrderStatus
		ok   bool
	}{
		{"ordered", OrderOrdered, true},
		{"ready_for_pickup", OrderReady, true},
		{"cancelled", OrderCancelled, true},
		{"pending", OrderOrdered, true},
		{"paid", OrderOrdered, true},
		{"inPreparation", OrderActive, true},
		{"ready", OrderReady, true},
		{"delivered", OrderCompleted, true},
		{"baking", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseOrderStatus(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeslot(t *testing.T) {
	ts, err := ParseTimeslot("18:45")
	require.NoError(t, err)
	assert.Equal(t, Timeslot(18*60+45), ts)
	assert.Equal(t, "18:45", ts.String())

	ts, err = ParseTimeslot(" 07:05 ")
	require.NoError(t, err)
	assert.Equal(t, "07:05", ts.String())

	for _, bad := range []string{"", "18", "7:05", "18:5", "24:00", "12:60", "ab:cd", "18:45:00"} {
		_, err := ParseTimeslot(bad)
		assert.ErrorIs(t, err, ErrBadTimeslot, bad)
	}
}

func TestSlots(t *testing.T) {
	from, _ := ParseTimeslot("17:00")
	to, _ := ParseTimeslot("18:00")

	got := Slots(from, to, 20)
	require.Len(t, got, 4)
	assert.Equal(t, "17:00", got[0].String())
	assert.Equal(t, "18:00", got[3].String())

	assert.Nil(t, Slots(to, from, 15))
	assert.Nil(t, Slots(from, to, 0))
}

func TestBookedSize(t *testing.T) {
	line := func(size string) OrderLine { return OrderLine{Size: dec(size)} }

	orders := []Order{
		{Timeslot: "18:00", Status: OrderOrdered, Items: []OrderLine{line("1"), line("0.5")}},
		{Timeslot: "18:00", Status: OrderCompleted, Items: []OrderLine{line("0.25")}},
		{Timeslot: "18:00", Status: OrderCancelled, Items: []OrderLine{line("1")}},
		{Timeslot: "18:15", Status: OrderOrdered, Items: []OrderLine{line("1")}},
	}

	assert.True(t, BookedSize(orders, "18:00").Equal(dec("1.75")))
	assert.True(t, BookedSize(orders, "18:15").Equal(dec("1")))
	assert.True(t, BookedSize(orders, "19:00").IsZero())
}

func TestValidItem(t *testing.T) {
	assert.True(t, ValidItem(Item{Price: dec("0"), Size: dec("0.1")}))
	assert.True(t, ValidItem(Item{Price: dec("100"), Size: dec("1")}))
	assert.False(t, ValidItem(Item{Price: dec("100.01"), Size: dec("1")}))
	assert.False(t, ValidItem(Item{Price: dec("-1"), Size: dec("1")}))
	assert.False(t, ValidItem(Item{Price: dec("5"), Size: dec("0.05")}))
	assert.False(t, ValidItem(Item{Price: dec("5"), Size: dec("1.1")}))
}

func TestOrder_Lifecycle(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	o := Order{
		Status: OrderActive,
		Items: []OrderLine{
			{ItemID: a, Status: TicketReady},
			{ItemID: b, Status: TicketActive},
			{ItemID: a, Status: TicketReady},
		},
	}

	ids, counts := o.RequiredCounts()
	assert.Equal(t, []uuid.UUID{a, b}, ids)
	assert.Equal(t, 2, counts[a])
	assert.Equal(t, 1, counts[b])

	now := time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)
	o.Complete(now)
	assert.Equal(t, OrderCompleted, o.Status)
	require.NotNil(t, o.FinishedAt)
	assert.Equal(t, now, *o.FinishedAt)
	for _, l := range o.Items {
		assert.Equal(t, TicketCompleted, l.Status)
	}

	o.Reopen()
	assert.Equal(t, OrderActive, o.Status)
	assert.Nil(t, o.FinishedAt)
	for _, l := range o.Items {
		assert.Equal(t, TicketReady, l.Status)
	}
}

func TestOrder_Normalize(t *testing.T) {
	now := time.Now()

	o := Order{Status: OrderCompleted}
	o.Normalize(now)
	require.NotNil(t, o.FinishedAt)

	earlier := now.Add(-time.Hour)
	o.FinishedAt = &earlier
	o.Normalize(now)
	assert.Equal(t, earlier, *o.FinishedAt)

	o.Status = OrderActive
	o.Normalize(now)
	assert.Nil(t, o.FinishedAt)
}

func TestNewOrderLine_CopiesIngredients(t *testing.T) {
	it := Item{ID: uuid.New(), Name: "Veggie", Ingredients: []string{"tomato", "basil"}, Size: dec("1")}

	l := NewOrderLine(it)
	it.Ingredients[0] = "pineapple"

	assert.Equal(t, TicketDemanded, l.Status)
	assert.Equal(t, []string{"tomato", "basil"}, l.Ingredients)
}
