package domain

import "github.com/shopspring/decimal"

var (
	MinItemSize = decimal.RequireFromString("0.1")
	MaxItemSize = decimal.NewFromInt(1)
	MaxPrice    = decimal.NewFromInt(100)
)

// TicketsNeeded is the number of same-sized tickets that make up one whole
// preparation batch: floor(1 / size). Sizes outside (0, 1] count as a single
// ticket.
func TicketsNeeded(size decimal.Decimal) int {
	if !size.IsPositive() || size.GreaterThan(MaxItemSize) {
		return 1
	}

	n := decimal.NewFromInt(1).Div(size).Floor().IntPart()
	if n < 1 {
		return 1
	}

	return int(n)
}

// LinesSize sums the size units of the given order lines.
func LinesSize(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Size)
	}
	return total
}

// BookedSize sums committed size units for a time slot over every order that
// is not cancelled.
func BookedSize(orders []Order, timeslot string) decimal.Decimal {
	total := decimal.Zero
	for i := range orders {
		o := &orders[i]
		if o.Timeslot != timeslot || o.Status == OrderCancelled {
			continue
		}
		total = total.Add(LinesSize(o.Items))
	}
	return total
}

// ValidItem checks the catalog bounds for price and size.
func ValidItem(it Item) bool {
	if it.Price.IsNegative() || it.Price.GreaterThan(MaxPrice) {
		return false
	}

	return !it.Size.LessThan(MinItemSize) && !it.Size.GreaterThan(MaxItemSize)
}
