package capacity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrCapacityExceeded = errors.New("time slot is fully booked")
	ErrInvalidTimeslot  = errors.New("invalid time slot")
)

// ExceededError carries the numbers behind ErrCapacityExceeded.
type ExceededError struct {
	Timeslot  string
	Booked    decimal.Decimal
	Requested decimal.Decimal
	Max       decimal.Decimal
}

func (e ExceededError) Error() string {
	return fmt.Sprintf(
		"%s: %s booked, %s requested, %s allowed",
		e.Timeslot, e.Booked, e.Requested, e.Max,
	)
}

func (e ExceededError) Unwrap() error {
	return ErrCapacityExceeded
}
