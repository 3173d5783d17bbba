package orders

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrNoItems       = errors.New("order has no items")
	ErrOrderTooLarge = errors.New("order is too large")
	ErrInvalidItems  = errors.New("order references unknown or unavailable items")
	ErrCannotCancel  = errors.New("order can no longer be cancelled")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidOrder  = errors.New("invalid order")
	ErrRateLimited   = errors.New("too many orders, slow down")
)

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

func (e RateLimitedError) Unwrap() error {
	return ErrRateLimited
}
