package query

import (
	"errors"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidFilter = errors.New("invalid filter")
)
