package admin

import (
	"errors"
)

var (
	ErrItemConflict = errors.New("item already exists")
	ErrInvalidItem  = errors.New("invalid item")
	ErrItemNotFound = errors.New("item not found")
	ErrReloadFailed = errors.New("settings reload failed")
)
