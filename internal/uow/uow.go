package uow

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirinyoku/pizza-go/internal/repository"
)

// ErrContended is returned once every attempt of a retrying unit of work
// failed with repository.ErrRetryable.
var ErrContended = errors.New("transaction kept conflicting with concurrent requests, try again")

// AfterCommit is a function that runs after a successful transaction commit.
type AfterCommit func(ctx context.Context)

// UoW represents a unit of work.
type UoW struct {
	store    repository.Store
	attempts func() int
}

func NewUoW(store repository.Store) *UoW {
	return &UoW{store: store}
}

// WithRetries returns a unit of work that reruns transactions failing with
// repository.ErrRetryable. attempts is read on every Do so reloaded settings
// apply to the next call.
func (u *UoW) WithRetries(attempts func() int) *UoW {
	return &UoW{store: u.store, attempts: attempts}
}

// Do runs fn inside the transaction. After a successful commit,
// it executes all after-commit hooks. Hooks registered by an attempt that
// rolled back are dropped.
func (u *UoW) Do(
	ctx context.Context,
	fn func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error,
) error {
	attempts := 1
	if u.attempts != nil {
		attempts = max(u.attempts(), 1)
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 && ctx.Err() != nil {
			return ctx.Err()
		}

		var hooks []AfterCommit

		err = u.store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			hooks = hooks[:0]
			return fn(ctx, tx, func(h AfterCommit) {
				hooks = append(hooks, h)
			})
		})
		if err == nil {
			for _, h := range hooks {
				h(ctx)
			}
			return nil
		}

		if !errors.Is(err, repository.ErrRetryable) {
			return err
		}
	}

	if attempts == 1 {
		return err
	}

	return fmt.Errorf("%w: %d attempts: %w", ErrContended, attempts, err)
}
