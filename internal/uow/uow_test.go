package uow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kirinyoku/pizza-go/internal/repository"
	"github.com/kirinyoku/pizza-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRunsHooksAfterCommit(t *testing.T) {
	u := NewUoW(memory.New())

	var ran []string
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		after(func(context.Context) { ran = append(ran, "first") })
		after(func(context.Context) { ran = append(ran, "second") })
		assert.Empty(t, ran)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, ran)
}

func TestDoSkipsHooksOnError(t *testing.T) {
	u := NewUoW(memory.New())
	boom := errors.New("boom")

	ran := false
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		after(func(context.Context) { ran = true })
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, ran)
}

// serializationFailures fails the first n transactions the way postgres
// reports a serialization failure.
type serializationFailures struct {
	repository.Store
	n     int
	calls int
}

func (s *serializationFailures) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.calls++
	if s.calls > s.n {
		return s.Store.RunTx(ctx, fn)
	}

	return s.Store.RunTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return fmt.Errorf("commit: %w", repository.ErrRetryable)
	})
}

func TestDoRetriesSerializationFailures(t *testing.T) {
	store := &serializationFailures{Store: memory.New(), n: 2}
	u := NewUoW(store).WithRetries(func() int { return 3 })

	hooks := 0
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Tx, after func(AfterCommit)) error {
		after(func(context.Context) { hooks++ })
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)
	assert.Equal(t, 1, hooks, "hooks of rolled back attempts must not run")
}

func TestDoGivesUpAfterAttempts(t *testing.T) {
	store := &serializationFailures{Store: memory.New(), n: 100}
	u := NewUoW(store).WithRetries(func() int { return 3 })

	err := u.Do(context.Background(), func(context.Context, repository.Tx, func(AfterCommit)) error {
		return nil
	})
	require.ErrorIs(t, err, ErrContended)
	assert.ErrorIs(t, err, repository.ErrRetryable)
	assert.Equal(t, 3, store.calls)
}

func TestDoWithoutRetriesRunsOnce(t *testing.T) {
	store := &serializationFailures{Store: memory.New(), n: 1}

	err := NewUoW(store).Do(context.Background(), func(context.Context, repository.Tx, func(AfterCommit)) error {
		return nil
	})
	require.ErrorIs(t, err, repository.ErrRetryable)
	assert.NotErrorIs(t, err, ErrContended)
	assert.Equal(t, 1, store.calls)
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	u := NewUoW(memory.New()).WithRetries(func() int { return 5 })

	calls := 0
	err := u.Do(context.Background(), func(context.Context, repository.Tx, func(AfterCommit)) error {
		calls++
		return repository.ErrConflict
	})
	require.ErrorIs(t, err, repository.ErrConflict)
	assert.Equal(t, 1, calls)
}
