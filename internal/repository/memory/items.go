package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/repository"
)

type ItemRepo struct {
	store *Store
	tx    *state
}

func (r *ItemRepo) Create(_ context.Context, it *domain.Item) error {
	const op = "memory.ItemRepo.Create"

	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	if _, ok := st.items[it.ID]; ok {
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}

	for _, existing := range st.items {
		if existing.Name == it.Name {
			return fmt.Errorf("%s: %w", op, repository.ErrConflict)
		}
	}

	it.CreatedAt = r.store.now()
	st.items[it.ID] = cloneItem(*it)

	return nil
}

func (r *ItemRepo) Get(_ context.Context, id uuid.UUID) (*domain.Item, error) {
	const op = "memory.ItemRepo.Get"

	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	it, ok := st.items[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	out := cloneItem(it)
	return &out, nil
}

func (r *ItemRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Item, error) {
	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	seen := make(map[uuid.UUID]bool, len(ids))
	var out []domain.Item
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		if it, ok := st.items[id]; ok {
			out = append(out, cloneItem(it))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}

func (r *ItemRepo) List(_ context.Context, onlyEnabled bool) ([]domain.Item, error) {
	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	var out []domain.Item
	for _, it := range st.items {
		if onlyEnabled && !it.Enabled {
			continue
		}
		out = append(out, cloneItem(it))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})

	return out, nil
}

func (r *ItemRepo) SetEnabled(_ context.Context, id uuid.UUID, enabled bool) error {
	const op = "memory.ItemRepo.SetEnabled"

	st, unlock := acquire(r.store, r.tx)
	defer unlock()

	it, ok := st.items[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	it.Enabled = enabled
	st.items[id] = it

	return nil
}

var _ repository.ItemRepository = (*ItemRepo)(nil)
