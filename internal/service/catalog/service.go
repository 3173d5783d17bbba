// Package catalog serves the item catalog, read through the Redis cache.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/config"
	"github.com/kirinyoku/pizza-go/internal/domain"
	redisx "github.com/kirinyoku/pizza-go/internal/redis"
	"github.com/kirinyoku/pizza-go/internal/repository"
	redisrepo "github.com/kirinyoku/pizza-go/internal/repository/redis"
)

var ErrItemNotFound = errors.New("item not found")

type Service struct {
	store  repository.Store
	cache  *redisrepo.Cache
	engine *config.EngineSource
}

func New(store repository.Store, cache *redisrepo.Cache, engine *config.EngineSource) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		engine: engine,
	}
}

// List returns the catalog ordered by type and name.
//
// Parameters:
//   - ctx: request-scoped context.
//   - onlyEnabled: if true, items customers cannot order are left out.
//
// Returns:
//   - []domain.Item: the catalog entries.
//   - error: if the store or cache fails.
func (s *Service) List(ctx context.Context, onlyEnabled bool) ([]domain.Item, error) {
	const op = "service.catalog.List"

	items, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisx.KeyCatalog(onlyEnabled),
		s.engine.Current().CacheTTL,
		func(ctx context.Context) ([]domain.Item, error) {
			return s.store.Items().List(ctx, onlyEnabled)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	const op = "service.catalog.Get"

	it, err := s.store.Items().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrItemNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return it, nil
}

// Index maps every catalog item by id, disabled ones included.
func (s *Service) Index(ctx context.Context) (map[uuid.UUID]domain.Item, error) {
	items, err := s.List(ctx, false)
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]domain.Item, len(items))
	for _, it := range items {
		out[it.ID] = it
	}

	return out, nil
}
