package service

import (
	"context"
	"log/slog"

	"github.com/kirinyoku/pizza-go/internal/config"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/repository"
	redisrepo "github.com/kirinyoku/pizza-go/internal/repository/redis"
	"github.com/kirinyoku/pizza-go/internal/service/admin"
	"github.com/kirinyoku/pizza-go/internal/service/allocation"
	"github.com/kirinyoku/pizza-go/internal/service/capacity"
	"github.com/kirinyoku/pizza-go/internal/service/catalog"
	"github.com/kirinyoku/pizza-go/internal/service/orders"
	"github.com/kirinyoku/pizza-go/internal/service/query"
)

// Publisher receives committed change events.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

type Services struct {
	Allocation *allocation.Service
	Orders     *orders.Service
	Capacity   *capacity.Service
	Catalog    *catalog.Service
	Query      *query.Service
	Admin      *admin.Service
}

// NewServices wires the engine. cache, pub and limiter may be nil.
func NewServices(
	store repository.Store,
	cache *redisrepo.Cache,
	pub Publisher,
	limiter orders.Limiter,
	engine *config.EngineSource,
	logger *slog.Logger,
) *Services {
	cat := catalog.New(store, cache, engine)

	return &Services{
		Allocation: allocation.New(store, cache, pub, engine, logger),
		Orders:     orders.New(store, cache, pub, limiter, engine, logger),
		Capacity:   capacity.New(store, cache, engine),
		Catalog:    cat,
		Query:      query.New(store, cat),
		Admin:      admin.New(store, cache, pub, engine, logger),
	}
}
