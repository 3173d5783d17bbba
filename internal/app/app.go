package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/pizza-go/internal/config"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/feed"
	"github.com/kirinyoku/pizza-go/internal/postgres"
	redisx "github.com/kirinyoku/pizza-go/internal/redis"
	"github.com/kirinyoku/pizza-go/internal/repository"
	"github.com/kirinyoku/pizza-go/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/pizza-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/pizza-go/internal/repository/redis"
	"github.com/kirinyoku/pizza-go/internal/service"
	"github.com/kirinyoku/pizza-go/internal/service/orders"
	httpgin "github.com/kirinyoku/pizza-go/internal/transport/http/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server

	services *service.Services
	hub      *feed.Hub
	events   *redisx.EventsPubSub

	pool *pgxpool.Pool
	rdb  *redis.Client
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx := context.Background()

	engine, err := config.NewEngineSource(cfg.EnginePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load engine settings: %w", err)
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		hub:    feed.NewHub(logger),
	}

	// Initialize store
	var store repository.Store
	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		store = memory.New()
	default:
		dsn := postgres.DSN(
			cfg.Postgres.User,
			cfg.Postgres.Password,
			cfg.Postgres.Host,
			cfg.Postgres.Port,
			cfg.Postgres.Name,
			cfg.Postgres.SSLMode,
		)

		if cfg.Postgres.Migrate {
			if err := postgres.Migrate(dsn, logger); err != nil {
				return nil, fmt.Errorf("failed to migrate postgres: %w", err)
			}
		}

		a.pool, err = postgres.New(ctx, postgres.Config{DSN: dsn})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		store = postgresrepo.NewStore(a.pool)
	}

	// Redis backs the cache, rate limiting, idempotency and cross-instance
	// events. Without it every instance publishes straight to its own feed.
	var (
		cache   *redisrepo.Cache
		idem    *redisrepo.IdempotencyStore
		limiter orders.Limiter
		pub     service.Publisher = a.hub
	)

	if cfg.Redis.Enabled {
		a.rdb, err = redisx.New(ctx, redisx.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}

		eng := engine.Current()

		rl := redisrepo.NewSlidingWindowLimiter(a.rdb, "order", eng.RateLimit.Limit, eng.RateLimit.Window)
		engine.OnReload(func(e config.Engine) {
			rl.Configure(e.RateLimit.Limit, e.RateLimit.Window)
		})

		cache = redisrepo.New(a.rdb)
		idem = redisrepo.NewIdempotencyStore(a.rdb, eng.IdempotencyTTL)
		limiter = rl
		a.events = redisx.NewEventsPubSub(a.rdb)
		pub = a.events
	}

	// Initialize services
	a.services = service.NewServices(store, cache, pub, limiter, engine, logger)

	// Initialize Gin router
	router := httpgin.NewRouter(a.services, idem, a.hub, cfg.Auth.JWTSecret, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.close()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Staff screen feed
	g.Go(func() error {
		return a.hub.Run(gCtx)
	})

	if a.events != nil {
		g.Go(func() error {
			err := a.events.Subscribe(gCtx, func(ctx context.Context, ev domain.Event) {
				if err := a.hub.Publish(ctx, ev); err != nil {
					a.logger.Warn("failed to forward event to feed", "type", ev.Type, "error", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("events subscription: %w", err)
			}
			return nil
		})
	}

	// SIGHUP reloads the engine settings
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-hup:
				if _, err := a.services.Admin.ReloadSettings(gCtx); err != nil {
					a.logger.Error("engine settings reload failed", "error", err)
				}
			}
		}
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("failed to close redis", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
