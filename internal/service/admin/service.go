package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/pizza-go/internal/config"
	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/kirinyoku/pizza-go/internal/repository"
	redisrepo "github.com/kirinyoku/pizza-go/internal/repository/redis"
	"github.com/kirinyoku/pizza-go/internal/uow"
	"github.com/shopspring/decimal"
)

type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

type Service struct {
	store  repository.Store
	cache  *redisrepo.Cache
	pub    Publisher
	engine *config.EngineSource
	uow    *uow.UoW
	logger *slog.Logger
}

func New(
	store repository.Store,
	cache *redisrepo.Cache,
	pub Publisher,
	engine *config.EngineSource,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		pub:    pub,
		engine: engine,
		uow:    uow.NewUoW(store).WithRetries(func() int { return engine.Current().TxRetries }),
		logger: logger,
	}
}

type NewItem struct {
	Name        string
	Price       decimal.Decimal
	Type        string
	Dietary     string
	Ingredients []string
	// Size defaults to one whole unit.
	Size    decimal.Decimal
	Max     int
	Enabled bool
}

// CreateItem adds a catalog item.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: the item definition.
//
// Returns:
//   - *domain.Item: the stored item.
//   - error: admin.ErrInvalidItem if name, price or size are out of bounds.
//   - error: admin.ErrItemConflict if an item with the same name exists.
func (s *Service) CreateItem(ctx context.Context, in NewItem) (*domain.Item, error) {
	const op = "service.admin.CreateItem"

	it := domain.Item{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price,
		Type:        strings.TrimSpace(in.Type),
		Dietary:     in.Dietary,
		Ingredients: in.Ingredients,
		Size:        in.Size,
		Max:         in.Max,
		Enabled:     in.Enabled,
	}

	if it.Size.IsZero() {
		it.Size = decimal.NewFromInt(1)
	}

	if it.Name == "" || it.Type == "" || it.Max < 0 || !domain.ValidItem(it) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidItem)
	}

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if err := tx.Items().Create(ctx, &it); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%s: %w", op, ErrItemConflict)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			s.catalogChanged(ctx, it.ID)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &it, nil
}

// SetItemEnabled toggles whether customers can order an item. Existing
// orders keep their snapshot.
//
// Returns:
//   - error: admin.ErrItemNotFound if the item does not exist.
func (s *Service) SetItemEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	const op = "service.admin.SetItemEnabled"

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		if err := tx.Items().SetEnabled(ctx, id, enabled); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%s: %w", op, ErrItemNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			s.catalogChanged(ctx, id)
		})
		return nil
	})

	return err
}

type ResetResult struct {
	Tickets int64 `json:"tickets"`
	Orders  int64 `json:"orders"`
}

// Reset deletes every ticket and order. The catalog is kept.
func (s *Service) Reset(ctx context.Context) (ResetResult, error) {
	const op = "service.admin.Reset"

	var res ResetResult

	err := s.uow.Do(ctx, func(ctx context.Context, tx repository.Tx, after func(uow.AfterCommit)) error {
		var err error

		res.Tickets, err = tx.Tickets().DeleteAll(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		res.Orders, err = tx.Orders().DeleteAll(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		after(func(ctx context.Context) {
			if err := s.cache.InvalidateSlots(ctx); err != nil {
				s.logger.Warn("failed to invalidate slot cache", "error", err)
			}
			s.publish(ctx, domain.Event{Type: domain.EventReset})
		})
		return nil
	})
	if err != nil {
		return ResetResult{}, err
	}

	s.logger.Warn("store reset", "tickets", res.Tickets, "orders", res.Orders)

	return res, nil
}

// Settings returns the engine settings in effect.
func (s *Service) Settings() config.Engine {
	return s.engine.Current()
}

// ReloadSettings re-reads the engine settings file. On failure the previous
// settings stay in effect.
//
// Returns:
//   - config.Engine: the settings now in effect.
//   - error: admin.ErrReloadFailed if the file is missing or invalid.
func (s *Service) ReloadSettings(ctx context.Context) (config.Engine, error) {
	const op = "service.admin.ReloadSettings"

	e, err := s.engine.Reload()
	if err != nil {
		return config.Engine{}, fmt.Errorf("%s: %w: %w", op, ErrReloadFailed, err)
	}

	// slot grid or capacity may have changed
	if err := s.cache.InvalidateSlots(ctx); err != nil {
		s.logger.Warn("failed to invalidate slot cache", "error", err)
	}

	s.logger.Info("engine settings reloaded",
		slog.Group("engine",
			"max_capacity_per_slot", e.MaxCapacityPerSlot,
			"slot_minutes", e.SlotMinutes,
			"opening", e.Opening,
			"closing", e.Closing,
		),
	)

	return e, nil
}

func (s *Service) catalogChanged(ctx context.Context, itemID uuid.UUID) {
	if err := s.cache.InvalidateCatalog(ctx); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", "error", err)
	}

	s.publish(ctx, domain.Event{Type: domain.EventCatalogChanged, ItemID: itemID})
}

func (s *Service) publish(ctx context.Context, ev domain.Event) {
	if s.pub == nil {
		return
	}

	ev.TsUnix = time.Now().Unix()

	if err := s.pub.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event", "type", ev.Type, "error", err)
	}
}
