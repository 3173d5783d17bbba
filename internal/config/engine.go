package config

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kirinyoku/pizza-go/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// Engine holds the settings the ordering engine reads on every request.
type Engine struct {
	MaxCapacityPerSlot float64       `yaml:"max_capacity_per_slot" json:"maxCapacityPerSlot"`
	MaxItems           int           `yaml:"max_items" json:"maxItems"`
	MaxSizePerOrder    float64       `yaml:"max_size_per_order" json:"maxSizePerOrder"`
	SlotMinutes        int           `yaml:"slot_minutes" json:"slotMinutes"`
	Opening            string        `yaml:"opening" json:"opening"`
	Closing            string        `yaml:"closing" json:"closing"`
	DeliverRetries     int           `yaml:"deliver_retries" json:"deliverRetries"`
	TxRetries          int           `yaml:"tx_retries" json:"txRetries"`
	RateLimit          RateLimit     `yaml:"rate_limit" json:"rateLimit"`
	IdempotencyTTL     time.Duration `yaml:"idempotency_ttl" json:"idempotencyTtl"`
	CacheTTL           time.Duration `yaml:"cache_ttl" json:"cacheTtl"`
}

type RateLimit struct {
	// Limit is the number of orders one client may place per Window; 0
	// disables the limiter.
	Limit  int           `yaml:"limit" json:"limit"`
	Window time.Duration `yaml:"window" json:"window"`
}

func DefaultEngine() Engine {
	return Engine{
		MaxCapacityPerSlot: 10,
		MaxItems:           10,
		MaxSizePerOrder:    5,
		SlotMinutes:        15,
		Opening:            "17:00",
		Closing:            "22:00",
		DeliverRetries:     3,
		TxRetries:          3,
		RateLimit:          RateLimit{Limit: 10, Window: time.Minute},
		IdempotencyTTL:     2 * time.Hour,
		CacheTTL:           5 * time.Second,
	}
}

func (e Engine) Capacity() decimal.Decimal {
	return decimal.NewFromFloat(e.MaxCapacityPerSlot)
}

func (e Engine) OrderSizeLimit() decimal.Decimal {
	return decimal.NewFromFloat(e.MaxSizePerOrder)
}

// Hours returns the first and last bookable slot.
func (e Engine) Hours() (domain.Timeslot, domain.Timeslot) {
	// validated by Validate
	open, _ := domain.ParseTimeslot(e.Opening)
	closing, _ := domain.ParseTimeslot(e.Closing)
	return open, closing
}

// Validate reports the first setting that makes the engine unusable.
func (e Engine) Validate() error {
	switch {
	case e.MaxCapacityPerSlot <= 0:
		return fmt.Errorf("max_capacity_per_slot must be positive")
	case e.MaxItems <= 0:
		return fmt.Errorf("max_items must be positive")
	case e.MaxSizePerOrder <= 0:
		return fmt.Errorf("max_size_per_order must be positive")
	case e.SlotMinutes <= 0 || e.SlotMinutes > 24*60:
		return fmt.Errorf("slot_minutes out of range")
	case e.DeliverRetries < 1:
		return fmt.Errorf("deliver_retries must be at least 1")
	case e.TxRetries < 1:
		return fmt.Errorf("tx_retries must be at least 1")
	case e.RateLimit.Limit < 0:
		return fmt.Errorf("rate_limit.limit must not be negative")
	case e.RateLimit.Limit > 0 && e.RateLimit.Window <= 0:
		return fmt.Errorf("rate_limit.window must be positive")
	}

	open, err := domain.ParseTimeslot(e.Opening)
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}

	closing, err := domain.ParseTimeslot(e.Closing)
	if err != nil {
		return fmt.Errorf("closing: %w", err)
	}

	if closing < open {
		return fmt.Errorf("closing %s is before opening %s", e.Closing, e.Opening)
	}

	return nil
}

// ParseEngine decodes YAML settings on top of the defaults.
func ParseEngine(b []byte) (Engine, error) {
	const op = "config.ParseEngine"

	e := DefaultEngine()

	if len(bytes.TrimSpace(b)) > 0 {
		if err := yaml.UnmarshalStrict(b, &e); err != nil {
			return Engine{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := e.Validate(); err != nil {
		return Engine{}, fmt.Errorf("%s: %w", op, err)
	}

	return e, nil
}

// EngineSource owns the live engine settings. Services receive it explicitly
// and read Current per operation, so a reload applies to the next request.
type EngineSource struct {
	path string

	mu      sync.RWMutex
	current Engine
	hooks   []func(Engine)
}

// NewEngineSource loads the settings at path. An empty path yields the
// defaults and makes Reload a no-op.
func NewEngineSource(path string) (*EngineSource, error) {
	s := &EngineSource{path: path, current: DefaultEngine()}

	if _, err := s.Reload(); err != nil {
		return nil, err
	}

	return s, nil
}

// StaticEngine wraps fixed settings, mainly for tests.
func StaticEngine(e Engine) *EngineSource {
	return &EngineSource{current: e}
}

func (s *EngineSource) Current() Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current
}

// OnReload registers fn to run with the new settings after every successful
// reload.
func (s *EngineSource) OnReload(fn func(Engine)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, fn)
}

// Reload re-reads the settings file. On error the previous settings stay in
// effect.
func (s *EngineSource) Reload() (Engine, error) {
	const op = "config.EngineSource.Reload"

	if s.path == "" {
		return s.Current(), nil
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		return Engine{}, fmt.Errorf("%s: %w", op, err)
	}

	e, err := ParseEngine(b)
	if err != nil {
		return Engine{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	s.current = e
	hooks := append([]func(Engine){}, s.hooks...)
	s.mu.Unlock()

	for _, h := range hooks {
		h(e)
	}

	return e, nil
}
