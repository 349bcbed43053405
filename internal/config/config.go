// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/okian/fairway/internal/domain/model"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Store selects the persistence backend: memory, postgres or mongo.
	Store string `koanf:"store"`

	PostgresDSN   string `koanf:"postgres_dsn"`
	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`

	// Timezone is the IANA zone in which a plan's start date is taken.
	Timezone string `koanf:"timezone"`

	// CategoriesFile optionally replaces the built-in category table.
	CategoriesFile string `koanf:"categories_file"`

	// QueueSize bounds the regeneration queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of regeneration workers.
	WorkerCount int `koanf:"worker_count"`

	// JobTimeout bounds a single background regeneration.
	JobTimeout time.Duration `koanf:"job_timeout"`

	// IdempotencySize bounds the idempotency key cache.
	IdempotencySize int `koanf:"idempotency_size"`

	// IndividualShare is the part of the base phase given to individual
	// preparation.
	IndividualShare float64 `koanf:"individual_share"`

	// MaxSessionMinutes caps a single training day.
	MaxSessionMinutes int `koanf:"max_session_minutes"`

	// TaperFloor is the volume factor on the last taper day.
	TaperFloor float64 `koanf:"taper_floor"`

	// MaxConsecutiveDays is the longest allowed run of active days.
	MaxConsecutiveDays int `koanf:"max_consecutive_days"`

	// TaperDays and LeadWeeks override the per-importance peaking tables,
	// keyed by minor, important or major. Missing keys keep the built-in
	// values.
	TaperDays map[string]int `koanf:"taper_days"`
	LeadWeeks map[string]int `koanf:"lead_weeks"`
}

// Peaking table limits.
const (
	maxTaperDays = 28
	maxLeadWeeks = model.HorizonWeeks - 1
)

// TaperTable returns the taper length per importance with overrides applied.
func (c *Config) TaperTable() map[model.Importance]int {
	return overlay(model.DefaultTaperDays(), c.TaperDays)
}

// LeadTable returns the topping lead time per importance with overrides applied.
func (c *Config) LeadTable() map[model.Importance]int {
	return overlay(model.DefaultLeadWeeks(), c.LeadWeeks)
}

func overlay(base map[model.Importance]int, overrides map[string]int) map[model.Importance]int {
	out := maps.Clone(base)
	for k, v := range overrides {
		out[model.Importance(k)] = v
	}
	return out
}

func validateTable(key string, table map[string]int, lo, hi int) error {
	for k, v := range table {
		if !model.Importance(k).Valid() {
			return fmt.Errorf("%w: %s: unknown importance %q", ErrInvalidConfig, key, k)
		}
		if v < lo || v > hi {
			return fmt.Errorf("%w: %s.%s must be between %d and %d", ErrInvalidConfig, key, k, lo, hi)
		}
	}
	return nil
}

// New creates a Config with defaults. The context is reserved for loaders
// that need it.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		Store:              StoreMemory,
		MongoDatabase:      "fairway",
		Timezone:           "UTC",
		QueueSize:          1024,
		WorkerCount:        4,
		JobTimeout:         30 * time.Second,
		IdempotencySize:    50_000,
		IndividualShare:    0.4,
		MaxSessionMinutes:  180,
		TaperFloor:         0.4,
		MaxConsecutiveDays: 6,
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.JobTimeout <= 0:
		return fmt.Errorf("%w: job_timeout must be positive", ErrInvalidConfig)
	case c.IndividualShare <= 0 || c.IndividualShare >= 1:
		return fmt.Errorf("%w: individual_share must be between 0 and 1", ErrInvalidConfig)
	case c.MaxSessionMinutes <= 0:
		return fmt.Errorf("%w: max_session_minutes must be positive", ErrInvalidConfig)
	case c.TaperFloor <= 0 || c.TaperFloor >= 1:
		return fmt.Errorf("%w: taper_floor must be between 0 and 1", ErrInvalidConfig)
	case c.MaxConsecutiveDays < 1 || c.MaxConsecutiveDays > 6:
		return fmt.Errorf("%w: max_consecutive_days must be between 1 and 6", ErrInvalidConfig)
	}
	if err := validateTable("taper_days", c.TaperDays, 1, maxTaperDays); err != nil {
		return err
	}
	if err := validateTable("lead_weeks", c.LeadWeeks, 0, maxLeadWeeks); err != nil {
		return err
	}

	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres store", ErrInvalidConfig)
		}
	case StoreMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("%w: mongo_uri and mongo_database are required for the mongo store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}

	_, err := c.Location()
	return err
}
