package service

import (
	"context"
	"fmt"

	"github.com/okian/fairway/internal/adapters/repository"
	"github.com/okian/fairway/internal/config"
	"github.com/okian/fairway/internal/domain/category"
	"github.com/okian/fairway/internal/domain/daily"
	"github.com/okian/fairway/internal/domain/peaking"
	"github.com/okian/fairway/internal/domain/phase"
	"github.com/okian/fairway/internal/domain/plan"
	"github.com/okian/fairway/pkg/logger"
)

// NewEngine builds the plan engine described by cfg. The category table
// is read from cfg.CategoriesFile when one is set.
func NewEngine(ctx context.Context, cfg *config.Config, l logger.Logger) (*plan.Engine, error) {
	if l == nil {
		l = logger.Nop()
	}
	table, err := config.LoadCategoryTable(ctx, cfg.CategoriesFile)
	if err != nil {
		return nil, err
	}
	resolver, err := category.NewResolver(table)
	if err != nil {
		return nil, fmt.Errorf("category table: %w", err)
	}
	// The allocator reserves Tournament weeks from the same taper table the
	// scheduler lays out, so both read one map.
	taper := cfg.TaperTable()
	return plan.NewEngine(
		plan.WithResolver(resolver),
		plan.WithAllocator(phase.NewAllocator(
			phase.WithIndividualShare(cfg.IndividualShare),
			phase.WithTaperDays(taper),
			phase.WithLogger(l.Named("phase")),
		)),
		plan.WithScheduler(peaking.NewScheduler(
			peaking.WithTaperDays(taper),
			peaking.WithLeadWeeks(cfg.LeadTable()),
			peaking.WithLogger(l.Named("peaking")),
		)),
		plan.WithDailyGenerator(daily.NewGenerator(
			daily.WithMaxSessionMinutes(cfg.MaxSessionMinutes),
			daily.WithTaperFloor(cfg.TaperFloor),
			daily.WithMaxConsecutiveDays(cfg.MaxConsecutiveDays),
			daily.WithLogger(l.Named("daily")),
		)),
		plan.WithLogger(l.Named("engine")),
	), nil
}

// OpenStore connects the backend selected by cfg.Store and prepares its
// schema. The memory store is returned for StoreMemory.
func OpenStore(ctx context.Context, cfg *config.Config, l logger.Logger) (repository.Store, error) {
	if l == nil {
		l = logger.Nop()
	}
	switch cfg.Store {
	case config.StorePostgres:
		db, err := repository.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s := repository.NewPostgresStore(db, l.Named("postgres"))
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case config.StoreMongo:
		client, err := repository.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		s := repository.NewMongoStore(client, cfg.MongoDatabase, l.Named("mongo"))
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return repository.NewMemoryStore(ctx, repository.WithLogger(l.Named("store"))), nil
	}
}

// OptionsFromConfig maps cfg onto service options.
func OptionsFromConfig(cfg *config.Config) ([]Option, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithLocation(loc),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithIdempotencySize(cfg.IdempotencySize),
		WithJobTimeout(cfg.JobTimeout),
	}, nil
}
