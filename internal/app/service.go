// Package service wires the plan engine to storage, the regeneration queue
// and the idempotency cache. It implements the dependencies required by the
// HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fairway/internal/adapters/mq/queue"
	"github.com/okian/fairway/internal/adapters/mq/worker"
	"github.com/okian/fairway/internal/adapters/repository"
	"github.com/okian/fairway/internal/domain/idempotency"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/plan"
	"github.com/okian/fairway/pkg/logger"
	"github.com/okian/fairway/pkg/metrics"
)

// Service generates, stores and regenerates annual training plans.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	generator plan.Generator
	cache     idempotency.Cache
	jobs      *queue.InMemoryQueue
	pool      *worker.Pool
	locks     *keyLock

	// Configuration
	workerCount     int
	queueSize       int
	idempotencySize int
	jobTimeout      time.Duration
	clock           Clock
	location        *time.Location

	started  bool
	stopping bool
	logger   logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the plan store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithGenerator sets the plan generator.
func WithGenerator(g plan.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.generator = g
		}
	}
}

// WithClock sets the clock used to pick plan start dates.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLocation sets the time zone in which "today" is evaluated.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithWorkerCount sets the number of regeneration workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the regeneration queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithIdempotencySize sets the size of the idempotency cache. Zero or less
// keeps every key.
func WithIdempotencySize(size int) Option {
	return func(s *Service) {
		s.idempotencySize = size
	}
}

// WithJobTimeout bounds a single background regeneration.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     4,
		queueSize:       1024,
		idempotencySize: 50_000,
		jobTimeout:      30 * time.Second,
		clock:           systemClock{},
		location:        time.UTC,
		locks:           newKeyLock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the default components and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting plan service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx, repository.WithLogger(s.logger.Named("store")))
		s.logger.Info(ctx, "using memory store")
	}
	if s.generator == nil {
		s.generator = plan.NewEngine(plan.WithLogger(s.logger.Named("engine")))
	}
	s.cache = idempotency.NewInMemoryCache(idempotency.WithMaxSize(s.idempotencySize))
	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.jobs, s,
		worker.WithLogger(s.logger.Named("worker")),
		worker.WithJobTimeout(s.jobTimeout),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "plan service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("idempotencySize", s.idempotencySize),
		logger.String("location", s.location.String()),
	)
	return nil
}

// Stop drains the regeneration queue and closes the store. Workers finish
// queued jobs before the store closes.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	pool, store := s.pool, s.store
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping plan service...")
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	if err := store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}

	s.mu.Lock()
	s.started, s.stopping = false, false
	s.mu.Unlock()
	s.logger.Info(ctx, "plan service stopped")
}

// components returns the running store and generator.
func (s *Service) components() (repository.Store, plan.Generator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.generator, nil
}

// SaveIntake stores an intake. Completed intakes are validated first so a
// broken intake is rejected before any plan is requested for it.
func (s *Service) SaveIntake(ctx context.Context, in *model.PlayerIntake) error {
	store, _, err := s.components()
	if err != nil {
		return err
	}
	if in.Complete() {
		if err := in.Validate(); err != nil {
			return err
		}
	}
	return store.SaveIntake(ctx, in)
}

// GetIntake returns a stored intake.
func (s *Service) GetIntake(ctx context.Context, intakeID string) (*model.PlayerIntake, error) {
	store, _, err := s.components()
	if err != nil {
		return nil, err
	}
	return store.GetIntake(ctx, intakeID)
}

// GeneratePlan builds and stores a plan for the intake, starting today.
func (s *Service) GeneratePlan(ctx context.Context, intakeID string) (model.GeneratedPlan, error) {
	gp, _, err := s.GeneratePlanIdempotent(ctx, "", intakeID)
	return gp, err
}

// GeneratePlanIdempotent is GeneratePlan keyed by an idempotency key. A key
// seen before returns the plan it produced and replayed=true. An empty key
// disables the check.
func (s *Service) GeneratePlanIdempotent(ctx context.Context, key, intakeID string) (gp model.GeneratedPlan, replayed bool, err error) {
	store, _, err := s.components()
	if err != nil {
		return model.GeneratedPlan{}, false, err
	}

	if key != "" {
		unlock := s.locks.Lock("idempotency:" + key)
		defer unlock()
		if planID, ok := s.cache.Lookup(ctx, key); ok {
			gp, err := store.GetPlan(ctx, planID)
			if err == nil {
				metrics.RecordIdempotentReplay()
				s.logger.Debug(ctx, "idempotent replay", logger.String("key", key), logger.String("planID", planID))
				return gp, true, nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return model.GeneratedPlan{}, false, err
			}
			s.cache.Forget(ctx, key)
		}
	}

	in, err := store.GetIntake(ctx, intakeID)
	if err != nil {
		return model.GeneratedPlan{}, false, err
	}
	gp, err = s.generate(ctx, in)
	if err != nil {
		return model.GeneratedPlan{}, false, err
	}
	if key != "" {
		s.cache.Remember(ctx, key, gp.Plan.ID)
	}
	return gp, false, nil
}

// Regenerate rebuilds the player's plan from their latest completed intake.
func (s *Service) Regenerate(ctx context.Context, playerID string) (model.GeneratedPlan, error) {
	store, _, err := s.components()
	if err != nil {
		return model.GeneratedPlan{}, err
	}
	in, err := store.GetCompletedIntake(ctx, playerID)
	if err != nil {
		return model.GeneratedPlan{}, err
	}
	return s.generate(ctx, in)
}

// EnqueueRegeneration schedules a background Regenerate. It returns
// ErrQueueFull when the queue applies backpressure.
func (s *Service) EnqueueRegeneration(ctx context.Context, playerID, reason string) (model.RegenerationJob, error) {
	s.mu.RLock()
	running, jobs := s.started && !s.stopping, s.jobs
	s.mu.RUnlock()
	if !running {
		return model.RegenerationJob{}, ErrNotStarted
	}

	job := model.RegenerationJob{
		ID:          uuid.NewString(),
		PlayerID:    playerID,
		Reason:      reason,
		RequestedAt: s.clock.Now().UTC(),
	}
	if !jobs.Enqueue(ctx, job) {
		s.logger.Warn(ctx, "regeneration rejected", logger.String("playerID", playerID), logger.Int("queued", jobs.Len(ctx)))
		return model.RegenerationJob{}, ErrQueueFull
	}
	s.logger.Debug(ctx, "regeneration queued", logger.String("jobID", job.ID), logger.String("playerID", playerID))
	return job, nil
}

// generate runs the engine for one intake and stores the result. Calls for
// the same player are serialized so plans supersede each other in order.
func (s *Service) generate(ctx context.Context, in *model.PlayerIntake) (model.GeneratedPlan, error) {
	store, generator, err := s.components()
	if err != nil {
		return model.GeneratedPlan{}, err
	}
	unlock := s.locks.Lock("player:" + in.PlayerID)
	defer unlock()

	start := time.Now()
	gp, err := generator.Generate(ctx, in, today(s.clock, s.location))
	metrics.RecordGenerationLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordPlanFailure(model.ErrorKind(err))
		s.logger.Warn(ctx, "plan generation failed",
			logger.String("playerID", in.PlayerID),
			logger.String("intakeID", in.ID),
			logger.String("kind", model.ErrorKind(err)),
			logger.Error(err))
		return model.GeneratedPlan{}, fmt.Errorf("generate plan: %w", err)
	}

	saved, err := store.SavePlan(ctx, gp)
	if err != nil {
		metrics.RecordErrorByComponent("store", "save_plan")
		return model.GeneratedPlan{}, fmt.Errorf("save plan: %w", err)
	}
	metrics.RecordPlanGenerated(len(saved.Days))
	for _, w := range saved.Plan.Warnings {
		metrics.RecordPlanWarning(w.Code)
	}
	return saved, nil
}

// GetPlan returns a stored plan with its child rows.
func (s *Service) GetPlan(ctx context.Context, planID string) (model.GeneratedPlan, error) {
	store, _, err := s.components()
	if err != nil {
		return model.GeneratedPlan{}, err
	}
	return store.GetPlan(ctx, planID)
}

// ActivePlan returns the player's current plan.
func (s *Service) ActivePlan(ctx context.Context, playerID string) (model.GeneratedPlan, error) {
	store, _, err := s.components()
	if err != nil {
		return model.GeneratedPlan{}, err
	}
	return store.ActivePlan(ctx, playerID)
}

// ListPlans returns the player's plan history, newest first.
func (s *Service) ListPlans(ctx context.Context, playerID string) ([]model.AnnualTrainingPlan, error) {
	store, _, err := s.components()
	if err != nil {
		return nil, err
	}
	return store.ListPlans(ctx, playerID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"idempotencySize": s.idempotencySize,
		"location":        s.location.String(),
	}
	if !s.started {
		return stats
	}

	queued := s.jobs.Len(ctx)
	stats["queueLength"] = queued
	stats["queueCapacity"] = s.jobs.Capacity()
	stats["idempotencyKeys"] = s.cache.Size()
	stats["regenerated"] = s.pool.Processed()
	stats["regenerationFailures"] = s.pool.Failed()
	if n, err := s.store.Count(ctx); err == nil {
		stats["plansStored"] = n
		metrics.UpdatePlansStored(n)
	} else {
		s.logger.Warn(ctx, "plan count unavailable", logger.Error(err))
	}
	metrics.UpdateQueueSize(queued)
	return stats
}
