package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
	"github.com/okian/fairway/pkg/metrics"
)

// MemoryStore keeps intakes and plans in process memory. It is safe for
// concurrent use and is the default store for local runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	intakes  map[string]model.PlayerIntake
	plans    map[string]model.GeneratedPlan
	byPlayer map[string][]string // plan ids in insertion order
	active   map[string]string   // player id -> active plan id

	metricsUpdateInterval time.Duration
	logger                logger.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewMemoryStore constructs a memory store and starts its metrics updater.
// The updater stops when ctx is cancelled or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		intakes:               make(map[string]model.PlayerIntake),
		plans:                 make(map[string]model.GeneratedPlan),
		byPlayer:              make(map[string][]string),
		active:                make(map[string]string),
		metricsUpdateInterval: 5 * time.Second,
		logger:                logger.Nop(),
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

func (s *MemoryStore) SaveIntake(_ context.Context, in *model.PlayerIntake) error {
	defer observe("save_intake", time.Now())
	if err := checkIntake(in); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intakes[in.ID] = *in
	return nil
}

func (s *MemoryStore) GetIntake(_ context.Context, intakeID string) (*model.PlayerIntake, error) {
	defer observe("get_intake", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.intakes[intakeID]
	if !ok {
		return nil, fmt.Errorf("intake %s: %w", intakeID, ErrNotFound)
	}
	return &in, nil
}

func (s *MemoryStore) GetCompletedIntake(_ context.Context, playerID string) (*model.PlayerIntake, error) {
	defer observe("get_completed_intake", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *model.PlayerIntake
	for _, in := range s.intakes {
		if in.PlayerID != playerID || !in.Complete() {
			continue
		}
		if latest == nil || in.CompletedAt.After(*latest.CompletedAt) ||
			(in.CompletedAt.Equal(*latest.CompletedAt) && in.ID > latest.ID) {
			in := in
			latest = &in
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("completed intake for player %s: %w", playerID, ErrNotFound)
	}
	return latest, nil
}

func (s *MemoryStore) SavePlan(ctx context.Context, gp model.GeneratedPlan) (model.GeneratedPlan, error) {
	defer observe("save_plan", time.Now())
	if err := checkPlan(gp); err != nil {
		return model.GeneratedPlan{}, err
	}
	gp = clonePlan(gp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[gp.Plan.ID]; exists {
		return model.GeneratedPlan{}, fmt.Errorf("plan %s: %w", gp.Plan.ID, ErrDuplicatePlan)
	}
	player := gp.Plan.PlayerID
	gp.Plan.SupersedesID = ""
	if prevID, ok := s.active[player]; ok {
		prev := s.plans[prevID]
		prev.Plan.Active = false
		s.plans[prevID] = prev
		gp.Plan.SupersedesID = prevID
		s.logger.Debug(ctx, "plan superseded", logger.String("planID", prevID), logger.String("playerID", player))
	}
	gp.Plan.Active = true
	s.plans[gp.Plan.ID] = gp
	s.byPlayer[player] = append(s.byPlayer[player], gp.Plan.ID)
	s.active[player] = gp.Plan.ID
	return clonePlan(gp), nil
}

func (s *MemoryStore) GetPlan(_ context.Context, planID string) (model.GeneratedPlan, error) {
	defer observe("get_plan", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	gp, ok := s.plans[planID]
	if !ok {
		return model.GeneratedPlan{}, fmt.Errorf("plan %s: %w", planID, ErrNotFound)
	}
	return clonePlan(gp), nil
}

func (s *MemoryStore) ActivePlan(_ context.Context, playerID string) (model.GeneratedPlan, error) {
	defer observe("active_plan", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.active[playerID]
	if !ok {
		return model.GeneratedPlan{}, fmt.Errorf("active plan for player %s: %w", playerID, ErrNotFound)
	}
	return clonePlan(s.plans[id]), nil
}

func (s *MemoryStore) ListPlans(_ context.Context, playerID string) ([]model.AnnualTrainingPlan, error) {
	defer observe("list_plans", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byPlayer[playerID]
	out := make([]model.AnnualTrainingPlan, 0, len(ids))
	for _, id := range ids {
		p := s.plans[id].Plan
		p.Phases = slices.Clone(p.Phases)
		p.Warnings = slices.Clone(p.Warnings)
		out = append(out, p)
	}
	slices.SortFunc(out, newestFirst)
	return out, nil
}

func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.plans), nil
}

// Close stops the metrics updater. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// startMetricsUpdater starts a background goroutine that publishes store gauges.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	n := len(s.plans)
	s.mu.RUnlock()
	metrics.UpdatePlansStored(n)
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}
