package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
)

// ErrViolations is returned when any returned plan breaks a structural rule.
var ErrViolations = errors.New("plan violations found")

// Run executes the complete load test against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config, l logger.Logger) (*Stats, error) {
	if l == nil {
		l = logger.Nop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	l.Info(ctx, "starting planner load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Int("regenerate", cfg.Regenerate))

	if err := client.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	intakes := newGenerator(seed, time.Now()).intakes(cfg.Players)
	stats.IntakesGenerated = len(intakes)
	l.Info(ctx, "generated intakes", logger.Int("count", len(intakes)), logger.Any("seed", seed))

	players, err := submit(ctx, cfg, client, intakes, stats, l)
	if err != nil {
		return stats, err
	}

	if err := regenerate(ctx, cfg, client, players, stats, l); err != nil {
		return stats, err
	}

	if err := saveIntakes(cfg.OutputFile, intakes); err != nil {
		l.Warn(ctx, "failed to save intakes to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats, l)

	if stats.Violations > 0 {
		return stats, fmt.Errorf("%w: %d", ErrViolations, stats.Violations)
	}
	return stats, nil
}

// submit stores every intake, requests its plan twice under one idempotency
// key and verifies the result.
func submit(ctx context.Context, cfg *Config, client *HTTPClient, intakes []model.PlayerIntake, stats *Stats, l logger.Logger) ([]Player, error) {
	var stored, generated, replayed, rejected, failed, verified, violations int64
	var mu sync.Mutex
	players := make([]Player, 0, len(intakes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, in := range intakes {
		g.Go(func() error {
			if err := client.saveIntake(gctx, in); err != nil {
				atomic.AddInt64(&failed, 1)
				l.Debug(gctx, "intake rejected", logger.String("playerID", in.PlayerID), logger.Error(err))
				return nil
			}
			atomic.AddInt64(&stored, 1)

			key := "load-" + in.ID
			gp, _, status, err := client.generatePlan(gctx, in.ID, key)
			switch {
			case status == http.StatusConflict || status == http.StatusUnprocessableEntity:
				atomic.AddInt64(&rejected, 1)
				l.Debug(gctx, "plan rejected", logger.String("playerID", in.PlayerID), logger.Error(err))
				return nil
			case err != nil:
				atomic.AddInt64(&failed, 1)
				l.Warn(gctx, "plan request failed", logger.String("playerID", in.PlayerID), logger.Error(err))
				return nil
			}
			atomic.AddInt64(&generated, 1)

			if problems := verifyPlan(gp); len(problems) > 0 {
				atomic.AddInt64(&violations, int64(len(problems)))
				l.Error(gctx, "plan violates structure",
					logger.String("planID", gp.Plan.ID), logger.Any("problems", problems))
			} else {
				atomic.AddInt64(&verified, 1)
			}

			again, wasReplay, _, err := client.generatePlan(gctx, in.ID, key)
			switch {
			case err != nil:
				atomic.AddInt64(&failed, 1)
			case !wasReplay || again.Plan.ID != gp.Plan.ID:
				atomic.AddInt64(&violations, 1)
				l.Error(gctx, "idempotent replay returned a different plan",
					logger.String("first", gp.Plan.ID), logger.String("second", again.Plan.ID))
			default:
				atomic.AddInt64(&replayed, 1)
			}

			mu.Lock()
			players = append(players, Player{Intake: in, PlanID: gp.Plan.ID, Replayed: wasReplay})
			mu.Unlock()
			if cfg.Verbose {
				l.Info(gctx, "plan generated", logger.String("playerID", in.PlayerID), logger.String("planID", gp.Plan.ID))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("plan submission interrupted: %w", err)
	}

	stats.IntakesStored = int(stored)
	stats.PlansGenerated = int(generated)
	stats.PlansReplayed = int(replayed)
	stats.PlansRejected = int(rejected)
	stats.PlansFailed = int(failed)
	stats.PlansVerified = int(verified)
	stats.Violations = int(violations)
	return players, nil
}

// regenerate queues the first cfg.Regenerate players and checks that each
// receives a new active plan superseding the one it had.
func regenerate(ctx context.Context, cfg *Config, client *HTTPClient, players []Player, stats *Stats, l logger.Logger) error {
	n := min(cfg.Regenerate, len(players))
	if n == 0 {
		return nil
	}
	targets := players[:n]
	for _, p := range targets {
		status, err := client.regenerate(ctx, p.Intake.PlayerID)
		if err != nil {
			l.Warn(ctx, "regeneration not queued", logger.String("playerID", p.Intake.PlayerID), logger.Int("status", status), logger.Error(err))
			continue
		}
		stats.RegenQueued++
	}

	l.Info(ctx, "waiting for regenerations", logger.Int("queued", stats.RegenQueued), logger.Duration("delay", cfg.SettleDelay))
	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for regenerations: %w", ctx.Err())
	case <-time.After(cfg.SettleDelay):
	}

	for _, p := range targets {
		gp, err := client.activePlan(ctx, p.Intake.PlayerID)
		if err != nil {
			l.Warn(ctx, "active plan unavailable", logger.String("playerID", p.Intake.PlayerID), logger.Error(err))
			continue
		}
		if gp.Plan.ID != p.PlanID && gp.Plan.SupersedesID == p.PlanID {
			stats.RegenApplied++
		}
	}
	return nil
}

// saveIntakes writes the generated intakes to a JSON file.
func saveIntakes(filename string, intakes []model.PlayerIntake) error {
	if len(intakes) == 0 {
		return fmt.Errorf("no intakes to save")
	}
	if filename == "" {
		filename = "generated_intakes_" + time.Now().Format("20060102_150405") + ".json"
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	raw, err := json.MarshalIndent(intakes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal intakes: %w", err)
	}
	return os.WriteFile(filename, raw, 0o600)
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats, l logger.Logger) {
	var successRate, plansPerSecond float64
	if stats.IntakesStored > 0 {
		successRate = float64(stats.PlansGenerated) / float64(stats.IntakesStored) * percentage
	}
	if stats.Duration > 0 {
		plansPerSecond = float64(stats.PlansGenerated) / stats.Duration.Seconds()
	}

	l.Info(ctx, "final statistics",
		logger.Int("intakesGenerated", stats.IntakesGenerated),
		logger.Int("intakesStored", stats.IntakesStored),
		logger.Int("plansGenerated", stats.PlansGenerated),
		logger.Int("plansReplayed", stats.PlansReplayed),
		logger.Int("plansRejected", stats.PlansRejected),
		logger.Int("plansFailed", stats.PlansFailed),
		logger.Int("plansVerified", stats.PlansVerified),
		logger.Int("violations", stats.Violations),
		logger.Int("regenQueued", stats.RegenQueued),
		logger.Int("regenApplied", stats.RegenApplied),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("plansPerSecond", plansPerSecond))
}
