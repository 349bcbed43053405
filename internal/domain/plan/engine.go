package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fairway/internal/domain/category"
	"github.com/okian/fairway/internal/domain/daily"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/peaking"
	"github.com/okian/fairway/internal/domain/phase"
	"github.com/okian/fairway/pkg/logger"
)

// Generator is the engine contract consumed by the orchestration layer.
type Generator interface {
	Generate(ctx context.Context, intake *model.PlayerIntake, start time.Time) (model.GeneratedPlan, error)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithResolver sets the category resolver.
func WithResolver(r *category.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithAllocator sets the phase allocator.
func WithAllocator(a *phase.Allocator) Option {
	return func(e *Engine) {
		if a != nil {
			e.allocator = a
		}
	}
}

// WithScheduler sets the peaking scheduler.
func WithScheduler(s *peaking.Scheduler) Option {
	return func(e *Engine) {
		if s != nil {
			e.scheduler = s
		}
	}
}

// WithDailyGenerator sets the daily assignment generator.
func WithDailyGenerator(g *daily.Generator) Option {
	return func(e *Engine) {
		if g != nil {
			e.daily = g
		}
	}
}

// WithIDGenerator sets the plan id source.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithNow sets the source of GeneratedAt timestamps.
func WithNow(fn func() time.Time) Option {
	return func(e *Engine) {
		if fn != nil {
			e.now = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine runs the generation pipeline: category, phases, peaking, daily
// assignments, assembly. It is pure apart from logging and safe for
// concurrent use.
type Engine struct {
	resolver  *category.Resolver
	allocator *phase.Allocator
	scheduler *peaking.Scheduler
	daily     *daily.Generator
	newID     func() string
	now       func() time.Time
	logger    logger.Logger
}

// NewEngine creates an engine over the default category table unless a
// resolver is supplied.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		allocator: phase.NewAllocator(),
		scheduler: peaking.NewScheduler(),
		daily:     daily.NewGenerator(),
		newID:     uuid.NewString,
		now:       time.Now,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		r, err := category.NewResolver(category.DefaultTable())
		if err != nil {
			panic(fmt.Sprintf("default category table: %v", err))
		}
		e.resolver = r
	}
	return e
}

// Resolver returns the category resolver in use.
func (e *Engine) Resolver() *category.Resolver { return e.resolver }

// Scheduler returns the peaking scheduler in use.
func (e *Engine) Scheduler() *peaking.Scheduler { return e.scheduler }

// Generate builds a plan for intake starting on start's calendar date.
// The intake is validated before any scheduling work.
func (e *Engine) Generate(ctx context.Context, intake *model.PlayerIntake, start time.Time) (model.GeneratedPlan, error) {
	if err := intake.Validate(); err != nil {
		return model.GeneratedPlan{}, err
	}
	log := e.logger.With(logger.String("playerID", intake.PlayerID), logger.String("intakeID", intake.ID))
	start = model.DateOnly(start)

	cat, err := e.resolver.Resolve(intake.Background)
	if err != nil {
		return model.GeneratedPlan{}, fmt.Errorf("resolve category: %w", err)
	}
	log.Debug(ctx, "category resolved", logger.String("category", cat.Code), logger.Int("rank", cat.Rank))

	var warnings []model.Warning
	if intake.Background.RoundsPerYear < cat.RoundsRequired {
		warnings = append(warnings, model.Warning{
			Code:    model.WarningRoundsBelowBaseline,
			Message: fmt.Sprintf("%d rounds per year, category %s expects %d", intake.Background.RoundsPerYear, cat.Code, cat.RoundsRequired),
		})
	}

	scheduled, unscheduled := model.SplitByHorizon(start, intake.Goals.Tournaments)
	for _, t := range unscheduled {
		log.Info(ctx, "tournament outside horizon", logger.String("tournament", t.Name), logger.Date("date", t.Date))
	}

	alloc, err := e.allocator.Allocate(ctx, cat, scheduled, start)
	if err != nil {
		return model.GeneratedPlan{}, fmt.Errorf("allocate phases: %w", err)
	}

	peaks, err := e.scheduler.Schedule(ctx, alloc.Timeline, scheduled)
	if err != nil {
		return model.GeneratedPlan{}, fmt.Errorf("schedule peaking: %w", err)
	}
	warnings = append(warnings, peaks.Warnings...)

	hours := weeklyHours(intake.Availability, cat)
	days := e.daily.Generate(ctx, daily.Input{
		Timeline:     peaks.Timeline,
		Schedules:    peaks.Schedules,
		WeeklyHours:  hours,
		Availability: *intake.Availability,
		Advice:       daily.AdviceFrom(intake),
	})
	warnings = append(warnings, days.Warnings...)

	gp, err := NewAssembler(log).Assemble(ctx, Parts{
		PlayerID:        intake.PlayerID,
		IntakeID:        intake.ID,
		Start:           start,
		Category:        cat,
		CategoryVersion: e.resolver.Version(),
		WeeklyHours:     hours,
		Phases:          alloc.Phases,
		Timeline:        peaks.Timeline,
		Schedules:       peaks.Schedules,
		Days:            days.Days,
		Warnings:        warnings,
		Scheduled:       scheduled,
		Unscheduled:     unscheduled,
		GeneratedAt:     e.now().UTC(),
		MaxConsecutive:  e.daily.MaxConsecutiveDays(),
	})
	if err != nil {
		return model.GeneratedPlan{}, fmt.Errorf("assemble plan: %w", err)
	}

	gp = gp.WithPlanID(e.newID())
	log.Info(ctx, "plan generated",
		logger.String("planID", gp.Plan.ID),
		logger.String("category", cat.Code),
		logger.Int("tournaments", len(scheduled)),
		logger.Int("warnings", len(warnings)),
		logger.Int("forcedRests", days.ForcedRests),
	)
	return gp, nil
}

// weeklyHours is the player's declared availability, or the category
// target when none was declared.
func weeklyHours(a *model.Availability, cat category.Category) float64 {
	if a.WeeklyHours > 0 {
		return a.WeeklyHours
	}
	return cat.WeeklyHours
}
