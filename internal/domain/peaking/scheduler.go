// Package peaking places each tournament's topping and tapering windows on
// the phase skeleton and resolves overlaps between them.
package peaking

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithTaperDays overrides taper lengths per importance.
func WithTaperDays(days map[model.Importance]int) Option {
	return func(s *Scheduler) {
		for imp, d := range days {
			if d > 0 {
				s.taperDays[imp] = d
			}
		}
	}
}

// WithLeadWeeks overrides topping lead times per importance.
func WithLeadWeeks(weeks map[model.Importance]int) Option {
	return func(s *Scheduler) {
		for imp, w := range weeks {
			if w >= 0 {
				s.leadWeeks[imp] = w
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scheduler computes peaking windows.
type Scheduler struct {
	taperDays map[model.Importance]int
	leadWeeks map[model.Importance]int
	logger    logger.Logger
}

// NewScheduler creates a scheduler with the default importance tables.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		taperDays: model.DefaultTaperDays(),
		leadWeeks: model.DefaultLeadWeeks(),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TaperDays returns the taper length for imp.
func (s *Scheduler) TaperDays(imp model.Importance) int { return s.taperDays[imp] }

// LeadWeeks returns the topping lead time for imp.
func (s *Scheduler) LeadWeeks(imp model.Importance) int { return s.leadWeeks[imp] }

// Result is the scheduler output. Schedules follow the input order.
type Result struct {
	Timeline  model.Timeline
	Schedules []model.TournamentSchedule
	Warnings  []model.Warning
}

type entry struct {
	order int
	t     model.Tournament
	ref   string
	week  int
}

// Schedule places windows for tournaments, which must all fall inside the
// timeline. Phase codes on the timeline are left as allocated; the windows
// are an overlay.
func (s *Scheduler) Schedule(ctx context.Context, tl model.Timeline, tournaments []model.Tournament) (Result, error) {
	entries := make([]entry, 0, len(tournaments))
	for i, t := range tournaments {
		week, ok := tl.WeekOf(t.Date)
		if !ok {
			return Result{}, fmt.Errorf("%w: %s on %s", ErrOutsideHorizon, t.Name, t.Date.Format(time.DateOnly))
		}
		entries = append(entries, entry{order: i, t: t, ref: t.Ref(), week: week})
	}

	byPriority := slices.Clone(entries)
	slices.SortStableFunc(byPriority, func(a, b entry) int {
		if d := b.t.Importance.Rank() - a.t.Importance.Rank(); d != 0 {
			return d
		}
		if c := model.DateOnly(a.t.Date).Compare(model.DateOnly(b.t.Date)); c != 0 {
			return c
		}
		return a.order - b.order
	})

	var owner [model.HorizonWeeks]string
	schedules := make([]model.TournamentSchedule, len(entries))
	var warnings []model.Warning

	for _, e := range byPriority {
		nominal := max(1, e.week-s.leadWeeks[e.t.Importance])
		topping := nominal
		for topping < e.week && claimed(owner, topping, e.week) {
			topping++
		}
		shifted := topping != nominal
		compressed := claimed(owner, topping, e.week) || (shifted && topping == e.week)

		for w := topping; w <= e.week; w++ {
			if owner[w-1] == "" {
				owner[w-1] = e.ref
			}
		}

		taperStart := model.DateOnly(e.t.Date).AddDate(0, 0, -s.taperDays[e.t.Importance])
		if first := tl.Week(topping).Start; taperStart.Before(first) {
			taperStart = first
		}

		schedules[e.order] = model.TournamentSchedule{
			TournamentRef:       e.ref,
			Name:                e.t.Name,
			Date:                model.DateOnly(e.t.Date),
			Importance:          e.t.Importance,
			TournamentWeek:      e.week,
			ToppingStartWeek:    topping,
			TaperingDays:        model.DaysBetween(taperStart, e.t.Date),
			NominalToppingStart: nominal,
			Shifted:             shifted,
			Compressed:          compressed,
		}

		if compressed {
			w := model.Warning{
				Code:          model.WarningWindowCompressed,
				Message:       fmt.Sprintf("%s topping window compressed to %d week(s) by a higher-priority tournament", e.t.Name, e.week-topping+1),
				TournamentRef: e.ref,
			}
			warnings = append(warnings, w)
			s.logger.Warn(ctx, "peaking window compressed",
				logger.String("tournament", e.t.Name),
				logger.String("ref", e.ref),
				logger.Int("nominalStart", nominal),
				logger.Int("toppingStart", topping),
				logger.Int("week", e.week),
			)
		}
	}

	for i := range tl {
		if owner[i] != "" {
			tl[i].Window = model.WindowTopping
			tl[i].TournamentRef = owner[i]
		}
	}
	for _, sc := range schedules {
		for d := sc.TaperStart(); d.Before(sc.Date); d = d.AddDate(0, 0, 1) {
			w, ok := tl.WeekOf(d)
			if ok && tl[w-1].TournamentRef == sc.TournamentRef {
				tl[w-1].Window = model.WindowTapering
			}
		}
	}

	return Result{Timeline: tl, Schedules: schedules, Warnings: warnings}, nil
}

func claimed(owner [model.HorizonWeeks]string, from, to int) bool {
	for w := from; w <= to; w++ {
		if owner[w-1] != "" {
			return true
		}
	}
	return false
}
