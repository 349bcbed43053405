// Package plan assembles the pipeline stages into an immutable annual
// training plan and exposes the engine entry point.
package plan

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/okian/fairway/internal/domain/category"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
)

// Parts are the stage outputs the assembler ties together.
type Parts struct {
	PlayerID        string
	IntakeID        string
	Start           time.Time
	Category        category.Category
	CategoryVersion string
	WeeklyHours     float64
	Phases          []model.PhaseAllocation
	Timeline        model.Timeline
	Schedules       []model.TournamentSchedule
	Days            []model.DailyTrainingAssignment
	Warnings        []model.Warning
	Scheduled       []model.Tournament
	Unscheduled     []model.Tournament
	GeneratedAt     time.Time

	// MaxConsecutive is the rest-rule limit the days were generated under.
	// Zero skips the run check.
	MaxConsecutive int
}

// Assembler validates the structural invariants of a plan and builds it.
type Assembler struct {
	logger logger.Logger
}

// NewAssembler creates an assembler that logs violations to l.
func NewAssembler(l logger.Logger) *Assembler {
	if l == nil {
		l = logger.Nop()
	}
	return &Assembler{logger: l}
}

// Assemble returns the plan or an InvariantViolation. It never returns a
// partially valid plan.
func (a *Assembler) Assemble(ctx context.Context, p Parts) (model.GeneratedPlan, error) {
	if err := validate(p); err != nil {
		a.logger.Error(ctx, "plan invariant violated",
			logger.Error(err),
			logger.String("playerID", p.PlayerID),
			logger.String("intakeID", p.IntakeID),
			logger.Date("start", p.Start),
			logger.String("category", p.Category.Code),
			logger.Any("phases", p.Phases),
			logger.Any("timeline", p.Timeline),
			logger.Any("schedules", p.Schedules),
			logger.Any("days", p.Days),
		)
		return model.GeneratedPlan{}, err
	}

	start := model.DateOnly(p.Start)
	atp := model.AnnualTrainingPlan{
		PlayerID:         p.PlayerID,
		IntakeID:         p.IntakeID,
		StartDate:        start,
		EndDate:          model.HorizonEnd(start),
		CategoryCode:     p.Category.Code,
		CategoryRank:     p.Category.Rank,
		CategoryVersion:  p.CategoryVersion,
		WeeklyHours:      p.WeeklyHours,
		BaseWeeks:        weeksOf(p.Phases, model.PhaseIndividual) + weeksOf(p.Phases, model.PhaseGeneral),
		SpecializedWeeks: weeksOf(p.Phases, model.PhaseSpecific),
		TournamentWeeks:  weeksOf(p.Phases, model.PhaseTournament),
		Phases:           append([]model.PhaseAllocation(nil), p.Phases...),
		Warnings:         append([]model.Warning(nil), p.Warnings...),
		GeneratedAt:      p.GeneratedAt,
		Active:           true,
	}

	periods := make([]model.Periodization, 0, model.HorizonWeeks)
	for _, w := range p.Timeline {
		periods = append(periods, model.Periodization{
			WeekIndex:     w.Index,
			WeekStart:     w.Start,
			Phase:         w.Phase,
			Window:        w.Window,
			TournamentRef: w.TournamentRef,
		})
	}

	return model.GeneratedPlan{
		Plan:           atp,
		Periodizations: periods,
		Days:           append([]model.DailyTrainingAssignment(nil), p.Days...),
		Schedules:      append([]model.TournamentSchedule(nil), p.Schedules...),
		Unscheduled:    append([]model.Tournament(nil), p.Unscheduled...),
	}, nil
}

func weeksOf(phases []model.PhaseAllocation, code model.PhaseCode) int {
	n := 0
	for _, p := range phases {
		if p.Phase == code {
			n += p.Weeks
		}
	}
	return n
}

func violation(rule, format string, args ...any) error {
	return &model.InvariantViolation{Rule: rule, Detail: fmt.Sprintf(format, args...)}
}

func validate(p Parts) error {
	checks := []func(Parts) error{
		checkPhases,
		checkPeriodization,
		checkDays,
		checkRestRule,
		checkSchedules,
	}
	for _, check := range checks {
		if err := check(p); err != nil {
			return err
		}
	}
	return nil
}

func checkPhases(p Parts) error {
	total := 0
	for i, ph := range p.Phases {
		if ph.Weeks < 0 {
			return violation("phase_length", "%s has %d weeks", ph.Phase, ph.Weeks)
		}
		if i > 0 && ph.Phase.Order() <= p.Phases[i-1].Phase.Order() {
			return violation("phase_order", "%s follows %s", ph.Phase, p.Phases[i-1].Phase)
		}
		if ph.StartWeek != total+1 {
			return violation("phase_order", "%s starts at week %d, want %d", ph.Phase, ph.StartWeek, total+1)
		}
		total += ph.Weeks
	}
	if total != model.HorizonWeeks {
		return violation("phase_sum", "phases sum to %d weeks, want %d", total, model.HorizonWeeks)
	}
	return nil
}

func checkPeriodization(p Parts) error {
	start := model.DateOnly(p.Start)
	prev := -1
	for i, w := range p.Timeline {
		if w.Index != i+1 {
			return violation("week_index", "slot %d has index %d", i, w.Index)
		}
		if !w.Start.Equal(start.AddDate(0, 0, i*model.DaysPerWeek)) {
			return violation("week_start", "week %d starts %s", w.Index, w.Start.Format(time.DateOnly))
		}
		order := w.Phase.Order()
		if order < 0 || order < prev {
			return violation("phase_sequence", "week %d has phase %q after order %d", w.Index, w.Phase, prev)
		}
		prev = order
	}
	for _, ph := range p.Phases {
		for w := ph.StartWeek; w < ph.StartWeek+ph.Weeks; w++ {
			if got := p.Timeline.Week(w).Phase; got != ph.Phase {
				return violation("phase_sequence", "week %d is %s, allocated %s", w, got, ph.Phase)
			}
		}
	}
	return nil
}

func checkDays(p Parts) error {
	if len(p.Days) != model.HorizonDays {
		return violation("daily_coverage", "%d assignments, want %d", len(p.Days), model.HorizonDays)
	}
	start := model.DateOnly(p.Start)
	for i, d := range p.Days {
		want := start.AddDate(0, 0, i)
		if !d.Date.Equal(want) {
			return violation("daily_coverage", "assignment %d is dated %s, want %s",
				i, d.Date.Format(time.DateOnly), want.Format(time.DateOnly))
		}
		if d.WeekIndex != i/model.DaysPerWeek+1 {
			return violation("daily_week", "%s is in week %d", d.Date.Format(time.DateOnly), d.WeekIndex)
		}
		if d.IsRestDay && d.EstimatedMinutes != 0 {
			return violation("rest_minutes", "rest day %s has %d minutes", d.Date.Format(time.DateOnly), d.EstimatedMinutes)
		}
		if d.EstimatedMinutes < 0 {
			return violation("daily_minutes", "%s has %d minutes", d.Date.Format(time.DateOnly), d.EstimatedMinutes)
		}
	}
	return nil
}

// checkRestRule rejects runs of active days above the limit unless the run
// is made only of competition days and was reported as unresolved.
func checkRestRule(p Parts) error {
	if p.MaxConsecutive <= 0 {
		return nil
	}
	reported := slices.ContainsFunc(p.Warnings, func(w model.Warning) bool {
		return w.Code == model.WarningRestRuleUnresolved
	})
	run := 0
	for _, d := range p.Days {
		if d.IsRestDay {
			run = 0
			continue
		}
		run++
		if run <= p.MaxConsecutive {
			continue
		}
		if d.SessionType != model.SessionCompetition || !reported {
			return violation("rest_rule", "%d consecutive active days ending %s", run, d.Date.Format(time.DateOnly))
		}
	}
	return nil
}

func checkSchedules(p Parts) error {
	want := make(map[string]int, len(p.Scheduled))
	for _, t := range p.Scheduled {
		want[t.Ref()]++
	}
	got := make(map[string]int, len(p.Schedules))
	for _, s := range p.Schedules {
		got[s.TournamentRef]++
		if want[s.TournamentRef] == 0 {
			return violation("tournament_schedule", "schedule for unknown tournament %s", s.TournamentRef)
		}
		if s.ToppingStartWeek < 1 || s.ToppingStartWeek > s.TournamentWeek || s.TournamentWeek > model.HorizonWeeks {
			return violation("topping_start", "%s topping week %d, event week %d", s.Name, s.ToppingStartWeek, s.TournamentWeek)
		}
		if s.TaperingDays < 0 || s.TaperStart().After(s.Date) {
			return violation("taper_window", "%s taper ends after the event", s.Name)
		}
		if s.TaperStart().Before(p.Timeline.Week(s.ToppingStartWeek).Start) {
			return violation("taper_window", "%s taper begins before its topping week", s.Name)
		}
	}
	for ref, n := range want {
		if got[ref] != n {
			return violation("tournament_schedule", "tournament %s has %d schedules, want %d", ref, got[ref], n)
		}
	}
	return nil
}
