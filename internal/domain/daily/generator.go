// Package daily expands the annotated week timeline into one training
// assignment per calendar day.
package daily

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
)

// Default generation parameters.
const (
	defaultMaxSessionMinutes  = 180
	defaultGranularityMinutes = 5
	defaultCompetitionMinutes = 240
	defaultTaperFloor         = 0.4
	defaultMaxConsecutiveDays = 6
)

// Input is everything the generator reads.
type Input struct {
	Timeline     model.Timeline
	Schedules    []model.TournamentSchedule
	WeeklyHours  float64
	Availability model.Availability
	Advice       Advice
}

// Result is the generator output.
type Result struct {
	Days        []model.DailyTrainingAssignment
	Warnings    []model.Warning
	ForcedRests int
}

// Generator builds daily assignments. It is stateless after construction.
type Generator struct {
	maxSessionMinutes  int
	granularity        int
	competitionMinutes int
	taperFloor         float64
	maxConsecutive     int
	logger             logger.Logger
}

// NewGenerator creates a generator with the given options.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		maxSessionMinutes:  defaultMaxSessionMinutes,
		granularity:        defaultGranularityMinutes,
		competitionMinutes: defaultCompetitionMinutes,
		taperFloor:         defaultTaperFloor,
		maxConsecutive:     defaultMaxConsecutiveDays,
		logger:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MaxConsecutiveDays returns the longest permitted run of active days.
func (g *Generator) MaxConsecutiveDays() int { return g.maxConsecutive }

// day is the working state for one calendar day.
type day struct {
	date        time.Time
	week        int
	factor      float64
	competition string
	taperRef    string
	active      bool
	minutes     int
	session     model.SessionType
	forced      bool
}

// Generate produces exactly one assignment per day of the timeline.
func (g *Generator) Generate(ctx context.Context, in Input) Result {
	days := make([]day, 0, model.HorizonDays)
	for _, w := range in.Timeline {
		days = append(days, g.week(w, in)...)
	}

	var res Result
	res.ForcedRests, res.Warnings = g.enforceRest(ctx, days, in.Availability)

	res.Days = make([]model.DailyTrainingAssignment, len(days))
	for i, d := range days {
		a := model.DailyTrainingAssignment{
			Date:          d.date,
			WeekIndex:     d.week,
			SessionType:   d.session,
			IsRestDay:     !d.active,
			ForcedRest:    d.forced,
			TournamentRef: in.Timeline[d.week-1].TournamentRef,
		}
		switch {
		case d.competition != "":
			a.TournamentRef = d.competition
			a.EstimatedMinutes = g.competitionMinutes
		case d.taperRef != "":
			a.TournamentRef = d.taperRef
		}
		if d.active && d.competition == "" {
			a.EstimatedMinutes = d.minutes
		}
		if !d.active {
			a.SessionType = model.SessionRest
			a.EstimatedMinutes = 0
		}
		res.Days[i] = a
	}
	return res
}

// BaseMinutes returns the nominal training minutes of w before tapering.
func (g *Generator) BaseMinutes(w model.WeekPlan, in Input) float64 {
	return in.WeeklyHours * 60 * in.Availability.SeasonalFactor(w.Start.Month())
}

// week lays out the seven days of w.
func (g *Generator) week(w model.WeekPlan, in Input) []day {
	days := make([]day, model.DaysPerWeek)
	var factorSum float64
	for i := range days {
		d := day{date: w.Start.AddDate(0, 0, i), week: w.Index, factor: 1}
		for _, sc := range in.Schedules {
			if d.date.Equal(sc.Date) {
				d.competition = sc.TournamentRef
			}
			if f, ok := g.taperFactor(sc, d.date); ok && f < d.factor {
				d.factor = f
				d.taperRef = sc.TournamentRef
			}
		}
		factorSum += d.factor
		days[i] = d
	}

	base := g.BaseMinutes(w, in)
	need := int(math.Ceil(base / float64(g.maxSessionMinutes)))

	var training []int
	for i, d := range days {
		if d.competition == "" && in.Availability.Prefers(d.date.Weekday()) {
			training = append(training, i)
		}
	}
	for wd := time.Sunday; wd <= time.Saturday && len(training) < need; wd++ {
		if in.Availability.Prefers(wd) {
			continue
		}
		for i, d := range days {
			if d.date.Weekday() == wd && d.competition == "" {
				training = append(training, i)
			}
		}
	}
	if base <= 0 {
		training = nil
	}

	// Taper factors scale what the week can hold under the session cap and
	// the rest rule, never the nominal figure.
	target := min(base, g.capacity(len(training))) * factorSum / model.DaysPerWeek
	var weightSum float64
	for _, i := range training {
		weightSum += days[i].factor
	}
	for _, i := range training {
		m := g.roundDown(min(target*days[i].factor/weightSum, float64(g.maxSessionMinutes)))
		if m > 0 {
			days[i].active = true
			days[i].minutes = m
		}
	}

	g.assignSessions(w, days, in)
	return days
}

// capacity is the most a week with n training days can carry once the
// rest rule has been applied.
func (g *Generator) capacity(n int) float64 {
	return float64(min(n, g.maxConsecutive) * g.maxSessionMinutes)
}

// taperFactor returns the load factor of date within sc's taper window.
// The factor falls linearly from just under 1 to the taper floor on the
// day before the event.
func (g *Generator) taperFactor(sc model.TournamentSchedule, date time.Time) (float64, bool) {
	if sc.TaperingDays <= 0 {
		return 1, false
	}
	k := model.DaysBetween(sc.TaperStart(), date)
	if k < 0 || k >= sc.TaperingDays {
		return 1, false
	}
	return 1 - (1-g.taperFloor)*float64(k+1)/float64(sc.TaperingDays), true
}

func (g *Generator) assignSessions(w model.WeekPlan, days []day, in Input) {
	rotation, ok := phaseRotation[w.Phase]
	if !ok {
		rotation = phaseRotation[model.PhaseGeneral]
	}
	base := in.Advice.apply(rotation)
	if w.Window != model.WindowNone {
		base = in.Advice.apply(toppingRotation)
	}
	taper := in.Advice.apply(taperRotation)

	slot := w.Index - 1
	for i := range days {
		d := &days[i]
		switch {
		case d.competition != "":
			d.active = true
			d.session = model.SessionCompetition
		case !d.active:
			d.session = model.SessionRest
		case d.taperRef != "":
			d.session = taper[slot%len(taper)]
			slot++
		default:
			d.session = base[slot%len(base)]
			slot++
		}
	}
}

func (g *Generator) roundDown(m float64) int {
	return int(m) / g.granularity * g.granularity
}

// enforceRest breaks every run of active days longer than the limit by
// resting training days inside the run. A run made only of competition
// days cannot be broken and is reported once.
func (g *Generator) enforceRest(ctx context.Context, days []day, avail model.Availability) (int, []model.Warning) {
	forced := 0
	var warnings []model.Warning
	run := 0
	stuck := false
	for i := range days {
		if !days[i].active {
			run, stuck = 0, false
			continue
		}
		run++
		for run > g.maxConsecutive {
			j := g.restCandidate(days, i-run+1, i, avail)
			if j < 0 {
				if !stuck {
					warnings = append(warnings, model.Warning{
						Code:    model.WarningRestRuleUnresolved,
						Message: fmt.Sprintf("no restable day in the run ending %s", days[i].date.Format(time.DateOnly)),
					})
					g.logger.Warn(ctx, "rest rule unresolved", logger.Date("date", days[i].date))
				}
				stuck = true
				break
			}
			g.forceRest(days, j)
			forced++
			g.logger.Debug(ctx, "forced rest day",
				logger.Date("date", days[j].date),
				logger.Int("week", days[j].week),
			)
			run = i - j
		}
	}
	return forced, warnings
}

// restCandidate picks the day in [from, to] to rest. Days in the same week
// as to come first, then non-preferred weekdays, then later dates.
func (g *Generator) restCandidate(days []day, from, to int, avail model.Availability) int {
	best := -1
	score := func(i int) int {
		s := 0
		if days[i].week == days[to].week {
			s += 2
		}
		if !avail.Prefers(days[i].date.Weekday()) {
			s++
		}
		return s
	}
	for i := to; i >= from; i-- {
		if !days[i].active || days[i].competition != "" {
			continue
		}
		if best < 0 || score(i) > score(best) {
			best = i
		}
	}
	return best
}

// forceRest turns day j into a rest day and hands its minutes to the
// remaining training days of its week, up to the session cap.
func (g *Generator) forceRest(days []day, j int) {
	spare := days[j].minutes
	days[j].active = false
	days[j].forced = true
	days[j].minutes = 0
	days[j].session = model.SessionRest

	first := (days[j].week - 1) * model.DaysPerWeek
	for i := first; i < first+model.DaysPerWeek && i < len(days); i++ {
		if i == j || !days[i].active || days[i].competition != "" {
			continue
		}
		add := g.roundDown(float64(min(spare, g.maxSessionMinutes-days[i].minutes)))
		days[i].minutes += add
		spare -= add
		if spare < g.granularity {
			return
		}
	}
}
