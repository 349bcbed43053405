// Package phase partitions the 52-week horizon into the Individual, General,
// Specific and Tournament phases.
package phase

import (
	"context"
	"math"
	"time"

	"github.com/okian/fairway/internal/domain/category"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
)

// Default allocation parameters.
const (
	defaultIndividualShare = 0.4
	defaultFloorWeeks      = 2
	// specificReservation is the Specific weeks held back per tournament.
	specificReservation = 1
)

// Option applies a configuration option to the Allocator.
type Option func(*Allocator)

// WithIndividualShare sets the share of base weeks given to Individual.
func WithIndividualShare(share float64) Option {
	return func(a *Allocator) {
		if share > 0 && share < 1 {
			a.individualShare = share
		}
	}
}

// WithFloorWeeks sets the minimum length of Individual and General.
func WithFloorWeeks(weeks int) Option {
	return func(a *Allocator) {
		if weeks > 0 {
			a.floorWeeks = weeks
		}
	}
}

// WithTaperDays sets the taper table used to reserve Tournament weeks.
func WithTaperDays(days map[model.Importance]int) Option {
	return func(a *Allocator) {
		for imp, d := range days {
			if d > 0 {
				a.taperDays[imp] = d
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Allocator) {
		if l != nil {
			a.logger = l
		}
	}
}

// Allocator computes the phase skeleton.
type Allocator struct {
	individualShare float64
	floorWeeks      int
	taperDays       map[model.Importance]int
	logger          logger.Logger
}

// NewAllocator creates an allocator with the given options.
func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{
		individualShare: defaultIndividualShare,
		floorWeeks:      defaultFloorWeeks,
		taperDays:       model.DefaultTaperDays(),
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Result is the allocator output.
type Result struct {
	Phases        []model.PhaseAllocation
	Timeline      model.Timeline
	ReservedWeeks int
}

// Weeks returns the length of phase p.
func (r Result) Weeks(p model.PhaseCode) int {
	for _, a := range r.Phases {
		if a.Phase == p {
			return a.Weeks
		}
	}
	return 0
}

// Reservation returns the Specific and Tournament weeks held for tournaments.
func (a *Allocator) Reservation(tournaments []model.Tournament) (specific, tournament int) {
	for _, t := range tournaments {
		specific += specificReservation
		tournament += ceilWeeks(a.taperDays[t.Importance])
	}
	return specific, tournament
}

// Allocate splits the horizon for cat given the in-horizon tournaments.
// It fails with a SchedulingError only when the tournament reservations
// alone exceed the horizon.
func (a *Allocator) Allocate(ctx context.Context, cat category.Category, tournaments []model.Tournament, start time.Time) (Result, error) {
	resSpec, resTour := a.Reservation(tournaments)
	reserved := resSpec + resTour
	if reserved > model.HorizonWeeks {
		return Result{}, &model.SchedulingError{
			ReservedWeeks: reserved,
			HorizonWeeks:  model.HorizonWeeks,
			Tournaments:   len(tournaments),
		}
	}

	ind := int(math.Round(float64(cat.BaseWeeks) * a.individualShare))
	gen := cat.BaseWeeks - ind
	specific := max(cat.SpecificWeeks, resSpec)
	tour := max(model.HorizonWeeks-cat.BaseWeeks-cat.SpecificWeeks, resTour)

	weeks := [4]int{ind, gen, specific, tour}
	mins := [4]int{min(ind, a.floorWeeks), min(gen, a.floorWeeks), resSpec, resTour}

	if overflow := sum(weeks) - model.HorizonWeeks; overflow > 0 {
		a.logger.Debug(ctx, "shrinking base phases",
			logger.String("category", cat.Code),
			logger.Int("overflow", overflow),
			logger.Int("reserved", reserved),
		)
		weeks[0], weeks[1] = shrink(ind, gen, overflow)
		weeks[0] = max(weeks[0], mins[0])
		weeks[1] = max(weeks[1], mins[1])
		absorb(&weeks, mins)
	}
	if short := model.HorizonWeeks - sum(weeks); short > 0 {
		weeks[1] += short
	}

	phases := make([]model.PhaseAllocation, 0, len(model.PhaseOrder))
	timeline := model.NewTimeline(start)
	next := 1
	for i, code := range model.PhaseOrder {
		phases = append(phases, model.PhaseAllocation{Phase: code, StartWeek: next, Weeks: weeks[i]})
		for w := next; w < next+weeks[i]; w++ {
			timeline[w-1].Phase = code
		}
		next += weeks[i]
	}

	a.logger.Debug(ctx, "phases allocated",
		logger.String("category", cat.Code),
		logger.Int("individual", weeks[0]),
		logger.Int("general", weeks[1]),
		logger.Int("specific", weeks[2]),
		logger.Int("tournament", weeks[3]),
	)
	return Result{Phases: phases, Timeline: timeline, ReservedWeeks: reserved}, nil
}

// shrink removes overflow weeks from Individual and General in proportion
// to their lengths.
func shrink(ind, gen, overflow int) (int, int) {
	avail := ind + gen
	if avail == 0 {
		return 0, 0
	}
	target := max(avail-overflow, 0)
	newInd := int(math.Round(float64(ind) * float64(target) / float64(avail)))
	return newInd, target - newInd
}

// absorb trims the remaining excess one week at a time from the largest
// phase with slack above its minimum; ties go to the earlier phase. When no
// phase has slack the Individual and General floors give way.
func absorb(weeks *[4]int, mins [4]int) {
	for sum(*weeks) > model.HorizonWeeks {
		if i := largestWithSlack(*weeks, mins); i >= 0 {
			weeks[i]--
			continue
		}
		mins[0], mins[1] = 0, 0
		if largestWithSlack(*weeks, mins) < 0 {
			return
		}
	}
}

func largestWithSlack(weeks, mins [4]int) int {
	best := -1
	for i := range weeks {
		if weeks[i] <= mins[i] {
			continue
		}
		if best < 0 || weeks[i] > weeks[best] {
			best = i
		}
	}
	return best
}

func sum(weeks [4]int) int {
	return weeks[0] + weeks[1] + weeks[2] + weeks[3]
}

func ceilWeeks(days int) int {
	return (days + model.DaysPerWeek - 1) / model.DaysPerWeek
}
