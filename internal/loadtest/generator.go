package loadtest

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fairway/internal/domain/model"
)

// Ranges for generated intakes.
const (
	minHandicap      = -2.0
	handicapSpan     = 38.0
	minWeeklyHours   = 3.0
	weeklyHoursSpan  = 17.0
	maxTournaments   = 5
	tournamentWindow = 330 // days ahead of today
	maxRounds        = 120
)

var primaryGoals = []string{
	"lower my handicap",
	"break 80",
	"qualify for the club team",
	"play more consistently",
}

var practiceAreas = []string{"putting", "short_game", "full_swing", "course_management", "mental_preparation"}

var importances = []model.Importance{model.ImportanceMinor, model.ImportanceImportant, model.ImportanceMajor}

// generator builds varied completed intakes from a seeded source so a run
// can be repeated.
type generator struct {
	rnd   *rand.Rand
	today time.Time
}

func newGenerator(seed uint64, today time.Time) *generator {
	return &generator{
		rnd:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		today: model.DateOnly(today),
	}
}

// intakes returns n completed intakes for distinct players.
func (g *generator) intakes(n int) []model.PlayerIntake {
	out := make([]model.PlayerIntake, n)
	for i := range out {
		out[i] = g.intake(i)
	}
	return out
}

func (g *generator) intake(i int) model.PlayerIntake {
	done := time.Now().UTC()
	hcp := minHandicap + g.rnd.Float64()*handicapSpan
	avg := 72 + hcp*0.9
	return model.PlayerIntake{
		ID:          uuid.NewString(),
		PlayerID:    fmt.Sprintf("load-%04d-%s", i, uuid.NewString()[:8]),
		CompletedAt: &done,
		Background: &model.Background{
			YearsPlaying:  1 + g.rnd.IntN(30),
			Handicap:      &hcp,
			AverageScore:  &avg,
			RoundsPerYear: g.rnd.IntN(maxRounds),
		},
		Availability: &model.Availability{
			WeeklyHours:    minWeeklyHours + float64(g.rnd.IntN(int(weeklyHoursSpan))),
			PreferredDays:  g.weekdays(),
			HomeFacility:   g.rnd.IntN(2) == 0,
			FacilityAccess: g.rnd.IntN(4) != 0,
		},
		Goals: &model.Goals{
			PrimaryGoal:     primaryGoals[g.rnd.IntN(len(primaryGoals))],
			TimeframeMonths: 12,
			Tournaments:     g.tournaments(),
			FocusAreas:      g.areas(1),
		},
		Weaknesses: &model.Weaknesses{Areas: g.areas(2)},
		Equipment:  &model.Equipment{HasPuttingMat: g.rnd.IntN(2) == 0},
	}
}

func (g *generator) weekdays() []time.Weekday {
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if g.rnd.IntN(2) == 0 {
			out = append(out, d)
		}
	}
	return out
}

func (g *generator) areas(limit int) []string {
	n := g.rnd.IntN(limit + 1)
	out := make([]string, 0, n)
	for _, j := range g.rnd.Perm(len(practiceAreas))[:n] {
		out = append(out, practiceAreas[j])
	}
	return out
}

// tournaments spreads events over distinct dates in the horizon.
func (g *generator) tournaments() []model.Tournament {
	n := g.rnd.IntN(maxTournaments + 1)
	seen := make(map[int]bool, n)
	out := make([]model.Tournament, 0, n)
	for len(out) < n {
		offset := 14 + g.rnd.IntN(tournamentWindow)
		if seen[offset] {
			continue
		}
		seen[offset] = true
		out = append(out, model.Tournament{
			Name:       fmt.Sprintf("Event %d", len(out)+1),
			Date:       g.today.AddDate(0, 0, offset),
			Importance: importances[g.rnd.IntN(len(importances))],
		})
	}
	return out
}
