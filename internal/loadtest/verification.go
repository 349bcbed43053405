package loadtest

import (
	"fmt"

	"github.com/okian/fairway/internal/domain/model"
)

// verifyPlan checks the structural shape of a returned plan and reports
// every rule it breaks.
func verifyPlan(gp model.GeneratedPlan) []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if !gp.Plan.Active {
		add("plan %s is not active", gp.Plan.ID)
	}
	if len(gp.Periodizations) != model.HorizonWeeks {
		add("%d periodization weeks, want %d", len(gp.Periodizations), model.HorizonWeeks)
	}
	if len(gp.Days) != model.HorizonDays {
		add("%d days, want %d", len(gp.Days), model.HorizonDays)
	}
	if weeks := gp.Plan.PhaseWeeks(); weeks != model.HorizonWeeks {
		add("phases cover %d weeks, want %d", weeks, model.HorizonWeeks)
	}

	for i, pz := range gp.Periodizations {
		if pz.WeekIndex != i+1 {
			add("periodization %d has week index %d", i, pz.WeekIndex)
			break
		}
	}

	run := 0
	for i, d := range gp.Days {
		if i > 0 && !d.Date.Equal(gp.Days[i-1].Date.AddDate(0, 0, 1)) {
			add("day %s does not follow %s", d.Date.Format("2006-01-02"), gp.Days[i-1].Date.Format("2006-01-02"))
			break
		}
		if d.Active() {
			run++
		} else {
			run = 0
		}
		if run > maxRunOfActiveDays {
			add("more than %d active days in a row ending %s", maxRunOfActiveDays, d.Date.Format("2006-01-02"))
			run = 0
		}
	}

	competition := make(map[string]bool)
	for _, d := range gp.Days {
		if d.SessionType == model.SessionCompetition {
			competition[d.TournamentRef] = true
		}
	}
	for _, s := range gp.Schedules {
		if !competition[s.TournamentRef] {
			add("tournament %s has no competition day", s.Name)
		}
		if s.ToppingStartWeek > s.TournamentWeek {
			add("tournament %s topping starts after its week", s.Name)
		}
	}
	return problems
}
