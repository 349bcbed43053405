package model

import "time"

// Horizon dimensions.
const (
	HorizonWeeks = 52
	DaysPerWeek  = 7
	HorizonDays  = HorizonWeeks * DaysPerWeek
)

// PhaseCode names a periodization phase.
type PhaseCode string

// Phases in their fixed order.
const (
	PhaseIndividual PhaseCode = "individual"
	PhaseGeneral    PhaseCode = "general"
	PhaseSpecific   PhaseCode = "specific"
	PhaseTournament PhaseCode = "tournament"
)

// PhaseOrder lists the phases from first to last.
var PhaseOrder = [...]PhaseCode{PhaseIndividual, PhaseGeneral, PhaseSpecific, PhaseTournament}

// Order returns the position of p in PhaseOrder, or -1.
func (p PhaseCode) Order() int {
	for i, c := range PhaseOrder {
		if c == p {
			return i
		}
	}
	return -1
}

// WindowKind marks a week as part of a tournament's peaking window.
type WindowKind string

// Window kinds.
const (
	WindowNone     WindowKind = ""
	WindowTopping  WindowKind = "topping"
	WindowTapering WindowKind = "tapering"
)

// WeekPlan is one slot of the horizon. Stages fill it in order: the phase
// allocator sets Phase, the peaking scheduler sets the window overlay.
type WeekPlan struct {
	Index         int
	Start         time.Time
	Phase         PhaseCode
	Window        WindowKind
	TournamentRef string
}

// End returns the last day of the week.
func (w WeekPlan) End() time.Time {
	return w.Start.AddDate(0, 0, DaysPerWeek-1)
}

// Contains reports whether day falls within the week.
func (w WeekPlan) Contains(day time.Time) bool {
	d := DateOnly(day)
	return !d.Before(w.Start) && !d.After(w.End())
}

// Timeline is the week arena threaded between the pipeline stages. It is a
// value type; stages receive a copy and return a new one.
type Timeline [HorizonWeeks]WeekPlan

// NewTimeline lays out 52 consecutive weeks from start.
func NewTimeline(start time.Time) Timeline {
	var t Timeline
	s := DateOnly(start)
	for i := range t {
		t[i] = WeekPlan{Index: i + 1, Start: s.AddDate(0, 0, i*DaysPerWeek)}
	}
	return t
}

// Start returns the first day of the horizon.
func (t Timeline) Start() time.Time { return t[0].Start }

// End returns the last day of the horizon.
func (t Timeline) End() time.Time { return t[HorizonWeeks-1].End() }

// Week returns the week with the 1-based index.
func (t Timeline) Week(index int) WeekPlan { return t[index-1] }

// WeekOf returns the 1-based week index containing day.
func (t Timeline) WeekOf(day time.Time) (int, bool) {
	return WeekIndex(t.Start(), day)
}

// WeekIndex returns the 1-based week of day in a horizon starting at start.
func WeekIndex(start, day time.Time) (int, bool) {
	n := DaysBetween(start, day)
	if n < 0 || n >= HorizonDays {
		return 0, false
	}
	return n/DaysPerWeek + 1, true
}

// HorizonEnd returns the inclusive last day of a horizon starting at start.
func HorizonEnd(start time.Time) time.Time {
	return DateOnly(start).AddDate(0, 0, HorizonDays-1)
}

// DateOnly drops the clock part of t, keeping its calendar date, and
// normalizes to UTC so day arithmetic is free of DST shifts.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}
