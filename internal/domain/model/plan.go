package model

import "time"

// SessionType labels what kind of training a day holds.
type SessionType string

// Session types.
const (
	SessionRest                 SessionType = "rest"
	SessionCompetition          SessionType = "competition"
	SessionPhysicalConditioning SessionType = "physical_conditioning"
	SessionMobility             SessionType = "mobility"
	SessionFullSwing            SessionType = "full_swing"
	SessionShortGame            SessionType = "short_game"
	SessionPutting              SessionType = "putting"
	SessionCoursePlay           SessionType = "course_play"
	SessionHomePractice         SessionType = "home_practice"
	SessionCourseManagement     SessionType = "course_management"
	SessionMentalPreparation    SessionType = "mental_preparation"
	SessionTournamentSimulation SessionType = "tournament_simulation"
	SessionRecovery             SessionType = "recovery"
)

// Warning codes attached to a plan.
const (
	WarningWindowCompressed    = "window_compressed"
	WarningRoundsBelowBaseline = "rounds_below_baseline"
	WarningRestRuleUnresolved  = "rest_rule_unresolved"
)

// Warning is advisory metadata on a successfully generated plan, flagging
// something a coach should review.
type Warning struct {
	Code          string `json:"code" bson:"code"`
	Message       string `json:"message" bson:"message"`
	TournamentRef string `json:"tournament_ref,omitempty" bson:"tournament_ref,omitempty"`
}

// PhaseAllocation is one block of the phase skeleton.
type PhaseAllocation struct {
	Phase     PhaseCode `json:"phase" bson:"phase"`
	StartWeek int       `json:"start_week" bson:"start_week"`
	Weeks     int       `json:"weeks" bson:"weeks"`
}

// AnnualTrainingPlan is the root aggregate of a generated plan. A plan is
// never edited; regeneration produces a new one that supersedes it.
type AnnualTrainingPlan struct {
	ID               string            `json:"id" bson:"_id"`
	PlayerID         string            `json:"player_id" bson:"player_id"`
	IntakeID         string            `json:"intake_id" bson:"intake_id"`
	StartDate        time.Time         `json:"start_date" bson:"start_date"`
	EndDate          time.Time         `json:"end_date" bson:"end_date"`
	CategoryCode     string            `json:"category_code" bson:"category_code"`
	CategoryRank     int               `json:"category_rank" bson:"category_rank"`
	CategoryVersion  string            `json:"category_version" bson:"category_version"`
	WeeklyHours      float64           `json:"weekly_hours" bson:"weekly_hours"`
	BaseWeeks        int               `json:"base_weeks" bson:"base_weeks"`
	SpecializedWeeks int               `json:"specialization_weeks" bson:"specialization_weeks"`
	TournamentWeeks  int               `json:"tournament_weeks" bson:"tournament_weeks"`
	Phases           []PhaseAllocation `json:"phases" bson:"phases"`
	Warnings         []Warning         `json:"warnings,omitempty" bson:"warnings,omitempty"`
	GeneratedAt      time.Time         `json:"generated_at" bson:"generated_at"`
	SupersedesID     string            `json:"supersedes_id,omitempty" bson:"supersedes_id,omitempty"`
	Active           bool              `json:"active" bson:"active"`
}

// PhaseWeeks returns the total of the three phase-length integers.
func (p AnnualTrainingPlan) PhaseWeeks() int {
	return p.BaseWeeks + p.SpecializedWeeks + p.TournamentWeeks
}

// Periodization is the per-week row of a plan.
type Periodization struct {
	PlanID        string     `json:"plan_id" bson:"plan_id"`
	WeekIndex     int        `json:"week_index" bson:"week_index"`
	WeekStart     time.Time  `json:"week_start" bson:"week_start"`
	Phase         PhaseCode  `json:"phase" bson:"phase"`
	Window        WindowKind `json:"window,omitempty" bson:"window,omitempty"`
	TournamentRef string     `json:"tournament_ref,omitempty" bson:"tournament_ref,omitempty"`
}

// DailyTrainingAssignment is the per-day row of a plan.
type DailyTrainingAssignment struct {
	PlanID           string      `json:"plan_id" bson:"plan_id"`
	Date             time.Time   `json:"date" bson:"date"`
	WeekIndex        int         `json:"week_index" bson:"week_index"`
	SessionType      SessionType `json:"session_type" bson:"session_type"`
	EstimatedMinutes int         `json:"estimated_minutes" bson:"estimated_minutes"`
	IsRestDay        bool        `json:"is_rest_day" bson:"is_rest_day"`
	ForcedRest       bool        `json:"forced_rest,omitempty" bson:"forced_rest,omitempty"`
	TournamentRef    string      `json:"tournament_ref,omitempty" bson:"tournament_ref,omitempty"`
}

// Active reports whether the day is not a rest day.
func (a DailyTrainingAssignment) Active() bool { return !a.IsRestDay }

// TournamentSchedule is the per-tournament peaking row of a plan.
type TournamentSchedule struct {
	PlanID              string     `json:"plan_id" bson:"plan_id"`
	TournamentRef       string     `json:"tournament_ref" bson:"tournament_ref"`
	Name                string     `json:"name" bson:"name"`
	Date                time.Time  `json:"date" bson:"date"`
	Importance          Importance `json:"importance" bson:"importance"`
	TournamentWeek      int        `json:"tournament_week" bson:"tournament_week"`
	ToppingStartWeek    int        `json:"topping_start_week" bson:"topping_start_week"`
	TaperingDays        int        `json:"tapering_days" bson:"tapering_days"`
	NominalToppingStart int        `json:"nominal_topping_start_week" bson:"nominal_topping_start_week"`
	Shifted             bool       `json:"shifted,omitempty" bson:"shifted,omitempty"`
	Compressed          bool       `json:"compressed,omitempty" bson:"compressed,omitempty"`
}

// TaperStart returns the first taper day.
func (s TournamentSchedule) TaperStart() time.Time {
	return DateOnly(s.Date).AddDate(0, 0, -s.TaperingDays)
}

// GeneratedPlan bundles the aggregate with its child rows, ready to be
// persisted in one transaction.
type GeneratedPlan struct {
	Plan           AnnualTrainingPlan        `json:"plan"`
	Periodizations []Periodization           `json:"periodizations"`
	Days           []DailyTrainingAssignment `json:"days"`
	Schedules      []TournamentSchedule      `json:"tournament_schedules"`
	Unscheduled    []Tournament              `json:"unscheduled_tournaments,omitempty"`
}

// WeekMinutes sums the training minutes of the 1-based week, excluding
// competition days.
func (g GeneratedPlan) WeekMinutes(week int) int {
	total := 0
	for _, d := range g.Days {
		if d.WeekIndex == week && d.SessionType != SessionCompetition {
			total += d.EstimatedMinutes
		}
	}
	return total
}

// WithPlanID stamps id onto the plan and every child row.
func (g GeneratedPlan) WithPlanID(id string) GeneratedPlan {
	g.Plan.ID = id
	periods := make([]Periodization, len(g.Periodizations))
	for i, p := range g.Periodizations {
		p.PlanID = id
		periods[i] = p
	}
	days := make([]DailyTrainingAssignment, len(g.Days))
	for i, d := range g.Days {
		d.PlanID = id
		days[i] = d
	}
	schedules := make([]TournamentSchedule, len(g.Schedules))
	for i, s := range g.Schedules {
		s.PlanID = id
		schedules[i] = s
	}
	g.Periodizations, g.Days, g.Schedules = periods, days, schedules
	return g
}
