// Package model contains the intake, timeline and plan types passed between
// the engine stages and the adapters.
package model

import (
	"slices"
	"strings"
	"time"
)

const maxWeeklyHours = 7 * 24

// PlayerIntake is the finalized questionnaire a plan is generated from.
// The engine treats it as read-only.
type PlayerIntake struct {
	ID          string     `json:"id" yaml:"id"`
	PlayerID    string     `json:"player_id" yaml:"player_id"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`

	Background   *Background   `json:"background,omitempty" yaml:"background,omitempty"`
	Availability *Availability `json:"availability,omitempty" yaml:"availability,omitempty"`
	Goals        *Goals        `json:"goals,omitempty" yaml:"goals,omitempty"`

	// Advisory sections. They steer session selection only.
	Weaknesses *Weaknesses `json:"weaknesses,omitempty" yaml:"weaknesses,omitempty"`
	Health     *Health     `json:"health,omitempty" yaml:"health,omitempty"`
	Lifestyle  *Lifestyle  `json:"lifestyle,omitempty" yaml:"lifestyle,omitempty"`
	Equipment  *Equipment  `json:"equipment,omitempty" yaml:"equipment,omitempty"`
	Learning   *Learning   `json:"learning,omitempty" yaml:"learning,omitempty"`
}

// Background describes the player's playing history.
type Background struct {
	YearsPlaying  int      `json:"years_playing" yaml:"years_playing"`
	Handicap      *float64 `json:"handicap,omitempty" yaml:"handicap,omitempty"`
	AverageScore  *float64 `json:"average_score,omitempty" yaml:"average_score,omitempty"`
	RoundsPerYear int      `json:"rounds_per_year" yaml:"rounds_per_year"`
}

// Availability describes how much and when the player can train.
type Availability struct {
	WeeklyHours       float64            `json:"weekly_hours" yaml:"weekly_hours"`
	PreferredDays     []time.Weekday     `json:"preferred_days" yaml:"preferred_days"`
	HomeFacility      bool               `json:"home_facility" yaml:"home_facility"`
	FacilityAccess    bool               `json:"facility_access" yaml:"facility_access"`
	SeasonalOverrides []SeasonalOverride `json:"seasonal_overrides,omitempty" yaml:"seasonal_overrides,omitempty"`
}

// SeasonalOverride scales the weekly target for every week starting in Month.
type SeasonalOverride struct {
	Month  time.Month `json:"month" yaml:"month"`
	Factor float64    `json:"factor" yaml:"factor"`
}

// Prefers reports whether d is one of the preferred weekdays.
func (a Availability) Prefers(d time.Weekday) bool {
	return slices.Contains(a.PreferredDays, d)
}

// SeasonalFactor returns the override factor for m, or 1.
func (a Availability) SeasonalFactor(m time.Month) float64 {
	for _, o := range a.SeasonalOverrides {
		if o.Month == m {
			return o.Factor
		}
	}
	return 1
}

// Goals holds what the player is working toward, including the competition calendar.
type Goals struct {
	PrimaryGoal     string       `json:"primary_goal" yaml:"primary_goal"`
	TargetHandicap  *float64     `json:"target_handicap,omitempty" yaml:"target_handicap,omitempty"`
	TargetScore     *float64     `json:"target_score,omitempty" yaml:"target_score,omitempty"`
	TimeframeMonths int          `json:"timeframe_months" yaml:"timeframe_months"`
	Tournaments     []Tournament `json:"tournaments,omitempty" yaml:"tournaments,omitempty"`
	FocusAreas      []string     `json:"focus_areas,omitempty" yaml:"focus_areas,omitempty"`
}

// Weaknesses lists areas the player wants to improve.
type Weaknesses struct {
	Areas []string `json:"areas,omitempty" yaml:"areas,omitempty"`
	Notes string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Health lists physical constraints.
type Health struct {
	Injuries    []string `json:"injuries,omitempty" yaml:"injuries,omitempty"`
	Limitations []string `json:"limitations,omitempty" yaml:"limitations,omitempty"`
}

// Restricted reports whether any injury or limitation was declared.
func (h *Health) Restricted() bool {
	return h != nil && (len(h.Injuries) > 0 || len(h.Limitations) > 0)
}

// Lifestyle captures non-golf load.
type Lifestyle struct {
	Occupation  string  `json:"occupation,omitempty" yaml:"occupation,omitempty"`
	StressLevel int     `json:"stress_level,omitempty" yaml:"stress_level,omitempty"`
	SleepHours  float64 `json:"sleep_hours,omitempty" yaml:"sleep_hours,omitempty"`
}

// Equipment lists practice equipment at hand.
type Equipment struct {
	HasGym           bool `json:"has_gym" yaml:"has_gym"`
	HasPuttingMat    bool `json:"has_putting_mat" yaml:"has_putting_mat"`
	HasLaunchMonitor bool `json:"has_launch_monitor" yaml:"has_launch_monitor"`
}

// Learning captures how the player prefers to be coached.
type Learning struct {
	Style string `json:"style,omitempty" yaml:"style,omitempty"`
}

// Complete reports whether the intake was finalized by the player.
func (in *PlayerIntake) Complete() bool {
	return in != nil && in.CompletedAt != nil
}

// Validate checks that every section the scheduler depends on is present
// and well formed. It never fills in defaults.
func (in *PlayerIntake) Validate() error {
	if in == nil {
		return NewValidationError("intake", "missing")
	}
	verr := &ValidationError{}
	if strings.TrimSpace(in.ID) == "" {
		verr.Add("intake.id", "required")
	}
	if strings.TrimSpace(in.PlayerID) == "" {
		verr.Add("intake.player_id", "required")
	}
	if in.CompletedAt == nil {
		verr.Add("intake.completed_at", "intake is not completed")
	}
	if in.Background == nil {
		verr.Add("intake.background", "section missing")
	}
	if in.Availability == nil {
		verr.Add("intake.availability", "section missing")
	} else {
		in.Availability.validate(verr)
	}
	if in.Goals == nil {
		verr.Add("intake.goals", "section missing")
	} else {
		in.Goals.validate(verr)
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func (a *Availability) validate(verr *ValidationError) {
	if a.WeeklyHours < 0 || a.WeeklyHours > maxWeeklyHours {
		verr.Add("availability.weekly_hours", "must be between 0 and 168")
	}
	for _, d := range a.PreferredDays {
		if d < time.Sunday || d > time.Saturday {
			verr.Add("availability.preferred_days", "weekday out of range")
			break
		}
	}
	for _, o := range a.SeasonalOverrides {
		if o.Month < time.January || o.Month > time.December {
			verr.Add("availability.seasonal_overrides.month", "month out of range")
		}
		if o.Factor < 0 {
			verr.Add("availability.seasonal_overrides.factor", "must not be negative")
		}
	}
}

func (g *Goals) validate(verr *ValidationError) {
	refs := make(map[string]struct{}, len(g.Tournaments))
	for _, t := range g.Tournaments {
		if _, dup := refs[t.Ref()]; dup {
			verr.Add("goals.tournaments", "duplicate tournament "+t.Name)
		}
		refs[t.Ref()] = struct{}{}
		if strings.TrimSpace(t.Name) == "" {
			verr.Add("goals.tournaments.name", "required")
		}
		if t.Date.IsZero() {
			verr.Add("goals.tournaments.date", "required")
		}
		if !t.Importance.Valid() {
			verr.Add("goals.tournaments.importance", "must be one of minor, important, major")
		}
	}
}
