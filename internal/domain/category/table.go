// Package category maps a player's handicap or scoring average to a skill
// category and the base configuration that category carries.
package category

import (
	"fmt"
	"math"

	"github.com/okian/fairway/internal/domain/model"
)

// DefaultVersion identifies the built-in category table.
const DefaultVersion = "2024.1"

// Band is a half-open numeric range [Min, Max).
type Band struct {
	Min float64 `koanf:"min" json:"min"`
	Max float64 `koanf:"max" json:"max"`
}

// Contains reports whether v falls inside the band.
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v < b.Max
}

// Category is one rung of the skill ladder.
type Category struct {
	Code           string  `koanf:"code" json:"code"`
	Rank           int     `koanf:"-" json:"rank"`
	Handicap       Band    `koanf:"handicap" json:"handicap"`
	AverageScore   Band    `koanf:"average_score" json:"average_score"`
	WeeklyHours    float64 `koanf:"weekly_hours" json:"weekly_hours"`
	BaseWeeks      int     `koanf:"base_weeks" json:"base_weeks"`
	SpecificWeeks  int     `koanf:"specific_weeks" json:"specific_weeks"`
	RoundsRequired int     `koanf:"rounds_required" json:"rounds_required"`
}

// Table is a versioned category ladder ordered from lowest skill to elite.
// Lower skill means higher handicap and higher average score, so each rung's
// bands sit directly below the previous rung's.
type Table struct {
	Version    string     `koanf:"version" json:"version"`
	Categories []Category `koanf:"categories" json:"categories"`
}

// DefaultTable returns the built-in 11-rung ladder.
func DefaultTable() Table {
	return Table{
		Version: DefaultVersion,
		Categories: []Category{
			{Code: "B3", Handicap: Band{30.5, 54.1}, AverageScore: Band{105, 160}, WeeklyHours: 4, BaseWeeks: 30, SpecificWeeks: 10, RoundsRequired: 10},
			{Code: "B2", Handicap: Band{24.5, 30.5}, AverageScore: Band{97, 105}, WeeklyHours: 5, BaseWeeks: 28, SpecificWeeks: 10, RoundsRequired: 15},
			{Code: "B1", Handicap: Band{18.5, 24.5}, AverageScore: Band{90, 97}, WeeklyHours: 6, BaseWeeks: 26, SpecificWeeks: 10, RoundsRequired: 20},
			{Code: "I3", Handicap: Band{13.5, 18.5}, AverageScore: Band{84, 90}, WeeklyHours: 8, BaseWeeks: 24, SpecificWeeks: 12, RoundsRequired: 25},
			{Code: "I2", Handicap: Band{9.5, 13.5}, AverageScore: Band{80, 84}, WeeklyHours: 10, BaseWeeks: 22, SpecificWeeks: 12, RoundsRequired: 30},
			{Code: "I1", Handicap: Band{6.5, 9.5}, AverageScore: Band{77, 80}, WeeklyHours: 12, BaseWeeks: 20, SpecificWeeks: 12, RoundsRequired: 35},
			{Code: "A3", Handicap: Band{4.5, 6.5}, AverageScore: Band{75.5, 77}, WeeklyHours: 14, BaseWeeks: 18, SpecificWeeks: 14, RoundsRequired: 40},
			{Code: "A2", Handicap: Band{2.5, 4.5}, AverageScore: Band{74, 75.5}, WeeklyHours: 16, BaseWeeks: 17, SpecificWeeks: 14, RoundsRequired: 45},
			{Code: "A1", Handicap: Band{0.5, 2.5}, AverageScore: Band{72, 74}, WeeklyHours: 18, BaseWeeks: 16, SpecificWeeks: 14, RoundsRequired: 50},
			{Code: "E2", Handicap: Band{-2, 0.5}, AverageScore: Band{70, 72}, WeeklyHours: 20, BaseWeeks: 15, SpecificWeeks: 14, RoundsRequired: 55},
			{Code: "E1", Handicap: Band{-10, -2}, AverageScore: Band{55, 70}, WeeklyHours: 24, BaseWeeks: 14, SpecificWeeks: 14, RoundsRequired: 60},
		},
	}
}

// Validate checks the ladder is usable: versioned, non-empty, with
// contiguous descending bands and phase defaults that fit the horizon.
func (t Table) Validate() error {
	if t.Version == "" {
		return ErrMissingVersion
	}
	if len(t.Categories) == 0 {
		return ErrEmptyTable
	}
	seen := make(map[string]struct{}, len(t.Categories))
	for i, c := range t.Categories {
		if c.Code == "" {
			return fmt.Errorf("%w: rung %d has no code", ErrInvalidCategory, i)
		}
		if _, dup := seen[c.Code]; dup {
			return fmt.Errorf("%w: duplicate code %s", ErrInvalidCategory, c.Code)
		}
		seen[c.Code] = struct{}{}
		if !validBand(c.Handicap) || !validBand(c.AverageScore) {
			return fmt.Errorf("%w: %s", ErrInvalidBand, c.Code)
		}
		if c.WeeklyHours <= 0 || c.BaseWeeks < 0 || c.SpecificWeeks < 0 || c.RoundsRequired < 0 {
			return fmt.Errorf("%w: %s has non-positive targets", ErrInvalidCategory, c.Code)
		}
		if c.BaseWeeks+c.SpecificWeeks > model.HorizonWeeks {
			return fmt.Errorf("%w: %s phases exceed %d weeks", ErrInvalidCategory, c.Code, model.HorizonWeeks)
		}
		if i == 0 {
			continue
		}
		prev := t.Categories[i-1]
		if c.Handicap.Max != prev.Handicap.Min || c.AverageScore.Max != prev.AverageScore.Min {
			return fmt.Errorf("%w: %s does not adjoin %s", ErrBandGap, c.Code, prev.Code)
		}
	}
	return nil
}

func validBand(b Band) bool {
	return !math.IsNaN(b.Min) && !math.IsNaN(b.Max) && b.Min < b.Max
}
