package model

import (
	"time"

	"github.com/google/uuid"
)

// Importance ranks a tournament for tapering and overlap resolution.
type Importance string

// Importance levels, lowest first.
const (
	ImportanceMinor     Importance = "minor"
	ImportanceImportant Importance = "important"
	ImportanceMajor     Importance = "major"
)

// Valid reports whether i is a known importance.
func (i Importance) Valid() bool {
	return i.Rank() > 0
}

// Rank orders importances; higher wins overlaps. Unknown values rank 0.
func (i Importance) Rank() int {
	switch i {
	case ImportanceMinor:
		return 1
	case ImportanceImportant:
		return 2
	case ImportanceMajor:
		return 3
	default:
		return 0
	}
}

// tournamentNamespace seeds name-based tournament references.
var tournamentNamespace = uuid.MustParse("6f1f7c1e-2b7a-4d1e-9a53-0f1d6c3b8e42")

// Tournament is an event from the intake's competition calendar.
type Tournament struct {
	ID              string     `json:"id,omitempty" yaml:"id,omitempty"`
	Name            string     `json:"name" yaml:"name"`
	Date            time.Time  `json:"date" yaml:"date"`
	Importance      Importance `json:"importance" yaml:"importance"`
	TargetPlacement *int       `json:"target_placement,omitempty" yaml:"target_placement,omitempty"`
}

// Ref returns a stable reference for the tournament. Without an explicit id
// the reference is derived from name and date so regeneration reproduces it.
func (t Tournament) Ref() string {
	if t.ID != "" {
		return t.ID
	}
	key := t.Name + "|" + DateOnly(t.Date).Format(time.DateOnly)
	return uuid.NewSHA1(tournamentNamespace, []byte(key)).String()
}

// DefaultTaperDays returns the taper length in days per importance.
func DefaultTaperDays() map[Importance]int {
	return map[Importance]int{
		ImportanceMajor:     10,
		ImportanceImportant: 6,
		ImportanceMinor:     3,
	}
}

// DefaultLeadWeeks returns how many weeks before the event topping begins.
func DefaultLeadWeeks() map[Importance]int {
	return map[Importance]int{
		ImportanceMajor:     6,
		ImportanceImportant: 4,
		ImportanceMinor:     2,
	}
}

// SplitByHorizon separates tournaments dated inside the horizon starting at
// start from those outside it. Input order is kept.
func SplitByHorizon(start time.Time, tournaments []Tournament) (in, out []Tournament) {
	for _, t := range tournaments {
		if _, ok := WeekIndex(start, t.Date); ok {
			in = append(in, t)
		} else {
			out = append(out, t)
		}
	}
	return in, out
}
