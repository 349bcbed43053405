package model_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/fairway/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func completeIntake() *model.PlayerIntake {
	done := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	hcp := 8.2
	return &model.PlayerIntake{
		ID:          "intake-1",
		PlayerID:    "player-1",
		CompletedAt: &done,
		Background:  &model.Background{YearsPlaying: 6, Handicap: &hcp, RoundsPerYear: 40},
		Availability: &model.Availability{
			WeeklyHours:   12,
			PreferredDays: []time.Weekday{time.Monday, time.Wednesday, time.Saturday},
		},
		Goals: &model.Goals{PrimaryGoal: "single digits"},
	}
}

func TestIntakeValidate(t *testing.T) {
	Convey("Given a completed intake", t, func() {
		in := completeIntake()

		Convey("When it has every required section", func() {
			Convey("Then it should validate", func() {
				So(in.Validate(), ShouldBeNil)
				So(in.Complete(), ShouldBeTrue)
			})
		})

		Convey("When the goals section is missing", func() {
			in.Goals = nil
			err := in.Validate()

			Convey("Then a ValidationError naming goals should be returned", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
				var verr *model.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.Fields, ShouldHaveLength, 1)
				So(verr.Fields[0].Field, ShouldEqual, "intake.goals")
			})
		})

		Convey("When the intake was never completed", func() {
			in.CompletedAt = nil

			Convey("Then it should be rejected", func() {
				So(in.Complete(), ShouldBeFalse)
				So(errors.Is(in.Validate(), model.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When a tournament has an unknown importance", func() {
			in.Goals.Tournaments = []model.Tournament{{Name: "Club", Date: time.Now(), Importance: "huge"}}
			err := in.Validate()

			Convey("Then the field should be reported", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "goals.tournaments.importance")
			})
		})

		Convey("When availability values are out of range", func() {
			in.Availability.WeeklyHours = 200
			in.Availability.PreferredDays = []time.Weekday{9}
			in.Availability.SeasonalOverrides = []model.SeasonalOverride{{Month: 13, Factor: -1}}
			var verr *model.ValidationError
			So(errors.As(in.Validate(), &verr), ShouldBeTrue)

			Convey("Then every problem should be collected", func() {
				So(verr.Fields, ShouldHaveLength, 4)
			})
		})

		Convey("When the intake is nil", func() {
			var nilIntake *model.PlayerIntake

			Convey("Then it should fail validation", func() {
				So(errors.Is(nilIntake.Validate(), model.ErrValidation), ShouldBeTrue)
			})
		})
	})
}

func TestAvailability(t *testing.T) {
	Convey("Given availability with a seasonal override", t, func() {
		a := model.Availability{
			PreferredDays:     []time.Weekday{time.Tuesday},
			SeasonalOverrides: []model.SeasonalOverride{{Month: time.December, Factor: 0.5}},
		}

		So(a.Prefers(time.Tuesday), ShouldBeTrue)
		So(a.Prefers(time.Sunday), ShouldBeFalse)
		So(a.SeasonalFactor(time.December), ShouldEqual, 0.5)
		So(a.SeasonalFactor(time.June), ShouldEqual, 1.0)
	})
}

func TestTournamentRef(t *testing.T) {
	Convey("Given tournaments without ids", t, func() {
		a := model.Tournament{Name: "Club Championship", Date: time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)}
		b := model.Tournament{Name: "Club Championship", Date: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
		c := model.Tournament{Name: "Club Championship", Date: time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)}

		Convey("Then references derive from name and calendar date", func() {
			So(a.Ref(), ShouldEqual, b.Ref())
			So(a.Ref(), ShouldNotEqual, c.Ref())
			So(a.Ref(), ShouldHaveLength, 36)
		})

		Convey("Then an explicit id wins", func() {
			a.ID = "t-1"
			So(a.Ref(), ShouldEqual, "t-1")
		})
	})

	Convey("Given importance levels", t, func() {
		So(model.ImportanceMajor.Rank(), ShouldBeGreaterThan, model.ImportanceImportant.Rank())
		So(model.ImportanceImportant.Rank(), ShouldBeGreaterThan, model.ImportanceMinor.Rank())
		So(model.Importance("other").Valid(), ShouldBeFalse)
	})
}

func TestTimeline(t *testing.T) {
	Convey("Given a timeline starting mid-afternoon", t, func() {
		start := time.Date(2025, 3, 5, 15, 30, 0, 0, time.UTC)
		tl := model.NewTimeline(start)

		Convey("Then it should cover exactly 364 days in 52 weeks", func() {
			So(tl.Start(), ShouldEqual, time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))
			So(tl.End(), ShouldEqual, model.HorizonEnd(start))
			So(model.DaysBetween(tl.Start(), tl.End()), ShouldEqual, model.HorizonDays-1)
			for i, w := range tl {
				So(w.Index, ShouldEqual, i+1)
			}
		})

		Convey("Then days map to their week", func() {
			w, ok := tl.WeekOf(start.AddDate(0, 0, 7*39))
			So(ok, ShouldBeTrue)
			So(w, ShouldEqual, 40)
			So(tl.Week(40).Contains(start.AddDate(0, 0, 7*39+6)), ShouldBeTrue)

			_, ok = tl.WeekOf(start.AddDate(0, 0, model.HorizonDays))
			So(ok, ShouldBeFalse)
			_, ok = tl.WeekOf(start.AddDate(0, 0, -1))
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given phase codes", t, func() {
		So(model.PhaseIndividual.Order(), ShouldEqual, 0)
		So(model.PhaseTournament.Order(), ShouldEqual, 3)
		So(model.PhaseCode("off").Order(), ShouldEqual, -1)
	})
}

func TestErrorKind(t *testing.T) {
	Convey("Given each error type", t, func() {
		cases := map[string]error{
			"validation": model.NewValidationError("background", "missing"),
			"scheduling": &model.SchedulingError{ReservedWeeks: 60, HorizonWeeks: 52, Tournaments: 20},
			"invariant":  &model.InvariantViolation{Rule: "phase_sum", Detail: "51"},
			"internal":   errors.New("boom"),
		}

		Convey("Then wrapped errors are classified by kind", func() {
			for kind, err := range cases {
				So(model.ErrorKind(fmt.Errorf("generate: %w", err)), ShouldEqual, kind)
			}
			So(model.ErrorKind(nil), ShouldEqual, "")
		})
	})
}

func TestGeneratedPlanHelpers(t *testing.T) {
	Convey("Given a generated plan without an id", t, func() {
		g := model.GeneratedPlan{
			Periodizations: []model.Periodization{{WeekIndex: 1}},
			Days: []model.DailyTrainingAssignment{
				{WeekIndex: 1, SessionType: model.SessionFullSwing, EstimatedMinutes: 90},
				{WeekIndex: 1, SessionType: model.SessionCompetition, EstimatedMinutes: 240},
				{WeekIndex: 2, SessionType: model.SessionPutting, EstimatedMinutes: 30},
			},
			Schedules: []model.TournamentSchedule{{TournamentRef: "t"}},
		}

		Convey("When an id is stamped", func() {
			stamped := g.WithPlanID("plan-1")

			Convey("Then every row carries it and the original is untouched", func() {
				So(stamped.Plan.ID, ShouldEqual, "plan-1")
				So(stamped.Periodizations[0].PlanID, ShouldEqual, "plan-1")
				So(stamped.Days[2].PlanID, ShouldEqual, "plan-1")
				So(stamped.Schedules[0].PlanID, ShouldEqual, "plan-1")
				So(g.Days[0].PlanID, ShouldBeEmpty)
			})
		})

		Convey("Then week minutes exclude competition days", func() {
			So(g.WeekMinutes(1), ShouldEqual, 90)
			So(g.WeekMinutes(2), ShouldEqual, 30)
		})
	})
}
