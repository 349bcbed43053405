package plangen_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/fairway/internal/domain/category"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/peaking"
	"github.com/okian/fairway/internal/domain/plan"
	"github.com/okian/fairway/internal/plangen"
	. "github.com/smartystreets/goconvey/convey"
)

var start = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func engine() *plan.Engine {
	return plan.NewEngine(
		plan.WithIDGenerator(func() string { return "plan-demo" }),
		plan.WithNow(func() time.Time { return start }),
	)
}

func TestLoadIntake(t *testing.T) {
	Convey("Given the sample intake file", t, func() {
		in, err := plangen.LoadIntakeFile(filepath.Join("testdata", "intake.yaml"))

		Convey("Then every section is decoded", func() {
			So(err, ShouldBeNil)
			So(in.PlayerID, ShouldEqual, "player-demo")
			So(in.Complete(), ShouldBeTrue)
			So(*in.Background.Handicap, ShouldEqual, 8.2)
			So(in.Availability.PreferredDays, ShouldResemble, []time.Weekday{time.Monday, time.Wednesday, time.Saturday})
			So(in.Goals.Tournaments, ShouldHaveLength, 2)
			So(in.Goals.Tournaments[0].Importance, ShouldEqual, model.ImportanceMajor)
			So(in.Goals.Tournaments[0].Date.Equal(time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})
	})

	Convey("Given malformed intakes", t, func() {
		Convey("Then unknown keys are rejected", func() {
			_, err := plangen.LoadIntake(strings.NewReader("player_id: p1\nshoe_size: 44\n"))
			So(errors.Is(err, plangen.ErrIntakeFile), ShouldBeTrue)
		})

		Convey("Then an empty document is rejected", func() {
			_, err := plangen.LoadIntake(strings.NewReader(""))
			So(errors.Is(err, plangen.ErrIntakeFile), ShouldBeTrue)
		})

		Convey("Then a missing file is rejected", func() {
			_, err := plangen.LoadIntakeFile(filepath.Join("testdata", "missing.yaml"))
			So(errors.Is(err, plangen.ErrIntakeFile), ShouldBeTrue)
		})
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	Convey("Given the sample intake and a fixed start date", t, func() {
		var out bytes.Buffer
		jsonPath := filepath.Join(t.TempDir(), "plan.json")

		gp, err := plangen.Run(ctx, engine(), plangen.Options{
			IntakePath: filepath.Join("testdata", "intake.yaml"),
			Start:      start,
			JSONPath:   jsonPath,
		}, &out, nil)

		Convey("Then a full-horizon plan is generated", func() {
			So(err, ShouldBeNil)
			So(gp.Days, ShouldHaveLength, model.HorizonDays)
			So(gp.Periodizations, ShouldHaveLength, model.HorizonWeeks)
			So(gp.Schedules, ShouldHaveLength, 2)
		})

		Convey("Then the report lists phases, tournaments and weeks", func() {
			report := out.String()
			So(report, ShouldContainSubstring, "Plan plan-demo for player player-demo")
			So(report, ShouldContainSubstring, "PHASE")
			So(report, ShouldContainSubstring, "Club Championship")
			So(report, ShouldContainSubstring, "2025-06-14")
			So(report, ShouldContainSubstring, "SESSION")
		})

		Convey("Then the JSON file holds the same plan", func() {
			raw, err := os.ReadFile(jsonPath)
			So(err, ShouldBeNil)
			var decoded model.GeneratedPlan
			So(json.Unmarshal(raw, &decoded), ShouldBeNil)
			So(decoded.Plan.ID, ShouldEqual, "plan-demo")
			So(decoded.Days, ShouldHaveLength, model.HorizonDays)
		})
	})

	Convey("Given the tables option", t, func() {
		e := engine()
		tables := plangen.TablesOf(e)

		Convey("Then the tables reflect the engine", func() {
			So(tables.Version, ShouldEqual, category.DefaultVersion)
			So(tables.Ladder, ShouldHaveLength, len(category.DefaultTable().Categories))
			So(tables.TaperDays[model.ImportanceMajor], ShouldEqual, 10)
			So(tables.TaperDays[model.ImportanceMinor], ShouldEqual, 3)
			So(tables.LeadWeeks[model.ImportanceMajor], ShouldEqual, 6)
		})

		Convey("Then a scheduler override shows up in the tables", func() {
			custom := plan.NewEngine(plan.WithScheduler(peaking.NewScheduler(
				peaking.WithTaperDays(map[model.Importance]int{model.ImportanceMajor: 12}),
			)))
			So(plangen.TablesOf(custom).TaperDays[model.ImportanceMajor], ShouldEqual, 12)
		})

		Convey("Then the report ends with the ladder and the peaking tables", func() {
			var out bytes.Buffer
			gp, err := plangen.Run(ctx, e, plangen.Options{
				IntakePath: filepath.Join("testdata", "intake.yaml"),
				Start:      start,
				Tables:     tables,
			}, &out, nil)
			So(err, ShouldBeNil)

			report := out.String()
			So(report, ShouldContainSubstring, "Category ladder ("+category.DefaultVersion+")")
			So(report, ShouldContainSubstring, "["+gp.Plan.CategoryCode+"]")
			So(report, ShouldContainSubstring, "IMPORTANCE")
			So(report, ShouldContainSubstring, "LEAD WEEKS")
		})
	})

	Convey("Given a draft intake", t, func() {
		path := filepath.Join(t.TempDir(), "draft.yaml")
		draft := `player_id: p1
background: {handicap: 20, rounds_per_year: 10}
availability: {weekly_hours: 4}
goals: {primary_goal: break 90}
`
		So(os.WriteFile(path, []byte(draft), 0o600), ShouldBeNil)

		Convey("Then it is previewed without printing when quiet", func() {
			var out bytes.Buffer
			gp, err := plangen.Run(ctx, engine(), plangen.Options{IntakePath: path, Start: start, Quiet: true}, &out, nil)
			So(err, ShouldBeNil)
			So(gp.Plan.IntakeID, ShouldEqual, "local")
			So(out.Len(), ShouldEqual, 0)
		})
	})

	Convey("Given an intake missing its goals", t, func() {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		So(os.WriteFile(path, []byte("player_id: p1\nbackground: {handicap: 20}\navailability: {weekly_hours: 4}\n"), 0o600), ShouldBeNil)

		Convey("Then generation fails validation", func() {
			_, err := plangen.Run(ctx, engine(), plangen.Options{IntakePath: path, Start: start}, &bytes.Buffer{}, nil)
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestSessionCounts(t *testing.T) {
	Convey("Given a plan with mixed days", t, func() {
		gp := model.GeneratedPlan{Days: []model.DailyTrainingAssignment{
			{SessionType: model.SessionPutting},
			{SessionType: model.SessionPutting},
			{SessionType: model.SessionRest, IsRestDay: true},
		}}

		Convey("Then days are counted per session type", func() {
			counts := plangen.SessionCounts(gp)
			So(counts[model.SessionPutting], ShouldEqual, 2)
			So(counts[model.SessionRest], ShouldEqual, 1)
		})
	})
}
