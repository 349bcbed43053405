package loadtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/fairway/internal/adapters/http/api"
	service "github.com/okian/fairway/internal/app"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/plan"
	"github.com/okian/fairway/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var today = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func TestGenerator(t *testing.T) {
	Convey("Given two generators with the same seed", t, func() {
		a := newGenerator(42, today).intakes(20)
		b := newGenerator(42, today).intakes(20)

		Convey("Then they produce the same player profiles", func() {
			for i := range a {
				So(*a[i].Background.Handicap, ShouldEqual, *b[i].Background.Handicap)
				So(a[i].Availability.WeeklyHours, ShouldEqual, b[i].Availability.WeeklyHours)
				So(len(a[i].Goals.Tournaments), ShouldEqual, len(b[i].Goals.Tournaments))
			}
		})

		Convey("Then every intake is complete and valid", func() {
			players := map[string]bool{}
			for _, in := range a {
				So(in.Validate(), ShouldBeNil)
				So(players[in.PlayerID], ShouldBeFalse)
				players[in.PlayerID] = true
			}
		})

		Convey("Then tournaments fall on distinct dates inside the horizon", func() {
			end := model.HorizonEnd(today)
			for _, in := range a {
				dates := map[time.Time]bool{}
				for _, tr := range in.Goals.Tournaments {
					So(tr.Date.After(today), ShouldBeTrue)
					So(tr.Date.Before(end), ShouldBeTrue)
					So(dates[tr.Date], ShouldBeFalse)
					dates[tr.Date] = true
				}
			}
		})
	})
}

func TestVerifyPlan(t *testing.T) {
	Convey("Given a plan from the engine", t, func() {
		hcp := 12.0
		done := today.Add(-time.Hour)
		in := &model.PlayerIntake{
			ID: "i1", PlayerID: "p1", CompletedAt: &done,
			Background:   &model.Background{Handicap: &hcp, RoundsPerYear: 30},
			Availability: &model.Availability{WeeklyHours: 8, FacilityAccess: true},
			Goals: &model.Goals{Tournaments: []model.Tournament{
				{Name: "Spring Cup", Date: today.AddDate(0, 0, 120), Importance: model.ImportanceMajor},
			}},
		}
		gp, err := plan.NewEngine().Generate(context.Background(), in, today)
		So(err, ShouldBeNil)
		gp.Plan.Active = true

		Convey("Then it passes verification", func() {
			So(verifyPlan(gp), ShouldBeEmpty)
		})

		Convey("When days are missing and the plan is inactive", func() {
			gp.Plan.Active = false
			gp.Days = gp.Days[:300]
			problems := verifyPlan(gp)

			Convey("Then both problems are reported", func() {
				So(len(problems), ShouldBeGreaterThanOrEqualTo, 2)
			})
		})

		Convey("When the competition day is removed", func() {
			for i := range gp.Days {
				if gp.Days[i].SessionType == model.SessionCompetition {
					gp.Days[i].SessionType = model.SessionPutting
				}
			}
			So(verifyPlan(gp), ShouldNotBeEmpty)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running planner", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := service.New(service.WithLogger(logger.Nop()), service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc, logger.Nop()).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		out := filepath.Join(t.TempDir(), "intakes.json")
		cfg := &Config{
			BaseURL:     srv.URL,
			Players:     10,
			Workers:     4,
			Timeout:     10 * time.Second,
			Regenerate:  2,
			SettleDelay: time.Second,
			OutputFile:  out,
			Seed:        7,
		}

		Convey("When the load test runs", func() {
			stats, _ := Run(ctx, cfg, logger.Nop())

			Convey("Then every intake is stored and each plan replays", func() {
				So(stats.IntakesGenerated, ShouldEqual, 10)
				So(stats.IntakesStored, ShouldEqual, 10)
				So(stats.PlansGenerated+stats.PlansRejected+stats.PlansFailed, ShouldBeGreaterThanOrEqualTo, 10)
				So(stats.PlansReplayed, ShouldEqual, stats.PlansGenerated)
			})

			Convey("Then the generated intakes are saved", func() {
				_, err := os.Stat(out)
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given no service", t, func() {
		cfg := &Config{BaseURL: "http://127.0.0.1:1", Players: 1, Timeout: time.Second}

		Convey("Then the health check fails", func() {
			_, err := Run(context.Background(), cfg, nil)
			So(err, ShouldNotBeNil)
		})
	})
}
