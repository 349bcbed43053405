package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/fairway/internal/adapters/repository"
	"github.com/okian/fairway/internal/config"
	"github.com/okian/fairway/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFactory(t *testing.T) {
	ctx := context.Background()

	Convey("Given the default configuration", t, func() {
		cfg := config.New(ctx)

		Convey("Then an engine is built over the built-in categories", func() {
			e, err := NewEngine(ctx, cfg, nil)
			So(err, ShouldBeNil)
			So(e.Resolver().Categories(), ShouldNotBeEmpty)
		})

		Convey("Then the memory store is opened", func() {
			s, err := OpenStore(ctx, cfg, nil)
			So(err, ShouldBeNil)
			_, ok := s.(*repository.MemoryStore)
			So(ok, ShouldBeTrue)
			So(s.Close(), ShouldBeNil)
		})

		Convey("Then service options are derived", func() {
			opts, err := OptionsFromConfig(cfg)
			So(err, ShouldBeNil)
			svc := New(opts...)
			So(svc.workerCount, ShouldEqual, cfg.WorkerCount)
			So(svc.queueSize, ShouldEqual, cfg.QueueSize)
			So(svc.location.String(), ShouldEqual, "UTC")
		})

		Convey("When the peaking tables are overridden", func() {
			cfg.TaperDays = map[string]int{"major": 4}
			cfg.LeadWeeks = map[string]int{"major": 3}
			So(cfg.Validate(), ShouldBeNil)

			e, err := NewEngine(ctx, cfg, nil)
			So(err, ShouldBeNil)

			start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
			done := start.Add(-time.Hour)
			hcp := 8.2
			gp, err := e.Generate(ctx, &model.PlayerIntake{
				ID:          "intake-1",
				PlayerID:    "player-1",
				CompletedAt: &done,
				Background:  &model.Background{YearsPlaying: 8, Handicap: &hcp, RoundsPerYear: 40},
				Availability: &model.Availability{
					WeeklyHours:   12,
					PreferredDays: []time.Weekday{time.Monday, time.Wednesday, time.Saturday},
				},
				Goals: &model.Goals{Tournaments: []model.Tournament{
					{Name: "Club Championship", Date: start.AddDate(0, 0, 7*30+3), Importance: model.ImportanceMajor},
				}},
			}, start)

			Convey("Then the plan uses the configured taper and lead time", func() {
				So(err, ShouldBeNil)
				So(gp.Schedules, ShouldHaveLength, 1)
				So(gp.Schedules[0].TournamentWeek, ShouldEqual, 31)
				So(gp.Schedules[0].TaperingDays, ShouldEqual, 4)
				So(gp.Schedules[0].ToppingStartWeek, ShouldEqual, 28)
			})
		})

		Convey("When the category file does not exist", func() {
			cfg.CategoriesFile = "/nonexistent/categories.yaml"
			_, err := NewEngine(ctx, cfg, nil)
			So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
		})

		Convey("When the timezone is unknown", func() {
			cfg.Timezone = "Mars/Olympus"
			_, err := OptionsFromConfig(cfg)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
