package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fairway/internal/adapters/repository"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// Database stores are exercised only when a server is supplied:
//
//	FAIRWAY_TEST_POSTGRES_DSN="postgres://localhost/fairway_test?sslmode=disable"
//	FAIRWAY_TEST_MONGO_URI="mongodb://localhost:27017/?replicaSet=rs0"
//
// MongoDB needs a replica set for plan transactions.

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("FAIRWAY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FAIRWAY_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := repository.OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	s := repository.NewPostgresStore(db, logger.Nop())
	defer func() { _ = s.Close() }()
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	// A second call must be a no-op.
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema twice: %v", err)
	}

	storeContract(t, s)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("FAIRWAY_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("FAIRWAY_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := repository.ConnectMongo(ctx, uri)
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	dbName := "fairway_test_" + uuid.NewString()[:8]
	s := repository.NewMongoStore(client, dbName, logger.Nop())
	defer func() {
		_ = client.Database(dbName).Drop(context.Background())
		_ = s.Close()
	}()
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	storeContract(t, s)
}

func TestMemoryStoreContract(t *testing.T) {
	s := repository.NewMemoryStore(context.Background())
	defer s.Close()

	storeContract(t, s)
}

// fullPlan builds a plan with every kind of child row. Times are whole
// milliseconds so every backend stores them exactly.
func fullPlan(id, player string, at time.Time) model.GeneratedPlan {
	place := 5
	gp := model.GeneratedPlan{
		Plan: model.AnnualTrainingPlan{
			PlayerID:         player,
			IntakeID:         "intake-" + player,
			StartDate:        day0,
			EndDate:          day0.AddDate(0, 0, model.HorizonDays-1),
			CategoryCode:     "A2",
			CategoryRank:     6,
			CategoryVersion:  "2025.1",
			WeeklyHours:      12.5,
			BaseWeeks:        30,
			SpecializedWeeks: 14,
			TournamentWeeks:  8,
			Phases: []model.PhaseAllocation{
				{Phase: model.PhaseIndividual, StartWeek: 1, Weeks: 12},
				{Phase: model.PhaseGeneral, StartWeek: 13, Weeks: 18},
				{Phase: model.PhaseSpecific, StartWeek: 31, Weeks: 14},
				{Phase: model.PhaseTournament, StartWeek: 45, Weeks: 8},
			},
			Warnings:    []model.Warning{{Code: model.WarningWindowCompressed, Message: "squeezed", TournamentRef: "ref-b"}},
			GeneratedAt: at.Truncate(time.Millisecond).UTC(),
		},
		Periodizations: []model.Periodization{
			{WeekIndex: 1, WeekStart: day0, Phase: model.PhaseIndividual},
			{WeekIndex: 2, WeekStart: day0.AddDate(0, 0, 7), Phase: model.PhaseIndividual, Window: model.WindowTopping, TournamentRef: "ref-a"},
		},
		Days: []model.DailyTrainingAssignment{
			{Date: day0, WeekIndex: 1, SessionType: model.SessionFullSwing, EstimatedMinutes: 90},
			{Date: day0.AddDate(0, 0, 1), WeekIndex: 1, SessionType: model.SessionRest, IsRestDay: true, ForcedRest: true},
			{Date: day0.AddDate(0, 0, 2), WeekIndex: 1, SessionType: model.SessionCompetition, EstimatedMinutes: 240, TournamentRef: "ref-a"},
		},
		Schedules: []model.TournamentSchedule{
			{TournamentRef: "ref-b", Name: "Spring Cup", Date: day0.AddDate(0, 0, 30), Importance: model.ImportanceMinor,
				TournamentWeek: 5, ToppingStartWeek: 4, TaperingDays: 3, NominalToppingStart: 3, Shifted: true},
			{TournamentRef: "ref-a", Name: "Open", Date: day0.AddDate(0, 0, 2), Importance: model.ImportanceMajor,
				TournamentWeek: 1, ToppingStartWeek: 1, TaperingDays: 2, NominalToppingStart: 1, Compressed: true},
		},
		Unscheduled: []model.Tournament{
			{Name: "Next Year Open", Date: day0.AddDate(1, 2, 0), Importance: model.ImportanceMajor, TargetPlacement: &place},
		},
	}
	return gp.WithPlanID(id)
}

// storeContract checks the behaviour every Store backend shares. The store
// outlives each Convey path, so ids are fresh on every path.
func storeContract(t *testing.T, s repository.Store) {
	ctx := context.Background()

	Convey("Given a store", t, func() {
		run := uuid.NewString()[:8]
		id := func(name string) string { return run + "-" + name }

		Convey("When an intake is saved and read back", func() {
			done := day0.Add(-time.Hour)
			hcp, avg := 6.4, 79.0
			in := &model.PlayerIntake{
				ID:          id("intake-rt"),
				PlayerID:    id("p-intake"),
				CompletedAt: &done,
				Background:  &model.Background{YearsPlaying: 9, Handicap: &hcp, AverageScore: &avg, RoundsPerYear: 45},
				Availability: &model.Availability{
					WeeklyHours:       11,
					PreferredDays:     []time.Weekday{time.Monday, time.Thursday},
					FacilityAccess:    true,
					SeasonalOverrides: []model.SeasonalOverride{{Month: time.January, Factor: 0.5}},
				},
				Goals: &model.Goals{
					PrimaryGoal: "break 75",
					Tournaments: []model.Tournament{{Name: "Club Open", Date: day0.AddDate(0, 2, 0), Importance: model.ImportanceImportant}},
				},
			}
			So(s.SaveIntake(ctx, in), ShouldBeNil)

			got, err := s.GetIntake(ctx, in.ID)

			Convey("Then every section survives", func() {
				So(err, ShouldBeNil)
				So(got.PlayerID, ShouldEqual, in.PlayerID)
				So(got.CompletedAt.Equal(done), ShouldBeTrue)
				So(*got.Background.Handicap, ShouldEqual, hcp)
				So(*got.Background.AverageScore, ShouldEqual, avg)
				So(got.Availability.PreferredDays, ShouldResemble, in.Availability.PreferredDays)
				So(got.Availability.SeasonalOverrides, ShouldResemble, in.Availability.SeasonalOverrides)
				So(got.Goals.PrimaryGoal, ShouldEqual, "break 75")
				So(got.Goals.Tournaments, ShouldHaveLength, 1)
				So(got.Goals.Tournaments[0].Date.Equal(in.Goals.Tournaments[0].Date), ShouldBeTrue)
				So(got.Validate(), ShouldBeNil)
			})

			Convey("And it is saved again with changes", func() {
				in.Availability.WeeklyHours = 15
				So(s.SaveIntake(ctx, in), ShouldBeNil)

				got, err := s.GetIntake(ctx, in.ID)
				So(err, ShouldBeNil)
				So(got.Availability.WeeklyHours, ShouldEqual, 15.0)
			})
		})

		Convey("When a player has a draft and two completed intakes", func() {
			player := id("p-completed")
			older, newer := day0, day0.Add(time.Hour)
			So(s.SaveIntake(ctx, &model.PlayerIntake{ID: id("draft"), PlayerID: player}), ShouldBeNil)
			So(s.SaveIntake(ctx, &model.PlayerIntake{ID: id("old"), PlayerID: player, CompletedAt: &older}), ShouldBeNil)
			So(s.SaveIntake(ctx, &model.PlayerIntake{ID: id("new"), PlayerID: player, CompletedAt: &newer}), ShouldBeNil)

			Convey("Then the latest completed intake is returned", func() {
				got, err := s.GetCompletedIntake(ctx, player)
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, id("new"))
			})
		})

		Convey("When intakes are missing", func() {
			_, err := s.GetIntake(ctx, id("nope"))
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			So(s.SaveIntake(ctx, &model.PlayerIntake{ID: id("draft-only"), PlayerID: id("p-draft")}), ShouldBeNil)
			_, err = s.GetCompletedIntake(ctx, id("p-draft"))
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When an intake has no player", func() {
			err := s.SaveIntake(ctx, &model.PlayerIntake{ID: id("orphan")})
			So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
		})

		Convey("When two plans are saved for one player", func() {
			player := id("p-plans")
			before, err := s.Count(ctx)
			So(err, ShouldBeNil)

			first, err := s.SavePlan(ctx, fullPlan(id("plan-1"), player, day0))
			So(err, ShouldBeNil)
			So(first.Plan.Active, ShouldBeTrue)
			So(first.Plan.SupersedesID, ShouldBeEmpty)

			second, err := s.SavePlan(ctx, fullPlan(id("plan-2"), player, day0.Add(time.Hour)))
			So(err, ShouldBeNil)

			Convey("Then the second supersedes the first", func() {
				So(second.Plan.SupersedesID, ShouldEqual, id("plan-1"))
				So(second.Plan.Active, ShouldBeTrue)

				active, err := s.ActivePlan(ctx, player)
				So(err, ShouldBeNil)
				So(active.Plan.ID, ShouldEqual, id("plan-2"))

				old, err := s.GetPlan(ctx, id("plan-1"))
				So(err, ShouldBeNil)
				So(old.Plan.Active, ShouldBeFalse)
			})

			Convey("Then headers are listed newest first", func() {
				plans, err := s.ListPlans(ctx, player)
				So(err, ShouldBeNil)
				So(plans, ShouldHaveLength, 2)
				So(plans[0].ID, ShouldEqual, id("plan-2"))
				So(plans[1].ID, ShouldEqual, id("plan-1"))

				after, err := s.Count(ctx)
				So(err, ShouldBeNil)
				So(after-before, ShouldEqual, 2)
			})

			Convey("Then the stored plan reads back with every child row", func() {
				want := fullPlan(id("plan-2"), player, day0.Add(time.Hour))
				got, err := s.GetPlan(ctx, id("plan-2"))
				So(err, ShouldBeNil)

				So(got.Plan.IntakeID, ShouldEqual, want.Plan.IntakeID)
				So(got.Plan.StartDate.Equal(want.Plan.StartDate), ShouldBeTrue)
				So(got.Plan.EndDate.Equal(want.Plan.EndDate), ShouldBeTrue)
				So(got.Plan.GeneratedAt.Equal(want.Plan.GeneratedAt), ShouldBeTrue)
				So(got.Plan.CategoryCode, ShouldEqual, "A2")
				So(got.Plan.CategoryRank, ShouldEqual, 6)
				So(got.Plan.WeeklyHours, ShouldEqual, 12.5)
				So(got.Plan.PhaseWeeks(), ShouldEqual, 52)
				So(got.Plan.Phases, ShouldResemble, want.Plan.Phases)
				So(got.Plan.Warnings, ShouldResemble, want.Plan.Warnings)

				So(got.Periodizations, ShouldHaveLength, 2)
				So(got.Periodizations[1].PlanID, ShouldEqual, id("plan-2"))
				So(got.Periodizations[1].Window, ShouldEqual, model.WindowTopping)
				So(got.Periodizations[1].WeekStart.Equal(day0.AddDate(0, 0, 7)), ShouldBeTrue)

				So(got.Days, ShouldHaveLength, 3)
				for i, d := range got.Days {
					w := want.Days[i]
					So(d.Date.Equal(w.Date), ShouldBeTrue)
					So(d.SessionType, ShouldEqual, w.SessionType)
					So(d.EstimatedMinutes, ShouldEqual, w.EstimatedMinutes)
					So(d.IsRestDay, ShouldEqual, w.IsRestDay)
					So(d.ForcedRest, ShouldEqual, w.ForcedRest)
					So(d.TournamentRef, ShouldEqual, w.TournamentRef)
				}

				So(got.Schedules, ShouldHaveLength, 2)
				So(got.Schedules[0].TournamentRef, ShouldEqual, "ref-b")
				So(got.Schedules[0].Shifted, ShouldBeTrue)
				So(got.Schedules[1].TournamentRef, ShouldEqual, "ref-a")
				So(got.Schedules[1].Compressed, ShouldBeTrue)
				So(got.Schedules[1].TaperingDays, ShouldEqual, 2)
				So(got.Schedules[1].Date.Equal(want.Schedules[1].Date), ShouldBeTrue)

				So(got.Unscheduled, ShouldHaveLength, 1)
				So(got.Unscheduled[0].Name, ShouldEqual, "Next Year Open")
				So(*got.Unscheduled[0].TargetPlacement, ShouldEqual, 5)
			})

			Convey("And an existing plan id is saved again", func() {
				_, err := s.SavePlan(ctx, fullPlan(id("plan-2"), player, day0.Add(2*time.Hour)))

				Convey("Then it is rejected and the active plan is unchanged", func() {
					So(errors.Is(err, repository.ErrDuplicatePlan), ShouldBeTrue)

					active, err := s.ActivePlan(ctx, player)
					So(err, ShouldBeNil)
					So(active.Plan.ID, ShouldEqual, id("plan-2"))
				})
			})
		})

		Convey("When plans are missing", func() {
			_, err := s.GetPlan(ctx, id("no-plan"))
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			_, err = s.ActivePlan(ctx, id("no-player"))
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			plans, err := s.ListPlans(ctx, id("no-player"))
			So(err, ShouldBeNil)
			So(plans, ShouldBeEmpty)
		})

		Convey("When a plan has no player", func() {
			_, err := s.SavePlan(ctx, fullPlan(id("plan-x"), "", day0))
			So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
		})
	})
}
