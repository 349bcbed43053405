package peaking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/peaking"
	. "github.com/smartystreets/goconvey/convey"
)

// start is a Monday.
var start = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

// inWeek returns a date in the 1-based week, offset days after its start.
func inWeek(week, offset int) time.Time {
	return start.AddDate(0, 0, 7*(week-1)+offset)
}

func TestSingleMajor(t *testing.T) {
	Convey("Given a major tournament in week 40 and nothing else", t, func() {
		s := peaking.NewScheduler()
		major := model.Tournament{Name: "Open", Date: inWeek(40, 5), Importance: model.ImportanceMajor}

		res, err := s.Schedule(context.Background(), model.NewTimeline(start), []model.Tournament{major})
		So(err, ShouldBeNil)
		So(res.Schedules, ShouldHaveLength, 1)
		sc := res.Schedules[0]

		Convey("Then topping starts in week 34", func() {
			So(sc.TournamentWeek, ShouldEqual, 40)
			So(sc.ToppingStartWeek, ShouldEqual, 34)
			So(sc.Shifted, ShouldBeFalse)
			So(sc.Compressed, ShouldBeFalse)
			So(res.Warnings, ShouldBeEmpty)
		})

		Convey("Then tapering lasts 10 days and ends on the tournament date", func() {
			So(sc.TaperingDays, ShouldEqual, 10)
			So(sc.TaperStart().AddDate(0, 0, sc.TaperingDays).Equal(major.Date), ShouldBeTrue)
			So(sc.TaperStart().Before(res.Timeline.Week(34).Start), ShouldBeFalse)
		})

		Convey("Then the timeline carries the windows as an overlay", func() {
			So(res.Timeline.Week(33).Window, ShouldEqual, model.WindowNone)
			So(res.Timeline.Week(34).Window, ShouldEqual, model.WindowTopping)
			So(res.Timeline.Week(34).TournamentRef, ShouldEqual, major.Ref())
			So(res.Timeline.Week(39).Window, ShouldEqual, model.WindowTapering)
			So(res.Timeline.Week(40).Window, ShouldEqual, model.WindowTapering)
			So(res.Timeline.Week(41).Window, ShouldEqual, model.WindowNone)
			So(res.Timeline.Week(40).Phase, ShouldEqual, model.PhaseCode(""))
		})
	})
}

func TestSameWeekConflict(t *testing.T) {
	Convey("Given a major and a minor tournament in the same week", t, func() {
		s := peaking.NewScheduler()
		minor := model.Tournament{Name: "Club Medal", Date: inWeek(20, 2), Importance: model.ImportanceMinor}
		major := model.Tournament{Name: "National", Date: inWeek(20, 5), Importance: model.ImportanceMajor}

		res, err := s.Schedule(context.Background(), model.NewTimeline(start), []model.Tournament{minor, major})
		So(err, ShouldBeNil)

		Convey("Then the major keeps its full window", func() {
			So(res.Schedules[1].ToppingStartWeek, ShouldEqual, 14)
			So(res.Schedules[1].Compressed, ShouldBeFalse)
		})

		Convey("Then the minor is pushed to a one-week window and flagged", func() {
			sc := res.Schedules[0]
			So(sc.NominalToppingStart, ShouldEqual, 18)
			So(sc.ToppingStartWeek, ShouldEqual, 20)
			So(sc.Shifted, ShouldBeTrue)
			So(sc.Compressed, ShouldBeTrue)
			So(sc.TaperStart().Before(res.Timeline.Week(20).Start), ShouldBeFalse)
			So(res.Warnings, ShouldHaveLength, 1)
			So(res.Warnings[0].Code, ShouldEqual, model.WarningWindowCompressed)
			So(res.Warnings[0].TournamentRef, ShouldEqual, minor.Ref())
		})

		Convey("Then no week is claimed by both", func() {
			for _, w := range res.Timeline {
				if w.Window != model.WindowNone {
					So(w.TournamentRef, ShouldEqual, major.Ref())
				}
			}
		})
	})
}

func TestPartialOverlap(t *testing.T) {
	Convey("Given an important event two weeks after a major", t, func() {
		s := peaking.NewScheduler()
		major := model.Tournament{Name: "Open", Date: inWeek(30, 3), Importance: model.ImportanceMajor}
		important := model.Tournament{Name: "County", Date: inWeek(32, 3), Importance: model.ImportanceImportant}

		res, err := s.Schedule(context.Background(), model.NewTimeline(start), []model.Tournament{important, major})
		So(err, ShouldBeNil)

		Convey("Then the important topping is shifted past the major without compression", func() {
			sc := res.Schedules[0]
			So(sc.NominalToppingStart, ShouldEqual, 28)
			So(sc.ToppingStartWeek, ShouldEqual, 31)
			So(sc.Shifted, ShouldBeTrue)
			So(sc.Compressed, ShouldBeFalse)
			So(res.Warnings, ShouldBeEmpty)
			So(res.Timeline.Week(30).TournamentRef, ShouldEqual, major.Ref())
			So(res.Timeline.Week(31).TournamentRef, ShouldEqual, important.Ref())
		})
	})
}

func TestPriorityOrdering(t *testing.T) {
	Convey("Given two equal-importance events in the same week", t, func() {
		s := peaking.NewScheduler()
		first := model.Tournament{Name: "First", Date: inWeek(25, 4), Importance: model.ImportanceImportant}
		second := model.Tournament{Name: "Second", Date: inWeek(25, 4), Importance: model.ImportanceImportant}

		res, err := s.Schedule(context.Background(), model.NewTimeline(start), []model.Tournament{first, second})
		So(err, ShouldBeNil)

		Convey("Then the first listed wins", func() {
			So(res.Schedules[0].Compressed, ShouldBeFalse)
			So(res.Schedules[1].Compressed, ShouldBeTrue)
		})
	})

	Convey("Given two equal-importance events in different weeks", t, func() {
		s := peaking.NewScheduler()
		later := model.Tournament{Name: "Later", Date: inWeek(12, 1), Importance: model.ImportanceMinor}
		earlier := model.Tournament{Name: "Earlier", Date: inWeek(11, 1), Importance: model.ImportanceMinor}

		res, err := s.Schedule(context.Background(), model.NewTimeline(start), []model.Tournament{later, earlier})
		So(err, ShouldBeNil)

		Convey("Then the earlier date wins", func() {
			So(res.Schedules[1].ToppingStartWeek, ShouldEqual, 9)
			So(res.Schedules[0].ToppingStartWeek, ShouldEqual, 12)
			So(res.Schedules[0].Compressed, ShouldBeTrue)
		})
	})
}

func TestEarlyTournament(t *testing.T) {
	Convey("Given a major in week 2", t, func() {
		s := peaking.NewScheduler()
		major := model.Tournament{Name: "Early", Date: inWeek(2, 1), Importance: model.ImportanceMajor}

		res, err := s.Schedule(context.Background(), model.NewTimeline(start), []model.Tournament{major})
		So(err, ShouldBeNil)

		Convey("Then topping clamps to week 1 and the taper clips to the horizon", func() {
			sc := res.Schedules[0]
			So(sc.ToppingStartWeek, ShouldEqual, 1)
			So(sc.TaperingDays, ShouldEqual, 8)
			So(sc.TaperStart().Equal(start), ShouldBeTrue)
		})
	})
}

func TestOutsideHorizon(t *testing.T) {
	Convey("Given a tournament after the horizon", t, func() {
		s := peaking.NewScheduler()
		late := model.Tournament{Name: "Next Year", Date: start.AddDate(1, 1, 0), Importance: model.ImportanceMajor}

		_, err := s.Schedule(context.Background(), model.NewTimeline(start), []model.Tournament{late})

		Convey("Then the scheduler refuses it", func() {
			So(errors.Is(err, peaking.ErrOutsideHorizon), ShouldBeTrue)
		})
	})
}

func TestSchedulerOptions(t *testing.T) {
	Convey("Given configured tables", t, func() {
		s := peaking.NewScheduler(
			peaking.WithTaperDays(map[model.Importance]int{model.ImportanceMajor: 14, model.ImportanceMinor: 0}),
			peaking.WithLeadWeeks(map[model.Importance]int{model.ImportanceMajor: 8}),
		)

		Convey("Then overrides apply and non-positive taper values are ignored", func() {
			So(s.TaperDays(model.ImportanceMajor), ShouldEqual, 14)
			So(s.TaperDays(model.ImportanceMinor), ShouldEqual, 3)
			So(s.LeadWeeks(model.ImportanceMajor), ShouldEqual, 8)
			So(s.LeadWeeks(model.ImportanceImportant), ShouldEqual, 4)
		})
	})
}
