package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/fairway/internal/config"
	"github.com/okian/fairway/internal/domain/category"
	"github.com/okian/fairway/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("FAIRWAY_ADDR", ":8080")
			_ = os.Setenv("FAIRWAY_QUEUE_SIZE", "64")
			_ = os.Setenv("FAIRWAY_WORKER_COUNT", "16")
			_ = os.Setenv("FAIRWAY_JOB_TIMEOUT", "45s")
			_ = os.Setenv("FAIRWAY_TAPER_FLOOR", "0.5")
			_ = os.Setenv("FAIRWAY_TIMEZONE", "Europe/London")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.JobTimeout, convey.ShouldEqual, 45*time.Second)
				convey.So(cfg.TaperFloor, convey.ShouldEqual, 0.5)
				convey.So(cfg.Timezone, convey.ShouldEqual, "Europe/London")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
store: postgres
postgres_dsn: "postgres://localhost/fairway?sslmode=disable"
queue_size: 300
worker_count: 8
max_consecutive_days: 5
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("FAIRWAY_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Store, convey.ShouldEqual, config.StorePostgres)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 8)
				convey.So(cfg.MaxConsecutiveDays, convey.ShouldEqual, 5)
			})

			convey.Convey("And environment variables are also set", func() {
				_ = os.Setenv("FAIRWAY_ADDR", ":8080")
				_ = os.Setenv("FAIRWAY_WORKER_COUNT", "32")

				cfg, err := config.Load(ctx)

				convey.Convey("Then environment variables override file values", func() {
					convey.So(err, convey.ShouldBeNil)
					convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
					convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
					convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				})
			})
		})

		convey.Convey("When the file overrides the peaking tables", func() {
			tmpFile := createTempConfigFile(`
taper_days:
  major: 14
  minor: 2
lead_weeks:
  important: 5
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("FAIRWAY_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then overridden keys replace the built-in values and the rest are kept", func() {
				convey.So(err, convey.ShouldBeNil)
				taper := cfg.TaperTable()
				convey.So(taper[model.ImportanceMajor], convey.ShouldEqual, 14)
				convey.So(taper[model.ImportanceMinor], convey.ShouldEqual, 2)
				convey.So(taper[model.ImportanceImportant], convey.ShouldEqual, 6)
				lead := cfg.LeadTable()
				convey.So(lead[model.ImportanceImportant], convey.ShouldEqual, 5)
				convey.So(lead[model.ImportanceMajor], convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When the file names an unknown importance", func() {
			tmpFile := createTempConfigFile(`
taper_days:
  friendly: 3
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("FAIRWAY_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("FAIRWAY_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then a load error is returned", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a numeric variable is not a number", func() {
			_ = os.Setenv("FAIRWAY_QUEUE_SIZE", "invalid")

			cfg, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the address is cleared", func() {
			_ = os.Setenv("FAIRWAY_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestLoadCategoryTable(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given no categories file", t, func() {
		table, err := config.LoadCategoryTable(ctx, "")

		convey.Convey("Then the built-in table is returned", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(table.Version, convey.ShouldEqual, category.DefaultVersion)
		})
	})

	convey.Convey("Given a two-rung table file", t, func() {
		tmpFile := createTempConfigFile(`
version: "club-2025"
categories:
  - code: LOW
    handicap: {min: 10, max: 60}
    average_score: {min: 82, max: 160}
    weekly_hours: 6
    base_weeks: 26
    specific_weeks: 10
    rounds_required: 20
  - code: HIGH
    handicap: {min: -10, max: 10}
    average_score: {min: 55, max: 82}
    weekly_hours: 14
    base_weeks: 18
    specific_weeks: 14
    rounds_required: 40
`)
		defer func() { _ = os.Remove(tmpFile) }()

		table, err := config.LoadCategoryTable(ctx, tmpFile)

		convey.Convey("Then it is loaded and resolves handicaps", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(table.Version, convey.ShouldEqual, "club-2025")
			convey.So(table.Categories, convey.ShouldHaveLength, 2)

			r, err := category.NewResolver(table)
			convey.So(err, convey.ShouldBeNil)
			hcp := 12.0
			cat, err := r.Resolve(&model.Background{Handicap: &hcp})
			convey.So(err, convey.ShouldBeNil)
			convey.So(cat.Code, convey.ShouldEqual, "LOW")
		})
	})

	convey.Convey("Given a table with a gap between rungs", t, func() {
		tmpFile := createTempConfigFile(`
version: "broken"
categories:
  - code: LOW
    handicap: {min: 12, max: 60}
    average_score: {min: 82, max: 160}
    weekly_hours: 6
    base_weeks: 26
    specific_weeks: 10
    rounds_required: 20
  - code: HIGH
    handicap: {min: -10, max: 10}
    average_score: {min: 55, max: 82}
    weekly_hours: 14
    base_weeks: 18
    specific_weeks: 14
    rounds_required: 40
`)
		defer func() { _ = os.Remove(tmpFile) }()

		_, err := config.LoadCategoryTable(ctx, tmpFile)

		convey.Convey("Then the table is rejected", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(errors.Is(err, category.ErrBandGap), convey.ShouldBeTrue)
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"FAIRWAY_CONFIG",
		"FAIRWAY_ADDR",
		"FAIRWAY_QUEUE_SIZE",
		"FAIRWAY_WORKER_COUNT",
		"FAIRWAY_JOB_TIMEOUT",
		"FAIRWAY_TAPER_FLOOR",
		"FAIRWAY_TIMEZONE",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "fairway-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
