// Package main implements plan-gen, which previews an annual training plan
// from an intake file without running the service.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	app "github.com/okian/fairway/internal/app"
	"github.com/okian/fairway/internal/config"
	"github.com/okian/fairway/internal/plangen"
	"github.com/okian/fairway/pkg/logger"
)

var (
	startDate  string
	jsonOut    string
	categories string
	quiet      bool
	tables     bool
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "plan-gen <intake.yaml>",
	Short: "Generate a 52-week training plan from an intake file",
	Long: `plan-gen reads a player intake in YAML, runs the plan engine with the
service configuration (FAIRWAY_CONFIG and FAIRWAY_* variables) and prints the
phase breakdown, tournament schedule, weekly minutes and warnings.

Examples:
  # Preview a plan starting today
  plan-gen intake.yaml

  # Fix the start date and keep the full plan as JSON
  plan-gen --start 2025-01-06 --json plan.json intake.yaml

  # Show the category ladder and peaking tables the plan was built with
  plan-gen --tables intake.yaml

  # Read the intake from stdin and print only JSON
  cat intake.yaml | plan-gen --quiet --json - -`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runPlanGen,
}

func init() {
	rootCmd.Flags().StringVar(&startDate, "start", "", "plan start date (YYYY-MM-DD, default today in the configured timezone)")
	rootCmd.Flags().StringVar(&jsonOut, "json", "", "write the full plan as JSON to this file, or - for stdout")
	rootCmd.Flags().StringVar(&categories, "categories", "", "category table YAML (overrides categories_file)")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print the text report")
	rootCmd.Flags().BoolVar(&tables, "tables", false, "append the category ladder and peaking tables to the report")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func runPlanGen(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	level := "warn"
	if verbose {
		level = "debug"
	}
	if err := logger.InitWithWriter(cmd.ErrOrStderr()); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	_ = logger.SetLevelString(level)
	l := logger.Get().Named("plan-gen")

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if categories != "" {
		cfg.CategoriesFile = categories
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	var start time.Time
	if startDate != "" {
		start, err = time.Parse("2006-01-02", startDate)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
	}

	engine, err := app.NewEngine(ctx, cfg, l)
	if err != nil {
		return err
	}
	opts := plangen.Options{
		IntakePath: args[0],
		Start:      start,
		Location:   loc,
		JSONPath:   jsonOut,
		Quiet:      quiet,
	}
	if tables {
		opts.Tables = plangen.TablesOf(engine)
	}
	_, err = plangen.Run(ctx, engine, opts, cmd.OutOrStdout(), l)
	return err
}
