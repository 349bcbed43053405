// Package main implements load-test, which exercises a running planner with
// generated intakes and checks the plans it returns.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/fairway/internal/loadtest"
	"github.com/okian/fairway/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

var cfg = loadtest.Config{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "load-test",
	Short: "Drive a running planner with generated intakes",
	Long: `load-test generates completed player intakes, stores them, requests a plan
for each under an idempotency key, replays every request and checks the
structure of the returned plans. A number of players can then be queued for
regeneration to check that their new plan supersedes the old one.

Examples:
  # Test with default settings
  load-test

  # Larger run against another address
  load-test --players 2000 --workers 32 --url http://localhost:8080

  # Repeatable run that also regenerates 50 players
  load-test --seed 7 --regenerate 50`,
	SilenceUsage: true,
	RunE:         runLoadTest,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.IntVar(&cfg.Players, "players", loadtest.DefaultPlayers, "number of players to generate")
	f.IntVar(&cfg.Workers, "workers", loadtest.DefaultWorkers, "number of concurrent workers")
	f.DurationVar(&cfg.Timeout, "timeout", loadtest.DefaultTimeout, "HTTP request timeout")
	f.IntVar(&cfg.Regenerate, "regenerate", 0, "number of players to queue for regeneration")
	f.DurationVar(&cfg.SettleDelay, "settle", loadtest.DefaultSettleDelay, "wait before checking regenerated plans")
	f.StringVar(&cfg.OutputFile, "output", "", "output file for generated intakes (default: generated_intakes_TIMESTAMP.json)")
	f.Uint64Var(&cfg.Seed, "seed", 0, "seed for intake generation (default: time based)")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable verbose logging")
}

func runLoadTest(cmd *cobra.Command, _ []string) error {
	if err := logger.InitWithWriter(cmd.ErrOrStderr()); err != nil {
		return err
	}
	if cfg.Verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	_, err := loadtest.Run(ctx, &cfg, logger.Get().Named("load-test"))
	return err
}
