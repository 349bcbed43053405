// Package loadtest drives a running planner over HTTP: it submits generated
// intakes, requests plans concurrently and checks the returned plans.
package loadtest

import (
	"time"

	"github.com/okian/fairway/internal/domain/model"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Players     int           // Number of players to generate
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	Regenerate  int           // Number of players to queue for regeneration
	SettleDelay time.Duration // Wait for queued regenerations before checking them
	OutputFile  string        // Output file for generated intakes
	Seed        uint64        // Seed for intake generation; zero picks one
	Verbose     bool          // Enable verbose logging
}

// Player pairs a generated intake with the plan the service returned for it.
type Player struct {
	Intake   model.PlayerIntake
	PlanID   string
	Replayed bool
}

// Stats holds run statistics.
type Stats struct {
	IntakesGenerated int
	IntakesStored    int
	PlansGenerated   int
	PlansReplayed    int
	PlansRejected    int
	PlansFailed      int
	PlansVerified    int
	Violations       int
	RegenQueued      int
	RegenApplied     int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
