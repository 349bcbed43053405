// Package repository persists intakes and generated plans.
package repository

import (
	"context"
	"slices"
	"strings"

	"github.com/okian/fairway/internal/domain/model"
)

// Store provides read/write access to intakes and plans.
type Store interface {
	// SaveIntake inserts or replaces an intake.
	SaveIntake(ctx context.Context, intake *model.PlayerIntake) error

	// GetIntake returns ErrNotFound if the intake is unknown.
	GetIntake(ctx context.Context, intakeID string) (*model.PlayerIntake, error)

	// GetCompletedIntake returns the player's most recently completed intake.
	GetCompletedIntake(ctx context.Context, playerID string) (*model.PlayerIntake, error)

	// SavePlan stores the plan and all of its child rows atomically. The
	// player's previous active plan, if any, is deactivated and referenced
	// by the stored plan's SupersedesID.
	SavePlan(ctx context.Context, gp model.GeneratedPlan) (model.GeneratedPlan, error)

	// GetPlan returns the plan with its child rows.
	GetPlan(ctx context.Context, planID string) (model.GeneratedPlan, error)

	// ActivePlan returns the player's current plan.
	ActivePlan(ctx context.Context, playerID string) (model.GeneratedPlan, error)

	// ListPlans returns plan headers for a player, newest first.
	ListPlans(ctx context.Context, playerID string) ([]model.AnnualTrainingPlan, error)

	// Count returns the number of stored plans.
	Count(ctx context.Context) (int, error)

	Close() error
}

func checkIntake(in *model.PlayerIntake) error {
	if in == nil || strings.TrimSpace(in.ID) == "" || strings.TrimSpace(in.PlayerID) == "" {
		return ErrInvalidRecord
	}
	return nil
}

func checkPlan(gp model.GeneratedPlan) error {
	if strings.TrimSpace(gp.Plan.ID) == "" || strings.TrimSpace(gp.Plan.PlayerID) == "" {
		return ErrInvalidRecord
	}
	return nil
}

// clonePlan deep-copies the slices of gp so callers never share rows with
// the store.
func clonePlan(gp model.GeneratedPlan) model.GeneratedPlan {
	gp.Plan.Phases = slices.Clone(gp.Plan.Phases)
	gp.Plan.Warnings = slices.Clone(gp.Plan.Warnings)
	gp.Periodizations = slices.Clone(gp.Periodizations)
	gp.Days = slices.Clone(gp.Days)
	gp.Schedules = slices.Clone(gp.Schedules)
	gp.Unscheduled = slices.Clone(gp.Unscheduled)
	return gp
}

// newestFirst orders plan headers by generation time, then id.
func newestFirst(a, b model.AnnualTrainingPlan) int {
	if c := b.GeneratedAt.Compare(a.GeneratedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID, a.ID)
}
