package plangen

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/internal/domain/plan"
	"github.com/okian/fairway/pkg/logger"
)

// Options controls a single plan-gen run.
type Options struct {
	// IntakePath is the YAML intake to read; "-" reads stdin.
	IntakePath string

	// Start is the plan start date. Zero means today in Location.
	Start    time.Time
	Location *time.Location

	// JSONPath receives the full plan as JSON when set; "-" writes to the
	// report writer.
	JSONPath string

	// Quiet suppresses the text report.
	Quiet bool

	// Tables, when set, appends the category ladder and peaking tables to
	// the report.
	Tables *Tables
}

// Run loads the intake, generates a plan with gen and writes the report to out.
// A draft intake is treated as completed now so it can be previewed.
func Run(ctx context.Context, gen plan.Generator, opts Options, out io.Writer, l logger.Logger) (model.GeneratedPlan, error) {
	if l == nil {
		l = logger.Nop()
	}
	in, err := LoadIntakeFile(opts.IntakePath)
	if err != nil {
		return model.GeneratedPlan{}, err
	}
	if in.ID == "" {
		in.ID = "local"
	}
	if !in.Complete() {
		now := time.Now().UTC()
		in.CompletedAt = &now
		l.Debug(ctx, "previewing draft intake", logger.String("intakeID", in.ID))
	}

	start := opts.Start
	if start.IsZero() {
		loc := opts.Location
		if loc == nil {
			loc = time.UTC
		}
		y, m, d := time.Now().In(loc).Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	gp, err := gen.Generate(ctx, in, start)
	if err != nil {
		return model.GeneratedPlan{}, err
	}

	if !opts.Quiet {
		if err := Render(out, gp); err != nil {
			return gp, fmt.Errorf("render plan: %w", err)
		}
		if opts.Tables != nil {
			if err := RenderTables(out, gp, opts.Tables); err != nil {
				return gp, fmt.Errorf("render tables: %w", err)
			}
		}
	}
	if opts.JSONPath != "" {
		if err := writeJSONFile(opts.JSONPath, out, gp); err != nil {
			return gp, err
		}
		l.Info(ctx, "plan written", logger.String("path", opts.JSONPath), logger.String("planID", gp.Plan.ID))
	}
	return gp, nil
}

func writeJSONFile(path string, stdout io.Writer, gp model.GeneratedPlan) error {
	if path == "-" {
		return WriteJSON(stdout, gp)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(f, gp); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
