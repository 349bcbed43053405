package daily

import "github.com/okian/fairway/pkg/logger"

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithMaxSessionMinutes caps a single day's training.
func WithMaxSessionMinutes(minutes int) Option {
	return func(g *Generator) {
		if minutes > 0 {
			g.maxSessionMinutes = minutes
		}
	}
}

// WithGranularity sets the rounding step for session durations.
func WithGranularity(minutes int) Option {
	return func(g *Generator) {
		if minutes > 0 {
			g.granularity = minutes
		}
	}
}

// WithCompetitionMinutes sets the duration recorded for tournament days.
func WithCompetitionMinutes(minutes int) Option {
	return func(g *Generator) {
		if minutes > 0 {
			g.competitionMinutes = minutes
		}
	}
}

// WithTaperFloor sets the load fraction reached on the day before an event.
func WithTaperFloor(floor float64) Option {
	return func(g *Generator) {
		if floor > 0 && floor < 1 {
			g.taperFloor = floor
		}
	}
}

// WithMaxConsecutiveDays sets the longest allowed run of active days.
func WithMaxConsecutiveDays(days int) Option {
	return func(g *Generator) {
		if days > 0 && days < 7 {
			g.maxConsecutive = days
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}
