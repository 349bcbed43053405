package service

import (
	"time"

	"github.com/okian/fairway/internal/domain/model"
)

// Clock supplies the current time for plan start dates.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// today returns the calendar date of now in loc as a UTC midnight.
func today(c Clock, loc *time.Location) time.Time {
	now := c.Now().In(loc)
	return model.DateOnly(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC))
}
