package peaking

import "errors"

// ErrOutsideHorizon is returned when a tournament handed to the scheduler
// lies outside the timeline. Callers split tournaments by horizon first.
var ErrOutsideHorizon = errors.New("tournament outside plan horizon")
