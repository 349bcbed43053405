package loadtest

import "time"

// Worker configuration constants.
const (
	DefaultWorkers     = 8
	DefaultPlayers     = 200
	DefaultTimeout     = 30 * time.Second
	DefaultSettleDelay = 5 * time.Second
)

// Plan shape checked by verification.
const (
	maxRunOfActiveDays = 6
	percentage         = 100
)
