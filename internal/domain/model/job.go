package model

import "time"

// RegenerationJob asks the worker pool to regenerate a player's plan from
// their latest completed intake.
type RegenerationJob struct {
	ID          string    `json:"id"`
	PlayerID    string    `json:"player_id"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
