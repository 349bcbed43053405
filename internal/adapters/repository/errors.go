package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidRecord = errors.New("record is missing its id or player id")
	ErrDuplicatePlan = errors.New("plan already exists")
)
