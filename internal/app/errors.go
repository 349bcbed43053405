package service

import (
	"errors"

	"github.com/okian/fairway/internal/adapters/mq/queue"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted = errors.New("service not started")
	ErrQueueFull  = queue.ErrFull
)
