package queue

import "errors"

// ErrFull reports that a job was refused because the queue is at capacity
// or closed.
var ErrFull = errors.New("queue is full")
