package queue

import "errors"

// ErrQueueFull is reported by callers that treat a rejected enqueue as an error.
var ErrQueueFull = errors.New("rescore queue full")
