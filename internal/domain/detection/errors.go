// Package detection filters raw detections and fuses multi-camera views of the same action.
package detection

import "errors"

// Rejection reasons. They are reported as decisions and never surfaced as request failures.
var (
	ErrLowConfidence         = errors.New("low confidence")
	ErrDuplicateWithinWindow = errors.New("duplicate within window")
)
