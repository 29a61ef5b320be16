package audit

import "errors"

// Audit errors.
var (
	ErrChainNotFound    = errors.New("audit chain not found")
	ErrTamperDetected   = errors.New("audit chain tamper detected")
	ErrInvalidPayload   = errors.New("audit payload must be valid JSON")
	ErrMissingBout      = errors.New("audit entry requires a bout id")
	ErrMissingEventType = errors.New("audit entry requires an event type")
)
