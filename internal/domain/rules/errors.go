package rules

import "errors"

// ErrInvalidRules is returned when a rule set fails validation.
var ErrInvalidRules = errors.New("invalid rules")
