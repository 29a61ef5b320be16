package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflicting write")
	ErrUnknownDriver = errors.New("unknown storage driver")
)
