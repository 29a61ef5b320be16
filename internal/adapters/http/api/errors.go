package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrSchema     = errors.New("payload does not match schema")
	ErrSchemaLoad = errors.New("schema compile failed")
)
