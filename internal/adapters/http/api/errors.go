package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest        = errors.New("bad request")
	ErrStreamUnsupported = errors.New("streaming unsupported by connection")
)
