package events

import "errors"

var (
	ErrInvalidInterval = errors.New("interval must be positive")
	ErrBadArgument     = errors.New("bad argument")
)
