package player

import "errors"

var (
	ErrNoStartRoom    = errors.New("start room does not exist")
	ErrSessionUnknown = errors.New("session unknown")
)
