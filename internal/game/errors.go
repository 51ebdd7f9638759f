package game

import "errors"

var (
	ErrNotFound      = errors.New("object not found")
	ErrObjectExists  = errors.New("object already exists")
	ErrWrongKind     = errors.New("object has the wrong kind")
	ErrUnknownKind   = errors.New("unknown object kind")
	ErrNotContainer  = errors.New("object cannot hold other objects")
	ErrNotPlaceable  = errors.New("object has no location")
	ErrNoScriptHost  = errors.New("no script host configured")
	ErrInvalidObject = errors.New("invalid object")
)
