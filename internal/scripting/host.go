// Package scripting isolates the embedded script runtime behind a narrow
// interface. Callers hold opaque Callable handles and exchange plain Go
// values; nothing outside this package sees the runtime's representation.
package scripting

import (
	"errors"
)

var (
	ErrNoCallable   = errors.New("callable is not defined")
	ErrNotCallable  = errors.New("source does not evaluate to a function")
	ErrHostReleased = errors.New("script host has been closed")
)

// Callable is an opaque handle to a function defined in the host.
// The zero value refers to nothing.
type Callable struct {
	slot int
}

// Defined reports whether the handle refers to a function.
func (c Callable) Defined() bool {
	return c.slot > 0
}

// Handle is implemented by values that cross into scripts as object handles.
type Handle interface {
	ScriptHandle() (kind string, id uint64)
}

// HandleValue is how an object handle comes back out of a script.
type HandleValue struct {
	Kind string
	ID   uint64
}

func (h HandleValue) ScriptHandle() (string, uint64) {
	return h.Kind, h.ID
}

// GoFunction is a Go callback exposed to scripts under a global name.
// Arguments and results use the same value mapping as Call.
type GoFunction func(args []any) (any, error)

// Host is the contract the world core needs from a script runtime.
//
// Values crossing the boundary are mapped as: nil, bool, float64/int
// (numbers), string, []any (sequences), map[string]any (tables), Handle
// (object handles) and Callable (functions). A function handed to Go is
// borrowed: it stays callable until the host is next entered from the top
// level unless it is passed to Retain.
type Host interface {
	Evaluate(source string) error
	DefineFunction(source string) (Callable, error)
	Call(fn Callable, this any, args ...any) (any, error)
	Retain(fn Callable)
	Release(fn Callable)
	Register(name string, fn GoFunction)
	HasFault() bool
	LastFault() error
	Close() error
}
