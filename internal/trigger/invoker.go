// Package trigger runs the script callables bound to object hooks.
package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/scripting"
)

// Outcome tells the caller whether to carry on with the action a trigger
// was fired for.
type Outcome int

const (
	Proceed Outcome = iota
	Cancel
)

func (o Outcome) String() string {
	if o == Cancel {
		return "cancel"
	}
	return "proceed"
}

const (
	OnOpen   = "on-open"
	OnClose  = "on-close"
	OnTake   = "on-take"
	OnDrop   = "on-drop"
	OnPass   = "on-pass"
	OnSay    = "on-say"
	OnVisual = "on-visual"
	OnSound  = "on-sound"
	OnEnter  = "on-enter"
	OnLeave  = "on-leave"
	OnSpawn  = "on-spawn"
)

var cancelable = map[string]bool{
	OnOpen:   true,
	OnClose:  true,
	OnTake:   true,
	OnDrop:   true,
	OnPass:   true,
	OnSay:    true,
	OnVisual: true,
	OnSound:  true,
}

// IsCancelable reports whether a false result from the named trigger
// cancels the action.
func IsCancelable(name string) bool {
	return cancelable[name]
}

// Invoker calls triggers synchronously on the driver goroutine.
type Invoker struct {
	host scripting.Host
}

func NewInvoker(host scripting.Host) *Invoker {
	return &Invoker{host: host}
}

// Invoke runs obj's trigger called name with obj as this. Missing triggers
// and faulting scripts proceed.
func (i *Invoker) Invoke(ctx context.Context, obj *game.Object, name string, args ...any) Outcome {
	res, ok := i.Call(ctx, obj, name, args...)
	if !ok || !IsCancelable(name) {
		return Proceed
	}
	if b, isBool := res.(bool); isBool && !b {
		return Cancel
	}
	return Proceed
}

// Call runs the trigger and returns its result. ok is false when there was
// nothing to run or the script faulted.
func (i *Invoker) Call(ctx context.Context, obj *game.Object, name string, args ...any) (res any, ok bool) {
	if i.host == nil || obj == nil || !obj.Live() {
		return nil, false
	}
	fn, bound := obj.Trigger(name)
	if !bound {
		return nil, false
	}

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "trigger panicked", "object", obj.Ref().String(), "trigger", name, "panic", fmt.Sprint(r))
			res, ok = nil, false
		}
	}()

	res, err := i.host.Call(fn, obj, args...)
	if err != nil {
		slog.WarnContext(ctx, "trigger fault", "object", obj.Ref().String(), "trigger", name, "error", err)
		return nil, false
	}
	return res, true
}
