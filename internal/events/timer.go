package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-realm/internal/game"
)

// TimerEvent fires a trigger on the object that scheduled it.
type TimerEvent struct {
	sched   *Scheduler
	id      uint64
	owner   game.Ref
	trigger string
}

func (e *TimerEvent) Process(ctx context.Context) error {
	if _, ok := e.sched.timers[e.id]; !ok {
		slog.InfoContext(ctx, "skipping cleared timer", "event", e.Describe())
		return nil
	}
	e.sched.forget(e.id)

	owner := e.sched.realm.Resolve(e.owner)
	if owner == nil {
		slog.InfoContext(ctx, "skipping timer for deleted owner", "event", e.Describe())
		return nil
	}
	owner.RemoveTimer(e.id)

	e.sched.invoker.Invoke(ctx, owner, e.trigger, e.id)
	return nil
}

func (e *TimerEvent) Describe() string {
	return fmt.Sprintf("timer %d %s on %s", e.id, e.trigger, e.owner)
}

// TimedScriptEvent runs a script callable scheduled by set_timeout or
// set_interval.
type TimedScriptEvent struct {
	sched *Scheduler
	id    uint64
}

func (e *TimedScriptEvent) Process(ctx context.Context) error {
	t, ok := e.sched.timers[e.id]
	if !ok {
		slog.InfoContext(ctx, "skipping cleared timer", "event", e.Describe())
		return nil
	}

	var this *game.Object
	if !t.owner.IsZero() {
		this = e.sched.realm.Resolve(t.owner)
		if this == nil {
			slog.InfoContext(ctx, "skipping timer for deleted object", "event", e.Describe(), "object", t.owner.String())
			e.sched.forget(e.id)
			return nil
		}
	}

	host := e.sched.realm.Host()
	if host == nil {
		e.sched.forget(e.id)
		return game.ErrNoScriptHost
	}

	var thisArg any
	if this != nil {
		thisArg = this
	}
	if _, err := host.Call(t.fn, thisArg, e.id); err != nil {
		slog.WarnContext(ctx, "timer fault", "object", t.owner.String(), "timer", t.name(), "error", err)
	}

	// the callable may have cleared its own timer
	if _, ok := e.sched.timers[e.id]; !ok {
		return nil
	}
	if t.interval > 0 {
		e.sched.rearm(t)
		return nil
	}
	if this != nil {
		this.RemoveTimer(e.id)
	}
	e.sched.forget(e.id)
	return nil
}

func (e *TimedScriptEvent) Describe() string {
	return fmt.Sprintf("script timer %d", e.id)
}
