package events

import (
	"fmt"
	"time"

	"github.com/pixil98/go-realm/internal/driver"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/perception"
	"github.com/pixil98/go-realm/internal/scripting"
)

// Bindings exposes the world to scripts. Every function runs inside a
// script call, which only ever happens on the driver goroutine.
type Bindings struct {
	realm  *game.Realm
	sched  *Scheduler
	engine *perception.Engine
	enq    driver.Enqueuer
}

func NewBindings(realm *game.Realm, sched *Scheduler, engine *perception.Engine, enq driver.Enqueuer) *Bindings {
	return &Bindings{
		realm:  realm,
		sched:  sched,
		engine: engine,
		enq:    enq,
	}
}

// Register installs the world functions into host.
func (b *Bindings) Register(host scripting.Host) {
	host.Register("send", b.send)
	host.Register("name", b.name)
	host.Register("prop", b.prop)
	host.Register("set_prop", b.setProp)
	host.Register("set_timeout", b.setTimeout)
	host.Register("set_interval", b.setInterval)
	host.Register("clear_timer", b.clearTimer)
	host.Register("start_timer", b.startTimer)
	host.Register("emit", b.emit)
	host.Register("destroy", b.destroy)
}

// send(ref, text) tells an actor something. Returns false if ref is gone.
func (b *Bindings) send(args []any) (any, error) {
	obj := b.object(args, 0)
	if obj == nil {
		return false, nil
	}
	b.realm.Tell(obj, fmt.Sprint(arg(args, 1)))
	return true, nil
}

func (b *Bindings) name(args []any) (any, error) {
	obj := b.object(args, 0)
	if obj == nil {
		return nil, nil
	}
	return obj.Name, nil
}

func (b *Bindings) prop(args []any) (any, error) {
	obj := b.object(args, 0)
	key, ok := arg(args, 1).(string)
	if obj == nil || !ok {
		return nil, nil
	}
	v, _ := obj.Props.Value(key)
	return v, nil
}

func (b *Bindings) setProp(args []any) (any, error) {
	obj := b.object(args, 0)
	if obj == nil {
		return false, nil
	}
	key, ok := arg(args, 1).(string)
	if !ok || key == "" {
		return nil, fmt.Errorf("property key: %w", ErrBadArgument)
	}

	v := arg(args, 2)
	if v == nil {
		obj.Props.Delete(key)
	} else if err := obj.Props.Set(key, v); err != nil {
		return nil, err
	}
	b.realm.MarkDirty(obj)
	return true, nil
}

// set_timeout(fn, ms, [this])
func (b *Bindings) setTimeout(args []any) (any, error) {
	fn, d, this, err := b.scriptTimerArgs(args)
	if err != nil {
		return nil, err
	}
	id, err := b.sched.SetTimeout(fn, this, d)
	if err != nil {
		return nil, err
	}
	b.realm.Host().Retain(fn)
	return int(id), nil
}

// set_interval(fn, ms, [this])
func (b *Bindings) setInterval(args []any) (any, error) {
	fn, d, this, err := b.scriptTimerArgs(args)
	if err != nil {
		return nil, err
	}
	id, err := b.sched.SetInterval(fn, this, d)
	if err != nil {
		return nil, err
	}
	b.realm.Host().Retain(fn)
	return int(id), nil
}

func (b *Bindings) scriptTimerArgs(args []any) (scripting.Callable, time.Duration, *game.Object, error) {
	fn, ok := arg(args, 0).(scripting.Callable)
	if !ok {
		return scripting.Callable{}, 0, nil, fmt.Errorf("callback: %w", ErrBadArgument)
	}
	ms, ok := number(arg(args, 1))
	if !ok {
		return scripting.Callable{}, 0, nil, fmt.Errorf("delay: %w", ErrBadArgument)
	}

	var this *game.Object
	if arg(args, 2) != nil {
		if this = b.object(args, 2); this == nil {
			return scripting.Callable{}, 0, nil, fmt.Errorf("this: %w", game.ErrNotFound)
		}
	}
	return fn, millis(ms), this, nil
}

func (b *Bindings) clearTimer(args []any) (any, error) {
	id, ok := number(arg(args, 0))
	if !ok || id <= 0 {
		return false, nil
	}
	return b.sched.Clear(uint64(id)), nil
}

// start_timer(ref, trigger, ms)
func (b *Bindings) startTimer(args []any) (any, error) {
	obj := b.object(args, 0)
	if obj == nil {
		return nil, fmt.Errorf("owner: %w", game.ErrNotFound)
	}
	name, ok := arg(args, 1).(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("trigger name: %w", ErrBadArgument)
	}
	ms, ok := number(arg(args, 2))
	if !ok {
		return nil, fmt.Errorf("delay: %w", ErrBadArgument)
	}

	id, err := b.sched.StartTimer(obj, name, millis(ms))
	if err != nil {
		return nil, err
	}
	return int(id), nil
}

// emit(kind, ref, radius, text) queues a stimulus originating at ref. kind
// is "visual" or "audible".
func (b *Bindings) emit(args []any) (any, error) {
	var cat perception.Category
	switch arg(args, 0) {
	case "visual":
		cat = perception.Visual
	case "audible", "sound":
		cat = perception.Audible
	default:
		return nil, fmt.Errorf("stimulus kind %v: %w", arg(args, 0), ErrBadArgument)
	}

	obj := b.object(args, 1)
	if obj == nil {
		return false, nil
	}
	radius, ok := number(arg(args, 2))
	if !ok || radius < 0 {
		return nil, fmt.Errorf("radius: %w", ErrBadArgument)
	}

	s, ok := StimulusFrom(b.realm, obj)
	if !ok {
		return false, nil
	}
	s.Radius = radius
	s.Category = cat
	s.Templates = perception.Uniform(fmt.Sprint(arg(args, 3)))

	if err := b.enq.Enqueue(perception.NewEvent(b.engine, s)); err != nil {
		return nil, err
	}
	return true, nil
}

func (b *Bindings) destroy(args []any) (any, error) {
	obj := b.object(args, 0)
	if obj == nil {
		return false, nil
	}
	if err := b.realm.SoftDelete(obj.Ref()); err != nil {
		return nil, err
	}
	return true, nil
}

func (b *Bindings) object(args []any, i int) *game.Object {
	return b.realm.ResolveHandle(arg(args, i))
}

// StimulusFrom fills in the origin of a stimulus caused by obj: the room it
// is in (or obj itself for a room) and its position.
func StimulusFrom(realm *game.Realm, obj *game.Object) (perception.Stimulus, bool) {
	s := perception.Stimulus{Actor: obj.Ref()}

	// an item in someone's inventory is perceived where its holder is
	var holder *game.Object
	cur := obj
	for depth := 0; cur.Room == nil; depth++ {
		if cur.Actor != nil && holder == nil {
			holder = cur
		}
		loc, ok := cur.Location()
		if !ok || depth == maxNesting {
			return s, false
		}
		if cur = realm.Resolve(loc); cur == nil {
			return s, false
		}
	}

	s.Room = cur.Ref()
	s.Position = cur.Room.Center
	if holder != nil {
		s.Position = holder.Actor.Position
	}
	return s, true
}

const maxNesting = 8

func arg(args []any, i int) any {
	if i >= len(args) {
		return nil
	}
	return args[i]
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
