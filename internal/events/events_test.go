package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pixil98/go-realm/internal/driver"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/messaging"
	"github.com/pixil98/go-realm/internal/perception"
	"github.com/pixil98/go-realm/internal/scripting"
	"github.com/pixil98/go-realm/internal/trigger"
	"github.com/pixil98/go-testutil"
)

type chanEnqueuer chan driver.Event

func (c chanEnqueuer) Enqueue(e driver.Event) error {
	select {
	case c <- e:
		return nil
	default:
		return errors.New("queue full")
	}
}

type recordingPublisher struct {
	msgs map[string][]string
}

func (p *recordingPublisher) PublishToSession(id string, msg messaging.Message) error {
	p.msgs[id] = append(p.msgs[id], msg.Text)
	return nil
}

type fixture struct {
	t     *testing.T
	enq   chanEnqueuer
	host  *scripting.LuaHost
	realm *game.Realm
	pub   *recordingPublisher
	sched *Scheduler
	room  *game.Object
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:    t,
		enq:  make(chanEnqueuer, 64),
		host: scripting.NewLuaHost(),
		pub:  &recordingPublisher{msgs: map[string][]string{}},
	}
	f.realm = game.NewRealm(f.enq, game.WithScriptHost(f.host), game.WithPublisher(f.pub))
	invoker := trigger.NewInvoker(f.host)
	f.sched = NewScheduler(f.enq, f.realm, invoker)
	engine := perception.NewEngine(f.realm, invoker)
	NewBindings(f.realm, f.sched, engine, f.enq).Register(f.host)

	room, err := f.realm.Create(game.KindRoom, "hall")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.room = room
	return f
}

func (f *fixture) actor(name string) *game.Object {
	f.t.Helper()
	o, err := f.realm.Create(game.KindCharacter, name)
	if err != nil {
		f.t.Fatalf("unexpected error: %v", err)
	}
	o.Actor.SessionID = name
	if err := f.realm.MoveTo(o, f.room); err != nil {
		f.t.Fatalf("unexpected error: %v", err)
	}
	return o
}

// run calls source with this bound to obj.
func (f *fixture) run(obj *game.Object, source string) any {
	f.t.Helper()
	fn, err := f.host.DefineFunction(source)
	if err != nil {
		f.t.Fatalf("unexpected compile error: %v", err)
	}
	defer f.host.Release(fn)

	res, err := f.host.Call(fn, obj)
	if err != nil {
		f.t.Fatalf("unexpected script error: %v", err)
	}
	return res
}

// next waits for the next queued event and processes it.
func (f *fixture) next() driver.Event {
	f.t.Helper()
	select {
	case e := <-f.enq:
		if err := e.Process(context.Background()); err != nil {
			f.t.Fatalf("unexpected process error: %v", err)
		}
		return e
	case <-time.After(5 * time.Second):
		f.t.Fatal("timed out waiting for event")
		return nil
	}
}

func prop(o *game.Object, key string) string {
	v, _ := o.Props.Value(key)
	return fmt.Sprint(v)
}

func TestScheduler_StartTimer(t *testing.T) {
	f := newFixture(t)
	bell := f.actor("bell")
	if err := f.realm.BindTrigger(bell, "on-ring", "function(self, id) set_prop(self, 'rang', id) end"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id, err := f.sched.StartTimer(bell, "on-ring", time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "owned", bell.HasTimer(id), true)

	e := f.next()
	testutil.AssertEqual(t, "describe", e.Describe(), fmt.Sprintf("timer %d on-ring on %s", id, bell.Ref()))
	testutil.AssertEqual(t, "rang", prop(bell, "rang"), fmt.Sprint(id))
	testutil.AssertEqual(t, "owned after", bell.HasTimer(id), false)
	testutil.AssertEqual(t, "pending", f.sched.Pending(), 0)
}

func TestScheduler_StartTimerDeletedOwner(t *testing.T) {
	f := newFixture(t)
	bell := f.actor("bell")
	if err := f.realm.BindTrigger(bell, "on-ring", "set_prop(self, 'rang', true)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id, err := f.sched.StartTimer(bell, "on-ring", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.realm.SoftDelete(bell.Ref()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "pending after delete", f.sched.Pending(), 0)

	// a firing that was already queued when the owner went away
	e := &TimerEvent{sched: f.sched, id: id, owner: bell.Ref(), trigger: "on-ring"}
	if err := e.Process(context.Background()); err != nil {
		t.Errorf("expected a benign skip, got %v", err)
	}
	testutil.AssertEqual(t, "rang", prop(bell, "rang"), "<nil>")

	_, err = f.sched.StartTimer(bell, "on-ring", time.Millisecond)
	if !errors.Is(err, game.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTimedScriptEvent_Timeout(t *testing.T) {
	tests := map[string]struct {
		source string
		exp    string
	}{
		"bound": {
			source: "return set_timeout(function(self) set_prop(self, 'who', name(self)) end, 1, self)",
			exp:    "lamp",
		},
		"unbound": {
			source: "local lamp = self\nreturn set_timeout(function(self) set_prop(lamp, 'who', tostring(self)) end, 1)",
			exp:    "nil",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			lamp := f.actor("lamp")

			id := f.run(lamp, tt.source)
			testutil.AssertEqual(t, "pending", f.sched.Pending(), 1)

			f.next()
			testutil.AssertEqual(t, "who", prop(lamp, "who"), tt.exp)
			testutil.AssertEqual(t, "pending after", f.sched.Pending(), 0)
			testutil.AssertEqual(t, "owned after", lamp.HasTimer(uint64(id.(int))), false)
		})
	}
}

func TestTimedScriptEvent_Interval(t *testing.T) {
	f := newFixture(t)
	lamp := f.actor("lamp")

	id := f.run(lamp, "return set_interval(function(self) set_prop(self, 'n', (prop(self, 'n') or 0) + 1) end, 1, self)")
	for range 3 {
		f.next()
	}
	testutil.AssertEqual(t, "n", prop(lamp, "n"), "3")
	testutil.AssertEqual(t, "pending", f.sched.Pending(), 1)

	cleared := f.run(lamp, fmt.Sprintf("return clear_timer(%d)", id))
	testutil.AssertEqual(t, "cleared", cleared, any(true))
	testutil.AssertEqual(t, "pending after clear", f.sched.Pending(), 0)
	testutil.AssertEqual(t, "owned after clear", lamp.HasTimer(uint64(id.(int))), false)

	again := f.run(lamp, fmt.Sprintf("return clear_timer(%d)", id))
	testutil.AssertEqual(t, "cleared twice", again, any(false))
}

func TestTimedScriptEvent_ClearsItself(t *testing.T) {
	f := newFixture(t)
	lamp := f.actor("lamp")

	f.run(lamp, `
		local id
		id = set_interval(function(self, fired)
			set_prop(self, 'fired', fired == id)
			clear_timer(id)
		end, 1, self)`)
	f.next()

	testutil.AssertEqual(t, "fired", prop(lamp, "fired"), "true")
	testutil.AssertEqual(t, "pending", f.sched.Pending(), 0)
}

func TestTimedScriptEvent_BoundObjectDeleted(t *testing.T) {
	f := newFixture(t)
	lamp := f.actor("lamp")

	id := f.run(lamp, "return set_timeout(function(self) set_prop(self, 'ran', true) end, 3600000, self)")
	if err := f.realm.SoftDelete(lamp.Ref()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "pending", f.sched.Pending(), 0)

	e := &TimedScriptEvent{sched: f.sched, id: uint64(id.(int))}
	if err := e.Process(context.Background()); err != nil {
		t.Errorf("expected a benign skip, got %v", err)
	}
	testutil.AssertEqual(t, "ran", prop(lamp, "ran"), "<nil>")
}

func TestTimedScriptEvent_Fault(t *testing.T) {
	f := newFixture(t)
	lamp := f.actor("lamp")

	f.run(lamp, "set_timeout(function(self) error('boom') end, 1, self)")
	f.next()

	testutil.AssertEqual(t, "pending", f.sched.Pending(), 0)
	testutil.AssertEqual(t, "fault recorded", f.host.HasFault(), true)
}

func TestAsyncReplyEvent(t *testing.T) {
	tests := map[string]struct {
		recipient func(f *fixture) game.Ref
		expCalled bool
	}{
		"live recipient": {
			recipient: func(f *fixture) game.Ref { return f.actor("asker").Ref() },
			expCalled: true,
		},
		"deleted recipient": {
			recipient: func(f *fixture) game.Ref {
				o := f.actor("asker")
				if err := f.realm.SoftDelete(o.Ref()); err != nil {
					f.t.Fatalf("unexpected error: %v", err)
				}
				return o.Ref()
			},
		},
		"no recipient": {
			recipient: func(*fixture) game.Ref { return game.Ref{} },
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ref := tt.recipient(f)

			called := false
			e := NewAsyncReply(f.realm, ref, "logs", func(_ context.Context, o *game.Object) error {
				called = o.Ref() == ref
				return nil
			})
			if err := e.Process(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "called", called, tt.expCalled)
		})
	}
}

func TestBindings(t *testing.T) {
	tests := map[string]struct {
		source  string
		exp     any
		expSent string
		expProp string
		expErr  string
	}{
		"name": {
			source: "return name(self)",
			exp:    "lamp",
		},
		"send": {
			source:  "return send(self, 'you flicker')",
			exp:     true,
			expSent: "[you flicker]",
		},
		"set and read a prop": {
			source:  "set_prop(self, 'lit', 'yes') return prop(self, 'lit')",
			exp:     "yes",
			expProp: "yes",
		},
		"clear a prop": {
			source:  "set_prop(self, 'lit', 'yes') set_prop(self, 'lit', nil) return prop(self, 'lit')",
			exp:     nil,
			expProp: "<nil>",
		},
		"stale handle": {
			source: "return send(nil, 'x')",
			exp:    false,
		},
		"bad timer callback": {
			source: "return set_timeout('nope', 5)",
			expErr: "bad argument",
		},
		"bad interval": {
			source: "return set_interval(function() end, 0)",
			expErr: "interval must be positive",
		},
		"bad stimulus kind": {
			source: "return emit('smell', self, 10, 'x')",
			expErr: "bad argument",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			lamp := f.actor("lamp")

			fn, err := f.host.DefineFunction(tt.source)
			if err != nil {
				t.Fatalf("unexpected compile error: %v", err)
			}
			res, err := f.host.Call(fn, lamp)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			testutil.AssertEqual(t, "result", res, tt.exp)
			if tt.expSent != "" {
				testutil.AssertEqual(t, "sent", fmt.Sprint(f.pub.msgs["lamp"]), tt.expSent)
			}
			if tt.expProp != "" {
				testutil.AssertEqual(t, "prop", prop(lamp, "lit"), tt.expProp)
			}
		})
	}
}

func TestBindings_Destroy(t *testing.T) {
	f := newFixture(t)
	lamp := f.actor("lamp")

	testutil.AssertEqual(t, "destroyed", f.run(lamp, "return destroy(self)"), any(true))
	testutil.AssertEqual(t, "lifecycle", lamp.Lifecycle(), game.MarkedDeleted)

	e := f.next()
	testutil.AssertEqual(t, "describe", e.Describe(), "delete "+lamp.Ref().String())
	testutil.AssertEqual(t, "lifecycle after", lamp.Lifecycle(), game.Destroyed)
}

func TestBindings_Emit(t *testing.T) {
	f := newFixture(t)
	lamp := f.actor("lamp")
	f.actor("guard")

	testutil.AssertEqual(t, "queued", f.run(lamp, "return emit('visual', self, 10, '{{.Actor}} flickers.')"), any(true))

	e := f.next()
	if _, ok := e.(*perception.Event); !ok {
		t.Fatalf("expected a perception event, got %T", e)
	}
	testutil.AssertEqual(t, "seen", fmt.Sprint(f.pub.msgs["guard"]), "[lamp flickers.]")
	testutil.AssertEqual(t, "not self", len(f.pub.msgs["lamp"]), 0)
}

func TestStimulusFrom(t *testing.T) {
	f := newFixture(t)
	f.room.Room.Center = game.Vec3{X: 1, Y: 2}
	holder := f.actor("holder")
	holder.Actor.Position = game.Vec3{X: 5, Y: 5}
	coin, err := f.realm.Create(game.KindItem, "coin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.realm.MoveTo(coin, holder); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loose, err := f.realm.Create(game.KindItem, "pebble")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := map[string]struct {
		obj    *game.Object
		expOK  bool
		expPos game.Vec3
	}{
		"room":         {obj: f.room, expOK: true, expPos: game.Vec3{X: 1, Y: 2}},
		"actor":        {obj: holder, expOK: true, expPos: game.Vec3{X: 5, Y: 5}},
		"carried item": {obj: coin, expOK: true, expPos: game.Vec3{X: 5, Y: 5}},
		"nowhere":      {obj: loose, expOK: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s, ok := StimulusFrom(f.realm, tt.obj)
			testutil.AssertEqual(t, "ok", ok, tt.expOK)
			if !ok {
				return
			}
			testutil.AssertEqual(t, "room", s.Room, f.room.Ref())
			testutil.AssertEqual(t, "position", s.Position, tt.expPos)
			testutil.AssertEqual(t, "actor", s.Actor, tt.obj.Ref())
		})
	}
}
