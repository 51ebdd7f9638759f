// Package events holds the loop events that scripts and off-loop work use to
// get back onto the driver goroutine.
package events

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pixil98/go-realm/internal/driver"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/scripting"
	"github.com/pixil98/go-realm/internal/trigger"
)

type timer struct {
	id       uint64
	owner    game.Ref
	trigger  string
	fn       scripting.Callable
	interval time.Duration
	t        *time.Timer
	fire     func()
}

func (t *timer) name() string {
	if t.trigger != "" {
		return t.trigger
	}
	if t.interval > 0 {
		return fmt.Sprintf("interval#%d", t.id)
	}
	return fmt.Sprintf("timeout#%d", t.id)
}

// Scheduler arms wall-clock timers whose only effect is to enqueue an event.
// All methods must be called from the driver goroutine; the timer callbacks
// themselves touch nothing but the queue.
type Scheduler struct {
	enq     driver.Enqueuer
	realm   *game.Realm
	invoker *trigger.Invoker

	nextID atomic.Uint64
	timers map[uint64]*timer
}

func NewScheduler(enq driver.Enqueuer, realm *game.Realm, invoker *trigger.Invoker) *Scheduler {
	return &Scheduler{
		enq:     enq,
		realm:   realm,
		invoker: invoker,
		timers:  map[uint64]*timer{},
	}
}

// StartTimer fires owner's trigger called name once after d.
func (s *Scheduler) StartTimer(owner *game.Object, name string, d time.Duration) (uint64, error) {
	if owner == nil || !owner.Live() {
		return 0, fmt.Errorf("starting timer %s: %w", name, game.ErrNotFound)
	}
	t := &timer{id: s.nextID.Add(1), owner: owner.Ref(), trigger: name}
	s.arm(t, d, func() driver.Event {
		return &TimerEvent{sched: s, id: t.id, owner: t.owner, trigger: name}
	})
	owner.AddTimer(t.id, s.canceler(t.id))
	return t.id, nil
}

// SetTimeout calls fn once after d. When this is not nil the call is bound
// to it and is dropped if it is deleted first.
func (s *Scheduler) SetTimeout(fn scripting.Callable, this *game.Object, d time.Duration) (uint64, error) {
	return s.setScript(fn, this, d, 0)
}

// SetInterval calls fn every d until cleared.
func (s *Scheduler) SetInterval(fn scripting.Callable, this *game.Object, d time.Duration) (uint64, error) {
	if d <= 0 {
		return 0, ErrInvalidInterval
	}
	return s.setScript(fn, this, d, d)
}

func (s *Scheduler) setScript(fn scripting.Callable, this *game.Object, d, interval time.Duration) (uint64, error) {
	if !fn.Defined() {
		return 0, scripting.ErrNoCallable
	}
	t := &timer{id: s.nextID.Add(1), fn: fn, interval: interval}
	if this != nil {
		if !this.Live() {
			return 0, fmt.Errorf("binding timer: %w", game.ErrNotFound)
		}
		t.owner = this.Ref()
		this.AddTimer(t.id, s.canceler(t.id))
	}
	s.arm(t, d, func() driver.Event {
		return &TimedScriptEvent{sched: s, id: t.id}
	})
	return t.id, nil
}

// Clear cancels a pending timer. It reports whether the timer existed.
func (s *Scheduler) Clear(id uint64) bool {
	t, ok := s.timers[id]
	if !ok {
		return false
	}
	if owner := s.realm.Resolve(t.owner); owner != nil {
		owner.RemoveTimer(id)
	}
	t.t.Stop()
	s.forget(id)
	return true
}

// Pending returns the number of timers that have not fired or been cleared.
func (s *Scheduler) Pending() int {
	return len(s.timers)
}

func (s *Scheduler) arm(t *timer, d time.Duration, build func() driver.Event) {
	if d < 0 {
		d = 0
	}
	t.fire = func() {
		ev := build()
		if err := s.enq.Enqueue(ev); err != nil {
			slog.Warn("dropping timer", "event", ev.Describe(), "error", err)
		}
	}
	s.timers[t.id] = t
	t.t = time.AfterFunc(d, t.fire)
}

// rearm schedules the next firing of an interval timer.
func (s *Scheduler) rearm(t *timer) {
	t.t = time.AfterFunc(t.interval, t.fire)
}

// canceler is what an owner holds so deleting it stops the timer.
func (s *Scheduler) canceler(id uint64) func() bool {
	return func() bool {
		t, ok := s.timers[id]
		if !ok {
			return false
		}
		stopped := t.t.Stop()
		s.forget(id)
		return stopped
	}
}

func (s *Scheduler) forget(id uint64) {
	t, ok := s.timers[id]
	if !ok {
		return
	}
	delete(s.timers, id)
	if t.fn.Defined() {
		if host := s.realm.Host(); host != nil {
			host.Release(t.fn)
		}
	}
}
