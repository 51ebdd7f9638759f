package perception

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pixil98/go-realm/internal/eventlog"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/trigger"
)

// Recorder keeps a history of what happened in the world.
type Recorder interface {
	Append(e eventlog.Entry) error
}

// Engine propagates stimuli through the realm. It must only be used from
// the driver goroutine.
type Engine struct {
	realm    *game.Realm
	invoker  *trigger.Invoker
	recorder Recorder
	render   *renderer
}

func NewEngine(realm *game.Realm, invoker *trigger.Invoker, opts ...EngineOpt) *Engine {
	e := &Engine{
		realm:   realm,
		invoker: invoker,
		render:  newRenderer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type EngineOpt func(*Engine)

// WithRecorder writes every propagation result to r.
func WithRecorder(r Recorder) EngineOpt {
	return func(e *Engine) {
		e.recorder = r
	}
}

// reach is how a room was reached by the traversal.
type reach struct {
	room     *game.Object
	distance float64
	// entry is the observer-side name of the connection the stimulus came
	// through, empty for the origin room.
	entry string
	order int
}

// Propagate delivers s to every observer it reaches and returns the
// affected set.
func (e *Engine) Propagate(ctx context.Context, s Stimulus) (Result, error) {
	origin := e.realm.Resolve(s.Room)
	if origin == nil || origin.Room == nil {
		return Result{}, fmt.Errorf("propagating from %s: %w", s.Room, ErrOriginGone)
	}

	reached := e.traverse(origin, s)
	obs := e.observe(reached, s)

	// observers are fixed before any hook runs so hooks moving things
	// around cannot change who perceives this stimulus
	for i := range obs {
		e.deliver(ctx, &obs[i], s)
	}

	res := Result{Observations: obs}
	for _, r := range reached {
		res.Rooms = append(res.Rooms, r.room.Ref())
	}

	e.record(s, res)
	return res, nil
}

// traverse walks outward from origin. A room is expanded again whenever it
// is reached by a strictly shorter path, so every recorded distance is the
// shortest one within the radius.
func (e *Engine) traverse(origin *game.Object, s Stimulus) []*reach {
	best := map[game.ObjectID]*reach{
		origin.ID(): {room: origin},
	}
	queue := []*game.Object{origin}
	order := 1

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		from := best[cur.ID()]

		for _, link := range cur.Room.Portals {
			next, entry, ok := e.follow(cur, link, s.Category)
			if !ok {
				continue
			}

			d := from.distance + cur.Room.Center.Dist(next.Room.Center)
			if d > s.Radius {
				continue
			}

			prev, seen := best[next.ID()]
			if seen && d >= prev.distance {
				continue
			}
			if seen {
				prev.distance, prev.entry = d, entry
			} else {
				best[next.ID()] = &reach{room: next, distance: d, entry: entry, order: order}
				order++
			}
			queue = append(queue, next)
		}
	}

	out := make([]*reach, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

// follow checks the near-side gate of link and returns the room beyond it
// along with the name the far room uses for the connection.
func (e *Engine) follow(cur *game.Object, link game.Ref, cat Category) (*game.Object, string, bool) {
	conn := e.realm.Resolve(link)
	if conn == nil {
		return nil, "", false
	}

	switch {
	case conn.Portal != nil:
		p := conn.Portal
		near, far, ok := p.SidesFrom(cur.Ref())
		if !ok || !p.IsOpen() {
			return nil, "", false
		}
		gate := near.SeeThroughIfOpen
		if cat == Audible {
			gate = near.HearThroughIfOpen
		}
		if !gate {
			return nil, "", false
		}
		next := e.realm.Resolve(far.Room)
		if next == nil || next.Room == nil {
			return nil, "", false
		}
		return next, far.Name, true

	case conn.Exit != nil:
		x := conn.Exit
		if x.From != cur.Ref() {
			return nil, "", false
		}
		gate := x.SeeThrough
		if cat == Audible {
			gate = x.HearThrough
		}
		if !gate {
			return nil, "", false
		}
		next := e.realm.Resolve(x.To)
		if next == nil || next.Room == nil {
			return nil, "", false
		}
		return next, e.backName(next, cur.Ref(), x.Name), true
	}

	return nil, "", false
}

// backName finds what room calls its way back to dest, falling back to
// fallback when there is none.
func (e *Engine) backName(room *game.Object, dest game.Ref, fallback string) string {
	for _, link := range room.Room.Portals {
		conn := e.realm.Resolve(link)
		if conn == nil || conn.Exit == nil {
			continue
		}
		if conn.Exit.To == dest {
			return conn.Exit.Name
		}
	}
	return fallback
}

func (e *Engine) observe(reached []*reach, s Stimulus) []Observation {
	var obs []Observation
	for i, r := range reached {
		for _, ref := range r.room.Room.Contents {
			if ref == s.Actor || !ref.Kind.IsActor() {
				continue
			}
			o := e.realm.Resolve(ref)
			if o == nil || o.Actor == nil {
				continue
			}

			ob := Observation{
				Observer: ref,
				Room:     r.room.Ref(),
				Distance: r.distance,
				Variant:  VariantDirect,
			}
			if i > 0 {
				ob.Bearing = BearingOf(o.Actor.Position, o.Actor.Facing, s.Position)
				ob.Exit = r.entry
				ob.Variant = chooseVariant(s.Templates, ob.Bearing, ob.Exit)
			}
			obs = append(obs, ob)
		}
	}
	return obs
}

func chooseVariant(t Templates, b Bearing, exit string) Variant {
	switch {
	case b != NoBearing && t.forBearing(b) != "":
		return VariantBearing
	case exit != "" && t.Exit != "":
		return VariantExit
	default:
		return VariantDirect
	}
}

func (e *Engine) deliver(ctx context.Context, ob *Observation, s Stimulus) {
	observer := e.realm.Resolve(ob.Observer)
	if observer == nil {
		return
	}

	var src string
	switch ob.Variant {
	case VariantBearing:
		src = s.Templates.forBearing(ob.Bearing)
	case VariantExit:
		src = s.Templates.Exit
	default:
		src = s.Templates.Direct
	}
	if src == "" {
		return
	}

	actorName := ""
	if actor := e.realm.Resolve(s.Actor); actor != nil {
		actorName = actor.Name
	}

	text, err := e.render.render(src, renderData{
		Actor:    actorName,
		Text:     s.Text,
		Exit:     ob.Exit,
		Bearing:  string(ob.Bearing),
		Observer: observer.Name,
		Distance: ob.Distance,
	})
	if err != nil {
		slog.WarnContext(ctx, "rendering perception", "observer", ob.Observer.String(), "error", err)
		return
	}
	ob.Text = text

	var actorArg any
	if actor := e.realm.Resolve(s.Actor); actor != nil {
		actorArg = actor
	}
	if e.invoker.Invoke(ctx, observer, s.Category.Hook(), text, actorArg) == trigger.Cancel {
		ob.Canceled = true
		return
	}

	e.realm.Tell(observer, text)
}

func (e *Engine) record(s Stimulus, res Result) {
	if e.recorder == nil {
		return
	}

	observers := make([]string, 0, len(res.Observations))
	for _, ob := range res.Observations {
		observers = append(observers, fmt.Sprintf("%s@%.1f", ob.Observer, ob.Distance))
	}

	err := e.recorder.Append(eventlog.Entry{
		Kind:    "perception",
		Subject: s.Actor.String(),
		Room:    s.Room.String(),
		Detail:  fmt.Sprintf("%s r=%.1f rooms=%d observers=%v", s.Category, s.Radius, len(res.Rooms), observers),
	})
	if err != nil {
		slog.Warn("recording perception", "error", err)
	}
}
