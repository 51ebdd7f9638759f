package game

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-realm/internal/driver"
	"github.com/pixil98/go-realm/internal/eventlog"
	"github.com/pixil98/go-realm/internal/messaging"
	"github.com/pixil98/go-realm/internal/scripting"
)

// Persister receives the portable forms of objects dirtied by an event.
type Persister interface {
	Append(forms ...PortableForm) error
}

// Recorder keeps a history of destroyed objects.
type Recorder interface {
	Append(e eventlog.Entry) error
}

// Realm owns every world object. Apart from AllocateID it must only be used
// from the driver goroutine.
type Realm struct {
	enq       driver.Enqueuer
	host      scripting.Host
	persister Persister
	publisher Publisher
	recorder  Recorder

	nextID  atomic.Uint64
	objects map[ObjectID]*Object
	dirty   map[ObjectID]*Object
}

func NewRealm(enq driver.Enqueuer, opts ...RealmOpt) *Realm {
	r := &Realm{
		enq:     enq,
		objects: map[ObjectID]*Object{},
		dirty:   map[ObjectID]*Object{},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Host returns the script host, which may be nil.
func (r *Realm) Host() scripting.Host {
	return r.host
}

// AllocateID returns an id no registered object uses. Ids are unique across
// kinds. Safe for concurrent use.
func (r *Realm) AllocateID() ObjectID {
	return ObjectID(r.nextID.Add(1))
}

// reserveID makes sure the allocator never hands out id.
func (r *Realm) reserveID(id ObjectID) {
	for {
		cur := r.nextID.Load()
		if cur >= uint64(id) || r.nextID.CompareAndSwap(cur, uint64(id)) {
			return
		}
	}
}

func (r *Realm) Register(o *Object) error {
	if o == nil || o.id == 0 {
		return fmt.Errorf("registering object: %w", ErrInvalidObject)
	}
	if !o.kind.Valid() {
		return fmt.Errorf("registering %s: %w", o.Ref(), ErrUnknownKind)
	}
	if _, ok := r.objects[o.id]; ok {
		return fmt.Errorf("registering %s: %w", o.Ref(), ErrObjectExists)
	}

	r.reserveID(o.id)
	r.objects[o.id] = o
	r.MarkDirty(o)
	return nil
}

// Create allocates, builds and registers a new object.
func (r *Realm) Create(kind Kind, name string) (*Object, error) {
	o := NewObject(r.AllocateID(), kind, name)
	if err := r.Register(o); err != nil {
		return nil, err
	}
	return o, nil
}

// Unregister removes an object from the registry regardless of its
// lifecycle. Normal deletion goes through SoftDelete.
func (r *Realm) Unregister(id ObjectID) {
	delete(r.objects, id)
}

// Lookup returns the live object with id, or nil.
func (r *Realm) Lookup(id ObjectID) *Object {
	o, ok := r.objects[id]
	if !ok || !o.Live() {
		return nil
	}
	return o
}

// LookupKind is Lookup restricted to one kind.
func (r *Realm) LookupKind(kind Kind, id ObjectID) *Object {
	o := r.Lookup(id)
	if o == nil || o.kind != kind {
		return nil
	}
	return o
}

// Resolve turns a reference into the live object it names, or nil.
func (r *Realm) Resolve(ref Ref) *Object {
	return r.LookupKind(ref.Kind, ref.ID)
}

// ResolveHandle resolves a handle coming back from a script.
func (r *Realm) ResolveHandle(v any) *Object {
	h, ok := v.(scripting.Handle)
	if !ok {
		return nil
	}
	kind, id := h.ScriptHandle()
	return r.Resolve(Ref{Kind: Kind(kind), ID: ObjectID(id)})
}

// Each returns a snapshot of the live objects of kind ordered by id.
// Objects deleted while the caller walks the snapshot stay in it; check
// Live before acting on an entry.
func (r *Realm) Each(kind Kind) []*Object {
	var out []*Object
	for _, o := range r.objects {
		if o.kind == kind && o.Live() {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Count returns the number of registered objects in any lifecycle state.
func (r *Realm) Count() int {
	return len(r.objects)
}

// SoftDelete marks the object deleted and schedules its destruction. From
// this point every lookup reports it missing.
func (r *Realm) SoftDelete(ref Ref) error {
	o := r.Resolve(ref)
	if o == nil {
		return fmt.Errorf("deleting %s: %w", ref, ErrNotFound)
	}

	o.lifecycle = MarkedDeleted
	o.cancelTimers()
	r.detach(o)
	r.MarkDirty(o)

	if err := r.enq.Enqueue(&DeleteObjectEvent{realm: r, ref: ref}); err != nil {
		return fmt.Errorf("scheduling destroy of %s: %w", ref, err)
	}
	return r.deleteCarried(o)
}

// deleteCarried soft-deletes everything an actor holds. Room contents are
// left alone.
func (r *Realm) deleteCarried(o *Object) error {
	if o.Actor == nil || len(o.Actor.Inventory) == 0 {
		return nil
	}
	carried := o.Actor.Inventory
	o.Actor.Inventory = nil

	el := errors.NewErrorList()
	for _, ref := range carried {
		if r.Resolve(ref) == nil {
			continue
		}
		if err := r.SoftDelete(ref); err != nil {
			el.Add(err)
		}
	}
	return el.Err()
}

// destroy performs the final lifecycle transition.
func (r *Realm) destroy(ctx context.Context, ref Ref) {
	o, ok := r.objects[ref.ID]
	if !ok || o.kind != ref.Kind || o.lifecycle == Destroyed {
		slog.InfoContext(ctx, "object already destroyed", "object", ref.String())
		return
	}
	if o.lifecycle == Live {
		slog.WarnContext(ctx, "refusing to destroy live object", "object", ref.String())
		return
	}

	o.lifecycle = Destroyed
	if r.host != nil {
		for _, t := range o.triggers {
			r.host.Release(t.fn)
		}
	}
	o.triggers = map[string]trigger{}
	r.Unregister(o.id)
	r.MarkDirty(o)

	if r.recorder != nil {
		err := r.recorder.Append(eventlog.Entry{Kind: "delete", Subject: ref.String(), Detail: o.Name})
		if err != nil {
			slog.WarnContext(ctx, "recording deletion", "object", ref.String(), "error", err)
		}
	}
}

// detach removes o from whatever contains it.
func (r *Realm) detach(o *Object) {
	loc, ok := o.Location()
	if !ok || loc.IsZero() {
		return
	}
	if container := r.Resolve(loc); container != nil {
		if c, ok := container.contents(); ok {
			*c = removeRef(*c, o.Ref())
			r.MarkDirty(container)
		}
	}
}

// MoveTo puts o inside dest, taking it out of its current container.
func (r *Realm) MoveTo(o *Object, dest *Object) error {
	if o == nil || !o.Live() {
		return fmt.Errorf("moving object: %w", ErrNotFound)
	}
	if dest == nil || !dest.Live() {
		return fmt.Errorf("moving %s: destination %w", o.Ref(), ErrNotFound)
	}
	if _, ok := o.Location(); !ok {
		return fmt.Errorf("moving %s: %w", o.Ref(), ErrNotPlaceable)
	}
	c, ok := dest.contents()
	if !ok {
		return fmt.Errorf("moving %s into %s: %w", o.Ref(), dest.Ref(), ErrNotContainer)
	}

	r.detach(o)
	*c = append(*c, o.Ref())
	o.setLocation(dest.Ref())

	r.MarkDirty(o)
	r.MarkDirty(dest)
	return nil
}

// BindTrigger compiles source and binds it to o under name, replacing any
// previous binding.
func (r *Realm) BindTrigger(o *Object, name, source string) error {
	if r.host == nil {
		return ErrNoScriptHost
	}

	fn, err := r.host.DefineFunction(source)
	if err != nil {
		return fmt.Errorf("binding %s on %s: %w", name, o.Ref(), err)
	}

	if old, ok := o.triggers[name]; ok {
		r.host.Release(old.fn)
	}
	o.triggers[name] = trigger{source: source, fn: fn}
	r.MarkDirty(o)
	return nil
}

// UnbindTrigger removes a trigger from o.
func (r *Realm) UnbindTrigger(o *Object, name string) {
	old, ok := o.triggers[name]
	if !ok {
		return
	}
	if r.host != nil {
		r.host.Release(old.fn)
	}
	delete(o.triggers, name)
	r.MarkDirty(o)
}

// MarkDirty queues o for the next flush.
func (r *Realm) MarkDirty(o *Object) {
	r.dirty[o.id] = o
}

// Dirty returns the refs of the objects awaiting a flush, ordered by id.
func (r *Realm) Dirty() []Ref {
	out := make([]Ref, 0, len(r.dirty))
	for _, o := range r.sortedDirty() {
		out = append(out, o.Ref())
	}
	return out
}

func (r *Realm) sortedDirty() []*Object {
	objs := make([]*Object, 0, len(r.dirty))
	for _, o := range r.dirty {
		objs = append(objs, o)
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].id < objs[j].id })
	return objs
}

// FlushDirty hands the dirty objects to the persister and clears the set.
// It runs after every processed event.
func (r *Realm) FlushDirty(ctx context.Context) error {
	if len(r.dirty) == 0 {
		return nil
	}

	objs := r.sortedDirty()
	r.dirty = map[ObjectID]*Object{}

	if r.persister == nil {
		return nil
	}

	forms := make([]PortableForm, 0, len(objs))
	for _, o := range objs {
		forms = append(forms, o.ToPortableForm())
	}

	if err := r.persister.Append(forms...); err != nil {
		return fmt.Errorf("persisting %d objects: %w", len(forms), err)
	}
	return nil
}

// Tell sends text to the session controlling o, if any.
func (r *Realm) Tell(o *Object, text string) {
	r.publish(o, messaging.Message{Text: text})
}

// SendStatus pushes o's vitals to its session.
func (r *Realm) SendStatus(o *Object) {
	if o == nil || o.Actor == nil {
		return
	}
	r.publish(o, messaging.Message{Status: StatusOf(o)})
}

// Hangup sends text and asks the transport to end o's session.
func (r *Realm) Hangup(o *Object, text string) {
	r.publish(o, messaging.Message{Text: text, Close: true})
}

func (r *Realm) publish(o *Object, msg messaging.Message) {
	if r.publisher == nil || o == nil || o.Actor == nil || o.Actor.SessionID == "" {
		return
	}
	if err := r.publisher.PublishToSession(o.Actor.SessionID, msg); err != nil {
		slog.Warn("publishing to session", "object", o.Ref().String(), "session", o.Actor.SessionID, "error", err)
	}
}

// StatusOf returns the status fields of an actor.
func StatusOf(o *Object) *messaging.Status {
	if o == nil || o.Actor == nil {
		return nil
	}
	return &messaging.Status{
		Health:    o.Actor.Health,
		MaxHealth: o.Actor.MaxHealth,
		Energy:    o.Actor.Energy,
		MaxEnergy: o.Actor.MaxEnergy,
	}
}
