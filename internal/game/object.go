package game

import (
	"sort"

	"github.com/pixil98/go-realm/internal/scripting"
	"github.com/pixil98/go-realm/internal/storage"
)

type trigger struct {
	source string
	fn     scripting.Callable
}

// Object is a single world entity. Exactly one of the capability
// components is set, chosen by kind; realm and area objects carry none.
type Object struct {
	id        ObjectID
	kind      Kind
	lifecycle Lifecycle

	Name  string
	Props storage.ExtensionState

	Room   *Room
	Portal *Portal
	Exit   *Exit
	Actor  *Actor
	Item   *Item

	triggers map[string]trigger
	timers   map[uint64]func() bool
}

// NewObject creates an unregistered object with the component for kind.
func NewObject(id ObjectID, kind Kind, name string) *Object {
	o := &Object{
		id:       id,
		kind:     kind,
		Name:     name,
		Props:    storage.ExtensionState{},
		triggers: map[string]trigger{},
		timers:   map[uint64]func() bool{},
	}

	switch kind {
	case KindRoom:
		o.Room = &Room{}
	case KindPortal:
		o.Portal = &Portal{}
	case KindExit:
		o.Exit = &Exit{}
	case KindPlayer, KindCharacter:
		o.Actor = &Actor{}
	case KindItem:
		o.Item = &Item{}
	}

	return o
}

func (o *Object) ID() ObjectID {
	return o.id
}

func (o *Object) Kind() Kind {
	return o.kind
}

func (o *Object) Ref() Ref {
	return Ref{Kind: o.kind, ID: o.id}
}

func (o *Object) Lifecycle() Lifecycle {
	return o.lifecycle
}

// Live reports whether the object has not been deleted. Code iterating a
// snapshot checks this to skip objects deleted mid-iteration.
func (o *Object) Live() bool {
	return o.lifecycle == Live
}

func (o *Object) ScriptHandle() (string, uint64) {
	return string(o.kind), uint64(o.id)
}

// Trigger returns the callable bound to name.
func (o *Object) Trigger(name string) (scripting.Callable, bool) {
	t, ok := o.triggers[name]
	if !ok || !t.fn.Defined() {
		return scripting.Callable{}, false
	}
	return t.fn, true
}

// TriggerNames returns the bound trigger names in sorted order.
func (o *Object) TriggerNames() []string {
	names := make([]string, 0, len(o.triggers))
	for n := range o.triggers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AddTimer records a cancel func for a pending timer owned by the object.
func (o *Object) AddTimer(id uint64, cancel func() bool) {
	o.timers[id] = cancel
}

// RemoveTimer forgets a timer without cancelling it.
func (o *Object) RemoveTimer(id uint64) {
	delete(o.timers, id)
}

// HasTimer reports whether the timer is still owned by the object.
func (o *Object) HasTimer(id uint64) bool {
	_, ok := o.timers[id]
	return ok
}

func (o *Object) cancelTimers() int {
	n := 0
	for id, cancel := range o.timers {
		if cancel() {
			n++
		}
		delete(o.timers, id)
	}
	return n
}

// Location returns the container of a placeable object.
func (o *Object) Location() (Ref, bool) {
	switch {
	case o.Actor != nil:
		return o.Actor.Location, true
	case o.Item != nil:
		return o.Item.Location, true
	default:
		return Ref{}, false
	}
}

func (o *Object) setLocation(r Ref) {
	switch {
	case o.Actor != nil:
		o.Actor.Location = r
	case o.Item != nil:
		o.Item.Location = r
	}
}

// contents returns the slice holding what the object contains.
func (o *Object) contents() (*[]Ref, bool) {
	switch {
	case o.Room != nil:
		return &o.Room.Contents, true
	case o.Actor != nil:
		return &o.Actor.Inventory, true
	default:
		return nil, false
	}
}

// Contents returns a copy of the refs the object holds.
func (o *Object) Contents() []Ref {
	c, ok := o.contents()
	if !ok {
		return nil
	}
	return append([]Ref(nil), (*c)...)
}

func removeRef(refs []Ref, r Ref) []Ref {
	for i, x := range refs {
		if x == r {
			return append(refs[:i], refs[i+1:]...)
		}
	}
	return refs
}
