package game

import (
	"fmt"

	"github.com/pixil98/go-realm/internal/storage"
)

// PortableForm is the serialisable snapshot of an object.
type PortableForm struct {
	ID        ObjectID               `json:"id"`
	Kind      Kind                   `json:"kind"`
	Lifecycle string                 `json:"lifecycle"`
	Name      string                 `json:"name"`
	Props     storage.ExtensionState `json:"props,omitempty"`
	Triggers  map[string]string      `json:"triggers,omitempty"`

	Room   *Room   `json:"room,omitempty"`
	Portal *Portal `json:"portal,omitempty"`
	Exit   *Exit   `json:"exit,omitempty"`
	Actor  *Actor  `json:"actor,omitempty"`
	Item   *Item   `json:"item,omitempty"`
}

func (o *Object) ToPortableForm() PortableForm {
	f := PortableForm{
		ID:        o.id,
		Kind:      o.kind,
		Lifecycle: o.lifecycle.String(),
		Name:      o.Name,
		Props:     o.Props.Clone(),
	}

	if len(o.triggers) > 0 {
		f.Triggers = make(map[string]string, len(o.triggers))
		for name, t := range o.triggers {
			f.Triggers[name] = t.source
		}
	}

	if o.Room != nil {
		room := *o.Room
		room.Portals = append([]Ref(nil), o.Room.Portals...)
		room.Contents = append([]Ref(nil), o.Room.Contents...)
		f.Room = &room
	}
	if o.Portal != nil {
		portal := *o.Portal
		f.Portal = &portal
	}
	if o.Exit != nil {
		exit := *o.Exit
		f.Exit = &exit
	}
	if o.Actor != nil {
		actor := *o.Actor
		actor.Inventory = append([]Ref(nil), o.Actor.Inventory...)
		f.Actor = &actor
	}
	if o.Item != nil {
		item := *o.Item
		f.Item = &item
	}

	return f
}

// LoadFromPortableForm overwrites o's state with f. Trigger sources are not
// compiled here; Realm.Restore binds them.
func (o *Object) LoadFromPortableForm(f PortableForm) error {
	if f.ID != o.id || f.Kind != o.kind {
		return fmt.Errorf("loading %s#%d into %s: %w", f.Kind, f.ID, o.Ref(), ErrInvalidObject)
	}

	lc, err := parseLifecycle(f.Lifecycle)
	if err != nil {
		return err
	}

	o.lifecycle = lc
	o.Name = f.Name
	o.Props = f.Props.Clone()
	if o.Props == nil {
		o.Props = storage.ExtensionState{}
	}

	if f.Room != nil {
		room := *f.Room
		o.Room = &room
	}
	if f.Portal != nil {
		portal := *f.Portal
		o.Portal = &portal
	}
	if f.Exit != nil {
		exit := *f.Exit
		o.Exit = &exit
	}
	if f.Actor != nil {
		actor := *f.Actor
		actor.SessionID = ""
		o.Actor = &actor
	}
	if f.Item != nil {
		item := *f.Item
		o.Item = &item
	}

	return nil
}

// Restore applies a portable form to the realm: destroyed forms remove the
// object, anything else creates or updates it and rebinds its triggers.
func (r *Realm) Restore(f PortableForm) error {
	if f.Lifecycle == Destroyed.String() || f.Lifecycle == MarkedDeleted.String() {
		r.Unregister(f.ID)
		return nil
	}

	o, ok := r.objects[f.ID]
	if !ok {
		o = NewObject(f.ID, f.Kind, f.Name)
		if err := r.Register(o); err != nil {
			return err
		}
	}

	if err := o.LoadFromPortableForm(f); err != nil {
		return err
	}

	for _, name := range o.TriggerNames() {
		if _, keep := f.Triggers[name]; !keep {
			r.UnbindTrigger(o, name)
		}
	}
	for name, src := range f.Triggers {
		if t, ok := o.triggers[name]; ok && t.source == src {
			continue
		}
		if err := r.BindTrigger(o, name, src); err != nil {
			return err
		}
	}

	// restored state already matches what is persisted
	delete(r.dirty, o.id)
	return nil
}
