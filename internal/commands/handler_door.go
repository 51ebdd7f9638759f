package commands

import (
	"context"
	"fmt"

	"github.com/pixil98/go-realm/internal/perception"
	"github.com/pixil98/go-realm/internal/trigger"
)

func (h *Handler) openDoor(ctx context.Context, inv *Invocation) error {
	return h.setDoor(ctx, inv, true)
}

func (h *Handler) closeDoor(ctx context.Context, inv *Invocation) error {
	return h.setDoor(ctx, inv, false)
}

// setDoor opens or closes the door the actor named. The door's hook can
// veto the change, in which case nothing happens and nobody sees anything.
func (h *Handler) setDoor(ctx context.Context, inv *Invocation, open bool) error {
	verb, hook, templates := "close", trigger.OnClose, closeTemplates
	if open {
		verb, hook, templates = "open", trigger.OnOpen, openTemplates
	}

	if inv.Room == nil {
		return NewUserError("You are nowhere at all.")
	}
	name := inv.String("exit")
	w, ok := h.findWay(inv.Room, name)
	if !ok {
		return NewUserError(fmt.Sprintf("You don't see %q here.", name))
	}
	if !w.door {
		return NewUserError(fmt.Sprintf("There is nothing to %s there.", verb))
	}
	if w.open == open {
		state := "closed"
		if open {
			state = "open"
		}
		return NewUserError(fmt.Sprintf("The %s is already %s.", w.name, state))
	}

	if h.invoker.Invoke(ctx, w.conn, hook, inv.Actor) == trigger.Cancel {
		return NewUserError(fmt.Sprintf("You can't %s the %s.", verb, w.name))
	}

	w.conn.Portal.Open = open
	h.realm.MarkDirty(w.conn)

	h.realm.Tell(inv.Actor, fmt.Sprintf("You %s the %s.", verb, w.name))
	return h.emit(inv, perception.Visual, h.sightRadius, w.name, templates)
}
