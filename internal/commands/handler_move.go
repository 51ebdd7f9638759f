package commands

import (
	"context"
	"fmt"

	"github.com/pixil98/go-realm/internal/perception"
	"github.com/pixil98/go-realm/internal/trigger"
)

func (h *Handler) move(ctx context.Context, inv *Invocation) error {
	if inv.Room == nil {
		return NewUserError("You are nowhere at all.")
	}

	name := inv.String("exit")
	w, ok := h.findWay(inv.Room, name)
	if !ok || !w.passable {
		return NewUserError("You can't go that way.")
	}
	if !w.open {
		return NewUserError(fmt.Sprintf("The %s is closed.", w.name))
	}

	dest := h.realm.Resolve(w.dest)
	if dest == nil || dest.Room == nil {
		return NewUserError("You can't go that way.")
	}

	if h.invoker.Invoke(ctx, w.conn, trigger.OnPass, inv.Actor) == trigger.Cancel {
		return NewUserError("Something stops you from going that way.")
	}

	// leaving is seen from where the actor stood
	if err := h.emit(inv, perception.Visual, h.sightRadius, w.name, leaveTemplates); err != nil {
		return err
	}

	from := inv.Room
	if err := h.realm.MoveTo(inv.Actor, dest); err != nil {
		return fmt.Errorf("moving %s: %w", inv.Actor.Ref(), err)
	}
	if a := inv.Actor.Actor; a != nil {
		if heading := dest.Room.Center.Sub(from.Room.Center); !heading.IsZero() {
			a.Facing = heading
		}
		a.Position = dest.Room.Center
	}

	h.invoker.Invoke(ctx, from, trigger.OnLeave, inv.Actor)
	h.invoker.Invoke(ctx, dest, trigger.OnEnter, inv.Actor)

	// an enter hook may have moved the actor on again
	loc, _ := inv.Actor.Location()
	if loc != dest.Ref() || !inv.Actor.Live() {
		return nil
	}

	arrived := &Invocation{Actor: inv.Actor, Room: dest}
	if err := h.emit(arrived, perception.Visual, h.sightRadius, "", arriveTemplates); err != nil {
		return err
	}
	h.realm.Tell(inv.Actor, h.describeRoom(dest, inv.Actor))
	return nil
}
