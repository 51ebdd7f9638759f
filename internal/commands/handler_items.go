package commands

import (
	"context"
	"fmt"

	"github.com/pixil98/go-realm/internal/perception"
	"github.com/pixil98/go-realm/internal/trigger"
)

func (h *Handler) take(ctx context.Context, inv *Invocation) error {
	if inv.Room == nil {
		return NewUserError("You are nowhere at all.")
	}
	name := inv.String("item")
	item := h.findIn(inv.Room.Room.Contents, name, isItem)
	if item == nil {
		return NewUserError(fmt.Sprintf("You don't see %q here.", name))
	}

	if h.invoker.Invoke(ctx, item, trigger.OnTake, inv.Actor) == trigger.Cancel {
		return NewUserError(fmt.Sprintf("You can't take %s.", item.Name))
	}
	// the hook may have done something with the item itself
	if loc, _ := item.Location(); !item.Live() || loc != inv.Room.Ref() {
		return nil
	}

	if err := h.realm.MoveTo(item, inv.Actor); err != nil {
		return fmt.Errorf("taking %s: %w", item.Ref(), err)
	}
	h.realm.Tell(inv.Actor, fmt.Sprintf("You take %s.", item.Name))
	return h.emit(inv, perception.Visual, h.sightRadius, item.Name, takeTemplates)
}

func (h *Handler) drop(ctx context.Context, inv *Invocation) error {
	if inv.Room == nil {
		return NewUserError("You are nowhere at all.")
	}
	name := inv.String("item")
	item := h.findIn(inv.Actor.Contents(), name, isItem)
	if item == nil {
		return NewUserError(fmt.Sprintf("You aren't carrying %q.", name))
	}

	if h.invoker.Invoke(ctx, item, trigger.OnDrop, inv.Actor) == trigger.Cancel {
		return NewUserError(fmt.Sprintf("You can't drop %s.", item.Name))
	}
	if loc, _ := item.Location(); !item.Live() || loc != inv.Actor.Ref() {
		return nil
	}

	if err := h.realm.MoveTo(item, inv.Room); err != nil {
		return fmt.Errorf("dropping %s: %w", item.Ref(), err)
	}
	h.realm.Tell(inv.Actor, fmt.Sprintf("You drop %s.", item.Name))
	return h.emit(inv, perception.Visual, h.sightRadius, item.Name, dropTemplates)
}
