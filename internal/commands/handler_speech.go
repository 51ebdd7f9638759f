package commands

import (
	"context"
	"fmt"

	"github.com/pixil98/go-realm/internal/perception"
	"github.com/pixil98/go-realm/internal/trigger"
)

func (h *Handler) say(ctx context.Context, inv *Invocation) error {
	text := inv.String("text")
	if inv.Room != nil && h.invoker.Invoke(ctx, inv.Room, trigger.OnSay, inv.Actor, text) == trigger.Cancel {
		return NewUserError("Your voice makes no sound here.")
	}

	h.realm.Tell(inv.Actor, fmt.Sprintf("You say, \"%s\"", text))
	return h.emit(inv, perception.Audible, h.sayRadius, text, sayTemplates)
}

func (h *Handler) emote(ctx context.Context, inv *Invocation) error {
	text := inv.String("text")
	h.realm.Tell(inv.Actor, fmt.Sprintf("%s %s", inv.Actor.Name, text))
	return h.emit(inv, perception.Visual, h.sightRadius, text, emoteTemplates)
}
