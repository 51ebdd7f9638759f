package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixil98/go-realm/internal/game"
)

func (h *Handler) look(ctx context.Context, inv *Invocation) error {
	if inv.Room == nil {
		return NewUserError("You are nowhere at all.")
	}

	if name := inv.String("target"); name != "" {
		return h.lookAt(ctx, inv, name)
	}

	h.realm.Tell(inv.Actor, h.describeRoom(inv.Room, inv.Actor))
	return nil
}

// describeRoom renders what viewer sees on entering or looking around room.
func (h *Handler) describeRoom(room, viewer *game.Object) string {
	lines := []string{room.Name}
	if room.Room.Description != "" {
		lines = append(lines, room.Room.Description)
	}

	var exits []string
	for _, w := range h.ways(room) {
		switch {
		case w.door && !w.open:
			exits = append(exits, w.name+" (closed)")
		case w.door:
			exits = append(exits, w.name+" (open)")
		default:
			exits = append(exits, w.name)
		}
	}
	if len(exits) == 0 {
		lines = append(lines, "There are no obvious exits.")
	} else {
		lines = append(lines, "Exits: "+strings.Join(exits, ", "))
	}

	for _, ref := range room.Room.Contents {
		if ref == viewer.Ref() {
			continue
		}
		o := h.realm.Resolve(ref)
		if o == nil {
			continue
		}
		switch {
		case o.Actor != nil:
			lines = append(lines, fmt.Sprintf("%s is here.", o.Name))
		case o.Item != nil:
			lines = append(lines, fmt.Sprintf("You see %s here.", o.Name))
		}
	}

	return strings.Join(lines, "\n")
}

func (h *Handler) lookAt(ctx context.Context, inv *Invocation, name string) error {
	target := h.findIn(inv.Actor.Contents(), name, isItem)
	if target == nil {
		target = h.findIn(inv.Room.Room.Contents, name, func(game.Kind) bool { return true })
	}
	if target == nil {
		if w, ok := h.findWay(inv.Room, name); ok {
			target = w.conn
		}
	}
	if target == nil {
		return NewUserError(fmt.Sprintf("You don't see %q here.", name))
	}

	desc := fmt.Sprintf("You see nothing special about %s.", target.Name)
	if target.Item != nil && target.Item.Description != "" {
		desc = target.Item.Description
	}
	if d, ok := target.Props.Value("description"); ok {
		if s, isString := d.(string); isString && s != "" {
			desc = s
		}
	}

	// a look hook may describe its object instead
	if res, ok := h.invoker.Call(ctx, target, "on-look", inv.Actor); ok {
		if s, isString := res.(string); isString && s != "" {
			desc = s
		}
	}

	h.realm.Tell(inv.Actor, desc)
	return nil
}
