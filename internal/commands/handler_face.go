package commands

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pixil98/go-realm/internal/game"
)

// face turns the actor toward a way out of the room or along an x y [z]
// vector. A zero vector clears the facing.
func (h *Handler) face(_ context.Context, inv *Invocation) error {
	a := inv.Actor.Actor
	if a == nil {
		return NewUserError("You have no face to turn.")
	}

	target := inv.String("direction")
	facing, isVector, err := parseVector(target)
	if err != nil {
		return err
	}
	if !isVector {
		if inv.Room == nil {
			return NewUserError("You are nowhere at all.")
		}
		w, ok := h.findWay(inv.Room, target)
		if !ok {
			return NewUserError(fmt.Sprintf("You don't see %q here.", target))
		}
		dest := h.realm.Resolve(w.dest)
		if dest == nil || dest.Room == nil {
			return NewUserError(fmt.Sprintf("You don't see %q here.", target))
		}
		facing = dest.Room.Center.Sub(a.Position)
		if facing.IsZero() {
			facing = dest.Room.Center.Sub(inv.Room.Room.Center)
		}
	}

	a.Facing = facing
	h.realm.MarkDirty(inv.Actor)

	if facing.IsZero() {
		h.realm.Tell(inv.Actor, "You stop facing any particular way.")
		return nil
	}
	h.realm.Tell(inv.Actor, fmt.Sprintf("You turn to face %.0f, %.0f, %.0f.", facing.X, facing.Y, facing.Z))
	return nil
}

// parseVector reads "x y" or "x y z". isVector is false when s does not
// start with a number.
func parseVector(s string) (v game.Vec3, isVector bool, err error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return v, false, nil
	}
	if _, err := strconv.ParseFloat(fields[0], 64); err != nil {
		return v, false, nil
	}
	if len(fields) < 2 || len(fields) > 3 {
		return v, true, NewUserError("Face which way? Give x y or x y z.")
	}

	var n [3]float64
	for i, f := range fields {
		n[i], err = strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(n[i]) || math.IsInf(n[i], 0) {
			return v, true, NewUserError(fmt.Sprintf("%q is not a valid number.", f))
		}
	}
	return game.Vec3{X: n[0], Y: n[1], Z: n[2]}, true, nil
}
