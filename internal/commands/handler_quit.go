package commands

import (
	"context"
)

// quit ends the actor's session. The player object itself is removed when
// the transport reports the disconnect.
func (h *Handler) quit(_ context.Context, inv *Invocation) error {
	h.realm.Hangup(inv.Actor, "Goodbye.")
	return nil
}
