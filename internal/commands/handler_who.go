package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixil98/go-realm/internal/game"
)

func (h *Handler) who(_ context.Context, inv *Invocation) error {
	var lines []string
	for _, p := range h.realm.Each(game.KindPlayer) {
		lines = append(lines, "  "+p.Name)
	}

	output := fmt.Sprintf("Players Online (%d):\n%s", len(lines), strings.Join(lines, "\n"))
	h.realm.Tell(inv.Actor, output)
	return nil
}
