package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pixil98/go-realm/internal/eventlog"
	"github.com/pixil98/go-realm/internal/game"
)

// CommandEvent runs one line of player input.
type CommandEvent struct {
	handler *Handler
	actor   game.Ref
	line    string
}

func NewCommandEvent(h *Handler, actor game.Ref, line string) *CommandEvent {
	return &CommandEvent{handler: h, actor: actor, line: line}
}

func (e *CommandEvent) Process(ctx context.Context) error {
	h := e.handler
	actor := h.realm.Resolve(e.actor)
	if actor == nil {
		slog.InfoContext(ctx, "skipping command for missing actor", "event", e.Describe())
		return nil
	}
	line := strings.TrimSpace(e.line)
	if line == "" {
		slog.DebugContext(ctx, "skipping empty command", "actor", e.actor.String())
		h.realm.SendStatus(actor)
		return nil
	}

	h.record(actor, line)

	err := h.Exec(ctx, actor, line)
	var userErr *UserError
	if errors.As(err, &userErr) {
		h.realm.Tell(actor, userErr.Message)
		err = nil
	}

	// the command may have removed the actor
	if actor.Live() {
		h.realm.SendStatus(actor)
	}
	return err
}

func (e *CommandEvent) Describe() string {
	return fmt.Sprintf("command %q by %s", e.line, e.actor)
}

func (h *Handler) record(actor *game.Object, line string) {
	if h.recorder == nil {
		return
	}
	entry := eventlog.Entry{
		Kind:    "command",
		Subject: actor.Ref().String(),
		Detail:  line,
	}
	if loc, ok := actor.Location(); ok {
		entry.Room = loc.String()
	}
	if err := h.recorder.Append(entry); err != nil {
		slog.Warn("recording command", "error", err)
	}
}
