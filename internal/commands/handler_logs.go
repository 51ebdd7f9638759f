package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pixil98/go-realm/internal/eventlog"
	"github.com/pixil98/go-realm/internal/events"
	"github.com/pixil98/go-realm/internal/game"
)

const maxLogLines = 50

// history asks the event log for recent history. The query runs off the
// driver goroutine and the answer comes back as a reply event.
func (h *Handler) history(ctx context.Context, inv *Invocation) error {
	if h.logs == nil {
		return NewUserError("The chronicle is unavailable.")
	}

	n := inv.Int("count")
	if n < 0 || n > maxLogLines {
		return NewUserError(fmt.Sprintf("You can read between 1 and %d entries.", maxLogLines))
	}

	q := eventlog.Query{Kind: inv.String("kind"), Limit: n}
	actor := inv.Actor.Ref()
	h.logs.Query(ctx, q, func(entries []eventlog.Entry, err error) {
		reply := events.NewAsyncReply(h.realm, actor, "logs", func(_ context.Context, o *game.Object) error {
			h.realm.Tell(o, formatEntries(entries, err))
			return nil
		})
		if err := h.enq.Enqueue(reply); err != nil {
			slog.Warn("dropping log reply", "actor", actor.String(), "error", err)
		}
	})
	return nil
}

func formatEntries(entries []eventlog.Entry, err error) string {
	if err != nil {
		return "The chronicle is unavailable."
	}
	if len(entries) == 0 {
		return "Nothing has been recorded."
	}

	lines := make([]string, 0, len(entries))
	// oldest first reads naturally
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		lines = append(lines, fmt.Sprintf("%s %-10s %s %s", e.At.Format("15:04:05"), e.Kind, e.Subject, e.Detail))
	}
	return strings.Join(lines, "\n")
}
