package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-realm/internal/game"
)

// AsyncReplyEvent carries the result of off-loop work back to the object
// that asked for it.
type AsyncReplyEvent struct {
	realm     *game.Realm
	recipient game.Ref
	label     string
	deliver   func(ctx context.Context, recipient *game.Object) error
}

// NewAsyncReply builds the event a background goroutine enqueues when it is
// done. deliver runs on the driver goroutine only if recipient still exists.
func NewAsyncReply(realm *game.Realm, recipient game.Ref, label string, deliver func(context.Context, *game.Object) error) *AsyncReplyEvent {
	return &AsyncReplyEvent{
		realm:     realm,
		recipient: recipient,
		label:     label,
		deliver:   deliver,
	}
}

func (e *AsyncReplyEvent) Process(ctx context.Context) error {
	if e.recipient.IsZero() || e.deliver == nil {
		slog.InfoContext(ctx, "skipping reply without recipient", "event", e.Describe())
		return nil
	}
	obj := e.realm.Resolve(e.recipient)
	if obj == nil {
		slog.InfoContext(ctx, "skipping reply for missing recipient", "event", e.Describe())
		return nil
	}
	return e.deliver(ctx, obj)
}

func (e *AsyncReplyEvent) Describe() string {
	return fmt.Sprintf("reply %s to %s", e.label, e.recipient)
}
