package perception

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Event runs one stimulus through the engine on the driver goroutine.
type Event struct {
	engine   *Engine
	stimulus Stimulus
}

func NewEvent(engine *Engine, s Stimulus) *Event {
	return &Event{engine: engine, stimulus: s}
}

func (e *Event) Process(ctx context.Context) error {
	_, err := e.engine.Propagate(ctx, e.stimulus)
	if errors.Is(err, ErrOriginGone) {
		slog.InfoContext(ctx, "skipping perception", "event", e.Describe(), "reason", err)
		return nil
	}
	return err
}

func (e *Event) Describe() string {
	return fmt.Sprintf("perception %s from %s by %s", e.stimulus.Category, e.stimulus.Room, e.stimulus.Actor)
}
