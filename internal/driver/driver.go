package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultTickLength = time.Second * 2
)

var ErrDriverStopped = errors.New("driver stopped")

// Event is a single unit of world work. Events are processed one at a time
// on the driver goroutine and discarded afterwards.
type Event interface {
	Process(ctx context.Context) error
	Describe() string
}

// Enqueuer accepts events for processing on the driver goroutine.
type Enqueuer interface {
	Enqueue(Event) error
}

// Ticker is called periodically from the driver goroutine.
type Ticker interface {
	Tick(context.Context) error
}

// Flusher persists whatever state was dirtied by the last event.
type Flusher interface {
	FlushDirty(context.Context) error
}

// FlusherFunc adapts a function to a Flusher.
type FlusherFunc func(context.Context) error

func (f FlusherFunc) FlushDirty(ctx context.Context) error {
	return f(ctx)
}

// TickerFunc adapts a function to a Ticker.
type TickerFunc func(context.Context) error

func (f TickerFunc) Tick(ctx context.Context) error {
	return f(ctx)
}

// MudDriver is the single writer of world state. Any goroutine may Enqueue;
// only the goroutine running Start ever calls Process.
type MudDriver struct {
	tickLength time.Duration
	tickers    []Ticker
	flusher    Flusher

	mu      sync.Mutex
	queue   []Event
	stopped bool
	wake    chan struct{}
	done    chan struct{}
}

func NewMudDriver(opts ...MudDriverOpt) *MudDriver {
	d := &MudDriver{
		tickLength: DefaultTickLength,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Enqueue appends an event to the queue and wakes the worker. It never waits
// on event processing. Once the worker has exited every call fails with
// ErrDriverStopped.
func (d *MudDriver) Enqueue(e Event) error {
	if e == nil {
		return fmt.Errorf("enqueueing nil event")
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrDriverStopped
	}
	d.queue = append(d.queue, e)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
		// a wake-up is already pending
	}
	return nil
}

// Pending returns the number of queued, unprocessed events.
func (d *MudDriver) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Done is closed once Start has drained the queue and stopped. Workers the
// drain still writes to should wait on it before closing.
func (d *MudDriver) Done() <-chan struct{} {
	return d.done
}

func (d *MudDriver) Start(ctx context.Context) error {
	defer close(d.done)

	ticker := time.NewTicker(d.tickLength)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.shutdown(ctx)
			return nil
		case <-d.wake:
			d.Drain(ctx)
		case <-ticker.C:
			if len(d.tickers) > 0 {
				_ = d.Enqueue(&tickEvent{tickers: d.tickers})
			}
		}
	}
}

// shutdown drains everything still queued, including events enqueued by
// the events being drained, and then refuses further work.
func (d *MudDriver) shutdown(ctx context.Context) {
	// Processing must not observe the cancelled parent context.
	drainCtx := context.WithoutCancel(ctx)
	for {
		d.Drain(drainCtx)

		d.mu.Lock()
		if len(d.queue) == 0 {
			d.stopped = true
			d.mu.Unlock()
			break
		}
		d.mu.Unlock()
	}
	slog.InfoContext(ctx, "driver stopped")
}

// Drain processes queued events in order until the queue is empty. It must
// only be called from the driver goroutine.
func (d *MudDriver) Drain(ctx context.Context) int {
	processed := 0
	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		d.mu.Unlock()

		if len(batch) == 0 {
			return processed
		}

		for _, e := range batch {
			d.process(ctx, e)
			processed++
		}
	}
}

func (d *MudDriver) process(ctx context.Context, e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "event panicked", "event", e.Describe(), "panic", r)
		}
		d.flush(ctx)
	}()

	if err := e.Process(ctx); err != nil {
		slog.ErrorContext(ctx, "processing event", "event", e.Describe(), "error", err)
	}
}

func (d *MudDriver) flush(ctx context.Context) {
	if d.flusher == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "flush panicked", "panic", r)
		}
	}()
	if err := d.flusher.FlushDirty(ctx); err != nil {
		slog.ErrorContext(ctx, "flushing dirty objects", "error", err)
	}
}

type tickEvent struct {
	tickers []Ticker
}

func (e *tickEvent) Process(ctx context.Context) error {
	for _, t := range e.tickers {
		if err := t.Tick(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (e *tickEvent) Describe() string {
	return "tick"
}
