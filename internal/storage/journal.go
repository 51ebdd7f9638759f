package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var ErrJournalClosed = errors.New("journal closed")

// Journal appends records as zstd-compressed JSON lines. Append never
// touches the disk; a worker goroutine started with Start does the writing.
type Journal[T any] struct {
	path string

	mu      sync.Mutex
	pending []T
	closed  bool
	wake    chan struct{}
	after   <-chan struct{}
}

func NewJournal[T any](path string) *Journal[T] {
	return &Journal[T]{
		path: path,
		wake: make(chan struct{}, 1),
	}
}

// WaitFor keeps the journal accepting records after its context ends until
// done is closed. It must be called before Start.
func (j *Journal[T]) WaitFor(done <-chan struct{}) {
	j.after = done
}

// Append queues records for writing and returns immediately.
func (j *Journal[T]) Append(records ...T) error {
	if len(records) == 0 {
		return nil
	}

	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return ErrJournalClosed
	}
	j.pending = append(j.pending, records...)
	j.mu.Unlock()

	select {
	case j.wake <- struct{}{}:
	default:
	}
	return nil
}

func (j *Journal[T]) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("creating journal directory: %w", err)
	}

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return fmt.Errorf("creating encoder: %w", err)
	}
	w := bufio.NewWriterSize(enc, 64*1024)

	slog.InfoContext(ctx, "journal started", "path", j.path)

	for {
		select {
		case <-ctx.Done():
			j.awaitWriters(ctx, w, enc)

			j.mu.Lock()
			j.closed = true
			j.mu.Unlock()

			if err := j.writePending(w, enc); err != nil {
				slog.ErrorContext(ctx, "writing journal", "error", err)
			}
			return enc.Close()
		case <-j.wake:
			if err := j.writePending(w, enc); err != nil {
				slog.ErrorContext(ctx, "writing journal", "error", err)
			}
		}
	}
}

// awaitWriters keeps writing until the channel given to WaitFor closes.
func (j *Journal[T]) awaitWriters(ctx context.Context, w *bufio.Writer, enc *zstd.Encoder) {
	if j.after == nil {
		return
	}
	for {
		select {
		case <-j.after:
			return
		case <-j.wake:
			if err := j.writePending(w, enc); err != nil {
				slog.ErrorContext(ctx, "writing journal", "error", err)
			}
		}
	}
}

func (j *Journal[T]) writePending(w *bufio.Writer, enc *zstd.Encoder) error {
	j.mu.Lock()
	batch := j.pending
	j.pending = nil
	j.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	for _, r := range batch {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshalling record: %w", err)
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return enc.Flush()
}

// ReplayJournal calls fn for every record in the journal at path, oldest
// first. A missing journal is not an error.
func ReplayJournal[T any](path string, fn func(T) error) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		var r T
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return fmt.Errorf("line %d: unmarshal: %w", line, err)
		}
		if err := fn(r); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	// An interrupted writer leaves a truncated final frame; keep what was read.
	if err := sc.Err(); err != nil {
		slog.Warn("journal ended early", "path", path, "line", line, "error", err)
	}
	return nil
}
