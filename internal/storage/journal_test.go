package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/pixil98/go-realm/internal/driver"
	"github.com/pixil98/go-testutil"
)

type journalRecord struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

func runJournal(t *testing.T, j *Journal[journalRecord], records ...journalRecord) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Start(ctx) }()

	for _, r := range records {
		if err := j.Append(r); err != nil {
			t.Fatalf("unexpected append error: %v", err)
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected journal error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("journal did not stop")
	}
}

func TestJournal_AppendReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal", "world.jsonl.zst")

	runJournal(t, NewJournal[journalRecord](path),
		journalRecord{ID: 1, Name: "gate"},
		journalRecord{ID: 2, Name: "lamp"},
	)
	// a second session appends a new frame to the same file
	runJournal(t, NewJournal[journalRecord](path),
		journalRecord{ID: 1, Name: "open gate"},
	)

	var got []string
	err := ReplayJournal(path, func(r journalRecord) error {
		got = append(got, fmt.Sprintf("%d:%s", r.ID, r.Name))
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected replay error: %v", err)
	}

	testutil.AssertEqual(t, "records", fmt.Sprint(got), "[1:gate 2:lamp 1:open gate]")
}

func TestJournal_AppendAfterStop(t *testing.T) {
	j := NewJournal[journalRecord](filepath.Join(t.TempDir(), "j.zst"))
	runJournal(t, j)

	err := j.Append(journalRecord{ID: 9})
	if !errors.Is(err, ErrJournalClosed) {
		t.Errorf("expected ErrJournalClosed, got %v", err)
	}
}

// createEvent leaves one dirty record behind for the flusher.
type createEvent struct {
	id    uint64
	dirty *[]journalRecord
}

func (e *createEvent) Process(context.Context) error {
	*e.dirty = append(*e.dirty, journalRecord{ID: e.id, Name: "coin"})
	return nil
}

func (e *createEvent) Describe() string { return "create" }

func TestJournal_OutlivesDriverDrain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.jsonl.zst")
	j := NewJournal[journalRecord](path)

	var dirty []journalRecord
	drv := driver.NewMudDriver(driver.WithFlusher(driver.FlusherFunc(func(context.Context) error {
		records := dirty
		dirty = nil
		return j.Append(records...)
	})))
	j.WaitFor(drv.Done())

	const count = 500
	for i := 1; i <= count; i++ {
		if err := drv.Enqueue(&createEvent{id: uint64(i), dirty: &dirty}); err != nil {
			t.Fatalf("unexpected enqueue error: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 2)
	go func() { errs <- j.Start(ctx) }()
	go func() { errs <- drv.Start(ctx) }()
	cancel()

	for range 2 {
		select {
		case err := <-errs:
			if err != nil {
				t.Fatalf("unexpected worker error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("workers did not stop")
		}
	}

	replayed := 0
	err := ReplayJournal(path, func(journalRecord) error {
		replayed++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected replay error: %v", err)
	}
	testutil.AssertEqual(t, "replayed", replayed, count)
}

func TestReplayJournal(t *testing.T) {
	tests := map[string]struct {
		fnErr  error
		expErr string
	}{
		"callback error stops replay": {
			fnErr:  errors.New("rejected"),
			expErr: "rejected",
		},
		"success": {},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "j.zst")
			runJournal(t, NewJournal[journalRecord](path), journalRecord{ID: 1})

			calls := 0
			err := ReplayJournal(path, func(journalRecord) error {
				calls++
				return tt.fnErr
			})
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "calls", calls, 1)
		})
	}
}

func TestReplayJournal_Missing(t *testing.T) {
	err := ReplayJournal(filepath.Join(t.TempDir(), "absent.zst"), func(journalRecord) error {
		t.Fatal("callback should not run")
		return nil
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
