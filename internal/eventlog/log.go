// Package eventlog keeps a queryable history of world activity in SQLite.
// Writes and queries never run on the caller's goroutine.
package eventlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var ErrLogClosed = errors.New("event log closed")

const DefaultQueryLimit = 20

// Entry is one recorded occurrence.
type Entry struct {
	ID      int64
	At      time.Time
	Kind    string
	Subject string
	Room    string
	Detail  string
}

// Query selects entries, newest first. Empty fields match anything.
type Query struct {
	Kind    string
	Subject string
	Limit   int
}

// Log is an append-only SQLite history. Append queues in memory; the
// worker started by Start writes batches in a single transaction.
type Log struct {
	db *sql.DB

	mu      sync.Mutex
	pending []Entry
	closed  bool
	wake    chan struct{}
	after   <-chan struct{}

	// writeMu keeps batches committing in the order they were taken.
	writeMu sync.Mutex
	queries sync.WaitGroup
}

func Open(path string) (*Log, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Log{
		db:   db,
		wake: make(chan struct{}, 1),
	}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("setting %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			kind TEXT NOT NULL,
			subject TEXT NOT NULL,
			room TEXT NOT NULL,
			detail TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_subject ON entries(subject, id);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind, id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// WaitFor keeps the log accepting entries after its context ends until done
// is closed. It must be called before Start.
func (l *Log) WaitFor(done <-chan struct{}) {
	l.after = done
}

// Append queues e for writing. It never blocks on the database.
func (l *Log) Append(e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLogClosed
	}
	l.pending = append(l.pending, e)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

func (l *Log) Start(ctx context.Context) error {
	slog.InfoContext(ctx, "event log started")

	for {
		select {
		case <-ctx.Done():
			l.awaitWriters(context.WithoutCancel(ctx))

			l.mu.Lock()
			l.closed = true
			l.mu.Unlock()

			if err := l.writePending(context.WithoutCancel(ctx)); err != nil {
				slog.ErrorContext(ctx, "writing event log", "error", err)
			}
			l.queries.Wait()
			return l.db.Close()
		case <-l.wake:
			if err := l.writePending(ctx); err != nil {
				slog.ErrorContext(ctx, "writing event log", "error", err)
			}
		}
	}
}

func (l *Log) awaitWriters(ctx context.Context) {
	if l.after == nil {
		return
	}
	for {
		select {
		case <-l.after:
			return
		case <-l.wake:
			if err := l.writePending(ctx); err != nil {
				slog.ErrorContext(ctx, "writing event log", "error", err)
			}
		}
	}
}

func (l *Log) writePending(ctx context.Context) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries(at,kind,subject,room,detail) VALUES(?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range batch {
		_, err := stmt.ExecContext(ctx, e.At.UTC().Format(time.RFC3339Nano), e.Kind, e.Subject, e.Room, e.Detail)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inserting entry: %w", err)
		}
	}

	return tx.Commit()
}

// Query runs q on its own goroutine and hands the result to reply from
// there. Callers on the driver goroutine enqueue an event from reply
// rather than touching world state.
func (l *Log) Query(ctx context.Context, q Query, reply func([]Entry, error)) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		reply(nil, ErrLogClosed)
		return
	}
	l.queries.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.queries.Done()
		reply(l.Recent(ctx, q))
	}()
}

// Recent runs q synchronously.
func (l *Log) Recent(ctx context.Context, q Query) ([]Entry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	var where []string
	var args []any
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, q.Kind)
	}
	if q.Subject != "" {
		where = append(where, "subject = ?")
		args = append(args, q.Subject)
	}

	query := `SELECT id, at, kind, subject, room, detail FROM entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &at, &e.Kind, &e.Subject, &e.Room, &e.Detail); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Flush writes everything queued so far on the calling goroutine.
func (l *Log) Flush(ctx context.Context) error {
	return l.writePending(ctx)
}
