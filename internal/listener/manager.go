package listener

import (
	"context"
	"io"
	"log/slog"

	"github.com/pixil98/go-realm/internal/player"
)

// SessionRunner serves one client until it goes away.
type SessionRunner interface {
	RunSession(ctx context.Context, conn player.Conn) error
}

// ConnectionManager hands accepted connections to the session runner.
type ConnectionManager struct {
	runner SessionRunner
	width  int
}

func NewConnectionManager(runner SessionRunner, width int) *ConnectionManager {
	return &ConnectionManager{
		runner: runner,
		width:  width,
	}
}

// AcceptConnection serves a line-based stream. rw must already translate
// line endings.
func (m *ConnectionManager) AcceptConnection(ctx context.Context, rw io.ReadWriter) {
	m.serve(ctx, newLineConn(rw, m.width))
}

// acceptSized is AcceptConnection for a client that reported its terminal
// width. A width of zero keeps the configured one.
func (m *ConnectionManager) acceptSized(ctx context.Context, rw io.ReadWriter, width int) {
	if width <= 0 {
		width = m.width
	}
	m.serve(ctx, newLineConn(rw, width))
}

func (m *ConnectionManager) serve(ctx context.Context, conn player.Conn) {
	if err := m.runner.RunSession(ctx, conn); err != nil {
		slog.WarnContext(ctx, "player session", "error", err)
	}
}
