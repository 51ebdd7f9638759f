package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pixil98/go-realm/internal/messaging"
)

const (
	wsWriteTimeout  = 5 * time.Second
	wsReadLimit     = maxLineLength
	wsShutdownGrace = 5 * time.Second
)

// WebsocketListener serves sessions over websockets. Clients send one
// command per text frame and receive each message as a JSON envelope.
type WebsocketListener struct {
	host string
	port uint16
	path string
	cm   *ConnectionManager

	upgrader websocket.Upgrader
}

func NewWebsocketListener(host string, port uint16, path string, cm *ConnectionManager) *WebsocketListener {
	if path == "" {
		path = "/"
	}
	return &WebsocketListener{
		host: host,
		port: port,
		path: path,
		cm:   cm,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (l *WebsocketListener) Start(ctx context.Context) error {
	addr := net.JoinHostPort(l.host, strconv.Itoa(int(l.port)))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return l.Serve(ctx, ln)
}

// Serve accepts websocket sessions on ln until ctx is done.
func (l *WebsocketListener) Serve(ctx context.Context, ln net.Listener) error {
	connCtx, cancelConns := context.WithCancel(context.Background())
	defer cancelConns()

	var wg sync.WaitGroup
	mux := http.NewServeMux()
	mux.HandleFunc(l.path, func(rw http.ResponseWriter, r *http.Request) {
		wg.Add(1)
		defer wg.Done()
		l.handle(connCtx, rw, r)
	})
	svr := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), wsShutdownGrace)
		defer cancel()
		// hijacked connections are not tracked by Shutdown
		cancelConns()
		if err := svr.Shutdown(shutdownCtx); err != nil {
			slog.Warn("stopping websocket server", "error", err)
		}
	}()

	slog.InfoContext(ctx, "listening for websockets", "addr", ln.Addr().String(), "path", l.path)

	err := svr.Serve(ln)
	wg.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving websockets: %w", err)
	}
	return nil
}

func (l *WebsocketListener) handle(ctx context.Context, rw http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		slog.DebugContext(ctx, "websocket upgrade", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	slog.InfoContext(ctx, "websocket connection established", "remote", r.RemoteAddr)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	wc := &wsConn{conn: conn}
	l.cm.serve(ctx, wc)
	wc.close()
}

// wsConn adapts a websocket to a session connection.
type wsConn struct {
	conn *websocket.Conn

	mu sync.Mutex
}

func (c *wsConn) ReadLine() (string, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", normaliseCloseError(err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (c *wsConn) Send(msg messaging.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("writing to websocket: %w", err)
	}
	return nil
}

func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
