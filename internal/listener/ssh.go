package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"golang.org/x/crypto/ssh"
)

type SshListener struct {
	host    string
	port    uint16
	cm      *ConnectionManager
	hostKey ssh.Signer
}

func NewSshListener(host string, port uint16, cm *ConnectionManager, hostKey ssh.Signer) *SshListener {
	return &SshListener{
		host:    host,
		port:    port,
		cm:      cm,
		hostKey: hostKey,
	}
}

func (l *SshListener) Start(ctx context.Context) error {
	addr := net.JoinHostPort(l.host, strconv.Itoa(int(l.port)))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return l.Serve(ctx, ln)
}

// Serve accepts ssh sessions on ln until ctx is done.
func (l *SshListener) Serve(ctx context.Context, ln net.Listener) error {
	config := &ssh.ServerConfig{
		NoClientAuth: true,
	}
	config.AddHostKey(l.hostKey)

	slog.InfoContext(ctx, "listening for ssh", "addr", ln.Addr().String())

	connCtx, cancelConns := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				cancelConns()
				wg.Wait()
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				cancelConns()
				wg.Wait()
				return fmt.Errorf("accepting ssh connections: %w", err)
			}
			slog.ErrorContext(ctx, "accepting ssh connection", "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			l.handleConnection(connCtx, conn, config)
		}()
	}
}

func (l *SshListener) handleConnection(ctx context.Context, conn net.Conn, config *ssh.ServerConfig) {
	defer conn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		slog.DebugContext(ctx, "ssh handshake", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}
	defer sshConn.Close()

	slog.InfoContext(ctx, "ssh connection established", "remote", conn.RemoteAddr().String(), "user", sshConn.User())

	// unblocks the channel loop below on shutdown
	go func() {
		<-ctx.Done()
		_ = sshConn.Close()
	}()

	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			_ = newChan.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		ch, requests, err := newChan.Accept()
		if err != nil {
			slog.ErrorContext(ctx, "accepting ssh channel", "error", err)
			continue
		}

		shell := make(chan int, 1)
		go answerSessionRequests(requests, shell)

		select {
		case width := <-shell:
			l.cm.acceptSized(ctx, newCRLFReadWriter(ch), width)
		case <-ctx.Done():
		}
		_ = ch.Close()
	}
}

// ptyRequest is the payload of a "pty-req" request, RFC 4254 section 6.2.
type ptyRequest struct {
	Term    string
	Columns uint32
	Rows    uint32
	Width   uint32
	Height  uint32
	Modes   string
}

// answerSessionRequests replies to a session's requests and sends the
// terminal width on shell once the client asks for a shell. Clients do not
// forward input until the shell request is answered.
func answerSessionRequests(in <-chan *ssh.Request, shell chan<- int) {
	width := 0
	started := false
	for req := range in {
		switch req.Type {
		case "pty-req":
			var pty ptyRequest
			if err := ssh.Unmarshal(req.Payload, &pty); err == nil {
				width = int(pty.Columns)
			}
			// refused so the client keeps local echo and line editing
			_ = req.Reply(false, nil)
		case "shell":
			_ = req.Reply(!started, nil)
			if !started {
				started = true
				shell <- width
			}
		default:
			_ = req.Reply(false, nil)
		}
	}
}
