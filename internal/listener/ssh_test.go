package listener

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"net"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
	"golang.org/x/crypto/ssh"
)

func startSsh(t *testing.T) (string, context.CancelFunc, <-chan error) {
	t.Helper()

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		t.Fatalf("creating signer: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	l := NewSshListener("127.0.0.1", 0, NewConnectionManager(echoRunner{}, 80), signer)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Serve(ctx, ln) }()
	t.Cleanup(cancel)

	return ln.Addr().String(), cancel, done
}

func TestSshListener_Session(t *testing.T) {
	tests := map[string]struct {
		columns int
		exp     string
	}{
		"configured width": {
			exp: "Welcome!\r\nName: You said alpha beta gamma delta\r\nGoodbye.\r\n",
		},
		"terminal width": {
			columns: 20,
			exp:     "Welcome!\r\nName: You said alpha beta\r\ngamma delta\r\nGoodbye.\r\n",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			addr, cancel, done := startSsh(t)

			client, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
				User:            "guest",
				HostKeyCallback: ssh.InsecureIgnoreHostKey(),
				Timeout:         5 * time.Second,
			})
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			defer client.Close()

			session, err := client.NewSession()
			if err != nil {
				t.Fatalf("session: %v", err)
			}
			defer session.Close()

			if tt.columns > 0 {
				// refused by the server, but the width is kept
				err := session.RequestPty("xterm", 24, tt.columns, ssh.TerminalModes{})
				if err == nil {
					t.Errorf("expected pty request to be refused")
				}
			}

			stdin, err := session.StdinPipe()
			if err != nil {
				t.Fatalf("stdin: %v", err)
			}
			stdout, err := session.StdoutPipe()
			if err != nil {
				t.Fatalf("stdout: %v", err)
			}
			if err := session.Shell(); err != nil {
				t.Fatalf("shell: %v", err)
			}

			if _, err := io.WriteString(stdin, "alpha beta gamma delta\r\nquit\r\n"); err != nil {
				t.Fatalf("write: %v", err)
			}

			out := make(chan string, 1)
			go func() {
				b, _ := io.ReadAll(stdout)
				out <- string(b)
			}()

			select {
			case got := <-out:
				testutil.AssertEqual(t, "output", got, tt.exp)
			case <-time.After(10 * time.Second):
				t.Fatal("session did not end")
			}

			cancel()
			select {
			case err := <-done:
				testutil.AssertEqual(t, "serve err", err, nil)
			case <-time.After(10 * time.Second):
				t.Fatal("ssh listener did not stop")
			}
		})
	}
}

func TestAnswerSessionRequests_ShellOnce(t *testing.T) {
	in := make(chan *ssh.Request, 3)
	shell := make(chan int, 2)

	in <- &ssh.Request{Type: "env"}
	in <- &ssh.Request{Type: "shell"}
	in <- &ssh.Request{Type: "shell"}
	close(in)

	answerSessionRequests(in, shell)

	testutil.AssertEqual(t, "shell starts", len(shell), 1)
	testutil.AssertEqual(t, "width", <-shell, 0)
}
