package listener

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pixil98/go-realm/internal/display"
	"github.com/pixil98/go-realm/internal/messaging"
)

const maxLineLength = 4096

// lineConn serves a line-based client such as telnet or ssh. Status is
// shown as a prompt.
type lineConn struct {
	scanner *bufio.Scanner
	width   int

	mu sync.Mutex
	w  io.Writer
}

func newLineConn(rw io.ReadWriter, width int) *lineConn {
	scanner := bufio.NewScanner(rw)
	scanner.Buffer(make([]byte, 0, 256), maxLineLength)
	return &lineConn{scanner: scanner, width: width, w: rw}
}

func (c *lineConn) ReadLine() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", fmt.Errorf("reading line: %w", err)
		}
		return "", io.EOF
	}
	return c.scanner.Text(), nil
}

func (c *lineConn) Send(msg messaging.Message) error {
	var b strings.Builder
	if msg.Text != "" {
		b.WriteString(display.Wrap(msg.Text, c.width))
		b.WriteString("\n")
	}
	switch {
	case msg.Close:
	case msg.Prompt != "":
		b.WriteString(msg.Prompt)
	case msg.Status != nil:
		b.WriteString("\n")
		b.WriteString(msg.Status.Prompt())
	}
	if b.Len() == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.w, b.String()); err != nil {
		return fmt.Errorf("writing to client: %w", err)
	}
	return nil
}
