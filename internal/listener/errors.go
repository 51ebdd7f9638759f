package listener

import (
	"errors"
	"io"

	"github.com/gorilla/websocket"
)

// normaliseCloseError turns a websocket close frame into io.EOF so the
// session ends quietly.
func normaliseCloseError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return io.EOF
	}
	return err
}
