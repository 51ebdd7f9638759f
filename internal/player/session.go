package player

import (
	"time"

	"github.com/pixil98/go-realm/internal/game"
)

type signInState int

const (
	stateName signInState = iota
	stateConfirmName
	statePassword
	stateNewPassword
	stateRepeatPassword
	stateChecking
	statePlaying
	stateClosed
)

func (s signInState) String() string {
	switch s {
	case stateName:
		return "name"
	case stateConfirmName:
		return "confirm-name"
	case statePassword:
		return "password"
	case stateNewPassword:
		return "new-password"
	case stateRepeatPassword:
		return "repeat-password"
	case stateChecking:
		return "checking"
	case statePlaying:
		return "playing"
	default:
		return "closed"
	}
}

// Session is the driver's view of one connection. It is only touched from
// the driver goroutine.
type Session struct {
	id        string
	state     signInState
	connected time.Time

	// name is the display form of the name being signed in
	name string
	// password holds a new password until it has been typed twice
	password string
	tries    int

	player game.Ref
}

func (s *Session) ID() string {
	return s.id
}

// Player is the object the session controls, zero before sign-in.
func (s *Session) Player() game.Ref {
	return s.player
}
