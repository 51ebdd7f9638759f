package game

import "github.com/pixil98/go-realm/internal/messaging"

// Publisher delivers output to a connected session.
type Publisher interface {
	PublishToSession(sessionID string, msg messaging.Message) error
}
