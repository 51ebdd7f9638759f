package messaging

import "fmt"

// NatsPublisher publishes messages to individual session NATS channels.
type NatsPublisher struct {
	server *NatsServer
}

// NewNatsPublisher wraps a NatsServer for per-session message delivery.
func NewNatsPublisher(server *NatsServer) *NatsPublisher {
	return &NatsPublisher{server: server}
}

func (p *NatsPublisher) PublishToSession(sessionID string, msg Message) error {
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	return p.server.Publish(SessionSubject(sessionID), data)
}
