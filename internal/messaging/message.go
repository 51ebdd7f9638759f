package messaging

import (
	"encoding/json"
	"fmt"
)

// Status carries an actor's vitals for transports that show a prompt or a
// status bar.
type Status struct {
	Health    int `json:"health"`
	MaxHealth int `json:"max_health"`
	Energy    int `json:"energy"`
	MaxEnergy int `json:"max_energy"`
}

// Prompt renders the status the way line-based clients show it.
func (s Status) Prompt() string {
	return fmt.Sprintf("[%d/%dHP %d/%dEN] > ", s.Health, s.MaxHealth, s.Energy, s.MaxEnergy)
}

// Message is the envelope sent to a session.
type Message struct {
	Text   string  `json:"text,omitempty"`
	Status *Status `json:"status,omitempty"`
	// Prompt is a question shown on the input line, in place of the status
	// prompt.
	Prompt string `json:"prompt,omitempty"`
	// Close asks the transport to end the session after delivery.
	Close bool `json:"close,omitempty"`
}

func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decoding message: %w", err)
	}
	return m, nil
}

// SessionSubject is the bus subject a session listens on.
func SessionSubject(sessionID string) string {
	return fmt.Sprintf("session-%s", sessionID)
}
