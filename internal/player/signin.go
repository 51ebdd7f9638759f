package player

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pixil98/go-realm/internal/display"
	"github.com/pixil98/go-realm/internal/messaging"
)

const (
	namePrompt     = "By what name do you wish to be known? "
	passwordPrompt = "Password: "
	repeatPrompt   = "Please retype password: "
)

func confirmPrompt(name string) string {
	return fmt.Sprintf("Did I get that right, %s (Y/N)? ", name)
}

func newPasswordPrompt(name string) string {
	return fmt.Sprintf("Give me a password for %s: ", name)
}

// signIn advances s by one line of input.
func (m *Manager) signIn(ctx context.Context, s *Session, line string) error {
	line = strings.TrimSpace(line)

	switch s.state {
	case stateName:
		if err := validName(line); err != nil {
			m.send(s, messaging.Message{Text: "Invalid name, please try another.", Prompt: namePrompt})
			return nil
		}
		s.name = display.Name(line)
		key := accountKey(line)
		if _, claimed := m.claims[key]; claimed {
			m.send(s, messaging.Message{Text: "That name is being claimed, please try another.", Prompt: namePrompt})
			return nil
		}
		if m.accounts.Get(key) != nil {
			s.state = statePassword
			m.send(s, messaging.Message{Prompt: passwordPrompt})
			return nil
		}
		s.state = stateConfirmName
		m.send(s, messaging.Message{Prompt: confirmPrompt(s.name)})

	case stateConfirmName:
		switch strings.ToLower(line) {
		case "y", "yes":
			s.state = stateNewPassword
			m.send(s, messaging.Message{Prompt: newPasswordPrompt(s.name)})
		case "n", "no":
			s.state, s.name = stateName, ""
			m.send(s, messaging.Message{Prompt: namePrompt})
		default:
			m.send(s, messaging.Message{Text: "Please answer yes or no.", Prompt: confirmPrompt(s.name)})
		}

	case statePassword:
		acct := m.accounts.Get(accountKey(s.name))
		if acct == nil {
			// deleted while we were asking
			s.state, s.name = stateName, ""
			m.send(s, messaging.Message{Prompt: namePrompt})
			return nil
		}
		s.state = stateChecking
		m.checkPassword(s.id, acct, line)

	case stateNewPassword:
		if line == "" || strings.EqualFold(line, s.name) {
			m.send(s, messaging.Message{Text: "Illegal password.", Prompt: newPasswordPrompt(s.name)})
			return nil
		}
		s.password = line
		s.state = stateRepeatPassword
		m.send(s, messaging.Message{Prompt: repeatPrompt})

	case stateRepeatPassword:
		password := s.password
		s.password = ""
		if line != password {
			s.state = stateNewPassword
			m.send(s, messaging.Message{Text: "Passwords don't match... start over.", Prompt: newPasswordPrompt(s.name)})
			return nil
		}
		key := accountKey(s.name)
		if _, claimed := m.claims[key]; claimed || m.accounts.Get(key) != nil {
			s.state, s.name = stateName, ""
			m.send(s, messaging.Message{Text: "That name was just taken, please try another.", Prompt: namePrompt})
			return nil
		}
		m.claims[key] = s.id
		s.state = stateChecking
		m.createAccount(s.id, s.name, password)

	case stateChecking:
		m.send(s, messaging.Message{Text: "One moment..."})
	}

	return nil
}

// checkPassword compares off the driver goroutine since bcrypt is slow on
// purpose.
func (m *Manager) checkPassword(id string, acct *Account, password string) {
	m.offLoop(func() {
		e := &authEvent{m: m, id: id, account: acct}
		if !acct.CheckPassword(password) {
			e.err = fmt.Errorf("password mismatch")
		}
		m.enqueueAuth(e)
	})
}

func (m *Manager) createAccount(id, name, password string) {
	m.offLoop(func() {
		e := &authEvent{m: m, id: id, account: &Account{Name: name}, created: true}
		acct, err := NewAccount(name, password, m.hashCost)
		if err == nil {
			err = m.accounts.Save(accountKey(name), acct)
		}
		if err != nil {
			e.err = fmt.Errorf("saving account %s: %w", name, err)
		} else {
			e.account = acct
		}
		m.enqueueAuth(e)
	})
}

func (m *Manager) enqueueAuth(e *authEvent) {
	if err := m.enq.Enqueue(e); err != nil {
		slog.Warn("dropping sign-in result", "session", e.id, "error", err)
	}
}
