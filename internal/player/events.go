package player

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixil98/go-realm/internal/commands"
	"github.com/pixil98/go-realm/internal/messaging"
)

// ConnectEvent registers a new session and greets it.
type ConnectEvent struct {
	m  *Manager
	id string
}

func (e *ConnectEvent) Process(ctx context.Context) error {
	if _, exists := e.m.sessions[e.id]; exists {
		slog.WarnContext(ctx, "skipping duplicate connect", "session", e.id)
		return nil
	}

	s := &Session{
		id:        e.id,
		state:     stateName,
		connected: time.Now(),
	}
	e.m.sessions[e.id] = s
	slog.InfoContext(ctx, "session connected", "session", e.id)

	e.m.send(s, messaging.Message{Text: e.m.greeting, Prompt: namePrompt})
	return nil
}

func (e *ConnectEvent) Describe() string {
	return fmt.Sprintf("connect %s", e.id)
}

// InputEvent feeds one line of input to a session: sign-in answers until
// the session is playing, commands afterwards.
type InputEvent struct {
	m    *Manager
	id   string
	line string
}

func (e *InputEvent) Process(ctx context.Context) error {
	s, ok := e.m.sessions[e.id]
	if !ok || s.state == stateClosed {
		slog.InfoContext(ctx, "skipping input for closed session", "session", e.id)
		return nil
	}
	if s.state != statePlaying {
		return e.m.signIn(ctx, s, e.line)
	}

	// another session may have taken the player over
	p := e.m.realm.Resolve(s.player)
	if p == nil || p.Actor.SessionID != e.id {
		slog.InfoContext(ctx, "skipping input for replaced session", "session", e.id, "player", s.player.String())
		return nil
	}
	return commands.NewCommandEvent(e.m.handler, s.player, e.line).Process(ctx)
}

// Describe leaves the line out since it may be a password.
func (e *InputEvent) Describe() string {
	return fmt.Sprintf("input for %s", e.id)
}

// authEvent carries the result of an off-loop password check or account
// creation back to the driver.
type authEvent struct {
	m       *Manager
	id      string
	account *Account
	err     error
	created bool
}

func (e *authEvent) Process(ctx context.Context) error {
	m := e.m
	if e.created {
		delete(m.claims, accountKey(e.account.Name))
	}

	s, ok := m.sessions[e.id]
	if !ok || s.state != stateChecking {
		slog.InfoContext(ctx, "skipping sign-in result for closed session", "session", e.id)
		return nil
	}

	if e.err != nil {
		if e.created {
			slog.ErrorContext(ctx, "creating account", "session", e.id, "error", e.err)
			m.close(s, "Your account could not be created.")
			return nil
		}

		s.tries++
		if s.tries >= m.maxTries {
			slog.WarnContext(ctx, "too many password tries", "session", e.id, "account", accountKey(e.account.Name))
			m.close(s, "Too many tries.")
			return nil
		}
		s.state = statePassword
		m.send(s, messaging.Message{Text: "Wrong password.", Prompt: passwordPrompt})
		return nil
	}

	if err := m.spawn(ctx, s, e.account); err != nil {
		m.close(s, "The realm cannot take you right now.")
		return err
	}
	return nil
}

func (e *authEvent) Describe() string {
	return fmt.Sprintf("sign-in result for %s", e.id)
}

// DisconnectEvent forgets a session and removes the player it controlled.
type DisconnectEvent struct {
	m  *Manager
	id string
}

func (e *DisconnectEvent) Process(ctx context.Context) error {
	m := e.m
	s, ok := m.sessions[e.id]
	if !ok {
		slog.InfoContext(ctx, "skipping disconnect", "session", e.id, "error", ErrSessionUnknown)
		return nil
	}
	delete(m.sessions, e.id)
	s.state = stateClosed
	slog.InfoContext(ctx, "session disconnected", "session", e.id, "duration", time.Since(s.connected).Round(time.Second).String())

	// a session that was taken over no longer owns its player
	p := m.realm.Resolve(s.player)
	if p == nil || p.Actor.SessionID != e.id {
		return nil
	}
	p.Actor.SessionID = ""
	if err := m.realm.SoftDelete(p.Ref()); err != nil {
		return fmt.Errorf("removing player %s: %w", p.Ref(), err)
	}
	return nil
}

func (e *DisconnectEvent) Describe() string {
	return fmt.Sprintf("disconnect %s", e.id)
}
