// Package player connects client sessions to the realm: it runs sign-in
// and turns input lines into driver events.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pixil98/go-realm/internal/commands"
	"github.com/pixil98/go-realm/internal/driver"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/messaging"
	"github.com/pixil98/go-realm/internal/storage"
	"github.com/pixil98/go-realm/internal/trigger"
	"golang.org/x/crypto/bcrypt"
)

// Conn is one client connection as a transport presents it.
type Conn interface {
	// ReadLine blocks until the client sends a line.
	ReadLine() (string, error)
	// Send delivers a message. It is called from the bus, never from the
	// driver goroutine.
	Send(msg messaging.Message) error
}

// Subscriber delivers messages published for a subject.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

// Manager owns every session. RunSession may be called from any goroutine;
// everything else happens in driver events.
type Manager struct {
	realm    *game.Realm
	enq      driver.Enqueuer
	handler  *commands.Handler
	invoker  *trigger.Invoker
	pub      game.Publisher
	sub      Subscriber
	accounts storage.Storer[*Account]

	startRoom game.Ref
	greeting  string
	hashCost  int
	maxTries  int
	health    int
	energy    int

	// sessions and claims are driver-owned
	sessions map[string]*Session
	claims   map[string]string

	wg sync.WaitGroup
}

func NewManager(realm *game.Realm, enq driver.Enqueuer, handler *commands.Handler, pub game.Publisher, sub Subscriber, accounts storage.Storer[*Account], opts ...ManagerOpt) *Manager {
	m := &Manager{
		realm:    realm,
		enq:      enq,
		handler:  handler,
		pub:      pub,
		sub:      sub,
		accounts: accounts,
		greeting: defaultGreeting,
		hashCost: bcrypt.DefaultCost,
		maxTries: defaultMaxPasswordTries,
		health:   defaultHealth,
		energy:   defaultEnergy,
		sessions: map[string]*Session{},
		claims:   map[string]string{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start blocks until ctx is done and then waits for password checks still
// in flight.
func (m *Manager) Start(ctx context.Context) error {
	<-ctx.Done()
	m.wg.Wait()
	return nil
}

// Sessions returns the number of open sessions. Driver goroutine only.
func (m *Manager) Sessions() int {
	return len(m.sessions)
}

// RunSession serves conn until the client goes away, the session is closed
// from the realm or ctx ends.
func (m *Manager) RunSession(ctx context.Context, conn Conn) error {
	id := uuid.NewString()

	ended := make(chan struct{})
	var once sync.Once
	end := func() { once.Do(func() { close(ended) }) }

	unsubscribe, err := m.sub.Subscribe(messaging.SessionSubject(id), func(data []byte) {
		msg, err := messaging.DecodeMessage(data)
		if err != nil {
			slog.Warn("dropping session message", "session", id, "error", err)
			return
		}
		if err := conn.Send(msg); err != nil {
			slog.Debug("sending to session", "session", id, "error", err)
			end()
			return
		}
		if msg.Close {
			end()
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing session %s: %w", id, err)
	}
	defer unsubscribe()

	if err := m.enq.Enqueue(&ConnectEvent{m: m, id: id}); err != nil {
		return fmt.Errorf("connecting session %s: %w", id, err)
	}
	defer func() {
		if err := m.enq.Enqueue(&DisconnectEvent{m: m, id: id}); err != nil {
			slog.Warn("disconnecting session", "session", id, "error", err)
		}
	}()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		for {
			line, err := conn.ReadLine()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case lines <- line:
			case <-ended:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ended:
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading session %s: %w", id, err)
		case line := <-lines:
			if err := m.enq.Enqueue(&InputEvent{m: m, id: id, line: line}); err != nil {
				return fmt.Errorf("queueing input for session %s: %w", id, err)
			}
		}
	}
}

func (m *Manager) send(s *Session, msg messaging.Message) {
	if err := m.pub.PublishToSession(s.id, msg); err != nil {
		slog.Warn("publishing to session", "session", s.id, "error", err)
	}
}

// close ends s from the realm side.
func (m *Manager) close(s *Session, text string) {
	s.state = stateClosed
	m.send(s, messaging.Message{Text: text, Close: true})
}

// offLoop runs fn on its own goroutine. fn must only report back through
// the enqueuer.
func (m *Manager) offLoop(fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
}

// spawn puts the signed-in account into the world, taking over its player
// if it is already there.
func (m *Manager) spawn(ctx context.Context, s *Session, acct *Account) error {
	key := accountKey(acct.Name)

	for _, p := range m.realm.Each(game.KindPlayer) {
		if p.Actor.Account != key {
			continue
		}
		if old, ok := m.sessions[p.Actor.SessionID]; ok && old.id != s.id {
			old.player = game.Ref{}
			m.close(old, "Another connection has taken over your session.")
		}
		p.Actor.SessionID = s.id
		slog.InfoContext(ctx, "session took over player", "session", s.id, "player", p.Ref().String())
		m.enter(ctx, s, p)
		return nil
	}

	room := m.realm.Resolve(m.startRoom)
	if room == nil || room.Room == nil {
		return fmt.Errorf("spawning %s: %w", acct.Name, ErrNoStartRoom)
	}

	p, err := m.realm.Create(game.KindPlayer, acct.Name)
	if err != nil {
		return fmt.Errorf("spawning %s: %w", acct.Name, err)
	}
	p.Actor.Account = key
	p.Actor.SessionID = s.id
	p.Actor.Position = room.Room.Center
	p.Actor.Health, p.Actor.MaxHealth = m.health, m.health
	p.Actor.Energy, p.Actor.MaxEnergy = m.energy, m.energy
	if err := m.realm.MoveTo(p, room); err != nil {
		return fmt.Errorf("spawning %s: %w", acct.Name, err)
	}

	slog.InfoContext(ctx, "player spawned", "session", s.id, "player", p.Ref().String())
	m.enter(ctx, s, p)
	if m.invoker != nil {
		m.invoker.Invoke(ctx, room, trigger.OnSpawn, p)
	}
	return nil
}

func (m *Manager) enter(ctx context.Context, s *Session, p *game.Object) {
	s.player = p.Ref()
	s.state = statePlaying

	m.realm.Tell(p, fmt.Sprintf("Welcome, %s.", p.Name))
	err := m.handler.Exec(ctx, p, "look")
	var userErr *commands.UserError
	if errors.As(err, &userErr) {
		m.realm.Tell(p, userErr.Message)
	} else if err != nil {
		slog.WarnContext(ctx, "first look", "player", p.Ref().String(), "error", err)
	}
	m.realm.SendStatus(p)
}
