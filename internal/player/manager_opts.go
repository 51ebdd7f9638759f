package player

import (
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/trigger"
)

const (
	defaultGreeting         = "Welcome to the realm!"
	defaultMaxPasswordTries = 3
	defaultHealth           = 20
	defaultEnergy           = 20
)

type ManagerOpt func(*Manager)

// WithStartRoom sets where new players appear.
func WithStartRoom(r game.Ref) ManagerOpt {
	return func(m *Manager) {
		m.startRoom = r
	}
}

func WithGreeting(s string) ManagerOpt {
	return func(m *Manager) {
		m.greeting = s
	}
}

// WithHashCost sets the bcrypt cost used for new passwords.
func WithHashCost(cost int) ManagerOpt {
	return func(m *Manager) {
		m.hashCost = cost
	}
}

// WithMaxPasswordTries sets how many wrong passwords end a session.
func WithMaxPasswordTries(n int) ManagerOpt {
	return func(m *Manager) {
		m.maxTries = n
	}
}

// WithVitals sets the health and energy new players start with.
func WithVitals(health, energy int) ManagerOpt {
	return func(m *Manager) {
		m.health = health
		m.energy = energy
	}
}

// WithInvoker fires the start room's spawn trigger for new players.
func WithInvoker(i *trigger.Invoker) ManagerOpt {
	return func(m *Manager) {
		m.invoker = i
	}
}
