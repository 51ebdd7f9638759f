package command

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-realm/internal/scripting"
)

// Config is the realm server configuration. Any field with an env tag can
// be overridden by a REALM_* environment variable.
type Config struct {
	TickInterval string           `json:"tick_interval" env:"REALM_TICK_INTERVAL"`
	Width        int              `json:"width" env:"REALM_WIDTH"`
	StartRoom    string           `json:"start_room" env:"REALM_START_ROOM"`
	Listeners    []ListenerConfig `json:"listeners" envPrefix:"REALM_LISTENER_"`
	Storage      StorageConfig    `json:"storage"`
	EventLog     EventLogConfig   `json:"event_log"`
	Nats         NatsConfig       `json:"nats"`
	Scripting    ScriptingConfig  `json:"scripting"`
	Players      PlayersConfig    `json:"players"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	d, err := time.ParseDuration(c.TickInterval)
	if err != nil {
		el.Add(fmt.Errorf("parsing tick_interval: %w", err))
	} else if d < time.Second {
		el.Add(fmt.Errorf("tick_interval must be at least 1 second"))
	}

	if c.Width < 0 {
		el.Add(fmt.Errorf("width cannot be negative"))
	}
	if c.StartRoom == "" {
		el.Add(fmt.Errorf("start_room is required"))
	}

	if len(c.Listeners) == 0 {
		el.Add(fmt.Errorf("at least one listener is required"))
	}
	for i, l := range c.Listeners {
		if err := l.validate(); err != nil {
			el.Add(fmt.Errorf("listener %d: %w", i, err))
		}
	}

	el.Add(c.Storage.validate())
	el.Add(c.EventLog.validate())
	el.Add(c.Nats.validate())
	el.Add(c.Scripting.validate())
	el.Add(c.Players.validate())

	return el.Err()
}

// ApplyEnv overrides file settings with any REALM_* variables that are set.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) tickLength() time.Duration {
	d, _ := time.ParseDuration(c.TickInterval)
	return d
}

type EventLogConfig struct {
	Path string `json:"path" env:"REALM_EVENT_LOG_PATH"`
}

func (c *EventLogConfig) validate() error {
	if c.Path == "" {
		return fmt.Errorf("event_log: path is required")
	}
	return nil
}

type ScriptingConfig struct {
	// Prelude is a script run once at startup, before any trigger is bound.
	Prelude string `json:"prelude,omitempty" env:"REALM_SCRIPT_PRELUDE"`
}

func (c *ScriptingConfig) validate() error {
	if c.Prelude == "" {
		return nil
	}
	if _, err := os.Stat(c.Prelude); err != nil {
		return fmt.Errorf("scripting: invalid prelude %q: %w", c.Prelude, err)
	}
	return nil
}

func (c *ScriptingConfig) buildHost() (*scripting.LuaHost, error) {
	host := scripting.NewLuaHost()
	if c.Prelude == "" {
		return host, nil
	}

	src, err := os.ReadFile(c.Prelude)
	if err != nil {
		return nil, fmt.Errorf("reading prelude: %w", err)
	}
	if err := host.Evaluate(string(src)); err != nil {
		return nil, fmt.Errorf("running prelude %q: %w", c.Prelude, err)
	}
	return host, nil
}

type PlayersConfig struct {
	Greeting         string `json:"greeting,omitempty" env:"REALM_GREETING"`
	MaxPasswordTries int    `json:"max_password_tries,omitempty"`
	Health           int    `json:"health,omitempty"`
	Energy           int    `json:"energy,omitempty"`
	RegenHealth      int    `json:"regen_health"`
	RegenEnergy      int    `json:"regen_energy"`
}

func (c *PlayersConfig) validate() error {
	el := errors.NewErrorList()

	fields := []struct {
		name  string
		value int
	}{
		{"max_password_tries", c.MaxPasswordTries},
		{"health", c.Health},
		{"energy", c.Energy},
		{"regen_health", c.RegenHealth},
		{"regen_energy", c.RegenEnergy},
	}
	for _, f := range fields {
		if f.value < 0 {
			el.Add(fmt.Errorf("players: %s cannot be negative", f.name))
		}
	}
	if (c.Health == 0) != (c.Energy == 0) {
		el.Add(fmt.Errorf("players: health and energy must be set together"))
	}

	return el.Err()
}
