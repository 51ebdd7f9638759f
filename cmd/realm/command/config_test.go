package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pixil98/go-realm/internal/commands"
	"github.com/pixil98/go-realm/internal/driver"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/listener"
	"github.com/pixil98/go-realm/internal/player"
	"github.com/pixil98/go-realm/internal/storage"
	"github.com/pixil98/go-testutil"
)

const keepAsset = `
version: 1
id: keep
spec:
  name: Keep
  rooms:
    - key: hall
      name: Great Hall
      center: {x: 0, y: 0, z: 0}
    - key: yard
      name: Yard
      center: {x: 10, y: 0, z: 0}
  exits:
    - {key: out, from: hall, to: yard, name: out}
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	for _, sub := range []string{"accounts", "commands", "world"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatalf("creating %s: %v", sub, err)
		}
	}
	writeFile(t, filepath.Join(dir, "world", "keep.yaml"), keepAsset)

	return &Config{
		TickInterval: "2s",
		StartRoom:    "hall",
		Listeners: []ListenerConfig{
			{Protocol: ListenerTypeTelnet, Port: 4000},
		},
		Storage: StorageConfig{
			Accounts: AssetConfig[*player.Account]{Path: filepath.Join(dir, "accounts")},
			Commands: AssetConfig[*commands.Command]{Path: filepath.Join(dir, "commands")},
			World:    AssetConfig[*game.AreaSpec]{Path: filepath.Join(dir, "world")},
			Journal:  filepath.Join(dir, "journal", "realm.jsonl.zst"),
		},
		EventLog: EventLogConfig{Path: filepath.Join(dir, "events.db")},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		mutate func(c *Config)
		expErr string
	}{
		"valid": {
			mutate: func(c *Config) {},
		},
		"bad tick interval": {
			mutate: func(c *Config) { c.TickInterval = "soon" },
			expErr: "parsing tick_interval",
		},
		"tick too short": {
			mutate: func(c *Config) { c.TickInterval = "500ms" },
			expErr: "tick_interval must be at least 1 second",
		},
		"negative width": {
			mutate: func(c *Config) { c.Width = -1 },
			expErr: "width cannot be negative",
		},
		"no start room": {
			mutate: func(c *Config) { c.StartRoom = "" },
			expErr: "start_room is required",
		},
		"no listeners": {
			mutate: func(c *Config) { c.Listeners = nil },
			expErr: "at least one listener is required",
		},
		"listener without port": {
			mutate: func(c *Config) { c.Listeners[0].Port = 0 },
			expErr: "listener 0: port must be set",
		},
		"path on telnet": {
			mutate: func(c *Config) { c.Listeners[0].Path = "/play" },
			expErr: "path only applies to websocket listeners",
		},
		"relative websocket path": {
			mutate: func(c *Config) {
				c.Listeners[0].Protocol = ListenerTypeWebsocket
				c.Listeners[0].Path = "play"
			},
			expErr: "path must start with /",
		},
		"host key on telnet": {
			mutate: func(c *Config) { c.Listeners[0].HostKeyPath = "/etc/key" },
			expErr: "host_key_path only applies to ssh listeners",
		},
		"missing world": {
			mutate: func(c *Config) { c.Storage.World.Path = "" },
			expErr: "world: path is required",
		},
		"world does not exist": {
			mutate: func(c *Config) { c.Storage.World.Path = filepath.Join(t.TempDir(), "nowhere") },
			expErr: "world: invalid path",
		},
		"missing journal": {
			mutate: func(c *Config) { c.Storage.Journal = "" },
			expErr: "journal: path is required",
		},
		"missing event log": {
			mutate: func(c *Config) { c.EventLog.Path = "" },
			expErr: "event_log: path is required",
		},
		"bad nats timeout": {
			mutate: func(c *Config) { c.Nats.StartTimeout = "later" },
			expErr: "parsing start_timeout",
		},
		"nats port out of range": {
			mutate: func(c *Config) { c.Nats.Port = 70000 },
			expErr: "nats port 70000 out of range",
		},
		"missing prelude": {
			mutate: func(c *Config) { c.Scripting.Prelude = filepath.Join(t.TempDir(), "prelude.lua") },
			expErr: "scripting: invalid prelude",
		},
		"negative regen": {
			mutate: func(c *Config) { c.Players.RegenHealth = -1 },
			expErr: "players: regen_health cannot be negative",
		},
		"health without energy": {
			mutate: func(c *Config) { c.Players.Health = 30 },
			expErr: "health and energy must be set together",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := validConfig(t)
			tt.mutate(c)

			err := c.Validate()
			if tt.expErr == "" {
				testutil.AssertEqual(t, "err", err, nil)
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	c := validConfig(t)
	c.Nats.Host = "10.0.0.1"
	world := t.TempDir()

	t.Setenv("REALM_TICK_INTERVAL", "5s")
	t.Setenv("REALM_START_ROOM", "yard")
	t.Setenv("REALM_NATS_PORT", "4333")
	t.Setenv("REALM_WORLD_PATH", world)
	t.Setenv("REALM_GREETING", "Hail, traveller!")

	if err := c.ApplyEnv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "tick", c.TickInterval, "5s")
	testutil.AssertEqual(t, "start room", c.StartRoom, "yard")
	testutil.AssertEqual(t, "nats port", c.Nats.Port, 4333)
	testutil.AssertEqual(t, "nats host kept", c.Nats.Host, "10.0.0.1")
	testutil.AssertEqual(t, "world", c.Storage.World.Path, world)
	testutil.AssertEqual(t, "greeting", c.Players.Greeting, "Hail, traveller!")
	testutil.AssertEqual(t, "tick length", c.tickLength(), 5*time.Second)
}

func TestConfig_ApplyEnv_BadValue(t *testing.T) {
	c := validConfig(t)
	t.Setenv("REALM_WIDTH", "wide")

	err := c.ApplyEnv()
	testutil.AssertErrorContains(t, err, "parse env")
}

func TestListenerConfig_Unmarshal(t *testing.T) {
	tests := map[string]struct {
		raw    string
		exp    ListenerType
		expErr string
	}{
		"telnet":    {raw: `{"protocol": "telnet", "port": 4000}`, exp: ListenerTypeTelnet},
		"ssh":       {raw: `{"protocol": "ssh", "port": 4001}`, exp: ListenerTypeSSH},
		"websocket": {raw: `{"protocol": "websocket", "port": 4002, "path": "/play"}`, exp: ListenerTypeWebsocket},
		"unknown":   {raw: `{"protocol": "gopher", "port": 70}`, expErr: "unknown listener type: gopher"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var lc ListenerConfig
			err := json.Unmarshal([]byte(tt.raw), &lc)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "protocol", lc.Protocol, tt.exp)
			testutil.AssertEqual(t, "name", lc.Protocol.String(), name)
		})
	}
}

func TestListenerConfig_BuildListener(t *testing.T) {
	tests := map[string]struct {
		cfg     ListenerConfig
		expType string
		expErr  string
	}{
		"telnet": {
			cfg:     ListenerConfig{Protocol: ListenerTypeTelnet, Port: 4000},
			expType: "*listener.TelnetListener",
		},
		"ssh with ephemeral key": {
			cfg:     ListenerConfig{Protocol: ListenerTypeSSH, Port: 4001},
			expType: "*listener.SshListener",
		},
		"ssh with missing key": {
			cfg:    ListenerConfig{Protocol: ListenerTypeSSH, Port: 4001, HostKeyPath: "/nonexistent/key"},
			expErr: "reading host key",
		},
		"websocket": {
			cfg:     ListenerConfig{Protocol: ListenerTypeWebsocket, Port: 4002, Path: "/play"},
			expType: "*listener.WebsocketListener",
		},
		"unknown": {
			cfg:    ListenerConfig{Protocol: ListenerType(9), Port: 4003},
			expErr: "unknown listener type",
		},
	}

	cm := listener.NewConnectionManager(nil, 80)
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w, err := tt.cfg.BuildListener(cm)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "type", fmt.Sprintf("%T", w), tt.expType)
		})
	}
}

func TestScriptingConfig_BuildHost(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "prelude.lua")
	writeFile(t, good, `greeting = "well met"`)
	bad := filepath.Join(dir, "broken.lua")
	writeFile(t, bad, `greeting = `)

	c := ScriptingConfig{Prelude: good}
	host, err := c.buildHost()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = host.Close() }()

	fn, err := host.DefineFunction("return greeting")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := host.Call(fn, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "prelude global", res, any("well met"))

	c = ScriptingConfig{Prelude: bad}
	_, err = c.buildHost()
	testutil.AssertErrorContains(t, err, "running prelude")
}

func TestConfig_LoadRealm(t *testing.T) {
	c := validConfig(t)

	// a player left over from a previous run
	previous := game.NewRealm(driver.NewMudDriver())
	idx, err := game.LoadWorld(previous, map[string]*game.AreaSpec{"keep": mustArea(t)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hero, err := previous.Create(game.KindPlayer, "Hero")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hero.Actor.SessionID = "gone"
	if err := previous.MoveTo(hero, previous.Resolve(idx["yard"])); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	writeJournal(t, c.Storage.Journal, hero.ToPortableForm())

	drv := driver.NewMudDriver()
	realm := game.NewRealm(drv)
	start, err := c.loadRealm(realm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "start room", realm.Resolve(start).Name, "Great Hall")
	testutil.AssertEqual(t, "stale players", len(realm.Each(game.KindPlayer)), 0)
	testutil.AssertEqual(t, "pending deletes", drv.Pending(), 1)
}

func TestConfig_LoadRealm_UnknownStartRoom(t *testing.T) {
	tests := map[string]string{
		"missing key": "cellar",
		"not a room":  "keep",
	}

	for name, room := range tests {
		t.Run(name, func(t *testing.T) {
			c := validConfig(t)
			c.StartRoom = room

			_, err := c.loadRealm(game.NewRealm(driver.NewMudDriver()))
			if !errors.Is(err, player.ErrNoStartRoom) {
				t.Errorf("expected ErrNoStartRoom, got %v", err)
			}
		})
	}
}

func mustArea(t *testing.T) *game.AreaSpec {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "keep.yaml"), keepAsset)
	store, err := storage.NewFileStore[*game.AreaSpec](dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return store.Get("keep")
}

func writeJournal(t *testing.T, path string, forms ...game.PortableForm) {
	t.Helper()
	j := storage.NewJournal[game.PortableForm](path)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Start(ctx) }()

	if err := j.Append(forms...); err != nil {
		t.Fatalf("unexpected append error: %v", err)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected journal error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("journal did not stop")
	}
}
