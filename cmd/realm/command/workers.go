package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-realm/internal/commands"
	"github.com/pixil98/go-realm/internal/driver"
	"github.com/pixil98/go-realm/internal/eventlog"
	"github.com/pixil98/go-realm/internal/events"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/listener"
	"github.com/pixil98/go-realm/internal/messaging"
	"github.com/pixil98/go-realm/internal/perception"
	"github.com/pixil98/go-realm/internal/player"
	"github.com/pixil98/go-realm/internal/storage"
	"github.com/pixil98/go-realm/internal/trigger"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// Output bus
	bus, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	publisher := messaging.NewNatsPublisher(bus)

	// Persistence
	history, err := eventlog.Open(cfg.EventLog.Path)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	journal := storage.NewJournal[game.PortableForm](cfg.Storage.Journal)

	host, err := cfg.Scripting.buildHost()
	if err != nil {
		return nil, fmt.Errorf("creating script host: %w", err)
	}

	// The realm and the driver refer to each other; the driver only calls
	// back once it is started.
	var realm *game.Realm
	var regen *game.Regenerator
	drv := driver.NewMudDriver(
		driver.WithTickLength(cfg.tickLength()),
		driver.WithFlusher(driver.FlusherFunc(func(ctx context.Context) error {
			return realm.FlushDirty(ctx)
		})),
		driver.WithTickers(driver.TickerFunc(func(ctx context.Context) error {
			return regen.Tick(ctx)
		})),
	)
	realm = game.NewRealm(drv,
		game.WithScriptHost(host),
		game.WithPublisher(publisher),
		game.WithPersister(journal),
		game.WithRecorder(history),
	)
	regen = game.NewRegenerator(realm, cfg.Players.RegenHealth, cfg.Players.RegenEnergy)

	// the shutdown drain still flushes, records and replies
	bus.WaitFor(drv.Done())
	history.WaitFor(drv.Done())
	journal.WaitFor(drv.Done())

	startRoom, err := cfg.loadRealm(realm)
	if err != nil {
		return nil, err
	}

	invoker := trigger.NewInvoker(host)
	engine := perception.NewEngine(realm, invoker, perception.WithRecorder(history))
	sched := events.NewScheduler(drv, realm, invoker)
	events.NewBindings(realm, sched, engine, drv).Register(host)

	handler, err := cfg.buildHandler(realm, invoker, engine, drv, history)
	if err != nil {
		return nil, err
	}

	accounts, err := cfg.Storage.Accounts.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating account store: %w", err)
	}
	players := player.NewManager(realm, drv, handler, publisher, bus, accounts, cfg.playerOpts(startRoom, invoker)...)

	// Create Listeners
	cm := listener.NewConnectionManager(players, cfg.Width)
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		w, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d-%s", i, l.Protocol)] = w
	}

	return service.WorkerList{
		"nats":      bus,
		"event-log": history,
		"journal":   journal,
		"driver":    drv,
		"players":   players,
		"listeners": &listeners,
	}, nil
}

// loadRealm builds the world, replays the journal on top of it and returns
// the room new players start in.
func (c *Config) loadRealm(realm *game.Realm) (game.Ref, error) {
	world, err := c.Storage.World.BuildFileStore()
	if err != nil {
		return game.Ref{}, fmt.Errorf("creating world store: %w", err)
	}
	idx, err := game.LoadWorld(realm, world.GetAll())
	if err != nil {
		return game.Ref{}, fmt.Errorf("loading world: %w", err)
	}

	if err := storage.ReplayJournal(c.Storage.Journal, realm.Restore); err != nil {
		return game.Ref{}, fmt.Errorf("replaying journal: %w", err)
	}
	// nobody is connected yet, so every restored player has lost its session
	for _, p := range realm.Each(game.KindPlayer) {
		if err := realm.SoftDelete(p.Ref()); err != nil {
			return game.Ref{}, fmt.Errorf("removing stale player: %w", err)
		}
	}

	start, ok := idx[c.StartRoom]
	if !ok || realm.Resolve(start) == nil || start.Kind != game.KindRoom {
		return game.Ref{}, fmt.Errorf("start room %q: %w", c.StartRoom, player.ErrNoStartRoom)
	}

	slog.Info("realm loaded", "areas", len(world.GetAll()), "objects", realm.Count(), "start_room", start.String())
	return start, nil
}

func (c *Config) buildHandler(realm *game.Realm, invoker *trigger.Invoker, engine *perception.Engine, enq driver.Enqueuer, history *eventlog.Log) (*commands.Handler, error) {
	h := commands.NewHandler(realm, invoker, engine, enq,
		commands.WithRecorder(history),
		commands.WithLogQuerier(history),
	)
	if err := h.RegisterBuiltins(); err != nil {
		return nil, fmt.Errorf("registering built-in commands: %w", err)
	}

	store, err := c.Storage.Commands.BuildFileStore()
	if err != nil {
		return nil, fmt.Errorf("creating command store: %w", err)
	}
	if err := h.CompileAll(store); err != nil {
		return nil, fmt.Errorf("compiling commands: %w", err)
	}
	return h, nil
}

func (c *Config) playerOpts(startRoom game.Ref, invoker *trigger.Invoker) []player.ManagerOpt {
	opts := []player.ManagerOpt{
		player.WithStartRoom(startRoom),
		player.WithInvoker(invoker),
	}
	if c.Players.Greeting != "" {
		opts = append(opts, player.WithGreeting(c.Players.Greeting))
	}
	if c.Players.MaxPasswordTries > 0 {
		opts = append(opts, player.WithMaxPasswordTries(c.Players.MaxPasswordTries))
	}
	if c.Players.Health > 0 && c.Players.Energy > 0 {
		opts = append(opts, player.WithVitals(c.Players.Health, c.Players.Energy))
	}
	return opts
}
