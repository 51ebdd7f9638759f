package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pixil98/go-realm/internal/driver"
	"github.com/pixil98/go-realm/internal/eventlog"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/perception"
	"github.com/pixil98/go-realm/internal/storage"
	"github.com/pixil98/go-realm/internal/trigger"
)

// CommandFunc is the signature for compiled command functions.
type CommandFunc func(ctx context.Context, inv *Invocation) error

// HandlerFactory creates CommandFuncs from command configurations.
type HandlerFactory interface {
	// ValidateConfig validates that the config contains required fields.
	ValidateConfig(config map[string]any) error
	// Create creates a CommandFunc from the validated config.
	Create(config map[string]any) (CommandFunc, error)
}

// Invocation is everything a command function needs about one command line.
type Invocation struct {
	Actor  *game.Object
	Room   *game.Object // nil when the actor is nowhere
	Verb   string
	Args   []string
	Inputs map[string]any
}

// String returns a string input, or "" when it was not given.
func (inv *Invocation) String(name string) string {
	s, _ := inv.Inputs[name].(string)
	return s
}

func (inv *Invocation) Int(name string) int {
	n, _ := inv.Inputs[name].(int)
	return n
}

func (inv *Invocation) Float(name string) float64 {
	f, _ := inv.Inputs[name].(float64)
	return f
}

// LogQuerier answers event log queries off the driver goroutine.
type LogQuerier interface {
	Query(ctx context.Context, q eventlog.Query, reply func([]eventlog.Entry, error))
}

type compiledCommand struct {
	inputs []InputSpec
	fn     CommandFunc
}

// Handler maps verbs to command functions and runs them for actors. All
// methods apart from registration must be called from the driver goroutine.
type Handler struct {
	realm    *game.Realm
	invoker  *trigger.Invoker
	engine   *perception.Engine
	enq      driver.Enqueuer
	recorder perception.Recorder
	logs     LogQuerier

	sayRadius   float64
	sightRadius float64

	factories map[string]HandlerFactory
	compiled  map[string]*compiledCommand
}

func NewHandler(realm *game.Realm, invoker *trigger.Invoker, engine *perception.Engine, enq driver.Enqueuer, opts ...HandlerOpt) *Handler {
	h := &Handler{
		realm:       realm,
		invoker:     invoker,
		engine:      engine,
		enq:         enq,
		sayRadius:   defaultSayRadius,
		sightRadius: defaultSightRadius,
		factories:   map[string]HandlerFactory{},
		compiled:    map[string]*compiledCommand{},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Register binds verb to fn. Inputs are parsed from the words after the
// verb before fn runs.
func (h *Handler) Register(verb string, fn CommandFunc, inputs ...InputSpec) error {
	verb = strings.ToLower(verb)
	if verb == "" {
		return fmt.Errorf("verb cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("registering %q: command func cannot be nil", verb)
	}
	if _, exists := h.compiled[verb]; exists {
		return fmt.Errorf("registering %q: %w", verb, ErrDuplicateVerb)
	}
	if err := validateInputs(inputs); err != nil {
		return fmt.Errorf("registering %q: %w", verb, err)
	}

	h.compiled[verb] = &compiledCommand{inputs: inputs, fn: fn}
	return nil
}

// RegisterFactory registers a handler factory by name.
// The name must match the "handler" field in command asset definitions.
func (h *Handler) RegisterFactory(name string, factory HandlerFactory) error {
	if name == "" {
		return fmt.Errorf("handler name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("handler factory cannot be nil")
	}
	if _, exists := h.factories[name]; exists {
		return fmt.Errorf("handler factory %q already registered", name)
	}
	h.factories[name] = factory
	return nil
}

// CompileAll compiles all commands from the store.
// Call this after all handler factories have been registered.
func (h *Handler) CompileAll(store storage.Storer[*Command]) error {
	all := store.GetAll()
	verbs := make([]string, 0, len(all))
	for verb := range all {
		verbs = append(verbs, verb)
	}
	sort.Strings(verbs)

	for _, verb := range verbs {
		if err := h.compile(verb, all[verb]); err != nil {
			return fmt.Errorf("compiling command %q: %w", verb, err)
		}
	}
	return nil
}

func (h *Handler) compile(verb string, cmd *Command) error {
	factory, ok := h.factories[cmd.Handler]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownFactory, cmd.Handler)
	}

	if err := factory.ValidateConfig(cmd.Config); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	fn, err := factory.Create(cmd.Config)
	if err != nil {
		return fmt.Errorf("creating handler: %w", err)
	}

	return h.Register(verb, fn, cmd.Inputs...)
}

// Verbs returns the registered verbs in order.
func (h *Handler) Verbs() []string {
	verbs := make([]string, 0, len(h.compiled))
	for v := range h.compiled {
		verbs = append(verbs, v)
	}
	sort.Strings(verbs)
	return verbs
}

// Exec parses line and runs the matching command for actor. A line whose
// first word names a way out of the actor's room is treated as "go".
func (h *Handler) Exec(ctx context.Context, actor *game.Object, line string) error {
	words := strings.Fields(line)
	if len(words) == 0 {
		return nil
	}

	inv := &Invocation{
		Actor: actor,
		Verb:  strings.ToLower(words[0]),
		Args:  words[1:],
	}
	if loc, ok := actor.Location(); ok {
		inv.Room = h.realm.Resolve(loc)
	}

	compiled, ok := h.compiled[inv.Verb]
	if !ok {
		if inv.Room != nil && len(inv.Args) == 0 {
			if _, found := h.findWay(inv.Room, inv.Verb); found {
				inv.Args = []string{inv.Verb}
				inv.Verb = "go"
				compiled, ok = h.compiled[inv.Verb]
			}
		}
		if !ok {
			return NewUserError(fmt.Sprintf("Unknown command: %s", words[0]))
		}
	}

	inputs, err := parseInputs(compiled.inputs, inv.Args)
	if err != nil {
		return err
	}
	inv.Inputs = inputs

	return compiled.fn(ctx, inv)
}

// parseInputs validates raw string arguments against input specs.
func parseInputs(specs []InputSpec, rawArgs []string) (map[string]any, error) {
	hasRest := len(specs) > 0 && specs[len(specs)-1].Rest
	if !hasRest && len(rawArgs) > len(specs) {
		return nil, NewUserError(fmt.Sprintf("Expected at most %d argument(s), got %d.", len(specs), len(rawArgs)))
	}

	inputs := make(map[string]any, len(specs))
	argIndex := 0

	for i := range specs {
		spec := &specs[i]

		if argIndex >= len(rawArgs) {
			// No more input - this param must be optional
			if spec.Required {
				return nil, NewUserError(fmt.Sprintf("Missing required parameter: %s.", spec.Name))
			}
			continue
		}

		var raw string
		if spec.Rest {
			// Consume all remaining args joined with spaces
			raw = strings.Join(rawArgs[argIndex:], " ")
			argIndex = len(rawArgs)
		} else {
			raw = rawArgs[argIndex]
			argIndex++
		}

		value, err := parseValue(spec.Type, raw)
		if err != nil {
			return nil, err
		}
		inputs[spec.Name] = value
	}

	return inputs, nil
}

// parseValue parses a raw string into the appropriate type.
func parseValue(inputType InputType, raw string) (any, error) {
	switch inputType {
	case InputTypeString:
		return raw, nil

	case InputTypeNumber:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, NewUserError(fmt.Sprintf("%q is not a valid number.", raw))
		}
		return n, nil

	case InputTypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, NewUserError(fmt.Sprintf("%q is not a valid number.", raw))
		}
		return f, nil

	default:
		return nil, fmt.Errorf("unknown parameter type %q", inputType)
	}
}
