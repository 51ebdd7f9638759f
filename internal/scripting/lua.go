package scripting

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Shopify/go-lua"
)

const (
	callablesGlobal = "__callables"
	handleTypeName  = "handle"
)

// LuaHost runs scripts on a single Lua state. It is not safe for concurrent
// use; the world driver is its only caller.
type LuaHost struct {
	state *lua.State

	nextSlot  int
	freeSlots []int
	lastFault error

	// borrowed holds slots of functions handed to Go that nobody retained
	borrowed []int
	depth    int
}

// NewLuaHost creates a host with the standard libraries opened.
func NewLuaHost() *LuaHost {
	l := lua.NewState()
	lua.OpenLibraries(l)

	l.NewTable()
	l.SetGlobal(callablesGlobal)

	registerHandleType(l)

	return &LuaHost{state: l}
}

func registerHandleType(l *lua.State) {
	lua.NewMetaTable(l, handleTypeName)
	lua.SetFunctions(l, []lua.RegistryFunction{
		{Name: "__index", Function: handleIndex},
		{Name: "__eq", Function: handleEq},
		{Name: "__tostring", Function: handleString},
	}, 0)
	l.Pop(1)
}

func handleIndex(l *lua.State) int {
	h := checkHandle(l, 1)
	switch lua.CheckString(l, 2) {
	case "kind":
		l.PushString(h.Kind)
	case "id":
		l.PushNumber(float64(h.ID))
	default:
		l.PushNil()
	}
	return 1
}

func handleEq(l *lua.State) int {
	a, aok := l.ToUserData(1).(HandleValue)
	b, bok := l.ToUserData(2).(HandleValue)
	l.PushBoolean(aok && bok && a == b)
	return 1
}

func handleString(l *lua.State) int {
	h := checkHandle(l, 1)
	l.PushString(fmt.Sprintf("%s#%d", h.Kind, h.ID))
	return 1
}

func checkHandle(l *lua.State, index int) HandleValue {
	h, ok := lua.CheckUserData(l, index, handleTypeName).(HandleValue)
	if !ok {
		lua.ArgumentError(l, index, "handle expected")
	}
	return h
}

// Evaluate runs source as a chunk, discarding any results.
func (h *LuaHost) Evaluate(source string) error {
	h.lastFault = nil
	if h.state == nil {
		return h.fault(ErrHostReleased)
	}

	h.enter()
	defer h.leave()

	if err := lua.LoadString(h.state, source); err != nil {
		return h.fault(fmt.Errorf("compiling chunk: %w", err))
	}
	if err := h.state.ProtectedCall(0, 0, 0); err != nil {
		return h.fault(fmt.Errorf("running chunk: %w", err))
	}
	return nil
}

// DefineFunction compiles source into a callable. Source may be a function
// expression ("function(self, text) ... end") or a bare body, which is
// wrapped so that the bound object is available as self.
func (h *LuaHost) DefineFunction(source string) (Callable, error) {
	h.lastFault = nil
	if h.state == nil {
		return Callable{}, h.fault(ErrHostReleased)
	}

	trimmed := strings.TrimSpace(source)
	var chunk string
	if strings.HasPrefix(trimmed, "function") {
		chunk = "return " + trimmed
	} else {
		chunk = "return function(self, ...)\n" + trimmed + "\nend"
	}

	h.enter()
	defer h.leave()

	l := h.state
	top := l.Top()
	defer l.SetTop(top)

	if err := lua.LoadString(l, chunk); err != nil {
		return Callable{}, h.fault(fmt.Errorf("compiling function: %w", err))
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		return Callable{}, h.fault(fmt.Errorf("defining function: %w", err))
	}
	if !l.IsFunction(-1) {
		return Callable{}, h.fault(ErrNotCallable)
	}

	return h.store(-1), nil
}

// store saves the function at index into the callables table.
func (h *LuaHost) store(index int) Callable {
	l := h.state
	index = l.AbsIndex(index)

	var slot int
	if n := len(h.freeSlots); n > 0 {
		slot = h.freeSlots[n-1]
		h.freeSlots = h.freeSlots[:n-1]
	} else {
		h.nextSlot++
		slot = h.nextSlot
	}

	l.Global(callablesGlobal)
	l.PushValue(index)
	l.RawSetInt(-2, slot)
	l.Pop(1)

	return Callable{slot: slot}
}

// pushCallable pushes the function for fn, or nil when the slot is empty.
func (h *LuaHost) pushCallable(fn Callable) {
	l := h.state
	l.Global(callablesGlobal)
	l.RawGetInt(-1, fn.slot)
	l.Remove(-2)
}

// Call invokes fn with this as its first argument and returns the first
// result.
func (h *LuaHost) Call(fn Callable, this any, args ...any) (result any, err error) {
	h.lastFault = nil
	if h.state == nil {
		return nil, h.fault(ErrHostReleased)
	}
	if !fn.Defined() {
		return nil, h.fault(ErrNoCallable)
	}

	h.enter()
	defer h.leave()

	l := h.state
	top := l.Top()
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = h.fault(fmt.Errorf("script call panicked: %v", r))
		}
		l.SetTop(top)
	}()

	h.pushCallable(fn)
	if !l.IsFunction(-1) {
		return nil, h.fault(ErrNoCallable)
	}

	h.push(this)
	for _, a := range args {
		h.push(a)
	}

	if err := l.ProtectedCall(len(args)+1, 1, 0); err != nil {
		return nil, h.fault(err)
	}

	return h.toGo(-1, 0), nil
}

// Retain keeps a function that a script handed to Go alive past the next
// call into the host. The caller must Release it later.
func (h *LuaHost) Retain(fn Callable) {
	h.borrowed = removeSlot(h.borrowed, fn.slot)
}

// enter releases the functions borrowed during the previous top-level call.
func (h *LuaHost) enter() {
	if h.depth == 0 {
		borrowed := h.borrowed
		h.borrowed = nil
		for _, slot := range borrowed {
			h.free(slot)
		}
	}
	h.depth++
}

func (h *LuaHost) leave() {
	h.depth--
}

// Release frees the slot held by fn. Releasing an undefined handle is a
// no-op.
func (h *LuaHost) Release(fn Callable) {
	if h.state == nil || !fn.Defined() {
		return
	}
	h.borrowed = removeSlot(h.borrowed, fn.slot)
	h.free(fn.slot)
}

func (h *LuaHost) free(slot int) {
	l := h.state
	l.Global(callablesGlobal)
	l.PushNil()
	l.RawSetInt(-2, slot)
	l.Pop(1)
	h.freeSlots = append(h.freeSlots, slot)
}

func removeSlot(slots []int, slot int) []int {
	for i, s := range slots {
		if s == slot {
			return append(slots[:i], slots[i+1:]...)
		}
	}
	return slots
}

// Register exposes fn to scripts as a global function.
func (h *LuaHost) Register(name string, fn GoFunction) {
	if h.state == nil {
		return
	}
	h.state.PushGoFunction(func(l *lua.State) int {
		args := make([]any, l.Top())
		for i := range args {
			args[i] = h.toGo(i+1, 0)
		}

		res, err := h.invokeGo(name, fn, args)
		if err != nil {
			lua.Errorf(l, "%s: %s", name, err.Error())
			return 0
		}
		h.push(res)
		return 1
	})
	h.state.SetGlobal(name)
}

// invokeGo turns panics in Go callbacks into script errors so that they
// unwind through the protected call rather than the driver.
func (h *LuaHost) invokeGo(name string, fn GoFunction, args []any) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", name, r)
		}
	}()
	return fn(args)
}

func (h *LuaHost) HasFault() bool {
	return h.lastFault != nil
}

func (h *LuaHost) LastFault() error {
	return h.lastFault
}

func (h *LuaHost) Close() error {
	h.state = nil
	return nil
}

func (h *LuaHost) fault(err error) error {
	h.lastFault = err
	return err
}

func (h *LuaHost) push(v any) {
	l := h.state
	switch val := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(val)
	case int:
		l.PushInteger(val)
	case int64:
		l.PushNumber(float64(val))
	case uint64:
		l.PushNumber(float64(val))
	case float64:
		l.PushNumber(val)
	case string:
		l.PushString(val)
	case Callable:
		h.pushCallable(val)
	case Handle:
		kind, id := val.ScriptHandle()
		l.PushUserData(HandleValue{Kind: kind, ID: id})
		lua.SetMetaTableNamed(l, handleTypeName)
	case []string:
		l.NewTable()
		for i, s := range val {
			l.PushString(s)
			l.RawSetInt(-2, i+1)
		}
	case []any:
		l.NewTable()
		for i, e := range val {
			h.push(e)
			l.RawSetInt(-2, i+1)
		}
	case map[string]any:
		l.NewTable()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.push(val[k])
			l.SetField(-2, k)
		}
	case error:
		l.PushString(val.Error())
	default:
		l.PushString(fmt.Sprint(val))
	}
}

const maxTableDepth = 16

func (h *LuaHost) toGo(index int, depth int) any {
	l := h.state
	switch l.TypeOf(index) {
	case lua.TypeBoolean:
		return l.ToBoolean(index)
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int(n)
		}
		return n
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s
	case lua.TypeUserData:
		if hv, ok := l.ToUserData(index).(HandleValue); ok {
			return hv
		}
		return nil
	case lua.TypeFunction:
		fn := h.store(index)
		h.borrowed = append(h.borrowed, fn.slot)
		return fn
	case lua.TypeTable:
		if depth >= maxTableDepth {
			return nil
		}
		return h.tableToGo(index, depth+1)
	default:
		return nil
	}
}

// tableToGo converts a sequence to []any and anything else to
// map[string]any, dropping non-string keys of non-sequences.
func (h *LuaHost) tableToGo(index int, depth int) any {
	l := h.state
	index = l.AbsIndex(index)

	seq := map[int]any{}
	fields := map[string]any{}
	maxIndex := 0

	l.PushNil()
	for l.Next(index) {
		switch l.TypeOf(-2) {
		case lua.TypeNumber:
			if i, ok := l.ToInteger(-2); ok && i > 0 {
				seq[i] = h.toGo(-1, depth)
				if i > maxIndex {
					maxIndex = i
				}
			}
		case lua.TypeString:
			// ToString on a key would confuse Next; the key is a string already.
			k, _ := l.ToString(-2)
			fields[k] = h.toGo(-1, depth)
		}
		l.Pop(1)
	}

	if len(fields) == 0 && len(seq) == maxIndex {
		out := make([]any, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			out[i-1] = seq[i]
		}
		return out
	}
	return fields
}
