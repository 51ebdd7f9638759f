package scripting

import (
	"errors"
	"fmt"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestLuaHost_Call(t *testing.T) {
	tests := map[string]struct {
		source string
		this   any
		args   []any
		exp    string
		expErr string
	}{
		"function expression": {
			source: "function(self, a, b) return a + b end",
			args:   []any{2, 3},
			exp:    "5",
		},
		"bare body": {
			source: "return false",
			exp:    "false",
		},
		"no result": {
			source: "local x = 1",
			exp:    "<nil>",
		},
		"handle fields": {
			source: "return self.kind .. ':' .. self.id",
			this:   HandleValue{Kind: "room", ID: 7},
			exp:    "room:7",
		},
		"handle round trip": {
			source: "function(self) return self end",
			this:   HandleValue{Kind: "item", ID: 3},
			exp:    "{item 3}",
		},
		"table result": {
			source: "return {1, 2, 3}",
			exp:    "[1 2 3]",
		},
		"map result": {
			source: "return {name = 'door'}",
			exp:    "map[name:door]",
		},
		"runtime error": {
			source: "error('boom')",
			expErr: "boom",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			h := NewLuaHost()
			defer func() { _ = h.Close() }()

			fn, err := h.DefineFunction(tt.source)
			if err != nil {
				t.Fatalf("unexpected define error: %v", err)
			}

			got, err := h.Call(fn, tt.this, tt.args...)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				testutil.AssertEqual(t, "has fault", h.HasFault(), true)
				testutil.AssertErrorContains(t, h.LastFault(), tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected call error: %v", err)
			}
			testutil.AssertEqual(t, "result", fmt.Sprint(got), tt.exp)
			testutil.AssertEqual(t, "has fault", h.HasFault(), false)
		})
	}
}

func TestLuaHost_DefineFunction_CompileError(t *testing.T) {
	h := NewLuaHost()

	_, err := h.DefineFunction("function(self end")
	if err == nil {
		t.Fatal("expected compile error")
	}
	testutil.AssertEqual(t, "has fault", h.HasFault(), true)
}

func TestLuaHost_FaultClearsOnSuccess(t *testing.T) {
	h := NewLuaHost()

	_ = h.Evaluate("error('first')")
	testutil.AssertEqual(t, "fault after error", h.HasFault(), true)

	err := h.Evaluate("x = 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "fault after success", h.HasFault(), false)
}

func TestLuaHost_Register(t *testing.T) {
	h := NewLuaHost()

	var seen []any
	h.Register("double", func(args []any) (any, error) {
		seen = args
		n, ok := args[0].(int)
		if !ok {
			return nil, errors.New("number expected")
		}
		return n * 2, nil
	})
	h.Register("fails", func(args []any) (any, error) {
		return nil, errors.New("nope")
	})
	h.Register("explodes", func(args []any) (any, error) {
		panic("kaboom")
	})

	fn, err := h.DefineFunction("return double(21)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := h.Call(fn, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "result", fmt.Sprint(got), "42")
	testutil.AssertEqual(t, "args", fmt.Sprint(seen), "[21]")

	fn, _ = h.DefineFunction("return fails()")
	_, err = h.Call(fn, nil)
	testutil.AssertErrorContains(t, err, "nope")

	fn, _ = h.DefineFunction("return explodes()")
	_, err = h.Call(fn, nil)
	testutil.AssertErrorContains(t, err, "kaboom")
}

func TestLuaHost_FunctionValues(t *testing.T) {
	h := NewLuaHost()

	fn, err := h.DefineFunction("return function() return 'inner' end")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := h.Call(fn, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inner, ok := got.(Callable)
	if !ok {
		t.Fatalf("expected Callable, got %T", got)
	}
	h.Retain(inner)
	defer h.Release(inner)

	got, err = h.Call(inner, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "inner", fmt.Sprint(got), "inner")
}

func TestLuaHost_BorrowedFunctions(t *testing.T) {
	tests := map[string]struct {
		retain  bool
		expSlot bool
	}{
		"released on next call": {retain: false, expSlot: true},
		"retained":              {retain: true, expSlot: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			h := NewLuaHost()

			var passed []Callable
			h.Register("keep", func(args []any) (any, error) {
				fn, _ := args[0].(Callable)
				if tt.retain {
					h.Retain(fn)
				}
				passed = append(passed, fn)
				return nil, nil
			})

			fn, err := h.DefineFunction("keep(function() return 1 end)")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for range 3 {
				if _, err := h.Call(fn, nil); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}

			// unretained slots are recycled instead of growing per call
			testutil.AssertEqual(t, "slot reused", passed[1].slot == passed[2].slot, tt.expSlot)

			_, err = h.Call(passed[0], nil)
			if tt.retain {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			} else if !errors.Is(err, ErrNoCallable) {
				t.Errorf("expected ErrNoCallable, got %v", err)
			}
		})
	}
}

func TestLuaHost_Release(t *testing.T) {
	h := NewLuaHost()

	fn, err := h.DefineFunction("return 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.Release(fn)

	_, err = h.Call(fn, nil)
	if !errors.Is(err, ErrNoCallable) {
		t.Errorf("expected ErrNoCallable, got %v", err)
	}

	// the freed slot is reused
	next, _ := h.DefineFunction("return 2")
	testutil.AssertEqual(t, "slot", next.slot, fn.slot)
}

func TestLuaHost_Closed(t *testing.T) {
	h := NewLuaHost()
	fn, _ := h.DefineFunction("return 1")
	_ = h.Close()

	_, err := h.Call(fn, nil)
	if !errors.Is(err, ErrHostReleased) {
		t.Errorf("expected ErrHostReleased, got %v", err)
	}
	err = h.Evaluate("x = 1")
	if !errors.Is(err, ErrHostReleased) {
		t.Errorf("expected ErrHostReleased, got %v", err)
	}
}

func TestCallable_Defined(t *testing.T) {
	testutil.AssertEqual(t, "zero", Callable{}.Defined(), false)
	testutil.AssertEqual(t, "set", Callable{slot: 1}.Defined(), true)
}
