package commands

import (
	"fmt"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestParseValue(t *testing.T) {
	tests := map[string]struct {
		inputType InputType
		raw       string
		exp       any
		expErr    string
	}{
		"string type": {
			inputType: InputTypeString,
			raw:       "hello world",
			exp:       "hello world",
		},
		"number type valid": {
			inputType: InputTypeNumber,
			raw:       "42",
			exp:       42,
		},
		"number type negative": {
			inputType: InputTypeNumber,
			raw:       "-10",
			exp:       -10,
		},
		"number type invalid": {
			inputType: InputTypeNumber,
			raw:       "abc",
			expErr:    `"abc" is not a valid number.`,
		},
		"number type float rejected": {
			inputType: InputTypeNumber,
			raw:       "3.14",
			expErr:    `"3.14" is not a valid number.`,
		},
		"float type": {
			inputType: InputTypeFloat,
			raw:       "2.5",
			exp:       2.5,
		},
		"float type invalid": {
			inputType: InputTypeFloat,
			raw:       "far",
			expErr:    `"far" is not a valid number.`,
		},
		"unknown type": {
			inputType: InputType("bogus"),
			raw:       "test",
			expErr:    `unknown parameter type "bogus"`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parseValue(tt.inputType, tt.raw)

			if tt.expErr != "" {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.expErr)
					return
				}
				if err.Error() != tt.expErr {
					t.Errorf("error = %q, expected %q", err.Error(), tt.expErr)
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if got != tt.exp {
				t.Errorf("got %v (%T), expected %v (%T)", got, got, tt.exp, tt.exp)
			}
		})
	}
}

func TestParseInputs(t *testing.T) {
	tests := map[string]struct {
		specs   []InputSpec
		rawArgs []string
		exp     map[string]any
		expErr  string
	}{
		"no inputs no args": {
			exp: map[string]any{},
		},
		"no inputs with args rejected": {
			rawArgs: []string{"extra"},
			expErr:  "Expected at most 0 argument(s), got 1.",
		},
		"required input missing": {
			specs:  []InputSpec{{Name: "count", Type: InputTypeNumber, Required: true}},
			expErr: "Missing required parameter: count.",
		},
		"required input provided": {
			specs:   []InputSpec{{Name: "count", Type: InputTypeNumber, Required: true}},
			rawArgs: []string{"5"},
			exp:     map[string]any{"count": 5},
		},
		"optional input omitted": {
			specs: []InputSpec{{Name: "count", Type: InputTypeNumber}},
			exp:   map[string]any{},
		},
		"rest input captures remaining": {
			specs: []InputSpec{
				{Name: "who", Type: InputTypeString, Required: true},
				{Name: "msg", Type: InputTypeString, Rest: true},
			},
			rawArgs: []string{"bob", "hello", "there"},
			exp:     map[string]any{"who": "bob", "msg": "hello there"},
		},
		"bad value": {
			specs:   []InputSpec{{Name: "count", Type: InputTypeNumber}},
			rawArgs: []string{"many"},
			expErr:  `"many" is not a valid number.`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := parseInputs(tt.specs, tt.rawArgs)
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "inputs", fmt.Sprint(got), fmt.Sprint(tt.exp))
		})
	}
}

func TestCommand_Validate(t *testing.T) {
	tests := map[string]struct {
		cmd    Command
		expErr string
	}{
		"valid": {
			cmd: Command{Handler: "social", Inputs: []InputSpec{{Name: "text", Type: InputTypeString, Rest: true}}},
		},
		"missing handler": {
			cmd:    Command{},
			expErr: "command handler not set",
		},
		"unnamed input": {
			cmd:    Command{Handler: "social", Inputs: []InputSpec{{Type: InputTypeString}}},
			expErr: "input 0: name is required",
		},
		"duplicate input": {
			cmd: Command{Handler: "social", Inputs: []InputSpec{
				{Name: "a", Type: InputTypeString},
				{Name: "a", Type: InputTypeString},
			}},
			expErr: `input "a": duplicate name`,
		},
		"unknown type": {
			cmd:    Command{Handler: "social", Inputs: []InputSpec{{Name: "a", Type: "colour"}}},
			expErr: `input "a": unknown type "colour"`,
		},
		"rest not last": {
			cmd: Command{Handler: "social", Inputs: []InputSpec{
				{Name: "a", Type: InputTypeString, Rest: true},
				{Name: "b", Type: InputTypeString},
			}},
			expErr: `input "a": only the last input can have rest=true`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.cmd.Validate()
			if tt.expErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}
