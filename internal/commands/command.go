package commands

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// InputType represents the type of a command input parameter.
type InputType string

const (
	InputTypeString InputType = "string" // Text input (single word if rest=false, multi-word if rest=true)
	InputTypeNumber InputType = "number" // Integer
	InputTypeFloat  InputType = "float"
)

// InputSpec defines an input parameter that a command accepts from user input.
type InputSpec struct {
	Name     string    `json:"name" yaml:"name"`
	Type     InputType `json:"type" yaml:"type"`
	Required bool      `json:"required" yaml:"required"`
	Rest     bool      `json:"rest" yaml:"rest"` // If true, captures all remaining input
}

// Command defines a command loaded from an asset file. The asset id is the
// verb.
type Command struct {
	Handler string         `json:"handler" yaml:"handler"`
	Config  map[string]any `json:"config" yaml:"config"` // Config passed to the handler factory
	Inputs  []InputSpec    `json:"inputs" yaml:"inputs"`
}

func (c *Command) Validate() error {
	el := errors.NewErrorList()

	if c.Handler == "" {
		el.Add(fmt.Errorf("command handler not set"))
	}
	el.Add(validateInputs(c.Inputs))

	return el.Err()
}

func validateInputs(inputs []InputSpec) error {
	el := errors.NewErrorList()
	seen := map[string]bool{}

	for i, input := range inputs {
		if input.Name == "" {
			el.Add(fmt.Errorf("input %d: name is required", i))
			continue
		}
		if seen[input.Name] {
			el.Add(fmt.Errorf("input %q: duplicate name", input.Name))
		}
		seen[input.Name] = true

		switch input.Type {
		case InputTypeString, InputTypeNumber, InputTypeFloat:
		case "":
			el.Add(fmt.Errorf("input %q: type is required", input.Name))
		default:
			el.Add(fmt.Errorf("input %q: unknown type %q", input.Name, input.Type))
		}
		// Only the last input can have rest=true
		if input.Rest && i != len(inputs)-1 {
			el.Add(fmt.Errorf("input %q: only the last input can have rest=true", input.Name))
		}
	}

	return el.Err()
}
