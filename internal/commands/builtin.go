package commands

import (
	"github.com/pixil98/go-errors"
)

// RegisterBuiltins installs the built-in verbs and handler factories.
func (h *Handler) RegisterBuiltins() error {
	el := errors.NewErrorList()

	el.Add(h.Register("look", h.look, InputSpec{Name: "target", Type: InputTypeString, Rest: true}))
	el.Add(h.Register("go", h.move, InputSpec{Name: "exit", Type: InputTypeString, Required: true, Rest: true}))
	el.Add(h.Register("open", h.openDoor, InputSpec{Name: "exit", Type: InputTypeString, Required: true, Rest: true}))
	el.Add(h.Register("close", h.closeDoor, InputSpec{Name: "exit", Type: InputTypeString, Required: true, Rest: true}))
	el.Add(h.Register("say", h.say, InputSpec{Name: "text", Type: InputTypeString, Required: true, Rest: true}))
	el.Add(h.Register("emote", h.emote, InputSpec{Name: "text", Type: InputTypeString, Required: true, Rest: true}))
	el.Add(h.Register("take", h.take, InputSpec{Name: "item", Type: InputTypeString, Required: true, Rest: true}))
	el.Add(h.Register("drop", h.drop, InputSpec{Name: "item", Type: InputTypeString, Required: true, Rest: true}))
	el.Add(h.Register("face", h.face, InputSpec{Name: "direction", Type: InputTypeString, Required: true, Rest: true}))
	el.Add(h.Register("logs", h.history,
		InputSpec{Name: "count", Type: InputTypeNumber},
		InputSpec{Name: "kind", Type: InputTypeString},
	))
	el.Add(h.Register("who", h.who))
	el.Add(h.Register("quit", h.quit))

	el.Add(h.RegisterFactory("social", NewSocialHandlerFactory(h)))

	return el.Err()
}
