package commands

import (
	"context"
	"fmt"

	"github.com/pixil98/go-realm/internal/perception"
)

// SocialHandlerFactory creates handlers for simple gestures defined in
// command assets.
// Config:
//   - self (required): template for what the actor is told
//   - others (optional): template for what everyone who can see it is told
//   - radius (optional): how far the gesture can be seen
type SocialHandlerFactory struct {
	h *Handler
}

func NewSocialHandlerFactory(h *Handler) *SocialHandlerFactory {
	return &SocialHandlerFactory{h: h}
}

func (f *SocialHandlerFactory) ValidateConfig(config map[string]any) error {
	self, _ := config["self"].(string)
	if self == "" {
		return fmt.Errorf("self is required")
	}
	if err := checkTemplate(self); err != nil {
		return fmt.Errorf("self: %w", err)
	}
	if others, ok := config["others"].(string); ok {
		if err := checkTemplate(others); err != nil {
			return fmt.Errorf("others: %w", err)
		}
	}
	if r, ok := config["radius"]; ok {
		if n, isNum := toFloat(r); !isNum || n < 0 {
			return fmt.Errorf("radius must be a non-negative number")
		}
	}
	return nil
}

func (f *SocialHandlerFactory) Create(config map[string]any) (CommandFunc, error) {
	self, _ := config["self"].(string)
	others, _ := config["others"].(string)
	radius := f.h.sightRadius
	if r, ok := toFloat(config["radius"]); ok {
		radius = r
	}

	return func(ctx context.Context, inv *Invocation) error {
		text := inv.String("text")
		msg, err := ExpandTemplate(self, TemplateData{Actor: inv.Actor.Name, Text: text})
		if err != nil {
			return fmt.Errorf("expanding self template: %w", err)
		}
		f.h.realm.Tell(inv.Actor, msg)

		if others == "" {
			return nil
		}
		return f.h.emit(inv, perception.Visual, radius, text, perception.Uniform(others))
	}, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
