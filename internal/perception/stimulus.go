// Package perception works out who notices a visual or audible occurrence
// and what each of them is told.
package perception

import (
	"errors"

	"github.com/pixil98/go-realm/internal/game"
)

var ErrOriginGone = errors.New("origin room no longer exists")

type Category int

const (
	Visual Category = iota
	Audible
)

func (c Category) String() string {
	switch c {
	case Visual:
		return "visual"
	case Audible:
		return "audible"
	default:
		return "unknown"
	}
}

// Hook is the observer trigger a stimulus of this category fires.
func (c Category) Hook() string {
	if c == Audible {
		return "on-sound"
	}
	return "on-visual"
}

// Templates holds the description variants of a stimulus. Each is a
// text/template with .Actor, .Text, .Exit, .Bearing, .Observer and
// .Distance.
type Templates struct {
	Direct string `json:"direct,omitempty" yaml:"direct"`
	Toward string `json:"toward,omitempty" yaml:"toward"`
	Away   string `json:"away,omitempty" yaml:"away"`
	Left   string `json:"left,omitempty" yaml:"left"`
	Right  string `json:"right,omitempty" yaml:"right"`
	Exit   string `json:"exit,omitempty" yaml:"exit"`
}

// Uniform returns templates that describe the occurrence the same way to
// everyone.
func Uniform(text string) Templates {
	return Templates{Direct: text}
}

func (t Templates) forBearing(b Bearing) string {
	switch b {
	case Toward:
		return t.Toward
	case Away:
		return t.Away
	case Left:
		return t.Left
	case Right:
		return t.Right
	default:
		return ""
	}
}

// Stimulus is a single visual or audible occurrence.
type Stimulus struct {
	Room     game.Ref
	Position game.Vec3
	Radius   float64
	Category Category
	Actor    game.Ref
	// Text is substituted as .Text and never parsed as a template itself.
	Text      string
	Templates Templates
}

// Variant names which template an observer got.
type Variant string

const (
	VariantDirect  Variant = "direct"
	VariantBearing Variant = "bearing"
	VariantExit    Variant = "exit"
)

// Observation is what one observer perceived.
type Observation struct {
	Observer game.Ref
	Room     game.Ref
	Distance float64
	Bearing  Bearing
	Variant  Variant
	Exit     string
	Text     string
	Canceled bool
}

// Result is the full affected set of a propagation.
type Result struct {
	Rooms        []game.Ref
	Observations []Observation
}
