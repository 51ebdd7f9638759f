package commands

import (
	"fmt"
	"strings"

	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/perception"
)

// way is a connection out of a room as seen from inside it.
type way struct {
	conn     *game.Object
	name     string
	dest     game.Ref
	door     bool
	open     bool
	passable bool
}

// ways lists the connections leading out of room in the order the room
// stores them.
func (h *Handler) ways(room *game.Object) []way {
	var out []way
	for _, ref := range room.Room.Portals {
		conn := h.realm.Resolve(ref)
		if conn == nil {
			continue
		}
		switch {
		case conn.Portal != nil:
			near, far, ok := conn.Portal.SidesFrom(room.Ref())
			if !ok {
				continue
			}
			out = append(out, way{
				conn:     conn,
				name:     near.Name,
				dest:     far.Room,
				door:     conn.Portal.Door,
				open:     conn.Portal.IsOpen(),
				passable: near.PassableIfOpen,
			})
		case conn.Exit != nil && conn.Exit.From == room.Ref():
			out = append(out, way{
				conn:     conn,
				name:     conn.Exit.Name,
				dest:     conn.Exit.To,
				open:     true,
				passable: true,
			})
		}
	}
	return out
}

// findWay matches name against the ways out of room, exact names first.
func (h *Handler) findWay(room *game.Object, name string) (way, bool) {
	ways := h.ways(room)
	name = strings.ToLower(name)
	for _, w := range ways {
		if strings.ToLower(w.name) == name {
			return w, true
		}
	}
	for _, w := range ways {
		if matchesName(w.name, name) {
			return w, true
		}
	}
	return way{}, false
}

// findIn returns the first live object in refs whose name matches and whose
// kind passes keep.
func (h *Handler) findIn(refs []game.Ref, name string, keep func(game.Kind) bool) *game.Object {
	for _, ref := range refs {
		if !keep(ref.Kind) {
			continue
		}
		o := h.realm.Resolve(ref)
		if o != nil && matchesName(o.Name, name) {
			return o
		}
	}
	return nil
}

// matchesName reports whether query is a prefix of name or of any word in
// it, ignoring case.
func matchesName(name, query string) bool {
	name, query = strings.ToLower(name), strings.ToLower(query)
	if query == "" {
		return false
	}
	if strings.HasPrefix(name, query) {
		return true
	}
	for _, word := range strings.Fields(name) {
		if strings.HasPrefix(word, query) {
			return true
		}
	}
	return false
}

func isItem(k game.Kind) bool { return k == game.KindItem }

// emit queues a stimulus caused by the actor of inv.
func (h *Handler) emit(inv *Invocation, cat perception.Category, radius float64, text string, t perception.Templates) error {
	if inv.Room == nil {
		return nil
	}
	s := perception.Stimulus{
		Room:      inv.Room.Ref(),
		Position:  inv.Room.Room.Center,
		Radius:    radius,
		Category:  cat,
		Actor:     inv.Actor.Ref(),
		Text:      text,
		Templates: t,
	}
	if inv.Actor.Actor != nil {
		s.Position = inv.Actor.Actor.Position
	}
	if err := h.enq.Enqueue(perception.NewEvent(h.engine, s)); err != nil {
		return fmt.Errorf("queueing perception: %w", err)
	}
	return nil
}

var (
	sayTemplates = perception.Templates{
		Direct: `{{.Actor}} says, "{{.Text}}"`,
		Toward: `You hear {{.Actor}} somewhere ahead of you say, "{{.Text}}"`,
		Away:   `You hear {{.Actor}} somewhere behind you say, "{{.Text}}"`,
		Left:   `You hear {{.Actor}} off to your left say, "{{.Text}}"`,
		Right:  `You hear {{.Actor}} off to your right say, "{{.Text}}"`,
		Exit:   `From beyond the {{.Exit}}, you hear {{.Actor}} say, "{{.Text}}"`,
	}
	emoteTemplates = perception.Templates{
		Direct: "{{.Actor}} {{.Text}}",
		Exit:   "Through the {{.Exit}}, you see {{.Actor}} {{.Text}}",
	}
	leaveTemplates = perception.Templates{
		Direct: "{{.Actor}} leaves through the {{.Text}}.",
		Exit:   "Through the {{.Exit}}, you see {{.Actor}} head off.",
	}
	arriveTemplates = perception.Templates{
		Direct: "{{.Actor}} arrives.",
		Toward: "{{.Actor}} approaches.",
		Away:   "{{.Actor}} moves off behind you.",
		Left:   "{{.Actor}} moves about off to your left.",
		Right:  "{{.Actor}} moves about off to your right.",
		Exit:   "Through the {{.Exit}}, you see {{.Actor}} arrive.",
	}
	openTemplates = perception.Templates{
		Direct: "{{.Actor}} opens the {{.Text}}.",
		Exit:   "The {{.Exit}} swings open.",
	}
	closeTemplates = perception.Templates{
		Direct: "{{.Actor}} closes the {{.Text}}.",
	}
	takeTemplates = perception.Templates{
		Direct: "{{.Actor}} picks up {{.Text}}.",
	}
	dropTemplates = perception.Templates{
		Direct: "{{.Actor}} drops {{.Text}}.",
	}
)
