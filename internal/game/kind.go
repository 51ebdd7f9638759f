package game

import (
	"fmt"
	"sync"
)

// Kind names the category of a world object.
type Kind string

const (
	KindRealm     Kind = "realm"
	KindArea      Kind = "area"
	KindRoom      Kind = "room"
	KindPortal    Kind = "portal"
	KindExit      Kind = "exit"
	KindPlayer    Kind = "player"
	KindCharacter Kind = "character"
	KindItem      Kind = "item"
)

var (
	kindsMu sync.RWMutex
	kinds   = map[Kind]struct{}{
		KindRealm:     {},
		KindArea:      {},
		KindRoom:      {},
		KindPortal:    {},
		KindExit:      {},
		KindPlayer:    {},
		KindCharacter: {},
		KindItem:      {},
	}
)

// RegisterKind adds a kind to the known set. Objects of a registered kind
// carry no capability component unless the caller attaches one.
func RegisterKind(k Kind) {
	kindsMu.Lock()
	defer kindsMu.Unlock()
	kinds[k] = struct{}{}
}

func (k Kind) Valid() bool {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	_, ok := kinds[k]
	return ok
}

// IsActor reports whether objects of this kind can perceive and act.
func (k Kind) IsActor() bool {
	return k == KindPlayer || k == KindCharacter
}

type ObjectID uint64

// Ref is a non-owning handle to an object. Two refs are equal when kind and
// id are equal; a ref is only ever turned into an object through
// Realm.Resolve.
type Ref struct {
	Kind Kind     `json:"kind" yaml:"kind"`
	ID   ObjectID `json:"id" yaml:"id"`
}

func (r Ref) IsZero() bool {
	return r.ID == 0
}

func (r Ref) String() string {
	return fmt.Sprintf("%s#%d", r.Kind, r.ID)
}

// ScriptHandle lets a Ref cross into scripts as an object handle.
func (r Ref) ScriptHandle() (string, uint64) {
	return string(r.Kind), uint64(r.ID)
}

// Lifecycle is the deletion state of an object.
type Lifecycle int

const (
	Live Lifecycle = iota
	MarkedDeleted
	Destroyed
)

func (l Lifecycle) String() string {
	switch l {
	case Live:
		return "live"
	case MarkedDeleted:
		return "marked-deleted"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("lifecycle(%d)", int(l))
	}
}

func parseLifecycle(s string) (Lifecycle, error) {
	switch s {
	case "", "live":
		return Live, nil
	case "marked-deleted":
		return MarkedDeleted, nil
	case "destroyed":
		return Destroyed, nil
	default:
		return Live, fmt.Errorf("unknown lifecycle %q", s)
	}
}
