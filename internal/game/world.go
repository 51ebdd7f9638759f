package game

import (
	"fmt"
	"sort"

	"github.com/pixil98/go-errors"
)

// AreaSpec describes one area of the world as authored in an asset file.
// Keys are unique across the whole world so portals and exits can join
// rooms from different areas.
type AreaSpec struct {
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Rooms       []RoomSpec      `json:"rooms" yaml:"rooms"`
	Portals     []PortalSpec    `json:"portals" yaml:"portals"`
	Exits       []ExitSpec      `json:"exits" yaml:"exits"`
	Characters  []CharacterSpec `json:"characters" yaml:"characters"`
	Items       []ItemSpec      `json:"items" yaml:"items"`
}

type RoomSpec struct {
	Key         string            `json:"key" yaml:"key"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Center      Vec3              `json:"center" yaml:"center"`
	Props       map[string]any    `json:"props" yaml:"props"`
	Triggers    map[string]string `json:"triggers" yaml:"triggers"`
}

type PortalSideSpec struct {
	Room              string `json:"room" yaml:"room"`
	Name              string `json:"name" yaml:"name"`
	SeeThroughIfOpen  bool   `json:"see_through_if_open" yaml:"see_through_if_open"`
	HearThroughIfOpen bool   `json:"hear_through_if_open" yaml:"hear_through_if_open"`
	PassableIfOpen    bool   `json:"passable_if_open" yaml:"passable_if_open"`
}

type PortalSpec struct {
	Key      string            `json:"key" yaml:"key"`
	Door     bool              `json:"door" yaml:"door"`
	Open     bool              `json:"open" yaml:"open"`
	Sides    [2]PortalSideSpec `json:"sides" yaml:"sides"`
	Props    map[string]any    `json:"props" yaml:"props"`
	Triggers map[string]string `json:"triggers" yaml:"triggers"`
}

type ExitSpec struct {
	Key         string `json:"key" yaml:"key"`
	From        string `json:"from" yaml:"from"`
	To          string `json:"to" yaml:"to"`
	Name        string `json:"name" yaml:"name"`
	SeeThrough  bool   `json:"see_through" yaml:"see_through"`
	HearThrough bool   `json:"hear_through" yaml:"hear_through"`
}

type CharacterSpec struct {
	Key       string            `json:"key" yaml:"key"`
	Name      string            `json:"name" yaml:"name"`
	Room      string            `json:"room" yaml:"room"`
	Position  *Vec3             `json:"position" yaml:"position"`
	Facing    Vec3              `json:"facing" yaml:"facing"`
	MaxHealth int               `json:"max_health" yaml:"max_health"`
	MaxEnergy int               `json:"max_energy" yaml:"max_energy"`
	Props     map[string]any    `json:"props" yaml:"props"`
	Triggers  map[string]string `json:"triggers" yaml:"triggers"`
}

type ItemSpec struct {
	Key         string            `json:"key" yaml:"key"`
	Name        string            `json:"name" yaml:"name"`
	Room        string            `json:"room" yaml:"room"`
	Description string            `json:"description" yaml:"description"`
	Props       map[string]any    `json:"props" yaml:"props"`
	Triggers    map[string]string `json:"triggers" yaml:"triggers"`
}

// Validate satisfies storage.ValidatingSpec. It checks what can be checked
// inside one area; cross-area references are checked by LoadWorld.
func (a *AreaSpec) Validate() error {
	el := errors.NewErrorList()

	if a.Name == "" {
		el.Add(fmt.Errorf("area name is required"))
	}

	keys := map[string]bool{}
	addKey := func(what, key string) {
		if key == "" {
			el.Add(fmt.Errorf("%s key is required", what))
			return
		}
		if keys[key] {
			el.Add(fmt.Errorf("duplicate key %q", key))
		}
		keys[key] = true
	}

	for _, r := range a.Rooms {
		addKey("room", r.Key)
		if r.Name == "" {
			el.Add(fmt.Errorf("room %q: name is required", r.Key))
		}
	}
	for _, p := range a.Portals {
		addKey("portal", p.Key)
		for i, s := range p.Sides {
			if s.Room == "" {
				el.Add(fmt.Errorf("portal %q side %d: room is required", p.Key, i))
			}
			if s.Name == "" {
				el.Add(fmt.Errorf("portal %q side %d: name is required", p.Key, i))
			}
		}
	}
	for _, e := range a.Exits {
		addKey("exit", e.Key)
		if e.From == "" || e.To == "" || e.Name == "" {
			el.Add(fmt.Errorf("exit %q: from, to and name are required", e.Key))
		}
	}
	for _, c := range a.Characters {
		addKey("character", c.Key)
		if c.Room == "" {
			el.Add(fmt.Errorf("character %q: room is required", c.Key))
		}
	}
	for _, i := range a.Items {
		addKey("item", i.Key)
		if i.Room == "" {
			el.Add(fmt.Errorf("item %q: room is required", i.Key))
		}
	}

	return el.Err()
}

// WorldIndex maps authored keys to the objects built from them.
type WorldIndex map[string]Ref

// LoadWorld builds every area into the realm. Areas are processed in key
// order so object ids are stable between runs.
func LoadWorld(r *Realm, areas map[string]*AreaSpec) (WorldIndex, error) {
	idx := WorldIndex{}

	areaKeys := make([]string, 0, len(areas))
	for k := range areas {
		areaKeys = append(areaKeys, k)
	}
	sort.Strings(areaKeys)

	// rooms first so every other object can refer to them
	areaRefs := map[string]Ref{}
	for _, ak := range areaKeys {
		spec := areas[ak]
		area, err := r.Create(KindArea, spec.Name)
		if err != nil {
			return nil, err
		}
		if err := area.Props.Set("description", spec.Description); err != nil {
			return nil, err
		}
		areaRefs[ak] = area.Ref()
		idx[ak] = area.Ref()

		for _, rs := range spec.Rooms {
			if _, dup := idx[rs.Key]; dup {
				return nil, fmt.Errorf("area %s: duplicate key %q", ak, rs.Key)
			}
			room, err := r.Create(KindRoom, rs.Name)
			if err != nil {
				return nil, err
			}
			room.Room.Area = area.Ref()
			room.Room.Description = rs.Description
			room.Room.Center = rs.Center
			if err := r.applySpec(room, rs.Props, rs.Triggers); err != nil {
				return nil, fmt.Errorf("room %s: %w", rs.Key, err)
			}
			idx[rs.Key] = room.Ref()
		}
	}

	el := errors.NewErrorList()
	for _, ak := range areaKeys {
		el.Add(r.loadAreaLinks(areas[ak], idx))
	}
	if err := el.Err(); err != nil {
		return nil, err
	}

	return idx, nil
}

func (r *Realm) loadAreaLinks(spec *AreaSpec, idx WorldIndex) error {
	room := func(key string) (*Object, error) {
		ref, ok := idx[key]
		if !ok || ref.Kind != KindRoom {
			return nil, fmt.Errorf("unknown room %q", key)
		}
		return r.Resolve(ref), nil
	}

	for _, ps := range spec.Portals {
		p, err := r.Create(KindPortal, ps.Key)
		if err != nil {
			return err
		}
		p.Portal.Door = ps.Door
		p.Portal.Open = ps.Open || !ps.Door
		for i, side := range ps.Sides {
			rm, err := room(side.Room)
			if err != nil {
				return fmt.Errorf("portal %s: %w", ps.Key, err)
			}
			p.Portal.Sides[i] = PortalSide{
				Room:              rm.Ref(),
				Name:              side.Name,
				SeeThroughIfOpen:  side.SeeThroughIfOpen,
				HearThroughIfOpen: side.HearThroughIfOpen,
				PassableIfOpen:    side.PassableIfOpen,
			}
			rm.Room.Portals = append(rm.Room.Portals, p.Ref())
		}
		if err := r.applySpec(p, ps.Props, ps.Triggers); err != nil {
			return fmt.Errorf("portal %s: %w", ps.Key, err)
		}
		idx[ps.Key] = p.Ref()
	}

	for _, es := range spec.Exits {
		from, err := room(es.From)
		if err != nil {
			return fmt.Errorf("exit %s: %w", es.Key, err)
		}
		to, err := room(es.To)
		if err != nil {
			return fmt.Errorf("exit %s: %w", es.Key, err)
		}
		e, err := r.Create(KindExit, es.Name)
		if err != nil {
			return err
		}
		*e.Exit = Exit{
			From:        from.Ref(),
			To:          to.Ref(),
			Name:        es.Name,
			SeeThrough:  es.SeeThrough,
			HearThrough: es.HearThrough,
		}
		from.Room.Portals = append(from.Room.Portals, e.Ref())
		idx[es.Key] = e.Ref()
	}

	for _, cs := range spec.Characters {
		rm, err := room(cs.Room)
		if err != nil {
			return fmt.Errorf("character %s: %w", cs.Key, err)
		}
		c, err := r.Create(KindCharacter, cs.Name)
		if err != nil {
			return err
		}
		c.Actor.Position = rm.Room.Center
		if cs.Position != nil {
			c.Actor.Position = *cs.Position
		}
		c.Actor.Facing = cs.Facing
		c.Actor.MaxHealth = cs.MaxHealth
		c.Actor.Health = cs.MaxHealth
		c.Actor.MaxEnergy = cs.MaxEnergy
		c.Actor.Energy = cs.MaxEnergy
		if err := r.MoveTo(c, rm); err != nil {
			return err
		}
		if err := r.applySpec(c, cs.Props, cs.Triggers); err != nil {
			return fmt.Errorf("character %s: %w", cs.Key, err)
		}
		idx[cs.Key] = c.Ref()
	}

	for _, is := range spec.Items {
		rm, err := room(is.Room)
		if err != nil {
			return fmt.Errorf("item %s: %w", is.Key, err)
		}
		it, err := r.Create(KindItem, is.Name)
		if err != nil {
			return err
		}
		it.Item.Description = is.Description
		if err := r.MoveTo(it, rm); err != nil {
			return err
		}
		if err := r.applySpec(it, is.Props, is.Triggers); err != nil {
			return fmt.Errorf("item %s: %w", is.Key, err)
		}
		idx[is.Key] = it.Ref()
	}

	return nil
}

func (r *Realm) applySpec(o *Object, props map[string]any, triggers map[string]string) error {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := o.Props.Set(k, props[k]); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(triggers))
	for n := range triggers {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := r.BindTrigger(o, n, triggers[n]); err != nil {
			return err
		}
	}
	return nil
}
