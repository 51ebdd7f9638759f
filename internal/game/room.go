package game

// Room is a place objects can be in. Portals lists every portal and exit
// leading out of the room.
type Room struct {
	Area        Ref    `json:"area"`
	Description string `json:"description,omitempty"`
	Center      Vec3   `json:"center"`
	Portals     []Ref  `json:"portals,omitempty"`
	Contents    []Ref  `json:"contents,omitempty"`
}

// PortalSide describes a portal as seen from one of the rooms it joins.
type PortalSide struct {
	Room              Ref    `json:"room"`
	Name              string `json:"name"`
	SeeThroughIfOpen  bool   `json:"see_through_if_open"`
	HearThroughIfOpen bool   `json:"hear_through_if_open"`
	PassableIfOpen    bool   `json:"passable_if_open"`
}

// Portal joins two rooms in both directions. A portal that is not a door is
// always open.
type Portal struct {
	Sides [2]PortalSide `json:"sides"`
	Door  bool          `json:"door"`
	Open  bool          `json:"open"`
}

// SidesFrom returns the side facing room and the opposite side.
func (p *Portal) SidesFrom(room Ref) (near PortalSide, far PortalSide, ok bool) {
	switch room {
	case p.Sides[0].Room:
		return p.Sides[0], p.Sides[1], true
	case p.Sides[1].Room:
		return p.Sides[1], p.Sides[0], true
	default:
		return PortalSide{}, PortalSide{}, false
	}
}

// IsOpen reports whether the portal currently lets anything through.
func (p *Portal) IsOpen() bool {
	return !p.Door || p.Open
}

// Exit is a one-way connection out of a room.
type Exit struct {
	From        Ref    `json:"from"`
	To          Ref    `json:"to"`
	Name        string `json:"name"`
	SeeThrough  bool   `json:"see_through"`
	HearThrough bool   `json:"hear_through"`
}

// Actor is anything that perceives and acts: players and characters.
type Actor struct {
	Location  Ref   `json:"location"`
	Position  Vec3  `json:"position"`
	Facing    Vec3  `json:"facing"`
	Inventory []Ref `json:"inventory,omitempty"`

	Health    int `json:"health"`
	MaxHealth int `json:"max_health"`
	Energy    int `json:"energy"`
	MaxEnergy int `json:"max_energy"`

	Account string `json:"account,omitempty"`

	// SessionID is set while a player is connected.
	SessionID string `json:"-"`
}

type Item struct {
	Location    Ref    `json:"location"`
	Description string `json:"description,omitempty"`
}
