package game

import "context"

// Regenerator restores a little health and energy to every actor each tick
// and pushes the new status to connected players.
type Regenerator struct {
	realm  *Realm
	health int
	energy int
}

func NewRegenerator(r *Realm, health, energy int) *Regenerator {
	return &Regenerator{realm: r, health: health, energy: energy}
}

func (g *Regenerator) Tick(ctx context.Context) error {
	for _, kind := range []Kind{KindPlayer, KindCharacter} {
		for _, o := range g.realm.Each(kind) {
			if !o.Live() {
				continue
			}
			a := o.Actor
			h := min(a.Health+g.health, a.MaxHealth)
			e := min(a.Energy+g.energy, a.MaxEnergy)
			if h == a.Health && e == a.Energy {
				continue
			}
			a.Health, a.Energy = h, e
			g.realm.MarkDirty(o)
			g.realm.SendStatus(o)
		}
	}
	return nil
}
