package perception

import (
	"math"

	"github.com/pixil98/go-realm/internal/game"
)

// Bearing is the qualitative direction of an occurrence relative to where
// an observer is facing.
type Bearing string

const (
	NoBearing Bearing = ""
	Toward    Bearing = "toward"
	Away      Bearing = "away"
	Left      Bearing = "left"
	Right     Bearing = "right"
)

// BearingOf buckets the horizontal angle between facing and the direction
// from the observer to the origin. Positive angles are counterclockwise
// seen from above, which is the observer's left.
func BearingOf(observer, facing, origin game.Vec3) Bearing {
	d := origin.Sub(observer)
	if (facing.X == 0 && facing.Y == 0) || (d.X == 0 && d.Y == 0) {
		return NoBearing
	}

	dot := facing.X*d.X + facing.Y*d.Y
	cross := facing.X*d.Y - facing.Y*d.X
	deg := math.Atan2(cross, dot) * 180 / math.Pi

	switch {
	case math.Abs(deg) <= 45:
		return Toward
	case math.Abs(deg) >= 135:
		return Away
	case deg > 0:
		return Left
	default:
		return Right
	}
}
