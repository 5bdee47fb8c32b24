package roadplan

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	pi180    = math.Pi / 180.0
	pi180Rev = 180.0 / math.Pi
)

// DegreesToRadians r = deg * pi / 180
func DegreesToRadians(d float64) float64 {
	return d * pi180
}

// RadiansToDegrees deg = r * 180 / pi
func RadiansToDegrees(r float64) float64 {
	return r * pi180Rev
}

// NormalizeAngle wraps angle (radians) into [-pi, pi)
func NormalizeAngle(angle float64) float64 {
	angle = math.Mod(angle+math.Pi, twoPi)
	if angle < 0 {
		angle += twoPi
	}
	return angle - math.Pi
}

// Heading returns bearing from one point to another in [-pi, pi)
//
// Note: heading of coincident points is zero
//
func Heading(from, to orb.Point) float64 {
	return NormalizeAngle(math.Atan2(to.Y()-from.Y(), to.X()-from.X()))
}
