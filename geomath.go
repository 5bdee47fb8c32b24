package roadplan

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

const (
	// chordTolerance is relative slack allowed when chord is compared against diameter
	chordTolerance = 1e-9
	// angleEps is slack used when comparing swept angles
	angleEps = 1e-9
	twoPi    = 2 * math.Pi
)

// FitCircle returns center of the circle with radius |r| passing through p1 and p2.
// The side of the chord is chosen by the sign of r: positive radius puts the center on the left of p1->p2.
//
// Returns ErrStraightArc for infinite radius, ErrDegenerateSegment when p1 == p2
// and ErrInfeasibleArc when chord is longer than 2*|r|
func FitCircle(p1, p2 orb.Point, r Radius) (orb.Point, error) {
	if r.IsInfinite() {
		return orb.Point{}, ErrStraightArc
	}
	dx := p2.X() - p1.X()
	dy := p2.Y() - p1.Y()
	d := math.Hypot(dx, dy)
	if d == 0 {
		return orb.Point{}, ErrDegenerateSegment
	}
	absR := r.Abs()
	if d > 2*absR*(1+chordTolerance) {
		return orb.Point{}, errors.Wrapf(ErrInfeasibleArc, "chord %f, radius %s", d, r)
	}
	half := d / 2
	h := math.Sqrt(math.Max(0, absR*absR-half*half))
	if r.Value() < 0 {
		h = -h
	}
	// Unit normal pointing to the left of p1->p2
	nx, ny := -dy/d, dx/d
	return orb.Point{
		(p1.X()+p2.X())/2 + h*nx,
		(p1.Y()+p2.Y())/2 + h*ny,
	}, nil
}

// ArcLength returns length of the arc between p1 and p2.
// Straight segments give euclidean distance, curved ones give |r| * |swept angle|
func ArcLength(p1, p2 orb.Point, r Radius) (float64, error) {
	if r.IsInfinite() {
		return planar.Distance(p1, p2), nil
	}
	if p1 == p2 {
		return 0, nil
	}
	center, err := FitCircle(p1, p2, r)
	if err != nil {
		return 0, err
	}
	ang1, ang2 := sweepAngles(p1, p2, center, r.Value())
	return r.Abs() * math.Abs(ang2-ang1), nil
}

// PartialLength returns length of sub-arc (or sub-segment) from p1 up to the projected point q.
// q is expected to lie on the arc which starts at p1 and has radius r
func PartialLength(p1, q orb.Point, r Radius) (float64, error) {
	return ArcLength(p1, q, r)
}

// ProjectPoint returns the nearest point to p on the arc p1->p2 and distance between them.
//
// Straight segments use clamped scalar projection.
// Curved arcs project onto the fitted circle; when the result is outside of the swept span
// the nearer endpoint is used instead
func ProjectPoint(p, p1, p2 orb.Point, r Radius) (orb.Point, float64, error) {
	if r.IsInfinite() {
		proj := projectOnSegment(p, p1, p2)
		return proj, planar.Distance(p, proj), nil
	}
	center, err := FitCircle(p1, p2, r)
	if err != nil {
		return orb.Point{}, 0, err
	}
	absR := r.Abs()
	vx := p.X() - center.X()
	vy := p.Y() - center.Y()
	norm := math.Hypot(vx, vy)
	onCircle := p1
	if norm != 0 {
		onCircle = orb.Point{center.X() + absR*vx/norm, center.Y() + absR*vy/norm}
	}

	ang1, ang2 := sweepAngles(p1, p2, center, r.Value())
	angP := math.Atan2(onCircle.Y()-center.Y(), onCircle.X()-center.X())

	var proj orb.Point
	if withinSweep(ang1, ang2, angP, r.Value()) {
		proj = onCircle
	} else if planar.Distance(p, p1) <= planar.Distance(p, p2) {
		proj = p1
	} else {
		proj = p2
	}
	return proj, planar.Distance(p, proj), nil
}

// projectOnSegment returns point of segment [a, b] nearest to p
func projectOnSegment(p, a, b orb.Point) orb.Point {
	vx := b.X() - a.X()
	vy := b.Y() - a.Y()
	vv := vx*vx + vy*vy
	if vv == 0 {
		return a
	}
	t := ((p.X()-a.X())*vx + (p.Y()-a.Y())*vy) / vv
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	return orb.Point{a.X() + t*vx, a.Y() + t*vy}
}

// sweepAngles returns polar angles of p1 and p2 around center.
// The second angle is unwrapped so positive radius sweeps counter-clockwise and negative radius sweeps clockwise
func sweepAngles(p1, p2, center orb.Point, r float64) (float64, float64) {
	ang1 := math.Atan2(p1.Y()-center.Y(), p1.X()-center.X())
	ang2 := math.Atan2(p2.Y()-center.Y(), p2.X()-center.X())
	return ang1, unwrapAngle(ang1, ang2, r)
}

// unwrapAngle adds or subtracts one full turn to ang2 when the naive difference has the wrong sign.
//
// Fitted arcs never sweep past a half turn, so anything larger can only be rounding noise
// of an endpoint sitting right on top of ang1
func unwrapAngle(ang1, ang2, r float64) float64 {
	if r > 0 && ang2 < ang1 {
		ang2 += twoPi
	} else if r < 0 && ang2 > ang1 {
		ang2 -= twoPi
	}
	if math.Abs(ang2-ang1) > math.Pi+angleEps {
		ang2 -= math.Copysign(twoPi, ang2-ang1)
	}
	return ang2
}

// withinSweep checks if polar angle angP lies within [ang1, ang2] span of the arc
func withinSweep(ang1, ang2, angP, r float64) bool {
	if r > 0 {
		if angP < ang1 {
			angP += twoPi
		}
		return ang1 <= angP && angP <= ang2
	}
	if angP > ang1 {
		angP -= twoPi
	}
	return ang2 <= angP && angP <= ang1
}
