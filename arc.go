package roadplan

import (
	"fmt"

	"github.com/paulmach/orb"
)

// ArcKey identifies directed arc by its ordered pair of nodes
type ArcKey struct {
	Source NodeID
	Target NodeID
}

// String returns pretty printed value for ArcKey
func (key ArcKey) String() string {
	return fmt.Sprintf("%d->%d", key.Source, key.Target)
}

// ZoneFlags are properties of road section inherited by every pose derived from it
type ZoneFlags struct {
	// Bridge marks elevated structure
	Bridge bool
	// Overtake marks restricted-width section where overtaking rules apply
	Overtake bool
}

// Arc is directed edge of the road network: either straight segment or circular arc
type Arc struct {
	Source NodeID
	Target NodeID
	Radius Radius
	// Length is always computed from endpoints and radius
	Length float64
	// Center of fitted circle. Nil for straight segments
	Center *orb.Point
	Zones  ZoneFlags
}

// Key returns ordered pair of arc's nodes
func (arc *Arc) Key() ArcKey {
	return ArcKey{Source: arc.Source, Target: arc.Target}
}

// IsStraight returns true for arcs with infinite radius
func (arc *Arc) IsStraight() bool {
	return arc.Radius.IsInfinite()
}

// copyArc returns deep copy of arc
func copyArc(arc *Arc) *Arc {
	cp := *arc
	if arc.Center != nil {
		center := *arc.Center
		cp.Center = &center
	}
	return &cp
}
