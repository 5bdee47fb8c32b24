package roadplan

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// Projection is the nearest point of the road graph to some arbitrary point
type Projection struct {
	// Arc which accepted the projection (state before any split)
	Arc Arc
	// Point is the projected point itself. It always lies within arc span
	Point orb.Point
	// Distance between the original point and the projected one
	Distance float64
	// Offset is distance along the arc from its source to the projected point
	Offset float64
}

// ProjectOntoGraph evaluates every arc of the graph and returns the globally nearest projection.
// Arcs are evaluated in deterministic order (see Arcs()): on equal distance the first arc wins.
//
// Note: cost is linear in number of arcs, so it is meant for graphs of low hundreds of arcs.
//
// Arcs failing geometric checks are skipped. If no arc is viable ErrMalformedGraph is returned when
// some arc references a missing node, otherwise ErrNoProjection
func ProjectOntoGraph(g *Graph, pt orb.Point) (Projection, error) {
	best := Projection{Distance: math.Inf(1)}
	found := false
	missingNodes := 0
	for _, arc := range g.Arcs() {
		source, okSource := g.nodes[arc.Source]
		target, okTarget := g.nodes[arc.Target]
		if !okSource || !okTarget {
			missingNodes++
			continue
		}
		proj, dist, err := ProjectPoint(pt, source.Point, target.Point, arc.Radius)
		if err != nil {
			continue
		}
		if !(dist < best.Distance) {
			continue
		}
		offset, err := PartialLength(source.Point, proj, arc.Radius)
		if err != nil {
			continue
		}
		best = Projection{
			Arc:      arc,
			Point:    proj,
			Distance: dist,
			Offset:   math.Min(math.Max(offset, 0), arc.Length),
		}
		found = true
	}
	if found {
		return best, nil
	}
	if missingNodes > 0 {
		return Projection{}, errors.Wrapf(ErrMalformedGraph, "%d arc(s) reference missing nodes", missingNodes)
	}
	return Projection{}, errors.Wrapf(ErrNoProjection, "point %v", pt)
}
