package roadplan

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Densify converts path into uniformly spaced poses.
//
// Every arc is sampled with max(2, ceil(length/step)+1) evenly spaced points: straight arcs by linear interpolation
// of position, curved ones by linear interpolation of swept angle. step is maximum spacing, not exact one.
// First and last samples of every arc are exact coordinates of its endpoints; shared endpoints are emitted once.
//
// Heading of each sample is bearing to the next one. The last sample copies heading of the previous one
func Densify(g *Graph, path Path, step float64) (Trajectory, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, errors.Wrapf(ErrInvalidStep, "step %f", step)
	}
	if len(path.Nodes) == 0 {
		return nil, errors.Wrap(ErrMalformedGraph, "empty path")
	}
	if len(path.Nodes) == 1 {
		node, ok := g.nodes[path.Nodes[0]]
		if !ok {
			return nil, errors.Wrapf(ErrMalformedGraph, "node %d not found", path.Nodes[0])
		}
		return Trajectory{{ID: 0, X: node.Point.X(), Y: node.Point.Y()}}, nil
	}

	trajectory := make(Trajectory, 0, len(path.Nodes)*2)
	for i := 1; i < len(path.Nodes); i++ {
		key := ArcKey{Source: path.Nodes[i-1], Target: path.Nodes[i]}
		arc, ok := g.arcs[key]
		if !ok {
			return nil, errors.Wrapf(ErrMalformedGraph, "arc %s not found", key)
		}
		samples, err := sampleArc(g, arc, step)
		if err != nil {
			return nil, err
		}
		if i > 1 {
			samples = samples[1:]
		}
		for _, pt := range samples {
			trajectory = append(trajectory, TrajectoryPoint{
				ID:    len(trajectory),
				X:     pt.X(),
				Y:     pt.Y(),
				Zones: arc.Zones,
			})
		}
	}

	for i := 0; i < len(trajectory)-1; i++ {
		trajectory[i].Theta = Heading(trajectory[i].Point(), trajectory[i+1].Point())
	}
	trajectory[len(trajectory)-1].Theta = trajectory[len(trajectory)-2].Theta
	return trajectory, nil
}

// samplesCount returns number of samples for arc of given length
func samplesCount(length, step float64) int {
	n := int(math.Ceil(length/step)) + 1
	if n < 2 {
		return 2
	}
	return n
}

// sampleArc returns evenly spaced points of the arc including both endpoints
func sampleArc(g *Graph, arc *Arc, step float64) ([]orb.Point, error) {
	key := arc.Key()
	source, ok := g.nodes[arc.Source]
	if !ok {
		return nil, errors.Wrapf(ErrMalformedGraph, "arc %s: source node %d not found", key, arc.Source)
	}
	target, ok := g.nodes[arc.Target]
	if !ok {
		return nil, errors.Wrapf(ErrMalformedGraph, "arc %s: target node %d not found", key, arc.Target)
	}
	if arc.Length <= 0 || source.Point == target.Point {
		return nil, errors.Wrapf(ErrDegenerateSegment, "arc %s", key)
	}
	n := samplesCount(arc.Length, step)
	points := make([]orb.Point, n)
	if arc.IsStraight() {
		xs := floats.Span(make([]float64, n), source.Point.X(), target.Point.X())
		ys := floats.Span(make([]float64, n), source.Point.Y(), target.Point.Y())
		for i := range points {
			points[i] = orb.Point{xs[i], ys[i]}
		}
	} else {
		center, err := arcCenter(source.Point, target.Point, arc)
		if err != nil {
			return nil, errors.Wrapf(err, "arc %s", key)
		}
		ang1, ang2 := sweepAngles(source.Point, target.Point, center, arc.Radius.Value())
		angles := floats.Span(make([]float64, n), ang1, ang2)
		absR := arc.Radius.Abs()
		for i, a := range angles {
			points[i] = orb.Point{center.X() + absR*math.Cos(a), center.Y() + absR*math.Sin(a)}
		}
	}
	points[0] = source.Point
	points[n-1] = target.Point
	return points, nil
}

// arcCenter returns cached center of the arc or fits it when there is none
func arcCenter(p1, p2 orb.Point, arc *Arc) (orb.Point, error) {
	if arc.Center != nil {
		return *arc.Center, nil
	}
	return FitCircle(p1, p2, arc.Radius)
}
