package roadplan

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

// snapTolerance is along-arc distance (millimetres) under which a cut point is considered
// to coincide with an arc endpoint or with another cut point
const snapTolerance = 1e-6

// cut is a point lying on the arc together with its along-arc offset from arc source
type cut struct {
	point  orb.Point
	offset float64
}

// SplitArc replaces arc with two arcs meeting at point q. Both parts keep radius and zone flags of the original arc,
// lengths are PartialLength(source, q) and the rest of original length.
//
// When q coincides with one of arc endpoints nothing is split and ID of that endpoint is returned
func SplitArc(g *Graph, key ArcKey, q orb.Point) (NodeID, error) {
	ids, err := splitRoad(g, key, []orb.Point{q}, false)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// SplitArcTwice is three-way split for the case when both start and end points project onto the same arc.
// Cuts are applied in order of along-arc distance from arc source. Coincident points share one node.
//
// Returns node IDs for q1 and q2 respectively
func SplitArcTwice(g *Graph, key ArcKey, q1, q2 orb.Point) (NodeID, NodeID, error) {
	ids, err := splitRoad(g, key, []orb.Point{q1, q2}, false)
	if err != nil {
		return 0, 0, err
	}
	return ids[0], ids[1], nil
}

// splitRoad splits arc at every given point and returns node ID for each point (in the same order).
// When twins is set, reverse arc of two-way road is split at the same nodes
func splitRoad(g *Graph, key ArcKey, points []orb.Point, twins bool) ([]NodeID, error) {
	arc, ok := g.arcs[key]
	if !ok {
		return nil, errors.Wrapf(ErrMalformedGraph, "arc %s not found", key)
	}
	forward := *copyArc(arc)
	cuts := make([]cut, len(points))
	for i, q := range points {
		c, err := prepareCut(g, key, q)
		if err != nil {
			return nil, err
		}
		cuts[i] = c
	}
	order := make([]int, len(cuts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return cuts[order[i]].offset < cuts[order[j]].offset
	})
	sorted := make([]cut, len(cuts))
	for i, idx := range order {
		sorted[i] = cuts[idx]
	}
	ids, err := divideArc(g, key, sorted, nil)
	if err != nil {
		return nil, err
	}
	if twins {
		err = splitTwin(g, forward, sorted, ids)
		if err != nil {
			return nil, err
		}
	}
	result := make([]NodeID, len(points))
	for i, idx := range order {
		result[idx] = ids[i]
	}
	return result, nil
}

// splitTwin splits reverse arc of a two-way road at the nodes already produced for the forward one.
// Reverse arc is the one with swapped source and target and reversed radius. Does nothing if there is no such arc
func splitTwin(g *Graph, forward Arc, cuts []cut, ids []NodeID) error {
	twinKey := ArcKey{Source: forward.Target, Target: forward.Source}
	twin, ok := g.arcs[twinKey]
	if !ok || !isTwinPair(forward, *twin) {
		return nil
	}
	twinCuts := make([]cut, len(cuts))
	twinIDs := make([]NodeID, len(ids))
	for i := range cuts {
		j := len(cuts) - 1 - i
		twinCuts[i] = cut{
			point:  cuts[j].point,
			offset: math.Min(math.Max(twin.Length-cuts[j].offset, 0), twin.Length),
		}
		twinIDs[i] = ids[j]
	}
	_, err := divideArc(g, twinKey, twinCuts, twinIDs)
	return err
}

// isTwinPair checks if arcs describe the same road section traversed in opposite directions
func isTwinPair(a, b Arc) bool {
	return a.Source == b.Target && a.Target == b.Source && a.Radius == b.Radius.Reversed()
}

// prepareCut evaluates along-arc offset of point q
func prepareCut(g *Graph, key ArcKey, q orb.Point) (cut, error) {
	arc, ok := g.arcs[key]
	if !ok {
		return cut{}, errors.Wrapf(ErrMalformedGraph, "arc %s not found", key)
	}
	source, ok := g.nodes[arc.Source]
	if !ok {
		return cut{}, errors.Wrapf(ErrMalformedGraph, "arc %s: source node %d not found", key, arc.Source)
	}
	offset, err := PartialLength(source.Point, q, arc.Radius)
	if err != nil {
		return cut{}, errors.Wrapf(err, "arc %s", key)
	}
	return cut{point: q, offset: math.Min(math.Max(offset, 0), arc.Length)}, nil
}

// divideArc splits arc at given cuts. Cuts must be sorted by offset.
// If nodes is nil, node for every cut is chosen by snapping (arc endpoints, previous cut) or created,
// otherwise given nodes are used as is
func divideArc(g *Graph, key ArcKey, cuts []cut, nodes []NodeID) ([]NodeID, error) {
	arc, ok := g.arcs[key]
	if !ok {
		return nil, errors.Wrapf(ErrMalformedGraph, "arc %s not found", key)
	}
	ids := make([]NodeID, len(cuts))
	current := arc
	consumed := 0.0
	for i, c := range cuts {
		var id NodeID
		switch {
		case nodes != nil:
			id = nodes[i]
		case c.offset <= snapTolerance:
			id = arc.Source
		case arc.Length-c.offset <= snapTolerance:
			id = arc.Target
		case i > 0 && c.offset-cuts[i-1].offset <= snapTolerance:
			id = ids[i-1]
		default:
			id = g.addVirtualNode(c.point)
		}
		ids[i] = id
		if id == current.Source || id == current.Target {
			continue
		}
		current = cutArc(g, current, id, c.offset-consumed)
		consumed = c.offset
	}
	return ids, nil
}

// cutArc replaces arc with two arcs meeting at given node and returns the second one
func cutArc(g *Graph, arc *Arc, node NodeID, offset float64) *Arc {
	offset = math.Min(math.Max(offset, 0), arc.Length)
	g.RemoveArc(arc.Key())
	first := copyArc(arc)
	first.Target = node
	first.Length = offset
	second := copyArc(arc)
	second.Source = node
	second.Length = arc.Length - offset
	g.insertArc(first)
	g.insertArc(second)
	return second
}

// AttachMode tells which straight arcs connect attached endpoint with its neighbours
type AttachMode uint8

const (
	// AttachOutgoing creates arcs from endpoint to neighbours (start of a route)
	AttachOutgoing = AttachMode(iota + 1)
	// AttachIncoming creates arcs from neighbours to endpoint (end of a route)
	AttachIncoming
	// AttachBoth creates arcs in both directions
	AttachBoth
)

// AttachEndpoint is fallback for points which can't be projected onto any arc (empty or disconnected graph).
// It adds virtual node at the point and joins it by straight arcs with up to `neighbours` nearest existing nodes.
// If the point coincides with existing node, that node is returned and nothing is added
func AttachEndpoint(g *Graph, pt orb.Point, neighbours int, mode AttachMode) (NodeID, error) {
	if len(g.nodes) == 0 {
		return 0, errors.Wrap(ErrNoProjection, "Can't attach endpoint to empty graph")
	}
	if neighbours < 1 {
		neighbours = 1
	}
	type candidate struct {
		id   NodeID
		dist float64
	}
	candidates := make([]candidate, 0, len(g.nodes))
	for id, node := range g.nodes {
		candidates = append(candidates, candidate{id: id, dist: planar.Distance(pt, node.Point)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].id < candidates[j].id
	})
	if candidates[0].dist == 0 {
		return candidates[0].id, nil
	}
	if neighbours > len(candidates) {
		neighbours = len(candidates)
	}
	id := g.addVirtualNode(pt)
	for _, c := range candidates[:neighbours] {
		if mode == AttachOutgoing || mode == AttachBoth {
			g.insertArc(&Arc{Source: id, Target: c.id, Radius: Infinite(), Length: c.dist})
		}
		if mode == AttachIncoming || mode == AttachBoth {
			g.insertArc(&Arc{Source: c.id, Target: id, Radius: Infinite(), Length: c.dist})
		}
	}
	return id, nil
}
