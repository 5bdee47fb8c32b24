package roadplan

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// Graph is directed road network: nodes connected by straight segments or circular arcs.
// At most one arc exists per ordered pair of nodes. Arcs and nodes reference each other by IDs only
type Graph struct {
	nodes    map[NodeID]*Node
	arcs     map[ArcKey]*Arc
	outgoing map[NodeID]map[NodeID]struct{}
	maxID    NodeID
}

// NewGraph returns empty graph
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[NodeID]*Node),
		arcs:     make(map[ArcKey]*Arc),
		outgoing: make(map[NodeID]map[NodeID]struct{}),
	}
}

// AddNode adds node to the graph. Returns ErrDuplicateNode if the ID is already taken
func (g *Graph) AddNode(id NodeID, pt orb.Point) error {
	if _, ok := g.nodes[id]; ok {
		return errors.Wrapf(ErrDuplicateNode, "node %d", id)
	}
	if len(g.nodes) == 0 || id > g.maxID {
		g.maxID = id
	}
	g.nodes[id] = &Node{ID: id, Point: pt}
	return nil
}

// AddArc adds directed arc between two existing nodes. Length and center are computed from geometry.
//
// Returns ErrMalformedGraph if any node is missing, ErrDuplicateArc if the ordered pair is already connected,
// ErrDegenerateSegment for zero-length arcs and ErrInfeasibleArc when chord exceeds the diameter
func (g *Graph) AddArc(source, target NodeID, radius Radius, zones ZoneFlags) (*Arc, error) {
	key := ArcKey{Source: source, Target: target}
	sourceNode, ok := g.nodes[source]
	if !ok {
		return nil, errors.Wrapf(ErrMalformedGraph, "arc %s: source node %d not found", key, source)
	}
	targetNode, ok := g.nodes[target]
	if !ok {
		return nil, errors.Wrapf(ErrMalformedGraph, "arc %s: target node %d not found", key, target)
	}
	if _, ok := g.arcs[key]; ok {
		return nil, errors.Wrapf(ErrDuplicateArc, "arc %s", key)
	}
	if source == target || sourceNode.Point == targetNode.Point {
		return nil, errors.Wrapf(ErrDegenerateSegment, "arc %s", key)
	}
	arc := &Arc{
		Source: source,
		Target: target,
		Radius: radius,
		Zones:  zones,
	}
	if !radius.IsInfinite() {
		center, err := FitCircle(sourceNode.Point, targetNode.Point, radius)
		if err != nil {
			return nil, errors.Wrapf(err, "arc %s", key)
		}
		arc.Center = &center
	}
	length, err := ArcLength(sourceNode.Point, targetNode.Point, radius)
	if err != nil {
		return nil, errors.Wrapf(err, "arc %s", key)
	}
	arc.Length = length
	g.insertArc(arc)
	return copyArc(arc), nil
}

// insertArc stores prepared arc without any validation
func (g *Graph) insertArc(arc *Arc) {
	g.arcs[arc.Key()] = arc
	if g.outgoing[arc.Source] == nil {
		g.outgoing[arc.Source] = make(map[NodeID]struct{})
	}
	g.outgoing[arc.Source][arc.Target] = struct{}{}
}

// RemoveArc removes arc from the graph and returns it
func (g *Graph) RemoveArc(key ArcKey) (Arc, bool) {
	arc, ok := g.arcs[key]
	if !ok {
		return Arc{}, false
	}
	delete(g.arcs, key)
	delete(g.outgoing[key.Source], key.Target)
	return *arc, true
}

// Node returns node by its ID
func (g *Graph) Node(id NodeID) (Node, bool) {
	node, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *node, true
}

// Arc returns arc connecting source to target
func (g *Graph) Arc(source, target NodeID) (Arc, bool) {
	arc, ok := g.arcs[ArcKey{Source: source, Target: target}]
	if !ok {
		return Arc{}, false
	}
	return *copyArc(arc), true
}

// Nodes returns all nodes ordered by ID
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, *node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

// Arcs returns all arcs ordered by source and then by target
func (g *Graph) Arcs() []Arc {
	arcs := make([]Arc, 0, len(g.arcs))
	for _, arc := range g.arcs {
		arcs = append(arcs, *copyArc(arc))
	}
	sortArcs(arcs)
	return arcs
}

// OutArcs returns arcs leaving given node ordered by target
func (g *Graph) OutArcs(id NodeID) []Arc {
	targets := g.outgoing[id]
	arcs := make([]Arc, 0, len(targets))
	for target := range targets {
		arcs = append(arcs, *copyArc(g.arcs[ArcKey{Source: id, Target: target}]))
	}
	sortArcs(arcs)
	return arcs
}

// NumNodes returns number of nodes
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumArcs returns number of arcs
func (g *Graph) NumArcs() int {
	return len(g.arcs)
}

// NextNodeID returns ID which is guaranteed to be free: maximum known ID plus one
func (g *Graph) NextNodeID() NodeID {
	if len(g.nodes) == 0 {
		return 0
	}
	return g.maxID + 1
}

// addVirtualNode creates node with fresh ID
func (g *Graph) addVirtualNode(pt orb.Point) NodeID {
	id := g.NextNodeID()
	g.maxID = id
	g.nodes[id] = &Node{ID: id, Point: pt}
	return id
}

// Clone returns deep copy of the graph. Augmentation of the copy never touches the original
func (g *Graph) Clone() *Graph {
	cp := &Graph{
		nodes:    make(map[NodeID]*Node, len(g.nodes)),
		arcs:     make(map[ArcKey]*Arc, len(g.arcs)),
		outgoing: make(map[NodeID]map[NodeID]struct{}, len(g.outgoing)),
		maxID:    g.maxID,
	}
	for id, node := range g.nodes {
		n := *node
		cp.nodes[id] = &n
	}
	for _, arc := range g.arcs {
		cp.insertArc(copyArc(arc))
	}
	return cp
}

func sortArcs(arcs []Arc) {
	sort.Slice(arcs, func(i, j int) bool {
		if arcs[i].Source != arcs[j].Source {
			return arcs[i].Source < arcs[j].Source
		}
		return arcs[i].Target < arcs[j].Target
	})
}
