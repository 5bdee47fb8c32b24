package roadplan

import (
	"math"

	"github.com/LdDl/ch"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Path is ordered sequence of nodes from source to target
type Path struct {
	Nodes []NodeID
	// Weight is sum of lengths of traversed arcs
	Weight float64
}

// ShortestPath finds minimum-length path between two nodes of the graph.
// Arc lengths are used as weights. Unreachable target gives ErrNoPathFound.
//
// Note: graph is rebuilt for every call and no contraction is done, so plain Dijkstra is used
func ShortestPath(g *Graph, source, target NodeID) (Path, error) {
	if _, ok := g.nodes[source]; !ok {
		return Path{}, errors.Wrapf(ErrMalformedGraph, "source node %d not found", source)
	}
	if _, ok := g.nodes[target]; !ok {
		return Path{}, errors.Wrapf(ErrMalformedGraph, "target node %d not found", target)
	}
	if source == target {
		return Path{Nodes: []NodeID{source}, Weight: 0}, nil
	}
	graph, err := prepareSearchGraph(g)
	if err != nil {
		return Path{}, err
	}
	dist, vertices := graph.VanillaShortestPath(int64(source), int64(target))
	if dist < 0 || math.IsInf(dist, 0) || len(vertices) == 0 {
		return Path{}, errors.Wrapf(ErrNoPathFound, "%d -> %d", source, target)
	}
	path := Path{
		Nodes: make([]NodeID, len(vertices)),
	}
	for i, v := range vertices {
		path.Nodes[i] = NodeID(v)
	}
	weight, err := PathWeight(g, path.Nodes)
	if err != nil {
		return Path{}, err
	}
	path.Weight = weight
	return path, nil
}

// PathWeight sums lengths of arcs between consecutive nodes
func PathWeight(g *Graph, nodes []NodeID) (float64, error) {
	lengths := make([]float64, 0, len(nodes))
	for i := 1; i < len(nodes); i++ {
		arc, ok := g.arcs[ArcKey{Source: nodes[i-1], Target: nodes[i]}]
		if !ok {
			return 0, errors.Wrapf(ErrMalformedGraph, "arc %d->%d not found", nodes[i-1], nodes[i])
		}
		lengths = append(lengths, arc.Length)
	}
	return floats.Sum(lengths), nil
}

// prepareSearchGraph converts road graph into ch.Graph
func prepareSearchGraph(g *Graph) (*ch.Graph, error) {
	graph := ch.Graph{}
	for _, node := range g.Nodes() {
		err := graph.CreateVertex(int64(node.ID))
		if err != nil {
			return nil, errors.Wrapf(err, "Can't create vertex %d", node.ID)
		}
	}
	for _, arc := range g.Arcs() {
		if _, ok := g.nodes[arc.Source]; !ok {
			return nil, errors.Wrapf(ErrMalformedGraph, "arc %s: source node %d not found", arc.Key(), arc.Source)
		}
		if _, ok := g.nodes[arc.Target]; !ok {
			return nil, errors.Wrapf(ErrMalformedGraph, "arc %s: target node %d not found", arc.Key(), arc.Target)
		}
		err := graph.AddEdge(int64(arc.Source), int64(arc.Target), arc.Length)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't add arc %s", arc.Key())
		}
	}
	return &graph, nil
}
