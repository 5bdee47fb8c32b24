package roadplan

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Request is single planning task
type Request struct {
	VehicleID int32
	Start     orb.Point
	End       orb.Point
}

// Route is result of planning
type Route struct {
	VehicleID int32
	// Start and End are projections of requested points onto the base graph.
	// For endpoints attached to nearest nodes (no arc accepted projection) Arc is empty and Point is the requested point itself
	Start Projection
	End   Projection
	// StartNode and EndNode are nodes of augmented graph where the path starts and ends
	StartNode NodeID
	EndNode   NodeID
	Path      Path
	// Sparse is node-level representation of the path
	Sparse []PathPoint
	// Trajectory is dense representation of the path
	Trajectory Trajectory
}

// Plan finds the shortest route between two arbitrary points and densifies it.
// Base graph is cloned, both points are projected onto their nearest arcs and those arcs are split on the clone.
// The clone is dropped afterwards
func (planner *Planner) Plan(start, end orb.Point) (*Route, error) {
	if !(planner.stepSize > 0) {
		return nil, errors.Wrapf(ErrInvalidStep, "step %f", planner.stepSize)
	}
	g := planner.graph.Clone()
	route := &Route{}
	err := planner.augment(g, route, start, end)
	if err != nil {
		return nil, err
	}
	path, err := ShortestPath(g, route.StartNode, route.EndNode)
	if err != nil {
		return nil, err
	}
	route.Path = path
	route.Sparse, err = SparsePath(g, path)
	if err != nil {
		return nil, err
	}
	route.Trajectory, err = Densify(g, path, planner.stepSize)
	if err != nil {
		return nil, err
	}
	planner.logger.Debug("route planned",
		zap.String("start", wkt.MarshalString(route.Start.Point)),
		zap.String("end", wkt.MarshalString(route.End.Point)),
		zap.Int("path_nodes", len(path.Nodes)),
		zap.Float64("weight", path.Weight),
		zap.Int("poses", len(route.Trajectory)),
	)
	return route, nil
}

// PlanAll plans independent requests concurrently. Every request works on its own clone of the base graph.
// Context cancellation is checked between requests only. Order of routes matches order of requests
func (planner *Planner) PlanAll(ctx context.Context, requests []Request) ([]*Route, error) {
	routes := make([]*Route, len(requests))
	eg, egCtx := errgroup.WithContext(ctx)
	if planner.concurrency > 0 {
		eg.SetLimit(planner.concurrency)
	}
	for i := range requests {
		if egCtx.Err() != nil {
			break
		}
		i := i
		request := requests[i]
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			route, err := planner.Plan(request.Start, request.End)
			if err != nil {
				return errors.Wrapf(err, "Can't plan route for vehicle %d (request %d)", request.VehicleID, i)
			}
			route.VehicleID = request.VehicleID
			routes[i] = route
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return routes, nil
}

// augment inserts start and end nodes into the scratch graph
func (planner *Planner) augment(g *Graph, route *Route, start, end orb.Point) error {
	startProj, startErr := ProjectOntoGraph(g, start)
	if startErr != nil && !errors.Is(startErr, ErrNoProjection) {
		return startErr
	}
	endProj, endErr := ProjectOntoGraph(g, end)
	if endErr != nil && !errors.Is(endErr, ErrNoProjection) {
		return endErr
	}

	switch {
	case startErr == nil && endErr == nil && planner.sameRoad(startProj.Arc, endProj.Arc):
		ids, err := splitRoad(g, startProj.Arc.Key(), []orb.Point{startProj.Point, endProj.Point}, planner.splitTwins)
		if err != nil {
			return err
		}
		route.StartNode, route.EndNode = ids[0], ids[1]
	default:
		if startErr == nil {
			ids, err := splitRoad(g, startProj.Arc.Key(), []orb.Point{startProj.Point}, planner.splitTwins)
			if err != nil {
				return err
			}
			route.StartNode = ids[0]
		}
		if endErr == nil {
			ids, err := splitRoad(g, endProj.Arc.Key(), []orb.Point{endProj.Point}, planner.splitTwins)
			if err != nil {
				return err
			}
			route.EndNode = ids[0]
		}
	}

	if startErr != nil {
		mode := AttachOutgoing
		if planner.bidirectionalAttach {
			mode = AttachBoth
		}
		id, err := AttachEndpoint(g, start, planner.attachNeighbours, mode)
		if err != nil {
			return err
		}
		planner.logger.Debug("start point attached to nearest nodes", zap.String("point", wkt.MarshalString(start)), zap.Int64("node", int64(id)))
		route.StartNode = id
		startProj = Projection{Point: start}
	}
	if endErr != nil {
		mode := AttachIncoming
		if planner.bidirectionalAttach {
			mode = AttachBoth
		}
		id, err := AttachEndpoint(g, end, planner.attachNeighbours, mode)
		if err != nil {
			return err
		}
		planner.logger.Debug("end point attached to nearest nodes", zap.String("point", wkt.MarshalString(end)), zap.Int64("node", int64(id)))
		route.EndNode = id
		endProj = Projection{Point: end}
	}

	// Projections snapped to existing nodes are reported at the node position
	if node, ok := g.Node(route.StartNode); ok {
		startProj.Point = node.Point
	}
	if node, ok := g.Node(route.EndNode); ok {
		endProj.Point = node.Point
	}
	route.Start, route.End = startProj, endProj
	return nil
}

// sameRoad checks if both arcs describe one road section which must be split three-way
func (planner *Planner) sameRoad(a, b Arc) bool {
	if a.Key() == b.Key() {
		return true
	}
	return planner.splitTwins && isTwinPair(a, b)
}
