package roadplan

import (
	"context"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestPlanCoincidentProjections(t *testing.T) {
	g := straightRoad(t)
	planner := NewPlanner(g, WithLogger(zaptest.NewLogger(t)))

	route, err := planner.Plan(orb.Point{500, 50}, orb.Point{500, -50})
	require.NoError(t, err)
	assert.Equal(t, route.StartNode, route.EndNode)
	assert.Equal(t, []NodeID{route.StartNode}, route.Path.Nodes)
	assert.Equal(t, 0.0, route.Path.Weight)
	require.Len(t, route.Trajectory, 1)
	assert.Equal(t, orb.Point{500, 0}, route.Trajectory[0].Point())
	assert.Equal(t, 0.0, route.Trajectory[0].Theta)
	assert.InDelta(t, 50, route.Start.Distance, 1e-9)
	assert.InDelta(t, 50, route.End.Distance, 1e-9)

	// Base graph is untouched
	assert.Equal(t, 2, g.NumNodes())
	assert.Equal(t, 1, g.NumArcs())
}

func TestPlanStraight(t *testing.T) {
	g := straightRoad(t)
	planner := NewPlanner(g)

	route, err := planner.Plan(orb.Point{100, 20}, orb.Point{900, -20})
	require.NoError(t, err)
	require.Len(t, route.Path.Nodes, 2)
	assert.InDelta(t, 800, route.Path.Weight, 1e-9)
	require.Len(t, route.Sparse, 2)
	assert.Equal(t, orb.Point{100, 0}, route.Sparse[0].Point())
	assert.Equal(t, orb.Point{900, 0}, route.Sparse[1].Point())

	require.Len(t, route.Trajectory, 17)
	assert.Equal(t, route.Start.Point, route.Trajectory[0].Point())
	assert.Equal(t, route.End.Point, route.Trajectory[16].Point())
	for i, pose := range route.Trajectory {
		assert.Equal(t, i, pose.ID)
	}

	// The other way round is impossible on one-way road
	_, err = planner.Plan(orb.Point{900, -20}, orb.Point{100, 20})
	assert.True(t, errors.Is(err, ErrNoPathFound), "got %v", err)
}

func TestPlanQuarterCircle(t *testing.T) {
	g := prepareGraph(t, map[NodeID]orb.Point{
		1: {0, 0},
		2: {500, 500},
	}, [][3]float64{
		{1, 2, 500},
	})
	planner := NewPlanner(g, WithStepSize(25))

	route, err := planner.Plan(orb.Point{0, 0}, orb.Point{500, 500})
	require.NoError(t, err)
	assert.Equal(t, []NodeID{1, 2}, route.Path.Nodes)
	assert.InDelta(t, 500*math.Pi/2, route.Path.Weight, 1e-9)
	assert.Equal(t, orb.Point{0, 0}, route.Trajectory[0].Point())
	assert.Equal(t, orb.Point{500, 500}, route.Trajectory[len(route.Trajectory)-1].Point())
	for _, pose := range route.Trajectory {
		assert.InDelta(t, 500, planar.Distance(orb.Point{0, 500}, pose.Point()), 1e-6)
	}
}

func TestPlanAcrossArcs(t *testing.T) {
	g := prepareGraph(t, map[NodeID]orb.Point{
		1: {0, 0},
		2: {1000, 0},
		3: {1000, 1000},
	}, [][3]float64{
		{1, 2, 0},
		{2, 3, 0},
	})
	g.arcs[ArcKey{Source: 2, Target: 3}].Zones = ZoneFlags{Overtake: true}
	planner := NewPlanner(g)

	route, err := planner.Plan(orb.Point{500, -10}, orb.Point{1010, 400})
	require.NoError(t, err)
	require.Len(t, route.Path.Nodes, 3)
	assert.Equal(t, NodeID(2), route.Path.Nodes[1])
	assert.InDelta(t, 900, route.Path.Weight, 1e-9)
	assert.Equal(t, ArcKey{Source: 1, Target: 2}, route.Start.Arc.Key())
	assert.Equal(t, ArcKey{Source: 2, Target: 3}, route.End.Arc.Key())

	last := route.Trajectory[len(route.Trajectory)-1]
	assert.Equal(t, orb.Point{1000, 400}, last.Point())
	assert.True(t, last.Zones.Overtake)
	assert.False(t, route.Trajectory[0].Zones.Overtake)
	assert.InDelta(t, math.Pi/2, last.Theta, 1e-9)
}

func TestPlanTwoWayRoad(t *testing.T) {
	g := prepareGraph(t, map[NodeID]orb.Point{
		1: {0, 0},
		2: {1000, 0},
	}, [][3]float64{
		{1, 2, 0},
		{2, 1, 0},
	})
	planner := NewPlanner(g)
	route, err := planner.Plan(orb.Point{800, 10}, orb.Point{200, 10})
	require.NoError(t, err)
	assert.InDelta(t, 600, route.Path.Weight, 1e-9)
	assert.Len(t, route.Path.Nodes, 2)
	assert.InDelta(t, -math.Pi, route.Trajectory[0].Theta, 1e-9)
}

func TestPlanNoPath(t *testing.T) {
	g := prepareGraph(t, map[NodeID]orb.Point{
		1: {0, 0},
		2: {1000, 0},
		3: {0, 5000},
		4: {1000, 5000},
	}, [][3]float64{
		{1, 2, 0},
		{3, 4, 0},
	})
	planner := NewPlanner(g)
	_, err := planner.Plan(orb.Point{100, 0}, orb.Point{500, 5000})
	assert.True(t, errors.Is(err, ErrNoPathFound), "got %v", err)
}

func TestPlanAttachFallback(t *testing.T) {
	g := prepareGraph(t, map[NodeID]orb.Point{
		1: {0, 0},
		2: {1000, 0},
		3: {2000, 0},
	}, nil)
	planner := NewPlanner(g, WithAttachNeighbours(1))

	route, err := planner.Plan(orb.Point{0, 100}, orb.Point{2000, 100})
	assert.True(t, errors.Is(err, ErrNoPathFound), "got %v", err)
	assert.Nil(t, route)

	_, err = g.AddArc(1, 2, Infinite(), ZoneFlags{})
	require.NoError(t, err)
	_, err = g.AddArc(2, 3, Infinite(), ZoneFlags{})
	require.NoError(t, err)
	route, err = planner.Plan(orb.Point{0, 0}, orb.Point{2000, 0})
	require.NoError(t, err)
	assert.Equal(t, []NodeID{1, 2, 3}, route.Path.Nodes)

	_, err = NewPlanner(NewGraph()).Plan(orb.Point{0, 0}, orb.Point{1, 1})
	assert.True(t, errors.Is(err, ErrNoProjection), "got %v", err)
}

func TestPlanAttachIsolatedNodes(t *testing.T) {
	g := prepareGraph(t, map[NodeID]orb.Point{
		1: {0, 0},
		2: {1000, 0},
	}, nil)
	planner := NewPlanner(g, WithAttachNeighbours(2))

	route, err := planner.Plan(orb.Point{0, 100}, orb.Point{1000, 100})
	require.NoError(t, err)
	assert.Equal(t, orb.Point{0, 100}, route.Start.Point)
	assert.Equal(t, orb.Point{1000, 100}, route.End.Point)
	assert.Equal(t, orb.Point{0, 100}, route.Trajectory[0].Point())
	assert.Equal(t, orb.Point{1000, 100}, route.Trajectory[len(route.Trajectory)-1].Point())
	// End point is attached after the start one, so the start node is among its neighbours
	assert.Equal(t, []NodeID{3, 4}, route.Path.Nodes)
	assert.InDelta(t, 1000, route.Path.Weight, 1e-9)
}

func TestPlanInvalidStep(t *testing.T) {
	planner := NewPlanner(straightRoad(t), WithStepSize(0))
	_, err := planner.Plan(orb.Point{100, 0}, orb.Point{200, 0})
	assert.True(t, errors.Is(err, ErrInvalidStep), "got %v", err)
}

func TestPlanAll(t *testing.T) {
	g := prepareGraph(t, map[NodeID]orb.Point{
		1: {0, 0},
		2: {1000, 0},
		3: {1000, 1000},
		4: {0, 1000},
	}, [][3]float64{
		{1, 2, 0},
		{2, 3, 0},
		{3, 4, 0},
		{4, 1, 0},
	})
	planner := NewPlanner(g, WithConcurrency(2), WithLogger(zap.NewNop()))
	requests := []Request{
		{VehicleID: 1, Start: orb.Point{100, -10}, End: orb.Point{900, 10}},
		{VehicleID: 2, Start: orb.Point{1010, 100}, End: orb.Point{-10, 500}},
		{VehicleID: 3, Start: orb.Point{500, 1010}, End: orb.Point{500, -10}},
		{VehicleID: 4, Start: orb.Point{900, 0}, End: orb.Point{100, 0}},
	}
	routes, err := planner.PlanAll(context.Background(), requests)
	require.NoError(t, err)
	require.Len(t, routes, len(requests))
	for i, request := range requests {
		expected, err := planner.Plan(request.Start, request.End)
		require.NoError(t, err)
		assert.Equal(t, request.VehicleID, routes[i].VehicleID)
		assert.InDelta(t, expected.Path.Weight, routes[i].Path.Weight, 1e-9)
		assert.Equal(t, expected.Trajectory, routes[i].Trajectory)
	}
	assert.InDelta(t, 800, routes[0].Path.Weight, 1e-9)
	assert.InDelta(t, 3200, routes[3].Path.Weight, 1e-9)

	assert.Equal(t, 4, g.NumNodes())
	assert.Equal(t, 4, g.NumArcs())
}

func TestPlanAllSingleRequest(t *testing.T) {
	planner := NewPlanner(straightRoad(t), WithConcurrency(1))
	requests := []Request{{VehicleID: 1, Start: orb.Point{100, 0}, End: orb.Point{900, 0}}}

	// Live context of the caller must not be reported as cancelled once all requests are done
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	routes, err := planner.PlanAll(ctx, requests)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	require.NotNil(t, routes[0])
	assert.Equal(t, int32(1), routes[0].VehicleID)
	assert.InDelta(t, 800, routes[0].Path.Weight, 1e-9)
	assert.NoError(t, ctx.Err())

	routes, err = planner.PlanAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, routes)
}

func TestPlanAllErrors(t *testing.T) {
	planner := NewPlanner(straightRoad(t))
	requests := []Request{
		{VehicleID: 7, Start: orb.Point{100, 0}, End: orb.Point{900, 0}},
		{VehicleID: 8, Start: orb.Point{900, 0}, End: orb.Point{100, 0}},
	}
	_, err := planner.PlanAll(context.Background(), requests)
	assert.True(t, errors.Is(err, ErrNoPathFound), "got %v", err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = planner.PlanAll(ctx, requests[:1])
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
