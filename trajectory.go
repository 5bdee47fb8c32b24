package roadplan

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

// TrajectoryPoint is oriented pose of the vehicle
type TrajectoryPoint struct {
	// ID is dense sequence number starting from 0
	ID int
	X  float64
	Y  float64
	// Z is reserved and always zero for planar maps
	Z float64
	// Theta is heading in radians within [-pi, pi)
	Theta float64
	Zones ZoneFlags
}

// Point returns planar position of the pose
func (tp TrajectoryPoint) Point() orb.Point {
	return orb.Point{tp.X, tp.Y}
}

// String returns pretty printed value for TrajectoryPoint
func (tp TrajectoryPoint) String() string {
	return fmt.Sprintf("%d: (%f, %f) theta %f bridge %t overtake %t", tp.ID, tp.X, tp.Y, tp.Theta, tp.Zones.Bridge, tp.Zones.Overtake)
}

// Trajectory is uniformly spaced sequence of poses
type Trajectory []TrajectoryPoint

// LineString returns geometry of trajectory
func (trajectory Trajectory) LineString() orb.LineString {
	line := make(orb.LineString, len(trajectory))
	for i := range trajectory {
		line[i] = trajectory[i].Point()
	}
	return line
}

// Length returns sum of distances between consecutive poses
func (trajectory Trajectory) Length() float64 {
	return planar.Length(trajectory.LineString())
}

// PathPoint is node-level record of sparse path. It shares schema with TrajectoryPoint
type PathPoint struct {
	// ID of graph node
	ID NodeID
	X  float64
	Y  float64
	Z  float64
	// Theta is heading to the next node in radians
	Theta float64
}

// Point returns planar position of the node
func (pp PathPoint) Point() orb.Point {
	return orb.Point{pp.X, pp.Y}
}

// SparseLineString returns polyline through nodes of sparse path
func SparseLineString(points []PathPoint) orb.LineString {
	line := make(orb.LineString, len(points))
	for i := range points {
		line[i] = points[i].Point()
	}
	return line
}

// SparsePath converts path into node-level records. Heading is the bearing to the next node,
// the last node copies the previous heading
func SparsePath(g *Graph, path Path) ([]PathPoint, error) {
	points := make([]PathPoint, len(path.Nodes))
	for i, id := range path.Nodes {
		node, ok := g.nodes[id]
		if !ok {
			return nil, errors.Wrapf(ErrMalformedGraph, "node %d not found", id)
		}
		points[i] = PathPoint{ID: id, X: node.Point.X(), Y: node.Point.Y()}
	}
	for i := 0; i < len(points)-1; i++ {
		points[i].Theta = Heading(points[i].Point(), points[i+1].Point())
	}
	if len(points) > 1 {
		points[len(points)-1].Theta = points[len(points)-2].Theta
	}
	return points, nil
}
