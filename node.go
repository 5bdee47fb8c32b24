package roadplan

import (
	"fmt"

	"github.com/paulmach/orb"
)

// NodeID is identifier of graph node. Virtual nodes created by augmentation get fresh IDs
type NodeID int64

// Node is a point of the road network (millimeters)
type Node struct {
	ID    NodeID
	Point orb.Point
}

// String returns pretty printed value for Node
func (n Node) String() string {
	return fmt.Sprintf("Node %d | X: %f | Y: %f", n.ID, n.Point.X(), n.Point.Y())
}
