package roadplan

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// PrepareWKTLinestring returns WKT representation of trajectory
func PrepareWKTLinestring(trajectory Trajectory) string {
	return wkt.MarshalString(trajectory.LineString())
}

// PrepareWKTPoint returns WKT representation of Point
func PrepareWKTPoint(pt orb.Point) string {
	return wkt.MarshalString(pt)
}
