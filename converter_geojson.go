package roadplan

import (
	"fmt"

	"github.com/paulmach/orb"
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// PrepareGeoJSONLinestring returns GeoJSON representation of LineString
func PrepareGeoJSONLinestring(line orb.LineString) string {
	b, err := geojson.NewLineStringGeometry(lineCoordinates(line)).MarshalJSON()
	if err != nil {
		fmt.Printf("Warning. Can not convert geometry to geojson format: %s", err.Error())
		return ""
	}
	return string(b)
}

// PrepareGeoJSONPoint returns GeoJSON representation of Point
func PrepareGeoJSONPoint(pt orb.Point) string {
	b, err := geojson.NewPointGeometry([]float64{pt.X(), pt.Y()}).MarshalJSON()
	if err != nil {
		fmt.Printf("Warning. Can not convert geometry to geojson format: %s", err.Error())
		return ""
	}
	return string(b)
}

// PrepareGeoJSONTrajectory returns FeatureCollection made of the whole trajectory and its zones.
//
// The first feature is LineString of the whole trajectory. It is followed by one feature per contiguous run of poses
// having at least one zone flag set: LineString for runs of two or more poses, Point otherwise.
// Every zone feature carries "bridge", "overtake", "from_id" and "to_id" properties
func PrepareGeoJSONTrajectory(trajectory Trajectory) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	if len(trajectory) == 0 {
		return fc.MarshalJSON()
	}
	full := lineCoordinates(trajectory.LineString())
	var whole *geojson.Feature
	if len(full) == 1 {
		whole = geojson.NewPointFeature(full[0])
	} else {
		whole = geojson.NewLineStringFeature(full)
	}
	whole.SetProperty("poses", len(trajectory))
	whole.SetProperty("length", trajectory.Length())
	fc.AddFeature(whole)

	for _, run := range zoneRuns(trajectory) {
		var feature *geojson.Feature
		if len(run) == 1 {
			feature = geojson.NewPointFeature([]float64{run[0].X, run[0].Y})
		} else {
			feature = geojson.NewLineStringFeature(lineCoordinates(run.LineString()))
		}
		feature.SetProperty("bridge", run[0].Zones.Bridge)
		feature.SetProperty("overtake", run[0].Zones.Overtake)
		feature.SetProperty("from_id", run[0].ID)
		feature.SetProperty("to_id", run[len(run)-1].ID)
		fc.AddFeature(feature)
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(err, "Can't marshal trajectory")
	}
	return b, nil
}

// zoneRuns returns contiguous parts of trajectory with equal non-empty zone flags
func zoneRuns(trajectory Trajectory) []Trajectory {
	runs := []Trajectory{}
	start := -1
	for i := range trajectory {
		flagged := trajectory[i].Zones != (ZoneFlags{})
		if start >= 0 && (!flagged || trajectory[i].Zones != trajectory[start].Zones) {
			runs = append(runs, trajectory[start:i])
			start = -1
		}
		if flagged && start < 0 {
			start = i
		}
	}
	if start >= 0 {
		runs = append(runs, trajectory[start:])
	}
	return runs
}

func lineCoordinates(line orb.LineString) [][]float64 {
	pts2d := make([][]float64, len(line))
	for i := range line {
		pts2d[i] = []float64{line[i].X(), line[i].Y()}
	}
	return pts2d
}
