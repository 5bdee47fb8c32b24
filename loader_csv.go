package roadplan

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// hintTolerance is maximum allowed mismatch between cached geometry from storage and recomputed one
const hintTolerance = 1e-3

// ReadGraphCSV loads graph from nodes table and arcs table
func ReadGraphCSV(nodesFile, arcsFile string, options ...func(*LoaderOptions)) (*Graph, error) {
	nodes, err := os.Open(nodesFile)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open nodes file")
	}
	defer nodes.Close()
	arcs, err := os.Open(arcsFile)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open arcs file")
	}
	defer arcs.Close()
	return DecodeGraphCSV(nodes, arcs, options...)
}

// DecodeGraphCSV reads graph from nodes table (id, x, y) and arcs table (u, v, radius, length, cx, cy, bridge, overtake).
//
// Radius "inf" (any case), "+inf", "infinity", empty string and zero mean straight segment.
// Columns length, cx and cy are cached values: they are compared with recomputed geometry, mismatches are logged and discarded.
// Columns bridge and overtake are optional
func DecodeGraphCSV(nodes, arcs io.Reader, options ...func(*LoaderOptions)) (*Graph, error) {
	opts := newLoaderOptions(options...)
	g := NewGraph()
	err := decodeNodesCSV(g, nodes, opts)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read nodes")
	}
	err = decodeArcsCSV(g, arcs, opts)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read arcs")
	}
	return g, nil
}

// csvTable is reader which resolves columns by header names
type csvTable struct {
	reader  *csv.Reader
	columns map[string]int
	line    int
	record  []string
}

func newCSVTable(r io.Reader, comma rune, required ...string) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "Can't read header")
	}
	table := &csvTable{
		reader:  reader,
		columns: make(map[string]int, len(header)),
		line:    1,
	}
	for i, name := range header {
		table.columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := table.columns[name]; !ok {
			return nil, errors.Errorf("column '%s' is missing", name)
		}
	}
	return table, nil
}

// next reads next record. Returns io.EOF when table is over
func (table *csvTable) next() error {
	record, err := table.reader.Read()
	if err != nil {
		return err
	}
	table.line++
	table.record = record
	return nil
}

// get returns trimmed value of column. Missing column or short record gives empty string
func (table *csvTable) get(name string) string {
	idx, ok := table.columns[name]
	if !ok || idx >= len(table.record) {
		return ""
	}
	return strings.TrimSpace(table.record[idx])
}

func (table *csvTable) float(name string) (float64, error) {
	value, err := strconv.ParseFloat(table.get(name), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "Can't parse '%s' at line %d", name, table.line)
	}
	return value, nil
}

func (table *csvTable) int64(name string) (int64, error) {
	value, err := strconv.ParseInt(table.get(name), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "Can't parse '%s' at line %d", name, table.line)
	}
	return value, nil
}

// optionalFloat parses column if it is present and not empty
func (table *csvTable) optionalFloat(name string) (float64, bool, error) {
	if table.get(name) == "" {
		return 0, false, nil
	}
	value, err := table.float(name)
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func (table *csvTable) flag(name string) (bool, error) {
	switch strings.ToLower(table.get(name)) {
	case "", "0", "false", "no", "f", "n":
		return false, nil
	case "1", "true", "yes", "t", "y":
		return true, nil
	default:
		return false, errors.Errorf("Can't parse '%s' at line %d: unexpected value '%s'", name, table.line, table.get(name))
	}
}

func decodeNodesCSV(g *Graph, r io.Reader, opts LoaderOptions) error {
	table, err := newCSVTable(r, opts.comma, "id", "x", "y")
	if err != nil {
		return err
	}
	for {
		err = table.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "Can't read record")
		}
		id, err := table.int64("id")
		if err != nil {
			return err
		}
		x, err := table.float("x")
		if err != nil {
			return err
		}
		y, err := table.float("y")
		if err != nil {
			return err
		}
		err = g.AddNode(NodeID(id), orb.Point{x, y})
		if err != nil {
			return errors.Wrapf(err, "line %d", table.line)
		}
	}
	return nil
}

func decodeArcsCSV(g *Graph, r io.Reader, opts LoaderOptions) error {
	table, err := newCSVTable(r, opts.comma, "u", "v", "radius")
	if err != nil {
		return err
	}
	for {
		err = table.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "Can't read record")
		}
		source, err := table.int64("u")
		if err != nil {
			return err
		}
		target, err := table.int64("v")
		if err != nil {
			return err
		}
		radius, err := ParseRadius(table.get("radius"))
		if err != nil {
			return errors.Wrapf(err, "line %d", table.line)
		}
		bridge, err := table.flag("bridge")
		if err != nil {
			return err
		}
		overtake, err := table.flag("overtake")
		if err != nil {
			return err
		}
		arc, err := g.AddArc(NodeID(source), NodeID(target), radius, ZoneFlags{Bridge: bridge, Overtake: overtake})
		if err != nil {
			if opts.skipArc(err, ArcKey{Source: NodeID(source), Target: NodeID(target)}, zap.Int("line", table.line)) {
				continue
			}
			return errors.Wrapf(err, "line %d", table.line)
		}
		err = checkHints(table, arc, opts.logger)
		if err != nil {
			return err
		}
	}
	return nil
}

// checkHints compares cached geometry of arc with the computed one
func checkHints(table *csvTable, arc *Arc, logger *zap.Logger) error {
	length, ok, err := table.optionalFloat("length")
	if err != nil {
		return err
	}
	if ok && math.Abs(length-arc.Length) > hintTolerance {
		logger.Warn("stale arc length discarded",
			zap.Int("line", table.line),
			zap.String("arc", arc.Key().String()),
			zap.Float64("stored", length),
			zap.Float64("computed", arc.Length),
		)
	}
	cx, okX, err := table.optionalFloat("cx")
	if err != nil {
		return err
	}
	cy, okY, err := table.optionalFloat("cy")
	if err != nil {
		return err
	}
	if !okX || !okY {
		return nil
	}
	if arc.Center == nil {
		logger.Warn("center of straight arc discarded",
			zap.Int("line", table.line),
			zap.String("arc", arc.Key().String()),
		)
		return nil
	}
	if planar.Distance(orb.Point{cx, cy}, *arc.Center) > hintTolerance {
		logger.Warn("stale arc center discarded",
			zap.Int("line", table.line),
			zap.String("arc", arc.Key().String()),
			zap.Float64s("stored", []float64{cx, cy}),
			zap.Float64s("computed", []float64{arc.Center.X(), arc.Center.Y()}),
		)
	}
	return nil
}

// DecodeRequestsCSV reads planning requests from table: vehicle_id, start_x, start_y, end_x, end_y
func DecodeRequestsCSV(r io.Reader, options ...func(*LoaderOptions)) ([]Request, error) {
	opts := newLoaderOptions(options...)
	table, err := newCSVTable(r, opts.comma, "vehicle_id", "start_x", "start_y", "end_x", "end_y")
	if err != nil {
		return nil, err
	}
	requests := []Request{}
	for {
		err = table.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "Can't read record")
		}
		vehicleID, err := table.int64("vehicle_id")
		if err != nil {
			return nil, err
		}
		if vehicleID < math.MinInt32 || vehicleID > math.MaxInt32 {
			return nil, errors.Errorf("Vehicle ID %d at line %d is out of int32 range", vehicleID, table.line)
		}
		coords := make([]float64, 4)
		for i, name := range []string{"start_x", "start_y", "end_x", "end_y"} {
			coords[i], err = table.float(name)
			if err != nil {
				return nil, err
			}
		}
		requests = append(requests, Request{
			VehicleID: int32(vehicleID),
			Start:     orb.Point{coords[0], coords[1]},
			End:       orb.Point{coords[2], coords[3]},
		})
	}
	return requests, nil
}

// WriteTrajectoryCSV writes dense trajectory as table: id, x, y, z, theta (degrees), bridge, overtake
func WriteTrajectoryCSV(w io.Writer, trajectory Trajectory) error {
	writer := csv.NewWriter(w)
	err := writer.Write([]string{"id", "x", "y", "z", "theta", "bridge", "overtake"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	for _, pose := range trajectory {
		err = writer.Write([]string{
			fmt.Sprintf("%d", pose.ID),
			formatFloat(pose.X),
			formatFloat(pose.Y),
			formatFloat(pose.Z),
			formatFloat(RadiansToDegrees(pose.Theta)),
			formatFlag(pose.Zones.Bridge),
			formatFlag(pose.Zones.Overtake),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write pose")
		}
	}
	writer.Flush()
	return writer.Error()
}

// WritePathCSV writes sparse path as table: id, x, y, z, theta (degrees)
func WritePathCSV(w io.Writer, points []PathPoint) error {
	writer := csv.NewWriter(w)
	err := writer.Write([]string{"id", "x", "y", "z", "theta"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	for _, pt := range points {
		err = writer.Write([]string{
			fmt.Sprintf("%d", pt.ID),
			formatFloat(pt.X),
			formatFloat(pt.Y),
			formatFloat(pt.Z),
			formatFloat(RadiansToDegrees(pt.Theta)),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write path point")
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatFlag(value bool) string {
	if value {
		return "1"
	}
	return "0"
}
