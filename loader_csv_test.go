package roadplan

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testNodesCSV = `id,x,y
1,0,0
2,500,500
3,1000,0
`

func TestDecodeGraphCSV(t *testing.T) {
	arcs := `u,v,radius,length,cx,cy,bridge,overtake
1,2,500,785.398163,0,500,1,0
2,1,-500,,,,yes,
1,3,inf,1000,,,0,true
3,1,INF,,,,,
`
	g, err := DecodeGraphCSV(strings.NewReader(testNodesCSV), strings.NewReader(arcs))
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 4, g.NumArcs())

	arc, ok := g.Arc(1, 2)
	require.True(t, ok)
	assert.Equal(t, MustFinite(500), arc.Radius)
	assert.InDelta(t, 500*math.Pi/2, arc.Length, 1e-9)
	assert.True(t, arc.Zones.Bridge)
	assert.False(t, arc.Zones.Overtake)

	arc, ok = g.Arc(2, 1)
	require.True(t, ok)
	assert.Equal(t, MustFinite(-500), arc.Radius)
	assert.True(t, arc.Zones.Bridge)
	require.NotNil(t, arc.Center)
	assert.InDelta(t, 0, arc.Center.X(), 1e-9)
	assert.InDelta(t, 500, arc.Center.Y(), 1e-9)

	arc, ok = g.Arc(1, 3)
	require.True(t, ok)
	assert.True(t, arc.IsStraight())
	assert.True(t, arc.Zones.Overtake)

	arc, ok = g.Arc(3, 1)
	require.True(t, ok)
	assert.True(t, arc.IsStraight())
	assert.Equal(t, ZoneFlags{}, arc.Zones)
}

func TestDecodeGraphCSVHints(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	arcs := `u,v,radius,length,cx,cy
1,2,500,700,10,10
1,3,inf,1000,500,0
2,3,-500,785.398163,500,0
`
	g, err := DecodeGraphCSV(strings.NewReader(testNodesCSV), strings.NewReader(arcs), WithLoaderLogger(zap.New(core)))
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumArcs())

	// Stored values are never used
	arc, _ := g.Arc(1, 2)
	assert.InDelta(t, 500*math.Pi/2, arc.Length, 1e-9)
	assert.InDelta(t, 0, arc.Center.X(), 1e-9)

	assert.Equal(t, 1, logs.FilterMessage("stale arc length discarded").Len())
	assert.Equal(t, 1, logs.FilterMessage("stale arc center discarded").Len())
	assert.Equal(t, 1, logs.FilterMessage("center of straight arc discarded").Len())
	assert.Equal(t, 3, logs.Len())
}

func TestDecodeGraphCSVErrors(t *testing.T) {
	tests := []struct {
		nodes string
		arcs  string
		err   error
	}{
		{testNodesCSV, "u,v,radius\n1,2,abc\n", ErrInvalidRadius},
		{testNodesCSV, "u,v,radius\n1,2,100\n", ErrInfeasibleArc},
		{testNodesCSV, "u,v,radius\n1,42,inf\n", ErrMalformedGraph},
		{testNodesCSV, "u,v,radius\n1,2,inf\n1,2,inf\n", ErrDuplicateArc},
		{"id,x,y\n1,0,0\n2,0,0\n", "u,v,radius\n1,2,inf\n", ErrDegenerateSegment},
		{"id,x,y\n1,0,0\n1,5,5\n", "u,v,radius\n", ErrDuplicateNode},
	}
	for i, test := range tests {
		_, err := DecodeGraphCSV(strings.NewReader(test.nodes), strings.NewReader(test.arcs))
		assert.True(t, errors.Is(err, test.err), "case #%d: got %v", i, err)
	}

	_, err := DecodeGraphCSV(strings.NewReader("id,x\n1,0\n"), strings.NewReader("u,v,radius\n"))
	assert.Error(t, err)
	_, err = DecodeGraphCSV(strings.NewReader(testNodesCSV), strings.NewReader("u,v,radius,bridge\n1,3,inf,maybe\n"))
	assert.Error(t, err)
	_, err = DecodeGraphCSV(strings.NewReader("id,x,y\nA,0,0\n"), strings.NewReader("u,v,radius\n"))
	assert.Error(t, err)
}

func TestGraphCSVRoundTrip(t *testing.T) {
	g := prepareGraph(t, map[NodeID]orb.Point{
		1: {0, 0},
		2: {500, 500},
		3: {1000, 0},
	}, [][3]float64{
		{1, 2, 500},
		{2, 3, -500},
		{3, 1, 0},
	})
	g.arcs[ArcKey{Source: 3, Target: 1}].Zones = ZoneFlags{Bridge: true, Overtake: true}

	nodes := &bytes.Buffer{}
	require.NoError(t, g.exportNodesToCSV(nodes))
	arcs := &bytes.Buffer{}
	require.NoError(t, g.exportArcsToCSV(arcs))
	assert.True(t, strings.HasPrefix(arcs.String(), "u;v;radius;length;cx;cy;bridge;overtake;geom\n"))
	assert.Contains(t, arcs.String(), "LINESTRING(")

	core, logs := observer.New(zapcore.WarnLevel)
	restored, err := DecodeGraphCSV(nodes, arcs, WithComma(';'), WithLoaderLogger(zap.New(core)))
	require.NoError(t, err)
	assert.Equal(t, g.Nodes(), restored.Nodes())
	assert.Equal(t, g.Arcs(), restored.Arcs())
	assert.Zero(t, logs.Len(), "exported hints must match computed geometry")
}

func TestDecodeGraphCSVSkipInvalidArcs(t *testing.T) {
	arcs := `u,v,radius
1,2,100
1,3,inf
3,3,inf
`
	_, err := DecodeGraphCSV(strings.NewReader(testNodesCSV), strings.NewReader(arcs))
	assert.True(t, errors.Is(err, ErrInfeasibleArc), "got %v", err)

	core, logs := observer.New(zapcore.WarnLevel)
	g, err := DecodeGraphCSV(strings.NewReader(testNodesCSV), strings.NewReader(arcs), WithSkipInvalidArcs(true), WithLoaderLogger(zap.New(core)))
	require.NoError(t, err)
	assert.Equal(t, 1, g.NumArcs())
	_, ok := g.Arc(1, 3)
	assert.True(t, ok)
	_, ok = g.Arc(1, 2)
	assert.False(t, ok)

	skipped := logs.FilterMessage("invalid arc skipped").All()
	require.Len(t, skipped, 2)
	assert.Equal(t, int64(2), skipped[0].ContextMap()["line"])
	assert.Equal(t, ArcKey{Source: 1, Target: 2}.String(), skipped[0].ContextMap()["arc"])
	assert.Equal(t, ArcKey{Source: 3, Target: 3}.String(), skipped[1].ContextMap()["arc"])

	// Structural errors are never skipped
	_, err = DecodeGraphCSV(strings.NewReader(testNodesCSV), strings.NewReader("u,v,radius\n1,42,inf\n"), WithSkipInvalidArcs(true))
	assert.True(t, errors.Is(err, ErrMalformedGraph), "got %v", err)
}

func TestExportToCSV(t *testing.T) {
	g := prepareGraph(t, map[NodeID]orb.Point{
		1: {0, 0},
		2: {500, 500},
		3: {1000, 0},
	}, [][3]float64{
		{1, 2, 500},
		{2, 3, -500},
	})
	dir := t.TempDir()
	require.NoError(t, g.ExportToCSV(filepath.Join(dir, "graph.csv")))

	nodesFile := filepath.Join(dir, "graph_nodes.csv")
	arcsFile := filepath.Join(dir, "graph_arcs.csv")
	for _, fname := range []string{nodesFile, arcsFile} {
		info, err := os.Stat(fname)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	}

	restored, err := ReadGraphCSV(nodesFile, arcsFile, WithComma(';'))
	require.NoError(t, err)
	assert.Equal(t, g.Nodes(), restored.Nodes())
	assert.Equal(t, g.Arcs(), restored.Arcs())

	assert.Error(t, g.ExportToCSV(filepath.Join(dir, "missing", "graph.csv")))
}

func TestWriteTrajectoryCSV(t *testing.T) {
	trajectory := Trajectory{
		{ID: 0, X: 0, Y: 0, Theta: math.Pi / 2},
		{ID: 1, X: 0, Y: 50.5, Theta: math.Pi / 2, Zones: ZoneFlags{Bridge: true}},
		{ID: 2, X: 0, Y: 100, Theta: -math.Pi, Zones: ZoneFlags{Overtake: true}},
	}
	buf := &bytes.Buffer{}
	require.NoError(t, WriteTrajectoryCSV(buf, trajectory))
	expected := "id,x,y,z,theta,bridge,overtake\n" +
		"0,0,0,0," + formatFloat(RadiansToDegrees(math.Pi/2)) + ",0,0\n" +
		"1,0,50.5,0," + formatFloat(RadiansToDegrees(math.Pi/2)) + ",1,0\n" +
		"2,0,100,0," + formatFloat(RadiansToDegrees(-math.Pi)) + ",0,1\n"
	assert.Equal(t, expected, buf.String())

	points := []PathPoint{
		{ID: 10, X: 1, Y: 2, Theta: 0},
		{ID: 11, X: 3, Y: 4, Theta: 0},
	}
	buf.Reset()
	require.NoError(t, WritePathCSV(buf, points))
	assert.Equal(t, "id,x,y,z,theta\n10,1,2,0,0\n11,3,4,0,0\n", buf.String())
}

func TestDecodeRequestsCSV(t *testing.T) {
	requests, err := DecodeRequestsCSV(strings.NewReader("vehicle_id;start_x;start_y;end_x;end_y\n7;0;10.5;1000;-3\n8;1;2;3;4\n"), WithComma(';'))
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, Request{VehicleID: 7, Start: orb.Point{0, 10.5}, End: orb.Point{1000, -3}}, requests[0])
	assert.Equal(t, int32(8), requests[1].VehicleID)

	_, err = DecodeRequestsCSV(strings.NewReader("vehicle_id,start_x,start_y,end_x,end_y\n4294967296,0,0,1,1\n"))
	assert.Error(t, err)
	_, err = DecodeRequestsCSV(strings.NewReader("vehicle_id,start_x,start_y\n1,0,0\n"))
	assert.Error(t, err)
}
