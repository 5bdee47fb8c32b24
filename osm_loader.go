package roadplan

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// OSMScanner is common interface of OSM scanners
type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

// wayData is way prepared for conversion into arcs
type wayData struct {
	ID         osm.WayID
	Nodes      []osm.NodeID
	Radius     Radius
	Zones      ZoneFlags
	Oneway     bool
	IsReversed bool
}

// ImportFromOSMFile imports planar road graph from OSM file. Both XML (.osm, .xml) and PBF (.pbf, .osm.pbf) are supported.
//
// Planar coordinates are stored as longitude (x) and latitude (y) of nodes. See DecodeOSM for tags description
func ImportFromOSMFile(fileName string, options ...func(*LoaderOptions)) (*Graph, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "File open")
	}
	defer file.Close()

	var scanner OSMScanner
	// Guess file extension and prepare correct scanner
	ext := filepath.Ext(fileName)
	switch ext {
	case ".osm", ".xml":
		scanner = osmxml.New(context.Background(), file)
	case ".pbf":
		scanner = osmpbf.New(context.Background(), file, runtime.GOMAXPROCS(0))
	default:
		return nil, errors.Errorf("File extension '%s' for file '%s' is not handled yet", ext, fileName)
	}
	defer scanner.Close()
	return scanOSM(scanner, newLoaderOptions(options...))
}

// DecodeOSM reads planar road graph from OSM XML.
//
// Every way yields arcs between its consecutive nodes. Supported way tags:
//	radius - signed radius applied to every segment of the way ('inf' or missing for straight segments)
//	bridge=yes - bridge zone
//	overtaking=yes - overtake zone
//	oneway=yes|1|-1 - one-way road ('-1' for reversed direction). Otherwise reverse arcs with negated radius are added
func DecodeOSM(r io.Reader, options ...func(*LoaderOptions)) (*Graph, error) {
	scanner := osmxml.New(context.Background(), r)
	defer scanner.Close()
	return scanOSM(scanner, newLoaderOptions(options...))
}

func scanOSM(scanner OSMScanner, opts LoaderOptions) (*Graph, error) {
	st := time.Now()
	nodes := make(map[osm.NodeID]orb.Point)
	ways := []wayData{}
	for scanner.Scan() {
		obj := scanner.Object()
		switch obj.ObjectID().Type() {
		case "node":
			node := obj.(*osm.Node)
			nodes[node.ID] = orb.Point{node.Lon, node.Lat}
		case "way":
			way := obj.(*osm.Way)
			if !opts.osmCfg.Accept(way.Tags) {
				continue
			}
			preparedWay, err := prepareWay(way)
			if err != nil {
				return nil, err
			}
			ways = append(ways, preparedWay)
		default:
			continue
		}
	}
	if scanner.Err() != nil {
		return nil, errors.Wrap(scanner.Err(), "Scanner error")
	}
	opts.logger.Debug("OSM data scanned", zap.Int("nodes", len(nodes)), zap.Int("ways", len(ways)), zap.Duration("elapsed", time.Since(st)))

	g := NewGraph()
	for _, id := range sortedOSMNodeIDs(nodes) {
		err := g.AddNode(NodeID(id), nodes[id])
		if err != nil {
			return nil, err
		}
	}
	for _, way := range ways {
		err := addWayArcs(g, way, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "Way ID: '%d'", way.ID)
		}
	}
	opts.logger.Debug("OSM graph prepared", zap.Int("nodes", g.NumNodes()), zap.Int("arcs", g.NumArcs()))
	return g, nil
}

func prepareWay(way *osm.Way) (wayData, error) {
	radius, err := ParseRadius(way.Tags.Find("radius"))
	if err != nil {
		return wayData{}, errors.Wrapf(err, "Way ID: '%d'", way.ID)
	}
	preparedWay := wayData{
		ID:     way.ID,
		Nodes:  make([]osm.NodeID, 0, len(way.Nodes)),
		Radius: radius,
		Zones: ZoneFlags{
			Bridge:   way.Tags.Find("bridge") == "yes",
			Overtake: way.Tags.Find("overtaking") == "yes",
		},
	}
	switch way.Tags.Find("oneway") {
	case "yes", "1":
		preparedWay.Oneway = true
	case "-1":
		preparedWay.Oneway = true
		preparedWay.IsReversed = true
	}
	for _, node := range way.Nodes {
		preparedWay.Nodes = append(preparedWay.Nodes, node.ID)
	}
	return preparedWay, nil
}

func addWayArcs(g *Graph, way wayData, opts LoaderOptions) error {
	for i := 1; i < len(way.Nodes); i++ {
		source, target := NodeID(way.Nodes[i-1]), NodeID(way.Nodes[i])
		radius := way.Radius
		if way.IsReversed {
			source, target = target, source
			radius = radius.Reversed()
		}
		_, err := g.AddArc(source, target, radius, way.Zones)
		if err != nil && !opts.skipArc(err, ArcKey{Source: source, Target: target}, zap.Int64("way", int64(way.ID))) {
			return err
		}
		if way.Oneway {
			continue
		}
		_, err = g.AddArc(target, source, radius.Reversed(), way.Zones)
		if err != nil && !opts.skipArc(err, ArcKey{Source: target, Target: source}, zap.Int64("way", int64(way.ID))) {
			return err
		}
	}
	return nil
}

func sortedOSMNodeIDs(nodes map[osm.NodeID]orb.Point) []osm.NodeID {
	ids := make([]osm.NodeID, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})
	return ids
}
