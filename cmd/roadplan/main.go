// Package main is roadplan command line tool.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/LdDl/roadplan"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	// Flags.
	flagDebug     = "debug"
	flagNodes     = "nodes"
	flagArcs      = "arcs"
	flagComma     = "comma"
	flagStart     = "start"
	flagEnd       = "end"
	flagStep      = "step"
	flagSparseOut = "sparse-out"
	flagDenseOut  = "dense-out"
	flagGeoJSON   = "geojson"
	flagSparseGeo = "sparse-geojson"
	flagSkipArcs  = "skip-invalid-arcs"
	flagItinerary = "itinerary"
	flagVehicleID = "vehicle-id"
	flagOut       = "out"
	flagFile      = "file"
	flagWayEntity = "way-entity"
	flagWayTags   = "way-tags"
	flagRequests  = "requests"
	flagWorkers   = "workers"
	flagOutDir    = "out-dir"
)

var graphFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     flagNodes,
		Required: true,
		Usage:    "nodes table (id, x, y)",
	},
	&cli.StringFlag{
		Name:     flagArcs,
		Required: true,
		Usage:    "arcs table (u, v, radius, length, cx, cy, bridge, overtake)",
	},
	&cli.StringFlag{
		Name:  flagComma,
		Value: ",",
		Usage: "field separator of graph tables",
	},
	&cli.BoolFlag{
		Name:  flagSkipArcs,
		Usage: "drop infeasible and degenerate arcs with a warning instead of failing",
	},
}

func main() {
	app := &cli.App{
		Name:  "roadplan",
		Usage: "plan routes and dense trajectories over planar road networks",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "plan",
				Usage:     "find the shortest route between two points and densify it",
				UsageText: "roadplan plan --nodes nodes.csv --arcs arcs.csv --start x,y --end x,y [other options]",
				Flags: append(append([]cli.Flag{}, graphFlags...),
					&cli.StringFlag{
						Name:     flagStart,
						Required: true,
						Usage:    "start point as 'x,y' (millimetres)",
					},
					&cli.StringFlag{
						Name:     flagEnd,
						Required: true,
						Usage:    "end point as 'x,y' (millimetres)",
					},
					&cli.Float64Flag{
						Name:  flagStep,
						Value: roadplan.DefaultStepSize,
						Usage: "maximum spacing between poses (millimetres)",
					},
					&cli.StringFlag{
						Name:  flagSparseOut,
						Value: "itineraire.csv",
						Usage: "output file for node-level path",
					},
					&cli.StringFlag{
						Name:  flagDenseOut,
						Value: "itineraire_dense.csv",
						Usage: "output file for dense trajectory",
					},
					&cli.StringFlag{
						Name:  flagGeoJSON,
						Usage: "optional output file for trajectory in GeoJSON",
					},
					&cli.StringFlag{
						Name:  flagSparseGeo,
						Usage: "optional output file for node-level path as GeoJSON LineString",
					},
					&cli.StringFlag{
						Name:  flagItinerary,
						Usage: "optional output file for itinerary message in vehicle binary format",
					},
					&cli.IntFlag{
						Name:  flagVehicleID,
						Value: 1,
						Usage: "vehicle ID written into itinerary message header",
					},
				),
				Action: PlanAction,
			},
			{
				Name:      "batch",
				Usage:     "plan routes for many vehicles concurrently",
				UsageText: "roadplan batch --nodes nodes.csv --arcs arcs.csv --requests requests.csv --out-dir routes [other options]",
				Flags: append(append([]cli.Flag{}, graphFlags...),
					&cli.StringFlag{
						Name:     flagRequests,
						Required: true,
						Usage:    "requests table (vehicle_id, start_x, start_y, end_x, end_y) using the same separator as graph tables",
					},
					&cli.Float64Flag{
						Name:  flagStep,
						Value: roadplan.DefaultStepSize,
						Usage: "maximum spacing between poses (millimetres)",
					},
					&cli.IntFlag{
						Name:  flagWorkers,
						Value: roadplan.DefaultConcurrency,
						Usage: "maximum number of requests planned simultaneously",
					},
					&cli.StringFlag{
						Name:  flagOutDir,
						Value: ".",
						Usage: "directory for dense trajectories (one 'itineraire_dense_<vehicle_id>.csv' per request)",
					},
					&cli.StringFlag{
						Name:  flagItinerary,
						Usage: "optional output file for itinerary messages of every vehicle in binary format",
					},
				),
				Action: BatchAction,
			},
			{
				Name:  "osm",
				Usage: "convert road graph from/to OpenStreetMap formats",
				Subcommands: []*cli.Command{
					{
						Name:      "export",
						Usage:     "export graph tables into OSM XML",
						UsageText: "roadplan osm export --nodes nodes.csv --arcs arcs.csv --out map.osm",
						Flags: append(append([]cli.Flag{}, graphFlags...),
							&cli.StringFlag{
								Name:     flagOut,
								Required: true,
								Usage:    "output OSM XML file",
							},
						),
						Action: OSMExportAction,
					},
					{
						Name:      "import",
						Usage:     "import graph from OSM file and write graph tables",
						UsageText: "roadplan osm import --file map.osm --out graph.csv",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     flagFile,
								Required: true,
								Usage:    "input OSM file (.osm, .xml or .pbf)",
							},
							&cli.StringFlag{
								Name:  flagOut,
								Value: "graph.csv",
								Usage: "output prefix. E.g.: 'graph.csv' produces 'graph_nodes.csv' and 'graph_arcs.csv'",
							},
							&cli.StringFlag{
								Name:  flagWayEntity,
								Usage: "import only ways having this tag (e.g. 'highway')",
							},
							&cli.StringSliceFlag{
								Name:  flagWayTags,
								Usage: "accepted values of --way-entity tag",
							},
							&cli.BoolFlag{
								Name:  flagSkipArcs,
								Usage: "drop infeasible and degenerate arcs with a warning instead of failing",
							},
						},
						Action: OSMImportAction,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger returns development logger when debug is enabled and production logger otherwise
func newLogger(c *cli.Context) (*zap.Logger, error) {
	if c.Bool(flagDebug) {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// PlanAction is the corresponding Action for 'plan'.
func PlanAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return errors.Wrap(err, "Can't prepare logger")
	}
	defer logger.Sync() //nolint:errcheck

	start, err := parsePoint(c.String(flagStart))
	if err != nil {
		return errors.Wrap(err, "Bad start point")
	}
	end, err := parsePoint(c.String(flagEnd))
	if err != nil {
		return errors.Wrap(err, "Bad end point")
	}
	graph, err := readGraph(c, logger)
	if err != nil {
		return err
	}

	planner := roadplan.NewPlanner(graph,
		roadplan.WithStepSize(c.Float64(flagStep)),
		roadplan.WithLogger(logger),
	)
	logger.Debug(planner.String())
	route, err := planner.Plan(start, end)
	if err != nil {
		return errors.Wrap(err, "Can't plan route")
	}
	logger.Info("route is ready",
		zap.Int("path_nodes", len(route.Path.Nodes)),
		zap.Float64("length", route.Path.Weight),
		zap.Int("poses", len(route.Trajectory)),
	)

	err = writeFile(c.String(flagSparseOut), func(f *os.File) error {
		return roadplan.WritePathCSV(f, route.Sparse)
	})
	if err != nil {
		return errors.Wrap(err, "Can't write sparse path")
	}
	err = writeFile(c.String(flagDenseOut), func(f *os.File) error {
		return roadplan.WriteTrajectoryCSV(f, route.Trajectory)
	})
	if err != nil {
		return errors.Wrap(err, "Can't write dense trajectory")
	}
	if fname := c.String(flagGeoJSON); fname != "" {
		err = writeFile(fname, func(f *os.File) error {
			b, err := roadplan.PrepareGeoJSONTrajectory(route.Trajectory)
			if err != nil {
				return err
			}
			_, err = f.Write(b)
			return err
		})
		if err != nil {
			return errors.Wrap(err, "Can't write GeoJSON")
		}
	}
	if fname := c.String(flagSparseGeo); fname != "" {
		err = writeFile(fname, func(f *os.File) error {
			_, err := f.WriteString(roadplan.PrepareGeoJSONLinestring(roadplan.SparseLineString(route.Sparse)))
			return err
		})
		if err != nil {
			return errors.Wrap(err, "Can't write sparse GeoJSON")
		}
	}
	if fname := c.String(flagItinerary); fname != "" {
		payload, err := roadplan.MarshalItinerary(route.Trajectory)
		if err != nil {
			return errors.Wrap(err, "Can't encode itinerary")
		}
		err = writeFile(fname, func(f *os.File) error {
			return roadplan.WriteMessage(f, int32(c.Int(flagVehicleID)), roadplan.MessageItinerary, payload)
		})
		if err != nil {
			return errors.Wrap(err, "Can't write itinerary")
		}
	}
	return nil
}

// BatchAction is the corresponding Action for 'batch'.
func BatchAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return errors.Wrap(err, "Can't prepare logger")
	}
	defer logger.Sync() //nolint:errcheck

	graph, err := readGraph(c, logger)
	if err != nil {
		return err
	}
	comma, err := parseComma(c.String(flagComma))
	if err != nil {
		return err
	}
	file, err := os.Open(c.String(flagRequests))
	if err != nil {
		return errors.Wrap(err, "Can't open requests file")
	}
	defer file.Close()
	requests, err := roadplan.DecodeRequestsCSV(file, roadplan.WithComma(comma))
	if err != nil {
		return errors.Wrap(err, "Can't read requests")
	}

	planner := roadplan.NewPlanner(graph,
		roadplan.WithStepSize(c.Float64(flagStep)),
		roadplan.WithConcurrency(c.Int(flagWorkers)),
		roadplan.WithLogger(logger),
	)
	logger.Debug(planner.String())
	routes, err := planner.PlanAll(c.Context, requests)
	if err != nil {
		return errors.Wrap(err, "Can't plan routes")
	}

	err = os.MkdirAll(c.String(flagOutDir), 0o755)
	if err != nil {
		return errors.Wrap(err, "Can't prepare output directory")
	}
	for _, route := range routes {
		fname := filepath.Join(c.String(flagOutDir), fmt.Sprintf("itineraire_dense_%d.csv", route.VehicleID))
		err = writeFile(fname, func(f *os.File) error {
			return roadplan.WriteTrajectoryCSV(f, route.Trajectory)
		})
		if err != nil {
			return errors.Wrapf(err, "Can't write dense trajectory of vehicle %d", route.VehicleID)
		}
	}
	if fname := c.String(flagItinerary); fname != "" {
		err = writeFile(fname, func(f *os.File) error {
			for _, route := range routes {
				payload, err := roadplan.MarshalItinerary(route.Trajectory)
				if err != nil {
					return errors.Wrapf(err, "Can't encode itinerary of vehicle %d", route.VehicleID)
				}
				err = roadplan.WriteMessage(f, route.VehicleID, roadplan.MessageItinerary, payload)
				if err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return errors.Wrap(err, "Can't write itineraries")
		}
	}
	logger.Info("routes are ready", zap.Int("requests", len(requests)))
	return nil
}

// OSMExportAction is the corresponding Action for 'osm export'.
func OSMExportAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return errors.Wrap(err, "Can't prepare logger")
	}
	defer logger.Sync() //nolint:errcheck

	graph, err := readGraph(c, logger)
	if err != nil {
		return err
	}
	err = writeFile(c.String(flagOut), func(f *os.File) error {
		return roadplan.ExportToOSM(f, graph)
	})
	if err != nil {
		return errors.Wrap(err, "Can't export graph")
	}
	logger.Info("graph exported", zap.String("file", c.String(flagOut)), zap.Int("nodes", graph.NumNodes()), zap.Int("arcs", graph.NumArcs()))
	return nil
}

// OSMImportAction is the corresponding Action for 'osm import'.
func OSMImportAction(c *cli.Context) error {
	logger, err := newLogger(c)
	if err != nil {
		return errors.Wrap(err, "Can't prepare logger")
	}
	defer logger.Sync() //nolint:errcheck

	options := []func(*roadplan.LoaderOptions){
		roadplan.WithLoaderLogger(logger),
		roadplan.WithSkipInvalidArcs(c.Bool(flagSkipArcs)),
	}
	if entity := c.String(flagWayEntity); entity != "" {
		options = append(options, roadplan.WithOsmConfiguration(&roadplan.OsmConfiguration{
			EntityName: entity,
			Tags:       c.StringSlice(flagWayTags),
		}))
	}
	graph, err := roadplan.ImportFromOSMFile(c.String(flagFile), options...)
	if err != nil {
		return errors.Wrap(err, "Can't import graph")
	}
	err = graph.ExportToCSV(c.String(flagOut))
	if err != nil {
		return errors.Wrap(err, "Can't export graph")
	}
	logger.Info("graph imported", zap.String("file", c.String(flagFile)), zap.Int("nodes", graph.NumNodes()), zap.Int("arcs", graph.NumArcs()))
	return nil
}

func readGraph(c *cli.Context, logger *zap.Logger) (*roadplan.Graph, error) {
	comma, err := parseComma(c.String(flagComma))
	if err != nil {
		return nil, err
	}
	graph, err := roadplan.ReadGraphCSV(c.String(flagNodes), c.String(flagArcs),
		roadplan.WithComma(comma),
		roadplan.WithLoaderLogger(logger),
		roadplan.WithSkipInvalidArcs(c.Bool(flagSkipArcs)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read graph")
	}
	logger.Debug("graph loaded", zap.Int("nodes", graph.NumNodes()), zap.Int("arcs", graph.NumArcs()))
	return graph, nil
}

// parsePoint parses 'x,y'
func parsePoint(s string) (orb.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, errors.Errorf("expected 'x,y', got '%s'", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, errors.Wrap(err, "Can't parse x")
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, errors.Wrap(err, "Can't parse y")
	}
	return orb.Point{x, y}, nil
}

func parseComma(s string) (rune, error) {
	if s == `\t` || s == "tab" {
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, errors.Errorf("separator must be single character, got '%s'", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

func writeFile(fname string, write func(f *os.File) error) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	err = write(file)
	if err != nil {
		file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "Can't close file")
}
