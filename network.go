package roadplan

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
)

// ExportToCSV writes nodes and arcs of the graph into two files: <fname>_nodes.csv and <fname>_arcs.csv.
// Semicolon is used as separator. Arcs table carries densified geometry of every arc in WKT
func (g *Graph) ExportToCSV(fname string) error {
	fnameParts := strings.Split(fname, ".csv")
	fnameNodes := fnameParts[0] + "_nodes.csv"
	fnameArcs := fnameParts[0] + "_arcs.csv"

	err := exportToFile(fnameNodes, g.exportNodesToCSV)
	if err != nil {
		return errors.Wrap(err, "Can't export nodes")
	}

	err = exportToFile(fnameArcs, g.exportArcsToCSV)
	if err != nil {
		return errors.Wrap(err, "Can't export arcs")
	}
	return nil
}

func exportToFile(fname string, export func(w io.Writer) error) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	err = export(file)
	if err != nil {
		file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "Can't close file")
}

func (g *Graph) exportNodesToCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'

	err := writer.Write([]string{"id", "x", "y"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, node := range g.Nodes() {
		err = writer.Write([]string{
			fmt.Sprintf("%d", node.ID),
			formatFloat(node.Point.X()),
			formatFloat(node.Point.Y()),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write node")
		}
	}
	writer.Flush()
	return writer.Error()
}

func (g *Graph) exportArcsToCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'

	err := writer.Write([]string{"u", "v", "radius", "length", "cx", "cy", "bridge", "overtake", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, arc := range g.Arcs() {
		cx, cy := "", ""
		if arc.Center != nil {
			cx = formatFloat(arc.Center.X())
			cy = formatFloat(arc.Center.Y())
		}
		samples, err := sampleArc(g, &arc, DefaultStepSize)
		if err != nil {
			return errors.Wrapf(err, "Can't prepare geometry of arc %s", arc.Key())
		}
		err = writer.Write([]string{
			fmt.Sprintf("%d", arc.Source),
			fmt.Sprintf("%d", arc.Target),
			arc.Radius.String(),
			formatFloat(arc.Length),
			cx,
			cy,
			fmt.Sprintf("%t", arc.Zones.Bridge),
			fmt.Sprintf("%t", arc.Zones.Overtake),
			wkt.MarshalString(orb.LineString(samples)),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write arc")
		}
	}
	writer.Flush()
	return writer.Error()
}
