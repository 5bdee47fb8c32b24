package roadplan

import (
	"encoding/xml"
	"io"

	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// ExportToOSM writes graph as OSM XML so it could be opened in OSM editors.
// Every node keeps its ID, x is stored as longitude and y as latitude.
// Every arc becomes one-way way of two nodes carrying radius and zone tags (see DecodeOSM)
func ExportToOSM(w io.Writer, g *Graph) error {
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")

	_, err := io.WriteString(w, xml.Header)
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	root := xml.StartElement{
		Name: xml.Name{Local: "osm"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "version"}, Value: "0.6"},
			{Name: xml.Name{Local: "generator"}, Value: "roadplan"},
		},
	}
	err = encoder.EncodeToken(root)
	if err != nil {
		return errors.Wrap(err, "Can't write root element")
	}

	for _, node := range g.Nodes() {
		osmNode := osm.Node{
			ID:      osm.NodeID(node.ID),
			Lat:     node.Point.Y(),
			Lon:     node.Point.X(),
			Visible: true,
		}
		err = encoder.EncodeElement(osmNode, xml.StartElement{Name: xml.Name{Local: "node"}})
		if err != nil {
			return errors.Wrapf(err, "Can't write node %d", node.ID)
		}
	}

	for i, arc := range g.Arcs() {
		tags := osm.Tags{
			{Key: "highway", Value: "service"},
			{Key: "oneway", Value: "yes"},
			{Key: "radius", Value: arc.Radius.String()},
		}
		if arc.Zones.Bridge {
			tags = append(tags, osm.Tag{Key: "bridge", Value: "yes"})
		}
		if arc.Zones.Overtake {
			tags = append(tags, osm.Tag{Key: "overtaking", Value: "yes"})
		}
		osmWay := osm.Way{
			ID:      osm.WayID(i + 1),
			Visible: true,
			Nodes: osm.WayNodes{
				{ID: osm.NodeID(arc.Source)},
				{ID: osm.NodeID(arc.Target)},
			},
			Tags: tags,
		}
		err = encoder.EncodeElement(osmWay, xml.StartElement{Name: xml.Name{Local: "way"}})
		if err != nil {
			return errors.Wrapf(err, "Can't write arc %s", arc.Key())
		}
	}

	err = encoder.EncodeToken(root.End())
	if err != nil {
		return errors.Wrap(err, "Can't write root element")
	}
	return encoder.Flush()
}
