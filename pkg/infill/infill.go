// Package infill generates the line patterns that fill layer regions.
//
// Patterns are generated once for a bounding box and cached; layers that
// share the geometry reuse the cached pattern and only rotate it about its
// center. Fill clips a pattern against a region and returns open paths
// ready for the toolpath builder.
package infill

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/lamina/pkg/clip"
	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/logging"
)

// Type selects an infill pattern.
type Type int

const (
	Parallel Type = iota
	Zigzag
	Hexagon
	Polygons // onion rings, made from the region itself
	Hilbert
	Lines // unconnected parallel lines, used for support
	Thin  // single lines along narrow regions
)

var typeNames = map[Type]string{
	Parallel: "Parallel",
	Zigzag:   "Zigzag",
	Hexagon:  "Hexagons",
	Polygons: "Polygons",
	Hilbert:  "Hilbert Curve",
	Lines:    "Lines",
	Thin:     "Thin",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// ParseType returns the user-selectable pattern called name. Matching is
// case-insensitive and "Hilbert" is accepted for "Hilbert Curve".
func ParseType(name string) (Type, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "parallel":
		return Parallel, nil
	case "zigzag":
		return Zigzag, nil
	case "hexagon", "hexagons":
		return Hexagon, nil
	case "polygons", "onion":
		return Polygons, nil
	case "hilbert", "hilbert curve":
		return Hilbert, nil
	}
	return 0, fmt.Errorf("infill: unknown pattern %q", name)
}

// Options describes one infill request.
type Options struct {
	Type           Type
	Distance       float64 // line spacing, mm
	Rotation       float64 // base angle, radians
	RotatePerLayer float64 // radians added per layer number
	// ExtrusionFactor scales the extrusion of the produced paths; zero
	// means 1.
	ExtrusionFactor float64
}

// key returns the cache key. Zigzag always turns by a right angle per
// layer and hexagons never turn.
func (o Options) key() Key {
	k := Key{Type: o.Type, Distance: o.Distance, Rotation: o.Rotation, RotatePerLayer: o.RotatePerLayer}
	switch o.Type {
	case Zigzag:
		k.RotatePerLayer = math.Pi / 2
	case Hexagon:
		k.RotatePerLayer = 0
	}
	return k
}

// Fill returns the infill paths for region at layer layerNo. Line patterns
// come from c and are clipped to the region; onion rings are closed
// polygons. Results carry the region's Z.
func Fill(s clip.Session, c *Cache, region []geom.Poly, o Options, layerNo int) []geom.Poly {
	if len(region) == 0 || o.Distance <= 0 {
		return nil
	}
	ef := o.ExtrusionFactor
	if ef == 0 {
		ef = 1
	}

	var out []geom.Poly
	if o.Type == Polygons {
		out = Onion(s, region, o.Distance)
	} else {
		min, max, ok := geom.BBox(region)
		if !ok {
			return nil
		}
		p := c.Get(o.key(), min, max)
		out = s.IntersectLines(p.Polys(layerNo), region)
	}

	for i := range out {
		out[i].ExtrusionFactor = ef
	}
	return out
}

// maxOnionRings bounds Onion on degenerate input.
const maxOnionRings = 10000

// Onion returns rings following the region outline inwards at spacing d.
// Each ring is shrunk by (k+½)·d and grown back by ½·d so that corners
// are rounded off and the first ring overlaps the region edge.
func Onion(s clip.Session, region []geom.Poly, d float64) []geom.Poly {
	var out []geom.Poly
	shrinked := s.Offset(region, -0.5*d, clip.JoinMiter, 2)
	for i := 0; len(shrinked) > 0; i++ {
		if i == maxOnionRings {
			logging.Logger().Warn("infill: onion ring limit reached", "count", i)
			break
		}
		ring := s.Offset(shrinked, 0.5*d, clip.JoinMiter, 2)
		for j := range ring {
			ring[j].Cleanup(0.1 * d)
		}
		out = append(out, ring...)
		shrinked = s.Offset(shrinked, -d, clip.JoinMiter, 2)
	}
	return out
}
