// Package export writes sliced layers for inspection outside a printer:
// SVG outlines, DXF lines and PNG previews.
package export

import (
	"fmt"
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/layer"
)

// Margin surrounds the drawing, mm.
const Margin = 2.0

// Paths returns what a layer shows in a drawing: the raw cross-section,
// the shells and every infill path.
func Paths(l *layer.Layer) []geom.Poly {
	out := append([]geom.Poly(nil), l.Polygons...)
	for _, sh := range l.Shells {
		out = append(out, sh...)
	}
	in := l.Infill
	for _, g := range [][]geom.Poly{l.SkinPolygons, l.SkirtPolygons, in.Normal, in.Full, in.Bridge, in.Decor, in.Support, in.Thin} {
		out = append(out, g...)
	}
	for _, s := range in.Skins {
		out = append(out, s...)
	}
	return out
}

// view maps plate millimeters to drawing units with Y pointing down.
type view struct {
	min, max v2.Vec
	scale    float64
}

func newView(layers []*layer.Layer, scale float64) (view, error) {
	if scale <= 0 {
		return view{}, fmt.Errorf("export: scale must be positive, got %v", scale)
	}
	v := view{min: v2.Vec{X: math.Inf(1), Y: math.Inf(1)}, max: v2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}, scale: scale}
	found := false
	for _, l := range layers {
		min, max, ok := geom.BBox(Paths(l))
		if !ok {
			continue
		}
		found = true
		v.min = v2.Vec{X: math.Min(v.min.X, min.X), Y: math.Min(v.min.Y, min.Y)}
		v.max = v2.Vec{X: math.Max(v.max.X, max.X), Y: math.Max(v.max.Y, max.Y)}
	}
	if !found {
		return view{}, fmt.Errorf("export: nothing to draw")
	}
	m := v2.Vec{X: Margin, Y: Margin}
	v.min, v.max = v.min.Sub(m), v.max.Add(m)
	return v, nil
}

func (v view) size() (w, h int) {
	return int(math.Ceil((v.max.X - v.min.X) * v.scale)), int(math.Ceil((v.max.Y - v.min.Y) * v.scale))
}

func (v view) at(p v2.Vec) (x, y float64) {
	return (p.X - v.min.X) * v.scale, (v.max.Y - p.Y) * v.scale
}
