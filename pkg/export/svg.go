package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	svg "github.com/ajstarks/svgo"

	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/layer"
)

const (
	outlineStyle = "fill:none;stroke:black;stroke-width:1"
	pathStyle    = "fill:none;stroke:steelblue;stroke-width:1"
)

// SVG draws layers into one document, one group per layer with its number
// and height. scale is pixels per millimeter.
func SVG(w io.Writer, layers []*layer.Layer, scale float64) error {
	v, err := newView(layers, scale)
	if err != nil {
		return err
	}
	width, height := v.size()
	canvas := svg.New(w)
	canvas.Start(width, height)
	for _, l := range layers {
		canvas.Group(fmt.Sprintf(`id="layer-%d"`, l.No), fmt.Sprintf(`data-z="%.4f"`, l.Z))
		for _, p := range l.Polygons {
			drawSVG(canvas, v, p, outlineStyle)
		}
		for _, p := range Paths(l)[len(l.Polygons):] {
			drawSVG(canvas, v, p, pathStyle)
		}
		canvas.Gend()
	}
	canvas.End()
	return nil
}

func drawSVG(canvas *svg.SVG, v view, p geom.Poly, style string) {
	if len(p.Points) < 2 {
		return
	}
	xs, ys := make([]int, len(p.Points)), make([]int, len(p.Points))
	for i, pt := range p.Points {
		x, y := v.at(pt)
		xs[i], ys[i] = int(math.Round(x)), int(math.Round(y))
	}
	if p.Open {
		canvas.Polyline(xs, ys, style)
	} else {
		canvas.Polygon(xs, ys, style)
	}
}

// SVGFiles writes one SVG file per layer of st into dir, named base
// followed by the zero-padded layer number.
func SVGFiles(dir, base string, st *layer.Stack, scale float64) ([]string, error) {
	digits := len(fmt.Sprint(max(st.Len()-1, 0)))
	var paths []string
	for _, l := range st.Layers {
		path := filepath.Join(dir, fmt.Sprintf("%s%0*d.svg", base, digits, l.No))
		if err := writeFile(path, func(w io.Writer) error {
			return SVG(w, []*layer.Layer{l}, scale)
		}); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, fn func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("export: %w", cerr)
		}
	}()
	return fn(f)
}
