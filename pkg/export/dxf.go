package export

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/drawing"

	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/layer"
)

// DXF saves the raw cross-sections of layers as 3D lines at their height,
// one DXF layer per slice layer.
func DXF(path string, layers []*layer.Layer) error {
	d := dxf.NewDrawing()
	lines := 0
	for _, l := range layers {
		name := fmt.Sprintf("LAYER_%d", l.No)
		if _, err := d.AddLayer(name, dxf.DefaultColor, dxf.DefaultLineType, true); err != nil {
			return fmt.Errorf("export: dxf layer %s: %w", name, err)
		}
		for _, p := range l.Polygons {
			n, err := dxfPoly(d, p)
			if err != nil {
				return err
			}
			lines += n
		}
	}
	if lines == 0 {
		return fmt.Errorf("export: nothing to draw")
	}
	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

func dxfPoly(d *drawing.Drawing, p geom.Poly) (int, error) {
	n := len(p.Points)
	if n < 2 {
		return 0, nil
	}
	segs := n
	if p.Open {
		segs = n - 1
	}
	for i := 0; i < segs; i++ {
		a, b := p.Points[i], p.Points[(i+1)%n]
		if _, err := d.Line(a.X, a.Y, p.Z, b.X, b.Y, p.Z); err != nil {
			return i, fmt.Errorf("export: dxf line: %w", err)
		}
	}
	return segs, nil
}
