package export

import (
	"fmt"
	"image"
	"image/color"

	"github.com/llgcode/draw2d/draw2dimg"

	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/layer"
)

var (
	background = color.RGBA{0xff, 0xff, 0xff, 0xff}
	regionFill = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
	outline    = color.RGBA{0x00, 0x00, 0x00, 0xff}
	pathColor  = color.RGBA{0x46, 0x82, 0xb4, 0xff}
)

// Image renders a layer preview: the filled cross-section with its shells
// and infill on top. scale is pixels per millimeter.
func Image(l *layer.Layer, scale float64) (*image.RGBA, error) {
	v, err := newView([]*layer.Layer{l}, scale)
	if err != nil {
		return nil, err
	}
	w, h := v.size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	gc := draw2dimg.NewGraphicContext(img)
	gc.SetFillColor(background)
	gc.MoveTo(0, 0)
	gc.LineTo(float64(w), 0)
	gc.LineTo(float64(w), float64(h))
	gc.LineTo(0, float64(h))
	gc.Close()
	gc.Fill()

	gc.SetLineWidth(1)
	gc.SetFillColor(regionFill)
	gc.SetStrokeColor(outline)
	for _, p := range l.Polygons {
		if trace(gc, v, p) {
			gc.FillStroke()
		}
	}
	gc.SetStrokeColor(pathColor)
	for _, p := range Paths(l)[len(l.Polygons):] {
		if trace(gc, v, p) {
			gc.Stroke()
		}
	}
	return img, nil
}

func trace(gc *draw2dimg.GraphicContext, v view, p geom.Poly) bool {
	if len(p.Points) < 2 {
		return false
	}
	gc.BeginPath()
	for i, pt := range p.Points {
		x, y := v.at(pt)
		if i == 0 {
			gc.MoveTo(x, y)
		} else {
			gc.LineTo(x, y)
		}
	}
	if !p.Open {
		gc.Close()
	}
	return true
}

// PNG saves the preview of l to path.
func PNG(path string, l *layer.Layer, scale float64) error {
	img, err := Image(l, scale)
	if err != nil {
		return err
	}
	if err := draw2dimg.SaveToPngFile(path, img); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}
