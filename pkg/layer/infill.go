package layer

import (
	"math"

	"github.com/samber/lo"

	"github.com/chazu/lamina/pkg/clip"
	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/infill"
)

// Infills holds the infill paths of a layer by role.
type Infills struct {
	Normal  []geom.Poly
	Full    []geom.Poly
	Skins   [][]geom.Poly // one entry per skin, at its own Z
	Bridge  []geom.Poly
	Decor   []geom.Poly
	Support []geom.Poly
	Thin    []geom.Poly
}

func (in *Infills) shift(dz float64) {
	groups := [][]geom.Poly{in.Normal, in.Full, in.Bridge, in.Decor, in.Support, in.Thin}
	groups = append(groups, in.Skins...)
	for _, g := range groups {
		for i := range g {
			g[i].Z += dz
		}
	}
}

// Count returns the number of paths over all roles.
func (in Infills) Count() int {
	n := len(in.Normal) + len(in.Full) + len(in.Bridge) + len(in.Decor) + len(in.Support) + len(in.Thin)
	return n + lo.SumBy(in.Skins, func(s []geom.Poly) int { return len(s) })
}

// InfillOptions controls CalcInfill. Angles are in radians.
type InfillOptions struct {
	Type           infill.Type
	Distance       float64
	FullDistance   float64
	Rotation       float64
	RotatePerLayer float64

	// ShellOnly skips normal infill; solid surfaces are still filled.
	ShellOnly bool

	BridgeDistance  float64 // 0 means FullDistance
	BridgeExtrusion float64 // 0 means 1

	DecorType     infill.Type
	DecorDistance float64 // 0 disables decor infill

	SupportDistance float64 // 0 means Distance

	// Width is the extruded line width, used for thin walls.
	Width float64
}

// CalcInfill fills every region of the layer. Patterns come from cache and
// turn by RotatePerLayer with the layer number.
func (l *Layer) CalcInfill(s clip.Session, cache *infill.Cache, o InfillOptions) {
	in := Infills{}
	base := infill.Options{Rotation: o.Rotation, RotatePerLayer: o.RotatePerLayer}

	if !o.ShellOnly {
		opt := base
		opt.Type, opt.Distance = o.Type, o.Distance
		in.Normal = infill.Fill(s, cache, l.FillPolygons, opt, l.No)
	}

	full := base
	full.Type, full.Distance = infill.Parallel, o.FullDistance
	in.Full = infill.Fill(s, cache, l.FullFillPolygons, full, l.No)

	if l.Skins > 1 && len(l.SkinFullFillPolygons) > 0 {
		in.Skins = make([][]geom.Poly, l.Skins)
		for k := 0; k < l.Skins; k++ {
			skin := full
			skin.Distance = o.FullDistance / float64(l.Skins)
			skin.Rotation = o.Rotation + float64(k)*o.RotatePerLayer
			in.Skins[k] = geom.WithZ(infill.Fill(s, cache, l.SkinFullFillPolygons, skin, l.No), l.SkinZ(k))
		}
	}

	bridgeDist := lo.Ternary(o.BridgeDistance > 0, o.BridgeDistance, o.FullDistance)
	for i, ex := range l.BridgePolygons {
		var rot float64
		if i < len(l.BridgeRotations) {
			rot = l.BridgeRotations[i]
		}
		bo := infill.Options{Type: infill.Parallel, Distance: bridgeDist, Rotation: rot, ExtrusionFactor: o.BridgeExtrusion}
		in.Bridge = append(in.Bridge, infill.Fill(s, cache, ex.Polys(), bo, 0)...)
	}

	if o.DecorDistance > 0 {
		do := base
		do.Type, do.Distance = o.DecorType, o.DecorDistance
		in.Decor = infill.Fill(s, cache, l.DecorPolygons, do, l.No)
	}

	so := infill.Options{
		Type:     infill.Lines,
		Distance: lo.Ternary(o.SupportDistance > 0, o.SupportDistance, o.Distance),
		Rotation: o.Rotation,
	}
	in.Support = infill.Fill(s, cache, l.SupportPolygons, so, 0)

	if o.Width > 0 {
		for _, thin := range l.ThinPolygons {
			in.Thin = append(in.Thin, thinLine(s, thin, o.Width)...)
		}
	}
	l.Infill = in
}

// thinLine traces a thin wall region with a single line along its longer
// side. The extrusion follows the region's mean width, estimated from its
// area and perimeter. The line is centered on the region, so the pattern is
// not shared with other regions.
func thinLine(s clip.Session, region geom.Poly, w float64) []geom.Poly {
	min, max := region.BBox()
	rot := 0.0
	if max.X-min.X > max.Y-min.Y {
		rot = math.Pi / 2
	}
	ef := 1.0
	if per := region.Length(); per > 0 {
		ef = math.Max(0.1, math.Min(1, 2*math.Abs(region.Area())/(per*w)))
	}
	o := infill.Options{Type: infill.Thin, Distance: w, Rotation: rot, ExtrusionFactor: ef}
	return infill.Fill(s, infill.NewCache(), []geom.Poly{region}, o, 0)
}
