package toolpath

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"

	"github.com/chazu/lamina/pkg/clip"
	"github.com/chazu/lamina/pkg/gcode"
	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/layer"
)

// Speeds are in mm/s. Zero role speeds fall back to Print.
type Speeds struct {
	Print   float64
	Shell   float64
	Infill  float64
	Support float64
	Bridge  float64
	Move    float64
	// FirstLayer scales the print speeds of layer 0.
	FirstLayer float64
}

// RetractOptions controls retraction on travel.
type RetractOptions struct {
	// Amount is the filament pulled back, mm. Zero disables retraction.
	Amount float64
	// Speed is the filament speed, mm/s.
	Speed float64
	// MinTravel is the shortest travel that is retracted, mm.
	MinTravel float64
	// ZLift raises the nozzle during retracted travel, mm.
	ZLift float64
}

// Options controls a Builder.
type Options struct {
	// Width is the extruded line width, mm.
	Width               float64
	FilamentDiameter    float64
	ExtrusionMultiplier float64
	Speeds              Speeds
	Retract             RetractOptions
	// AvoidCrossing routes travel that would leave the outer shell along it.
	AvoidCrossing bool
	// FarthestLayerStart starts each layer at the outer shell vertex
	// farthest from where the previous layer ended.
	FarthestLayerStart bool
}

// Builder turns layers into lines, keeping the tool position between them.
type Builder struct {
	opts Options
	clip clip.Session

	pos v3.Vec
	// ref is where the nearest-path search starts.
	ref   v2.Vec
	lines []Line

	check, walk []geom.Poly
}

// NewBuilder returns a Builder at the origin.
func NewBuilder(s clip.Session, o Options) *Builder {
	if o.ExtrusionMultiplier == 0 {
		o.ExtrusionMultiplier = 1
	}
	if o.Speeds.FirstLayer == 0 {
		o.Speeds.FirstLayer = 1
	}
	return &Builder{opts: o, clip: s}
}

// Position returns the tool position after the last line.
func (b *Builder) Position() v3.Vec { return b.pos }

// ExtrusionPerMM returns the filament length per mm of a line of the
// configured width, thickness high, scaled by ef.
func (b *Builder) ExtrusionPerMM(thickness, ef float64) float64 {
	d := b.opts.FilamentDiameter
	if d <= 0 {
		return 0
	}
	if ef == 0 {
		ef = 1
	}
	return b.opts.Width * thickness / (math.Pi * d * d / 4) * ef * b.opts.ExtrusionMultiplier
}

// Lines returns the lines printing l, starting with the travel from the
// current position.
func (b *Builder) Lines(l *layer.Layer) []Line {
	b.lines = nil
	b.ref = v2.Vec{X: b.pos.X, Y: b.pos.Y}
	if b.opts.FarthestLayerStart {
		if pts := geom.Points(l.OuterShell()); len(pts) > 0 {
			far := geom.NewPoly(l.Z, pts...).Farthest(b.ref)
			b.ref = pts[far]
		}
	}
	b.setBounds(l)

	in := l.Infill
	b.add(l, l.SkirtPolygons, Skirt, l.Thickness, l.Z)
	b.add(l, in.Support, Support, l.Thickness, l.Z)
	if l.Skins > 1 {
		st := l.Thickness / float64(l.Skins)
		for k := 0; k < l.Skins; k++ {
			z := l.SkinZ(k)
			if k < len(in.Skins) {
				b.add(l, in.Skins[k], Skin, st, z)
			}
			b.add(l, geom.WithZ(geom.Clone(l.SkinPolygons), z), Skin, st, z)
		}
	}
	for i := len(l.Shells) - 1; i >= 0; i-- {
		b.add(l, l.Shells[i], Shell, l.Thickness, l.Z)
	}
	b.add(l, in.Thin, Thin, l.Thickness, l.Z)
	b.add(l, in.Normal, Infill, l.Thickness, l.Z)
	b.add(l, in.Full, FullInfill, l.Thickness, l.Z)
	b.add(l, in.Bridge, Bridge, l.Thickness, l.Z)
	b.add(l, in.Decor, Decor, l.Thickness, l.Z)
	return b.lines
}

// Commands returns the G-code of l: the layer marker followed by its
// retracted lines.
func (b *Builder) Commands(l *layer.Layer) []gcode.Command {
	lines := Retract(b.Lines(l), b.opts.Retract)
	return append([]gcode.Command{gcode.Layer(l.No, l.Z)}, Commands(lines)...)
}

// setBounds prepares travel routing for l: travel is checked against the
// outer shell grown by a quarter width and walks along the shell itself.
func (b *Builder) setBounds(l *layer.Layer) {
	b.check, b.walk = nil, nil
	if !b.opts.AvoidCrossing {
		return
	}
	b.walk = lo.Filter(l.OuterShell(), func(p geom.Poly, _ int) bool { return !p.Open && !p.Empty() })
	b.check = b.clip.Offset(b.walk, b.opts.Width/4, clip.JoinMiter, 2)
}

func (b *Builder) feed(l *layer.Layer, r Role) float64 {
	s := b.opts.Speeds
	v := s.Print
	switch r {
	case Shell, Skin:
		v = lo.Ternary(s.Shell > 0, s.Shell, v)
	case Infill, FullInfill, Decor, Thin:
		v = lo.Ternary(s.Infill > 0, s.Infill, v)
	case Support:
		v = lo.Ternary(s.Support > 0, s.Support, v)
	case Bridge:
		v = lo.Ternary(s.Bridge > 0, s.Bridge, v)
	}
	if l.No == 0 {
		v *= s.FirstLayer
	}
	return v * 60
}

// add prints polys nearest first. Skin lines use the skin thickness and
// ignore the factor the outline carries for its height.
func (b *Builder) add(l *layer.Layer, polys []geom.Poly, r Role, thickness, z float64) {
	done := make([]bool, len(polys))
	feed := b.feed(l, r)
	for range polys {
		best, start, bestD := -1, 0, math.Inf(1)
		for i, p := range polys {
			if done[i] || p.Empty() {
				continue
			}
			j, d := nearestStart(p, b.ref)
			if d < bestD {
				best, start, bestD = i, j, d
			}
		}
		if best < 0 {
			return
		}
		done[best] = true
		p := polys[best]
		ef := p.ExtrusionFactor
		if r == Skin {
			ef = 1
		}
		e := b.ExtrusionPerMM(thickness, ef)
		path := p.Path(start)
		b.travel(at(path[0], z))
		for _, q := range path[1:] {
			to := at(q, z)
			b.lines = append(b.lines, Line{From: b.pos, To: to, Role: r, Feed: feed, EPerMM: e})
			b.pos = to
		}
		b.ref = path[len(path)-1]
	}
}

// nearestStart returns the vertex a path should start at to be closest to
// pt: any vertex of a closed polygon, an end of an open one.
func nearestStart(p geom.Poly, pt v2.Vec) (int, float64) {
	if !p.Open {
		return p.Nearest(pt)
	}
	last := len(p.Points) - 1
	d0, d1 := geom.Dist2(p.Points[0], pt), geom.Dist2(p.Points[last], pt)
	if d1 < d0 {
		return last, d1
	}
	return 0, d0
}

func at(p v2.Vec, z float64) v3.Vec { return v3.Vec{X: p.X, Y: p.Y, Z: z} }

func (b *Builder) travel(to v3.Vec) {
	if b.pos == to {
		return
	}
	feed := b.opts.Speeds.Move * 60
	from := v2.Vec{X: b.pos.X, Y: b.pos.Y}
	for _, q := range b.route(from, v2.Vec{X: to.X, Y: to.Y}, to.Z) {
		via := at(q, to.Z)
		b.lines = append(b.lines, Line{From: b.pos, To: via, Role: Travel, Feed: feed})
		b.pos = via
	}
	b.lines = append(b.lines, Line{From: b.pos, To: to, Role: Travel, Feed: feed})
	b.pos = to
}

// route returns the intermediate points of a travel from a to b that stays
// inside the outer shell, or nil when the straight line does.
func (b *Builder) route(a, c v2.Vec, z float64) []v2.Vec {
	if len(b.walk) == 0 || geom.Dist2(a, c) < b.opts.Width*b.opts.Width {
		return nil
	}
	seg := geom.NewLine(z, a, c)
	inside := b.clip.IntersectLines([]geom.Poly{seg}, b.check)
	covered := lo.SumBy(inside, func(p geom.Poly) float64 { return p.Length() })
	if covered >= seg.Length()-b.opts.Width {
		return nil
	}
	best, ia, bestD := -1, 0, math.Inf(1)
	for i, p := range b.walk {
		if j, d := p.Nearest(a); d < bestD {
			best, ia, bestD = i, j, d
		}
	}
	if best < 0 {
		return nil
	}
	p := b.walk[best]
	ic, _ := p.Nearest(c)
	fwd, back := walkRing(p, ia, ic, 1), walkRing(p, ia, ic, -1)
	if pathLength(back) < pathLength(fwd) {
		return back
	}
	return fwd
}

func walkRing(p geom.Poly, from, to, step int) []v2.Vec {
	n := p.Len()
	out := []v2.Vec{p.Vertex(from)}
	for i := from; i != to; {
		i = ((i+step)%n + n) % n
		out = append(out, p.Vertex(i))
	}
	return out
}

func pathLength(pts []v2.Vec) float64 {
	var l float64
	for i := 1; i < len(pts); i++ {
		l += math.Sqrt(geom.Dist2(pts[i-1], pts[i]))
	}
	return l
}
