package infill

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/lamina/pkg/geom"
)

// rotationReach is the half-width of a rotating pattern relative to the
// longer side of the requested box. A square of that half-width still
// covers the box when turned by any angle.
const rotationReach = 1.5 / 2

// Key identifies a cached pattern.
type Key struct {
	Type           Type
	Distance       float64
	Rotation       float64 // base angle, radians
	RotatePerLayer float64 // added per layer number, radians
}

// Pattern is a generated infill pattern. The open polylines cover the box
// it was made for and are already turned by the base rotation; Polys turns
// them further for a given layer.
type Pattern struct {
	Key

	// Min and Max bound the unrotated generation frame.
	Min, Max v2.Vec
	Center   v2.Vec

	// covered box of the request the pattern was generated for
	coverMin, coverMax v2.Vec
	// reach is the radius around Center that rotating patterns cover.
	reach float64

	polys []geom.Poly
	alt   []geom.Poly // second hexagon layer
}

// newPattern generates the pattern of k for the region box [min, max].
func newPattern(k Key, min, max v2.Vec) *Pattern {
	p := &Pattern{Key: k, coverMin: min, coverMax: max}
	p.setMinMax(min, max)

	var alt []v2.Vec
	var pts []v2.Vec
	switch k.Type {
	case Parallel:
		pts = parallel(p.Min, p.Max, k.Distance)
	case Zigzag:
		pts = zigzag(p.Min, p.Max, k.Distance)
	case Hexagon:
		pts, alt = hexagons(p.Min, p.Max, k.Distance)
	case Hilbert:
		pts = hilbert(p.Min, p.Max, k.Distance)
	case Lines, Thin:
		p.polys = lines(p.Min, p.Max, k.Distance)
	}
	if len(pts) > 1 {
		p.polys = []geom.Poly{{Points: pts, Open: true, ExtrusionFactor: 1}}
	}
	if len(alt) > 1 {
		p.alt = []geom.Poly{{Points: alt, Open: true, ExtrusionFactor: 1}}
	}
	if k.Rotation != 0 {
		p.polys = geom.Rotated(p.polys, p.Center, k.Rotation)
		p.alt = geom.Rotated(p.alt, p.Center, k.Rotation)
	}
	return p
}

// setMinMax picks the generation frame. A pattern that never rotates
// only needs the request box turned back by the base rotation; one that
// rotates per layer gets a square large enough for any angle.
func (p *Pattern) setMinMax(min, max v2.Vec) {
	p.Center = min.Add(max).MulScalar(0.5)
	if p.RotatePerLayer == 0 {
		rect := geom.Rect(0, min, max)
		rect.Rotate(p.Center, -p.Rotation)
		p.Min, p.Max = rect.BBox()
		return
	}
	w := math.Max(max.X-min.X, max.Y-min.Y) * rotationReach
	p.reach = w
	diag := v2.Vec{X: w, Y: w}
	p.Min, p.Max = p.Center.Sub(diag), p.Center.Add(diag)
}

// Covers reports whether the pattern reaches over the box [min, max] for
// every layer.
func (p *Pattern) Covers(min, max v2.Vec) bool {
	if p.RotatePerLayer == 0 {
		return p.coverMin.X <= min.X && p.coverMax.X >= max.X &&
			p.coverMin.Y <= min.Y && p.coverMax.Y >= max.Y
	}
	r2 := p.reach * p.reach
	for _, c := range []v2.Vec{min, max, {X: min.X, Y: max.Y}, {X: max.X, Y: min.Y}} {
		if geom.Dist2(c, p.Center) > r2 {
			return false
		}
	}
	return true
}

// Polys returns the pattern for layer layerNo. The result is a copy and
// may be modified by the caller.
func (p *Pattern) Polys(layerNo int) []geom.Poly {
	src := p.polys
	if p.Type == Hexagon && layerNo%2 != 0 {
		src = p.alt
	}
	angle := float64(layerNo) * p.RotatePerLayer
	if angle == 0 {
		return geom.Clone(src)
	}
	return geom.Rotated(src, p.Center, angle)
}

// parallel is one boustrophedon polyline of vertical lines. The lines are
// centered on the box and the connectors lie a full spacing outside it,
// so clipping leaves one segment per line.
func parallel(min, max v2.Vec, d float64) []v2.Vec {
	w := max.X - min.X
	n := int(math.Ceil(w / d))
	if n < 1 {
		n = 1
	}
	x := min.X + (w-float64(n-1)*d)/2
	lo, hi := min.Y-d, max.Y+d
	pts := make([]v2.Vec, 0, 2*n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			pts = append(pts, v2.Vec{X: x, Y: lo}, v2.Vec{X: x, Y: hi})
		} else {
			pts = append(pts, v2.Vec{X: x, Y: hi}, v2.Vec{X: x, Y: lo})
		}
		x += d
	}
	return pts
}

// lines is the parallel pattern without connectors: each line is its own
// polyline.
func lines(min, max v2.Vec, d float64) []geom.Poly {
	pts := parallel(min, max, d)
	out := make([]geom.Poly, 0, len(pts)/2)
	for i := 0; i+1 < len(pts); i += 2 {
		out = append(out, geom.Poly{Points: []v2.Vec{pts[i], pts[i+1]}, Open: true, ExtrusionFactor: 1})
	}
	return out
}

// zigzag walks columns of small squares: up one column on the diagonal,
// back down the next.
func zigzag(min, max v2.Vec, d float64) []v2.Vec {
	var pts []v2.Vec
	for x := min.X; x < max.X; x += 2 * d {
		x2 := x + d
		pts = append(pts, v2.Vec{X: x, Y: min.Y - d})
		top := min.Y
		for y := min.Y; y < max.Y; y += 2 * d {
			pts = append(pts, v2.Vec{X: x, Y: y}, v2.Vec{X: x2, Y: y + d})
			top = y
		}
		for y := top; y > min.Y-d; y -= 2 * d {
			pts = append(pts, v2.Vec{X: x2, Y: y + d}, v2.Vec{X: x2 + d, Y: y})
		}
	}
	return pts
}

// hexSeparation keeps adjacent hexagon walls from touching.
const hexSeparation = 0.1

// hexagons returns the two alternating hexagon layers: full honeycomb
// columns, and a sparser row pattern that ties them together.
func hexagons(min, max v2.Vec, d float64) (first, second []v2.Vec) {
	a := d * math.Sqrt(3) / 2
	for x := min.X; x < max.X; x += 2 * a {
		y := min.Y
		for y < max.Y {
			first = append(first, v2.Vec{X: x, Y: y}, v2.Vec{X: x + a - hexSeparation, Y: y + d/2})
			y += 1.5 * d
			first = append(first, v2.Vec{X: x + a - hexSeparation, Y: y}, v2.Vec{X: x, Y: y + d/2})
			y += 1.5 * d
		}
		first = append(first, v2.Vec{X: x, Y: y})
		x2 := x + a
		for y > min.Y {
			y += 0.5 * d
			first = append(first, v2.Vec{X: x2, Y: y}, v2.Vec{X: x2 + a - hexSeparation, Y: y - d/2})
			y -= 1.5 * d
			first = append(first, v2.Vec{X: x2 + a - hexSeparation, Y: y}, v2.Vec{X: x2, Y: y - d/2})
			y -= 2 * d
		}
	}

	for y := min.Y; y < max.Y; y += 3 * d {
		x := min.X
		for x < max.X {
			second = append(second, v2.Vec{X: x, Y: y}, v2.Vec{X: x + a, Y: y + d/2})
			x += 2 * a
		}
		y2 := y + 1.5*d
		for x > min.X {
			second = append(second, v2.Vec{X: x + a, Y: y2}, v2.Vec{X: x, Y: y2 + d/2})
			x -= 2 * a
		}
	}
	return first, second
}

type direction int

const (
	up direction = iota
	left
	down
	right
)

// hilbert returns a Hilbert curve starting at min with steps of d. The
// level is chosen so the curve spans the longer side of the box; the
// generation frame already allows for rotation.
func hilbert(min, max v2.Vec, d float64) []v2.Vec {
	side := math.Max(max.X-min.X, max.Y-min.Y)
	if side <= 0 {
		return nil
	}
	level := int(math.Ceil(math.Log2(side/d + 1)))
	if level < 1 {
		level = 1
	}
	h := &hilbertWalk{d: d, pts: make([]v2.Vec, 1, 1<<(2*uint(level)))}
	h.pts[0] = min
	h.curve(level, up)
	return h.pts
}

type hilbertWalk struct {
	d   float64
	pts []v2.Vec
}

func (h *hilbertWalk) move(dir direction) {
	p := h.pts[len(h.pts)-1]
	switch dir {
	case left:
		p.X -= h.d
	case right:
		p.X += h.d
	case up:
		p.Y -= h.d
	case down:
		p.Y += h.d
	}
	h.pts = append(h.pts, p)
}

// hilbertRules lists, per direction, the sub-curve directions and the
// connecting moves between them: c0 m0 c1 m1 c2 m2 c3. At level one only
// the moves are drawn.
var hilbertRules = map[direction]struct {
	curves [4]direction
	moves  [3]direction
}{
	left:  {[4]direction{up, left, left, down}, [3]direction{right, down, left}},
	right: {[4]direction{down, right, right, up}, [3]direction{left, up, right}},
	up:    {[4]direction{left, up, up, right}, [3]direction{down, right, up}},
	down:  {[4]direction{right, down, down, left}, [3]direction{up, left, down}},
}

func (h *hilbertWalk) curve(level int, dir direction) {
	r := hilbertRules[dir]
	if level == 1 {
		for _, m := range r.moves {
			h.move(m)
		}
		return
	}
	for i, c := range r.curves {
		h.curve(level-1, c)
		if i < len(r.moves) {
			h.move(r.moves[i])
		}
	}
}
