// Package geom provides the planar polygon types shared by the slicer, the
// layer pipeline and the toolpath builder.
//
// A closed Poly is solid when it winds counter-clockwise and a hole when it
// winds clockwise. Nothing in lamina flips orientation implicitly; every
// transformation here preserves it unless its name says otherwise.
package geom

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Poly is an ordered, circularly indexed sequence of points at a fixed Z.
type Poly struct {
	Points []v2.Vec
	Z      float64
	// ExtrusionFactor scales the extrusion rate for lines traced from this
	// polygon (1 is nominal width).
	ExtrusionFactor float64
	// Open marks a polyline; its last point does not connect to the first.
	Open bool
}

// NewPoly returns a closed polygon with extrusion factor 1.
func NewPoly(z float64, pts ...v2.Vec) Poly {
	return Poly{Points: pts, Z: z, ExtrusionFactor: 1}
}

// NewLine returns an open two-point polyline.
func NewLine(z float64, from, to v2.Vec) Poly {
	return Poly{Points: []v2.Vec{from, to}, Z: z, ExtrusionFactor: 1, Open: true}
}

// Rect returns a counter-clockwise axis-aligned rectangle.
func Rect(z float64, min, max v2.Vec) Poly {
	return NewPoly(z,
		min,
		v2.Vec{X: max.X, Y: min.Y},
		max,
		v2.Vec{X: min.X, Y: max.Y},
	)
}

// Len returns the number of vertices.
func (p Poly) Len() int { return len(p.Points) }

// Empty reports whether p has too few points to describe a line or area.
func (p Poly) Empty() bool {
	if p.Open {
		return len(p.Points) < 2
	}
	return len(p.Points) < 3
}

// Vertex returns the vertex at i, wrapping around in both directions.
func (p Poly) Vertex(i int) v2.Vec {
	n := len(p.Points)
	i %= n
	if i < 0 {
		i += n
	}
	return p.Points[i]
}

// Area returns the signed shoelace area; positive for counter-clockwise.
func (p Poly) Area() float64 {
	if len(p.Points) < 3 {
		return 0
	}
	var a float64
	prev := p.Points[len(p.Points)-1]
	for _, q := range p.Points {
		a += prev.X*q.Y - q.X*prev.Y
		prev = q
	}
	return a / 2
}

// IsHole reports whether a closed polygon winds clockwise.
func (p Poly) IsHole() bool {
	return !p.Open && p.Area() < 0
}

// Reverse flips the vertex order in place.
func (p *Poly) Reverse() {
	for i, j := 0, len(p.Points)-1; i < j; i, j = i+1, j-1 {
		p.Points[i], p.Points[j] = p.Points[j], p.Points[i]
	}
}

// Clone returns a deep copy.
func (p Poly) Clone() Poly {
	q := p
	q.Points = append([]v2.Vec(nil), p.Points...)
	return q
}

// Center returns the area centroid of a closed polygon, falling back to the
// vertex average for degenerate or open polygons.
func (p Poly) Center() v2.Vec {
	if len(p.Points) == 0 {
		return v2.Vec{}
	}
	a := p.Area()
	if p.Open || math.Abs(a) < 1e-12 {
		var c v2.Vec
		for _, q := range p.Points {
			c = c.Add(q)
		}
		return c.MulScalar(1 / float64(len(p.Points)))
	}
	var cx, cy float64
	prev := p.Points[len(p.Points)-1]
	for _, q := range p.Points {
		f := prev.X*q.Y - q.X*prev.Y
		cx += (prev.X + q.X) * f
		cy += (prev.Y + q.Y) * f
		prev = q
	}
	return v2.Vec{X: cx / (6 * a), Y: cy / (6 * a)}
}

// BBox returns the axis-aligned bounds of the vertices.
func (p Poly) BBox() (min, max v2.Vec) {
	if len(p.Points) == 0 {
		return
	}
	min, max = p.Points[0], p.Points[0]
	for _, q := range p.Points[1:] {
		min = v2.Vec{X: math.Min(min.X, q.X), Y: math.Min(min.Y, q.Y)}
		max = v2.Vec{X: math.Max(max.X, q.X), Y: math.Max(max.Y, q.Y)}
	}
	return min, max
}

// Length returns the path length, including the closing edge when closed.
func (p Poly) Length() float64 {
	if len(p.Points) < 2 {
		return 0
	}
	var l float64
	for i := 1; i < len(p.Points); i++ {
		l += p.Points[i].Sub(p.Points[i-1]).Length()
	}
	if !p.Open {
		l += p.Points[0].Sub(p.Points[len(p.Points)-1]).Length()
	}
	return l
}

// Translate moves every vertex by d.
func (p *Poly) Translate(d v2.Vec) {
	for i := range p.Points {
		p.Points[i] = p.Points[i].Add(d)
	}
}

// Rotate turns every vertex by angle radians about center.
func (p *Poly) Rotate(center v2.Vec, angle float64) {
	if angle == 0 {
		return
	}
	s, c := math.Sincos(angle)
	for i, q := range p.Points {
		d := q.Sub(center)
		p.Points[i] = v2.Vec{X: center.X + d.X*c - d.Y*s, Y: center.Y + d.X*s + d.Y*c}
	}
}

// Cleanup drops vertices closer than tol to their predecessor and vertices
// whose incoming and outgoing directions differ by less than tol (squared
// distance of the unit direction vectors).
func (p *Poly) Cleanup(tol float64) {
	if len(p.Points) < 3 {
		return
	}
	pts := p.Points[:0:0]
	for i, q := range p.Points {
		if i > 0 && Dist2(q, pts[len(pts)-1]) < tol*tol {
			continue
		}
		pts = append(pts, q)
	}
	if !p.Open {
		for len(pts) > 1 && Dist2(pts[0], pts[len(pts)-1]) < tol*tol {
			pts = pts[:len(pts)-1]
		}
	}
	for changed := true; changed && len(pts) > 2; {
		changed = false
		n := len(pts)
		for i := 0; i < n; i++ {
			if p.Open && (i == 0 || i == n-1) {
				continue
			}
			a, b, c := pts[(i+n-1)%n], pts[i], pts[(i+1)%n]
			d1, d2 := unit(b.Sub(a)), unit(c.Sub(b))
			if Dist2(d1, d2) < tol {
				pts = append(pts[:i], pts[i+1:]...)
				changed = true
				break
			}
		}
	}
	p.Points = pts
}

// Contains reports whether pt lies strictly inside the closed polygon,
// using the even-odd rule.
func (p Poly) Contains(pt v2.Vec) bool {
	in := false
	n := len(p.Points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.Points[i], p.Points[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) &&
			pt.X < (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

// Nearest returns the index of the vertex closest to pt and its squared
// distance. It returns -1 for an empty polygon.
func (p Poly) Nearest(pt v2.Vec) (int, float64) {
	best, bestD := -1, math.Inf(1)
	for i, q := range p.Points {
		if d := Dist2(q, pt); d < bestD {
			best, bestD = i, d
		}
	}
	return best, bestD
}

// Farthest returns the index of the vertex farthest from pt.
func (p Poly) Farthest(pt v2.Vec) int {
	best, bestD := -1, -1.0
	for i, q := range p.Points {
		if d := Dist2(q, pt); d > bestD {
			best, bestD = i, d
		}
	}
	return best
}

// Path returns the vertices in drawing order starting at index start. Closed
// polygons repeat the start vertex at the end so the loop is traced fully.
func (p Poly) Path(start int) []v2.Vec {
	n := len(p.Points)
	if n == 0 {
		return nil
	}
	if p.Open {
		if start == n-1 {
			out := make([]v2.Vec, n)
			for i := range out {
				out[i] = p.Points[n-1-i]
			}
			return out
		}
		return append([]v2.Vec(nil), p.Points...)
	}
	out := make([]v2.Vec, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, p.Vertex(start+i))
	}
	return out
}

// Dist2 returns the squared distance between a and b.
func Dist2(a, b v2.Vec) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// Cross returns the z component of a × b.
func Cross(a, b v2.Vec) float64 {
	return a.X*b.Y - a.Y*b.X
}

func unit(v v2.Vec) v2.Vec {
	l := math.Hypot(v.X, v.Y)
	if l == 0 {
		return v
	}
	return v2.Vec{X: v.X / l, Y: v.Y / l}
}
