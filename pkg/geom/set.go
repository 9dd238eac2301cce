package geom

import (
	"math"
	"sort"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// ExPoly is one solid outline with the holes it encloses.
type ExPoly struct {
	Outer Poly
	Holes []Poly
}

// Area returns the outer area minus the hole areas.
func (e ExPoly) Area() float64 {
	a := math.Abs(e.Outer.Area())
	for _, h := range e.Holes {
		a -= math.Abs(h.Area())
	}
	return a
}

// Polys flattens e into its outer polygon followed by its holes.
func (e ExPoly) Polys() []Poly {
	out := make([]Poly, 0, 1+len(e.Holes))
	out = append(out, e.Outer)
	return append(out, e.Holes...)
}

// FlattenEx flattens a set of ExPolys.
func FlattenEx(ex []ExPoly) []Poly {
	var out []Poly
	for _, e := range ex {
		out = append(out, e.Polys()...)
	}
	return out
}

// Area returns the signed total area of polys.
func Area(polys []Poly) float64 {
	var a float64
	for _, p := range polys {
		a += p.Area()
	}
	return a
}

// BBox returns the bounds of all vertices in polys. ok is false when there
// are no vertices.
func BBox(polys []Poly) (min, max v2.Vec, ok bool) {
	for _, p := range polys {
		if len(p.Points) == 0 {
			continue
		}
		pmin, pmax := p.BBox()
		if !ok {
			min, max, ok = pmin, pmax, true
			continue
		}
		min = v2.Vec{X: math.Min(min.X, pmin.X), Y: math.Min(min.Y, pmin.Y)}
		max = v2.Vec{X: math.Max(max.X, pmax.X), Y: math.Max(max.Y, pmax.Y)}
	}
	return min, max, ok
}

// Clone deep-copies polys.
func Clone(polys []Poly) []Poly {
	if polys == nil {
		return nil
	}
	out := make([]Poly, len(polys))
	for i, p := range polys {
		out[i] = p.Clone()
	}
	return out
}

// Rotated returns copies of polys turned by angle about center.
func Rotated(polys []Poly, center v2.Vec, angle float64) []Poly {
	out := Clone(polys)
	for i := range out {
		out[i].Rotate(center, angle)
	}
	return out
}

// WithZ returns copies of polys moved to height z.
func WithZ(polys []Poly, z float64) []Poly {
	out := Clone(polys)
	for i := range out {
		out[i].Z = z
	}
	return out
}

// Points collects every vertex of polys.
func Points(polys []Poly) []v2.Vec {
	var pts []v2.Vec
	for _, p := range polys {
		pts = append(pts, p.Points...)
	}
	return pts
}

// ConvexHull returns the counter-clockwise convex hull of pts (monotone
// chain). Fewer than three distinct points yield an empty polygon.
func ConvexHull(z float64, pts []v2.Vec) Poly {
	if len(pts) < 3 {
		return Poly{Z: z, ExtrusionFactor: 1}
	}
	s := append([]v2.Vec(nil), pts...)
	sort.Slice(s, func(i, j int) bool {
		if s[i].X != s[j].X {
			return s[i].X < s[j].X
		}
		return s[i].Y < s[j].Y
	})
	hull := make([]v2.Vec, 0, 2*len(s))
	for _, p := range s {
		for len(hull) >= 2 && Cross(hull[len(hull)-1].Sub(hull[len(hull)-2]), p.Sub(hull[len(hull)-2])) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(s) - 2; i >= 0; i-- {
		p := s[i]
		for len(hull) >= lower && Cross(hull[len(hull)-1].Sub(hull[len(hull)-2]), p.Sub(hull[len(hull)-2])) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	hull = hull[:len(hull)-1]
	if len(hull) < 3 {
		return Poly{Z: z, ExtrusionFactor: 1}
	}
	return NewPoly(z, hull...)
}
