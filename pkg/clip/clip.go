// Package clip runs polygon boolean and offset operations through the
// fixed-point go.clipper backend.
//
// Every operation goes through a Session, which fixes the scale and the
// positive offset applied to coordinates before they enter the integer
// domain. Results keep the counter-clockwise-solid orientation of geom.Poly
// and inherit Z and extrusion factor from the last polygon added to the
// backend: clip polygons are added first, subject polygons last.
package clip

import (
	"math"

	clipper "github.com/ctessum/go.clipper"
	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/logging"
)

const (
	// DefaultScale is the number of integer units per millimetre (0.1 µm).
	DefaultScale = 10000
	// DefaultOrigin is added to every coordinate, in millimetres, so that
	// plates centered on the origin stay non-negative in the integer domain.
	DefaultOrigin = 10000
)

// Fill is the winding rule used to decide which regions are inside.
type Fill int

const (
	FillEvenOdd Fill = iota
	FillNonZero
	FillPositive
	FillNegative
)

func (f Fill) backend() clipper.PolyFillType {
	switch f {
	case FillEvenOdd:
		return clipper.PftEvenOdd
	case FillPositive:
		return clipper.PftPositive
	case FillNegative:
		return clipper.PftNegative
	default:
		return clipper.PftNonZero
	}
}

// Join selects how offset corners are drawn.
type Join int

const (
	JoinSquare Join = iota
	JoinMiter
	JoinRound
)

func (j Join) backend() clipper.JoinType {
	switch j {
	case JoinSquare:
		return clipper.JtSquare
	case JoinRound:
		return clipper.JtRound
	default:
		return clipper.JtMiter
	}
}

// Session holds the fixed-point parameters for a group of clip operations.
// It is a plain value; callers keep one per pipeline call and pass it down.
type Session struct {
	Scale  float64
	Origin float64
}

// NewSession returns a session with the default scale and origin.
func NewSession() Session {
	return Session{Scale: DefaultScale, Origin: DefaultOrigin}
}

func (s Session) toInt(v float64) clipper.CInt {
	return clipper.CInt(math.Round((v + s.Origin) * s.Scale))
}

func (s Session) fromInt(c clipper.CInt) float64 {
	return float64(c)/s.Scale - s.Origin
}

// ToPath converts p to a backend path in the same vertex order.
func (s Session) ToPath(p geom.Poly) clipper.Path {
	path := make(clipper.Path, len(p.Points))
	for i, q := range p.Points {
		path[i] = &clipper.IntPoint{X: s.toInt(q.X), Y: s.toInt(q.Y)}
	}
	return path
}

// ToPaths converts polys, skipping polygons with no vertices.
func (s Session) ToPaths(polys []geom.Poly) clipper.Paths {
	paths := make(clipper.Paths, 0, len(polys))
	for _, p := range polys {
		if len(p.Points) == 0 {
			continue
		}
		paths = append(paths, s.ToPath(p))
	}
	return paths
}

// FromPath converts a closed backend path back to a polygon.
func (s Session) FromPath(path clipper.Path, z, ef float64) geom.Poly {
	pts := make([]v2.Vec, len(path))
	for i, ip := range path {
		pts[i] = v2.Vec{X: s.fromInt(ip.X), Y: s.fromInt(ip.Y)}
	}
	return geom.Poly{Points: pts, Z: z, ExtrusionFactor: ef}
}

// FromPaths converts backend paths, dropping paths with fewer than three
// vertices.
func (s Session) FromPaths(paths clipper.Paths, z, ef float64) []geom.Poly {
	out := make([]geom.Poly, 0, len(paths))
	for _, path := range paths {
		if len(path) < 3 {
			continue
		}
		out = append(out, s.FromPath(path, z, ef))
	}
	return out
}

// meta returns Z and extrusion factor of the last polygon in the last
// non-empty group.
func meta(groups ...[]geom.Poly) (z, ef float64) {
	ef = 1
	for i := len(groups) - 1; i >= 0; i-- {
		if g := groups[i]; len(g) > 0 {
			last := g[len(g)-1]
			ef = last.ExtrusionFactor
			if ef == 0 {
				ef = 1
			}
			return last.Z, ef
		}
	}
	return 0, ef
}

func (s Session) execute(ct clipper.ClipType, subj, clp []geom.Poly, sf, cf Fill) (paths clipper.Paths) {
	defer func() {
		if r := recover(); r != nil {
			logging.Logger().Warn("clip: backend failure", "op", int(ct), "err", r)
			paths = nil
		}
	}()
	c := clipper.NewClipper(clipper.IoNone)
	if len(clp) > 0 {
		c.AddPaths(s.ToPaths(clp), clipper.PtClip, true)
	}
	c.AddPaths(s.ToPaths(subj), clipper.PtSubject, true)
	sol, ok := c.Execute1(ct, sf.backend(), cf.backend())
	if !ok {
		logging.Logger().Warn("clip: execute failed", "op", int(ct))
		return nil
	}
	return sol
}

func (s Session) boolean(ct clipper.ClipType, subj, clp []geom.Poly, sf, cf Fill) []geom.Poly {
	z, ef := meta(clp, subj)
	return s.FromPaths(s.execute(ct, subj, clp, sf, cf), z, ef)
}

// Union merges overlapping polygons of subj using the non-zero rule.
func (s Session) Union(subj []geom.Poly) []geom.Poly {
	return s.UnionFill(subj, FillNonZero)
}

// UnionFill merges subj using fill.
func (s Session) UnionFill(subj []geom.Poly, fill Fill) []geom.Poly {
	return s.boolean(clipper.CtUnion, subj, nil, fill, fill)
}

// UnionWith returns a ∪ b. Metadata comes from b when it is not empty.
func (s Session) UnionWith(a, b []geom.Poly) []geom.Poly {
	return s.boolean(clipper.CtUnion, b, a, FillNonZero, FillNonZero)
}

// Intersect returns subj ∩ clip.
func (s Session) Intersect(subj, clp []geom.Poly) []geom.Poly {
	if len(subj) == 0 || len(clp) == 0 {
		return nil
	}
	return s.boolean(clipper.CtIntersection, subj, clp, FillNonZero, FillNonZero)
}

// Subtract returns subj − clip.
func (s Session) Subtract(subj, clp []geom.Poly) []geom.Poly {
	return s.SubtractFill(subj, clp, FillNonZero, FillNonZero)
}

// SubtractFill returns subj − clip with explicit fill rules.
func (s Session) SubtractFill(subj, clp []geom.Poly, sf, cf Fill) []geom.Poly {
	if len(subj) == 0 {
		return nil
	}
	return s.boolean(clipper.CtDifference, subj, clp, sf, cf)
}

// SubtractMerged subtracts clip from subj and welds the remaining pieces
// with Merge.
func (s Session) SubtractMerged(subj, clp []geom.Poly, overlap float64) []geom.Poly {
	return s.Merge(s.Subtract(subj, clp), overlap)
}

// Xor returns the symmetric difference of subj and clip.
func (s Session) Xor(subj, clp []geom.Poly) []geom.Poly {
	return s.boolean(clipper.CtXor, subj, clp, FillNonZero, FillNonZero)
}

// ExPolys unites polys and groups the result into outlines with their
// holes. Islands inside holes become separate ExPolys.
func (s Session) ExPolys(polys []geom.Poly) []geom.ExPoly {
	if len(polys) == 0 {
		return nil
	}
	z, ef := meta(polys)
	c := clipper.NewClipper(clipper.IoNone)
	c.AddPaths(s.ToPaths(polys), clipper.PtSubject, true)
	tree, ok := c.Execute2(clipper.CtUnion, clipper.PftNonZero, clipper.PftNonZero)
	if !ok || tree == nil {
		return nil
	}
	var out []geom.ExPoly
	var walk func(nodes []*clipper.PolyNode)
	walk = func(nodes []*clipper.PolyNode) {
		for _, n := range nodes {
			if n.IsOpen || len(n.Contour()) < 3 {
				continue
			}
			ex := geom.ExPoly{Outer: s.FromPath(n.Contour(), z, ef)}
			for _, h := range n.Childs() {
				if len(h.Contour()) >= 3 {
					ex.Holes = append(ex.Holes, s.FromPath(h.Contour(), z, ef))
				}
				walk(h.Childs())
			}
			out = append(out, ex)
		}
	}
	walk(tree.Childs())
	return out
}

// IntersectLines clips the open polylines in lines against the closed
// region clip. The result polylines keep the Z of the region and the
// extrusion factor of the last line.
func (s Session) IntersectLines(lines, clp []geom.Poly) (out []geom.Poly) {
	if len(lines) == 0 || len(clp) == 0 {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Logger().Warn("clip: line clipping failed", "err", r)
			out = nil
		}
	}()
	z, _ := meta(clp)
	_, ef := meta(lines)
	c := clipper.NewClipper(clipper.IoNone)
	c.AddPaths(s.ToPaths(clp), clipper.PtClip, true)
	for _, l := range lines {
		if len(l.Points) < 2 {
			continue
		}
		c.AddPath(s.ToPath(l), clipper.PtSubject, false)
	}
	tree, ok := c.Execute2(clipper.CtIntersection, clipper.PftNonZero, clipper.PftNonZero)
	if !ok || tree == nil {
		return nil
	}
	for _, path := range c.OpenPathsFromPolyTree(tree) {
		if len(path) < 2 {
			continue
		}
		p := s.FromPath(path, z, ef)
		p.Open = true
		out = append(out, p)
	}
	return out
}

// Offset grows (delta > 0) or shrinks (delta < 0) closed polygons. The
// result is simplified into non-overlapping polygons.
func (s Session) Offset(polys []geom.Poly, delta float64, join Join, miterLimit float64) []geom.Poly {
	if len(polys) == 0 {
		return nil
	}
	z, ef := meta(polys)
	return s.FromPaths(s.offsetPaths(s.ToPaths(polys), delta, join, miterLimit), z, ef)
}

func (s Session) offsetPaths(paths clipper.Paths, delta float64, join Join, miterLimit float64) (out clipper.Paths) {
	defer func() {
		if r := recover(); r != nil {
			logging.Logger().Warn("clip: offset failed", "delta", delta, "err", r)
			out = nil
		}
	}()
	co := clipper.NewClipperOffset()
	co.MiterLimit = miterLimit
	co.AddPaths(paths, join.backend(), clipper.EtClosedPolygon)
	res := co.Execute(delta * s.Scale)
	if len(res) == 0 {
		return nil
	}
	c := clipper.NewClipper(clipper.IoNone)
	return c.SimplifyPolygons(res, clipper.PftNonZero)
}

// ShrinkedCapped shrinks polys by 2·d and grows the result by d. Regions
// narrower than 4·d disappear.
func (s Session) ShrinkedCapped(polys []geom.Poly, d float64, join Join) []geom.Poly {
	return s.Offset(s.Offset(polys, -2*d, join, 1), d, join, 1)
}

// Merge welds near-touching polygons: grow by overlap, unite, and shrink
// back by the same amount.
func (s Session) Merge(polys []geom.Poly, overlap float64) []geom.Poly {
	if len(polys) == 0 {
		return nil
	}
	z, ef := meta(polys)
	grown := s.offsetPaths(s.ToPaths(polys), overlap, JoinMiter, 1)
	c := clipper.NewClipper(clipper.IoNone)
	c.AddPaths(grown, clipper.PtSubject, true)
	united, ok := c.Execute1(clipper.CtUnion, clipper.PftEvenOdd, clipper.PftEvenOdd)
	if !ok {
		return nil
	}
	return s.FromPaths(s.offsetPaths(united, -overlap, JoinMiter, 1), z, ef)
}

// Area returns the signed total area of polys.
func Area(polys []geom.Poly) float64 {
	return geom.Area(polys)
}
