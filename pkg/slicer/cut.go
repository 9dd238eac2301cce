package slicer

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/dhconnelly/rtreego"

	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/kernel"
)

// segment is a directed edge between two vertices of a plane.
type segment struct {
	start, end int
}

// vertexRef is the R-tree entry for one registered vertex.
type vertexRef struct {
	idx  int
	rect rtreego.Rect
}

func (v *vertexRef) Bounds() rtreego.Rect { return v.rect }

// plane collects the cut vertices and segments at one Z.
type plane struct {
	z        float64
	eps      float64
	vertices []v2.Vec
	segments []segment
	index    *rtreego.Rtree
}

func newPlane(z, eps float64) *plane {
	return &plane{z: z, eps: eps, index: rtreego.NewTree(2, 25, 50)}
}

// register returns the index of a vertex within eps of p, adding p when
// there is none.
func (pl *plane) register(p v2.Vec) int {
	pt := rtreego.Point{p.X, p.Y}
	for _, s := range pl.index.SearchIntersect(pt.ToRect(pl.eps)) {
		ref := s.(*vertexRef)
		if geom.Dist2(pl.vertices[ref.idx], p) <= pl.eps*pl.eps {
			return ref.idx
		}
	}
	idx := len(pl.vertices)
	pl.vertices = append(pl.vertices, p)
	pl.index.Insert(&vertexRef{idx: idx, rect: pt.ToRect(pl.eps / 4)})
	return idx
}

// cutTriangle intersects one transformed triangle with the plane z. It
// returns the number of crossing edges and the crossing points.
func cutTriangle(t kernel.Triangle, z float64) (n int, a, b v2.Vec) {
	var pts [3]v2.Vec
	for i := 0; i < 3; i++ {
		p, q := t.V[i], t.V[(i+1)%3]
		if (z <= p.Z) == (z <= q.Z) {
			continue
		}
		f := (z - p.Z) / (q.Z - p.Z)
		pts[n] = v2.Vec{X: p.X + (q.X-p.X)*f, Y: p.Y + (q.Y-p.Y)*f}
		n++
	}
	return n, pts[0], pts[1]
}

// cutResult is what one pass over the mesh yields at one Z.
type cutResult struct {
	plane     *plane
	toSupport []geom.Poly
	gradient  float64
	crossing  bool
}

// cut intersects every triangle of tris, moved by m, with the plane z and
// registers the oriented segments. When supportAngle is not negative,
// downward facing triangles contribute the part of them lying within
// [z-thickness, z] as support footprints, so a slope spanning many layers
// is supported strip by strip.
func cut(tris []kernel.Triangle, m sdf.M44, z, thickness, supportAngle, eps float64) cutResult {
	res := cutResult{plane: newPlane(z, eps)}
	supportLimit := math.Sin(supportAngle)
	for _, tri := range tris {
		t := tri.Transformed(m)
		if supportAngle >= 0 && -t.N.Z > supportLimit && t.MinZ() <= z && t.MaxZ() >= z-thickness {
			if p, ok := footprint(t, z-thickness, z); ok {
				res.toSupport = append(res.toSupport, p)
			}
		}
		if t.MinZ() < z && t.MaxZ() > z {
			res.crossing = true
		}
		n, a, b := cutTriangle(t, z)
		if n != 2 {
			continue
		}
		seg := segment{start: res.plane.register(a), end: res.plane.register(b)}
		if seg.start == seg.end {
			// a vertex sits on the plane
			continue
		}
		dir := b.Sub(a)
		if dir.Y*t.N.X-dir.X*t.N.Y < 0 {
			seg.start, seg.end = seg.end, seg.start
		}
		res.plane.segments = append(res.plane.segments, seg)
		if g := math.Abs(t.N.Z); g > res.gradient {
			res.gradient = g
		}
	}
	return res
}

// footprint projects the part of t between lo and hi onto the plane hi as
// a counter-clockwise polygon. It reports false when nothing is left.
func footprint(t kernel.Triangle, lo, hi float64) (geom.Poly, bool) {
	band := clipZ(clipZ(t.V[:], lo, 1), hi, -1)
	if len(band) < 3 {
		return geom.Poly{}, false
	}
	pts := make([]v2.Vec, len(band))
	for i, v := range band {
		pts[i] = xy(v)
	}
	p := geom.NewPoly(hi, pts...)
	if math.Abs(p.Area()) < 1e-12 {
		return geom.Poly{}, false
	}
	if p.Area() < 0 {
		p.Reverse()
	}
	return p, true
}

// clipZ keeps the part of the polygon pts where sign·(z-edge) >= 0.
func clipZ(pts []v3.Vec, edge, sign float64) []v3.Vec {
	var out []v3.Vec
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		dp, dq := sign*(p.Z-edge), sign*(q.Z-edge)
		if dp >= 0 {
			out = append(out, p)
		}
		if (dp < 0 && dq > 0) || (dp > 0 && dq < 0) {
			out = append(out, p.Add(q.Sub(p).MulScalar(dp/(dp-dq))))
		}
	}
	return out
}

func xy(v v3.Vec) v2.Vec { return v2.Vec{X: v.X, Y: v.Y} }

func v3Of(p v2.Vec) v3.Vec { return v3.Vec{X: p.X, Y: p.Y} }

// handedness2 returns the sign of the XY determinant of m; negative when m
// mirrors the plane.
func handedness2(m sdf.M44) float64 {
	o := m.MulPosition(v3.Vec{})
	x := m.MulPosition(v3.Vec{X: 1}).Sub(o)
	y := m.MulPosition(v3.Vec{Y: 1}).Sub(o)
	return x.X*y.Y - x.Y*y.X
}
