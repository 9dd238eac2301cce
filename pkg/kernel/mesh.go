package kernel

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Triangle is one facet of a mesh. Vertices wind counter-clockwise when
// seen from the side N points to.
type Triangle struct {
	V [3]v3.Vec
	N v3.Vec
}

// NewTriangle returns a triangle with its normal computed from the winding.
func NewTriangle(a, b, c v3.Vec) Triangle {
	t := Triangle{V: [3]v3.Vec{a, b, c}}
	t.N = t.faceNormal()
	return t
}

func (t Triangle) faceNormal() v3.Vec {
	n := t.V[1].Sub(t.V[0]).Cross(t.V[2].Sub(t.V[0]))
	l := n.Length()
	if l == 0 {
		return v3.Vec{}
	}
	return n.MulScalar(1 / l)
}

// Transformed returns t moved by m. Mirroring transforms swap two vertices
// so the winding still agrees with the outward normal.
func (t Triangle) Transformed(m sdf.M44) Triangle {
	var out Triangle
	for i, v := range t.V {
		out.V[i] = m.MulPosition(v)
	}
	if handedness(m) < 0 {
		out.V[1], out.V[2] = out.V[2], out.V[1]
	}
	out.N = out.faceNormal()
	return out
}

// MinZ returns the lowest vertex height.
func (t Triangle) MinZ() float64 {
	return math.Min(t.V[0].Z, math.Min(t.V[1].Z, t.V[2].Z))
}

// MaxZ returns the highest vertex height.
func (t Triangle) MaxZ() float64 {
	return math.Max(t.V[0].Z, math.Max(t.V[1].Z, t.V[2].Z))
}

// handedness returns the sign of the determinant of the linear part of m.
func handedness(m sdf.M44) float64 {
	o := m.MulPosition(v3.Vec{})
	x := m.MulPosition(v3.Vec{X: 1}).Sub(o)
	y := m.MulPosition(v3.Vec{Y: 1}).Sub(o)
	z := m.MulPosition(v3.Vec{Z: 1}).Sub(o)
	return x.Cross(y).Dot(z)
}

// Mesh is a triangle soup with a name for diagnostics.
type Mesh struct {
	Name      string
	Triangles []Triangle
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Triangles)
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return m == nil || len(m.Triangles) == 0
}

// BoundingBox returns the bounds of all vertices. An empty mesh returns two
// zero vectors.
func (m *Mesh) BoundingBox() (min, max v3.Vec) {
	if m.IsEmpty() {
		return
	}
	min, max = m.Triangles[0].V[0], m.Triangles[0].V[0]
	for _, t := range m.Triangles {
		for _, v := range t.V {
			min = v3.Vec{X: math.Min(min.X, v.X), Y: math.Min(min.Y, v.Y), Z: math.Min(min.Z, v.Z)}
			max = v3.Vec{X: math.Max(max.X, v.X), Y: math.Max(max.Y, v.Y), Z: math.Max(max.Z, v.Z)}
		}
	}
	return min, max
}

// Transformed returns a copy of the mesh with every triangle moved by t.
func (m *Mesh) Transformed(t sdf.M44) *Mesh {
	out := &Mesh{Name: m.Name, Triangles: make([]Triangle, len(m.Triangles))}
	for i, tri := range m.Triangles {
		out.Triangles[i] = tri.Transformed(t)
	}
	return out
}

// Cube returns an exact 12-triangle box spanning min to max with outward
// facing triangles.
func Cube(min, max v3.Vec) *Mesh {
	p := func(x, y, z int) v3.Vec {
		v := min
		if x == 1 {
			v.X = max.X
		}
		if y == 1 {
			v.Y = max.Y
		}
		if z == 1 {
			v.Z = max.Z
		}
		return v
	}
	quad := func(a, b, c, d v3.Vec) []Triangle {
		return []Triangle{NewTriangle(a, b, c), NewTriangle(a, c, d)}
	}
	var tris []Triangle
	tris = append(tris, quad(p(0, 0, 0), p(0, 1, 0), p(1, 1, 0), p(1, 0, 0))...) // bottom
	tris = append(tris, quad(p(0, 0, 1), p(1, 0, 1), p(1, 1, 1), p(0, 1, 1))...) // top
	tris = append(tris, quad(p(0, 0, 0), p(1, 0, 0), p(1, 0, 1), p(0, 0, 1))...) // front
	tris = append(tris, quad(p(1, 1, 0), p(0, 1, 0), p(0, 1, 1), p(1, 1, 1))...) // back
	tris = append(tris, quad(p(0, 1, 0), p(0, 0, 0), p(0, 0, 1), p(0, 1, 1))...) // left
	tris = append(tris, quad(p(1, 0, 0), p(1, 1, 0), p(1, 1, 1), p(1, 0, 1))...) // right
	return &Mesh{Name: "cube", Triangles: tris}
}
