// Package sdfx implements kernel.Kernel with the github.com/deadsy/sdfx
// signed-distance-field library. Solids are tessellated with marching cubes.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/lamina/pkg/kernel"
)

var _ kernel.Kernel = (*Kernel)(nil)

// DefaultMeshCells is the marching cubes resolution along the longest axis.
const DefaultMeshCells = 200

type solid struct {
	s sdf.SDF3
}

func (s *solid) BoundingBox() (min, max v3.Vec) {
	bb := s.s.BoundingBox()
	return bb.Min, bb.Max
}

// Kernel realizes primitives as SDFs.
type Kernel struct {
	// Cells is the marching cubes resolution; zero means DefaultMeshCells.
	Cells int
}

// New returns a Kernel with the default resolution.
func New() *Kernel {
	return &Kernel{Cells: DefaultMeshCells}
}

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*solid).s
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &solid{s: s}
}

// Box creates a box with its minimum corner at the origin. sdf.Box3D is
// centered, so it is shifted by half its size.
func (k *Kernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	return wrap(sdf.Transform3D(s, sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})))
}

// Cylinder creates a cylinder standing on the XY plane.
func (k *Kernel) Cylinder(height, radius float64) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return wrap(sdf.Transform3D(s, sdf.Translate3d(v3.Vec{Z: height / 2})))
}

func (k *Kernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

func (k *Kernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

func (k *Kernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return wrap(sdf.Transform3D(unwrap(s), sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})))
}

// Rotate applies X, then Y, then Z rotations given in degrees.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.RotateZ(z * math.Pi / 180).Mul(sdf.RotateY(y * math.Pi / 180)).Mul(sdf.RotateX(x * math.Pi / 180))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh tessellates s. Triangles keep the marching cubes winding, which
// is counter-clockwise seen from outside.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	cells := k.Cells
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	tris := render.ToTriangles(unwrap(s), render.NewMarchingCubesUniform(cells))
	if len(tris) == 0 {
		return nil, fmt.Errorf("sdfx: solid produced no triangles")
	}
	mesh := &kernel.Mesh{Triangles: make([]kernel.Triangle, 0, len(tris))}
	for _, tri := range tris {
		kt := kernel.NewTriangle(tri[0], tri[1], tri[2])
		if kt.N == (v3.Vec{}) {
			continue
		}
		mesh.Triangles = append(mesh.Triangles, kt)
	}
	return mesh, nil
}
