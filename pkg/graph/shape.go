package graph

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/kernel"
)

// Dim tags a shape as flat or solid.
type Dim int

const (
	Dim2 Dim = 2
	Dim3 Dim = 3
)

func (d Dim) String() string {
	switch d {
	case Dim2:
		return "2d"
	case Dim3:
		return "3d"
	default:
		return fmt.Sprintf("Dim(%d)", int(d))
	}
}

// Prim enumerates the solid primitives and combinators of a SolidSpec.
type Prim int

const (
	PrimBox Prim = iota
	PrimCylinder
	PrimUnion
	PrimDifference
	PrimIntersection
)

func (p Prim) String() string {
	switch p {
	case PrimBox:
		return "box"
	case PrimCylinder:
		return "cylinder"
	case PrimUnion:
		return "union"
	case PrimDifference:
		return "difference"
	case PrimIntersection:
		return "intersection"
	default:
		return fmt.Sprintf("Prim(%d)", int(p))
	}
}

// SolidSpec is a constructive description of a solid, realized by a
// kernel.Kernel during tessellation. Offset and Rotation (degrees) place
// the solid relative to its parent.
type SolidSpec struct {
	Prim     Prim        `json:"prim"`
	Size     v3.Vec      `json:"size,omitempty"`
	Radius   float64     `json:"radius,omitempty"`
	Height   float64     `json:"height,omitempty"`
	Offset   v3.Vec      `json:"offset,omitempty"`
	Rotation v3.Vec      `json:"rotation,omitempty"`
	Operands []SolidSpec `json:"operands,omitempty"`
}

// Shape is one printable shape. Exactly one payload is used, chosen by
// Dim: a 3D shape has a Mesh or a Solid, a 2D shape has an Outline.
type Shape struct {
	Name    string       `json:"name"`
	Dim     Dim          `json:"dim"`
	Mesh    *kernel.Mesh `json:"-"`
	Solid   *SolidSpec   `json:"solid,omitempty"`
	Outline []geom.Poly  `json:"-"`
}

// NewMeshShape wraps a triangle mesh.
func NewMeshShape(name string, m *kernel.Mesh) *Shape {
	return &Shape{Name: name, Dim: Dim3, Mesh: m}
}

// NewSolidShape wraps a constructive solid.
func NewSolidShape(name string, s SolidSpec) *Shape {
	return &Shape{Name: name, Dim: Dim3, Solid: &s}
}

// NewFlatShape wraps a flat outline.
func NewFlatShape(name string, outline []geom.Poly) *Shape {
	return &Shape{Name: name, Dim: Dim2, Outline: outline}
}

// Check reports whether the payload matches the dimension tag.
func (s *Shape) Check() error {
	switch s.Dim {
	case Dim3:
		if s.Outline != nil {
			return fmt.Errorf("graph: 3d shape %q has an outline", s.Name)
		}
		if s.Mesh == nil && s.Solid == nil {
			return fmt.Errorf("graph: 3d shape %q has no mesh or solid", s.Name)
		}
	case Dim2:
		if s.Mesh != nil || s.Solid != nil {
			return fmt.Errorf("graph: 2d shape %q has solid geometry", s.Name)
		}
		if len(s.Outline) == 0 {
			return fmt.Errorf("graph: 2d shape %q has no outline", s.Name)
		}
	default:
		return fmt.Errorf("graph: shape %q has invalid dimension %d", s.Name, int(s.Dim))
	}
	return nil
}

// Instance is a shape with its composed placement on the plate.
type Instance struct {
	Shape     *Shape
	Transform sdf.M44
	// Object is the name of the object the instance belongs to.
	Object string
}

// Bounds returns the placed bounding box. Solid shapes must have been
// realized into a Mesh first.
func (in Instance) Bounds() (min, max v3.Vec) {
	first := true
	add := func(v v3.Vec) {
		v = in.Transform.MulPosition(v)
		if first {
			min, max, first = v, v, false
			return
		}
		min = v3.Vec{X: math.Min(min.X, v.X), Y: math.Min(min.Y, v.Y), Z: math.Min(min.Z, v.Z)}
		max = v3.Vec{X: math.Max(max.X, v.X), Y: math.Max(max.Y, v.Y), Z: math.Max(max.Z, v.Z)}
	}
	switch in.Shape.Dim {
	case Dim3:
		if in.Shape.Mesh != nil {
			for _, t := range in.Shape.Mesh.Triangles {
				for _, v := range t.V {
					add(v)
				}
			}
		}
	case Dim2:
		for _, p := range in.Shape.Outline {
			for _, q := range p.Points {
				add(v3.Vec{X: q.X, Y: q.Y})
			}
		}
	}
	return min, max
}

// Matrix composes the placement as translate · rotateZ · rotateY ·
// rotateX · scale.
func (td TransformData) Matrix() sdf.M44 {
	m := sdf.Identity3d()
	if td.Translation != nil {
		m = m.Mul(sdf.Translate3d(*td.Translation))
	}
	if r := td.Rotation; r != nil {
		m = m.Mul(sdf.RotateZ(r.Z * math.Pi / 180)).
			Mul(sdf.RotateY(r.Y * math.Pi / 180)).
			Mul(sdf.RotateX(r.X * math.Pi / 180))
	}
	if td.Scale != nil {
		m = m.Mul(sdf.Scale3d(*td.Scale))
	}
	return m
}
