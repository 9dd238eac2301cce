// Package tessellate walks a plate graph and produces the placed shape
// instances the slicer consumes. Constructive solids are realized into
// triangle meshes with a geometry kernel, once per shape.
package tessellate

import (
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/lamina/pkg/graph"
	"github.com/chazu/lamina/pkg/kernel"
)

// transformStack accumulates placements during graph traversal. Each entry
// is the full composed matrix at that depth.
type transformStack struct {
	mats []sdf.M44
}

func newTransformStack() *transformStack {
	return &transformStack{}
}

func (ts *transformStack) current() sdf.M44 {
	if len(ts.mats) == 0 {
		return sdf.Identity3d()
	}
	return ts.mats[len(ts.mats)-1]
}

func (ts *transformStack) push(m sdf.M44) {
	ts.mats = append(ts.mats, ts.current().Mul(m))
}

func (ts *transformStack) pop() {
	if len(ts.mats) > 0 {
		ts.mats = ts.mats[:len(ts.mats)-1]
	}
}

// walker holds per-call state: the kernel and the meshes realized so far.
type walker struct {
	g        *graph.PlateGraph
	k        kernel.Kernel
	ts       *transformStack
	realized map[*graph.Shape]*graph.Shape
}

// Tessellate walks the plate graph from its roots and returns one Instance
// per placed shape, in traversal order. k is only needed when the graph
// holds solids that are not plain boxes. The graph is never mutated.
func Tessellate(g *graph.PlateGraph, k kernel.Kernel) ([]graph.Instance, error) {
	if g == nil {
		return nil, nil
	}
	w := &walker{
		g:        g,
		k:        k,
		ts:       newTransformStack(),
		realized: make(map[*graph.Shape]*graph.Shape),
	}
	var out []graph.Instance
	for _, rootID := range g.Roots {
		root := g.Get(rootID)
		if root == nil {
			continue
		}
		collected, err := w.walkNode(root, root.Name)
		if err != nil {
			return nil, fmt.Errorf("tessellate: error walking root %s: %w", rootID.Short(), err)
		}
		out = append(out, collected...)
	}
	return out, nil
}

func (w *walker) walkNode(n *graph.Node, object string) ([]graph.Instance, error) {
	switch n.Kind {
	case graph.NodeShape:
		return w.handleShape(n, object)
	case graph.NodeTransform:
		return w.handleTransform(n, object)
	case graph.NodeObject:
		return w.handleChildren(n, n.Name)
	default:
		return nil, fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

func (w *walker) handleShape(n *graph.Node, object string) ([]graph.Instance, error) {
	d, ok := n.Data.(graph.ShapeData)
	if !ok || d.Shape == nil {
		return nil, fmt.Errorf("shape node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	shape, err := w.realize(d.Shape)
	if err != nil {
		return nil, fmt.Errorf("shape %q: %w", d.Shape.Name, err)
	}
	return []graph.Instance{{Shape: shape, Transform: w.ts.current(), Object: object}}, nil
}

// handleTransform pushes the placement, recurses into children, then pops.
func (w *walker) handleTransform(n *graph.Node, object string) ([]graph.Instance, error) {
	td, ok := n.Data.(graph.TransformData)
	if !ok {
		return nil, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	w.ts.push(td.Matrix())
	defer w.ts.pop()
	return w.handleChildren(n, object)
}

func (w *walker) handleChildren(n *graph.Node, object string) ([]graph.Instance, error) {
	var out []graph.Instance
	for _, child := range w.g.Children(n) {
		collected, err := w.walkNode(child, object)
		if err != nil {
			return nil, err
		}
		out = append(out, collected...)
	}
	return out, nil
}

// realize returns s with a Mesh when s is a constructive solid. Results are
// memoized per shape so instances of one shape share a mesh.
func (w *walker) realize(s *graph.Shape) (*graph.Shape, error) {
	if s.Dim != graph.Dim3 || s.Mesh != nil || s.Solid == nil {
		return s, nil
	}
	if r, ok := w.realized[s]; ok {
		return r, nil
	}
	mesh, err := w.mesh(*s.Solid)
	if err != nil {
		return nil, err
	}
	mesh.Name = s.Name
	r := &graph.Shape{Name: s.Name, Dim: graph.Dim3, Mesh: mesh, Solid: s.Solid}
	w.realized[s] = r
	return r, nil
}

func (w *walker) mesh(spec graph.SolidSpec) (*kernel.Mesh, error) {
	if spec.Prim == graph.PrimBox && spec.Rotation == (v3.Vec{}) {
		if spec.Size.X <= 0 || spec.Size.Y <= 0 || spec.Size.Z <= 0 {
			return nil, fmt.Errorf("box size %v must be positive", spec.Size)
		}
		return kernel.Cube(spec.Offset, spec.Offset.Add(spec.Size)), nil
	}
	if w.k == nil {
		return nil, fmt.Errorf("%s solid needs a geometry kernel", spec.Prim)
	}
	solid, err := w.solid(spec)
	if err != nil {
		return nil, err
	}
	mesh, err := w.k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("ToMesh failed: %w", err)
	}
	return mesh, nil
}

func (w *walker) solid(spec graph.SolidSpec) (kernel.Solid, error) {
	var s kernel.Solid
	switch spec.Prim {
	case graph.PrimBox:
		s = w.k.Box(spec.Size.X, spec.Size.Y, spec.Size.Z)
	case graph.PrimCylinder:
		if spec.Height <= 0 || spec.Radius <= 0 {
			return nil, fmt.Errorf("cylinder height %g and radius %g must be positive", spec.Height, spec.Radius)
		}
		s = w.k.Cylinder(spec.Height, spec.Radius)
	case graph.PrimUnion, graph.PrimDifference, graph.PrimIntersection:
		if len(spec.Operands) < 2 {
			return nil, fmt.Errorf("%s needs at least 2 operands, got %d", spec.Prim, len(spec.Operands))
		}
		var err error
		if s, err = w.solid(spec.Operands[0]); err != nil {
			return nil, err
		}
		for _, op := range spec.Operands[1:] {
			o, err := w.solid(op)
			if err != nil {
				return nil, err
			}
			switch spec.Prim {
			case graph.PrimUnion:
				s = w.k.Union(s, o)
			case graph.PrimDifference:
				s = w.k.Difference(s, o)
			default:
				s = w.k.Intersection(s, o)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported solid primitive %v", spec.Prim)
	}

	if r := spec.Rotation; r != (v3.Vec{}) {
		s = w.k.Rotate(s, r.X, r.Y, r.Z)
	}
	if o := spec.Offset; o != (v3.Vec{}) {
		s = w.k.Translate(s, o.X, o.Y, o.Z)
	}
	return s, nil
}
