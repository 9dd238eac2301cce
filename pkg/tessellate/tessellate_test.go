package tessellate_test

import (
	"math"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/graph"
	"github.com/chazu/lamina/pkg/kernel"
	"github.com/chazu/lamina/pkg/kernel/sdfx"
	"github.com/chazu/lamina/pkg/tessellate"
)

// newKernel returns a coarse sdfx kernel to keep the tests fast.
func newKernel() kernel.Kernel {
	return &sdfx.Kernel{Cells: 40}
}

func makeBox(name string, x, y, z float64) *graph.Shape {
	return graph.NewSolidShape(name, graph.SolidSpec{Prim: graph.PrimBox, Size: v3.Vec{X: x, Y: y, Z: z}})
}

func TestSingleBox(t *testing.T) {
	g := graph.New()
	g.AddRoot(g.AddShape(makeBox("block", 20, 10, 5)))

	got, err := tessellate.Tessellate(g, nil)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(got))
	}

	in := got[0]
	if in.Shape.Mesh.IsEmpty() {
		t.Fatal("box should be realized into a mesh")
	}
	if in.Shape.Mesh.TriangleCount() != 12 {
		t.Errorf("TriangleCount() = %d, want 12", in.Shape.Mesh.TriangleCount())
	}
	if in.Object != "block" {
		t.Errorf("Object = %q, want %q", in.Object, "block")
	}
	min, max := in.Bounds()
	if min != (v3.Vec{}) || max != (v3.Vec{X: 20, Y: 10, Z: 5}) {
		t.Errorf("Bounds() = %v, %v", min, max)
	}
}

func TestPlacementsShareMesh(t *testing.T) {
	g := graph.New()
	sid := g.AddShape(makeBox("block", 10, 10, 10))
	a := g.Place(sid, "0", graph.TransformData{Translation: &v3.Vec{X: 0}})
	b := g.Place(sid, "1", graph.TransformData{Translation: &v3.Vec{X: 30}})
	g.AddObject("pair", a, b)

	got, err := tessellate.Tessellate(g, nil)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(got))
	}
	if got[0].Shape != got[1].Shape {
		t.Error("instances of one shape should share the realized mesh")
	}
	for _, in := range got {
		if in.Object != "pair" {
			t.Errorf("Object = %q, want %q", in.Object, "pair")
		}
	}
	min, _ := got[1].Bounds()
	if math.Abs(min.X-30) > 1e-9 {
		t.Errorf("second placement min.X = %v, want 30", min.X)
	}
}

func TestNestedTransformsCompose(t *testing.T) {
	g := graph.New()
	sid := g.AddShape(makeBox("block", 2, 2, 2))
	inner := g.Place(sid, "inner", graph.TransformData{Translation: &v3.Vec{X: 10}})
	outer := g.Place(inner, "outer", graph.TransformData{Rotation: &v3.Vec{Z: 90}})
	g.AddObject("turned", outer)

	got, err := tessellate.Tessellate(g, nil)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(got))
	}

	// (10,0,0) turned 90 degrees about Z lands at (0,10,0).
	p := got[0].Transform.MulPosition(v3.Vec{})
	if math.Abs(p.X) > 1e-9 || math.Abs(p.Y-10) > 1e-9 {
		t.Errorf("origin maps to %v, want (0,10,0)", p)
	}
}

func TestFlatShapePassesThrough(t *testing.T) {
	g := graph.New()
	outline := []geom.Poly{geom.Rect(0, v2.Vec{}, v2.Vec{X: 4, Y: 4})}
	g.AddRoot(g.AddShape(graph.NewFlatShape("tag", outline)))

	got, err := tessellate.Tessellate(g, nil)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(got) != 1 || got[0].Shape.Dim != graph.Dim2 {
		t.Fatalf("Tessellate() = %v, want one flat instance", got)
	}
	if got[0].Shape.Mesh != nil {
		t.Error("flat shape should not get a mesh")
	}
}

func TestCylinderUsesKernel(t *testing.T) {
	g := graph.New()
	cyl := graph.NewSolidShape("peg", graph.SolidSpec{Prim: graph.PrimCylinder, Height: 10, Radius: 5})
	g.AddRoot(g.AddShape(cyl))

	if _, err := tessellate.Tessellate(g, nil); err == nil {
		t.Fatal("cylinder without a kernel should fail")
	}

	got, err := tessellate.Tessellate(g, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(got) != 1 || got[0].Shape.Mesh.IsEmpty() {
		t.Fatal("cylinder should be realized into a mesh")
	}
	min, max := got[0].Bounds()
	const tol = 1.0
	if math.Abs(min.Z) > tol || math.Abs(max.Z-10) > tol || math.Abs(max.X-5) > tol {
		t.Errorf("Bounds() = %v, %v, want about (-5,-5,0)-(5,5,10)", min, max)
	}
	if cyl.Mesh != nil {
		t.Error("the graph shape must not be mutated")
	}
}

func TestInvalidSolids(t *testing.T) {
	tests := []struct {
		name string
		spec graph.SolidSpec
	}{
		{"flat box", graph.SolidSpec{Prim: graph.PrimBox, Size: v3.Vec{X: 1, Y: 1}}},
		{"one operand union", graph.SolidSpec{Prim: graph.PrimUnion, Operands: []graph.SolidSpec{
			{Prim: graph.PrimBox, Size: v3.Vec{X: 1, Y: 1, Z: 1}},
		}}},
		{"zero cylinder", graph.SolidSpec{Prim: graph.PrimCylinder}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph.New()
			g.AddRoot(g.AddShape(graph.NewSolidShape("bad", tt.spec)))
			if _, err := tessellate.Tessellate(g, newKernel()); err == nil {
				t.Error("Tessellate() should fail")
			}
		})
	}
}

func TestEmptyGraph(t *testing.T) {
	got, err := tessellate.Tessellate(graph.New(), newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected 0 instances, got %d", len(got))
	}
}
