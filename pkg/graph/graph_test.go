package graph

import (
	"math"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/kernel"
)

func TestNewPlateGraph(t *testing.T) {
	g := New()
	if g.Nodes == nil {
		t.Fatal("Nodes map should be initialized")
	}
	if g.NameIndex == nil {
		t.Fatal("NameIndex map should be initialized")
	}
	if g.NodeCount() != 0 {
		t.Errorf("empty graph should have 0 nodes, got %d", g.NodeCount())
	}
}

func TestAddShapeAndLookup(t *testing.T) {
	g := New()
	id := g.AddShape(NewMeshShape("cube", kernel.Cube(v3.Vec{}, v3.Vec{X: 10, Y: 10, Z: 10})))

	if g.NodeCount() != 1 {
		t.Errorf("node count = %d, want 1", g.NodeCount())
	}
	found := g.Lookup("cube")
	if found == nil {
		t.Fatal("Lookup(cube) returned nil")
	}
	if found.ID != id {
		t.Errorf("Lookup(cube).ID = %s, want %s", found.ID.Short(), id.Short())
	}
	if g.MustLookup("cube") != found {
		t.Error("MustLookup returned a different node")
	}
	if g.Lookup("missing") != nil {
		t.Error("Lookup(missing) should be nil")
	}
	if len(g.Shapes()) != 1 {
		t.Errorf("Shapes() len = %d, want 1", len(g.Shapes()))
	}
}

func TestMustLookupPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustLookup on missing name should panic")
		}
	}()
	New().MustLookup("nope")
}

func TestNodeIDDeterministic(t *testing.T) {
	a := NewNodeID("shape", "cube")
	b := NewNodeID("shape", "cube")
	c := NewNodeID("shape", "cub", "e")
	if a != b {
		t.Error("equal inputs should give equal IDs")
	}
	if a == c {
		t.Error("part boundaries should affect the ID")
	}
	if len(a.Short()) != 8 {
		t.Errorf("Short() len = %d, want 8", len(a.Short()))
	}
	if !ZeroID.IsZero() || a.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestChildrenSkipsDangling(t *testing.T) {
	g := New()
	sid := g.AddShape(NewMeshShape("cube", kernel.Cube(v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1})))
	obj := g.AddObject("part", sid, NewNodeID("ghost"))

	children := g.Children(g.Get(obj))
	if len(children) != 1 {
		t.Fatalf("Children() len = %d, want 1", len(children))
	}
	if children[0].ID != sid {
		t.Error("Children() returned the wrong node")
	}
	if len(g.Roots) != 1 || g.Roots[0] != obj {
		t.Errorf("Roots = %v, want [%s]", g.Roots, obj.Short())
	}
}

func TestPlaceKeysDistinguishPlacements(t *testing.T) {
	g := New()
	sid := g.AddShape(NewMeshShape("cube", kernel.Cube(v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1})))
	a := g.Place(sid, "0", TransformData{})
	b := g.Place(sid, "1", TransformData{})
	if a == b {
		t.Error("placements with different keys should have different IDs")
	}
}

func TestTransformMatrix(t *testing.T) {
	tests := []struct {
		name string
		td   TransformData
		in   v3.Vec
		want v3.Vec
	}{
		{"identity", TransformData{}, v3.Vec{X: 1, Y: 2, Z: 3}, v3.Vec{X: 1, Y: 2, Z: 3}},
		{"translate", TransformData{Translation: &v3.Vec{X: 10}}, v3.Vec{X: 1}, v3.Vec{X: 11}},
		{"rotate z 90", TransformData{Rotation: &v3.Vec{Z: 90}}, v3.Vec{X: 1}, v3.Vec{Y: 1}},
		{
			"scale then translate",
			TransformData{Scale: &v3.Vec{X: 2, Y: 2, Z: 2}, Translation: &v3.Vec{Z: 5}},
			v3.Vec{X: 1, Y: 1, Z: 1},
			v3.Vec{X: 2, Y: 2, Z: 7},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.td.Matrix().MulPosition(tt.in)
			if got.Sub(tt.want).Length() > 1e-9 {
				t.Errorf("Matrix().MulPosition(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestShapeCheck(t *testing.T) {
	cube := kernel.Cube(v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1})
	outline := []geom.Poly{geom.Rect(0, v2.Vec{}, v2.Vec{X: 1, Y: 1})}
	tests := []struct {
		name    string
		shape   *Shape
		wantErr bool
	}{
		{"mesh", NewMeshShape("a", cube), false},
		{"solid", NewSolidShape("b", SolidSpec{Prim: PrimBox, Size: v3.Vec{X: 1, Y: 1, Z: 1}}), false},
		{"flat", NewFlatShape("c", outline), false},
		{"3d without payload", &Shape{Name: "d", Dim: Dim3}, true},
		{"3d with outline", &Shape{Name: "e", Dim: Dim3, Mesh: cube, Outline: outline}, true},
		{"2d with mesh", &Shape{Name: "f", Dim: Dim2, Mesh: cube, Outline: outline}, true},
		{"2d empty", &Shape{Name: "g", Dim: Dim2}, true},
		{"bad dim", &Shape{Name: "h", Dim: 4}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.shape.Check()
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInstanceBounds(t *testing.T) {
	cube := kernel.Cube(v3.Vec{}, v3.Vec{X: 10, Y: 10, Z: 10})
	td := TransformData{Translation: &v3.Vec{X: 5, Y: -5}}
	in := Instance{Shape: NewMeshShape("cube", cube), Transform: td.Matrix()}

	min, max := in.Bounds()
	if math.Abs(min.X-5) > 1e-9 || math.Abs(min.Y+5) > 1e-9 || math.Abs(max.X-15) > 1e-9 || math.Abs(max.Z-10) > 1e-9 {
		t.Errorf("Bounds() = %v, %v", min, max)
	}

	flat := Instance{
		Shape:     NewFlatShape("plate", []geom.Poly{geom.Rect(0, v2.Vec{}, v2.Vec{X: 4, Y: 2})}),
		Transform: TransformData{}.Matrix(),
	}
	min, max = flat.Bounds()
	if max.X != 4 || max.Y != 2 || min.Z != 0 || max.Z != 0 {
		t.Errorf("flat Bounds() = %v, %v", min, max)
	}
}
