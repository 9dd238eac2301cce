package graph

import (
	"strings"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/lamina/pkg/kernel"
)

// buildValidPlate creates a plate with one cube placed twice under an
// object root.
func buildValidPlate() *PlateGraph {
	g := New()
	sid := g.AddShape(NewMeshShape("cube", kernel.Cube(v3.Vec{}, v3.Vec{X: 10, Y: 10, Z: 10})))
	a := g.Place(sid, "0", TransformData{Translation: &v3.Vec{X: 0}})
	b := g.Place(sid, "1", TransformData{Translation: &v3.Vec{X: 20}})
	g.AddObject("pair", a, b)
	return g
}

func hasError(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityError && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func hasWarning(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityWarning && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidateValidPlate(t *testing.T) {
	errs := Validate(buildValidPlate())
	if len(errs) != 0 {
		t.Errorf("Validate() = %v, want no findings", errs)
	}
	if HasErrors(errs) {
		t.Error("HasErrors() = true on a valid plate")
	}
}

func TestValidateEmptyGraph(t *testing.T) {
	if errs := Validate(New()); len(errs) != 0 {
		t.Errorf("Validate(empty) = %v, want none", errs)
	}
}

func TestValidateCycle(t *testing.T) {
	g := New()
	a, b := NewNodeID("a"), NewNodeID("b")
	g.AddNode(&Node{ID: a, Kind: NodeTransform, Children: []NodeID{b}, Data: TransformData{}})
	g.AddNode(&Node{ID: b, Kind: NodeTransform, Children: []NodeID{a}, Data: TransformData{}})
	g.AddRoot(a)

	errs := Validate(g)
	if !hasError(errs, "cycle detected") {
		t.Errorf("Validate() = %v, want a cycle error", errs)
	}
}

func TestValidateDanglingReferences(t *testing.T) {
	g := buildValidPlate()
	g.AddObject("broken", NewNodeID("ghost"))
	g.AddRoot(NewNodeID("missing-root"))

	errs := Validate(g)
	if !hasError(errs, "child reference") {
		t.Error("want a dangling child error")
	}
	if !hasError(errs, "root reference") {
		t.Error("want a dangling root error")
	}
}

func TestValidateDuplicateNames(t *testing.T) {
	g := buildValidPlate()
	other := NewNodeID("other")
	g.AddNode(&Node{ID: other, Kind: NodeShape, Name: "cube",
		Data: ShapeData{Shape: NewMeshShape("cube", kernel.Cube(v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1}))}})
	g.AddRoot(other)

	if !hasError(Validate(g), "duplicate name") {
		t.Error("want a duplicate name error")
	}
}

func TestValidateOrphanWarning(t *testing.T) {
	g := buildValidPlate()
	g.AddShape(NewMeshShape("loose", kernel.Cube(v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1})))

	errs := Validate(g)
	if !hasWarning(errs, "orphan") {
		t.Error("want an orphan warning")
	}
	if HasErrors(errs) {
		t.Errorf("orphans should not block, got %v", errs)
	}
}

func TestValidateKinds(t *testing.T) {
	zero := v3.Vec{X: 1, Y: 0, Z: 1}
	tests := []struct {
		name  string
		build func(g *PlateGraph)
		want  string
	}{
		{
			"transform without child",
			func(g *PlateGraph) {
				id := NewNodeID("t")
				g.AddNode(&Node{ID: id, Kind: NodeTransform, Data: TransformData{}})
				g.AddRoot(id)
			},
			"want 1",
		},
		{
			"empty object",
			func(g *PlateGraph) { g.AddObject("nothing") },
			"has no children",
		},
		{
			"shape without payload",
			func(g *PlateGraph) {
				id := NewNodeID("s")
				g.AddNode(&Node{ID: id, Kind: NodeShape, Data: ObjectData{}})
				g.AddRoot(id)
			},
			"no shape payload",
		},
		{
			"flat shape without outline",
			func(g *PlateGraph) {
				id := g.AddShape(&Shape{Name: "flat", Dim: Dim2})
				g.AddRoot(id)
			},
			"has no outline",
		},
		{
			"collapsing scale",
			func(g *PlateGraph) {
				sid := g.AddShape(NewMeshShape("c", kernel.Cube(v3.Vec{}, v3.Vec{X: 1, Y: 1, Z: 1})))
				g.AddObject("o", g.Place(sid, "0", TransformData{Scale: &zero}))
			},
			"collapses",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			tt.build(g)
			errs := Validate(g)
			if !hasError(errs, tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", errs, tt.want)
			}
		})
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Message: "boom", Severity: SeverityWarning}
	if got := e.Error(); got != "[warning] boom" {
		t.Errorf("Error() = %q", got)
	}
	id := NewNodeID("x")
	e = ValidationError{NodeID: id, Message: "bad", Severity: SeverityError}
	if got := e.Error(); !strings.Contains(got, id.Short()) {
		t.Errorf("Error() = %q, want node id", got)
	}
}
