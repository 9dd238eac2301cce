package sdfx

import (
	"math"
	"testing"
)

// coarse keeps marching cubes cheap in tests.
func coarse() *Kernel {
	return &Kernel{Cells: 40}
}

func TestBox(t *testing.T) {
	k := coarse()
	mesh, err := k.ToMesh(k.Box(100, 50, 25))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	min, max := mesh.BoundingBox()
	const tol = 3.0
	if math.Abs(min.X) > tol || math.Abs(min.Z) > tol {
		t.Errorf("box min = %v, want near origin", min)
	}
	if math.Abs(max.X-100) > tol || math.Abs(max.Y-50) > tol || math.Abs(max.Z-25) > tol {
		t.Errorf("box max = %v, want near (100, 50, 25)", max)
	}
}

func TestCylinderStandsOnPlate(t *testing.T) {
	k := coarse()
	min, max := k.Cylinder(50, 10).BoundingBox()
	const tol = 0.01
	if math.Abs(min.Z) > tol || math.Abs(max.Z-50) > tol {
		t.Errorf("cylinder z range = [%f, %f], want [0, 50]", min.Z, max.Z)
	}
	if math.Abs(max.X-10) > tol {
		t.Errorf("cylinder max.X = %f, want 10", max.X)
	}
}

func TestDifference(t *testing.T) {
	k := coarse()
	box := k.Box(100, 100, 100)
	boxMesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh(box) failed: %v", err)
	}
	diff := k.Difference(box, k.Translate(k.Cylinder(120, 20), 50, 50, -10))
	diffMesh, err := k.ToMesh(diff)
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	if diffMesh.TriangleCount() <= boxMesh.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.TriangleCount(), boxMesh.TriangleCount())
	}
}

func TestUnionAndIntersection(t *testing.T) {
	k := coarse()
	a := k.Box(50, 50, 50)
	b := k.Translate(k.Box(50, 50, 50), 30, 0, 0)

	umin, umax := k.Union(a, b).BoundingBox()
	if math.Abs(umax.X-umin.X-80) > 0.5 {
		t.Errorf("union X extent = %f, want 80", umax.X-umin.X)
	}
	mesh, err := k.ToMesh(k.Intersection(a, b))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("intersection mesh is empty")
	}
}

func TestTranslate(t *testing.T) {
	k := coarse()
	min, max := k.Translate(k.Box(10, 10, 10), 100, 200, 300).BoundingBox()
	const tol = 0.5
	if math.Abs(min.X-100) > tol || math.Abs(min.Y-200) > tol || math.Abs(min.Z-300) > tol {
		t.Errorf("min = %v, want ~(100, 200, 300)", min)
	}
	if math.Abs(max.X-110) > tol || math.Abs(max.Y-210) > tol || math.Abs(max.Z-310) > tol {
		t.Errorf("max = %v, want ~(110, 210, 310)", max)
	}
}

func TestRotate(t *testing.T) {
	k := coarse()
	// A long box along X rotated 90 degrees around Z extends along Y.
	min, max := k.Rotate(k.Box(100, 10, 10), 0, 0, 90).BoundingBox()
	const tol = 1.0
	if got := max.X - min.X; math.Abs(got-10) > tol {
		t.Errorf("rotated X extent = %f, want ~10", got)
	}
	if got := max.Y - min.Y; math.Abs(got-100) > tol {
		t.Errorf("rotated Y extent = %f, want ~100", got)
	}
}
