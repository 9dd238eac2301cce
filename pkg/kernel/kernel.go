// Package kernel defines the solid-modelling interface used to realize plate
// primitives and the triangle mesh every backend produces for the slicer.
// Backends (sdfx) stay behind the Kernel interface so the slicer only ever
// sees triangles.
package kernel

import v3 "github.com/deadsy/sdfx/vec/v3"

// Solid is an opaque handle to a backend solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max v3.Vec)
}

// Kernel builds solids and tessellates them.
type Kernel interface {
	// Primitives. Boxes have their minimum corner at the origin; cylinders
	// stand on the XY plane centered on the Z axis.
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64) Solid

	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	ToMesh(s Solid) (*Mesh, error)
}
