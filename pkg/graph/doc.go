// Package graph defines the plate graph: an immutable DAG of objects,
// transforms and shapes that describes what is placed on the build plate.
// Walking the graph (package tessellate) yields the placed Instances the
// slicer consumes.
package graph
