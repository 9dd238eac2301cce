package main

import (
	"fmt"
	"io"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/chazu/lamina/pkg/graph"
)

func newInfoCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Describe the shapes of an input and its layer count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := newApp(root).load(args[0])
			if err != nil {
				return err
			}
			j.describe(cmd.OutOrStdout())
			return nil
		},
	}
}

func (j *job) describe(w io.Writer) {
	min := v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max := min.Neg()
	for _, in := range j.instances {
		bmin, bmax := in.Bounds()
		min, max = min.Min(bmin), max.Max(bmax)
		tris := 0
		if in.Shape.Mesh != nil {
			tris = in.Shape.Mesh.TriangleCount()
		}
		fmt.Fprintf(w, "%s/%s: %s, %d triangles\n", in.Object, in.Shape.Name, in.Shape.Dim, tris)
	}
	objects := lo.Uniq(lo.Map(j.instances, func(in graph.Instance, _ int) string { return in.Object }))
	fmt.Fprintf(w, "Objects: %d\n", len(objects))
	fmt.Fprintf(w, "Bounding box: (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n", min.X, min.Y, min.Z, max.X, max.Y, max.Z)

	sc := j.snap.Slicing
	first := sc.LayerThickness * sc.FirstLayerHeight
	layers := 1
	if max.Z > first {
		layers = int(math.Ceil((max.Z - first) / sc.LayerThickness))
	}
	fmt.Fprintf(w, "Layers: %d at %.3f mm\n", layers, sc.LayerThickness)
}
