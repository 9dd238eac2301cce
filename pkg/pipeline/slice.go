package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/graph"
	"github.com/chazu/lamina/pkg/layer"
	"github.com/chazu/lamina/pkg/logging"
	"github.com/chazu/lamina/pkg/progress"
	"github.com/chazu/lamina/pkg/slicer"
)

// ErrNothingToSlice means no instance has geometry.
var ErrNothingToSlice = errors.New("pipeline: nothing to slice")

// Slice cuts instances into layer stacks. Normal runs give one stack, cut
// in parallel. Variable layer thickness cuts one layer after the other,
// each thickness following the gradient of the layer below. A serial build
// gives one stack per object, in order.
func (pl *Pipeline) Slice(ctx context.Context, instances []graph.Instance) ([]*layer.Stack, error) {
	instances = lo.Filter(instances, func(in graph.Instance, _ int) bool { return in.Shape != nil })
	if len(instances) == 0 {
		return nil, ErrNothingToSlice
	}
	if lo.EveryBy(instances, func(in graph.Instance) bool { return in.Shape.Dim == graph.Dim2 }) {
		st, err := pl.sliceFlat(instances)
		if err != nil {
			return nil, err
		}
		return []*layer.Stack{st}, nil
	}

	sc := pl.snap.Slicing
	var groups [][]graph.Instance
	if sc.Serial {
		order := lo.Uniq(lo.Map(instances, func(in graph.Instance, _ int) string { return in.Object }))
		byObject := lo.GroupBy(instances, func(in graph.Instance) string { return in.Object })
		for _, name := range order {
			groups = append(groups, byObject[name])
		}
	} else {
		groups = [][]graph.Instance{instances}
	}

	var stacks []*layer.Stack
	for _, g := range groups {
		var (
			st  *layer.Stack
			err error
		)
		switch {
		case sc.VariableThickness || sc.Serial:
			st, err = pl.sliceSequential(ctx, g)
		default:
			st, err = pl.sliceParallel(ctx, g)
		}
		if err != nil {
			return nil, err
		}
		logging.Logger().Info("sliced", "layers", st.Len(), "shapes", len(g))
		stacks = append(stacks, st)
	}
	return stacks, nil
}

func (pl *Pipeline) slicerOptions() slicer.Options {
	sc := pl.snap.Slicing
	o := slicer.DefaultOptions()
	o.MaxJoinDistance = sc.MaxJoinDistance
	o.StrictJoins = sc.StrictJoins
	if sc.Support {
		o.SupportAngle = sc.SupportAngle * math.Pi / 180
	}
	return o
}

func maxZ(instances []graph.Instance) float64 {
	top := math.Inf(-1)
	for _, in := range instances {
		_, max := in.Bounds()
		top = math.Max(top, max.Z)
	}
	return top
}

// cut slices every instance at z into a new layer. It returns nil when
// nothing was cut or when any shape fails.
func (pl *Pipeline) cut(instances []graph.Instance, no int, z, thickness float64, skins int) *layer.Layer {
	opts := pl.slicerOptions()
	var polys, support []geom.Poly
	var gradient float64
	parts := 0
	for _, in := range instances {
		if in.Shape.Dim != graph.Dim3 {
			continue
		}
		res, err := slicer.Slice(in.Shape, in.Transform, z, thickness, opts)
		if err != nil {
			logging.Logger().Warn("layer failed to slice", "layer", no, "z", z, "shape", in.Shape.Name, "err", err)
			return nil
		}
		if len(res.Polygons) > 0 {
			parts++
		}
		polys = append(polys, res.Polygons...)
		support = append(support, res.ToSupport...)
		gradient = math.Max(gradient, res.Gradient)
	}
	if len(polys) == 0 {
		return nil
	}
	if parts > 1 {
		polys = pl.clip.Union(polys)
	}
	l := layer.New(no, z, thickness, skins)
	l.SetPolygons(polys)
	l.ToSupport = geom.WithZ(support, z)
	l.Gradient = gradient
	return l
}

func (pl *Pipeline) sliceParallel(ctx context.Context, instances []graph.Instance) (*layer.Stack, error) {
	sc := pl.snap.Slicing
	t := sc.LayerThickness
	minZ, top := t*sc.FirstLayerHeight, maxZ(instances)
	n := int(math.Ceil((top - minZ) / t))
	st := layer.NewStack(pl.clip)
	if n <= 0 {
		return st, nil
	}
	if !pl.prog.Restart("Slicing", top) {
		return nil, progress.ErrCanceled
	}
	steps := progress.Steps(n)
	layers := make([]*layer.Layer, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := 0; i < n; i++ {
		z := minZ + float64(i)*t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if i%steps == 0 && !pl.prog.Update(z) {
				return progress.ErrCanceled
			}
			skins := lo.Ternary(i > 0, sc.Skins, 1)
			layers[i] = pl.cut(instances, i, z, t, skins)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, l := range layers {
		if l == nil {
			logging.Logger().Warn("empty layer skipped", "layer", i, "z", minZ+float64(i)*t)
			continue
		}
		if err := st.Append(l); err != nil {
			return nil, err
		}
	}
	st.Renumber()
	pl.prog.Stop("Slicing")
	return st, nil
}

// sliceSequential cuts layers bottom up. With variable thickness a steep
// layer keeps the full thickness and flat surfaces get thinner layers:
// skinned layers drop skins, others shrink towards MinLayerThickness.
func (pl *Pipeline) sliceSequential(ctx context.Context, instances []graph.Instance) (*layer.Stack, error) {
	sc := pl.snap.Slicing
	maxSkins := max(1, sc.Skins)
	t := sc.LayerThickness
	skinThickness := t / float64(maxSkins)
	top := maxZ(instances)
	st := layer.NewStack(pl.clip)
	if !pl.prog.Restart("Slicing", top) {
		return nil, progress.ErrCanceled
	}

	thickness, skins := t, 1
	for z, i := t*sc.FirstLayerHeight, 0; z < top; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !pl.prog.Update(z) {
			return nil, progress.ErrCanceled
		}
		l := pl.cut(instances, st.Len(), z, thickness, skins)
		gradient := 0.0
		if l != nil {
			if err := st.Append(l); err != nil {
				return nil, fmt.Errorf("pipeline: %w", err)
			}
			gradient = l.Gradient
		} else {
			logging.Logger().Warn("empty layer skipped", "layer", i, "z", z)
		}
		skins = maxSkins
		if sc.VariableThickness {
			switch {
			case maxSkins > 1:
				skins = max(1, maxSkins-int(float64(maxSkins)*gradient))
				thickness = skinThickness * float64(skins)
			case sc.MinLayerThickness > 0:
				thickness = t - (t-sc.MinLayerThickness)*gradient
			}
			thickness = math.Max(thickness, math.Min(t, sc.MinLayerThickness))
		}
		z += thickness
	}
	st.Renumber()
	pl.prog.Stop("Slicing")
	return st, nil
}

// sliceFlat puts the outlines of flat shapes into one layer at z=0.
func (pl *Pipeline) sliceFlat(instances []graph.Instance) (*layer.Stack, error) {
	t := pl.snap.Slicing.LayerThickness
	l := layer.New(0, 0, t, 1)
	var polys []geom.Poly
	for _, in := range instances {
		res, err := slicer.Slice(in.Shape, in.Transform, 0, t, pl.slicerOptions())
		if err != nil {
			return nil, err
		}
		polys = append(polys, res.Polygons...)
	}
	if len(instances) > 1 {
		polys = pl.clip.Union(polys)
	}
	l.SetPolygons(polys)
	st := layer.NewStack(pl.clip)
	if err := st.Append(l); err != nil {
		return nil, err
	}
	return st, nil
}
