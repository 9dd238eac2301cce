package pipeline

import (
	"context"
	"math"

	"github.com/chazu/lamina/pkg/clip"
	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/infill"
	"github.com/chazu/lamina/pkg/layer"
	"github.com/chazu/lamina/pkg/settings"
)

func deg(a float64) float64 { return a * math.Pi / 180 }

// Process derives every region of st: shells, top and bottom surfaces with
// bridges, support, skins, solid surface thickness, skirt and infill.
func (pl *Pipeline) Process(ctx context.Context, st *layer.Stack) error {
	sc, w := pl.snap.Slicing, pl.snap.Extruder.Width
	s := st.Clip
	shells := layer.ShellOptions{
		Count:         sc.ShellCount,
		Width:         w,
		InfillOverlap: sc.InfillOverlap,
		FillThinWalls: sc.FillThinWalls,
	}
	steps := []func() error{
		func() error {
			return st.ForEach(pl.prog, "Shells", func(l *layer.Layer) { l.MakeShells(s, shells) })
		},
		func() error {
			if sc.NoTopAndBottom {
				return nil
			}
			return st.MakeUncovered(pl.prog, sc.MakeDecor, !sc.NoBridges)
		},
		func() error {
			if !sc.Support {
				return nil
			}
			return st.MakeSupport(pl.prog, sc.SupportWiden, w)
		},
		func() error {
			if sc.Skins > 1 {
				st.MakeSkinFullFill()
			}
			return nil
		},
		func() error {
			if sc.NoTopAndBottom {
				return nil
			}
			return st.MultiplyUncovered(pl.prog, sc.SolidLayers(), sc.DecorLayers)
		},
		func() error {
			if sc.Skirt {
				st.MakeSkirt(sc.SkirtDistance, sc.SkirtHeight, sc.SingleSkirt)
			}
			return nil
		},
		func() error {
			o := infillOptions(pl.snap)
			return st.ForEach(pl.prog, "Infill", func(l *layer.Layer) { l.CalcInfill(s, pl.cache, o) })
		},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func infillOptions(snap *settings.Snapshot) layer.InfillOptions {
	in, sc, w := snap.Infill, snap.Slicing, snap.Extruder.Width
	o := layer.InfillOptions{
		Type:            in.Type,
		Distance:        settings.Distance(w, in.Percent),
		FullDistance:    w,
		Rotation:        deg(in.Rotation),
		RotatePerLayer:  deg(in.RotationPrLayer),
		ShellOnly:       sc.ShellOnly,
		BridgeExtrusion: in.BridgeExtrusion,
		DecorType:       in.DecorType,
		SupportDistance: settings.Distance(w, in.SupportPercent),
	}
	if sc.MakeDecor {
		o.DecorDistance = settings.Distance(w, in.DecorPercent)
	}
	if sc.FillThinWalls {
		o.Width = w
	}
	return o
}

// Raft puts base and interface layers under st, filled with parallel lines
// over the first layer's hull grown by the raft size, and lifts the model
// onto them.
func (pl *Pipeline) Raft(st *layer.Stack) error {
	if st.Len() == 0 {
		return nil
	}
	r, t := pl.snap.Raft, pl.snap.Slicing.LayerThickness
	s := st.Clip
	hull := st.Layers[0].Hull(false)
	if hull.Empty() {
		return nil
	}
	area := s.Offset([]geom.Poly{hull}, r.Size, clip.JoinRound, 2)
	for i := range area {
		area[i].Cleanup(t / 4)
	}

	baseT, ifT := t*r.Base.Thickness, t*r.Interface.Thickness
	total := float64(r.Base.LayerCount)*baseT + float64(r.Interface.LayerCount)*ifT
	st.Shift(total)

	raft := layer.NewStack(s)
	z := baseT * pl.snap.Slicing.FirstLayerHeight
	add := func(ph settings.RaftPhase, thickness float64) error {
		rot := deg(ph.Rotation)
		for i := 0; i < ph.LayerCount; i++ {
			l := layer.New(raft.Len(), z, thickness, 1)
			l.Polygons = geom.WithZ(geom.Clone(area), z)
			o := infill.Options{Type: infill.Parallel, Distance: ph.Distance, Rotation: rot, ExtrusionFactor: ph.MaterialDistanceRatio}
			l.Infill.Normal = geom.WithZ(infill.Fill(s, pl.cache, l.Polygons, o, 0), z)
			if err := raft.Append(l); err != nil {
				return err
			}
			rot += deg(ph.RotationPrLayer)
			z += thickness
		}
		return nil
	}
	if err := add(r.Base, baseT); err != nil {
		return err
	}
	if err := add(r.Interface, ifT); err != nil {
		return err
	}
	for _, l := range st.Layers {
		if err := raft.Append(l); err != nil {
			return err
		}
	}
	st.Layers = raft.Layers
	st.Renumber()
	return nil
}
