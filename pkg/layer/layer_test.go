package layer

import (
	"math"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/lamina/pkg/clip"
	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/infill"
	"github.com/chazu/lamina/pkg/progress"
)

const thickness = 0.3

func rect(x0, y0, x1, y1 float64) geom.Poly {
	return geom.Rect(0, v2.Vec{X: x0, Y: y0}, v2.Vec{X: x1, Y: y1})
}

func newLayer(no int, polys ...geom.Poly) *Layer {
	l := New(no, float64(no+1)*thickness, thickness, 1)
	l.SetPolygons(polys)
	return l
}

func stackOf(t *testing.T, shells ShellOptions, layers ...*Layer) *Stack {
	t.Helper()
	st := NewStack(clip.NewSession())
	for _, l := range layers {
		require.NoError(t, st.Append(l))
		l.MakeShells(st.Clip, shells)
	}
	return st
}

var oneShell = ShellOptions{Count: 1, Width: 0.5, FillThinWalls: true}

func TestSetPolygonsCleansAndSetsZ(t *testing.T) {
	l := New(0, 0.3, thickness, 1)
	sq := geom.NewPoly(7,
		v2.Vec{}, v2.Vec{X: 5}, v2.Vec{X: 10}, v2.Vec{X: 10, Y: 10}, v2.Vec{Y: 10}, v2.Vec{Y: 10.001})
	l.SetPolygons([]geom.Poly{sq})

	require.Len(t, l.Polygons, 1)
	assert.Equal(t, 4, l.Polygons[0].Len())
	assert.Equal(t, 0.3, l.Polygons[0].Z)
	assert.Equal(t, 6, sq.Len(), "input must not be modified")
}

func TestMakeShells(t *testing.T) {
	tests := []struct {
		name      string
		opts      ShellOptions
		wantAreas []float64
		wantFill  float64
	}{
		// mitred inward offset of 2 mm turns the 10 mm square into a 6 mm one
		{"one wide shell", ShellOptions{Count: 1, Width: 4, InfillOverlap: 0.5}, []float64{36}, 4},
		{"two shells", ShellOptions{Count: 2, Width: 0.5, FillThinWalls: true}, []float64{90.25, 72.25}, 56.25},
		{"overlap", ShellOptions{Count: 1, Width: 0.5, InfillOverlap: 0.5}, []float64{90.25}, 81},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLayer(0, rect(0, 0, 10, 10))
			l.MakeShells(clip.NewSession(), tt.opts)

			require.Len(t, l.Shells, len(tt.wantAreas))
			for i, want := range tt.wantAreas {
				assert.InDelta(t, want, geom.Area(l.Shells[i]), 1e-6, "shell %d", i)
			}
			assert.InDelta(t, tt.wantFill, geom.Area(l.FillPolygons), 1e-6)
			assert.Empty(t, l.ThinPolygons)
			for _, p := range l.FillPolygons {
				assert.Equal(t, l.Z, p.Z)
			}
		})
	}
}

func TestShellsNest(t *testing.T) {
	l := newLayer(0, rect(0, 0, 20, 10), rect(25, 0, 30, 30))
	l.MakeShells(clip.NewSession(), ShellOptions{Count: 3, Width: 0.5})
	require.Len(t, l.Shells, 3)
	s := clip.NewSession()
	for k := 1; k < len(l.Shells); k++ {
		outside := s.Subtract(l.Shells[k], l.Shells[k-1])
		assert.InDelta(t, 0, geom.Area(outside), 1e-6, "shell %d leaves shell %d", k, k-1)
	}
}

func TestThinWall(t *testing.T) {
	l := newLayer(0, rect(0, 0, 10, 1.2))
	s := clip.NewSession()
	l.MakeShells(s, ShellOptions{Count: 2, Width: 0.5, FillThinWalls: true})

	require.Len(t, l.Shells, 1, "no room for a second shell")
	require.Len(t, l.ThinPolygons, 1)
	assert.InDelta(t, 9*0.2, math.Abs(l.ThinPolygons[0].Area()), 1e-6)
	assert.Empty(t, l.FillPolygons)

	l.CalcInfill(s, infill.NewCache(), InfillOptions{Type: infill.Parallel, Distance: 2, FullDistance: 0.5, Width: 0.5})
	require.Len(t, l.Infill.Thin, 1)
	line := l.Infill.Thin[0]
	require.Len(t, line.Points, 2)
	assert.InDelta(t, 0.6, line.Points[0].Y, 1e-6)
	assert.InDelta(t, 0.6, line.Points[1].Y, 1e-6)
	assert.InDelta(t, 9, math.Abs(line.Points[1].X-line.Points[0].X), 1e-6)
	assert.InDelta(t, 2*1.8/(18.4*0.5), line.ExtrusionFactor, 1e-6)
}

func TestUncoveredWhenCovered(t *testing.T) {
	st := stackOf(t, oneShell, newLayer(0, rect(0, 0, 10, 10)), newLayer(1, rect(0, 0, 10, 10)))
	lower, upper := st.Layers[0], st.Layers[1]
	assert.Empty(t, st.Uncovered(upper, lower))
	assert.Empty(t, st.Uncovered(lower, upper))
}

func TestMakeUncoveredTopAndBottom(t *testing.T) {
	var layers []*Layer
	for i := 0; i < 3; i++ {
		layers = append(layers, newLayer(i, rect(0, 0, 10, 10)))
	}
	st := stackOf(t, oneShell, layers...)
	require.NoError(t, st.MakeUncovered(progress.Nop{}, false, false))

	for _, i := range []int{0, 2} {
		assert.InDelta(t, 72.25, geom.Area(st.Layers[i].FullFillPolygons), 1e-6, "layer %d full", i)
		assert.InDelta(t, 0, geom.Area(st.Layers[i].FillPolygons), 1e-6, "layer %d fill", i)
	}
	assert.Empty(t, st.Layers[1].FullFillPolygons)
	assert.InDelta(t, 72.25, geom.Area(st.Layers[1].FillPolygons), 1e-6)
}

func TestBridgeBetweenPillars(t *testing.T) {
	lower := newLayer(0, rect(0, 0, 3, 10), rect(7, 0, 10, 10))
	upper := newLayer(1, rect(0, 0, 10, 10))
	st := stackOf(t, oneShell, lower, upper)
	require.NoError(t, st.MakeUncovered(progress.Nop{}, false, true))

	require.Len(t, upper.BridgePolygons, 1)
	assert.InDelta(t, 4.5*8.5, upper.BridgePolygons[0].Area(), 1e-6)
	require.Len(t, upper.BridgeRotations, 1)
	assert.InDelta(t, math.Pi/2, upper.BridgeRotations[0], 1e-9)
	assert.Len(t, upper.BridgePillars, 2)

	upper.CalcInfill(st.Clip, infill.NewCache(), InfillOptions{Type: infill.Parallel, Distance: 2, FullDistance: 1})
	require.NotEmpty(t, upper.Infill.Bridge)
	for _, p := range upper.Infill.Bridge {
		assert.InDelta(t, p.Points[0].Y, p.Points[len(p.Points)-1].Y, 1e-3, "bridge lines span the gap along X")
	}
}

func TestPinnedLayerGetsNoBridge(t *testing.T) {
	lower := newLayer(0, rect(0, 0, 3, 10), rect(7, 0, 10, 10))
	upper := newLayer(1, rect(0, 0, 10, 10))
	upper.Pinned = true
	st := stackOf(t, oneShell, lower, upper)
	require.NoError(t, st.MakeUncovered(progress.Nop{}, false, true))
	assert.Empty(t, upper.BridgePolygons)
	assert.NotEmpty(t, upper.FullFillPolygons)
}

func TestCalcBridgeAnglesSinglePillar(t *testing.T) {
	s := clip.NewSession()
	below := newLayer(0, rect(0, 0, 3, 10))
	l := newLayer(1, rect(0, 0, 10, 10))
	l.BridgePolygons = s.ExPolys([]geom.Poly{rect(2, 0, 10, 10)})
	l.CalcBridgeAngles(s, below)
	assert.Equal(t, []float64{0}, l.BridgeRotations)
}

func TestMakeSupport(t *testing.T) {
	top := newLayer(2, rect(6, 0, 10, 10))
	top.ToSupport = []geom.Poly{rect(0, 0, 5, 5)}
	st := stackOf(t, oneShell, newLayer(0, rect(6, 0, 10, 10)), newLayer(1, rect(6, 0, 10, 10)), top)

	require.NoError(t, st.MakeSupport(progress.Nop{}, 0, 0.5))
	assert.Empty(t, top.SupportPolygons)
	for _, l := range st.Layers[:2] {
		assert.InDelta(t, 25, geom.Area(l.SupportPolygons), 1e-6, "layer %d", l.No)
		for _, p := range l.SupportPolygons {
			assert.Equal(t, l.Z, p.Z)
		}
	}
}

func TestSupportStopsAtModel(t *testing.T) {
	top := newLayer(1, rect(0, 0, 10, 10))
	top.ToSupport = []geom.Poly{rect(0, 0, 5, 5)}
	st := stackOf(t, oneShell, newLayer(0, rect(0, 0, 4, 10)), top)
	require.NoError(t, st.MakeSupport(progress.Nop{}, 0, 0.5))
	assert.InDelta(t, 5, geom.Area(st.Layers[0].SupportPolygons), 1e-6)
}

func TestMultiplyUncovered(t *testing.T) {
	var layers []*Layer
	for i := 0; i < 5; i++ {
		layers = append(layers, newLayer(i, rect(0, 0, 10, 10)))
	}
	st := stackOf(t, oneShell, layers...)
	require.NoError(t, st.MakeUncovered(progress.Nop{}, false, false))
	require.NoError(t, st.MultiplyUncovered(progress.Nop{}, 2, 0))

	for i, l := range st.Layers {
		if i == 2 {
			assert.Empty(t, l.FullFillPolygons, "middle layer stays sparse")
			assert.InDelta(t, 72.25, geom.Area(l.FillPolygons), 1e-6)
			continue
		}
		assert.InDelta(t, 72.25, geom.Area(l.FullFillPolygons), 1e-6, "layer %d full", i)
		assert.InDelta(t, 0, geom.Area(l.FillPolygons), 1e-6, "layer %d fill", i)
	}
}

func TestMultiplyCanceled(t *testing.T) {
	st := stackOf(t, oneShell, newLayer(0, rect(0, 0, 10, 10)), newLayer(1, rect(0, 0, 10, 10)))
	tr := progress.NewTracker(nil)
	tr.Cancel()
	assert.ErrorIs(t, st.MultiplyUncovered(tr, 2, 0), progress.ErrCanceled)
}

func TestMakeSkirt(t *testing.T) {
	var layers []*Layer
	for i := 0; i < 3; i++ {
		layers = append(layers, newLayer(i, rect(0, 0, 10, 10)))
	}
	st := stackOf(t, oneShell, layers...)
	st.MakeSkirt(3, 0.6, true)

	want := 100 + 4*10*3 + math.Pi*9
	for _, l := range st.Layers[:2] {
		require.Len(t, l.SkirtPolygons, 1)
		assert.InDelta(t, want, geom.Area(l.SkirtPolygons), 0.5)
		assert.Equal(t, l.Z, l.SkirtPolygons[0].Z)
	}
	assert.Empty(t, st.Layers[2].SkirtPolygons)
}

func TestSeparateSkirts(t *testing.T) {
	st := stackOf(t, oneShell, newLayer(0, rect(0, 0, 10, 10), rect(30, 0, 40, 10)))
	st.MakeSkirt(1, 1, false)
	assert.Len(t, st.Layers[0].SkirtPolygons, 2)
}

func TestSkins(t *testing.T) {
	l := New(1, 0.6, thickness, 3)
	l.SetPolygons([]geom.Poly{rect(0, 0, 10, 10)})
	s := clip.NewSession()
	l.MakeShells(s, oneShell)

	assert.Empty(t, l.Shells)
	require.Len(t, l.SkinPolygons, 1)
	assert.InDelta(t, 1.0/3, l.SkinPolygons[0].ExtrusionFactor, 1e-12)
	assert.Equal(t, l.SkinPolygons, l.InnerShell())

	l.AddFullPolygons(s, geom.Clone(l.FillPolygons), false)
	l.MakeSkinFullFill()
	assert.Empty(t, l.FullFillPolygons)
	assert.NotEmpty(t, l.SkinFullFillPolygons)

	l.CalcInfill(s, infill.NewCache(), InfillOptions{Type: infill.Parallel, Distance: 2, FullDistance: 1.5})
	require.Len(t, l.Infill.Skins, 3)
	for k, skin := range l.Infill.Skins {
		require.NotEmpty(t, skin)
		assert.InDelta(t, 0.3+float64(k+1)*0.1, skin[0].Z, 1e-12)
	}
}

func TestCalcInfillRoles(t *testing.T) {
	st := stackOf(t, oneShell, newLayer(0, rect(0, 0, 10, 10)), newLayer(1, rect(0, 0, 10, 10)), newLayer(2, rect(0, 0, 10, 10)))
	require.NoError(t, st.MakeUncovered(progress.Nop{}, false, false))
	cache := infill.NewCache()
	o := InfillOptions{Type: infill.Parallel, Distance: 2, FullDistance: 0.5}
	for _, l := range st.Layers {
		l.CalcInfill(st.Clip, cache, o)
	}

	mid := st.Layers[1]
	assert.NotEmpty(t, mid.Infill.Normal)
	assert.Empty(t, mid.Infill.Full)
	for _, p := range mid.Infill.Normal {
		assert.True(t, p.Open)
		assert.Equal(t, mid.Z, p.Z)
	}
	assert.Empty(t, st.Layers[0].Infill.Normal)
	assert.Greater(t, len(st.Layers[0].Infill.Full), len(mid.Infill.Normal))
	assert.Equal(t, len(mid.Infill.Normal), mid.Infill.Count())

	o.ShellOnly = true
	mid.CalcInfill(st.Clip, cache, o)
	assert.Empty(t, mid.Infill.Normal)
}

func TestStackAppend(t *testing.T) {
	st := NewStack(clip.NewSession())
	a, b := New(0, 0.3, thickness, 1), New(1, 0.6, thickness, 1)
	require.NoError(t, st.Append(a))
	require.NoError(t, st.Append(b))
	assert.Equal(t, NoPrev, a.Prev)
	assert.Equal(t, 0, b.Prev)
	assert.Same(t, a, st.Below(b))
	assert.Nil(t, st.Below(a))

	assert.Error(t, st.Append(New(2, 0.6, thickness, 1)), "equal Z is rejected")
	assert.Equal(t, 2, st.Len())
}

func TestShift(t *testing.T) {
	st := stackOf(t, oneShell, newLayer(0, rect(0, 0, 10, 10)))
	l := st.Layers[0]
	l.CalcInfill(st.Clip, infill.NewCache(), InfillOptions{Type: infill.Parallel, Distance: 2, FullDistance: 1})
	st.Shift(1)

	assert.InDelta(t, 1.3, l.Z, 1e-12)
	assert.InDelta(t, 1.3, l.Polygons[0].Z, 1e-12)
	assert.InDelta(t, 1.3, l.Shells[0][0].Z, 1e-12)
	require.NotEmpty(t, l.Infill.Normal)
	assert.InDelta(t, 1.3, l.Infill.Normal[0].Z, 1e-12)
}
