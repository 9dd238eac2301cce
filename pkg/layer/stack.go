package layer

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/lamina/pkg/clip"
	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/progress"
)

// Stack is the ordered layer arena of one slicing run. Layer Z strictly
// increases with the index.
type Stack struct {
	Layers []*Layer
	Clip   clip.Session
}

// NewStack returns an empty stack using s for every polygon operation.
func NewStack(s clip.Session) *Stack {
	return &Stack{Clip: s}
}

// Len returns the number of layers.
func (st *Stack) Len() int { return len(st.Layers) }

// Append adds l on top of the stack and links it to the layer below.
func (st *Stack) Append(l *Layer) error {
	if n := len(st.Layers); n > 0 {
		top := st.Layers[n-1]
		if l.Z <= top.Z {
			return fmt.Errorf("layer: z=%.4f is not above the top layer at z=%.4f", l.Z, top.Z)
		}
		l.Prev = n - 1
	} else {
		l.Prev = NoPrev
	}
	st.Layers = append(st.Layers, l)
	return nil
}

// Below returns the layer under l, or nil.
func (st *Stack) Below(l *Layer) *Layer {
	if l.Prev < 0 || l.Prev >= len(st.Layers) {
		return nil
	}
	return st.Layers[l.Prev]
}

// Renumber sets layer numbers and Prev links from the stack order.
func (st *Stack) Renumber() {
	for i, l := range st.Layers {
		l.No = i
		l.Prev = i - 1
	}
}

// Shift moves every layer and its regions up by dz.
func (st *Stack) Shift(dz float64) {
	for _, l := range st.Layers {
		l.setZ(l.Z + dz)
	}
}

func (l *Layer) setZ(z float64) {
	dz := z - l.Z
	l.Z = z
	move := func(polys []geom.Poly) []geom.Poly {
		for i := range polys {
			polys[i].Z += dz
		}
		return polys
	}
	move(l.Polygons)
	move(l.ToSupport)
	for _, sh := range l.Shells {
		move(sh)
	}
	for _, ps := range [][]geom.Poly{
		l.SkinPolygons, l.ThinPolygons, l.FillPolygons, l.FullFillPolygons,
		l.SkinFullFillPolygons, l.DecorPolygons, l.BridgePillars,
		l.SupportPolygons, l.SkirtPolygons,
	} {
		move(ps)
	}
	for i := range l.BridgePolygons {
		l.BridgePolygons[i].Outer.Z += dz
		move(l.BridgePolygons[i].Holes)
	}
	l.Infill.shift(dz)
}

// Uncovered returns the fill regions of subj that the inner shell of clp
// does not cover.
func (st *Stack) Uncovered(subj, clp *Layer) []geom.Poly {
	var polys []geom.Poly
	polys = append(polys, subj.FillPolygons...)
	polys = append(polys, subj.FullFillPolygons...)
	polys = append(polys, geom.FlattenEx(subj.BridgePolygons)...)
	polys = append(polys, subj.DecorPolygons...)
	if len(polys) == 0 {
		return nil
	}
	return geom.WithZ(st.Clip.SubtractMerged(polys, clp.InnerShell(), subj.Thickness/2), subj.Z)
}

// MakeUncovered finds the top and bottom surfaces. Scanning up, fill not
// covered by the layer above becomes full fill (or decor); scanning down,
// fill not carried by the layer below becomes a bridge when bridges are
// enabled and full fill otherwise. The first and last layers are filled
// solid.
func (st *Stack) MakeUncovered(p progress.Progress, makeDecor, makeBridges bool) error {
	n := len(st.Layers)
	if n == 0 {
		return nil
	}
	if !p.Restart("Find Uncovered", float64(2*n+2)) {
		return progress.ErrCanceled
	}
	steps := progress.Steps(2*n + 2)
	s := st.Clip
	for i := 0; i < n-1; i++ {
		if i%steps == 0 && !p.Update(float64(i)) {
			return progress.ErrCanceled
		}
		st.Layers[i].AddFullPolygons(s, st.Uncovered(st.Layers[i], st.Layers[i+1]), makeDecor)
	}
	for i := n - 1; i > 0; i-- {
		if i%steps == 0 && !p.Update(float64(2*n-i)) {
			return progress.ErrCanceled
		}
		l, below := st.Layers[i], st.Layers[i-1]
		uncovered := st.Uncovered(l, below)
		if makeBridges && !l.Pinned {
			l.AddBridgePolygons(s, uncovered)
			l.CalcBridgeAngles(s, below)
		} else {
			l.AddFullPolygons(s, uncovered, makeDecor)
		}
	}
	first, last := st.Layers[0], st.Layers[n-1]
	first.AddFullPolygons(s, geom.Clone(first.FillPolygons), makeDecor)
	last.AddFullPolygons(s, geom.Clone(last.FillPolygons), makeDecor)
	p.Stop("Find Uncovered")
	return nil
}

// MakeSupport projects the overhangs down through the stack: each layer
// supports what the layer above supports or needs supported, minus its own
// cross-section. The support grows by widen·thickness per layer and is
// welded at width.
func (st *Stack) MakeSupport(p progress.Progress, widen, width float64) error {
	n := len(st.Layers)
	if !p.Restart("Support", float64(n)) {
		return progress.ErrCanceled
	}
	steps := progress.Steps(n)
	s := st.Clip
	for i := n - 1; i > 0; i-- {
		if i%steps == 0 && !p.Update(float64(n-i)) {
			return progress.ErrCanceled
		}
		above, l := st.Layers[i], st.Layers[i-1]
		if above.Pinned {
			continue
		}
		subj := append(geom.Clone(above.SupportPolygons), above.ToSupport...)
		if len(subj) == 0 {
			l.SupportPolygons = nil
			continue
		}
		sp := s.SubtractFill(subj, l.Polygons, clip.FillNonZero, clip.FillEvenOdd)
		if widen != 0 {
			sp = s.Offset(sp, widen*l.Thickness, clip.JoinMiter, 2)
		}
		l.SupportPolygons = geom.WithZ(s.Merge(sp, width), l.Z)
	}
	p.Stop("Support")
	return nil
}

// MakeSkinFullFill moves the full fill of skinned layers to their skin
// collections.
func (st *Stack) MakeSkinFullFill() {
	for _, l := range st.Layers {
		l.MakeSkinFullFill()
	}
}

// MultiplyUncovered gives solid surfaces their thickness by copying the
// full fill of each layer into the shells-1 layers below and above it.
// Bridges are only copied upwards. The first decorLayers copies of decor
// stay decor. Each layer's full fill is merged afterwards, in parallel.
func (st *Stack) MultiplyUncovered(p progress.Progress, shells, decorLayers int) error {
	n := len(st.Layers)
	shells += decorLayers
	if shells < 1 || n == 0 {
		return nil
	}
	if !p.Restart("Uncovered Shells", float64(3*n)) {
		return progress.ErrCanceled
	}
	steps := progress.Steps(3 * n)
	s := st.Clip

	for i := 0; i < n; i++ {
		if i%steps == 0 && !p.Update(float64(i)) {
			return progress.ErrCanceled
		}
		l := st.Layers[i]
		full, skin, decor := geom.Clone(l.FullFillPolygons), geom.Clone(l.SkinFullFillPolygons), geom.Clone(l.DecorPolygons)
		for k := 1; k < shells && i-k >= 0; k++ {
			below := st.Layers[i-k]
			below.AddFullPolygons(s, full, false)
			below.AddFullPolygons(s, skin, false)
			below.AddFullPolygons(s, decor, k < decorLayers)
		}
	}
	for i := n - 1; i >= 0; i-- {
		if i%steps == 0 && !p.Update(float64(2*n-i)) {
			return progress.ErrCanceled
		}
		l := st.Layers[i]
		full, skin, decor := geom.Clone(l.FullFillPolygons), geom.Clone(l.SkinFullFillPolygons), geom.Clone(l.DecorPolygons)
		bridges := geom.FlattenEx(l.BridgePolygons)
		for k := 1; k < shells && i+k < n; k++ {
			above := st.Layers[i+k]
			above.AddFullPolygons(s, full, false)
			above.AddFullPolygons(s, bridges, false)
			above.AddFullPolygons(s, skin, false)
			above.AddFullPolygons(s, decor, k < decorLayers)
		}
	}

	err := st.parallel(p, "Merging Full Polygons", func(l *Layer) {
		l.MergeFullPolygons(s)
	})
	if err != nil {
		return err
	}
	p.Stop("Uncovered Shells")
	return nil
}

// parallel runs fn on every layer using one worker per CPU. It stops
// handing out layers once p reports cancellation.
func (st *Stack) parallel(p progress.Progress, label string, fn func(*Layer)) error {
	n := len(st.Layers)
	if !p.Restart(label, float64(n)) {
		return progress.ErrCanceled
	}
	steps := progress.Steps(n)
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, l := range st.Layers {
		if i%steps == 0 && !p.Update(float64(i)) {
			break
		}
		g.Go(func() error {
			fn(l)
			return nil
		})
	}
	_ = g.Wait()
	if !p.Update(float64(n)) {
		return progress.ErrCanceled
	}
	return nil
}

// ForEach runs fn on every layer in parallel. Use it for stages with no
// dependency between layers.
func (st *Stack) ForEach(p progress.Progress, label string, fn func(*Layer)) error {
	if err := st.parallel(p, label, fn); err != nil {
		return err
	}
	p.Stop(label)
	return nil
}

// MakeSkirt surrounds every layer up to height with one skirt at distance
// from the model. The skirts of those layers are united and shared.
func (st *Stack) MakeSkirt(distance, height float64, single bool) {
	s := st.Clip
	var skirts []geom.Poly
	end := -1
	for i, l := range st.Layers {
		if l.Z > height {
			break
		}
		skirts = append(skirts, l.skirt(s, distance, single)...)
		end = i
	}
	if len(skirts) == 0 {
		return
	}
	united := s.UnionFill(skirts, clip.FillPositive)
	for _, l := range st.Layers[:end+1] {
		l.SkirtPolygons = geom.WithZ(united, l.Z)
	}
}
