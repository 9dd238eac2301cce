// Package layer holds the per-height aggregate of the slicing pipeline and
// the stages that derive shells, fill regions, bridges, support and skirt
// from a layer's raw cross-section.
//
// Layers live in a Stack. A layer refers to the one below it by index
// (Prev), never by pointer, so a stack is dropped as a whole when the model
// is sliced again. Every polygon operation goes through the clip.Session
// passed by the caller.
package layer

import (
	"math"

	"github.com/samber/lo"

	"github.com/chazu/lamina/pkg/clip"
	"github.com/chazu/lamina/pkg/geom"
)

// CleanFactor divides the layer thickness to give the vertex cleanup
// tolerance for raw polygons.
const CleanFactor = 5.0

// NoPrev marks a layer without a layer below.
const NoPrev = -1

// Layer is one horizontal slice of the model with its derived regions.
type Layer struct {
	No        int
	Z         float64
	Thickness float64
	// Skins is the number of sub-layers the solid surfaces are printed in.
	Skins int
	// Prev is the index of the layer below in its Stack, or NoPrev.
	Prev int
	// Pinned layers get no bridges and receive no support from the layer
	// above.
	Pinned bool
	// Gradient is the largest normal slope seen while cutting.
	Gradient float64

	Polygons  []geom.Poly // raw cross-section
	ToSupport []geom.Poly // overhang footprints needing support below

	Shells [][]geom.Poly // outermost first
	// SkinPolygons replaces the outer shell when Skins > 1.
	SkinPolygons []geom.Poly
	ThinPolygons []geom.Poly

	FillPolygons         []geom.Poly
	FullFillPolygons     []geom.Poly
	SkinFullFillPolygons []geom.Poly
	DecorPolygons        []geom.Poly
	BridgePolygons       []geom.ExPoly
	// BridgeRotations holds one infill rotation, radians, per bridge.
	BridgeRotations []float64
	BridgePillars   []geom.Poly

	SupportPolygons []geom.Poly
	SkirtPolygons   []geom.Poly

	Infill Infills
}

// New returns an empty layer.
func New(no int, z, thickness float64, skins int) *Layer {
	if skins < 1 {
		skins = 1
	}
	return &Layer{No: no, Z: z, Thickness: thickness, Skins: skins, Prev: NoPrev}
}

// SetPolygons stores the raw cross-section, cleaned at a tolerance
// proportional to the layer thickness.
func (l *Layer) SetPolygons(polys []geom.Poly) {
	tol := l.Thickness / CleanFactor
	l.Polygons = l.Polygons[:0]
	for _, p := range polys {
		p = p.Clone()
		p.Z = l.Z
		p.Cleanup(tol)
		if !p.Empty() {
			l.Polygons = append(l.Polygons, p)
		}
	}
}

// AddPolygons appends raw polygons, as when several shapes share a layer.
func (l *Layer) AddPolygons(polys []geom.Poly) {
	l.Polygons = append(l.Polygons, geom.WithZ(polys, l.Z)...)
}

// OuterShell returns the outermost shell, or the skin outline when the
// layer prints skins.
func (l *Layer) OuterShell() []geom.Poly {
	if len(l.SkinPolygons) > 0 {
		return l.SkinPolygons
	}
	if len(l.Shells) > 0 {
		return l.Shells[0]
	}
	return l.Polygons
}

// InnerShell returns the innermost shell, falling back to the skin outline
// and then to the raw polygons.
func (l *Layer) InnerShell() []geom.Poly {
	if n := len(l.Shells); n > 0 {
		return l.Shells[n-1]
	}
	if len(l.SkinPolygons) > 0 {
		return l.SkinPolygons
	}
	return l.Polygons
}

// ShellOptions controls MakeShells.
type ShellOptions struct {
	Count int
	// Width is the extruded line width, mm.
	Width float64
	// InfillOverlap is the fraction of Width by which the fill region
	// reaches into the innermost shell.
	InfillOverlap float64
	FillThinWalls bool
	// NoFill leaves FillPolygons empty.
	NoFill bool
}

// MakeShells derives the shell rings, thin walls and the fill region from
// the raw polygons. The first ring runs half a width inside the outline and
// each further ring one width inside the previous one.
func (l *Layer) MakeShells(s clip.Session, o ShellOptions) {
	l.Shells, l.SkinPolygons, l.ThinPolygons, l.FillPolygons = nil, nil, nil, nil
	w := o.Width
	cleanTol := math.Min(w/2, l.Thickness) / CleanFactor

	shell := s.Offset(l.Polygons, -w/2, clip.JoinMiter, 2)
	cleanup(shell, cleanTol)
	if o.Count > 0 {
		if l.Skins > 1 {
			l.SkinPolygons = withFactor(shell, 1/float64(l.Skins))
		} else {
			l.Shells = append(l.Shells, shell)
		}
		for i := 1; i < o.Count && len(shell) > 0; i++ {
			if o.FillThinWalls {
				l.ThinPolygons = append(l.ThinPolygons, thinWalls(s, shell, w)...)
			}
			shell = s.Offset(shell, -w, clip.JoinMiter, 2)
			cleanup(shell, cleanTol)
			if len(shell) > 0 {
				l.Shells = append(l.Shells, shell)
			}
		}
	}
	l.ThinPolygons = geom.WithZ(l.ThinPolygons, l.Z)
	if !o.NoFill && len(shell) > 0 {
		l.FillPolygons = geom.WithZ(s.Offset(shell, -(1-o.InfillOverlap)*w, clip.JoinMiter, 2), l.Z)
	}
}

// thinWalls returns the parts inside the ring of shell line centers that
// are too narrow for another ring.
func thinWalls(s clip.Session, shell []geom.Poly, w float64) []geom.Poly {
	inside := s.Offset(shell, -w/2, clip.JoinMiter, 2)
	capped := s.ShrinkedCapped(shell, w/2, clip.JoinMiter)
	thin := s.Subtract(inside, capped)
	return lo.Filter(thin, func(p geom.Poly, _ int) bool {
		return math.Abs(p.Area()) > w*w/4
	})
}

func cleanup(polys []geom.Poly, tol float64) {
	for i := range polys {
		polys[i].Cleanup(tol)
	}
}

func withFactor(polys []geom.Poly, ef float64) []geom.Poly {
	for i := range polys {
		polys[i].ExtrusionFactor = ef
	}
	return polys
}

// AddFullPolygons turns the fill inside full into full fill. With decor
// set the region becomes decor instead, taking full fill with it.
func (l *Layer) AddFullPolygons(s clip.Session, full []geom.Poly, decor bool) {
	if len(full) == 0 {
		return
	}
	subj := l.FillPolygons
	if decor {
		subj = append(geom.Clone(l.FillPolygons), l.FullFillPolygons...)
	}
	inter := geom.WithZ(s.Intersect(subj, full), l.Z)
	if decor {
		l.DecorPolygons = append(l.DecorPolygons, inter...)
		l.FullFillPolygons = geom.WithZ(s.Subtract(l.FullFillPolygons, inter), l.Z)
	} else {
		l.FullFillPolygons = append(l.FullFillPolygons, inter...)
	}
	l.FillPolygons = geom.WithZ(s.Subtract(l.FillPolygons, full), l.Z)
}

// MergeFullPolygons welds the collected full fill and removes it and the
// decor from the normal fill.
func (l *Layer) MergeFullPolygons(s clip.Session) {
	l.FullFillPolygons = geom.WithZ(s.Merge(l.FullFillPolygons, l.Thickness), l.Z)
	taken := append(geom.Clone(l.FullFillPolygons), l.DecorPolygons...)
	if len(taken) > 0 {
		l.FillPolygons = geom.WithZ(s.Subtract(l.FillPolygons, taken), l.Z)
	}
}

// AddBridgePolygons turns the fill inside uncovered into bridges.
func (l *Layer) AddBridgePolygons(s clip.Session, uncovered []geom.Poly) {
	if len(uncovered) == 0 {
		return
	}
	fill := append(geom.Clone(l.FillPolygons), l.FullFillPolygons...)
	bridges := s.Intersect(fill, uncovered)
	if len(bridges) == 0 {
		return
	}
	l.BridgePolygons = append(l.BridgePolygons, s.ExPolys(geom.WithZ(bridges, l.Z))...)
	l.FillPolygons = geom.WithZ(s.Subtract(l.FillPolygons, uncovered), l.Z)
	l.FullFillPolygons = geom.WithZ(s.Subtract(l.FullFillPolygons, uncovered), l.Z)
}

// CalcBridgeAngles picks an infill rotation for every bridge so that its
// lines run between the two largest areas of below that carry it. Bridges
// with fewer than two carrying areas keep rotation 0.
func (l *Layer) CalcBridgeAngles(s clip.Session, below *Layer) {
	l.BridgeRotations = make([]float64, len(l.BridgePolygons))
	l.BridgePillars = nil
	for i, ex := range l.BridgePolygons {
		pillars := s.Intersect(ex.Polys(), below.Polygons)
		l.BridgePillars = append(l.BridgePillars, geom.WithZ(pillars, l.Z)...)
		if len(pillars) < 2 {
			continue
		}
		solid := lo.Filter(pillars, func(p geom.Poly, _ int) bool { return !p.IsHole() })
		if len(solid) < 2 {
			continue
		}
		sortByArea(solid)
		d := solid[1].Center().Sub(solid[0].Center())
		// parallel lines run along Y at rotation 0
		l.BridgeRotations[i] = normalizeAngle(math.Atan2(d.Y, d.X) - math.Pi/2)
	}
}

func sortByArea(polys []geom.Poly) {
	for i := 1; i < len(polys); i++ {
		for j := i; j > 0 && math.Abs(polys[j].Area()) > math.Abs(polys[j-1].Area()); j-- {
			polys[j], polys[j-1] = polys[j-1], polys[j]
		}
	}
}

// normalizeAngle maps a line direction to [0, π).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, math.Pi)
	if a < 0 {
		a += math.Pi
	}
	if math.Pi-a < 1e-12 {
		a = 0
	}
	return a
}

// MakeSkinFullFill moves the full fill to the skin collection when the
// layer prints skins. Call it after all uncovered regions are known.
func (l *Layer) MakeSkinFullFill() {
	if l.Skins <= 1 {
		return
	}
	l.SkinFullFillPolygons = append(l.SkinFullFillPolygons, l.FullFillPolygons...)
	l.FullFillPolygons = nil
}

// SkinZ returns the height of skin sub-layer k, counted from 0.
func (l *Layer) SkinZ(k int) float64 {
	return l.Z - l.Thickness + float64(k+1)*l.Thickness/float64(l.Skins)
}

// Hull returns the convex hull of the raw polygons and, when
// withSupport is set, the support region.
func (l *Layer) Hull(withSupport bool) geom.Poly {
	pts := geom.Points(l.Polygons)
	if withSupport {
		pts = append(pts, geom.Points(l.SupportPolygons)...)
	}
	return geom.ConvexHull(l.Z, pts)
}

// skirt returns the skirt outline at distance around the layer. A single
// skirt surrounds everything; otherwise each island gets its own.
func (l *Layer) skirt(s clip.Session, distance float64, single bool) []geom.Poly {
	if single {
		h := l.Hull(true)
		if h.Empty() {
			return nil
		}
		return s.Offset([]geom.Poly{h}, distance, clip.JoinRound, 2)
	}
	var hulls []geom.Poly
	for _, ex := range s.ExPolys(append(geom.Clone(l.Polygons), l.SupportPolygons...)) {
		if h := geom.ConvexHull(l.Z, ex.Outer.Points); !h.Empty() {
			hulls = append(hulls, h)
		}
	}
	return s.Offset(hulls, distance, clip.JoinRound, 2)
}

// Empty reports whether the layer has no raw polygons.
func (l *Layer) Empty() bool { return len(l.Polygons) == 0 }

// Area returns the raw cross-section area.
func (l *Layer) Area() float64 {
	return lo.SumBy(l.Polygons, func(p geom.Poly) float64 { return p.Area() })
}
