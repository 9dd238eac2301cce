// Package slicer intersects placed shapes with horizontal planes and
// assembles the cut segments into closed, counter-clockwise polygons.
//
// A failed assembly is retried a bounded number of times slightly above the
// requested height before the layer is reported as failed with a
// *LayerError. Flat shapes skip cutting and yield their outline at the
// single layer they occupy.
package slicer

import (
	"errors"
	"fmt"

	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/graph"
	"github.com/chazu/lamina/pkg/logging"
)

var (
	// ErrOddDetached means the detached points cannot be paired.
	ErrOddDetached = errors.New("slicer: odd number of detached points")
	// ErrOpenLoop means a segment walk could not close.
	ErrOpenLoop = errors.New("slicer: open loop")
	// ErrEmptySlice means the shape spans Z but no polygon was produced.
	ErrEmptySlice = errors.New("slicer: empty slice")
)

// LayerError reports a layer that could not be sliced after all retries.
type LayerError struct {
	Z        float64
	Detached int
	Err      error
}

func (e *LayerError) Error() string {
	if e.Detached > 0 {
		return fmt.Sprintf("slicer: layer at z=%.4f (%d detached points): %v", e.Z, e.Detached, e.Err)
	}
	return fmt.Sprintf("slicer: layer at z=%.4f: %v", e.Z, e.Err)
}

func (e *LayerError) Unwrap() error { return e.Err }

const (
	// DefaultEpsilon merges cut points closer than this, in mm.
	DefaultEpsilon = 1e-4
	// MaxConnectDistance is the distance above which detached points are
	// never joined.
	MaxConnectDistance = 10.0
	// Retries is the number of extra attempts, each thickness/10 higher.
	Retries = 9
)

// Options controls one slice.
type Options struct {
	// Epsilon is the vertex merge distance.
	Epsilon float64
	// SupportAngle is the overhang angle from vertical, in radians, beyond
	// which downward faces need support. Negative disables support.
	SupportAngle float64
	// MaxJoinDistance is the longest detached join made without a warning.
	MaxJoinDistance float64
	// StrictJoins refuses joins longer than MaxJoinDistance.
	StrictJoins bool
	// Cleanup is the vertex cleanup tolerance for assembled loops.
	Cleanup float64
}

// DefaultOptions returns lenient options with support disabled.
func DefaultOptions() Options {
	return Options{
		Epsilon:         DefaultEpsilon,
		SupportAngle:    -1,
		MaxJoinDistance: 1,
		Cleanup:         0.01,
	}
}

// Result is the cross-section of one shape at one Z.
type Result struct {
	// Z is the requested height; all polygons carry it.
	Z float64
	// CutZ is the height actually cut after retries.
	CutZ      float64
	Polygons  []geom.Poly
	ToSupport []geom.Poly
	// Gradient is the largest |normal.z| among the cut triangles.
	Gradient float64
}

// Slice cuts shape, placed by m, at height z.
func Slice(shape *graph.Shape, m sdf.M44, z, thickness float64, opts Options) (*Result, error) {
	switch shape.Dim {
	case graph.Dim2:
		return sliceFlat(shape, m, z), nil
	case graph.Dim3:
	default:
		return nil, fmt.Errorf("slicer: shape %q has unknown dimension %d", shape.Name, shape.Dim)
	}
	if shape.Mesh.IsEmpty() {
		return &Result{Z: z, CutZ: z}, nil
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultEpsilon
	}
	lim := joinLimits{warn: opts.MaxJoinDistance, max: MaxConnectDistance, strict: opts.StrictJoins}

	var lastErr error
	var detached int
	for k := 0; k <= Retries; k++ {
		cz := z + float64(k)*thickness/10
		res := cut(shape.Mesh.Triangles, m, cz, thickness, opts.SupportAngle, opts.Epsilon)
		polys, n, err := assemble(res.plane, lim, opts.Cleanup)
		if err == nil && len(polys) == 0 && res.crossing {
			err = ErrEmptySlice
		}
		if err == nil {
			if k > 0 {
				logging.Logger().Debug("slicer: sliced after retry", "z", z, "retry", k)
			}
			return &Result{
				Z:         z,
				CutZ:      cz,
				Polygons:  geom.WithZ(polys, z),
				ToSupport: geom.WithZ(res.toSupport, z),
				Gradient:  res.gradient,
			}, nil
		}
		lastErr, detached = err, n
	}
	return nil, &LayerError{Z: z, Detached: detached, Err: lastErr}
}

func assemble(pl *plane, lim joinLimits, tol float64) ([]geom.Poly, int, error) {
	pl.cleanupShared()
	n, err := pl.connectDetached(lim)
	if err != nil {
		return nil, n, err
	}
	polys, err := pl.makePolygons(tol)
	return polys, n, err
}

// sliceFlat returns a flat shape's outline moved by m, at height z.
func sliceFlat(shape *graph.Shape, m sdf.M44, z float64) *Result {
	polys := make([]geom.Poly, 0, len(shape.Outline))
	for _, p := range shape.Outline {
		q := p.Clone()
		for i, pt := range q.Points {
			v := m.MulPosition(v3Of(pt))
			q.Points[i].X, q.Points[i].Y = v.X, v.Y
		}
		if !q.Open && handedness2(m) < 0 {
			q.Reverse()
		}
		q.Z = z
		if q.ExtrusionFactor == 0 {
			q.ExtrusionFactor = 1
		}
		polys = append(polys, q)
	}
	return &Result{Z: z, CutZ: z, Polygons: polys}
}
