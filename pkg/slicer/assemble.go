package slicer

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/logging"
)

// cleanupShared removes coincident segments around vertices used by more
// than two segments. Opposite segments cancel each other; of two segments
// running the same way one is kept.
func (pl *plane) cleanupShared() {
	counts := make([]int, len(pl.vertices))
	for _, s := range pl.segments {
		counts[s.start]++
		counts[s.end]++
	}
	drop := make(map[int]bool)
	for v, c := range counts {
		if c <= 2 {
			continue
		}
		var shared []int
		for i, s := range pl.segments {
			if !drop[i] && (s.start == v || s.end == v) {
				shared = append(shared, i)
			}
		}
		for j := 0; j < len(shared); j++ {
			if drop[shared[j]] {
				continue
			}
			a := pl.segments[shared[j]]
			for k := j + 1; k < len(shared); k++ {
				if drop[shared[k]] {
					continue
				}
				b := pl.segments[shared[k]]
				switch {
				case a.start == b.end && a.end == b.start:
					drop[shared[j]], drop[shared[k]] = true, true
				case a.start == b.start && a.end == b.end:
					drop[shared[k]] = true
				default:
					continue
				}
				if drop[shared[j]] {
					break
				}
			}
		}
	}
	if len(drop) == 0 {
		return
	}
	kept := pl.segments[:0]
	for i, s := range pl.segments {
		if !drop[i] {
			kept = append(kept, s)
		}
	}
	pl.segments = kept
}

// joinLimits bounds how far apart detached points may be joined.
type joinLimits struct {
	// warn is the distance above which a join is logged; strict mode
	// refuses such joins instead.
	warn float64
	// max is the distance above which points are never joined.
	max    float64
	strict bool
}

// connectDetached pairs vertices whose in and out degrees differ with the
// nearest detached vertex of opposite polarity and adds a segment between
// them. It returns the number of detached vertices found.
func (pl *plane) connectDetached(lim joinLimits) (int, error) {
	balance := make([]int, len(pl.vertices))
	for _, s := range pl.segments {
		balance[s.start]++
		balance[s.end]--
	}
	var detached []int
	for v, b := range balance {
		if b != 0 {
			detached = append(detached, v)
		}
	}
	if len(detached)%2 != 0 {
		return len(detached), fmt.Errorf("%w: %d points", ErrOddDetached, len(detached))
	}
	used := make([]bool, len(detached))
	for i, n := range detached {
		if used[i] {
			continue
		}
		nearest, nearestD := -1, math.Inf(1)
		for j := i + 1; j < len(detached); j++ {
			if used[j] || (balance[detached[j]] > 0) == (balance[n] > 0) {
				continue
			}
			if d := geom.Dist2(pl.vertices[n], pl.vertices[detached[j]]); d < nearestD {
				nearest, nearestD = j, d
			}
		}
		if nearest < 0 {
			continue
		}
		dist := math.Sqrt(nearestD)
		if dist > lim.max {
			logging.Logger().Warn("slicer: detached points too far apart, not joining",
				"z", pl.z, "dist", dist)
			continue
		}
		if dist > lim.warn {
			if lim.strict {
				logging.Logger().Debug("slicer: refusing long join", "z", pl.z, "dist", dist)
				continue
			}
			logging.Logger().Warn("slicer: joining distant detached points", "z", pl.z, "dist", dist)
		}
		seg := segment{start: n, end: detached[nearest]}
		if balance[n] > 0 {
			seg.start, seg.end = seg.end, seg.start
		}
		pl.segments = append(pl.segments, seg)
		used[i], used[nearest] = true, true
	}
	return len(detached), nil
}

// makePolygons walks the segments into closed loops. Each loop is cleaned
// with tolerance tol; loops that collapse are dropped.
func (pl *plane) makePolygons(tol float64) ([]geom.Poly, error) {
	if len(pl.vertices) == 0 {
		return nil, nil
	}
	from := make([][]int, len(pl.vertices))
	for i, s := range pl.segments {
		from[s.start] = append(from[s.start], i)
	}
	for _, f := range from {
		sort.Ints(f)
	}
	used := make([]bool, len(pl.segments))
	var polys []geom.Poly
	for cur := range pl.segments {
		if used[cur] {
			continue
		}
		used[cur] = true
		start, end := pl.segments[cur].start, pl.segments[cur].end
		poly := geom.NewPoly(pl.z, pl.vertices[end])
		count := len(pl.segments) + 100
		for end != start && count > 0 {
			next := -1
			for _, i := range from[end] {
				if !used[i] {
					next = i
					break
				}
			}
			if next < 0 {
				return nil, fmt.Errorf("%w: dead end at (%.4f, %.4f)", ErrOpenLoop, pl.vertices[end].X, pl.vertices[end].Y)
			}
			used[next] = true
			end = pl.segments[next].end
			poly.Points = append(poly.Points, pl.vertices[end])
			count--
		}
		if count == 0 {
			return nil, fmt.Errorf("%w: loop did not close", ErrOpenLoop)
		}
		poly.Cleanup(tol)
		if poly.Empty() {
			continue
		}
		polys = append(polys, poly)
	}
	return polys, nil
}
