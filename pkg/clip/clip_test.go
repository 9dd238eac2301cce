package clip

import (
	"math"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/lamina/pkg/geom"
)

func square(z, x0, y0, size float64) geom.Poly {
	return geom.Rect(z, v2.Vec{X: x0, Y: y0}, v2.Vec{X: x0 + size, Y: y0 + size})
}

func TestSessionRoundTrip(t *testing.T) {
	s := NewSession()
	p := geom.NewPoly(2, v2.Vec{X: -3.25, Y: 1}, v2.Vec{X: 4.5, Y: 1}, v2.Vec{X: 0, Y: 7.125})
	back := s.FromPath(s.ToPath(p), p.Z, 1)
	require.Len(t, back.Points, 3)
	for i := range p.Points {
		assert.InDelta(t, p.Points[i].X, back.Points[i].X, 1e-9)
		assert.InDelta(t, p.Points[i].Y, back.Points[i].Y, 1e-9)
	}
}

func TestSessionOrigin(t *testing.T) {
	s := NewSession()
	if got := s.ToPath(geom.NewPoly(0, v2.Vec{X: -DefaultOrigin, Y: 0}))[0].X; got != 0 {
		t.Errorf("ToPath(-origin).X = %v, want 0", got)
	}
	custom := Session{Scale: 100, Origin: 5}
	back := custom.FromPath(custom.ToPath(geom.NewPoly(0, v2.Vec{X: -2.5, Y: 3})), 0, 1)
	assert.InDelta(t, -2.5, back.Points[0].X, 1e-9)
	assert.InDelta(t, 3, back.Points[0].Y, 1e-9)
	got := custom.Offset([]geom.Poly{square(0, 0, 0, 10)}, -1, JoinMiter, 2)
	require.Len(t, got, 1)
	assert.InDelta(t, 64, got[0].Area(), 1e-6)
}

func TestOffsetInwardMiter(t *testing.T) {
	s := NewSession()
	got := s.Offset([]geom.Poly{square(5, 0, 0, 10)}, -2, JoinMiter, 1)
	require.Len(t, got, 1)
	assert.InDelta(t, 36, got[0].Area(), 1e-6)
	assert.Equal(t, 5.0, got[0].Z)
	min, max := got[0].BBox()
	assert.InDelta(t, 2, min.X, 1e-6)
	assert.InDelta(t, 2, min.Y, 1e-6)
	assert.InDelta(t, 8, max.X, 1e-6)
	assert.InDelta(t, 8, max.Y, 1e-6)
	assert.False(t, got[0].IsHole())
}

func TestOffsetOutInBounded(t *testing.T) {
	s := NewSession()
	orig := []geom.Poly{geom.NewPoly(0, v2.Vec{}, v2.Vec{X: 10}, v2.Vec{X: 4, Y: 8})}
	for _, join := range []Join{JoinSquare, JoinMiter, JoinRound} {
		d := 0.5
		back := s.Offset(s.Offset(orig, d, join, 2), -d, join, 2)
		diff := math.Abs(Area(back) - Area(orig))
		if diff > d*d*float64(len(orig[0].Points))*4 {
			t.Errorf("join %d: area drift %v too large", join, diff)
		}
	}
}

func TestBooleanIdentities(t *testing.T) {
	s := NewSession()
	a := []geom.Poly{square(1, 0, 0, 10), square(1, 20, 0, 5)}

	u := s.Union(append(geom.Clone(a), geom.Clone(a)...))
	assert.InDelta(t, Area(a), Area(u), 1e-6)
	assert.Len(t, u, 2)

	assert.Empty(t, s.Subtract(a, a))
	assert.Empty(t, s.Intersect(a, nil))
	assert.Empty(t, s.Intersect(nil, a))
}

func TestHoleOrientationPreserved(t *testing.T) {
	s := NewSession()
	hole := square(0, 3, 3, 4)
	hole.Reverse()
	in := []geom.Poly{square(0, 0, 0, 10), hole}

	for i := 0; i < 3; i++ {
		in = s.Union(in)
		require.Len(t, in, 2)
		holes := 0
		for _, p := range in {
			if p.IsHole() {
				holes++
				assert.InDelta(t, -16, p.Area(), 1e-6)
			}
		}
		if holes != 1 {
			t.Fatalf("pass %d: %d holes, want 1", i, holes)
		}
	}
	assert.InDelta(t, 84, Area(in), 1e-6)
}

func TestMetadataFromLastSubject(t *testing.T) {
	s := NewSession()
	subj := square(3, 0, 0, 10)
	subj.ExtrusionFactor = 0.5
	clp := square(9, 5, 5, 10)
	got := s.Subtract([]geom.Poly{subj}, []geom.Poly{clp})
	require.NotEmpty(t, got)
	assert.Equal(t, 3.0, got[0].Z)
	assert.Equal(t, 0.5, got[0].ExtrusionFactor)
	assert.InDelta(t, 75, Area(got), 1e-6)
}

func TestXor(t *testing.T) {
	s := NewSession()
	got := s.Xor([]geom.Poly{square(0, 0, 0, 10)}, []geom.Poly{square(0, 5, 0, 10)})
	assert.InDelta(t, 100, Area(got), 1e-6)
}

func TestMergeWeldsAdjacent(t *testing.T) {
	s := NewSession()
	got := s.Merge([]geom.Poly{square(0, 0, 0, 10), square(0, 10, 0, 10)}, 0.01)
	require.Len(t, got, 1)
	assert.InDelta(t, 200, got[0].Area(), 1e-3)
}

func TestShrinkedCappedDropsNarrow(t *testing.T) {
	s := NewSession()
	wide := square(0, 0, 0, 10)
	narrow := geom.Rect(0, v2.Vec{X: 20, Y: 0}, v2.Vec{X: 21, Y: 10})
	got := s.ShrinkedCapped([]geom.Poly{wide, narrow}, 0.5, JoinMiter)
	require.Len(t, got, 1)
	min, _ := got[0].BBox()
	assert.Less(t, min.X, 10.0)
}

func TestExPolys(t *testing.T) {
	s := NewSession()
	hole := square(0, 2, 2, 6)
	hole.Reverse()
	island := square(0, 4, 4, 2)
	ex := s.ExPolys([]geom.Poly{square(0, 0, 0, 10), hole, island})
	require.Len(t, ex, 2)

	var outer geom.ExPoly
	for _, e := range ex {
		if len(e.Holes) == 1 {
			outer = e
		}
	}
	require.Len(t, outer.Holes, 1)
	assert.InDelta(t, 64, outer.Area(), 1e-6)
}

func TestIntersectLines(t *testing.T) {
	s := NewSession()
	line := geom.NewLine(0, v2.Vec{X: -5, Y: 5}, v2.Vec{X: 15, Y: 5})
	line.ExtrusionFactor = 0.8
	got := s.IntersectLines([]geom.Poly{line}, []geom.Poly{square(2, 0, 0, 10)})
	require.Len(t, got, 1)
	require.Len(t, got[0].Points, 2)
	assert.True(t, got[0].Open)
	assert.Equal(t, 2.0, got[0].Z)
	assert.Equal(t, 0.8, got[0].ExtrusionFactor)
	assert.InDelta(t, 10, got[0].Length(), 1e-6)
}
