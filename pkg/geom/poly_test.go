package geom

import (
	"math"
	"testing"

	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(z, size float64) Poly {
	return Rect(z, v2.Vec{}, v2.Vec{X: size, Y: size})
}

func TestAreaOrientation(t *testing.T) {
	tests := []struct {
		name     string
		reverse  bool
		wantArea float64
		wantHole bool
	}{
		{"ccw solid", false, 100, false},
		{"cw hole", true, -100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := square(0, 10)
			if tt.reverse {
				p.Reverse()
			}
			if got := p.Area(); got != tt.wantArea {
				t.Errorf("Area() = %v, want %v", got, tt.wantArea)
			}
			if got := p.IsHole(); got != tt.wantHole {
				t.Errorf("IsHole() = %v, want %v", got, tt.wantHole)
			}
		})
	}
}

func TestCenter(t *testing.T) {
	p := Rect(0, v2.Vec{X: 2, Y: 2}, v2.Vec{X: 6, Y: 4})
	c := p.Center()
	assert.InDelta(t, 4, c.X, 1e-9)
	assert.InDelta(t, 3, c.Y, 1e-9)

	line := NewLine(0, v2.Vec{}, v2.Vec{X: 4})
	c = line.Center()
	assert.InDelta(t, 2, c.X, 1e-9)
}

func TestCleanupRemovesCollinearAndDuplicates(t *testing.T) {
	p := NewPoly(0,
		v2.Vec{X: 0, Y: 0},
		v2.Vec{X: 5, Y: 0},
		v2.Vec{X: 5.00001, Y: 0},
		v2.Vec{X: 10, Y: 0},
		v2.Vec{X: 10, Y: 10},
		v2.Vec{X: 0, Y: 10},
	)
	p.Cleanup(1e-3)
	require.Len(t, p.Points, 4)
	assert.InDelta(t, 100, p.Area(), 1e-9)
}

func TestContains(t *testing.T) {
	p := square(0, 10)
	tests := []struct {
		pt   v2.Vec
		want bool
	}{
		{v2.Vec{X: 5, Y: 5}, true},
		{v2.Vec{X: 11, Y: 5}, false},
		{v2.Vec{X: -1, Y: -1}, false},
	}
	for _, tt := range tests {
		if got := p.Contains(tt.pt); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.pt, got, tt.want)
		}
	}
}

func TestRotateKeepsOrientation(t *testing.T) {
	p := square(0, 10)
	p.Rotate(v2.Vec{X: 5, Y: 5}, math.Pi/3)
	assert.InDelta(t, 100, p.Area(), 1e-9)
	c := p.Center()
	assert.InDelta(t, 5, c.X, 1e-9)
	assert.InDelta(t, 5, c.Y, 1e-9)
}

func TestPathClosedRepeatsStart(t *testing.T) {
	p := square(0, 10)
	path := p.Path(2)
	require.Len(t, path, 5)
	assert.Equal(t, p.Points[2], path[0])
	assert.Equal(t, p.Points[2], path[4])
}

func TestPathOpenReversedFromEnd(t *testing.T) {
	l := NewLine(0, v2.Vec{X: 0}, v2.Vec{X: 3})
	path := l.Path(1)
	require.Len(t, path, 2)
	assert.Equal(t, 3.0, path[0].X)
}

func TestNearestAndFarthest(t *testing.T) {
	p := square(0, 10)
	i, d := p.Nearest(v2.Vec{X: 9, Y: 9})
	if i != 2 || d != 2 {
		t.Errorf("Nearest() = %d, %v, want 2, 2", i, d)
	}
	if got := p.Farthest(v2.Vec{X: 9, Y: 9}); got != 0 {
		t.Errorf("Farthest() = %d, want 0", got)
	}
}

func TestConvexHull(t *testing.T) {
	pts := []v2.Vec{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
		{X: 5, Y: 5}, {X: 2, Y: 8},
	}
	h := ConvexHull(1, pts)
	require.Len(t, h.Points, 4)
	assert.InDelta(t, 100, h.Area(), 1e-9)
	assert.Equal(t, 1.0, h.Z)

	if got := ConvexHull(0, pts[:2]); !got.Empty() {
		t.Errorf("ConvexHull of two points = %v, want empty", got.Points)
	}
}

func TestExPolyArea(t *testing.T) {
	hole := Rect(0, v2.Vec{X: 2, Y: 2}, v2.Vec{X: 4, Y: 4})
	hole.Reverse()
	e := ExPoly{Outer: square(0, 10), Holes: []Poly{hole}}
	assert.InDelta(t, 96, e.Area(), 1e-9)
	assert.Len(t, e.Polys(), 2)
}

func TestBBox(t *testing.T) {
	_, _, ok := BBox(nil)
	assert.False(t, ok)

	min, max, ok := BBox([]Poly{square(0, 10), Rect(0, v2.Vec{X: -5, Y: 2}, v2.Vec{X: 1, Y: 20})})
	require.True(t, ok)
	assert.Equal(t, v2.Vec{X: -5, Y: 0}, min)
	assert.Equal(t, v2.Vec{X: 10, Y: 20}, max)
}
