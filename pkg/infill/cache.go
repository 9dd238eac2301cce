package infill

import (
	"math"
	"sync"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Cache holds generated patterns by key. It is safe for concurrent use by
// the per-layer infill workers.
type Cache struct {
	mu       sync.Mutex
	patterns map[Key]*Pattern
	made     int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{patterns: make(map[Key]*Pattern)}
}

// Get returns a pattern for k covering the box [min, max]. A cached
// pattern is reused when it covers the box; otherwise a new one is made
// for the union of the old and new boxes and replaces it.
func (c *Cache) Get(k Key, min, max v2.Vec) *Pattern {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.patterns[k]
	if ok && p.Covers(min, max) {
		return p
	}
	if ok {
		min = v2.Vec{X: math.Min(min.X, p.coverMin.X), Y: math.Min(min.Y, p.coverMin.Y)}
		max = v2.Vec{X: math.Max(max.X, p.coverMax.X), Y: math.Max(max.Y, p.coverMax.Y)}
	}
	p = newPattern(k, min, max)
	c.patterns[k] = p
	c.made++
	return p
}

// Generated returns how many patterns the cache has built.
func (c *Cache) Generated() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.made
}
