// Package pipeline runs the whole slicing process: placed shapes are cut
// into layer stacks, the stacks are processed into shells, surfaces,
// support and infill, and the result is written as G-code.
//
// A run reads one settings.Snapshot. Progress is reported per stage and a
// canceled run returns progress.ErrCanceled; the stacks built so far must
// be discarded.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/chazu/lamina/pkg/clip"
	"github.com/chazu/lamina/pkg/gcode"
	"github.com/chazu/lamina/pkg/graph"
	"github.com/chazu/lamina/pkg/infill"
	"github.com/chazu/lamina/pkg/layer"
	"github.com/chazu/lamina/pkg/progress"
	"github.com/chazu/lamina/pkg/settings"
)

// Generator names lamina in the G-code banner.
const Generator = "lamina"

// Pipeline holds what the stages of one run share.
type Pipeline struct {
	snap  *settings.Snapshot
	prog  progress.Progress
	clip  clip.Session
	cache *infill.Cache

	// Now stamps the G-code banner.
	Now func() time.Time
	// Pinned numbers layers of the first stack that get no bridges and no
	// support from above.
	Pinned []int
}

// New returns a pipeline for snap. A nil p reports nothing.
func New(snap *settings.Snapshot, p progress.Progress) *Pipeline {
	if p == nil {
		p = progress.Nop{}
	}
	return &Pipeline{
		snap:  snap,
		prog:  p,
		clip:  clip.NewSession(),
		cache: infill.NewCache(),
		Now:   time.Now,
	}
}

// Run slices instances, processes every stack and writes the G-code to w.
func (pl *Pipeline) Run(ctx context.Context, w io.Writer, instances []graph.Instance) (gcode.Stats, error) {
	stacks, err := pl.Build(ctx, instances)
	if err != nil {
		return gcode.Stats{}, err
	}
	return pl.Generate(ctx, w, stacks)
}

// Build slices and processes instances, adding a raft under every stack
// when enabled.
func (pl *Pipeline) Build(ctx context.Context, instances []graph.Instance) ([]*layer.Stack, error) {
	stacks, err := pl.Slice(ctx, instances)
	if err != nil {
		return nil, err
	}
	if len(stacks) > 0 {
		Pin(stacks[0], pl.Pinned...)
	}
	for _, st := range stacks {
		if err := pl.Process(ctx, st); err != nil {
			return nil, err
		}
	}
	if pl.snap.Raft.Enable {
		// serial builds print each object on its own raft
		for _, st := range stacks {
			if err := pl.Raft(st); err != nil {
				return nil, err
			}
		}
	}
	return stacks, nil
}

// Pin marks the numbered layers of st as pinned.
func Pin(st *layer.Stack, numbers ...int) {
	for _, n := range numbers {
		if n >= 0 && n < st.Len() {
			st.Layers[n].Pinned = true
		}
	}
}
