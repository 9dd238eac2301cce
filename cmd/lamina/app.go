package main

import (
	"fmt"

	"github.com/chazu/lamina/pkg/graph"
	"github.com/chazu/lamina/pkg/kernel"
	"github.com/chazu/lamina/pkg/kernel/sdfx"
	"github.com/chazu/lamina/pkg/meshio"
	"github.com/chazu/lamina/pkg/settings"
	"github.com/chazu/lamina/pkg/tessellate"
)

// app loads inputs for the commands. Constructive solids are realized by
// the sdfx kernel.
type app struct {
	kernel kernel.Kernel
	opts   *rootOptions
}

func newApp(o *rootOptions) *app {
	return &app{kernel: sdfx.New(), opts: o}
}

// job is one loaded input, ready for the pipeline.
type job struct {
	instances []graph.Instance
	pinned    []int
	store     *settings.Store
	snap      *settings.Snapshot
	// files are the paths whose change invalidates the job.
	files []string
}

func (a *app) load(path string) (*job, error) {
	plate, err := meshio.Load(path)
	if err != nil {
		return nil, err
	}
	instances, err := tessellate.Tessellate(plate.Graph, a.kernel)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, fmt.Errorf("%s places no shapes", path)
	}
	j := &job{instances: instances, pinned: plate.Pinned, files: append([]string{path}, plate.Files...)}

	cfg := a.opts.config
	if cfg == "" {
		cfg = plate.Settings
	}
	if j.store, err = a.settings(cfg); err != nil {
		return nil, err
	}
	if cfg != "" {
		j.files = append(j.files, cfg)
	}
	if j.snap, err = settings.Decode(j.store); err != nil {
		return nil, err
	}
	return j, nil
}

// settings returns the defaults, overlaid by path when given.
func (a *app) settings(path string) (*settings.Store, error) {
	if path == "" {
		return settings.New(), nil
	}
	return settings.Load(path)
}
