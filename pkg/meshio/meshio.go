// Package meshio loads what lamina slices: STL meshes, plate scripts and
// YAML job files that place meshes on the plate. Every loader produces a
// plate graph, so placements are composed by the tessellate package.
package meshio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deadsy/sdfx/render"

	"github.com/chazu/lamina/pkg/engine"
	"github.com/chazu/lamina/pkg/graph"
	"github.com/chazu/lamina/pkg/kernel"
	"github.com/chazu/lamina/pkg/logging"
)

// ErrUnsupported is returned for files whose extension no loader handles.
var ErrUnsupported = errors.New("meshio: unsupported file type")

// Plate is a loaded input: the plate graph plus what a job file adds.
type Plate struct {
	Graph *graph.PlateGraph
	// Pinned numbers layers that get no bridges and no support from above.
	Pinned []int
	// Settings is the config file named by a job file, relative paths
	// resolved against the job's directory.
	Settings string
	// Files are the mesh files a job reads.
	Files []string
}

// Load reads path by its extension: .stl, .yaml or .yml job files and .zy
// plate scripts.
func Load(path string) (*Plate, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		m, err := LoadSTL(path)
		if err != nil {
			return nil, err
		}
		g := graph.New()
		g.AddObject(m.Name, g.AddShape(graph.NewMeshShape(path, m)))
		return &Plate{Graph: g}, nil
	case ".yaml", ".yml":
		job, err := LoadJob(path)
		if err != nil {
			return nil, err
		}
		return job.Plate()
	case ".zy":
		return LoadScript(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

// LoadSTL reads an ASCII or binary STL file into a mesh named after the
// file. Degenerate triangles are dropped.
func LoadSTL(path string) (*kernel.Mesh, error) {
	tris, err := render.LoadSTL(path)
	if err != nil {
		return nil, fmt.Errorf("meshio: read %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m := &kernel.Mesh{Name: name, Triangles: make([]kernel.Triangle, 0, len(tris))}
	dropped := 0
	for _, t := range tris {
		kt := kernel.NewTriangle(t[0], t[1], t[2])
		if kt.N.Length() == 0 {
			dropped++
			continue
		}
		m.Triangles = append(m.Triangles, kt)
	}
	if dropped > 0 {
		logging.Logger().Warn("degenerate triangles dropped", "file", path, "count", dropped)
	}
	if m.IsEmpty() {
		return nil, fmt.Errorf("meshio: %s holds no triangles", path)
	}
	return m, nil
}

// LoadScript evaluates a plate script.
func LoadScript(path string) (*Plate, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("meshio: %w", err)
	}
	g, evalErrs, err := engine.NewEngine().Evaluate(string(src))
	if err != nil {
		return nil, fmt.Errorf("meshio: %s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			errs[i] = e
		}
		return nil, fmt.Errorf("meshio: %s: %w", path, errors.Join(errs...))
	}
	return &Plate{Graph: g}, nil
}
