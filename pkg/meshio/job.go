package meshio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"gopkg.in/yaml.v3"

	"github.com/chazu/lamina/pkg/graph"
)

// Job is a YAML plate description:
//
//	settings: printer.toml
//	pinned: [12]
//	objects:
//	  - name: bracket
//	    files:
//	      - path: bracket.stl
//	        translate: [20, 0, 0]
//	        rotate: [0, 0, 90]
//	        scale: [1.5]
type Job struct {
	Settings string   `yaml:"settings,omitempty"`
	Pinned   []int    `yaml:"pinned,omitempty"`
	Objects  []Object `yaml:"objects"`

	dir string
}

// Object groups the files printed as one object.
type Object struct {
	Name  string `yaml:"name"`
	Files []File `yaml:"files"`
}

// File places one STL file. Rotation is in degrees; a single scale value
// scales uniformly.
type File struct {
	Path      string    `yaml:"path"`
	Translate []float64 `yaml:"translate,omitempty"`
	Rotate    []float64 `yaml:"rotate,omitempty"`
	Scale     []float64 `yaml:"scale,omitempty"`
}

// LoadJob reads a job file. Relative paths in it are resolved against the
// file's directory.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("meshio: %w", err)
	}
	job, err := ParseJob(data)
	if err != nil {
		return nil, fmt.Errorf("meshio: %s: %w", path, err)
	}
	job.dir = filepath.Dir(path)
	return job, nil
}

// ParseJob decodes and checks a job description.
func ParseJob(data []byte) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	var errs []error
	if len(job.Objects) == 0 {
		errs = append(errs, errors.New("no objects"))
	}
	for i, o := range job.Objects {
		if o.Name == "" {
			errs = append(errs, fmt.Errorf("object %d has no name", i))
		}
		if len(o.Files) == 0 {
			errs = append(errs, fmt.Errorf("object %q has no files", o.Name))
		}
		for _, f := range o.Files {
			if f.Path == "" {
				errs = append(errs, fmt.Errorf("object %q: file without path", o.Name))
			}
			for name, v := range map[string][]float64{"translate": f.Translate, "rotate": f.Rotate} {
				if len(v) != 0 && len(v) != 3 {
					errs = append(errs, fmt.Errorf("object %q: %s needs 3 values, got %d", o.Name, name, len(v)))
				}
			}
			if n := len(f.Scale); n != 0 && n != 1 && n != 3 {
				errs = append(errs, fmt.Errorf("object %q: scale needs 1 or 3 values, got %d", o.Name, n))
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &job, nil
}

func (j *Job) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(j.dir, path)
}

// Plate loads every file of the job and places it. A file used more than
// once is read once.
func (j *Job) Plate() (*Plate, error) {
	g := graph.New()
	shapes := map[string]graph.NodeID{}
	var files []string
	for _, o := range j.Objects {
		var children []graph.NodeID
		for i, f := range o.Files {
			path := j.resolve(f.Path)
			id, ok := shapes[path]
			if !ok {
				m, err := LoadSTL(path)
				if err != nil {
					return nil, err
				}
				m.Name = path
				id = g.AddShape(graph.NewMeshShape(path, m))
				shapes[path] = id
				files = append(files, path)
			}
			children = append(children, g.Place(id, o.Name+"#"+strconv.Itoa(i), f.transform()))
		}
		g.AddObject(o.Name, children...)
	}
	if errs := graph.Validate(g); graph.HasErrors(errs) {
		return nil, fmt.Errorf("meshio: invalid job: %v", errs)
	}
	return &Plate{Graph: g, Pinned: j.Pinned, Settings: j.resolve(j.Settings), Files: files}, nil
}

func vec(v []float64) *v3.Vec {
	if len(v) != 3 {
		return nil
	}
	return &v3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

func (f File) transform() graph.TransformData {
	td := graph.TransformData{Translation: vec(f.Translate), Rotation: vec(f.Rotate), Scale: vec(f.Scale)}
	if len(f.Scale) == 1 {
		s := f.Scale[0]
		td.Scale = &v3.Vec{X: s, Y: s, Z: s}
	}
	return td
}
