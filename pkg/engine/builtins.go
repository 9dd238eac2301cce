package engine

import (
	"fmt"
	"strings"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/lamina/pkg/geom"
	"github.com/chazu/lamina/pkg/graph"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpSolid wraps a constructive solid returned by box, cylinder and the
// boolean builtins.
type sexpSolid struct {
	spec graph.SolidSpec
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s)", s.spec.Prim)
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// sexpOutline wraps one closed flat contour. Holes wind clockwise.
type sexpOutline struct {
	poly geom.Poly
}

func (o *sexpOutline) SexpString(ps *zygo.PrintState) string {
	kind := "outline"
	if o.poly.IsHole() {
		kind = "hole"
	}
	return fmt.Sprintf("(%s %d points)", kind, o.poly.Len())
}
func (o *sexpOutline) Type() *zygo.RegisteredType { return nil }

// sexpNodeRef wraps a graph.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   graph.NodeID
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(noderef %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec wraps a vector built by vec2 or vec3.
type sexpVec struct {
	vec  v3.Vec
	flat bool
}

func (v *sexpVec) SexpString(ps *zygo.PrintState) string {
	if v.flat {
		return fmt.Sprintf("(vec2 %g %g)", v.vec.X, v.vec.Y)
	}
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string and returns the
// keyword name without its prefix.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. A
// trailing keyword with no value maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// float reads an optional numeric keyword into dst.
func (a kwArgs) float(key string, dst *float64) error {
	v, ok := a.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toNodeRef extracts a NodeID from a sexpNodeRef.
func toNodeRef(s zygo.Sexp) (*sexpNodeRef, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref, nil
	}
	return nil, fmt.Errorf("expected shape or placement reference, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a vector; a vec2 is accepted with Z = 0.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toScale accepts a vec3 or a single number for uniform scaling.
func toScale(s zygo.Sexp) (v3.Vec, error) {
	if f, err := toFloat64(s); err == nil {
		return v3.Vec{X: f, Y: f, Z: f}, nil
	}
	return toVec3(s)
}

// toSolid extracts a SolidSpec from a sexpSolid.
func toSolid(s zygo.Sexp) (graph.SolidSpec, error) {
	if sol, ok := s.(*sexpSolid); ok {
		return sol.spec, nil
	}
	return graph.SolidSpec{}, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// toPoints converts vec2 arguments into contour points.
func toPoints(args []zygo.Sexp) ([]v2.Vec, error) {
	pts := make([]v2.Vec, 0, len(args))
	for i, a := range args {
		v, ok := a.(*sexpVec)
		if !ok || !v.flat {
			return nil, fmt.Errorf("point %d: expected vec2, got %T (%s)", i, a, a.SexpString(nil))
		}
		pts = append(pts, v2.Vec{X: v.vec.X, Y: v.vec.Y})
	}
	if len(pts) < 3 {
		return nil, fmt.Errorf("need at least 3 points, got %d", len(pts))
	}
	return pts, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// flattenArgs expands list and array arguments in place, so builtins that
// take children accept both (object "a" x y) and (object "a" (list x y)).
func flattenArgs(args []zygo.Sexp) []zygo.Sexp {
	var out []zygo.Sexp
	for _, a := range args {
		if items, err := sexpListToSlice(a); err == nil {
			out = append(out, items...)
			continue
		}
		out = append(out, a)
	}
	return out
}

// rotateOffset returns o turned by the given Euler angles in degrees.
func rotateOffset(o, deg v3.Vec) v3.Vec {
	return graph.TransformData{Rotation: &deg}.Matrix().MulPosition(o)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the plate builtins into a zygomys environment.
// The builtins populate g during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, g *graph.PlateGraph) {
	// placements counts placements per child, so each gets a stable key.
	placements := make(map[graph.NodeID]int)

	// -----------------------------------------------------------------------
	// (vec2 x y) / (vec3 x y z)
	// -----------------------------------------------------------------------
	vec := func(n int) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != n {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly %d arguments, got %d", name, n, len(args))
			}
			var c [3]float64
			for i, a := range args {
				f, err := toFloat64(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: %c: %w", name, "xyz"[i], err)
				}
				c[i] = f
			}
			return &sexpVec{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}, flat: n == 2}, nil
		}
	}
	env.AddFunction("vec2", vec(2))
	env.AddFunction("vec3", vec(3))

	// -----------------------------------------------------------------------
	// (box :size (vec3 20 20 10)) or (box 20 20 10)
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		spec := graph.SolidSpec{Prim: graph.PrimBox}
		switch {
		case pa.kw["size"] != nil:
			v, err := toVec3(pa.kw["size"])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
			}
			spec.Size = v
		case len(pa.positional) == 3:
			v, err := vec(3)(env, "box", pa.positional)
			if err != nil {
				return zygo.SexpNull, err
			}
			spec.Size = v.(*sexpVec).vec
		default:
			return zygo.SexpNull, fmt.Errorf("box requires :size (vec3 x y z) or three dimensions")
		}
		if spec.Size.X <= 0 || spec.Size.Y <= 0 || spec.Size.Z <= 0 {
			return zygo.SexpNull, fmt.Errorf("box: size %v must be positive", spec.Size)
		}
		return &sexpSolid{spec: spec}, nil
	})

	// -----------------------------------------------------------------------
	// (cylinder :height 10 :radius 4)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		spec := graph.SolidSpec{Prim: graph.PrimCylinder}
		if err := pa.float("height", &spec.Height); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if err := pa.float("radius", &spec.Radius); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if spec.Height <= 0 || spec.Radius <= 0 {
			return zygo.SexpNull, fmt.Errorf("cylinder requires positive :height and :radius")
		}
		return &sexpSolid{spec: spec}, nil
	})

	// -----------------------------------------------------------------------
	// (union a b ...) (difference a b ...) (intersection a b ...)
	// -----------------------------------------------------------------------
	boolean := func(prim graph.Prim) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			args = flattenArgs(args)
			if len(args) < 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least 2 solids, got %d", name, len(args))
			}
			spec := graph.SolidSpec{Prim: prim}
			for i, a := range args {
				op, err := toSolid(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: operand %d: %w", name, i, err)
				}
				spec.Operands = append(spec.Operands, op)
			}
			return &sexpSolid{spec: spec}, nil
		}
	}
	env.AddFunction("union", boolean(graph.PrimUnion))
	env.AddFunction("difference", boolean(graph.PrimDifference))
	env.AddFunction("intersection", boolean(graph.PrimIntersection))

	// -----------------------------------------------------------------------
	// (translate solid (vec3 x y z))
	// -----------------------------------------------------------------------
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("translate requires a solid and a vec3")
		}
		spec, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		d, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("translate: %w", err)
		}
		spec.Offset = spec.Offset.Add(d)
		return &sexpSolid{spec: spec}, nil
	})

	// -----------------------------------------------------------------------
	// (rotate solid (vec3 rx ry rz)) - degrees, about the origin
	// -----------------------------------------------------------------------
	env.AddFunction("rotate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("rotate requires a solid and a vec3 of degrees")
		}
		spec, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: %w", err)
		}
		r, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate: %w", err)
		}
		if spec.Rotation != (v3.Vec{}) {
			// Euler angles do not add; nest the solid in a placement instead.
			return zygo.SexpNull, fmt.Errorf("rotate: solid is already rotated; rotate its placement instead")
		}
		spec.Rotation = r
		spec.Offset = rotateOffset(spec.Offset, r)
		return &sexpSolid{spec: spec}, nil
	})

	// -----------------------------------------------------------------------
	// (outline (vec2 0 0) (vec2 10 0) (vec2 10 10)) - solid contour, CCW
	// (hole (vec2 2 2) (vec2 4 2) (vec2 4 4))       - hole contour, CW
	// -----------------------------------------------------------------------
	contour := func(hole bool) zygo.ZlispUserFunction {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pts, err := toPoints(flattenArgs(args))
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			p := geom.NewPoly(0, pts...)
			if p.Area() == 0 {
				return zygo.SexpNull, fmt.Errorf("%s: contour has no area", name)
			}
			if p.IsHole() != hole {
				p.Reverse()
			}
			return &sexpOutline{poly: p}, nil
		}
	}
	env.AddFunction("outline", contour(false))
	env.AddFunction("hole", contour(true))

	// -----------------------------------------------------------------------
	// (defshape "name" solid) or (defshape "name" outline hole ...)
	// -----------------------------------------------------------------------
	env.AddFunction("defshape", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("defshape requires a name and a body expression")
		}
		shapeName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defshape: name: %w", err)
		}
		if g.Lookup(shapeName) != nil {
			return zygo.SexpNull, fmt.Errorf("defshape: %q is already defined", shapeName)
		}

		var shape *graph.Shape
		body := flattenArgs(args[1:])
		if sol, ok := body[0].(*sexpSolid); ok {
			if len(body) != 1 {
				return zygo.SexpNull, fmt.Errorf("defshape: %q takes a single solid; combine solids with union", shapeName)
			}
			shape = graph.NewSolidShape(shapeName, sol.spec)
		} else {
			var outline []geom.Poly
			for i, b := range body {
				o, ok := b.(*sexpOutline)
				if !ok {
					return zygo.SexpNull, fmt.Errorf("defshape: body %d: expected solid or outline, got %T (%s)",
						i, b, b.SexpString(nil))
				}
				outline = append(outline, o.poly)
			}
			if outline[0].IsHole() {
				return zygo.SexpNull, fmt.Errorf("defshape: %q must start with an outline, not a hole", shapeName)
			}
			shape = graph.NewFlatShape(shapeName, outline)
		}

		id := g.AddShape(shape)
		return &sexpNodeRef{id: id, name: shapeName}, nil
	})

	// -----------------------------------------------------------------------
	// (shape "name")
	// -----------------------------------------------------------------------
	env.AddFunction("shape", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("shape requires a name argument")
		}
		shapeName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("shape: name: %w", err)
		}
		n := g.Lookup(shapeName)
		if n == nil || n.Kind != graph.NodeShape {
			return zygo.SexpNull, fmt.Errorf("shape: no shape named %q", shapeName)
		}
		return &sexpNodeRef{id: n.ID, name: shapeName}, nil
	})

	// -----------------------------------------------------------------------
	// (place (shape "peg") :at (vec3 0 0 0) :rotate (vec3 0 0 45) :scale 2)
	// -----------------------------------------------------------------------
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("place requires a shape reference as first argument")
		}
		child, err := toNodeRef(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		if n := g.Get(child.id); n != nil && n.Kind == graph.NodeObject {
			return zygo.SexpNull, fmt.Errorf("place: %q is an object; objects cannot be placed", child.name)
		}

		td := graph.TransformData{}
		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: at: %w", err)
			}
			td.Translation = &vec
		}
		if v, ok := pa.kw["rotate"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: rotate: %w", err)
			}
			td.Rotation = &vec
		}
		if v, ok := pa.kw["scale"]; ok {
			vec, err := toScale(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: scale: %w", err)
			}
			td.Scale = &vec
		}

		key := fmt.Sprintf("%d", placements[child.id])
		placements[child.id]++
		id := g.Place(child.id, key, td)
		return &sexpNodeRef{id: id, name: child.name}, nil
	})

	// -----------------------------------------------------------------------
	// (object "name" (place ...) (shape "n") ...)
	// -----------------------------------------------------------------------
	env.AddFunction("object", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("object requires a name and at least one child")
		}
		objName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("object: name: %w", err)
		}
		if g.Lookup(objName) != nil {
			return zygo.SexpNull, fmt.Errorf("object: %q is already defined", objName)
		}

		var children []graph.NodeID
		for i, a := range flattenArgs(args[1:]) {
			ref, err := toNodeRef(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("object: child %d: %w", i+1, err)
			}
			children = append(children, ref.id)
		}

		id := g.AddObject(objName, children...)
		return &sexpNodeRef{id: id, name: objName}, nil
	})
}
