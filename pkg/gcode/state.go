package gcode

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/lamina/pkg/logging"
)

// noEffectDist2 and noEffectE bound moves that would not change the machine.
const (
	noEffectDist2 = 1e-6
	noEffectE     = 1e-5
)

// mmPerInch converts positions, extrusion and feed in G20 mode.
const mmPerInch = 25.4

// State is what the machine was last told.
type State struct {
	Pos v3.Vec
	// E is the last extruder position in absolute mode. NaN until the first
	// E word is written.
	E float64
	F float64
	// RelativeE selects M83 semantics: E words are deltas.
	RelativeE bool
	// Inches selects G20 units. Positions are kept in millimetres and
	// converted when written.
	Inches bool
	// SpeedAlways writes F on every motion command.
	SpeedAlways bool
}

// NewState returns the state of a freshly homed machine.
func NewState(relativeE bool) State {
	return State{E: math.NaN(), RelativeE: relativeE}
}

// HasNoEffect reports whether c is a motion that neither moves the tool nor
// extrudes from s.
func (c Command) HasNoEffect(s State) bool {
	if c.Op != CoordinatedMotion && c.Op != RapidMotion {
		return false
	}
	if dist2(c.Where, s.Pos) >= noEffectDist2 {
		return false
	}
	if s.RelativeE {
		return math.Abs(c.E) < noEffectE
	}
	return math.Abs(c.E-s.E) < noEffectE
}

// Text returns the G-code of c and advances s. Only the fields that differ
// from s are written. A downward move that also moves in XY becomes two
// lines: the XY part at the old height, then the Z part.
func (s *State) Text(c Command) string {
	if c.Op < 0 || c.Op >= Unknown {
		logging.Logger().Warn("unknown gcode command", "op", int(c.Op))
		return "; Unknown GCode for " + c.String()
	}
	switch c.Op {
	case Comment:
		return strings.TrimRight("; "+c.Comment, " ")
	case LayerChange:
		return fmt.Sprintf("; Layer %d (Z = %.4f)", int(c.Value), c.Where.Z)
	}

	var b strings.Builder
	b.WriteString(c.Op.Code())
	if c.HasValue {
		b.WriteString(" S")
		b.WriteString(strconv.FormatFloat(c.Value, 'g', -1, 64))
		if c.Comment != "" {
			b.WriteString(" ; ")
			b.WriteString(c.Comment)
		}
		return b.String()
	}

	notes := []string{c.Comment}
	switch c.Op {
	case Millimeters:
		s.Inches = false
	case Inches:
		s.Inches = true
	case AbsoluteE:
		if s.RelativeE {
			// the next E word must be written in full
			s.E = math.NaN()
		}
		s.RelativeE = false
	case RelativeE:
		s.RelativeE = true
	case RapidMotion, CoordinatedMotion, ArcCW, ArcCCW:
		if c.Where.Z < 0 {
			c.Where.Z = 0
		}
		d := c.Where.Sub(s.Pos)
		if d.Z < 0 && (d.X != 0 || d.Y != 0) {
			return s.split(c)
		}
		if c.Op == ArcCW || c.Op == ArcCCW {
			if c.Center.X != 0 {
				fmt.Fprintf(&b, " I%.4f", s.unit(c.Center.X))
			}
			if c.Center.Y != 0 {
				fmt.Fprintf(&b, " J%.4f", s.unit(c.Center.Y))
			}
		}
		notes = s.motion(&b, c, true, notes)
	case ZMove:
		notes = s.motion(&b, c, false, notes)
	case SetSpeed:
		s.speed(&b, c.F)
	case SelectExtruder:
		fmt.Fprintf(&b, "%d", int(c.Value))
		notes = append(notes, "Select Extruder")
	case ResetE:
		b.WriteString(" E0")
		notes = append(notes, "Reset Extrusion")
		s.E = 0
	case Dwell:
		fmt.Fprintf(&b, " P%d", int(math.Round(c.Value)))
	}
	if c.Arg != "" {
		b.WriteString(" ")
		b.WriteString(c.Arg)
	}
	if note := joinNotes(notes); note != "" {
		b.WriteString(" ; ")
		b.WriteString(note)
	}
	return b.String()
}

func (s *State) motion(b *strings.Builder, c Command, xy bool, notes []string) []string {
	moving := false
	length := math.Sqrt(dist2(c.Where, s.Pos))
	if xy {
		if c.Where.X != s.Pos.X {
			fmt.Fprintf(b, " X%.4f", s.unit(c.Where.X))
			s.Pos.X = c.Where.X
			moving = true
		}
		if c.Where.Y != s.Pos.Y {
			fmt.Fprintf(b, " Y%.4f", s.unit(c.Where.Y))
			s.Pos.Y = c.Where.Y
			moving = true
		}
	}
	if c.Where.Z != s.Pos.Z {
		fmt.Fprintf(b, " Z%.4f", s.unit(c.Where.Z))
		s.Pos.Z = c.Where.Z
		notes = append(notes, "Z-Change")
		moving = true
	}
	if (s.RelativeE && c.E != 0) || (!s.RelativeE && c.E != s.E) {
		fmt.Fprintf(b, " E%.5f", s.unit(c.E))
		if !s.RelativeE {
			s.E = c.E
		}
	} else if moving {
		notes = append(notes, fmt.Sprintf("Move Only (%.2f mm)", length))
	}
	s.speed(b, c.F)
	return notes
}

func (s *State) speed(b *strings.Builder, f float64) {
	if s.SpeedAlways || math.Abs(f-s.F) > 0.1 {
		if u := s.unit(f); u > 10 {
			fmt.Fprintf(b, " F%.0f", u)
		} else {
			fmt.Fprintf(b, " F%.4f", u)
		}
	}
	s.F = f
}

// unit converts millimetres to the current output units.
func (s *State) unit(mm float64) float64 {
	if s.Inches {
		return mm / mmPerInch
	}
	return mm
}

// split writes a downward move as an XY move at the current height carrying
// the extrusion, followed by a Z-only move.
func (s *State) split(c Command) string {
	xy := c
	xy.Where.Z = s.Pos.Z
	xy.Comment = joinNotes([]string{c.Comment, "xy part"})
	z := c
	z.Op = ZMove
	z.Comment = joinNotes([]string{c.Comment, "z part"})
	if s.RelativeE {
		z.E = 0
	}
	first := s.Text(xy)
	return first + "\n" + s.Text(z)
}

func joinNotes(notes []string) string {
	out := notes[:0:0]
	for _, n := range notes {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, " ")
}

func dist2(a, b v3.Vec) float64 {
	d := a.Sub(b)
	return d.X*d.X + d.Y*d.Y + d.Z*d.Z
}
