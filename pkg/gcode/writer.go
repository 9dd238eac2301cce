package gcode

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// Stats summarizes the commands written so far.
type Stats struct {
	// Extruded is the filament fed, mm.
	Extruded float64
	// Printed and Travel are the tool path lengths with and without
	// extrusion, mm.
	Printed float64
	Travel  float64
	// Time is the estimated print time from path length and feed rate.
	Time     time.Duration
	MaxZ     float64
	Layers   int
	Commands int
}

// Volume returns the extruded filament volume in cm³.
func (s Stats) Volume(filamentDiameter float64) float64 {
	return s.Extruded * filamentDiameter * filamentDiameter / 4 * math.Pi / 1000
}

func (s Stats) String() string {
	return fmt.Sprintf("%d layers, %.1f mm filament, %.1f mm printed, %.1f mm travel, %s",
		s.Layers, s.Extruded, s.Printed, s.Travel, s.Time.Round(time.Second))
}

// Writer streams G-code text. Commands carry extrusion as deltas; in
// absolute mode the Writer accumulates them. M82/M83 and G20/G21 switch
// the modes of the commands that follow. Write errors are sticky and
// reported by Flush.
type Writer struct {
	w     *bufio.Writer
	state State
	stats Stats
	pos   v3.Vec
	e     float64
	err   error

	layerText string
	vars      map[string]string
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer, relativeE bool) *Writer {
	return &Writer{
		w:     bufio.NewWriter(w),
		state: NewState(relativeE),
		vars:  map[string]string{},
	}
}

// SetSpeedAlways writes F on every motion command.
func (w *Writer) SetSpeedAlways(on bool) { w.state.SpeedAlways = on }

// SetLayerText sets the block written after every layer change. {layer} and
// {z} expand to the layer number and height.
func (w *Writer) SetLayerText(text string) { w.layerText = text }

// Set defines a variable for {key} substitution in blocks.
func (w *Writer) Set(key, value string) { w.vars[key] = value }

// State returns the machine state after the last command.
func (w *Writer) State() State { return w.state }

// Stats returns the statistics so far.
func (w *Writer) Stats() Stats { return w.stats }

// Banner writes the leading comment.
func (w *Writer) Banner(generator string, at time.Time) {
	w.line(fmt.Sprintf("; GCode by %s, %s", generator, at.Format(time.RFC1123)))
	w.line("")
}

// Header sets units, positioning and the extrusion mode.
func (w *Writer) Header() {
	w.Write(Plain(Millimeters, "Millimeters"))
	w.Write(Plain(AbsolutePositioning, "Absolute Pos"))
	if w.state.RelativeE {
		w.Write(Plain(RelativeE, "Relative E Code"))
	} else {
		w.Write(Plain(AbsoluteE, "Absolute E Code"))
	}
}

// Start writes the user start block.
func (w *Writer) Start(text string) {
	w.line("; Startcode")
	w.block(text)
	w.line("; End Startcode")
	w.line("")
}

// End writes the user end block.
func (w *Writer) End(text string) {
	w.line("")
	w.line("; End GCode")
	w.block(text)
}

// Write appends c. Motion that does not change the machine state is
// dropped.
func (w *Writer) Write(c Command) {
	if w.err != nil {
		return
	}
	if c.Op.IsMotion() && !w.state.RelativeE {
		c.E += w.e
	}
	if c.HasNoEffect(w.state) {
		return
	}
	w.account(c)
	w.line(w.state.Text(c))
	w.stats.Commands++
	if c.Op == LayerChange {
		w.stats.Layers++
		if w.layerText != "" {
			w.block(w.expand(w.layerText, map[string]string{
				"layer": fmt.Sprint(int(c.Value)),
				"z":     fmt.Sprintf("%.4f", c.Where.Z),
			}))
		}
	}
}

// WriteAll appends every command of cs.
func (w *Writer) WriteAll(cs []Command) {
	for _, c := range cs {
		w.Write(c)
	}
}

func (w *Writer) account(c Command) {
	switch {
	case c.Op == ResetE:
		w.e = 0
		return
	case !c.Op.IsMotion():
		return
	}
	where := c.Where
	if where.Z < 0 {
		where.Z = 0
	}
	length := math.Sqrt(dist2(where, w.pos))
	de := c.E
	if w.state.RelativeE {
		w.e += c.E
	} else {
		de = c.E - w.e
		w.e = c.E
	}
	if de > 0 {
		w.stats.Extruded += de
		w.stats.Printed += length
	} else {
		w.stats.Travel += length
	}
	if c.F > 0 {
		w.stats.Time += time.Duration(length / c.F * 60 * float64(time.Second))
	}
	w.stats.MaxZ = math.Max(w.stats.MaxZ, where.Z)
	w.pos = where
}

func (w *Writer) block(text string) {
	text = strings.TrimRight(w.expand(text, nil), "\n")
	if text == "" {
		return
	}
	for _, l := range strings.Split(text, "\n") {
		w.line(l)
	}
}

// expand replaces {key} with the writer's variables, extra taking
// precedence.
func (w *Writer) expand(text string, extra map[string]string) string {
	vars := lo.Assign(w.vars, extra)
	keys := lo.Keys(vars)
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func (w *Writer) line(s string) {
	if w.err != nil {
		return
	}
	if _, err := w.w.WriteString(s); err != nil {
		w.err = fmt.Errorf("gcode: write: %w", err)
		return
	}
	if err := w.w.WriteByte('\n'); err != nil {
		w.err = fmt.Errorf("gcode: write: %w", err)
	}
}

// Flush writes buffered text and returns the first error seen.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("gcode: flush: %w", err)
	}
	return nil
}
