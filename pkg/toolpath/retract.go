package toolpath

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/lamina/pkg/gcode"
)

// Retract pulls the filament back before every run of travel lines at
// least MinTravel long and pushes it forward after the run. With ZLift the
// run is lifted; the halts then move the nozzle up and down.
func Retract(lines []Line, o RetractOptions) []Line {
	if o.Amount <= 0 || o.Speed <= 0 {
		return lines
	}
	lift := v3.Vec{Z: math.Max(0, o.ZLift)}
	feed := o.Speed * 60
	if lift.Z > 0 {
		feed = lift.Z * o.Speed / o.Amount * 60
	}
	out := make([]Line, 0, len(lines))
	for i := 0; i < len(lines); {
		if !lines[i].IsTravel() {
			out = append(out, lines[i])
			i++
			continue
		}
		j, length := i, 0.0
		for ; j < len(lines) && lines[j].IsTravel(); j++ {
			length += lines[j].Length()
		}
		run := lines[i:j]
		i = j
		if length < o.MinTravel {
			out = append(out, run...)
			continue
		}
		start, end := run[0].From, run[len(run)-1].To
		out = append(out, Line{From: start, To: start.Add(lift), Role: RetractMove, Feed: feed, Extra: -o.Amount})
		for _, l := range run {
			l.From, l.To = l.From.Add(lift), l.To.Add(lift)
			out = append(out, l)
		}
		out = append(out, Line{From: end.Add(lift), To: end, Role: RetractMove, Feed: feed, Extra: o.Amount})
	}
	return out
}

// Commands converts lines to motion commands with extrusion deltas. Travel
// becomes rapid motion.
func Commands(lines []Line) []gcode.Command {
	out := make([]gcode.Command, 0, len(lines))
	for _, l := range lines {
		op := gcode.CoordinatedMotion
		if l.IsTravel() {
			op = gcode.RapidMotion
		}
		out = append(out, gcode.Move(op, l.To, l.Extrusion(), l.Feed))
	}
	return out
}

// Time returns the seconds lines take at their feed rates.
func Time(lines []Line) float64 {
	var t float64
	for _, l := range lines {
		t += l.Time()
	}
	return t
}
