// Package gcode turns motion commands into G-code text.
//
// A State remembers what the machine was last told: position, extrusion,
// feed rate, units and extrusion mode. Each command is written as the
// difference to that state, and motion that would not change it is
// dropped. Writer streams the text and keeps running statistics.
package gcode

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Opcode identifies a G-code command.
type Opcode int

const (
	Goto Opcode = iota
	Dwell
	RapidMotion
	CoordinatedMotion
	ArcCW
	ArcCCW
	ExtruderOn
	ExtruderOnReverse
	ExtruderOff
	Millimeters
	Inches
	GoHome
	AbsolutePositioning
	RelativePositioning
	AbsoluteE
	RelativeE
	SetCurrentPos
	SelectExtruder
	ZMove
	SetSpeed
	FanOn
	FanOff
	AskTemp
	ExtruderTemp
	BedTemp
	ResetE
	Comment
	LayerChange
	Unknown
)

var codes = [...]string{
	Goto:                "G92",
	Dwell:               "G4",
	RapidMotion:         "G0",
	CoordinatedMotion:   "G1",
	ArcCW:               "G2",
	ArcCCW:              "G3",
	ExtruderOn:          "M101",
	ExtruderOnReverse:   "M102",
	ExtruderOff:         "M103",
	Millimeters:         "G21",
	Inches:              "G20",
	GoHome:              "G28",
	AbsolutePositioning: "G90",
	RelativePositioning: "G91",
	AbsoluteE:           "M82",
	RelativeE:           "M83",
	SetCurrentPos:       "G92",
	SelectExtruder:      "T",
	ZMove:               "G1",
	SetSpeed:            "G1",
	FanOn:               "M106",
	FanOff:              "M107",
	AskTemp:             "M105",
	ExtruderTemp:        "M104",
	BedTemp:             "M140",
	ResetE:              "G92",
	Comment:             ";",
	LayerChange:         "; Layer",
	Unknown:             "; UNKNOWN",
}

// Code returns the G-code word of o.
func (o Opcode) Code() string {
	if o < 0 || int(o) >= len(codes) {
		return codes[Unknown]
	}
	return codes[o]
}

func (o Opcode) String() string { return o.Code() }

// IsMotion reports whether o moves the tool.
func (o Opcode) IsMotion() bool {
	switch o {
	case RapidMotion, CoordinatedMotion, ArcCW, ArcCCW, ZMove:
		return true
	}
	return false
}

// Command is one G-code instruction.
type Command struct {
	Op    Opcode
	Where v3.Vec
	// Center is the arc center relative to the start point (I, J).
	Center v3.Vec
	// F is the feed rate in mm/min.
	F float64
	// E is the extrusion of this command, in mm of filament.
	E float64
	// Value is the S argument of value commands, the extruder number of
	// SelectExtruder, the milliseconds of Dwell and the layer number of
	// LayerChange.
	Value    float64
	HasValue bool
	Arg      string
	Comment  string
}

// Move returns a motion command. Negative Z is clamped to the bed.
func Move(op Opcode, where v3.Vec, e, f float64) Command {
	if where.Z < 0 {
		where.Z = 0
	}
	return Command{Op: op, Where: where, E: e, F: f}
}

// Arc returns an arc move around start+center ending at where.
func Arc(ccw bool, where, center v3.Vec, e, f float64) Command {
	op := ArcCW
	if ccw {
		op = ArcCCW
	}
	c := Move(op, where, e, f)
	c.Center = center
	return c
}

// Value returns a command carrying an S value, such as a temperature.
func Value(op Opcode, v float64, comment string) Command {
	return Command{Op: op, Value: v, HasValue: true, Comment: comment}
}

// Plain returns an argumentless command with a comment.
func Plain(op Opcode, comment string) Command {
	return Command{Op: op, Comment: comment}
}

// Note returns a comment line.
func Note(text string) Command {
	return Command{Op: Comment, Comment: text}
}

// Layer returns the marker written before the moves of layer n.
func Layer(n int, z float64) Command {
	return Command{Op: LayerChange, Value: float64(n), Where: v3.Vec{Z: z}}
}

// Extruder returns the tool change to extruder n.
func Extruder(n int) Command {
	return Command{Op: SelectExtruder, Value: float64(n)}
}

// Wait returns a dwell of ms milliseconds.
func Wait(ms float64) Command {
	return Command{Op: Dwell, Value: ms}
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v E%.5f F%.0f %s", c.Op, c.Where, c.E, c.F, c.Comment)
}
