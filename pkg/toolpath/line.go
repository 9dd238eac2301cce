// Package toolpath orders the regions of a layer into print lines and turns
// them into G-code commands.
//
// A Builder keeps the tool position across layers. Each layer is printed
// in a fixed role order (skirt, support, skins, shells from the inside
// out, thin walls, infill); within a role the nearest path is taken next,
// starting at its nearest vertex. Travel between paths can be routed along
// the outer shell, and long travel is retracted.
package toolpath

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Role is what a line prints.
type Role int

const (
	Travel Role = iota
	RetractMove
	Skirt
	Support
	Skin
	Shell
	Thin
	Infill
	FullInfill
	Bridge
	Decor
)

var roleNames = [...]string{
	Travel:      "travel",
	RetractMove: "retract",
	Skirt:       "skirt",
	Support:     "support",
	Skin:        "skin",
	Shell:       "shell",
	Thin:        "thin",
	Infill:      "infill",
	FullInfill:  "full infill",
	Bridge:      "bridge",
	Decor:       "decor",
}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return "unknown"
	}
	return roleNames[r]
}

// Line is one straight tool move.
type Line struct {
	From, To v3.Vec
	Role     Role
	// Feed is the feed rate, mm/min.
	Feed float64
	// EPerMM is the filament fed per mm of travel; 0 for moves.
	EPerMM float64
	// Extra is filament fed regardless of length, as for retraction.
	Extra float64
}

// Length returns the 3D length of the line.
func (l Line) Length() float64 {
	d := l.To.Sub(l.From)
	return math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)
}

// IsTravel reports whether the line moves without extruding.
func (l Line) IsTravel() bool { return l.EPerMM == 0 && l.Extra == 0 }

// Extrusion returns the filament fed along the line.
func (l Line) Extrusion() float64 { return l.Length()*l.EPerMM + l.Extra }

// Time returns the seconds the line takes at its feed rate.
func (l Line) Time() float64 {
	if l.Feed <= 0 {
		return 0
	}
	return l.Length() / l.Feed * 60
}
