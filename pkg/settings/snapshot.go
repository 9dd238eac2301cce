package settings

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/lamina/pkg/infill"
)

// Slicing controls how the model is cut into layers and regions. Angles
// are in degrees.
type Slicing struct {
	LayerThickness float64
	// FirstLayerHeight is the height of the first cut as a fraction of
	// LayerThickness.
	FirstLayerHeight  float64
	MinLayerThickness float64
	VariableThickness bool
	Serial            bool

	ShellCount     int
	Skins          int
	SolidThickness float64
	DecorLayers    int
	MakeDecor      bool
	NoBridges      bool
	NoTopAndBottom bool
	InfillOverlap  float64
	FillThinWalls  bool
	ShellOnly      bool

	Support      bool
	SupportAngle float64
	SupportWiden float64

	Skirt         bool
	SingleSkirt   bool
	SkirtDistance float64
	SkirtHeight   float64

	FarthestLayerStart bool
	AvoidCrossing      bool
	RelativeE          bool

	MaxJoinDistance float64
	StrictJoins     bool
}

// SolidLayers returns the number of layers solid surfaces span.
func (s Slicing) SolidLayers() int {
	if s.LayerThickness <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(s.SolidThickness/s.LayerThickness-1e-9)))
}

// Infill selects fill patterns. Percentages are of a solid fill.
type Infill struct {
	Type            infill.Type
	Percent         float64
	Rotation        float64
	RotationPrLayer float64
	SupportPercent  float64
	DecorType       infill.Type
	DecorPercent    float64
	BridgeExtrusion float64
}

// Distance returns the line spacing giving percent fill with lines width
// wide. Zero percent gives zero.
func Distance(width, percent float64) float64 {
	if percent <= 0 {
		return 0
	}
	return width * 100 / percent
}

// Extruder describes the filament and its handling. Speeds are mm/s.
type Extruder struct {
	FilamentDiameter    float64
	Width               float64
	ExtrusionMultiplier float64
	Temperature         float64
	RetractAmount       float64
	RetractSpeed        float64
	MinTravelForRetract float64
	ZLift               float64
}

// Hardware holds machine speeds, mm/s, and temperatures.
type Hardware struct {
	PrintSpeed   float64
	ShellSpeed   float64
	InfillSpeed  float64
	SupportSpeed float64
	BridgeSpeed  float64
	MoveSpeed    float64
	// FirstLayerSpeed scales print speeds on the first layer.
	FirstLayerSpeed float64
	SpeedAlways     bool
	BedTemperature  float64
	FanSpeed        int
	// FanLayer is the first layer printed with the fan on.
	FanLayer int
}

// RaftPhase is the base or interface part of a raft. Thickness is a
// fraction of the layer thickness; Distance is the line spacing in mm.
type RaftPhase struct {
	LayerCount            int
	Thickness             float64
	Distance              float64
	Rotation              float64
	RotationPrLayer       float64
	MaterialDistanceRatio float64
}

// Raft describes the layers printed under the model.
type Raft struct {
	Enable    bool
	Size      float64
	Base      RaftPhase
	Interface RaftPhase
}

// GCode holds the user blocks.
type GCode struct {
	Start string
	End   string
	Layer string
}

// Snapshot is every setting a run reads, decoded at once.
type Snapshot struct {
	Slicing  Slicing
	Infill   Infill
	Extruder Extruder
	Hardware Hardware
	Raft     Raft
	GCode    GCode
}

// Decode reads and validates a snapshot from s.
func Decode(s Settings) (*Snapshot, error) {
	var errs []error
	pattern := func(path string) infill.Type {
		t, err := infill.ParseType(s.GetString(path))
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err))
		}
		return t
	}
	phase := func(prefix string) RaftPhase {
		return RaftPhase{
			LayerCount:            s.GetInt(prefix + "/LayerCount"),
			Thickness:             s.GetFloat(prefix + "/Thickness"),
			Distance:              s.GetFloat(prefix + "/Distance"),
			Rotation:              s.GetFloat(prefix + "/Rotation"),
			RotationPrLayer:       s.GetFloat(prefix + "/RotationPrLayer"),
			MaterialDistanceRatio: s.GetFloat(prefix + "/MaterialDistanceRatio"),
		}
	}
	snap := &Snapshot{
		Slicing: Slicing{
			LayerThickness:     s.GetFloat("Slicing/LayerThickness"),
			FirstLayerHeight:   s.GetFloat("Slicing/FirstLayerHeight"),
			MinLayerThickness:  s.GetFloat("Slicing/MinLayerThickness"),
			VariableThickness:  s.GetBool("Slicing/Varslicing"),
			Serial:             s.GetBool("Slicing/BuildSerial"),
			ShellCount:         s.GetInt("Slicing/ShellCount"),
			Skins:              s.GetInt("Slicing/Skins"),
			SolidThickness:     s.GetFloat("Slicing/SolidThickness"),
			DecorLayers:        s.GetInt("Slicing/DecorLayers"),
			MakeDecor:          s.GetBool("Slicing/MakeDecor"),
			NoBridges:          s.GetBool("Slicing/NoBridges"),
			NoTopAndBottom:     s.GetBool("Slicing/NoTopAndBottom"),
			InfillOverlap:      s.GetFloat("Slicing/InfillOverlap"),
			FillThinWalls:      s.GetBool("Slicing/FillThinWalls"),
			ShellOnly:          s.GetBool("Slicing/ShellOnly"),
			Support:            s.GetBool("Slicing/Support"),
			SupportAngle:       s.GetFloat("Slicing/SupportAngle"),
			SupportWiden:       s.GetFloat("Slicing/SupportWiden"),
			Skirt:              s.GetBool("Slicing/Skirt"),
			SingleSkirt:        s.GetBool("Slicing/SingleSkirt"),
			SkirtDistance:      s.GetFloat("Slicing/SkirtDistance"),
			SkirtHeight:        s.GetFloat("Slicing/SkirtHeight"),
			FarthestLayerStart: s.GetBool("Slicing/FarthestLayerStart"),
			AvoidCrossing:      s.GetBool("Slicing/AvoidCrossing"),
			RelativeE:          s.GetBool("Slicing/RelativeEcode"),
			MaxJoinDistance:    s.GetFloat("Slicing/MaxJoinDistance"),
			StrictJoins:        s.GetBool("Slicing/StrictJoins"),
		},
		Infill: Infill{
			Type:            pattern("Infill/Type"),
			Percent:         s.GetFloat("Infill/Percent"),
			Rotation:        s.GetFloat("Infill/Rotation"),
			RotationPrLayer: s.GetFloat("Infill/RotationPrLayer"),
			SupportPercent:  s.GetFloat("Infill/SupportPercent"),
			DecorType:       pattern("Infill/DecorType"),
			DecorPercent:    s.GetFloat("Infill/DecorPercent"),
			BridgeExtrusion: s.GetFloat("Infill/BridgeExtrusion"),
		},
		Extruder: Extruder{
			FilamentDiameter:    s.GetFloat("Extruder/FilamentDiameter"),
			Width:               s.GetFloat("Extruder/ExtrusionWidth"),
			ExtrusionMultiplier: s.GetFloat("Extruder/ExtrusionMultiplier"),
			Temperature:         s.GetFloat("Extruder/Temperature"),
			RetractAmount:       s.GetFloat("Extruder/RetractAmount"),
			RetractSpeed:        s.GetFloat("Extruder/RetractSpeed"),
			MinTravelForRetract: s.GetFloat("Extruder/MinTravelForRetract"),
			ZLift:               s.GetFloat("Extruder/ZLift"),
		},
		Hardware: Hardware{
			PrintSpeed:      s.GetFloat("Hardware/PrintSpeed"),
			ShellSpeed:      s.GetFloat("Hardware/ShellSpeed"),
			InfillSpeed:     s.GetFloat("Hardware/InfillSpeed"),
			SupportSpeed:    s.GetFloat("Hardware/SupportSpeed"),
			BridgeSpeed:     s.GetFloat("Hardware/BridgeSpeed"),
			MoveSpeed:       s.GetFloat("Hardware/MoveSpeed"),
			FirstLayerSpeed: s.GetFloat("Hardware/FirstLayerSpeed"),
			SpeedAlways:     s.GetBool("Hardware/SpeedAlways"),
			BedTemperature:  s.GetFloat("Hardware/BedTemperature"),
			FanSpeed:        s.GetInt("Hardware/FanSpeed"),
			FanLayer:        s.GetInt("Hardware/FanLayer"),
		},
		Raft: Raft{
			Enable:    s.GetBool("Raft/Enable"),
			Size:      s.GetFloat("Raft/Size"),
			Base:      phase("Raft/Base"),
			Interface: phase("Raft/Interface"),
		},
		GCode: GCode{
			Start: s.GetString("GCode/Start"),
			End:   s.GetString("GCode/End"),
			Layer: s.GetString("GCode/Layer"),
		},
	}
	errs = append(errs, snap.validate()...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return snap, nil
}

func (s *Snapshot) validate() []error {
	var errs []error
	positive := func(path string, v float64) {
		if !(v > 0) {
			errs = append(errs, fmt.Errorf("%w: %s must be positive, got %v", ErrInvalid, path, v))
		}
	}
	positive("Slicing/LayerThickness", s.Slicing.LayerThickness)
	positive("Slicing/FirstLayerHeight", s.Slicing.FirstLayerHeight)
	positive("Extruder/ExtrusionWidth", s.Extruder.Width)
	positive("Extruder/FilamentDiameter", s.Extruder.FilamentDiameter)
	positive("Hardware/PrintSpeed", s.Hardware.PrintSpeed)
	positive("Hardware/MoveSpeed", s.Hardware.MoveSpeed)
	if s.Slicing.ShellCount < 0 {
		errs = append(errs, fmt.Errorf("%w: Slicing/ShellCount must not be negative", ErrInvalid))
	}
	if s.Slicing.Skins < 1 {
		errs = append(errs, fmt.Errorf("%w: Slicing/Skins must be at least 1", ErrInvalid))
	}
	if s.Infill.Percent < 0 || s.Infill.Percent > 100 {
		errs = append(errs, fmt.Errorf("%w: Infill/Percent must be within [0, 100], got %v", ErrInvalid, s.Infill.Percent))
	}
	if s.Slicing.VariableThickness {
		positive("Slicing/MinLayerThickness", s.Slicing.MinLayerThickness)
	}
	if s.Raft.Enable {
		positive("Raft/Base/Thickness", s.Raft.Base.Thickness)
		positive("Raft/Interface/Thickness", s.Raft.Interface.Thickness)
		positive("Raft/Base/Distance", s.Raft.Base.Distance)
		positive("Raft/Interface/Distance", s.Raft.Interface.Distance)
	}
	return errs
}
