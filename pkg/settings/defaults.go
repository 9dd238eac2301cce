package settings

var defaults = map[string]any{
	"Slicing/LayerThickness":     0.3,
	"Slicing/FirstLayerHeight":   0.7,
	"Slicing/MinLayerThickness":  0.1,
	"Slicing/Varslicing":         false,
	"Slicing/BuildSerial":        false,
	"Slicing/ShellCount":         2,
	"Slicing/Skins":              1,
	"Slicing/SolidThickness":     0.9,
	"Slicing/DecorLayers":        0,
	"Slicing/MakeDecor":          false,
	"Slicing/NoBridges":          false,
	"Slicing/NoTopAndBottom":     false,
	"Slicing/Support":            false,
	"Slicing/SupportAngle":       45.0,
	"Slicing/SupportWiden":       0.0,
	"Slicing/Skirt":              false,
	"Slicing/SingleSkirt":        true,
	"Slicing/SkirtDistance":      3.0,
	"Slicing/SkirtHeight":        0.3,
	"Slicing/FarthestLayerStart": false,
	"Slicing/AvoidCrossing":      false,
	"Slicing/RelativeEcode":      false,
	"Slicing/InfillOverlap":      0.2,
	"Slicing/FillThinWalls":      false,
	"Slicing/ShellOnly":          false,
	"Slicing/MaxJoinDistance":    1.0,
	"Slicing/StrictJoins":        false,

	"Infill/Type":            "Parallel",
	"Infill/Percent":         30.0,
	"Infill/Rotation":        45.0,
	"Infill/RotationPrLayer": 90.0,
	"Infill/SupportPercent":  25.0,
	"Infill/DecorType":       "Zigzag",
	"Infill/DecorPercent":    100.0,
	"Infill/BridgeExtrusion": 1.0,

	"Extruder/FilamentDiameter":    1.75,
	"Extruder/ExtrusionWidth":      0.5,
	"Extruder/ExtrusionMultiplier": 1.0,
	"Extruder/Temperature":         210.0,
	"Extruder/RetractAmount":       1.0,
	"Extruder/RetractSpeed":        40.0,
	"Extruder/MinTravelForRetract": 2.0,
	"Extruder/ZLift":               0.0,

	"Hardware/PrintSpeed":      50.0,
	"Hardware/ShellSpeed":      0.0,
	"Hardware/InfillSpeed":     0.0,
	"Hardware/SupportSpeed":    0.0,
	"Hardware/BridgeSpeed":     0.0,
	"Hardware/MoveSpeed":       150.0,
	"Hardware/FirstLayerSpeed": 0.5,
	"Hardware/SpeedAlways":     false,
	"Hardware/BedTemperature":  60.0,
	"Hardware/FanSpeed":        255,
	"Hardware/FanLayer":        1,

	"Raft/Enable":                          false,
	"Raft/Size":                            3.0,
	"Raft/Base/LayerCount":                 1,
	"Raft/Base/Thickness":                  1.0,
	"Raft/Base/Distance":                   2.0,
	"Raft/Base/Rotation":                   0.0,
	"Raft/Base/RotationPrLayer":            90.0,
	"Raft/Base/MaterialDistanceRatio":      1.8,
	"Raft/Interface/LayerCount":            2,
	"Raft/Interface/Thickness":             1.0,
	"Raft/Interface/Distance":              2.0,
	"Raft/Interface/Rotation":              45.0,
	"Raft/Interface/RotationPrLayer":       90.0,
	"Raft/Interface/MaterialDistanceRatio": 1.0,

	"GCode/Start": "G28 ; home all axes\nM104 S{temperature}\nM140 S{bedtemperature}\nM109 S{temperature}\n",
	"GCode/End":   "M104 S0\nM140 S0\nG28 X0 Y0\nM84\n",
	"GCode/Layer": "",
}
