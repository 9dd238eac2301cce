package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"

	"github.com/chazu/lamina/pkg/gcode"
	"github.com/chazu/lamina/pkg/layer"
	"github.com/chazu/lamina/pkg/logging"
	"github.com/chazu/lamina/pkg/progress"
	"github.com/chazu/lamina/pkg/settings"
	"github.com/chazu/lamina/pkg/toolpath"
)

// ToolpathOptions returns the toolpath settings of snap.
func ToolpathOptions(snap *settings.Snapshot) toolpath.Options {
	ex, hw := snap.Extruder, snap.Hardware
	return toolpath.Options{
		Width:               ex.Width,
		FilamentDiameter:    ex.FilamentDiameter,
		ExtrusionMultiplier: ex.ExtrusionMultiplier,
		Speeds: toolpath.Speeds{
			Print:      hw.PrintSpeed,
			Shell:      hw.ShellSpeed,
			Infill:     hw.InfillSpeed,
			Support:    hw.SupportSpeed,
			Bridge:     hw.BridgeSpeed,
			Move:       hw.MoveSpeed,
			FirstLayer: hw.FirstLayerSpeed,
		},
		Retract: toolpath.RetractOptions{
			Amount:    ex.RetractAmount,
			Speed:     ex.RetractSpeed,
			MinTravel: ex.MinTravelForRetract,
			ZLift:     ex.ZLift,
		},
		AvoidCrossing:      snap.Slicing.AvoidCrossing,
		FarthestLayerStart: snap.Slicing.FarthestLayerStart,
	}
}

// Generate writes the G-code of stacks to w, one stack after the other,
// and returns the statistics of what was written.
func (pl *Pipeline) Generate(ctx context.Context, w io.Writer, stacks []*layer.Stack) (gcode.Stats, error) {
	snap := pl.snap
	gw := gcode.NewWriter(w, snap.Slicing.RelativeE)
	gw.SetSpeedAlways(snap.Hardware.SpeedAlways)
	gw.SetLayerText(snap.GCode.Layer)
	gw.Set("temperature", fmt.Sprintf("%g", snap.Extruder.Temperature))
	gw.Set("bedtemperature", fmt.Sprintf("%g", snap.Hardware.BedTemperature))
	gw.Set("layerthickness", fmt.Sprintf("%g", snap.Slicing.LayerThickness))

	gw.Banner(Generator, pl.Now())
	gw.Header()
	gw.Start(snap.GCode.Start)

	n := lo.SumBy(stacks, func(st *layer.Stack) int { return st.Len() })
	if !pl.prog.Restart("GCode", float64(n)) {
		return gcode.Stats{}, progress.ErrCanceled
	}
	b := toolpath.NewBuilder(pl.clip, ToolpathOptions(snap))
	fanOn := false
	done := 0
	for _, st := range stacks {
		for _, l := range st.Layers {
			if err := ctx.Err(); err != nil {
				return gcode.Stats{}, err
			}
			if !pl.prog.Update(float64(done)) {
				return gcode.Stats{}, progress.ErrCanceled
			}
			if !fanOn && snap.Hardware.FanSpeed > 0 && l.No >= snap.Hardware.FanLayer {
				gw.Write(gcode.Value(gcode.FanOn, float64(snap.Hardware.FanSpeed), "Fan On"))
				fanOn = true
			}
			gw.WriteAll(b.Commands(l))
			done++
		}
	}
	if fanOn {
		gw.Write(gcode.Plain(gcode.FanOff, "Fan Off"))
	}
	gw.End(snap.GCode.End)
	if err := gw.Flush(); err != nil {
		return gcode.Stats{}, err
	}
	pl.prog.Stop("GCode")

	stats := gw.Stats()
	logging.Logger().Info("gcode written",
		"layers", stats.Layers,
		"commands", stats.Commands,
		"filament_mm", fmt.Sprintf("%.1f", stats.Extruded),
		"time", stats.Time.Round(time.Second))
	return stats, nil
}
