package Weir

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/notargets/weircfd/diagnostics"
	"github.com/notargets/weircfd/engine"
	"github.com/notargets/weircfd/events"
	"github.com/notargets/weircfd/output"
)

// Event names
const (
	EventInit          = "init"
	EventAdapt         = "adapt"
	EventTimeSeries    = "timeseries"
	EventVisualization = "visualization"
	EventCheckpoint    = "checkpoint"
	EventProgress      = "progress"
	EventEnd           = "end"
)

// FinalDump is the checkpoint written at the end of every run
const FinalDump = "dump-final"

// VisualizationFields are the scalars exported with the velocity vector
var VisualizationFields = []engine.FieldID{engine.Phase, engine.Pressure, engine.Solid}

// DumpName is the checkpoint file name for time t
func DumpName(t float64) string {
	return fmt.Sprintf("dump-%06.3f", t)
}

// Schedule builds the ordered event list of the case. Events a case does not
// enable are left out of the list.
func (ws *State) Schedule() (s *events.Scheduler, err error) {
	var (
		cp  = ws.Case
		evs []events.Event
	)
	if !ws.Restored {
		evs = append(evs, events.Event{
			Name: EventInit, Phase: events.Init, Trigger: events.AtStart(), Action: ws.initialize,
		})
	}
	if cp.Adapt {
		// First multiple of the cadence past the settling delay
		offset := (cp.AdaptSkip + cp.AdaptEvery - 1) / cp.AdaptEvery * cp.AdaptEvery
		evs = append(evs, events.Event{
			Name: EventAdapt, Phase: events.Periodic,
			Trigger: events.EveryIterFrom(offset, cp.AdaptEvery), Action: ws.adapt,
		})
	}
	if cp.TimeSeries {
		evs = append(evs, events.Event{
			Name: EventTimeSeries, Phase: events.Periodic,
			Trigger: events.EveryTime(cp.DtOutput), Action: ws.timeSeries,
		})
	}
	if cp.DtVisualization > 0 {
		evs = append(evs, events.Event{
			Name: EventVisualization, Phase: events.Periodic,
			Trigger: events.EveryTime(cp.DtVisualization), Action: ws.visualize,
		})
	}
	if cp.DtCheckpoint > 0 {
		evs = append(evs, events.Event{
			Name: EventCheckpoint, Phase: events.Periodic,
			Trigger: events.EveryTimeFrom(cp.DtCheckpoint, cp.DtCheckpoint), Action: ws.checkpoint,
		})
	}
	if cp.ProgressEvery > 0 {
		evs = append(evs, events.Event{
			Name: EventProgress, Phase: events.Periodic,
			Trigger: events.EveryIter(cp.ProgressEvery), Action: ws.progress,
		})
	}
	evs = append(evs, events.Event{
		Name: EventEnd, Phase: events.Terminal, Trigger: events.AtTime(cp.TEnd), Action: ws.end,
	})
	return events.NewScheduler(evs...)
}

func (ws *State) adapt(iter int, t float64) (err error) {
	_, err = ws.Refiner.Adapt(iter)
	return
}

func (ws *State) timeSeries(iter int, t float64) (err error) {
	_, err = ws.Reporter.Record()
	return
}

// visualize logs the field statistics and exports the fields of the current step
func (ws *State) visualize(iter int, t float64) (err error) {
	var (
		eng  = ws.Engine
		path string
	)
	diagnostics.LogStats(ws.logger, t, diagnostics.Stats(eng))
	if !eng.IsCoordinator() {
		return
	}
	if path, err = output.WriteSnapshot(ws.Options.RunDir, eng, VisualizationFields); err != nil {
		return
	}
	ws.logger.Debug("snapshot", zap.String("path", path))
	if ws.Case.HeatMap {
		if path, err = output.WriteHeatMap(ws.Options.RunDir, eng, engine.Phase, ws.Case.HeatMapResolution); err != nil {
			return
		}
		ws.logger.Debug("heat map", zap.String("path", path))
	}
	return
}

func (ws *State) checkpoint(iter int, t float64) error {
	return ws.Engine.CheckpointWrite(filepath.Join(ws.Options.RunDir, DumpName(t)))
}

func (ws *State) progress(iter int, t float64) error {
	fields := append([]zap.Field{zap.Int("iter", iter), zap.Float64("t", t), zap.Float64("dt", ws.dt)},
		ws.Counters.Fields(ws.Engine.Mesh().Len())...)
	ws.logger.Info("progress", fields...)
	return nil
}

// end writes the final checkpoint twice, once under its time stamp and once
// under the fixed name the conversion utility reads by default
func (ws *State) end(iter int, t float64) (err error) {
	if err = ws.checkpoint(iter, t); err != nil {
		return
	}
	if err = ws.Engine.CheckpointWrite(filepath.Join(ws.Options.RunDir, FinalDump)); err != nil {
		return
	}
	ws.logger.Info("end", zap.Int("iter", iter), zap.Float64("t", t))
	return
}
