package Weir

import (
	"fmt"
	"math"
	"os"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/weircfd/InputParameters"
	"github.com/notargets/weircfd/bcs"
	"github.com/notargets/weircfd/diagnostics"
	"github.com/notargets/weircfd/engine"
	"github.com/notargets/weircfd/events"
	"github.com/notargets/weircfd/fractions"
	"github.com/notargets/weircfd/geometry"
	"github.com/notargets/weircfd/mesh"
	"github.com/notargets/weircfd/refine"
)

// Options are the process level settings of a run, as opposed to the case
// parameters which describe the physics
type Options struct {
	RunDir  string
	Procs   int    // Number of go routines used by the engine
	Restore string // Checkpoint to resume from, a missing file starts from t = 0
}

// State owns everything a running case touches. It is created once by NewWeir
// and torn down by Close.
type State struct {
	Case        InputParameters.CaseParameters
	Options     Options
	RunID       uuid.UUID
	Engine      engine.Engine
	Scene       geometry.Scene
	Builder     *fractions.Builder
	Refiner     *refine.Controller
	BCs         *bcs.Set
	Corrections []bcs.Correction
	Scheduler   *events.Scheduler
	Reporter    *diagnostics.Reporter
	Counters    diagnostics.Counters
	Restored    bool
	dt          float64 // Last step size, for progress reports
	logger      *zap.Logger
}

func NewWeir(cp InputParameters.CaseParameters, opts Options, logger *zap.Logger) (ws *State, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err = cp.Validate(); err != nil {
		return
	}
	if opts.Procs < 1 {
		opts.Procs = 1
	}
	if opts.RunDir == "" {
		opts.RunDir = "run"
	}
	ws = &State{
		Case:    cp,
		Options: opts,
		RunID:   uuid.New(),
		logger:  logger.With(zap.String("case", cp.Title)),
	}
	if ws.Scene, err = cp.Scene(); err != nil {
		return nil, err
	}
	origin := r3.Vec{X: cp.Origin[0], Y: cp.Origin[1], Z: cp.Origin[2]}
	ws.Engine = engine.NewReference(mesh.NewTree(cp.Dim, origin, cp.L0, cp.BaseLevel, opts.Procs), ws.logger)

	ws.BCs = Boundaries(cp)
	ws.Engine.SetBoundary(ws.BCs)
	ws.Corrections = Corrections(cp)

	ws.Builder = fractions.NewBuilder(ws.Engine, ws.Scene, ws.logger)
	ws.Builder.CleanupThreshold = cp.CleanupThreshold
	ws.Refiner = refine.NewController(ws.Engine, ws.Builder, ws.logger)
	ws.Refiner.MinLevel, ws.Refiner.MaxLevel = cp.MinLevel, cp.MaxLevel
	if cp.Adapt {
		ws.Refiner.Fields, ws.Refiner.Thresholds = cp.RefineFieldIDs(), cp.RefineThresholds
		ws.Refiner.Every, ws.Refiner.SkipIterations = cp.AdaptEvery, cp.AdaptSkip
		if err = ws.Refiner.Validate(); err != nil {
			return nil, err
		}
	}
	ws.Reporter = diagnostics.NewReporter(ws.Engine, diagnostics.Probes{
		HeadX:       cp.HeadX,
		DischargeX:  cp.DischargeX,
		CrestHeight: cp.CrestHeight,
	}, opts.RunDir, ws.logger)

	if err = os.MkdirAll(opts.RunDir, 0755); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", opts.RunDir, err, diagnostics.ErrOpenOutput)
	}
	if opts.Restore != "" {
		if ws.Restored, err = ws.Engine.CheckpointRestore(opts.Restore); err != nil {
			return nil, err
		}
		if ws.Restored {
			ws.Builder.Rebuild()
			ws.Reporter.Resume(ws.Engine.Time())
			ws.logger.Info("restored", zap.String("path", opts.Restore),
				zap.Float64("t", ws.Engine.Time()), zap.Int("iter", ws.Engine.Iteration()))
		}
	}
	if ws.Scheduler, err = ws.Schedule(); err != nil {
		return nil, err
	}
	if err = ws.WriteManifest(); err != nil {
		return nil, err
	}
	return
}

// Solve advances the case until its terminal event fires. Each iteration fires
// the due events, takes one engine step limited by the CFL condition and the
// next timed event, then applies the per step corrections.
func (ws *State) Solve() (err error) {
	var (
		cp       = ws.Case
		eng      = ws.Engine
		finished bool
	)
	ws.logger.Info("solve",
		zap.String("run_id", ws.RunID.String()), zap.Int("dim", cp.Dim),
		zap.Int("procs", ws.Options.Procs), zap.Float64("t_end", cp.TEnd))
	for {
		if finished, err = ws.Scheduler.Fire(eng.Iteration(), eng.Time()); err != nil || finished {
			return
		}
		dt := math.Min(eng.MaxDt(cp.CFL), cp.DtMax)
		dt = ws.Scheduler.ClampDt(eng.Time(), dt)
		if err = ws.Counters.Step(func() error { return eng.Step(dt) }); err != nil {
			return fmt.Errorf("iteration %d, t = %g: %w", eng.Iteration(), eng.Time(), err)
		}
		ws.dt = dt
		for _, c := range ws.Corrections {
			c.Apply(eng, dt)
		}
		eng.ExchangeGhosts()
	}
}

// Close releases the output streams of the run
func (ws *State) Close() (err error) {
	err = multierr.Append(err, ws.Reporter.Close())
	ws.logger.Info("closed", append(ws.Counters.Fields(ws.Engine.Mesh().Len()),
		zap.Float64("t", ws.Engine.Time()))...)
	return
}

// fill is the part of a cell lying in the initial liquid region x < FillX, y < FillH
func fill(c mesh.Cell, fillX, fillH float64) float64 {
	clip := func(v float64) float64 { return math.Min(1, math.Max(0, v)) }
	var (
		fx = clip((fillX - (c.Center.X - 0.5*c.Delta)) / c.Delta)
		fy = clip((fillH - (c.Center.Y - 0.5*c.Delta)) / c.Delta)
	)
	return fx * fy
}

// initialize builds the starting mesh around the solid and the resting liquid
func (ws *State) initialize(iter int, t float64) error {
	var (
		cp  = ws.Case
		eng = ws.Engine
	)
	bulk := ws.Refiner.RefineWhere(func(c mesh.Cell) bool {
		return c.Center.X < cp.BulkX
	}, cp.MinLevel)
	wall := ws.Refiner.RefineWhere(func(c mesh.Cell) bool {
		d := ws.Scene.Distance(c.Center)
		return d > 0 && d < cp.WallBand
	}, cp.MaxLevel)
	closed := ws.Builder.Rebuild()
	var (
		f   = eng.Field(engine.Phase)
		cs  = eng.Field(engine.Solid)
		vel = make([][]float64, cp.Dim)
	)
	for axis := range vel {
		vel[axis] = eng.Field(engine.Velocity(axis))
	}
	eng.ForEach(func(c mesh.Cell) {
		i := c.Index
		for axis := range vel {
			vel[axis][i] = 0
		}
		f[i] = math.Min(fill(c, cp.FillX, cp.FillH), 1-cs[i])
	})
	eng.ExchangeGhosts()
	ws.logger.Info("init",
		zap.Int("bulk_refined", bulk.Refined), zap.Int("wall_refined", wall.Refined),
		zap.Int("cut_cells_closed", closed), zap.Int("cells", eng.Mesh().Len()))
	return nil
}
