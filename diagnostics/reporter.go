package diagnostics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/notargets/weircfd/engine"
	"github.com/notargets/weircfd/mesh"
)

var ErrOpenOutput = errors.New("diagnostics: could not open output file")

const TimeSeriesFile = "timeseries.csv"

var Header = []string{"t", "h_up", "q", "h_over_p"}

type Probes struct {
	HeadX       float64 // Center of the upstream head band
	DischargeX  float64 // Center of the discharge band
	CrestHeight float64
}

type Sample struct {
	T, Head, Discharge, HeadOverCrest float64
}

func (s Sample) Record() []string {
	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{format(s.T), format(s.Head), format(s.Discharge), format(s.HeadOverCrest)}
}

// Reporter integrates the liquid over narrow vertical bands and appends the
// result to the time series of the run. The output file is opened on the
// first record and flushed after every row.
type Reporter struct {
	Probes Probes
	Path   string
	eng    engine.Engine
	file   *os.File
	w      *csv.Writer
	rows   int
	logger *zap.Logger

	resumed bool
	resumeT float64
}

func NewReporter(eng engine.Engine, probes Probes, runDir string, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		Probes: probes,
		Path:   filepath.Join(runDir, TimeSeriesFile),
		eng:    eng,
		logger: logger,
	}
}

// BandWidth is two cells of the finest level
func (r *Reporter) BandWidth() float64 { return 2 * r.eng.MinDelta() }

// span is the extent normal to the flow plane the integrals are averaged over
func (r *Reporter) span() float64 {
	if r.eng.Dimension() == 3 {
		return r.eng.Mesh().L0
	}
	return 1
}

// overlap is the fraction of the x extent of a cell lying in [x0, x1]
func overlap(c mesh.Cell, x0, x1 float64) float64 {
	var (
		lo = math.Max(c.Center.X-0.5*c.Delta, x0)
		hi = math.Min(c.Center.X+0.5*c.Delta, x1)
	)
	if hi <= lo {
		return 0
	}
	return (hi - lo) / c.Delta
}

// BandIntegral is the band average of Σ fn·V over the band centered at x, per
// unit band width and unit span
func (r *Reporter) BandIntegral(x float64, fn func(i int) float64) float64 {
	var (
		band   = r.BandWidth()
		x0, x1 = x - 0.5*band, x + 0.5*band
		tree   = r.eng.Mesh()
	)
	sum := r.eng.ReduceSum(func(c mesh.Cell) float64 {
		w := overlap(c, x0, x1)
		if w == 0 {
			return 0
		}
		return fn(c.Index) * tree.Volume(c) * w
	})
	return sum / (band * r.span())
}

// Sample computes head and discharge, a collective operation
func (r *Reporter) Sample() (s Sample) {
	var (
		f = r.eng.Field(engine.Phase)
		u = r.eng.Field(engine.VelX)
	)
	s.T = r.eng.Time()
	s.Head = r.BandIntegral(r.Probes.HeadX, func(i int) float64 { return f[i] })
	s.Discharge = r.BandIntegral(r.Probes.DischargeX, func(i int) float64 { return f[i] * u[i] })
	if r.Probes.CrestHeight != 0 {
		s.HeadOverCrest = s.Head / r.Probes.CrestHeight
	}
	return
}

// Record samples and, on the coordinator, appends one row to the time series
func (r *Reporter) Record() (s Sample, err error) {
	s = r.Sample()
	if !r.eng.IsCoordinator() {
		return
	}
	if r.w == nil {
		if err = r.open(); err != nil {
			return
		}
	}
	if err = r.w.Write(s.Record()); err != nil {
		return s, fmt.Errorf("%s: %w", r.Path, err)
	}
	r.w.Flush()
	if err = r.w.Error(); err != nil {
		return s, fmt.Errorf("%s: %w", r.Path, err)
	}
	r.rows++
	r.logger.Debug("timeseries",
		zap.Float64("t", s.T), zap.Float64("h_up", s.Head), zap.Float64("q", s.Discharge))
	return
}

// Resume makes the next open keep the rows of an earlier run that precede t,
// the time a restored run continues from. Later rows are dropped since the
// run writes them again.
func (r *Reporter) Resume(t float64) {
	r.resumed, r.resumeT = true, t
}

// open starts the time series. A fresh run replaces any file left in the run
// directory, a resumed one rewrites it up to the restored time.
func (r *Reporter) open() (err error) {
	var kept []Sample
	if r.resumed {
		if kept, err = ReadTimeSeries(r.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%s: %v: %w", r.Path, err, ErrOpenOutput)
		}
	}
	if r.file, err = os.OpenFile(r.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644); err != nil {
		return fmt.Errorf("%s: %v: %w", r.Path, err, ErrOpenOutput)
	}
	r.w = csv.NewWriter(r.file)
	if err = r.w.Write(Header); err != nil {
		return fmt.Errorf("%s: %w", r.Path, err)
	}
	eps := 1.e-9 * math.Max(1, math.Abs(r.resumeT))
	for _, s := range kept {
		if s.T >= r.resumeT-eps {
			break
		}
		if err = r.w.Write(s.Record()); err != nil {
			return fmt.Errorf("%s: %w", r.Path, err)
		}
	}
	return
}

func (r *Reporter) Rows() int { return r.rows }

func (r *Reporter) Close() (err error) {
	if r.file == nil {
		return
	}
	r.w.Flush()
	err = r.w.Error()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	r.file, r.w = nil, nil
	return
}
