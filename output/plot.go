package output

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/notargets/weircfd/diagnostics"
	"github.com/notargets/weircfd/engine"
)

const plotSize = 6 * vg.Inch

// gridXYZ adapts a sampled field to plotter.GridXYZ
type gridXYZ struct {
	g Grid
	z []float64
}

func (gz gridXYZ) Dims() (c, r int)   { return gz.g.N, gz.g.N }
func (gz gridXYZ) Z(c, r int) float64 { return gz.z[r*gz.g.N+c] }
func (gz gridXYZ) X(c int) float64    { return gz.g.Point(c, 0).X }
func (gz gridXYZ) Y(r int) float64    { return gz.g.Point(0, r).Y }

// HeatMapName is the PNG written next to the snapshot of time t
func HeatMapName(t float64) string {
	return strings.TrimSuffix(SnapshotName(t), ".vtk") + ".png"
}

// WriteHeatMap renders a field sampled on an n x n grid to a PNG
func WriteHeatMap(dir string, eng engine.Engine, field engine.FieldID, n int) (path string, err error) {
	var (
		tree = eng.Mesh()
		g    = NewGrid(tree, n)
		gz   = gridXYZ{g: g, z: g.Sample(tree, eng.Field(field))}
		p    = plot.New()
	)
	path = filepath.Join(dir, HeatMapName(eng.Time()))
	p.Title.Text = fmt.Sprintf("%s at t = %.3f", field, eng.Time())
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	hm := plotter.NewHeatMap(gz, palette.Heat(16, 1))
	p.Add(hm)
	if err = p.Save(plotSize, plotSize, path); err != nil {
		return path, fmt.Errorf("%s: %v: %w", path, err, ErrOpenOutput)
	}
	return
}

// PlotTimeSeries writes the head and discharge history of a run, and the
// measured discharge against the sharp crested weir formulas
func PlotTimeSeries(samples []diagnostics.Sample, crestHeight float64, dir string) (paths []string, err error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("empty time series")
	}
	var (
		head, discharge, rating plotter.XYs
	)
	for _, s := range samples {
		head = append(head, plotter.XY{X: s.T, Y: s.Head})
		discharge = append(discharge, plotter.XY{X: s.T, Y: s.Discharge})
		rating = append(rating, plotter.XY{X: s.Head, Y: s.Discharge})
	}
	save := func(p *plot.Plot, name string) error {
		path := filepath.Join(dir, name)
		if err := p.Save(plotSize, plotSize/2, path); err != nil {
			return fmt.Errorf("%s: %v: %w", path, err, ErrOpenOutput)
		}
		paths = append(paths, path)
		return nil
	}
	{
		p := plot.New()
		p.Title.Text = "Upstream head"
		p.X.Label.Text, p.Y.Label.Text = "t", "h_up"
		if err = plotutil.AddLines(p, "h_up", head); err != nil {
			return
		}
		if err = save(p, "head.png"); err != nil {
			return
		}
	}
	{
		p := plot.New()
		p.Title.Text = "Discharge per unit width"
		p.X.Label.Text, p.Y.Label.Text = "t", "q"
		if err = plotutil.AddLines(p, "q", discharge); err != nil {
			return
		}
		if err = save(p, "discharge.png"); err != nil {
			return
		}
	}
	{
		p := plot.New()
		p.Title.Text = "Rating curve"
		p.X.Label.Text, p.Y.Label.Text = "h", "q"
		ideal, rehbock := TheoryCurves(rating, crestHeight, 50)
		if err = plotutil.AddScatters(p, "simulation", rating); err != nil {
			return
		}
		var lines []interface{}
		if len(ideal) > 0 {
			lines = append(lines, "2/3 sqrt(2g) h^1.5", ideal)
		}
		if len(rehbock) > 0 {
			lines = append(lines, "Rehbock", rehbock)
		}
		if err = plotutil.AddLines(p, lines...); err != nil {
			return
		}
		if err = save(p, "rating.png"); err != nil {
			return
		}
	}
	return
}

// TheoryCurves samples the ideal and the Rehbock corrected discharge over the
// range of heads seen in the run
func TheoryCurves(rating plotter.XYs, crestHeight float64, n int) (ideal, rehbock plotter.XYs) {
	hs := make([]float64, 0, len(rating))
	for _, xy := range rating {
		if xy.X > 0 && !math.IsNaN(xy.X) {
			hs = append(hs, xy.X)
		}
	}
	if len(hs) == 0 || n < 2 {
		return
	}
	sort.Float64s(hs)
	hMax := hs[len(hs)-1]
	for k := 0; k < n; k++ {
		h := hMax * float64(k) / float64(n-1)
		qt := diagnostics.TheoreticalDischarge(h)
		ideal = append(ideal, plotter.XY{X: h, Y: qt})
		if crestHeight > 0 {
			rehbock = append(rehbock, plotter.XY{X: h, Y: diagnostics.RehbockCd(h, crestHeight) * qt})
		}
	}
	return
}
