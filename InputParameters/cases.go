package InputParameters

import (
	"github.com/notargets/weircfd/geometry"
)

var cases = map[string]func() CaseParameters{
	"2d":                    case2D,
	"main":                  caseMain,
	"sharp-crested-weir-2d": caseWeir2D,
	"3d":                    case3D,
	"sharp-crested-weir-3d": caseWeir3D,
	"weir-2d-reservoir":     caseReservoir2D,
}

// defaults shared by every case: unit domain, output every 0.1
func defaults() CaseParameters {
	return CaseParameters{
		L0:                1,
		BaseLevel:         4,
		BulkX:             0.9,
		WallBand:          0.025,
		CleanupThreshold:  1.e-3,
		InflowProfile:     "uniform",
		NoSlipWalls:       []string{"bottom"},
		CFL:               0.8,
		DtMax:             1.e-2,
		DtOutput:          0.1,
		DtVisualization:   0.1,
		DtCheckpoint:      1,
		ProgressEvery:     10,
		HeatMapResolution: 256,
	}
}

func weirFluids(cp *CaseParameters) {
	cp.Rho1, cp.Rho2 = 10, 1.2
	cp.Mu1, cp.Mu2 = 1.e-3, 1.8e-5
	cp.Sigma = 7.2e-2
	cp.Gravity = [3]float64{0, -9.81, 0}
}

func box2D(x0, x1, y0, y1 float64) geometry.ObstacleSpec {
	return geometry.ObstacleSpec{Type: "box", X0: x0, X1: x1, Y0: y0, Y1: y1}
}

// notch3D is a crest of height 0.25 between two cheeks of height 0.5
func notch3D() []geometry.ObstacleSpec {
	return []geometry.ObstacleSpec{{
		Type: "notched", X0: 0.25, X1: 0.375, Crest: 0.25, Top: 0.5, Z0: 0.25, Z1: 0.75, Width: 1,
	}}
}

// case2D is a dam break against a block, light liquid under a heavy gas
func case2D() CaseParameters {
	cp := defaults()
	cp.Title = "2d"
	cp.Dim = 2
	cp.MinLevel, cp.MaxLevel = 5, 8
	cp.Obstacles = []geometry.ObstacleSpec{box2D(0.5, 0.625, 0, 0.25)}
	cp.FillX, cp.FillH = 0.5, 0.5
	cp.Rho1, cp.Rho2 = 1, 10
	cp.Mu1, cp.Mu2 = 1.e-3, 1.e-3
	cp.Sigma = 1.e-6
	cp.Gravity = [3]float64{0, 1, 0}
	cp.TEnd = 10
	return cp
}

// caseMain is the thin plate weir fed by a uniform inflow
func caseMain() CaseParameters {
	cp := case2D()
	cp.Title = "main"
	cp.Obstacles = []geometry.ObstacleSpec{box2D(0.5, 0.51, 0, 0.25)}
	cp.FillX, cp.FillH = 0.5, 0.28
	cp.InflowU, cp.InflowH = 0.2, 0.28
	cp.OneWayOutlet = true
	cp.Adapt = true
	cp.RefineFields = []string{"f", "u.x", "u.y"}
	cp.RefineThresholds = []float64{1.e-3, 5.e-3, 5.e-3}
	cp.AdaptEvery = 1
	cp.TEnd = 30
	cp.TimeSeries = true
	cp.HeadX, cp.DischargeX, cp.CrestHeight = 0.3, 0.45, 0.25
	return cp
}

// caseWeir2D is caseMain with water and air
func caseWeir2D() CaseParameters {
	cp := caseMain()
	cp.Title = "sharp-crested-weir-2d"
	weirFluids(&cp)
	return cp
}

func case3D() CaseParameters {
	cp := defaults()
	cp.Title = "3d"
	cp.Dim = 3
	cp.MinLevel, cp.MaxLevel = 5, 6
	cp.Obstacles = notch3D()
	cp.FillX, cp.FillH = 0.25, 0.75
	cp.Rho1, cp.Rho2 = 1, 10
	cp.Mu1, cp.Mu2 = 1.e-5, 1.e-5
	cp.Sigma = 1.e-6
	cp.Gravity = [3]float64{0, 1, 0}
	cp.TEnd = 10
	return cp
}

func caseWeir3D() CaseParameters {
	cp := case3D()
	cp.Title = "sharp-crested-weir-3d"
	weirFluids(&cp)
	cp.FillH = 0.28
	cp.InflowU, cp.InflowH = 0.2, 0.28
	cp.OneWayOutlet = true
	cp.TimeSeries = true
	cp.HeadX, cp.DischargeX, cp.CrestHeight = 0.15, 0.2, 0.25
	return cp
}

// caseReservoir2D feeds the weir from a damped reservoir through a ramped
// parabolic inflow and clamps backflow at the outlet
func caseReservoir2D() CaseParameters {
	cp := caseWeir2D()
	cp.Title = "weir-2d-reservoir"
	cp.InflowProfile = "parabolic"
	cp.RampTime = 1
	cp.OutletClamp = true
	cp.Reservoir = true
	cp.ReservoirX, cp.ReservoirDamp = 0.1, 5
	cp.AdaptEvery, cp.AdaptSkip = 5, 10
	cp.HeatMap = true
	return cp
}
