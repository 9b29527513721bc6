package Weir

import (
	"github.com/notargets/weircfd/InputParameters"
	"github.com/notargets/weircfd/bcs"
	"github.com/notargets/weircfd/engine"
	"github.com/notargets/weircfd/mesh"
)

// Boundaries assembles the condition registry of a case. The walls named by
// the case are no slip, the remaining closed boundaries are slip walls. An
// inflow case feeds the left boundary with liquid up to the inflow depth, the
// right boundary is an open outlet at zero pressure. The solid needs no entry:
// it acts through the closed face fractions.
func Boundaries(cp InputParameters.CaseParameters) (s *bcs.Set) {
	var (
		wall = bcs.Fixed(0)
		free = bcs.ZeroGradient()
	)
	s = bcs.NewSet(cp.Dim)
	s.Register(engine.Velocity(mesh.Top.Axis()), mesh.Top, wall)
	if cp.Dim == 3 {
		s.Register(engine.VelZ, mesh.Back, wall)
		s.Register(engine.VelZ, mesh.Front, wall)
	}
	noSlip, _ := cp.NoSlipTags()
	for _, tag := range noSlip {
		s.RegisterVelocity(tag, wall, wall)
	}

	if cp.InflowU > 0 {
		inflow := bcs.RampedInflow{
			U:        cp.InflowU,
			H:        cp.InflowH,
			RampTime: cp.RampTime,
			Profile:  bcs.Profile(cp.Profile()),
		}
		s.RegisterVelocity(mesh.Left, inflow.Condition(), wall)
		s.Register(engine.Pressure, mesh.Left, free)
		s.Register(engine.Phase, mesh.Left, bcs.Level(cp.InflowH))
	} else {
		s.Register(engine.VelX, mesh.Left, wall)
	}

	normal := free
	if cp.OneWayOutlet {
		normal = bcs.OneWayOutflow()
	}
	s.RegisterVelocity(mesh.Right, normal, free)
	s.Register(engine.Pressure, mesh.Right, bcs.Fixed(0))
	s.Register(engine.Phase, mesh.Right, free)
	return
}

// Corrections lists the per step corrections a case enables, in the order
// they are applied
func Corrections(cp InputParameters.CaseParameters) (cs []bcs.Correction) {
	if cp.OutletClamp {
		cs = append(cs, bcs.OutletClamp{Tag: mesh.Right})
	}
	if cp.Reservoir {
		h := cp.InflowH
		if h <= 0 {
			h = cp.FillH
		}
		cs = append(cs, bcs.Reservoir{XRes: cp.ReservoirX, H: h, Damp: cp.ReservoirDamp})
	}
	return
}
