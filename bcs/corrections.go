package bcs

import (
	"math"

	"github.com/notargets/weircfd/engine"
	"github.com/notargets/weircfd/mesh"
)

// Correction mutates fields directly once per iteration, after the engine step
// and before the next ghost exchange
type Correction interface {
	Name() string
	Apply(eng engine.Engine, dt float64)
}

// OutletClamp removes backflow through an outlet: on every leaf touching the
// boundary, a normal velocity pointing into the domain is set to zero
type OutletClamp struct {
	Tag mesh.Tag
}

func (oc OutletClamp) Name() string { return "outlet-clamp" }

func (oc OutletClamp) Apply(eng engine.Engine, dt float64) {
	var (
		tree    = eng.Mesh()
		face    = int(oc.Tag)
		outward = float64(2*oc.Tag.Side() - 1)
		u       = eng.Field(engine.Velocity(oc.Tag.Axis()))
	)
	eng.ForEach(func(c mesh.Cell) {
		if !tree.OnBoundary(c.Key, face) {
			return
		}
		if outward*u[c.Index] < 0 {
			u[c.Index] = 0
		}
	})
}

// Reservoir holds the region x < XRes at rest at the hydrostatic level H: the
// liquid fraction is reset to the level every iteration and the velocity
// decays as exp(-Damp·t)
type Reservoir struct {
	XRes, H, Damp float64
}

func (rs Reservoir) Name() string { return "reservoir" }

// Target is the fraction of a cell of size delta centered at y lying below H
func (rs Reservoir) Target(y, delta float64) float64 {
	return math.Min(1, math.Max(0, (rs.H-(y-0.5*delta))/delta))
}

func (rs Reservoir) Apply(eng engine.Engine, dt float64) {
	var (
		f     = eng.Field(engine.Phase)
		cs    = eng.Field(engine.Solid)
		decay = math.Exp(-rs.Damp * dt)
		vel   = make([][]float64, eng.Dimension())
	)
	for axis := range vel {
		vel[axis] = eng.Field(engine.Velocity(axis))
	}
	eng.ForEach(func(c mesh.Cell) {
		i := c.Index
		if c.Center.X >= rs.XRes || cs[i] >= 1 {
			return
		}
		f[i] = math.Min(rs.Target(c.Center.Y, c.Delta), 1-cs[i])
		for _, u := range vel {
			u[i] *= decay
		}
	})
}
