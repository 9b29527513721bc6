package bcs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/weircfd/engine"
	"github.com/notargets/weircfd/geometry"
	"github.com/notargets/weircfd/mesh"
)

func TestConditions(t *testing.T) {
	p := Point{Interior: 3, Delta: 0.5}
	assert.Equal(t, 1., Fixed(2).Ghost(p))
	assert.Equal(t, 3., ZeroGradient().Ghost(p))
	assert.Equal(t, 4., Gradient(2).Ghost(p))
	{ // Outflow passes, backflow is blocked
		assert.Equal(t, 3., OneWayOutflow().Ghost(p))
		p.Interior = -1
		assert.Equal(t, 1., OneWayOutflow().Ghost(p))
		assert.Equal(t, 0., 0.5*(p.Interior+OneWayOutflow().Ghost(p)))
	}
	{
		lv := Level(0.28)
		assert.Equal(t, 1., lv.Value(Point{Pos: r3.Vec{Y: 0.1}}))
		assert.Equal(t, 0., lv.Value(Point{Pos: r3.Vec{Y: 0.3}}))
	}
	assert.Equal(t, "neumann", Neumann.String())
}

func TestRampedInflow(t *testing.T) {
	ri := RampedInflow{U: 0.2, H: 0.28, RampTime: 1, Profile: Parabolic}
	ys := []float64{0, 0.05, 0.14, 0.27}
	for _, y := range ys {
		assert.Equal(t, 0., ri.Velocity(y, 0))
		steady := 0.2 * (1 - math.Pow(y/0.28-1, 2))
		assert.InDelta(t, steady, ri.Velocity(y, 1), 1.e-15)
		assert.InDelta(t, steady, ri.Velocity(y, 7.5), 1.e-15)
		prev := -1.
		for tt := 0.; tt <= 1.5; tt += 0.05 {
			v := ri.Velocity(y, tt)
			assert.True(t, v >= prev)
			prev = v
		}
	}
	assert.Equal(t, 0., ri.Velocity(0.28, 5))
	assert.Equal(t, 0., ri.Velocity(0.5, 5))
	assert.InDelta(t, 0.2, ri.Velocity(0.28-1.e-9, 5), 1.e-8)
	{ // Plug inflow without a ramp
		plug := RampedInflow{U: 0.2, H: 0.28, Profile: Uniform}
		assert.Equal(t, 0.2, plug.Velocity(0.1, 0))
		assert.Equal(t, 0., plug.Velocity(0.3, 0))
	}
	{
		c := ri.Condition()
		assert.Equal(t, Dirichlet, c.Kind)
		assert.InDelta(t, 0.1, c.Value(Point{Pos: r3.Vec{Y: 0.14}, T: 0.5}), 1.e-15)
	}
}

func TestSet(t *testing.T) {
	s := NewSet(3)
	s.RegisterVelocity(mesh.Left, Fixed(1), Fixed(0))
	s.Register(engine.Pressure, mesh.Right, Fixed(0))
	s.Register(engine.Phase, mesh.Right, ZeroGradient())
	c, ok := s.Lookup(engine.VelX, mesh.Left)
	require.True(t, ok)
	assert.Equal(t, 1., c.Value(Point{}))
	for _, id := range []engine.FieldID{engine.VelY, engine.VelZ} {
		c, ok = s.Lookup(id, mesh.Left)
		require.True(t, ok)
		assert.Equal(t, 0., c.Value(Point{}))
	}
	_, ok = s.Lookup(engine.VelX, mesh.Top)
	assert.False(t, ok)
	assert.Equal(t, 5., s.Ghost(engine.VelX, mesh.Top, r3.Vec{}, 0, 5, 0.1))
	assert.Equal(t, -5., s.Ghost(engine.Pressure, mesh.Right, r3.Vec{}, 0, 5, 0.1))
	assert.Equal(t, 5, len(s.Keys()))
	assert.Equal(t, Key{Field: engine.VelX, Tag: mesh.Left}, s.Keys()[0])
	assert.Contains(t, s.String(), "p[right] = dirichlet")
}

func TestGhostExchange(t *testing.T) {
	var (
		tree = mesh.NewTree(2, r3.Vec{}, 1, 3, 2)
		eng  = engine.NewReference(tree, nil)
		s    = NewSet(2)
		ri   = RampedInflow{U: 0.2, H: 0.5, RampTime: 1}
	)
	s.RegisterVelocity(mesh.Left, ri.Condition(), Fixed(0))
	s.Register(engine.Phase, mesh.Left, Level(0.5))
	eng.SetBoundary(s)
	eng.ExchangeGhosts()
	i, _ := tree.Locate(r3.Vec{X: 0.01, Y: 0.3})
	c := tree.Cell(i)
	{ // At rest before the ramp starts
		v, ok := eng.GhostValue(engine.VelX, i, 0)
		require.True(t, ok)
		assert.Equal(t, 0., v)
		fg, _ := eng.GhostValue(engine.Phase, i, 0)
		assert.Equal(t, 2., fg)
	}
	eng.SetFractions(eng.FractionsFromSignedDistance(geometry.Scene{}))
	require.NoError(t, eng.Step(0.5))
	eng.ExchangeGhosts()
	v, _ := eng.GhostValue(engine.VelX, i, 0)
	assert.InDelta(t, 2*ri.Velocity(c.Center.Y, 0.5), v, 1.e-15)
	// The liquid entering from the left fills the first column
	assert.Equal(t, 0., eng.Field(engine.Phase)[i])
	require.NoError(t, eng.Step(0.1))
	assert.True(t, eng.Field(engine.Phase)[i] > 0)
}

func TestOutletClamp(t *testing.T) {
	var (
		tree = mesh.NewTree(2, r3.Vec{}, 1, 3, 3)
		eng  = engine.NewReference(tree, nil)
		u    = eng.Field(engine.VelX)
	)
	eng.ForEach(func(c mesh.Cell) { u[c.Index] = math.Sin(float64(7 * c.Index)) })
	before := append([]float64(nil), u...)
	OutletClamp{Tag: mesh.Right}.Apply(eng, 0.01)
	for i, k := range tree.Leaves() {
		if tree.OnBoundary(k, int(mesh.Right)) {
			assert.True(t, u[i] >= 0)
			if before[i] >= 0 {
				assert.Equal(t, before[i], u[i])
			}
		} else {
			assert.Equal(t, before[i], u[i])
		}
	}
	{ // At a left outlet, backflow is positive
		eng.ForEach(func(c mesh.Cell) { u[c.Index] = 1 })
		OutletClamp{Tag: mesh.Left}.Apply(eng, 0.01)
		i, _ := tree.Locate(r3.Vec{X: 0.01, Y: 0.5})
		assert.Equal(t, 0., u[i])
	}
}

func TestReservoir(t *testing.T) {
	var (
		tree = mesh.NewTree(2, r3.Vec{}, 1, 4, 4)
		eng  = engine.NewReference(tree, nil)
		rs   = Reservoir{XRes: 0.25, H: 0.3, Damp: 2}
		dt   = 0.01
		ux   = eng.Field(engine.VelX)
		uy   = eng.Field(engine.VelY)
		f    = eng.Field(engine.Phase)
	)
	// A sloping solid floor cuts the reservoir cells
	eng.SetFractions(eng.FractionsFromSignedDistance(geometry.Func(func(p r3.Vec) float64 {
		return (p.Y - 0.1 + 0.2*p.X) / math.Hypot(1, 0.2)
	})))
	cs := eng.Field(engine.Solid)
	eng.ForEach(func(c mesh.Cell) {
		ux[c.Index], uy[c.Index] = 1, -0.5
		f[c.Index] = 0.5
	})
	steps := 50
	for n := 0; n < steps; n++ {
		rs.Apply(eng, dt)
	}
	decay := math.Exp(-rs.Damp * dt * float64(steps))
	for i := range f {
		c := tree.Cell(i)
		switch {
		case c.Center.X >= rs.XRes:
			assert.Equal(t, 0.5, f[i])
			assert.Equal(t, 1., ux[i])
		case cs[i] < 1:
			assert.Equal(t, math.Min(rs.Target(c.Center.Y, c.Delta), 1-cs[i]), f[i])
			assert.True(t, f[i] <= 1-cs[i])
			assert.InDelta(t, decay, ux[i], 1.e-12)
			assert.InDelta(t, -0.5*decay, uy[i], 1.e-12)
		}
	}
	assert.Equal(t, 1., rs.Target(0.1, 0.0625))
	assert.Equal(t, 0., rs.Target(0.4, 0.0625))
	assert.InDelta(t, 0.5, rs.Target(0.3, 0.0625), 1.e-12)
}
