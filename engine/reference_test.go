package engine

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/weircfd/geometry"
	"github.com/notargets/weircfd/mesh"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// reflecting turns the normal velocity around at every wall and copies everything else
type reflecting struct{}

func (reflecting) Ghost(field FieldID, tag mesh.Tag, p r3.Vec, t, interior, delta float64) float64 {
	if field == Velocity(tag.Axis()) {
		return -interior
	}
	return interior
}

type constantGhost float64

func (c constantGhost) Ghost(field FieldID, tag mesh.Tag, p r3.Vec, t, interior, delta float64) float64 {
	return float64(c)
}

func TestReductions(t *testing.T) {
	for _, procs := range []int{1, 3, 8} {
		e := NewReference(mesh.NewTree(2, r3.Vec{}, 1, 4, procs), nil)
		area := e.ReduceSum(func(c mesh.Cell) float64 { return e.Mesh().Volume(c) })
		assert.InDelta(t, 1., area, 1.e-12)
		f := e.Field(Phase)
		e.ForEach(func(c mesh.Cell) { f[c.Index] = c.Center.X })
		mean := e.ReduceSum(func(c mesh.Cell) float64 { return f[c.Index] * e.Mesh().Volume(c) })
		assert.InDelta(t, 0.5, mean, 1.e-12)
	}
	{ // More partitions than leaves
		e := NewReference(mesh.NewTree(2, r3.Vec{}, 1, 1, 8), nil)
		visits := make([]int, e.Mesh().Len())
		e.ForEach(func(c mesh.Cell) { visits[c.Index]++ })
		assert.Equal(t, []int{1, 1, 1, 1}, visits)
		assert.InDelta(t, 1., e.ReduceSum(func(c mesh.Cell) float64 { return e.Mesh().Volume(c) }), 1.e-12)
	}
	{ // 3D carries the third velocity component
		e := NewReference(mesh.NewTree(3, r3.Vec{}, 1, 2, 2), nil)
		assert.Equal(t, 6, len(e.Fields()))
		assert.Equal(t, 64, len(e.Field(VelZ)))
	}
}

func TestGhosts(t *testing.T) {
	e := NewReference(mesh.NewTree(2, r3.Vec{}, 1, 2, 2), nil)
	{ // Without a provider the ghost mirrors the interior
		e.Field(Phase)[0] = 0.7
		e.ExchangeGhosts(Phase)
		v, ok := e.GhostValue(Phase, 0, 0)
		require.True(t, ok)
		assert.Equal(t, 0.7, v)
		_, ok = e.GhostValue(Phase, 5, 0) // interior leaf
		assert.False(t, ok)
	}
	{
		e.SetBoundary(constantGhost(3))
		e.ExchangeGhosts()
		for _, face := range []int{0, 2} {
			v, ok := e.GhostValue(Pressure, 0, face)
			require.True(t, ok)
			assert.Equal(t, 3., v)
		}
		_, ok := e.GhostValue(Pressure, 0, 1)
		assert.False(t, ok)
		_, ok = e.GhostValue(Pressure, 1000, 0)
		assert.False(t, ok)
	}
}

func TestFractions(t *testing.T) {
	e := NewReference(mesh.NewTree(2, r3.Vec{}, 1, 3, 4), nil)
	box := geometry.NewBox2D(0.45, 2, -1, 2)
	fr := e.FractionsFromSignedDistance(box)
	require.Equal(t, e.Mesh().Len(), len(fr.Volume))
	for i := range fr.Volume {
		assert.True(t, fr.Volume[i] >= 0 && fr.Volume[i] <= 1)
		for _, s := range fr.Face[i] {
			assert.True(t, s >= 0 && s <= 1)
		}
	}
	at := func(x, y float64) int {
		i, ok := e.Mesh().Locate(r3.Vec{X: x, Y: y})
		require.True(t, ok)
		return i
	}
	{ // Cut cell
		i := at(0.43, 0.06)
		assert.InDelta(t, 0.4, fr.Volume[i], 1.e-12)
		assert.Equal(t, 0., fr.Face[i][0])
		assert.Equal(t, 1., fr.Face[i][1])
		assert.InDelta(t, 0.4, fr.Face[i][2], 1.e-12)
		assert.InDelta(t, 0.4, fr.Face[i][3], 1.e-12)
	}
	assert.Equal(t, 1., fr.Volume[at(0.8, 0.1)])
	assert.Equal(t, 1., fr.Volume[at(0.8, 0.9)])
	assert.Equal(t, 0., fr.Volume[at(0.1, 0.1)])
	{ // Total solid area matches the clipped box
		var area float64
		for i := range fr.Volume {
			area += fr.Volume[i] * e.Mesh().Volume(e.Mesh().Cell(i))
		}
		assert.InDelta(t, 0.55, area, 1.e-12)
	}
	{ // 3D slab cut halfway through a single layer
		e3 := NewReference(mesh.NewTree(3, r3.Vec{}, 1, 2, 2), nil)
		fr3 := e3.FractionsFromSignedDistance(geometry.NewBox3D(-1, 2, -1, 2, -1, 0.125))
		i, ok := e3.Mesh().Locate(r3.Vec{X: 0.1, Y: 0.1, Z: 0.1})
		require.True(t, ok)
		assert.InDelta(t, 0.5, fr3.Volume[i], 1.e-12)
		assert.Equal(t, 1., fr3.Face[i][4])
		assert.Equal(t, 0., fr3.Face[i][5])
		assert.InDelta(t, 0.5, fr3.Face[i][0], 1.e-12)
	}
	{ // An empty scene leaves everything open
		frEmpty := e.FractionsFromSignedDistance(geometry.Scene{})
		for i := range frEmpty.Volume {
			assert.Equal(t, 0., frEmpty.Volume[i])
		}
	}
}

func TestEstimateError(t *testing.T) {
	e := NewReference(mesh.NewTree(2, r3.Vec{}, 1, 3, 2), nil)
	zero := make([]float64, e.Mesh().Len())
	{ // Levels are clamped regardless of the details
		for _, d := range e.EstimateError([][]float64{zero}, []float64{0.01}, 4, 6) {
			assert.Equal(t, mesh.Split, d)
		}
		for _, d := range e.EstimateError([][]float64{zero}, []float64{0.01}, 1, 2) {
			assert.Equal(t, mesh.Combine, d)
		}
		for _, d := range e.EstimateError([][]float64{zero}, []float64{0.01}, 3, 5) {
			assert.Equal(t, mesh.Neither, d)
		}
	}
	{ // A jump at x = 0.5 refines next to the jump and coarsens far from it
		step := make([]float64, e.Mesh().Len())
		e.ForEach(func(c mesh.Cell) {
			if c.Center.X < 0.5 {
				step[c.Index] = 1
			}
		})
		d := e.EstimateError([][]float64{step}, []float64{0.01}, 1, 5)
		near, _ := e.Mesh().Lookup(mesh.Key{Level: 3, I: 3, J: 4})
		far, _ := e.Mesh().Lookup(mesh.Key{Level: 3, I: 0, J: 4})
		assert.Equal(t, mesh.Split, d[near])
		assert.Equal(t, mesh.Combine, d[far])
	}
}

func TestStep(t *testing.T) {
	e := NewReference(mesh.NewTree(2, r3.Vec{}, 1, 3, 3), nil)
	e.SetBoundary(reflecting{})
	assert.ErrorIs(t, e.Step(0.01), ErrStaleFractions)
	e.SetFractions(e.FractionsFromSignedDistance(geometry.Scene{}))
	var (
		f  = e.Field(Phase)
		ux = e.Field(VelX)
	)
	e.ForEach(func(c mesh.Cell) {
		ux[c.Index] = 1
		if c.Center.X < 0.5 {
			f[c.Index] = 1
		}
	})
	assert.InDelta(t, 0.125, e.MaxDt(1), 1.e-15)
	volume := func() float64 {
		return e.ReduceSum(func(c mesh.Cell) float64 { return f[c.Index] * e.Mesh().Volume(c) })
	}
	v0 := volume()
	for n := 0; n < 3; n++ {
		require.NoError(t, e.Step(0.01))
	}
	assert.InDelta(t, v0, volume(), 1.e-12)
	assert.Equal(t, 3, e.Iteration())
	assert.InDelta(t, 0.03, e.Time(), 1.e-15)
	for _, v := range f {
		assert.True(t, v >= 0 && v <= 1)
	}
	{ // The front has moved downstream
		i, _ := e.Mesh().Locate(r3.Vec{X: 0.55, Y: 0.5})
		assert.True(t, f[i] > 0)
	}
	{ // A closed solid face blocks transport
		fr := e.Fractions()
		for i := range fr.Face {
			fr.Face[i][0], fr.Face[i][1] = 1, 1
		}
		e.SetFractions(fr)
		before := append([]float64(nil), f...)
		require.NoError(t, e.Step(0.01))
		assert.Equal(t, before, f)
	}
	{
		e.Field(VelY)[0] = math.NaN()
		assert.ErrorIs(t, e.Step(0.01), ErrDiverged)
	}
	{ // Adapting invalidates the fractions
		e2 := NewReference(mesh.NewTree(2, r3.Vec{}, 1, 2, 2), nil)
		e2.SetFractions(e2.FractionsFromSignedDistance(geometry.Scene{}))
		decisions := make([]mesh.SplitOrCombine, e2.Mesh().Len())
		decisions[0] = mesh.Split
		refined, _ := e2.Adapt(decisions)
		assert.Equal(t, 1, refined)
		assert.ErrorIs(t, e2.Step(0.01), ErrStaleFractions)
	}
}

func TestCheckpoint(t *testing.T) {
	var (
		dir  = t.TempDir()
		path = filepath.Join(dir, "dump")
	)
	e := NewReference(mesh.NewTree(2, r3.Vec{}, 2, 2, 2), nil)
	e.SetFractions(e.FractionsFromSignedDistance(geometry.NewBox2D(1, 3, -1, 0.5)))
	decisions := make([]mesh.SplitOrCombine, e.Mesh().Len())
	decisions[3] = mesh.Split
	e.Adapt(decisions)
	e.SetFractions(e.FractionsFromSignedDistance(geometry.NewBox2D(1, 3, -1, 0.5)))
	f := e.Field(Phase)
	for i := range f {
		f[i] = float64(i) / float64(len(f))
	}
	require.NoError(t, e.Step(0))
	require.NoError(t, e.CheckpointWrite(path))

	r := NewReference(mesh.NewTree(2, r3.Vec{}, 1, 1, 3), nil)
	ok, err := r.CheckpointRestore(path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e.Mesh().Leaves(), r.Mesh().Leaves())
	assert.Equal(t, e.Field(Phase), r.Field(Phase))
	assert.Equal(t, e.Field(Solid), r.Field(Solid))
	assert.Equal(t, e.Fractions(), r.Fractions())
	assert.Equal(t, 1, r.Iteration())
	assert.Equal(t, 2., r.Mesh().L0)
	assert.Equal(t, 3, r.Mesh().Partitions.ParallelDegree)
	require.NoError(t, r.Step(0))

	{ // Nothing to restore
		ok, err = r.CheckpointRestore(filepath.Join(dir, "missing"))
		assert.NoError(t, err)
		assert.False(t, ok)
	}
	{
		bad := filepath.Join(dir, "bad")
		require.NoError(t, os.WriteFile(bad, []byte("not a checkpoint"), 0644))
		ok, err = r.CheckpointRestore(bad)
		assert.ErrorIs(t, err, ErrRestore)
		assert.False(t, ok)
	}
}
