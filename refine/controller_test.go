package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/weircfd/engine"
	"github.com/notargets/weircfd/fractions"
	"github.com/notargets/weircfd/geometry"
	"github.com/notargets/weircfd/mesh"
)

func newController(t *testing.T, scene geometry.SDF) (rc *Controller, eng *engine.Reference) {
	eng = engine.NewReference(mesh.NewTree(2, r3.Vec{}, 1, 3, 4), nil)
	b := fractions.NewBuilder(eng, scene, nil)
	b.Rebuild()
	rc = NewController(eng, b, nil)
	rc.Fields = []engine.FieldID{engine.Phase}
	rc.Thresholds = []float64{0.01}
	rc.MinLevel, rc.MaxLevel = 2, 5
	require.NoError(t, rc.Validate())
	return
}

func TestDue(t *testing.T) {
	rc, _ := newController(t, geometry.Scene{})
	rc.Every, rc.SkipIterations = 5, 3
	assert.False(t, rc.Due(0))
	assert.True(t, rc.Due(5))
	assert.False(t, rc.Due(6))
	assert.True(t, rc.Due(10))
	{ // Not due leaves the mesh alone
		st, err := rc.Adapt(1)
		require.NoError(t, err)
		assert.Equal(t, Stats{Cells: 64}, st)
	}
	rc.Thresholds = nil
	assert.Error(t, rc.Validate())
	rc.Thresholds = []float64{0.01}
	rc.MinLevel = 6
	assert.Error(t, rc.Validate())
}

func TestAdaptSolidExclusion(t *testing.T) {
	rc, eng := newController(t, geometry.NewBox2D(0.5, 2, -1, 2))
	f := eng.Field(engine.Phase)
	eng.ForEach(func(c mesh.Cell) {
		// The jump at 0.75 lies inside the solid
		if c.Center.X < 0.75 {
			f[c.Index] = 1
		}
	})
	st, err := rc.Adapt(0)
	require.NoError(t, err)
	assert.True(t, st.Refined > 0)
	var (
		tree = eng.Mesh()
		cs   = eng.Field(engine.Solid)
	)
	f = eng.Field(engine.Phase)
	assert.Equal(t, tree.Len(), st.Cells)
	for i, k := range tree.Leaves() {
		assert.True(t, k.Level >= rc.MinLevel && k.Level <= rc.MaxLevel)
		assert.True(t, f[i] <= 1-cs[i])
		if cs[i] >= 1 {
			assert.True(t, k.Level <= 3, "solid leaf %v was refined", k)
		}
	}
	// The fluid side of the solid boundary is refined
	i, ok := tree.Locate(r3.Vec{X: 0.49, Y: 0.5})
	require.True(t, ok)
	assert.Equal(t, 4, tree.Leaves()[i].Level)
	// Fractions were rebuilt for the new mesh
	assert.NoError(t, eng.Step(0))
}

func TestRefineWhere(t *testing.T) {
	rc, eng := newController(t, geometry.Scene{})
	st := rc.RefineWhere(func(c mesh.Cell) bool { return c.Center.X < 0.25 }, 5)
	assert.True(t, st.Refined > 0)
	tree := eng.Mesh()
	assert.Equal(t, tree.Len(), st.Cells)
	for i, k := range tree.Leaves() {
		if tree.Cell(i).Center.X < 0.25 {
			assert.Equal(t, 5, k.Level)
		} else {
			assert.Equal(t, 3, k.Level)
		}
	}
	assert.NoError(t, eng.Step(0))
	{ // Nothing left to do
		st = rc.RefineWhere(func(c mesh.Cell) bool { return c.Center.X < 0.25 }, 5)
		assert.Equal(t, 0, st.Refined)
	}
}
