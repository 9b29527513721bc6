package InputParameters

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/weircfd/mesh"
)

func TestCases(t *testing.T) {
	assert.Equal(t, []string{"2d", "3d", "main", "sharp-crested-weir-2d",
		"sharp-crested-weir-3d", "weir-2d-reservoir"}, Names())
	for _, name := range Names() {
		cp, err := Case(name)
		require.NoError(t, err)
		assert.Equal(t, name, cp.Title)
		assert.NoError(t, cp.Validate(), name)
	}
	{ // The 2d case block is the box of the distance scenario
		cp, _ := Case("2d")
		scene, err := cp.Scene()
		require.NoError(t, err)
		assert.InDelta(t, -0.0625, scene.Distance(r3.Vec{X: 0.5625, Y: 0.125}), 1.e-12)
		assert.InDelta(t, 0.375, scene.Distance(r3.Vec{X: 1, Y: 0.125}), 1.e-12)
		assert.False(t, cp.Adapt)
		assert.Equal(t, 0., cp.InflowU)
	}
	{
		cp, _ := Case("sharp-crested-weir-2d")
		assert.Equal(t, 10., cp.Rho1)
		assert.Equal(t, -9.81, cp.Gravity[1])
		assert.Equal(t, []float64{1.e-3, 5.e-3, 5.e-3}, cp.RefineThresholds)
		assert.True(t, cp.OneWayOutlet)
		assert.False(t, cp.Reservoir)
	}
	{ // Notch: crest at 0.25, cheeks at 0.5
		cp, _ := Case("sharp-crested-weir-3d")
		scene, err := cp.Scene()
		require.NoError(t, err)
		assert.Less(t, scene.Distance(r3.Vec{X: 0.3, Y: 0.4, Z: 0.1}), 0.)
		assert.Greater(t, scene.Distance(r3.Vec{X: 0.3, Y: 0.4, Z: 0.5}), 0.)
	}
	{ // Copies are independent
		a, _ := Case("main")
		a.Obstacles[0].X0 = 0
		b, _ := Case("main")
		assert.Equal(t, 0.5, b.Obstacles[0].X0)
	}
	_, err := Case("tsunami")
	assert.True(t, errors.Is(err, ErrUnknownCase))
	cp, err := Case("SHARP-CRESTED-WEIR-2D")
	require.NoError(t, err)
	assert.Equal(t, "sharp-crested-weir-2d", cp.Title)
}

func TestParse(t *testing.T) {
	fileInput := []byte(`
Title: Test Case
TEnd: 4.
InflowU: 0.3
InflowProfile: Parabolic
RampTime: 0.5
Obstacles:
  - Type: plate
    Center: 0.5
    Thickness: 0.01
    Base: 0
    Top: 0.2
Reservoir: true
ReservoirX: 0.05
ReservoirDamp: 2
`)
	input, err := Case("main")
	require.NoError(t, err)
	require.NoError(t, input.Parse(fileInput))
	input.Print()
	assert.Equal(t, "Test Case", input.Title)
	assert.Equal(t, 4., input.TEnd)
	assert.Equal(t, 0.3, input.InflowU)
	assert.Equal(t, "parabolic", input.Profile())
	// Untouched fields keep the case values
	assert.Equal(t, 0.28, input.InflowH)
	assert.Equal(t, 8, input.MaxLevel)
	require.Equal(t, 1, len(input.Obstacles))
	assert.Equal(t, "plate", input.Obstacles[0].Type)
	assert.Equal(t, 0.2, input.Obstacles[0].Top)
	assert.Equal(t, 0., input.Obstacles[0].X1)
	assert.True(t, input.Reservoir)
	require.NoError(t, input.Validate())
	{ // Round trip through the manifest form
		data, err := input.Marshal()
		require.NoError(t, err)
		var back CaseParameters
		require.NoError(t, back.Parse(data))
		assert.Equal(t, input, back)
	}
	assert.Error(t, input.Parse([]byte("TEnd: [1, 2")))
}

func TestValidate(t *testing.T) {
	cp, _ := Case("main")
	cp.MinLevel = 9
	cp.CFL = 2
	cp.RefineThresholds = cp.RefineThresholds[:1]
	cp.InflowProfile = "sawtooth"
	cp.Obstacles = append(cp.Obstacles, cp.Obstacles[0])
	cp.Obstacles[1].Type = "sphere"
	err := cp.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidParameters))
	for _, s := range []string{"levels", "CFL", "thresholds", "sawtooth", "sphere"} {
		assert.Contains(t, err.Error(), s)
	}
	{ // Wall names go through the boundary aliases
		cp, _ := Case("2d")
		cp.NoSlipWalls = []string{"Floor", "outlet"}
		tags, err := cp.NoSlipTags()
		require.NoError(t, err)
		assert.Equal(t, []mesh.Tag{mesh.Bottom, mesh.Right}, tags)
		for _, name := range []string{"front", "solid", "ceiling"} {
			cp.NoSlipWalls = []string{name}
			err = cp.Validate()
			assert.True(t, errors.Is(err, ErrInvalidParameters), name)
			assert.Contains(t, err.Error(), name)
		}
		cp, _ = Case("3d")
		cp.NoSlipWalls = []string{"front"}
		assert.NoError(t, cp.Validate())
	}
	{
		cp, _ := Case("3d")
		cp.Adapt = true
		cp.RefineFields, cp.RefineThresholds = []string{"f", "u.w"}, []float64{1, 1}
		cp.AdaptEvery = 1
		assert.Error(t, cp.Validate())
		cp.RefineFields[1] = "u.z"
		assert.NoError(t, cp.Validate())
	}
}
