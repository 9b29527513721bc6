package engine

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/weircfd/geometry"
	"github.com/notargets/weircfd/mesh"
)

var (
	ErrDiverged       = errors.New("engine: non finite value in transported field")
	ErrStaleFractions = errors.New("engine: solid fractions not rebuilt since the last mesh change")
	ErrRestore        = errors.New("engine: could not restore checkpoint")
)

// FieldID names a leaf field of the engine
type FieldID string

const (
	Phase    FieldID = "f"  // liquid volume fraction, 1 = liquid
	Solid    FieldID = "cs" // solid volume fraction, 1 = fully solid
	VelX     FieldID = "u.x"
	VelY     FieldID = "u.y"
	VelZ     FieldID = "u.z"
	Pressure FieldID = "p"
)

// Velocity returns the velocity component along an axis
func Velocity(axis int) FieldID {
	return [3]FieldID{VelX, VelY, VelZ}[axis]
}

// Fractions holds solid volume fractions per leaf and solid face fractions per
// leaf face, indexed 2*axis + side. 1 is fully solid.
type Fractions struct {
	Volume []float64
	Face   [][]float64
}

// GhostProvider supplies boundary ghost values. interior is the value of the
// boundary adjacent cell, delta its size and p the center of the boundary face.
type GhostProvider interface {
	Ghost(field FieldID, tag mesh.Tag, p r3.Vec, t, interior, delta float64) float64
}

// Engine is the contract of the numerical solver that the case layer drives.
// All methods are collective: every partition takes part and the call returns
// once all of them have finished.
type Engine interface {
	Dimension() int
	Mesh() *mesh.Tree
	Field(id FieldID) []float64
	Fields() []FieldID
	Time() float64
	Iteration() int
	MinDelta() float64
	IsCoordinator() bool

	SetBoundary(g GhostProvider)
	MaxDt(cfl float64) float64
	Step(dt float64) error

	EstimateError(fields [][]float64, thresholds []float64, minLevel, maxLevel int) []mesh.SplitOrCombine
	Adapt(decisions []mesh.SplitOrCombine) (refined, coarsened int)

	ExchangeGhosts(fields ...FieldID)
	GhostValue(field FieldID, cell, face int) (v float64, ok bool)
	ReduceSum(fn func(c mesh.Cell) float64) float64
	ForEach(fn func(c mesh.Cell))

	FractionsFromSignedDistance(sdf geometry.SDF) Fractions
	SetFractions(fr Fractions)
	Fractions() Fractions

	CheckpointWrite(path string) error
	CheckpointRestore(path string) (bool, error)
}
