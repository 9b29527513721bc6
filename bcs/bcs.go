package bcs

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/weircfd/engine"
	"github.com/notargets/weircfd/mesh"
)

// Make sure a condition set can serve ghost values to the engine
var _ engine.GhostProvider = &Set{}

type Kind uint8

const (
	Dirichlet Kind = iota
	Neumann
)

func (k Kind) String() string {
	switch k {
	case Dirichlet:
		return "dirichlet"
	case Neumann:
		return "neumann"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Point is what a condition sees: the boundary face center, the time, the
// value of the field in the adjacent cell and the size of that cell
type Point struct {
	Pos      r3.Vec
	T        float64
	Interior float64
	Delta    float64
}

// Condition is a Dirichlet value or a Neumann outward gradient, computed by Value
type Condition struct {
	Kind  Kind
	Value func(p Point) float64
}

func Fixed(v float64) Condition {
	return Condition{Kind: Dirichlet, Value: func(Point) float64 { return v }}
}

// FixedFunc is a Dirichlet condition depending on position, time or the interior value
func FixedFunc(fn func(p Point) float64) Condition {
	return Condition{Kind: Dirichlet, Value: fn}
}

func ZeroGradient() Condition { return Gradient(0) }

func Gradient(g float64) Condition {
	return Condition{Kind: Neumann, Value: func(Point) float64 { return g }}
}

// OneWayOutflow lets the normal velocity leave the domain but never enter it
func OneWayOutflow() Condition {
	return FixedFunc(func(p Point) float64 { return math.Max(0, p.Interior) })
}

// Ghost is the value one cell beyond the boundary that realizes the condition
// on the face between it and the interior cell
func (c Condition) Ghost(p Point) float64 {
	v := c.Value(p)
	if c.Kind == Dirichlet {
		return 2*v - p.Interior
	}
	return p.Interior + v*p.Delta
}

type Key struct {
	Field engine.FieldID
	Tag   mesh.Tag
}

func (k Key) String() string { return string(k.Field) + "[" + k.Tag.String() + "]" }

// Set is the registry of boundary conditions of a case. Fields without a
// registered condition on a boundary get a zero gradient there.
type Set struct {
	Dim   int
	conds map[Key]Condition
}

func NewSet(dim int) *Set {
	return &Set{Dim: dim, conds: make(map[Key]Condition)}
}

func (s *Set) Register(field engine.FieldID, tag mesh.Tag, c Condition) {
	s.conds[Key{Field: field, Tag: tag}] = c
}

// RegisterVelocity sets the velocity component normal to the boundary and all
// tangential components
func (s *Set) RegisterVelocity(tag mesh.Tag, normal, tangential Condition) {
	for axis := 0; axis < s.Dim; axis++ {
		if axis == tag.Axis() {
			s.Register(engine.Velocity(axis), tag, normal)
		} else {
			s.Register(engine.Velocity(axis), tag, tangential)
		}
	}
}

func (s *Set) Lookup(field engine.FieldID, tag mesh.Tag) (c Condition, ok bool) {
	c, ok = s.conds[Key{Field: field, Tag: tag}]
	return
}

func (s *Set) Ghost(field engine.FieldID, tag mesh.Tag, pos r3.Vec, t, interior, delta float64) float64 {
	c, ok := s.Lookup(field, tag)
	if !ok {
		return interior
	}
	return c.Ghost(Point{Pos: pos, T: t, Interior: interior, Delta: delta})
}

// Keys lists the registered conditions in (tag, field) order
func (s *Set) Keys() (keys []Key) {
	keys = make([]Key, 0, len(s.conds))
	for k := range s.conds {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Tag != keys[j].Tag {
			return keys[i].Tag < keys[j].Tag
		}
		return keys[i].Field < keys[j].Field
	})
	return
}

func (s *Set) String() string {
	var b strings.Builder
	for _, k := range s.Keys() {
		fmt.Fprintf(&b, "%s = %s\n", k, s.conds[k].Kind)
	}
	return b.String()
}

type Profile string

const (
	Parabolic Profile = "parabolic"
	Uniform   Profile = "uniform"
)

// RampedInflow is an open channel inflow of depth H and peak velocity U,
// switched on linearly over RampTime
type RampedInflow struct {
	U, H     float64
	RampTime float64 // <= 0 switches the inflow on at once
	Profile  Profile
}

func (ri RampedInflow) Ramp(t float64) float64 {
	if ri.RampTime <= 0 {
		return 1
	}
	return math.Min(1, math.Max(0, t/ri.RampTime))
}

// Velocity is the inflow normal velocity at height y and time t
func (ri RampedInflow) Velocity(y, t float64) float64 {
	if y >= ri.H {
		return 0
	}
	shape := 1.
	if ri.Profile != Uniform {
		eta := y/ri.H - 1
		shape = 1 - eta*eta
	}
	return ri.Ramp(t) * ri.U * shape
}

func (ri RampedInflow) Condition() Condition {
	return FixedFunc(func(p Point) float64 { return ri.Velocity(p.Pos.Y, p.T) })
}

// Level is a Dirichlet liquid fraction: liquid below height H, gas above
func Level(H float64) Condition {
	return FixedFunc(func(p Point) float64 {
		if p.Pos.Y < H {
			return 1
		}
		return 0
	})
}
