package geometry

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

var ErrUnknownObstacle = errors.New("geometry: unknown obstacle type")

// SDF is a signed distance function, negative inside the solid
type SDF interface {
	Distance(p r3.Vec) float64
}

// Func adapts a plain function to the SDF interface
type Func func(p r3.Vec) float64

func (f Func) Distance(p r3.Vec) float64 { return f(p) }

// Box is an axis aligned box. It is a 2D box, with the z extents ignored, when
// Dim is 2 or when both z extents are zero.
type Box struct {
	X0, X1, Y0, Y1, Z0, Z1 float64
	Dim                    int
}

func NewBox2D(x0, x1, y0, y1 float64) Box {
	return Box{X0: x0, X1: x1, Y0: y0, Y1: y1, Dim: 2}
}

func NewBox3D(x0, x1, y0, y1, z0, z1 float64) Box {
	return Box{X0: x0, X1: x1, Y0: y0, Y1: y1, Z0: z0, Z1: z1, Dim: 3}
}

func (b Box) Center() r3.Vec {
	return r3.Vec{X: 0.5 * (b.X0 + b.X1), Y: 0.5 * (b.Y0 + b.Y1), Z: 0.5 * (b.Z0 + b.Z1)}
}

func (b Box) HalfExtent() r3.Vec {
	return r3.Vec{X: 0.5 * (b.X1 - b.X0), Y: 0.5 * (b.Y1 - b.Y0), Z: 0.5 * (b.Z1 - b.Z0)}
}

func (b Box) Is2D() bool { return b.Dim == 2 || (b.Z0 == 0 && b.Z1 == 0) }

// Distance is the exact rounded box distance: outside norm plus clipped inside term
func (b Box) Distance(p r3.Vec) float64 {
	var (
		c = b.Center()
		h = b.HalfExtent()
	)
	q := r3.Vec{
		X: math.Abs(p.X-c.X) - h.X,
		Y: math.Abs(p.Y-c.Y) - h.Y,
		Z: math.Abs(p.Z-c.Z) - h.Z,
	}
	if b.Is2D() {
		return boxDistance2D(q.X, q.Y)
	}
	o := r3.Vec{X: math.Max(q.X, 0), Y: math.Max(q.Y, 0), Z: math.Max(q.Z, 0)}
	inside := math.Min(math.Max(math.Max(q.X, q.Y), q.Z), 0)
	return r3.Norm(o) + inside
}

func boxDistance2D(qx, qy float64) float64 {
	var (
		ox, oy = math.Max(qx, 0), math.Max(qy, 0)
	)
	return math.Hypot(ox, oy) + math.Min(math.Max(qx, qy), 0)
}

// Plate is a thin vertical plate: a slab of the given thickness about the
// centerline x = Center, spanning Base <= y <= Top. In 3D it spans Z0 <= z <= Z1
// unless Z0 == Z1, in which case it is open in z.
type Plate struct {
	Center, Thickness float64
	Base, Top         float64
	Z0, Z1            float64
	Dim               int
}

func (pl Plate) Distance(p r3.Vec) float64 {
	var (
		qx = math.Abs(p.X-pl.Center) - 0.5*pl.Thickness
		// One sided clips: below the top and above the base
		qy = math.Max(p.Y-pl.Top, pl.Base-p.Y)
	)
	if pl.Dim != 3 || pl.Z0 == pl.Z1 {
		return boxDistance2D(qx, qy)
	}
	qz := math.Max(p.Z-pl.Z1, pl.Z0-p.Z)
	o := r3.Vec{X: math.Max(qx, 0), Y: math.Max(qy, 0), Z: math.Max(qz, 0)}
	return r3.Norm(o) + math.Min(math.Max(math.Max(qx, qy), qz), 0)
}

// Scene is the union of its obstacles
type Scene []SDF

func (s Scene) Distance(p r3.Vec) (d float64) {
	d = math.Inf(1)
	for _, o := range s {
		d = math.Min(d, o.Distance(p))
	}
	return
}

// Notched is the 3D weir with a lowered crest between two cheeks, spanning
// the width [0, width] in z with the notch over [zn0, zn1].
func Notched(x0, x1, crest, cheek, zn0, zn1, width float64) Scene {
	return Scene{
		NewBox3D(x0, x1, 0, cheek, 0, zn0),
		NewBox3D(x0, x1, 0, crest, zn0, zn1),
		NewBox3D(x0, x1, 0, cheek, zn1, width),
	}
}

// ObstacleSpec is the parameter file form of an obstacle. A notched weir uses
// X0, X1 for the weir, Top for the cheeks, Crest for the lowered crest, Z0, Z1
// for the notch and Width for the channel.
type ObstacleSpec struct {
	Type      string  `json:"Type"` // box, plate or notched
	X0        float64 `json:"X0"`
	X1        float64 `json:"X1"`
	Y0        float64 `json:"Y0"`
	Y1        float64 `json:"Y1"`
	Z0        float64 `json:"Z0"`
	Z1        float64 `json:"Z1"`
	Center    float64 `json:"Center"`
	Thickness float64 `json:"Thickness"`
	Base      float64 `json:"Base"`
	Top       float64 `json:"Top"`
	Crest     float64 `json:"Crest"`
	Width     float64 `json:"Width"`
}

func FromSpecs(specs []ObstacleSpec, dim int) (s Scene, err error) {
	for i, o := range specs {
		switch strings.ToLower(strings.TrimSpace(o.Type)) {
		case "box", "":
			s = append(s, Box{X0: o.X0, X1: o.X1, Y0: o.Y0, Y1: o.Y1, Z0: o.Z0, Z1: o.Z1, Dim: dim})
		case "plate":
			s = append(s, Plate{Center: o.Center, Thickness: o.Thickness, Base: o.Base, Top: o.Top,
				Z0: o.Z0, Z1: o.Z1, Dim: dim})
		case "notched":
			if dim != 3 {
				err = fmt.Errorf("obstacle %d: notched weir needs 3 dimensions, have %d", i, dim)
				return
			}
			s = append(s, Notched(o.X0, o.X1, o.Crest, o.Top, o.Z0, o.Z1, o.Width)...)
		default:
			err = fmt.Errorf("obstacle %d: %q: %w", i, o.Type, ErrUnknownObstacle)
			return
		}
	}
	return
}
