package engine

import (
	"math"

	"github.com/notargets/weircfd/geometry"
	"github.com/notargets/weircfd/mesh"
)

// zSlices is the number of midpoint slices used to integrate a 3D cell volume
const zSlices = 8

// FractionsFromSignedDistance samples the signed distance at the vertices of
// every leaf and returns solid volume and face fractions. Inside a cell or a
// face the distance is taken as linear along edges, so fractions are exact
// for planar solid boundaries.
func (e *Reference) FractionsFromSignedDistance(sdf geometry.SDF) (fr Fractions) {
	var (
		tree = e.tree
		n    = tree.Len()
		nc   = tree.NumCorners()
		nf   = 2 * tree.Dim
	)
	fr = Fractions{Volume: make([]float64, n), Face: make([][]float64, n)}
	e.ForEach(func(c mesh.Cell) {
		phi := make([]float64, nc)
		for k := 0; k < nc; k++ {
			phi[k] = sdf.Distance(tree.Corner(c, k))
		}
		face := make([]float64, nf)
		if tree.Dim == 2 {
			fr.Volume[c.Index] = squareFraction(phi[0], phi[1], phi[3], phi[2])
			for axis := 0; axis < 2; axis++ {
				for side := 0; side < 2; side++ {
					a, b := faceCorners2D(axis, side)
					face[2*axis+side] = segmentFraction(phi[a], phi[b])
				}
			}
		} else {
			fr.Volume[c.Index] = cubeFraction(phi)
			for axis := 0; axis < 3; axis++ {
				for side := 0; side < 2; side++ {
					q := faceCorners3D(axis, side)
					face[2*axis+side] = squareFraction(phi[q[0]], phi[q[1]], phi[q[2]], phi[q[3]])
				}
			}
		}
		fr.Face[c.Index] = face
	})
	return
}

func faceCorners2D(axis, side int) (a, b int) {
	bit := 1 << axis
	other := 1 << (1 - axis)
	a = side * bit
	b = a | other
	return
}

// faceCorners3D returns the face vertices in cyclic order
func faceCorners3D(axis, side int) (q [4]int) {
	var (
		base = side << axis
		t1   = 1 << ((axis + 1) % 3)
		t2   = 1 << ((axis + 2) % 3)
	)
	q = [4]int{base, base | t1, base | t1 | t2, base | t2}
	return
}

// segmentFraction is the solid (negative) fraction of a segment
func segmentFraction(a, b float64) float64 {
	switch {
	case a < 0 && b < 0:
		return 1
	case a >= 0 && b >= 0:
		return 0
	case a < 0:
		return a / (a - b)
	}
	return b / (b - a)
}

// squareFraction is the solid fraction of a unit square whose vertex values
// are given in cyclic order. The solid polygon is clipped along the edges.
func squareFraction(v0, v1, v2, v3 float64) float64 {
	var (
		vals  = [4]float64{v0, v1, v2, v3}
		pts   = [4][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
		poly  [8][2]float64
		np    int
		inAll = true
		outAl = true
	)
	for _, v := range vals {
		if v < 0 {
			outAl = false
		} else {
			inAll = false
		}
	}
	switch {
	case inAll:
		return 1
	case outAl:
		return 0
	}
	for k := 0; k < 4; k++ {
		var (
			kn     = (k + 1) % 4
			va, vb = vals[k], vals[kn]
		)
		if va < 0 {
			poly[np] = pts[k]
			np++
		}
		if (va < 0) != (vb < 0) {
			t := va / (va - vb)
			poly[np] = [2]float64{
				pts[k][0] + t*(pts[kn][0]-pts[k][0]),
				pts[k][1] + t*(pts[kn][1]-pts[k][1]),
			}
			np++
		}
	}
	var area float64
	for k := 0; k < np; k++ {
		kn := (k + 1) % np
		area += poly[k][0]*poly[kn][1] - poly[kn][0]*poly[k][1]
	}
	return math.Min(math.Max(0.5*math.Abs(area), 0), 1)
}

// cubeFraction integrates square fractions over midpoint slices normal to z
func cubeFraction(phi []float64) (frac float64) {
	var inAll, outAll = true, true
	for _, v := range phi {
		if v < 0 {
			outAll = false
		} else {
			inAll = false
		}
	}
	switch {
	case inAll:
		return 1
	case outAll:
		return 0
	}
	for s := 0; s < zSlices; s++ {
		z := (float64(s) + 0.5) / zSlices
		lerp := func(c int) float64 { return (1-z)*phi[c] + z*phi[c|4] }
		frac += squareFraction(lerp(0), lerp(1), lerp(3), lerp(2))
	}
	return frac / zSlices
}
