package engine

import (
	"fmt"
	"math"
)

type faceFlux struct {
	neighbor int // -1 on the domain boundary
	flux     float64
}

// Step advances one iteration: ghosts are refreshed from the boundary
// conditions, the liquid fraction is transported upwind across the open part
// of every face, and (iteration, time) advance by dt.
//
// Each face is computed once, from the finer side or from the low side when
// both leaves share a level, and applied to both leaves, so the update is
// conservative across level jumps.
func (e *Reference) Step(dt float64) (err error) {
	if e.stale {
		return ErrStaleFractions
	}
	e.ExchangeGhosts()
	var (
		tree   = e.tree
		n      = tree.Len()
		nf     = 2 * tree.Dim
		f      = e.Field(Phase)
		cs     = e.Field(Solid)
		fluxes = make([][]faceFlux, n)
	)
	err = e.forEachPartition(func(np, kMin, kMax int) error {
		for i := kMin; i < kMax; i++ {
			c := tree.Cell(i)
			area := math.Pow(c.Delta, float64(tree.Dim-1))
			for face := 0; face < nf; face++ {
				var (
					axis  = face / 2
					sign  = float64(2*(face%2) - 1) // outward normal along axis
					u     = e.Field(Velocity(axis))
					open  = 1 - e.fractions.Face[i][face]
					uIn   = u[i]
					fIn   = f[i]
					uOut  float64
					fOut  float64
					other = -1
				)
				if open <= 0 {
					continue
				}
				if j, ok := tree.Neighbor(c, face); ok {
					nk := tree.Leaves()[j]
					switch {
					case nk.Level > c.Level:
						continue // the finer side owns this face
					case nk.Level == c.Level && face%2 == 0:
						continue // the low side owns shared faces
					}
					other, uOut, fOut = j, u[j], f[j]
				} else {
					var okU, okF bool
					uOut, okU = e.GhostValue(Velocity(axis), i, face)
					fOut, okF = e.GhostValue(Phase, i, face)
					if !okU {
						uOut = uIn
					}
					if !okF {
						fOut = fIn
					}
				}
				un := 0.5 * sign * (uIn + uOut) // outward normal velocity
				fUp := fIn
				if un < 0 {
					fUp = fOut
				}
				fluxes[i] = append(fluxes[i], faceFlux{
					neighbor: other,
					flux:     dt * area * open * un * fUp,
				})
			}
		}
		return nil
	})
	if err != nil {
		return
	}
	dV := make([]float64, n)
	for i, ff := range fluxes {
		for _, fl := range ff {
			dV[i] -= fl.flux
			if fl.neighbor >= 0 {
				dV[fl.neighbor] += fl.flux
			}
		}
	}
	err = e.forEachPartition(func(np, kMin, kMax int) error {
		for i := kMin; i < kMax; i++ {
			c := tree.Cell(i)
			f[i] += dV[i] / tree.Volume(c)
			if math.IsNaN(f[i]) || math.IsInf(f[i], 0) {
				return fmt.Errorf("leaf %d at %v: %w", i, c.Center, ErrDiverged)
			}
			f[i] = math.Min(math.Max(f[i], 0), 1-cs[i])
		}
		return nil
	})
	if err != nil {
		return
	}
	e.time += dt
	e.iteration++
	return
}
