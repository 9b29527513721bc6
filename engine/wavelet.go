package engine

import (
	"math"

	"github.com/notargets/weircfd/mesh"
)

// coarsenRatio is the fraction of the threshold below which a detail counts as
// small enough to coarsen
const coarsenRatio = 2. / 3.

// restriction holds the value of a field on every cell of the tree, leaves and
// their ancestors, where an ancestor carries the mean of its children
type restriction map[mesh.Key]float64

func (e *Reference) restrict(values []float64) (r restriction) {
	var (
		tree   = e.tree
		nc     = float64(tree.NumCorners())
		levels = make([][]mesh.Key, tree.MaxLevel()+1)
	)
	r = make(restriction, 2*tree.Len())
	for i, k := range tree.Leaves() {
		r[k] = values[i]
		levels[k.Level] = append(levels[k.Level], k)
	}
	for level := tree.MaxLevel(); level > 0; level-- {
		for _, k := range levels[level] {
			p := k.Parent()
			if _, seen := r[p]; !seen {
				levels[level-1] = append(levels[level-1], p)
			}
			r[p] += r[k] / nc
		}
	}
	return
}

// predict is the linear prolongation of the parent value to the center of key k
func (r restriction) predict(k mesh.Key, dim int) (v float64) {
	p := k.Parent()
	v = r[p]
	for axis := 0; axis < dim; axis++ {
		var (
			lo, okLo = r[p.Shift(axis, -1)]
			hi, okHi = r[p.Shift(axis, 1)]
			grad     float64
		)
		switch {
		case okLo && okHi:
			grad = 0.5 * (hi - lo)
		case okHi:
			grad = hi - v
		case okLo:
			grad = v - lo
		}
		// Child centers sit a quarter of the parent size from the parent center
		offset := 0.25
		if k.Offset(axis)&1 == 0 {
			offset = -0.25
		}
		v += grad * offset
	}
	return
}

// EstimateError compares every leaf value against its prediction from the
// next coarser level and asks for refinement where any field detail exceeds
// its threshold, and coarsening where all details are comfortably below.
// Decisions always respect minLevel <= level <= maxLevel.
func (e *Reference) EstimateError(fields [][]float64, thresholds []float64, minLevel, maxLevel int) (decisions []mesh.SplitOrCombine) {
	var (
		tree = e.tree
		rs   = make([]restriction, len(fields))
	)
	for n, values := range fields {
		rs[n] = e.restrict(values)
	}
	decisions = make([]mesh.SplitOrCombine, tree.Len())
	e.ForEach(func(c mesh.Cell) {
		var (
			large = false
			small = true
		)
		for n, values := range fields {
			if c.Level == 0 {
				continue
			}
			detail := math.Abs(values[c.Index] - rs[n].predict(c.Key, tree.Dim))
			if detail > thresholds[n] {
				large = true
			}
			if detail >= coarsenRatio*thresholds[n] {
				small = false
			}
		}
		switch {
		case c.Level < minLevel:
			decisions[c.Index] = mesh.Split
		case c.Level > maxLevel:
			decisions[c.Index] = mesh.Combine
		case large && c.Level < maxLevel:
			decisions[c.Index] = mesh.Split
		case small && !large && c.Level > minLevel:
			decisions[c.Index] = mesh.Combine
		default:
			decisions[c.Index] = mesh.Neither
		}
	})
	return
}
