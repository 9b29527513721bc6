package mesh

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// AdaptFunc determines whether the leaf at the given index should be
// split, combined with its siblings, or left alone.
type AdaptFunc func(int) SplitOrCombine

// SplitOrCombine specifies whether a cell should be split, combined with its
// siblings, or left alone.
type SplitOrCombine int

const (
	// Neither leaves the cell alone
	Neither SplitOrCombine = iota
	// Split replaces the cell by its 2^dim children
	Split
	// Combine merges the cell with its siblings; it only happens when every
	// sibling is a leaf and asks for it
	Combine
)

// Key addresses a cell by level and integer position at that level
type Key struct {
	Level, I, J, K int
}

func (k Key) Parent() Key {
	return Key{Level: k.Level - 1, I: k.I >> 1, J: k.J >> 1, K: k.K >> 1}
}

// Child returns the child at corner c, where bit 0 selects x, bit 1 y and bit 2 z
func (k Key) Child(c int) Key {
	return Key{Level: k.Level + 1, I: 2*k.I + c&1, J: 2*k.J + (c>>1)&1, K: 2*k.K + (c>>2)&1}
}

// Offset returns the position index of the key along an axis
func (k Key) Offset(axis int) int {
	switch axis {
	case 0:
		return k.I
	case 1:
		return k.J
	}
	return k.K
}

// Shift returns the neighbor key at the same level, n cells along an axis
func (k Key) Shift(axis, n int) Key {
	switch axis {
	case 0:
		k.I += n
	case 1:
		k.J += n
	default:
		k.K += n
	}
	return k
}

// Cell is a leaf of the tree as seen by the collectives
type Cell struct {
	Key
	Index  int
	Center r3.Vec
	Delta  float64
}

// Tree is an adaptive 2D (quadtree) or 3D (octree) Cartesian mesh covering the
// cube [Origin, Origin+L0]. Only the leaves carry field values.
type Tree struct {
	Dim        int
	Origin     r3.Vec
	L0         float64
	Procs      int
	Partitions *PartitionMap
	leaves     []Key
	index      map[Key]int
	fields     map[string][]float64
	fieldNames []string
	maxLevel   int
}

// NewTree creates a uniform tree at the given level using procs partitions
func NewTree(dim int, origin r3.Vec, L0 float64, level, procs int) (t *Tree) {
	if dim != 2 && dim != 3 {
		panic(fmt.Errorf("unsupported dimension %d", dim))
	}
	var (
		n    = 1 << level
		nk   = 1
		keys []Key
	)
	if dim == 3 {
		nk = n
	}
	keys = make([]Key, 0, n*n*nk)
	for k := 0; k < nk; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				keys = append(keys, Key{Level: level, I: i, J: j, K: k})
			}
		}
	}
	return FromLeaves(dim, origin, L0, procs, keys)
}

// FromLeaves rebuilds a tree from a complete set of leaves
func FromLeaves(dim int, origin r3.Vec, L0 float64, procs int, keys []Key) (t *Tree) {
	t = &Tree{
		Dim:    dim,
		Origin: origin,
		L0:     L0,
		Procs:  procs,
		fields: make(map[string][]float64),
	}
	t.setLeaves(keys)
	return
}

func (t *Tree) setLeaves(keys []Key) {
	t.maxLevel = 0
	for _, k := range keys {
		if k.Level > t.maxLevel {
			t.maxLevel = k.Level
		}
	}
	ml := t.maxLevel
	// Deterministic spatial order: z, then y, then x of the lower corner at the finest level
	sort.SliceStable(keys, func(a, b int) bool {
		ka, kb := keys[a], keys[b]
		sa, sb := ml-ka.Level, ml-kb.Level
		if za, zb := ka.K<<sa, kb.K<<sb; za != zb {
			return za < zb
		}
		if ya, yb := ka.J<<sa, kb.J<<sb; ya != yb {
			return ya < yb
		}
		if xa, xb := ka.I<<sa, kb.I<<sb; xa != xb {
			return xa < xb
		}
		return ka.Level < kb.Level
	})
	t.leaves = keys
	t.index = make(map[Key]int, len(keys))
	for i, k := range keys {
		t.index[k] = i
	}
	t.Partitions = NewPartitionMap(t.Procs, len(keys))
}

func (t *Tree) Len() int { return len(t.leaves) }

func (t *Tree) MaxLevel() int { return t.maxLevel }

func (t *Tree) Leaves() []Key { return t.leaves }

func (t *Tree) Delta(level int) float64 { return t.L0 / float64(int(1)<<level) }

// MinDelta is the size of the finest leaf currently in the tree
func (t *Tree) MinDelta() float64 { return t.Delta(t.maxLevel) }

func (t *Tree) Center(k Key) (c r3.Vec) {
	d := t.Delta(k.Level)
	c = r3.Vec{
		X: t.Origin.X + (float64(k.I)+0.5)*d,
		Y: t.Origin.Y + (float64(k.J)+0.5)*d,
	}
	if t.Dim == 3 {
		c.Z = t.Origin.Z + (float64(k.K)+0.5)*d
	} else {
		c.Z = t.Origin.Z
	}
	return
}

func (t *Tree) Cell(i int) Cell {
	k := t.leaves[i]
	return Cell{Key: k, Index: i, Center: t.Center(k), Delta: t.Delta(k.Level)}
}

// Volume is the cell measure: area in 2D, volume in 3D
func (t *Tree) Volume(c Cell) float64 { return math.Pow(c.Delta, float64(t.Dim)) }

func (t *Tree) NumCorners() int { return 1 << t.Dim }

// Corner returns vertex c of the cell, bit 0 selecting x, bit 1 y and bit 2 z
func (t *Tree) Corner(cell Cell, c int) (p r3.Vec) {
	h := 0.5 * cell.Delta
	p = cell.Center
	p.X += float64(2*(c&1)-1) * h
	p.Y += float64(2*((c>>1)&1)-1) * h
	if t.Dim == 3 {
		p.Z += float64(2*((c>>2)&1)-1) * h
	}
	return
}

// Lookup returns the leaf index of a key, if it is a leaf
func (t *Tree) Lookup(k Key) (i int, ok bool) {
	i, ok = t.index[k]
	return
}

// Locate returns the leaf containing point p
func (t *Tree) Locate(p r3.Vec) (i int, ok bool) {
	var (
		x = (p.X - t.Origin.X) / t.L0
		y = (p.Y - t.Origin.Y) / t.L0
		z = (p.Z - t.Origin.Z) / t.L0
	)
	if x < 0 || x >= 1 || y < 0 || y >= 1 {
		return -1, false
	}
	if t.Dim == 3 && (z < 0 || z >= 1) {
		return -1, false
	}
	for level := 0; level <= t.maxLevel; level++ {
		n := float64(int(1) << level)
		k := Key{Level: level, I: int(x * n), J: int(y * n)}
		if t.Dim == 3 {
			k.K = int(z * n)
		}
		if i, ok = t.index[k]; ok {
			return
		}
	}
	return -1, false
}

// OnBoundary reports whether the face (2*axis + side) of a leaf lies on the domain boundary
func (t *Tree) OnBoundary(k Key, face int) bool {
	var (
		axis = face / 2
		side = face % 2
		n    = int(1) << k.Level
		off  = k.Offset(axis)
	)
	if side == 0 {
		return off == 0
	}
	return off == n-1
}

// FaceCenter is the center of face (2*axis + side) of a leaf
func (t *Tree) FaceCenter(cell Cell, face int) (p r3.Vec) {
	var (
		axis = face / 2
		sign = float64(2*(face%2) - 1)
	)
	p = cell.Center
	switch axis {
	case 0:
		p.X += sign * 0.5 * cell.Delta
	case 1:
		p.Y += sign * 0.5 * cell.Delta
	default:
		p.Z += sign * 0.5 * cell.Delta
	}
	return
}

// Neighbor returns the leaf across face (2*axis + side), which may be coarser,
// equal or finer. For a finer neighbor the leaf adjacent to the face center is returned.
func (t *Tree) Neighbor(cell Cell, face int) (i int, ok bool) {
	if t.OnBoundary(cell.Key, face) {
		return -1, false
	}
	var (
		p    = t.FaceCenter(cell, face)
		eps  = 0.25 * t.MinDelta()
		sign = float64(2*(face%2) - 1)
	)
	switch face / 2 {
	case 0:
		p.X += sign * eps
	case 1:
		p.Y += sign * eps
	default:
		p.Z += sign * eps
	}
	return t.Locate(p)
}

// AddField allocates a zeroed field on the leaves if it does not exist yet
func (t *Tree) AddField(name string) []float64 {
	if f, ok := t.fields[name]; ok {
		return f
	}
	t.fields[name] = make([]float64, len(t.leaves))
	t.fieldNames = append(t.fieldNames, name)
	return t.fields[name]
}

func (t *Tree) Field(name string) (f []float64, ok bool) {
	f, ok = t.fields[name]
	return
}

func (t *Tree) FieldNames() []string { return t.fieldNames }

// Adapt splits and combines leaves as requested by fn. Fields are carried over:
// children inherit the value of their parent, a combined parent takes the mean
// of its children.
func (t *Tree) Adapt(fn AdaptFunc) (split, combined int) {
	var (
		nc        = t.NumCorners()
		decisions = make([]SplitOrCombine, len(t.leaves))
		parents   = make(map[Key]int)
		merge     = make(map[Key]bool)
	)
	for i := range t.leaves {
		decisions[i] = fn(i)
		if decisions[i] == Combine && t.leaves[i].Level > 0 {
			parents[t.leaves[i].Parent()]++
		}
	}
	for p, count := range parents {
		if count == nc {
			merge[p] = true
		}
	}
	var (
		keys      = make([]Key, 0, len(t.leaves))
		newFields = make(map[string][]float64, len(t.fields))
		sums      = make(map[Key][]float64)
	)
	values := func(i int) (v []float64) {
		v = make([]float64, len(t.fieldNames))
		for n, name := range t.fieldNames {
			v[n] = t.fields[name][i]
		}
		return
	}
	var carried [][]float64
	for i, k := range t.leaves {
		switch {
		case decisions[i] == Combine && k.Level > 0 && merge[k.Parent()]:
			p := k.Parent()
			s, ok := sums[p]
			if !ok {
				s = make([]float64, len(t.fieldNames))
				sums[p] = s
				keys = append(keys, p)
				carried = append(carried, s)
				combined++
			}
			for n, v := range values(i) {
				s[n] += v / float64(nc)
			}
		case decisions[i] == Split:
			v := values(i)
			for c := 0; c < nc; c++ {
				keys = append(keys, k.Child(c))
				carried = append(carried, v)
			}
			split++
		default:
			keys = append(keys, k)
			carried = append(carried, values(i))
		}
	}
	if split == 0 && combined == 0 {
		return
	}
	byKey := make(map[Key][]float64, len(keys))
	for n, k := range keys {
		byKey[k] = carried[n]
	}
	t.setLeaves(keys)
	for n, name := range t.fieldNames {
		f := make([]float64, len(t.leaves))
		for i, k := range t.leaves {
			f[i] = byKey[k][n]
		}
		newFields[name] = f
	}
	t.fields = newFields
	return
}

// ReplaceFields installs a complete set of leaf fields, used on restore
func (t *Tree) ReplaceFields(names []string, fields map[string][]float64) error {
	for _, name := range names {
		if len(fields[name]) != len(t.leaves) {
			return fmt.Errorf("field %s has %d values for %d leaves", name, len(fields[name]), len(t.leaves))
		}
	}
	t.fieldNames = append([]string(nil), names...)
	t.fields = fields
	return nil
}
