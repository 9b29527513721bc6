package engine

import (
	"math"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notargets/weircfd/mesh"
)

// Make sure the reference engine fulfills the contract
var _ Engine = &Reference{}

type ghostKey struct {
	field FieldID
	cell  int
	face  int
}

// Reference is the in-process engine: a shared memory SPMD implementation in
// which every collective runs one goroutine per mesh partition.
type Reference struct {
	tree      *mesh.Tree
	fields    []FieldID
	time      float64
	iteration int
	boundary  GhostProvider
	fractions Fractions
	stale     bool
	ghosts    []map[ghostKey]float64 // One per partition
	logger    *zap.Logger
}

func NewReference(tree *mesh.Tree, logger *zap.Logger) (e *Reference) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e = &Reference{
		tree:   tree,
		logger: logger,
		fields: fieldsFor(tree.Dim),
	}
	for _, id := range e.fields {
		tree.AddField(string(id))
	}
	e.resetGeometry()
	return
}

func fieldsFor(dim int) []FieldID {
	if dim == 3 {
		return []FieldID{Phase, Solid, VelX, VelY, VelZ, Pressure}
	}
	return []FieldID{Phase, Solid, VelX, VelY, Pressure}
}

// resetGeometry drops fractions and ghosts after the mesh changed
func (e *Reference) resetGeometry() {
	var (
		n  = e.tree.Len()
		nf = 2 * e.tree.Dim
	)
	e.fractions = Fractions{Volume: make([]float64, n), Face: make([][]float64, n)}
	for i := range e.fractions.Face {
		e.fractions.Face[i] = make([]float64, nf)
	}
	e.stale = true
	e.ghosts = make([]map[ghostKey]float64, e.tree.Partitions.ParallelDegree)
	for np := range e.ghosts {
		e.ghosts[np] = make(map[ghostKey]float64)
	}
}

func (e *Reference) Dimension() int      { return e.tree.Dim }
func (e *Reference) Mesh() *mesh.Tree    { return e.tree }
func (e *Reference) Fields() []FieldID   { return e.fields }
func (e *Reference) Time() float64       { return e.time }
func (e *Reference) Iteration() int      { return e.iteration }
func (e *Reference) MinDelta() float64   { return e.tree.MinDelta() }
func (e *Reference) IsCoordinator() bool { return true }

func (e *Reference) SetBoundary(g GhostProvider) { e.boundary = g }

func (e *Reference) Field(id FieldID) []float64 {
	f, ok := e.tree.Field(string(id))
	if !ok {
		f = e.tree.AddField(string(id))
	}
	return f
}

// ForEach runs fn over every leaf, one goroutine per non empty partition
func (e *Reference) ForEach(fn func(c mesh.Cell)) {
	var (
		pm = e.tree.Partitions
		wg = sync.WaitGroup{}
	)
	for np := 0; np < pm.ParallelDegree; np++ {
		if pm.GetBucketDimension(np) == 0 {
			continue
		}
		wg.Add(1)
		go func(np int) {
			defer wg.Done()
			kMin, kMax := pm.GetBucketRange(np)
			for i := kMin; i < kMax; i++ {
				fn(e.tree.Cell(i))
			}
		}(np)
	}
	wg.Wait()
}

// forEachPartition is the error returning variant of ForEach
func (e *Reference) forEachPartition(fn func(np, kMin, kMax int) error) error {
	var (
		pm = e.tree.Partitions
		eg errgroup.Group
	)
	for np := 0; np < pm.ParallelDegree; np++ {
		np := np
		eg.Go(func() error {
			kMin, kMax := pm.GetBucketRange(np)
			return fn(np, kMin, kMax)
		})
	}
	return eg.Wait()
}

// ReduceSum adds fn over every leaf. Partials are combined in partition order
// so the result does not depend on goroutine scheduling.
func (e *Reference) ReduceSum(fn func(c mesh.Cell) float64) (sum float64) {
	var (
		pm       = e.tree.Partitions
		partials = make([]float64, pm.ParallelDegree)
	)
	_ = e.forEachPartition(func(np, kMin, kMax int) error {
		var s float64
		for i := kMin; i < kMax; i++ {
			s += fn(e.tree.Cell(i))
		}
		partials[np] = s
		return nil
	})
	for _, s := range partials {
		sum += s
	}
	return
}

// ExchangeGhosts refreshes the boundary ghost values of the given fields, or
// of all fields when none are named
func (e *Reference) ExchangeGhosts(fields ...FieldID) {
	if len(fields) == 0 {
		fields = e.fields
	}
	nf := 2 * e.tree.Dim
	_ = e.forEachPartition(func(np, kMin, kMax int) error {
		g := e.ghosts[np]
		for i := kMin; i < kMax; i++ {
			c := e.tree.Cell(i)
			for face := 0; face < nf; face++ {
				if !e.tree.OnBoundary(c.Key, face) {
					continue
				}
				p := e.tree.FaceCenter(c, face)
				for _, id := range fields {
					interior := e.Field(id)[i]
					v := interior
					if e.boundary != nil {
						v = e.boundary.Ghost(id, mesh.FaceTag(face), p, e.time, interior, c.Delta)
					}
					g[ghostKey{field: id, cell: i, face: face}] = v
				}
			}
		}
		return nil
	})
}

func (e *Reference) GhostValue(field FieldID, cell, face int) (v float64, ok bool) {
	bn, _, _ := e.tree.Partitions.GetBucket(cell)
	if bn < 0 {
		return 0, false
	}
	v, ok = e.ghosts[bn][ghostKey{field: field, cell: cell, face: face}]
	return
}

// MaxDt is the CFL limited step on the finest leaf; +Inf when the flow is at rest
func (e *Reference) MaxDt(cfl float64) float64 {
	var umax float64
	for axis := 0; axis < e.tree.Dim; axis++ {
		for _, u := range e.Field(Velocity(axis)) {
			umax = math.Max(umax, math.Abs(u))
		}
	}
	if umax == 0 {
		return math.Inf(1)
	}
	return cfl * e.tree.MinDelta() / umax
}

func (e *Reference) SetFractions(fr Fractions) {
	e.fractions = fr
	copy(e.Field(Solid), fr.Volume)
	e.stale = false
}

func (e *Reference) Fractions() Fractions { return e.fractions }

// Adapt applies refinement decisions and invalidates the solid fractions,
// which have to be rebuilt before the next step
func (e *Reference) Adapt(decisions []mesh.SplitOrCombine) (refined, coarsened int) {
	refined, coarsened = e.tree.Adapt(func(i int) mesh.SplitOrCombine { return decisions[i] })
	if refined != 0 || coarsened != 0 {
		e.resetGeometry()
		e.logger.Debug("mesh adapted",
			zap.Int("refined", refined), zap.Int("coarsened", coarsened), zap.Int("cells", e.tree.Len()))
	}
	return
}
