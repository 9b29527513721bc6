package fractions

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/weircfd/engine"
	"github.com/notargets/weircfd/geometry"
	"github.com/notargets/weircfd/mesh"
)

const DefaultCleanupThreshold = 1.e-3

// Builder turns the scene into solid fractions on the current mesh of an engine
type Builder struct {
	Engine           engine.Engine
	Scene            geometry.SDF
	CleanupThreshold float64 // Open volume below which a cut cell is closed
	logger           *zap.Logger
}

func NewBuilder(eng engine.Engine, scene geometry.SDF, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		Engine:           eng,
		Scene:            scene,
		CleanupThreshold: DefaultCleanupThreshold,
		logger:           logger,
	}
}

// Rebuild recomputes volume and face fractions from scratch and installs them
// in the engine. It must follow every change of the mesh. Returns the number of
// cut cells closed by the cleanup pass.
func (b *Builder) Rebuild() (closed int) {
	fr := b.Engine.FractionsFromSignedDistance(b.Scene)
	cells := Cleanup(fr, b.CleanupThreshold)
	Seal(b.Engine.Mesh(), fr, cells)
	closed = len(cells)
	b.Engine.SetFractions(fr)
	b.Engine.ExchangeGhosts(engine.Solid)
	b.logger.Debug("fractions rebuilt",
		zap.Int("cells", len(fr.Volume)), zap.Int("closed", closed))
	return
}

// Cleanup closes degenerate cut cells in place: a cell whose open volume is
// below threshold, or that has no open face left, becomes fully solid. Returns
// the indices of the closed cells.
func Cleanup(fr engine.Fractions, threshold float64) (closed []int) {
	for i, cs := range fr.Volume {
		if cs >= 1 || cs <= 0 {
			continue
		}
		var (
			faces = fr.Face[i]
			open  = false
		)
		for _, fs := range faces {
			if fs < 1 {
				open = true
				break
			}
		}
		if 1-cs < threshold || !open {
			fr.Volume[i] = 1
			for n := range faces {
				faces[n] = 1
			}
			closed = append(closed, i)
		}
	}
	return
}

// Seal closes the neighbour side of every face of the closed cells. A face
// shared with a coarser neighbour is left alone, the closed cell is the finer
// side and its own fraction already blocks the face.
func Seal(tree *mesh.Tree, fr engine.Fractions, closed []int) {
	nf := 2 * tree.Dim
	for _, i := range closed {
		c := tree.Cell(i)
		for face := 0; face < nf; face++ {
			for _, j := range faceNeighbors(tree, c, face) {
				if tree.Cell(j).Level >= c.Level {
					fr.Face[j][face^1] = 1
				}
			}
		}
	}
}

// faceNeighbors lists the leaves across a face, sampled at the finest level
// so that every finer neighbour is found
func faceNeighbors(tree *mesh.Tree, c mesh.Cell, face int) (js []int) {
	if tree.OnBoundary(c.Key, face) {
		return
	}
	var (
		axis = face / 2
		m    = 1 << uint(tree.MaxLevel()-c.Level)
		h    = c.Delta / float64(m)
		base = tree.FaceCenter(c, face)
		seen = make(map[int]bool)
		tang []int
		off  [3]float64
	)
	off[axis] = float64(2*(face%2)-1) * 0.25 * tree.MinDelta()
	for a := 0; a < tree.Dim; a++ {
		if a != axis {
			tang = append(tang, a)
		}
	}
	nb := 1
	if len(tang) == 2 {
		nb = m
	}
	for a := 0; a < m; a++ {
		for b := 0; b < nb; b++ {
			d := off
			d[tang[0]] = (float64(a)+0.5)*h - 0.5*c.Delta
			if len(tang) == 2 {
				d[tang[1]] = (float64(b)+0.5)*h - 0.5*c.Delta
			}
			j, ok := tree.Locate(r3.Add(base, r3.Vec{X: d[0], Y: d[1], Z: d[2]}))
			if ok && !seen[j] {
				seen[j] = true
				js = append(js, j)
			}
		}
	}
	return
}
