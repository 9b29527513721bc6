package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/weircfd/engine"
	"github.com/notargets/weircfd/mesh"
)

var ErrOpenOutput = errors.New("output: could not open output file")

// VTK cell types for axis aligned quads and hexahedra with lexicographic vertices
const (
	vtkPixel = 8
	vtkVoxel = 11
)

// SnapshotName is the visualization file name for time t, stamped in ms
func SnapshotName(t float64) string {
	return fmt.Sprintf("weir-%06d.vtk", int(t*1e3+0.5))
}

// create opens path for writing and hands a buffered writer to fn
func create(path string, fn func(w *bufio.Writer) error) (err error) {
	var file *os.File
	if file, err = os.Create(path); err != nil {
		return fmt.Errorf("%s: %v: %w", path, err, ErrOpenOutput)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%s: %w", path, cerr)
		}
	}()
	w := bufio.NewWriter(file)
	if err = fn(w); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return w.Flush()
}

// WriteSnapshot writes the leaves of the mesh as an unstructured grid with the
// scalar fields and the velocity vector as cell data
func WriteSnapshot(dir string, eng engine.Engine, scalars []engine.FieldID) (path string, err error) {
	path = filepath.Join(dir, SnapshotName(eng.Time()))
	err = create(path, func(w *bufio.Writer) error {
		return EncodeSnapshot(w, eng, scalars)
	})
	return
}

func EncodeSnapshot(w io.Writer, eng engine.Engine, scalars []engine.FieldID) (err error) {
	var (
		tree     = eng.Mesh()
		n        = tree.Len()
		nc       = tree.NumCorners()
		cellType = vtkPixel
		ew       = &errWriter{w: w}
	)
	if tree.Dim == 3 {
		cellType = vtkVoxel
	}
	ew.printf("# vtk DataFile Version 2.0\n")
	ew.printf("weircfd t = %g\n", eng.Time())
	ew.printf("ASCII\nDATASET UNSTRUCTURED_GRID\n")
	ew.printf("POINTS %d double\n", n*nc)
	for i := 0; i < n; i++ {
		c := tree.Cell(i)
		for k := 0; k < nc; k++ {
			p := tree.Corner(c, k)
			ew.printf("%g %g %g\n", p.X, p.Y, p.Z)
		}
	}
	ew.printf("CELLS %d %d\n", n, n*(nc+1))
	for i := 0; i < n; i++ {
		ew.printf("%d", nc)
		for k := 0; k < nc; k++ {
			ew.printf(" %d", i*nc+k)
		}
		ew.printf("\n")
	}
	ew.printf("CELL_TYPES %d\n", n)
	for i := 0; i < n; i++ {
		ew.printf("%d\n", cellType)
	}
	ew.printf("CELL_DATA %d\n", n)
	for _, id := range scalars {
		writeScalars(ew, string(id), eng.Field(id))
	}
	ew.printf("VECTORS u double\n")
	for i := 0; i < n; i++ {
		var u [3]float64
		for axis := 0; axis < tree.Dim; axis++ {
			u[axis] = eng.Field(engine.Velocity(axis))[i]
		}
		ew.printf("%g %g %g\n", u[0], u[1], u[2])
	}
	return ew.err
}

// Grid is a uniform n x n sampling of the x-y plane of the domain, through the
// middle of the domain in 3D
type Grid struct {
	N       int
	Origin  r3.Vec
	Spacing float64
}

func NewGrid(tree *mesh.Tree, n int) Grid {
	g := Grid{N: n, Origin: tree.Origin, Spacing: tree.L0 / float64(n)}
	if tree.Dim == 3 {
		g.Origin.Z += 0.5 * tree.L0
	}
	return g
}

func (g Grid) Point(i, j int) r3.Vec {
	return r3.Vec{
		X: g.Origin.X + (float64(i)+0.5)*g.Spacing,
		Y: g.Origin.Y + (float64(j)+0.5)*g.Spacing,
		Z: g.Origin.Z,
	}
}

// Sample evaluates a leaf field at every grid point, x varying fastest
func (g Grid) Sample(tree *mesh.Tree, values []float64) (s []float64) {
	s = make([]float64, g.N*g.N)
	for j := 0; j < g.N; j++ {
		for i := 0; i < g.N; i++ {
			if k, ok := tree.Locate(g.Point(i, j)); ok {
				s[j*g.N+i] = values[k]
			}
		}
	}
	return
}

// WriteStructured writes fields sampled on an n x n grid as legacy VTK structured points
func WriteStructured(path string, eng engine.Engine, fields []engine.FieldID, n int) error {
	if n < 1 {
		return fmt.Errorf("invalid sampling resolution %d", n)
	}
	return create(path, func(w *bufio.Writer) error {
		return EncodeStructured(w, eng, fields, n)
	})
}

func EncodeStructured(w io.Writer, eng engine.Engine, fields []engine.FieldID, n int) error {
	var (
		tree = eng.Mesh()
		g    = NewGrid(tree, n)
		ew   = &errWriter{w: w}
		p0   = g.Point(0, 0)
	)
	ew.printf("# vtk DataFile Version 2.0\n")
	ew.printf("weircfd t = %g\n", eng.Time())
	ew.printf("ASCII\nDATASET STRUCTURED_POINTS\n")
	ew.printf("DIMENSIONS %d %d 1\n", n, n)
	ew.printf("ORIGIN %g %g %g\n", p0.X, p0.Y, p0.Z)
	ew.printf("SPACING %g %g %g\n", g.Spacing, g.Spacing, g.Spacing)
	ew.printf("POINT_DATA %d\n", n*n)
	for _, id := range fields {
		writeScalars(ew, string(id), g.Sample(tree, eng.Field(id)))
	}
	return ew.err
}

func writeScalars(ew *errWriter, name string, values []float64) {
	ew.printf("SCALARS %s double 1\nLOOKUP_TABLE default\n", name)
	for _, v := range values {
		ew.printf("%g\n", v)
	}
}

// errWriter keeps the first write error so formatting code stays linear
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
