package engine

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/weircfd/mesh"
)

// snapshot is the checkpoint payload. Its layout is private to the engine.
type snapshot struct {
	Dim        int
	Origin     r3.Vec
	L0         float64
	Procs      int
	Time       float64
	Iteration  int
	Leaves     []mesh.Key
	FieldNames []string
	Fields     map[string][]float64
	Volume     []float64
	Face       [][]float64
}

// CheckpointWrite stores the full engine state at path
func (e *Reference) CheckpointWrite(path string) (err error) {
	var (
		file *os.File
		tree = e.tree
		snap = snapshot{
			Dim:        tree.Dim,
			Origin:     tree.Origin,
			L0:         tree.L0,
			Procs:      tree.Procs,
			Time:       e.time,
			Iteration:  e.iteration,
			Leaves:     tree.Leaves(),
			FieldNames: tree.FieldNames(),
			Fields:     make(map[string][]float64),
			Volume:     e.fractions.Volume,
			Face:       e.fractions.Face,
		}
	)
	for _, name := range snap.FieldNames {
		snap.Fields[name], _ = tree.Field(name)
	}
	if file, err = os.Create(path); err != nil {
		return fmt.Errorf("checkpoint %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("checkpoint %s: %w", path, cerr)
		}
	}()
	if err = gob.NewEncoder(file).Encode(&snap); err != nil {
		return fmt.Errorf("checkpoint %s: %w", path, err)
	}
	e.logger.Debug("checkpoint written", zap.String("path", path), zap.Float64("t", e.time))
	return
}

// CheckpointRestore replaces the engine state with the one stored at path. It
// returns false without error when there is no checkpoint to restore.
func (e *Reference) CheckpointRestore(path string) (ok bool, err error) {
	var (
		file *os.File
		snap snapshot
	)
	if file, err = os.Open(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %v: %w", path, err, ErrRestore)
	}
	defer file.Close()
	if err = gob.NewDecoder(file).Decode(&snap); err != nil {
		return false, fmt.Errorf("%s: %v: %w", path, err, ErrRestore)
	}
	procs := e.tree.Procs
	tree := mesh.FromLeaves(snap.Dim, snap.Origin, snap.L0, procs, snap.Leaves)
	if err = tree.ReplaceFields(snap.FieldNames, snap.Fields); err != nil {
		return false, fmt.Errorf("%s: %v: %w", path, err, ErrRestore)
	}
	e.tree = tree
	e.fields = fieldsFor(tree.Dim)
	e.time, e.iteration = snap.Time, snap.Iteration
	e.resetGeometry()
	if len(snap.Volume) == tree.Len() && len(snap.Face) == tree.Len() {
		e.fractions = Fractions{Volume: snap.Volume, Face: snap.Face}
		e.stale = false
	}
	for _, id := range e.fields {
		tree.AddField(string(id))
	}
	e.logger.Debug("checkpoint restored", zap.String("path", path),
		zap.Float64("t", e.time), zap.Int("cells", tree.Len()))
	return true, nil
}
