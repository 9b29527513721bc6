package refine

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/notargets/weircfd/engine"
	"github.com/notargets/weircfd/fractions"
	"github.com/notargets/weircfd/mesh"
)

const DefaultSolidTol = 1.e-6

// maxRefinePasses bounds RefineWhere, one pass per level is all it ever needs
const maxRefinePasses = 64

type Stats struct {
	Refined, Coarsened, Cells int
}

// Controller runs the wavelet adaptation of the mesh at a fixed iteration
// cadence and keeps the solid geometry consistent with the adapted mesh
type Controller struct {
	Fields             []engine.FieldID
	Thresholds         []float64
	MinLevel, MaxLevel int
	Every              int // Adapt every k iterations
	SkipIterations     int // No adaptation before this iteration
	SolidTol           float64
	engine             engine.Engine
	builder            *fractions.Builder
	logger             *zap.Logger
}

func NewController(eng engine.Engine, builder *fractions.Builder, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		Every:    1,
		SolidTol: DefaultSolidTol,
		engine:   eng,
		builder:  builder,
		logger:   logger,
	}
}

func (rc *Controller) Validate() error {
	switch {
	case len(rc.Fields) != len(rc.Thresholds):
		return fmt.Errorf("%d refinement fields with %d thresholds", len(rc.Fields), len(rc.Thresholds))
	case rc.MinLevel < 0 || rc.MinLevel > rc.MaxLevel:
		return fmt.Errorf("invalid level band [%d, %d]", rc.MinLevel, rc.MaxLevel)
	case rc.Every < 1:
		return fmt.Errorf("adaptation cadence must be positive, have %d", rc.Every)
	}
	return nil
}

// Due reports whether an adaptation pass runs at this iteration
func (rc *Controller) Due(iter int) bool {
	return iter >= rc.SkipIterations && iter%rc.Every == 0
}

// Adapt runs one adaptation pass if due. Fully solid cells are excluded from
// the error estimate and are never split by it.
func (rc *Controller) Adapt(iter int) (st Stats, err error) {
	if !rc.Due(iter) {
		st.Cells = rc.engine.Mesh().Len()
		return
	}
	var (
		eng    = rc.engine
		cs     = eng.Field(engine.Solid)
		n      = len(cs)
		masked = make([][]float64, len(rc.Fields))
	)
	for k, id := range rc.Fields {
		src := eng.Field(id)
		m := make([]float64, n)
		for i := range m {
			if !rc.solid(cs[i]) {
				m[i] = src[i]
			}
		}
		masked[k] = m
	}
	decisions := eng.EstimateError(masked, rc.Thresholds, rc.MinLevel, rc.MaxLevel)
	leaves := eng.Mesh().Leaves()
	for i, d := range decisions {
		level := leaves[i].Level
		switch {
		case d == mesh.Split && rc.solid(cs[i]) && level >= rc.MinLevel:
			decisions[i] = mesh.Neither
		case d == mesh.Split && level >= rc.MaxLevel:
			decisions[i] = mesh.Neither
		case d == mesh.Combine && level <= rc.MinLevel:
			decisions[i] = mesh.Neither
		}
	}
	st.Refined, st.Coarsened = eng.Adapt(decisions)
	if st.Refined != 0 || st.Coarsened != 0 {
		rc.geometryChanged()
	}
	st.Cells = eng.Mesh().Len()
	rc.logger.Debug("adapt",
		zap.Int("iter", iter), zap.Int("refined", st.Refined),
		zap.Int("coarsened", st.Coarsened), zap.Int("cells", st.Cells))
	return
}

// RefineWhere splits every leaf satisfying pred until it reaches maxLevel,
// then rebuilds the geometry once
func (rc *Controller) RefineWhere(pred func(c mesh.Cell) bool, maxLevel int) (st Stats) {
	eng := rc.engine
	for pass := 0; pass < maxRefinePasses; pass++ {
		decisions := make([]mesh.SplitOrCombine, eng.Mesh().Len())
		eng.ForEach(func(c mesh.Cell) {
			if c.Level < maxLevel && pred(c) {
				decisions[c.Index] = mesh.Split
			}
		})
		refined, _ := eng.Adapt(decisions)
		if refined == 0 {
			break
		}
		st.Refined += refined
	}
	if st.Refined != 0 {
		rc.geometryChanged()
	}
	st.Cells = eng.Mesh().Len()
	return
}

// geometryChanged rebuilds the solid and keeps the liquid within the open volume
func (rc *Controller) geometryChanged() {
	rc.builder.Rebuild()
	var (
		eng = rc.engine
		f   = eng.Field(engine.Phase)
		cs  = eng.Field(engine.Solid)
	)
	eng.ForEach(func(c mesh.Cell) {
		i := c.Index
		f[i] = math.Min(f[i], 1-cs[i])
	})
	eng.ExchangeGhosts()
}

func (rc *Controller) solid(cs float64) bool { return cs >= 1-rc.SolidTol }
