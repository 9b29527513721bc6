package diagnostics

import (
	"time"

	"go.uber.org/zap"

	"github.com/notargets/weircfd/utils"
)

// Counters accumulates the cost of the engine steps of a run
type Counters struct {
	Steps        int
	Wall         time.Duration
	Instructions uint64
	hwCounters   bool
}

// Step runs one engine step and accounts for it. Instruction counts are only
// collected where hardware counters are readable.
func (pc *Counters) Step(step func() error) (err error) {
	var (
		start = time.Now()
		instr uint64
		ok    bool
	)
	instr, ok, err = countInstructions(step)
	pc.Wall += time.Since(start)
	pc.Steps++
	if ok {
		pc.hwCounters = true
		pc.Instructions += instr
	}
	return
}

func (pc *Counters) WallPerStep() time.Duration {
	if pc.Steps == 0 {
		return 0
	}
	return pc.Wall / time.Duration(pc.Steps)
}

func (pc *Counters) Fields(cells int) (fields []zap.Field) {
	fields = []zap.Field{
		zap.Int("steps", pc.Steps),
		zap.Int("cells", cells),
		zap.Duration("wall_per_step", pc.WallPerStep()),
		zap.String("mem", utils.GetMemUsage()),
	}
	if pc.hwCounters && pc.Steps > 0 {
		fields = append(fields, zap.Uint64("instructions_per_step", pc.Instructions/uint64(pc.Steps)))
	}
	return
}
