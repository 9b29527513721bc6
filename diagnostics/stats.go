package diagnostics

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/notargets/weircfd/engine"
	"github.com/notargets/weircfd/mesh"
)

// Gravity is the standard acceleration used by the weir formulas
const Gravity = 9.81

type FieldStats struct {
	Field         engine.FieldID
	Min, Avg, Max float64
}

// Stats returns min, volume weighted average and max of every engine field
func Stats(eng engine.Engine) (st []FieldStats) {
	var (
		tree = eng.Mesh()
		vol  = make([]float64, tree.Len())
	)
	eng.ForEach(func(c mesh.Cell) { vol[c.Index] = tree.Volume(c) })
	for _, id := range eng.Fields() {
		v := eng.Field(id)
		if len(v) == 0 {
			continue
		}
		st = append(st, FieldStats{
			Field: id,
			Min:   floats.Min(v),
			Avg:   stat.Mean(v, vol),
			Max:   floats.Max(v),
		})
	}
	return
}

func LogStats(logger *zap.Logger, t float64, st []FieldStats) {
	for _, s := range st {
		logger.Info("field stats", zap.Float64("t", t), zap.String("field", string(s.Field)),
			zap.Float64("min", s.Min), zap.Float64("avg", s.Avg), zap.Float64("max", s.Max))
	}
}

// TheoreticalDischarge is the ideal discharge per unit width over a sharp
// crest with head h, 2/3·sqrt(2g)·h^1.5
func TheoreticalDischarge(h float64) float64 {
	if h <= 0 {
		return 0
	}
	return 2. / 3. * math.Sqrt(2*Gravity) * math.Pow(h, 1.5)
}

// RehbockCd is the Rehbock discharge coefficient for head h over a crest of height p
func RehbockCd(h, p float64) float64 {
	return 0.611 + 0.075*h/p
}

// DischargeCoefficient is the measured q over the ideal discharge, 0 without head
func DischargeCoefficient(q, h float64) float64 {
	qt := TheoreticalDischarge(h)
	if qt == 0 {
		return 0
	}
	return q / qt
}
