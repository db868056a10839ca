package parity

import (
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/projection"
)

// ProRataTolerance is the absolute slack allowed between a table's
// Difference and its recomputation.
const ProRataTolerance = 0.1

// ProRataMismatch is a table row whose Difference disagrees with
// actual − target/length × elapsed.
type ProRataMismatch struct {
	Category model.Category
	Name     string
	Want     float64
	Got      float64
}

// VerifyProRata recomputes the pace difference of every aggregate from its
// actual and target and reports the rows that drift. Mismatches are logged
// as warnings; they do not gate the run.
func VerifyProRata(tables map[model.Category][]model.CategoryAggregate, p projection.Period) []ProRataMismatch {
	var out []ProRataMismatch
	for _, c := range model.Categories {
		for _, a := range tables[c] {
			want := a.Actual - a.Target/float64(max(1, p.Length))*float64(p.Elapsed)
			if math.Abs(want-a.Difference) <= ProRataTolerance {
				continue
			}
			out = append(out, ProRataMismatch{Category: c, Name: a.Name, Want: want, Got: a.Difference})
			zap.L().Warn("parity: pro-rata mismatch",
				zap.String("category", string(c)),
				zap.String("name", a.Name),
				zap.Float64("recomputed", want),
				zap.Float64("reported", a.Difference),
			)
		}
	}
	return out
}
