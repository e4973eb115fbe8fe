package projector

import (
	"fmt"
	"math"

	"github.com/samirrijal/mapsurvey/internal/core/domain"
)

var nanRating = math.NaN()

// Stats returns the count and per-axis means. An axis without a single
// finite value shows StatPlaceholder.
func Stats(snapshot []domain.Feature, axes []domain.Axis) domain.Stats {
	out := domain.Stats{Count: len(snapshot), Axes: make([]domain.AxisStat, 0, len(axes))}
	for _, a := range axes {
		var sum float64
		var n int
		for _, f := range snapshot {
			v := f.Rating(a.Key)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			sum += v
			n++
		}
		avg := StatPlaceholder
		if n > 0 {
			avg = fmt.Sprintf("%.1f / %d", sum/float64(n), a.Max)
		}
		out.Axes = append(out.Axes, domain.AxisStat{Axis: a.Key, Label: a.Label, Average: avg, Samples: n})
	}
	return out
}
