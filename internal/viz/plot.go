package viz

import (
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/nrsolve/internal/newton"
)

const logFloor = -17.0

// ConvergencePlot charts log10 of the step error per iteration. It returns ""
// when there are fewer than two records.
func ConvergencePlot(history []newton.IterationRecord, width, height int) string {
	if len(history) < 2 {
		return ""
	}
	data := make([]float64, len(history))
	for i, rec := range history {
		data[i] = logFloor
		if rec.Error > 0 {
			data[i] = math.Max(math.Log10(rec.Error), logFloor)
		}
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(1),
		asciigraph.Caption("log10(step error)"),
	)
}
