package export

import (
	"errors"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/nrsolve/internal/newton"
)

// log10 values below this are drawn at the floor; an exact zero step would be -Inf.
const logFloor = -17.0

var ErrEmptyHistory = errors.New("export: no iterations to plot")

func log10Floor(v float64) float64 {
	if v <= 0 {
		return logFloor
	}
	return math.Max(math.Log10(v), logFloor)
}

// ConvergencePlot builds a chart of log10(error) and log10(residual) per iteration.
func ConvergencePlot(title string, history []newton.IterationRecord) (*plot.Plot, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}

	errPts := make(plotter.XYs, len(history))
	resPts := make(plotter.XYs, len(history))
	for i, rec := range history {
		errPts[i].X = float64(rec.Iteration)
		errPts[i].Y = log10Floor(rec.Error)
		resPts[i].X = float64(rec.Iteration)
		resPts[i].Y = log10Floor(rec.Residual)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "log10"
	p.Add(plotter.NewGrid())

	if err := plotutil.AddLinePoints(p,
		"step error", errPts,
		"residual", resPts,
	); err != nil {
		return nil, err
	}
	return p, nil
}

func WriteConvergencePNG(w io.Writer, title string, history []newton.IterationRecord) error {
	p, err := ConvergencePlot(title, history)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// ConvergencePNG saves the chart to path; the extension picks the format.
func ConvergencePNG(path, title string, history []newton.IterationRecord) error {
	p, err := ConvergencePlot(title, history)
	if err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
