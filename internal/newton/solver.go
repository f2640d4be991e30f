package newton

import (
	"context"
	"math"
)

type Solver struct {
	cfg       Config
	observers []Observer
}

func New(cfg Config) *Solver {
	return &Solver{
		cfg:       cfg,
		observers: make([]Observer, 0),
	}
}

// AddObserver registers o to receive a record after every completed step.
// Observers see copies and cannot influence the solve.
func (s *Solver) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Solve iterates from x0 until the change between successive iterates is within
// the tolerance or the iteration budget is spent. x0 is not modified.
//
// An exhausted budget is not an error: the result carries StatusNonConvergence and
// the last iterate. Invalid input, a singular Jacobian, a non-finite residual and
// context cancellation return a *SolveError together with the partial result.
func (s *Solver) Solve(ctx context.Context, f ResidualFunc, df JacobianFunc, x0 Vector) (*Result, error) {
	it, err := NewIterator(f, df, x0, s.cfg)
	if err != nil {
		return &Result{
			X:      x0.Clone(),
			Error:  math.Inf(1),
			Status: statusFor(err),
		}, err
	}

	for !it.Done() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err := it.abort(ctxErr)
			return it.Result(), err
		}

		rec, err := it.Step()
		if err != nil {
			return it.Result(), err
		}

		for _, o := range s.observers {
			r := rec
			r.X = rec.X.Clone()
			o.OnIteration(r)
		}
	}

	return it.Result(), nil
}

// Solve runs a solve with cfg and no observers.
func Solve(f ResidualFunc, df JacobianFunc, x0 Vector, cfg Config) (*Result, error) {
	return New(cfg).Solve(context.Background(), f, df, x0)
}
