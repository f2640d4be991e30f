package newton

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Iterator advances a Newton-Raphson solve one step at a time.
type Iterator struct {
	f   ResidualFunc
	df  JacobianFunc
	cfg Config
	n   int

	x       Vector
	iter    int
	err     float64
	status  Status
	history []IterationRecord
	failed  *SolveError

	// evaluations at x left over from validation, consumed by the first step
	fx Vector
	jx Matrix
}

// NewIterator validates the inputs and evaluates f and df once at x0 to check
// their shapes. On failure the returned error is a *SolveError at iteration 0.
func NewIterator(f ResidualFunc, df JacobianFunc, x0 Vector, cfg Config) (*Iterator, error) {
	if err := validate(f, df, x0, cfg); err != nil {
		return nil, &SolveError{X: x0.Clone(), Wrapped: err}
	}

	it := &Iterator{
		f:      f,
		df:     df,
		cfg:    cfg,
		n:      len(x0),
		x:      x0.Clone(),
		err:    math.Inf(1),
		status: StatusNonConvergence,
	}

	fx, jx, err := it.evaluate(it.x)
	if err != nil {
		return nil, &SolveError{X: x0.Clone(), Wrapped: err}
	}
	it.fx, it.jx = fx, jx
	return it, nil
}

func validate(f ResidualFunc, df JacobianFunc, x0 Vector, cfg Config) error {
	if f == nil || df == nil {
		return fmt.Errorf("%w: residual and jacobian functions are required", ErrInvalidInput)
	}
	if len(x0) == 0 {
		return fmt.Errorf("%w: initial guess is empty", ErrInvalidInput)
	}
	if !x0.IsFinite() {
		return fmt.Errorf("%w: initial guess contains NaN or Inf", ErrInvalidInput)
	}
	if !(cfg.Tolerance > 0) || math.IsInf(cfg.Tolerance, 1) {
		return fmt.Errorf("%w: tolerance must be positive, got %g", ErrInvalidInput, cfg.Tolerance)
	}
	if cfg.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations must be at least 1, got %d", ErrInvalidInput, cfg.MaxIterations)
	}
	return nil
}

func (it *Iterator) evaluate(x Vector) (Vector, Matrix, error) {
	fx := it.f(x)
	if len(fx) != it.n {
		return nil, nil, fmt.Errorf("%w: residual has length %d, want %d", ErrInvalidInput, len(fx), it.n)
	}
	jx := it.df(x)
	if len(jx) != it.n {
		return nil, nil, fmt.Errorf("%w: jacobian has %d rows, want %d", ErrInvalidInput, len(jx), it.n)
	}
	for i, row := range jx {
		if len(row) != it.n {
			return nil, nil, fmt.Errorf("%w: jacobian row %d has %d columns, want %d", ErrInvalidInput, i, len(row), it.n)
		}
	}
	if !fx.IsFinite() {
		return nil, nil, ErrNonFinite
	}
	return fx, jx, nil
}

// Step performs one Newton step. It can be called after Done reports true;
// once a step has failed every further call returns the same error.
func (it *Iterator) Step() (IterationRecord, error) {
	if it.failed != nil {
		return IterationRecord{}, it.failed
	}

	fx, jx := it.fx, it.jx
	it.fx, it.jx = nil, nil
	if fx == nil {
		var err error
		fx, jx, err = it.evaluate(it.x)
		if err != nil {
			return IterationRecord{}, it.abort(err)
		}
	}

	step, err := solveStep(jx, fx, it.cfg.conditionLimit())
	if err != nil {
		return IterationRecord{}, it.abort(err)
	}

	xPrev := it.x.Clone()
	for i := range it.x {
		it.x[i] -= step[i]
	}

	// x - xPrev is -step up to rounding; measured on the iterates themselves.
	it.err = it.x.Sub(xPrev).MaxAbs()
	it.iter++

	if it.err <= it.cfg.Tolerance {
		it.status = StatusConverged
	} else {
		it.status = StatusNonConvergence
	}

	rec := IterationRecord{
		Iteration: it.iter,
		Error:     it.err,
		Residual:  fx.MaxAbs(),
		X:         it.x.Clone(),
	}
	it.history = append(it.history, rec)
	return rec, nil
}

// Done reports whether the solve loop should stop.
func (it *Iterator) Done() bool {
	return it.failed != nil || it.err <= it.cfg.Tolerance || it.iter >= it.cfg.MaxIterations
}

// Err returns the error that stopped the iterator, if any.
func (it *Iterator) Err() error {
	if it.failed == nil {
		return nil
	}
	return it.failed
}

func (it *Iterator) Dim() int { return it.n }

// X returns a copy of the current iterate.
func (it *Iterator) X() Vector { return it.x.Clone() }

// Result snapshots the iterator state.
func (it *Iterator) Result() *Result {
	history := make([]IterationRecord, len(it.history))
	copy(history, it.history)
	res := &Result{
		X:          it.x.Clone(),
		Iterations: it.iter,
		Error:      it.err,
		Status:     it.status,
		History:    history,
	}
	if it.status == StatusCanceled && it.failed != nil {
		res.ctxErr = it.failed.Wrapped
	}
	return res
}

func (it *Iterator) abort(err error) error {
	it.failed = &SolveError{Iteration: it.iter, X: it.x.Clone(), Wrapped: err}
	it.status = statusFor(err)
	return it.failed
}

func statusFor(err error) Status {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return StatusInvalidInput
	case errors.Is(err, ErrSingularJacobian):
		return StatusSingularJacobian
	case errors.Is(err, ErrNonFinite):
		return StatusNonFinite
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCanceled
	default:
		return StatusNonConvergence
	}
}
