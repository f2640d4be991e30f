package newton

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	DefaultTolerance     = 1e-3
	DefaultMaxIterations = 10
)

// DefaultConditionLimit is the largest Jacobian condition number accepted for a step.
const DefaultConditionLimit = mat.ConditionTolerance

type Vector []float64

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

func (v Vector) IsFinite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// MaxAbs returns the infinity norm of v.
func (v Vector) MaxAbs() float64 {
	m := 0.0
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

// Sub returns v - other. Both vectors must have the same length.
func (v Vector) Sub(other Vector) Vector {
	result := make(Vector, len(v))
	for i := range v {
		result[i] = v[i] - other[i]
	}
	return result
}

// Matrix is a row-major square matrix.
type Matrix [][]float64

func (m Matrix) Clone() Matrix {
	c := make(Matrix, len(m))
	for i, row := range m {
		c[i] = Vector(row).Clone()
	}
	return c
}

func (m Matrix) IsFinite() bool {
	for _, row := range m {
		if !Vector(row).IsFinite() {
			return false
		}
	}
	return true
}

// ResidualFunc evaluates the system at x. It must return a vector of len(x)
// and must not retain or modify x.
type ResidualFunc func(x Vector) Vector

// JacobianFunc evaluates the derivative of a ResidualFunc at x as a len(x) x len(x) matrix.
type JacobianFunc func(x Vector) Matrix

type Config struct {
	// Tolerance bounds the largest component of the change between successive iterates.
	Tolerance float64
	// MaxIterations caps the number of Newton steps.
	MaxIterations int
	// ConditionLimit, if > 0, is the largest Jacobian condition number accepted.
	// Otherwise DefaultConditionLimit is used.
	ConditionLimit float64
}

func DefaultConfig() Config {
	return Config{
		Tolerance:      DefaultTolerance,
		MaxIterations:  DefaultMaxIterations,
		ConditionLimit: DefaultConditionLimit,
	}
}

func (c Config) conditionLimit() float64 {
	if c.ConditionLimit > 0 {
		return c.ConditionLimit
	}
	return DefaultConditionLimit
}

type Status int

const (
	StatusConverged Status = iota
	StatusNonConvergence
	StatusSingularJacobian
	StatusInvalidInput
	StatusNonFinite
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusNonConvergence:
		return "non_convergence"
	case StatusSingularJacobian:
		return "singular_jacobian"
	case StatusInvalidInput:
		return "invalid_input"
	case StatusNonFinite:
		return "non_finite"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, bool) {
	for st := StatusConverged; st <= StatusCanceled; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}

// IterationRecord describes one completed Newton step.
type IterationRecord struct {
	Iteration int
	// Error is max_i |x[i] - xPrev[i]|.
	Error float64
	// Residual is the infinity norm of f at the iterate the step was taken from.
	Residual float64
	X        Vector
}

type Observer interface {
	OnIteration(rec IterationRecord)
}

type ObserverFunc func(rec IterationRecord)

func (f ObserverFunc) OnIteration(rec IterationRecord) { f(rec) }

type Result struct {
	X          Vector
	Iterations int
	Error      float64
	Status     Status
	History    []IterationRecord

	// ctxErr is the context error a canceled solve stopped on.
	ctxErr error
}

func (r *Result) Converged() bool {
	return r.Status == StatusConverged
}

// Err maps a non-converged status to its sentinel error, so callers that treat
// an exhausted budget as fatal can do so with errors.Is.
func (r *Result) Err() error {
	switch r.Status {
	case StatusConverged:
		return nil
	case StatusNonConvergence:
		return ErrNonConvergence
	case StatusSingularJacobian:
		return ErrSingularJacobian
	case StatusInvalidInput:
		return ErrInvalidInput
	case StatusNonFinite:
		return ErrNonFinite
	case StatusCanceled:
		if r.ctxErr != nil {
			return r.ctxErr
		}
		return context.Canceled
	default:
		return ErrNonConvergence
	}
}
