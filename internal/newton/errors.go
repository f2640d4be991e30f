package newton

import (
	"errors"
	"fmt"
)

// Domain errors for solve operations.
var (
	// ErrInvalidInput indicates a dimension mismatch or an invalid configuration.
	ErrInvalidInput = errors.New("newton: invalid input")

	// ErrSingularJacobian indicates the Jacobian could not be factored reliably.
	ErrSingularJacobian = errors.New("newton: singular jacobian")

	// ErrNonConvergence indicates the iteration budget ran out before the tolerance was met.
	ErrNonConvergence = errors.New("newton: did not converge")

	// ErrNonFinite indicates the residual evaluated to NaN or Inf.
	ErrNonFinite = errors.New("newton: residual is NaN or Inf")
)

// SolveError wraps a domain error with the progress made before it occurred.
// X is the last valid iterate.
type SolveError struct {
	Iteration int
	X         Vector
	Wrapped   error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("iteration %d: %v", e.Iteration, e.Wrapped)
}

func (e *SolveError) Unwrap() error {
	return e.Wrapped
}
