// Package newton implements Newton-Raphson iteration for square nonlinear systems.
//
// The caller supplies the residual f: R^n -> R^n and its Jacobian. Each step solves
// J(x)·s = f(x) with an LU factorization and updates x -= s. The loop stops when the
// largest component of the change between successive iterates is within tolerance,
// or when the iteration budget runs out.
//
// Outcomes are reported through Result.Status:
//
//	StatusConverged        error <= tolerance
//	StatusNonConvergence   budget exhausted, best iterate returned, err == nil
//	StatusSingularJacobian Jacobian could not be factored reliably
//	StatusInvalidInput     dimension or parameter precondition failed
//	StatusNonFinite        residual evaluated to NaN or Inf
//	StatusCanceled         context canceled or past its deadline between iterations
package newton
