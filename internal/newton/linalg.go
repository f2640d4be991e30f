package newton

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// solveStep returns s such that j·s = r. It factors j with partial pivoting and
// refuses matrices whose estimated condition number exceeds condLimit.
func solveStep(j Matrix, r Vector, condLimit float64) (Vector, error) {
	n := len(r)
	if !j.IsFinite() {
		return nil, fmt.Errorf("%w: non-finite entry", ErrSingularJacobian)
	}

	data := make([]float64, 0, n*n)
	for _, row := range j {
		data = append(data, row...)
	}

	var lu mat.LU
	lu.Factorize(mat.NewDense(n, n, data))

	cond := lu.Cond()
	if math.IsInf(cond, 0) || math.IsNaN(cond) {
		return nil, fmt.Errorf("%w: matrix is singular", ErrSingularJacobian)
	}
	if cond > condLimit {
		return nil, fmt.Errorf("%w: condition number %.3g exceeds %.3g", ErrSingularJacobian, cond, condLimit)
	}

	var step mat.VecDense
	// SolveVecTo reports mat.Condition above mat.ConditionTolerance after
	// writing the solution; condLimit has already been checked.
	err := lu.SolveVecTo(&step, false, mat.NewVecDense(n, r.Clone()))
	if err != nil && !errors.As(err, new(mat.Condition)) {
		return nil, fmt.Errorf("%w: %v", ErrSingularJacobian, err)
	}

	s := make(Vector, n)
	for i := range s {
		s[i] = step.AtVec(i)
	}
	if !s.IsFinite() {
		return nil, fmt.Errorf("%w: step is NaN or Inf", ErrSingularJacobian)
	}
	return s, nil
}
