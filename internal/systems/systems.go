package systems

import (
	"fmt"

	"github.com/san-kum/nrsolve/internal/newton"
)

// System is a square nonlinear system with a hand-written Jacobian.
type System struct {
	Name        string
	Description string
	Dim         int
	F           newton.ResidualFunc
	DF          newton.JacobianFunc
	Guess       newton.Vector
}

// CheckGuess rejects guesses whose length does not match the system, which
// would otherwise make F index out of range.
func (s System) CheckGuess(x newton.Vector) error {
	if len(x) != s.Dim {
		return fmt.Errorf("%w: %s expects %d components, got %d", newton.ErrInvalidInput, s.Name, s.Dim, len(x))
	}
	return nil
}

// CircleCubic: x²+y²=5, x³+y³=2.
func CircleCubic() System {
	return System{
		Name:        "circle_cubic",
		Description: "x^2+y^2-5 = 0, x^3+y^3-2 = 0",
		Dim:         2,
		F: func(x newton.Vector) newton.Vector {
			return newton.Vector{
				x[0]*x[0] + x[1]*x[1] - 5,
				x[0]*x[0]*x[0] + x[1]*x[1]*x[1] - 2,
			}
		},
		DF: func(x newton.Vector) newton.Matrix {
			return newton.Matrix{
				{2 * x[0], 2 * x[1]},
				{3 * x[0] * x[0], 3 * x[1] * x[1]},
			}
		},
		Guess: newton.Vector{2, -1},
	}
}

func Sqrt5() System {
	return System{
		Name:        "sqrt5",
		Description: "x^2-5 = 0",
		Dim:         1,
		F: func(x newton.Vector) newton.Vector {
			return newton.Vector{x[0]*x[0] - 5}
		},
		DF: func(x newton.Vector) newton.Matrix {
			return newton.Matrix{{2 * x[0]}}
		},
		Guess: newton.Vector{3},
	}
}

func CircleLine() System {
	return System{
		Name:        "circle_line",
		Description: "x^2+y^2-4 = 0, x-y = 0",
		Dim:         2,
		F: func(x newton.Vector) newton.Vector {
			return newton.Vector{
				x[0]*x[0] + x[1]*x[1] - 4,
				x[0] - x[1],
			}
		},
		DF: func(x newton.Vector) newton.Matrix {
			return newton.Matrix{
				{2 * x[0], 2 * x[1]},
				{1, -1},
			}
		},
		Guess: newton.Vector{1, 0.5},
	}
}

// Flat pairs x-1 with a zero Jacobian, so every solve fails on the first step.
func Flat() System {
	return System{
		Name:        "flat",
		Description: "x-1 = 0 with a zero jacobian (always singular)",
		Dim:         1,
		F: func(x newton.Vector) newton.Vector {
			return newton.Vector{x[0] - 1}
		},
		DF: func(x newton.Vector) newton.Matrix {
			return newton.Matrix{{0}}
		},
		Guess: newton.Vector{2},
	}
}
