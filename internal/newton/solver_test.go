package newton_test

import (
	"context"
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/nrsolve/internal/newton"
)

func circleCubic(x newton.Vector) newton.Vector {
	return newton.Vector{
		x[0]*x[0] + x[1]*x[1] - 5,
		x[0]*x[0]*x[0] + x[1]*x[1]*x[1] - 2,
	}
}

func circleCubicJacobian(x newton.Vector) newton.Matrix {
	return newton.Matrix{
		{2 * x[0], 2 * x[1]},
		{3 * x[0] * x[0], 3 * x[1] * x[1]},
	}
}

func sqrt5(x newton.Vector) newton.Vector {
	return newton.Vector{x[0]*x[0] - 5}
}

func sqrt5Jacobian(x newton.Vector) newton.Matrix {
	return newton.Matrix{{2 * x[0]}}
}

var _ = Describe("Solve", func() {
	var cfg newton.Config

	BeforeEach(func() {
		cfg = newton.Config{Tolerance: 1e-9, MaxIterations: 20}
	})

	Context("circle and cubic system from (2, -1)", func() {
		It("converges to the regression fixture", func() {
			res, err := newton.Solve(circleCubic, circleCubicJacobian, newton.Vector{2, -1}, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(newton.StatusConverged))
			Expect(res.Converged()).To(BeTrue())
			Expect(res.Err()).To(Succeed())
			Expect(res.Iterations).To(Equal(5))
			Expect(res.Error).To(BeNumerically("<=", 1e-9))

			Expect(res.X[0]).To(BeNumerically("~", 1.7094271685162565, 1e-12))
			Expect(res.X[1]).To(BeNumerically("~", -1.441477976085134, 1e-12))

			fx := circleCubic(res.X)
			Expect(math.Abs(fx[0])).To(BeNumerically("<", 1e-6))
			Expect(math.Abs(fx[1])).To(BeNumerically("<", 1e-6))
		})

		It("records one history entry per iteration", func() {
			res, err := newton.Solve(circleCubic, circleCubicJacobian, newton.Vector{2, -1}, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.History).To(HaveLen(res.Iterations))
			for i, rec := range res.History {
				Expect(rec.Iteration).To(Equal(i + 1))
			}
			last := res.History[len(res.History)-1]
			Expect(last.Error).To(Equal(res.Error))
			Expect(last.X).To(Equal(res.X))
			Expect(res.History[0].Residual).To(BeNumerically("~", 5.0, 1e-12))
		})

		It("does not modify the initial guess", func() {
			x0 := newton.Vector{2, -1}
			_, err := newton.Solve(circleCubic, circleCubicJacobian, x0, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(x0).To(Equal(newton.Vector{2, -1}))
		})
	})

	Context("once converged", func() {
		It("moves less than the tolerance on one more step", func() {
			it, err := newton.NewIterator(circleCubic, circleCubicJacobian, newton.Vector{2, -1}, cfg)
			Expect(err).NotTo(HaveOccurred())
			for !it.Done() {
				_, err := it.Step()
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(it.Result().Status).To(Equal(newton.StatusConverged))

			before := it.X()
			rec, err := it.Step()
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Error).To(BeNumerically("<", cfg.Tolerance))
			Expect(rec.X.Sub(before).MaxAbs()).To(BeNumerically("<", cfg.Tolerance))
		})
	})

	Context("with a dimension mismatch", func() {
		It("fails before any iteration runs", func() {
			f := func(x newton.Vector) newton.Vector { return newton.Vector{0, 0, 0} }
			res, err := newton.Solve(f, circleCubicJacobian, newton.Vector{2, -1}, cfg)
			Expect(err).To(MatchError(newton.ErrInvalidInput))
			Expect(res.Status).To(Equal(newton.StatusInvalidInput))
			Expect(res.Iterations).To(Equal(0))
			Expect(res.X).To(Equal(newton.Vector{2, -1}))

			var solveErr *newton.SolveError
			Expect(errors.As(err, &solveErr)).To(BeTrue())
			Expect(solveErr.Iteration).To(Equal(0))
		})

		It("rejects a jacobian with the wrong shape", func() {
			df := func(x newton.Vector) newton.Matrix { return newton.Matrix{{1, 0, 0}, {0, 1, 0}} }
			res, err := newton.Solve(circleCubic, df, newton.Vector{2, -1}, cfg)
			Expect(err).To(MatchError(newton.ErrInvalidInput))
			Expect(res.Iterations).To(Equal(0))
		})

		It("aborts with partial progress when the shape changes mid-solve", func() {
			calls := 0
			f := func(x newton.Vector) newton.Vector {
				calls++
				if calls > 2 {
					return newton.Vector{0}
				}
				return circleCubic(x)
			}
			res, err := newton.Solve(f, circleCubicJacobian, newton.Vector{2, -1}, cfg)
			Expect(err).To(MatchError(newton.ErrInvalidInput))
			Expect(res.Status).To(Equal(newton.StatusInvalidInput))
			Expect(res.Iterations).To(Equal(2))
		})
	})

	DescribeTable("invalid configuration",
		func(f newton.ResidualFunc, x0 newton.Vector, c newton.Config) {
			res, err := newton.Solve(f, circleCubicJacobian, x0, c)
			Expect(err).To(MatchError(newton.ErrInvalidInput))
			Expect(res.Status).To(Equal(newton.StatusInvalidInput))
			Expect(res.Iterations).To(BeZero())
		},
		Entry("zero tolerance", newton.ResidualFunc(circleCubic), newton.Vector{2, -1}, newton.Config{Tolerance: 0, MaxIterations: 10}),
		Entry("negative tolerance", newton.ResidualFunc(circleCubic), newton.Vector{2, -1}, newton.Config{Tolerance: -1, MaxIterations: 10}),
		Entry("NaN tolerance", newton.ResidualFunc(circleCubic), newton.Vector{2, -1}, newton.Config{Tolerance: math.NaN(), MaxIterations: 10}),
		Entry("zero iterations", newton.ResidualFunc(circleCubic), newton.Vector{2, -1}, newton.Config{Tolerance: 1e-3, MaxIterations: 0}),
		Entry("empty guess", newton.ResidualFunc(circleCubic), newton.Vector{}, newton.Config{Tolerance: 1e-3, MaxIterations: 10}),
		Entry("NaN guess", newton.ResidualFunc(circleCubic), newton.Vector{math.NaN(), 1}, newton.Config{Tolerance: 1e-3, MaxIterations: 10}),
		Entry("nil residual", newton.ResidualFunc(nil), newton.Vector{2, -1}, newton.Config{Tolerance: 1e-3, MaxIterations: 10}),
	)

	Context("with a singular jacobian", func() {
		It("reports SingularJacobian without garbage", func() {
			f := func(x newton.Vector) newton.Vector { return newton.Vector{x[0] - 1, x[1] - 1} }
			df := func(x newton.Vector) newton.Matrix { return newton.Matrix{{0, 0}, {0, 0}} }

			res, err := newton.Solve(f, df, newton.Vector{2, -1}, cfg)
			Expect(err).To(MatchError(newton.ErrSingularJacobian))
			Expect(res.Status).To(Equal(newton.StatusSingularJacobian))
			Expect(res.Iterations).To(BeNumerically("<=", 1))
			Expect(res.X.IsFinite()).To(BeTrue())
			Expect(res.X).To(Equal(newton.Vector{2, -1}))
			Expect(res.Err()).To(MatchError(newton.ErrSingularJacobian))
		})

		It("refuses a jacobian above the condition limit", func() {
			f := func(x newton.Vector) newton.Vector { return newton.Vector{x[0] + x[1] - 2, x[0] + 1.000001*x[1] - 2} }
			df := func(x newton.Vector) newton.Matrix { return newton.Matrix{{1, 1}, {1, 1.000001}} }

			cfg.ConditionLimit = 1e5
			res, err := newton.Solve(f, df, newton.Vector{0, 0}, cfg)
			Expect(err).To(MatchError(newton.ErrSingularJacobian))
			Expect(res.Iterations).To(BeZero())
		})

		It("accepts a jacobian beyond gonum's tolerance when the limit allows it", func() {
			f := func(x newton.Vector) newton.Vector { return newton.Vector{x[0] - 1, 1e-17 * (x[1] - 2)} }
			df := func(x newton.Vector) newton.Matrix { return newton.Matrix{{1, 0}, {0, 1e-17}} }

			res, err := newton.Solve(f, df, newton.Vector{0, 0}, cfg)
			Expect(err).To(MatchError(newton.ErrSingularJacobian))
			Expect(res.Iterations).To(BeZero())

			cfg.ConditionLimit = 1e30
			res, err = newton.Solve(f, df, newton.Vector{0, 0}, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(newton.StatusConverged))
			Expect(res.X[0]).To(BeNumerically("~", 1, 1e-12))
			Expect(res.X[1]).To(BeNumerically("~", 2, 1e-9))
		})

		It("keeps progress made before the failure", func() {
			calls := 0
			df := func(x newton.Vector) newton.Matrix {
				calls++
				if calls > 1 {
					return newton.Matrix{{1, 1}, {2, 2}}
				}
				return circleCubicJacobian(x)
			}
			res, err := newton.Solve(circleCubic, df, newton.Vector{2, -1}, cfg)
			Expect(err).To(MatchError(newton.ErrSingularJacobian))
			Expect(res.Iterations).To(Equal(1))
			Expect(res.X[0]).To(BeNumerically("~", 1.7222222222222223, 1e-12))
			Expect(res.X[1]).To(BeNumerically("~", -1.5555555555555556, 1e-12))
		})
	})

	Context("with a non-finite residual", func() {
		It("reports NonFinite", func() {
			f := func(x newton.Vector) newton.Vector { return newton.Vector{math.NaN()} }
			res, err := newton.Solve(f, sqrt5Jacobian, newton.Vector{3}, cfg)
			Expect(err).To(MatchError(newton.ErrNonFinite))
			Expect(res.Status).To(Equal(newton.StatusNonFinite))
			Expect(res.Iterations).To(BeZero())
		})
	})

	Context("when the budget runs out", func() {
		It("returns the single-step iterate with NonConvergence", func() {
			cfg.MaxIterations = 1
			cfg.Tolerance = 1e-30
			res, err := newton.Solve(circleCubic, circleCubicJacobian, newton.Vector{2, -1}, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(newton.StatusNonConvergence))
			Expect(res.Converged()).To(BeFalse())
			Expect(res.Err()).To(MatchError(newton.ErrNonConvergence))
			Expect(res.Iterations).To(Equal(1))
			Expect(res.X[0]).To(BeNumerically("~", 1.7222222222222223, 1e-12))
			Expect(res.X[1]).To(BeNumerically("~", -1.5555555555555556, 1e-12))
			Expect(res.Error).To(BeNumerically("~", 0.5555555555555556, 1e-12))
		})
	})

	Context("scalar square root of 5 from 3", func() {
		It("measures the error as the change between iterates", func() {
			cfg.Tolerance = 1e-12
			res, err := newton.Solve(sqrt5, sqrt5Jacobian, newton.Vector{3}, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(newton.StatusConverged))

			prev := 3.0
			prevDist := math.Abs(prev - math.Sqrt(5))
			for _, rec := range res.History {
				Expect(rec.Error).To(BeNumerically("~", math.Abs(rec.X[0]-prev), 1e-15))
				dist := math.Abs(rec.X[0] - math.Sqrt(5))
				Expect(dist).To(BeNumerically("<=", prevDist))
				Expect(rec.X[0]).To(BeNumerically(">=", math.Sqrt(5)-1e-15))
				prev, prevDist = rec.X[0], dist
			}
			Expect(res.X[0]).To(BeNumerically("~", math.Sqrt(5), 1e-12))
		})
	})

	Context("linear system needing row pivoting", func() {
		It("lands on the exact solution after one step", func() {
			a := newton.Matrix{{0, 2, 1}, {1, 1, 1}, {2, 1, 0}}
			b := newton.Vector{7, 6, 4}
			f := func(x newton.Vector) newton.Vector {
				r := make(newton.Vector, 3)
				for i := range a {
					for j := range a[i] {
						r[i] += a[i][j] * x[j]
					}
					r[i] -= b[i]
				}
				return r
			}
			df := func(x newton.Vector) newton.Matrix { return a.Clone() }

			res, err := newton.Solve(f, df, newton.Vector{0, 0, 0}, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Status).To(Equal(newton.StatusConverged))
			Expect(res.Iterations).To(Equal(2))
			Expect(res.History[0].X[0]).To(BeNumerically("~", 1, 1e-12))
			Expect(res.History[0].X[1]).To(BeNumerically("~", 2, 1e-12))
			Expect(res.History[0].X[2]).To(BeNumerically("~", 3, 1e-12))
		})
	})
})

var _ = Describe("Solver", func() {
	cfg := newton.Config{Tolerance: 1e-9, MaxIterations: 20}

	It("notifies observers once per iteration without sharing state", func() {
		s := newton.New(cfg)
		var seen []newton.IterationRecord
		s.AddObserver(newton.ObserverFunc(func(rec newton.IterationRecord) {
			seen = append(seen, rec)
			rec.X[0] = 1e9
		}))

		res, err := s.Solve(context.Background(), circleCubic, circleCubicJacobian, newton.Vector{2, -1})
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(HaveLen(res.Iterations))
		Expect(res.X[0]).To(BeNumerically("~", 1.7094271685162565, 1e-12))
		for _, rec := range res.History {
			Expect(rec.X[0]).NotTo(Equal(1e9))
		}
	})

	It("keeps the deadline error on a timed-out result", func() {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()

		res, err := newton.New(cfg).Solve(ctx, circleCubic, circleCubicJacobian, newton.Vector{2, -1})
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		Expect(res.Status).To(Equal(newton.StatusCanceled))
		Expect(res.Iterations).To(BeZero())
		Expect(res.Err()).To(MatchError(context.DeadlineExceeded))
	})

	It("stops between iterations when the context is canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		s := newton.New(cfg)
		s.AddObserver(newton.ObserverFunc(func(rec newton.IterationRecord) {
			if rec.Iteration == 2 {
				cancel()
			}
		}))

		res, err := s.Solve(ctx, circleCubic, circleCubicJacobian, newton.Vector{2, -1})
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(res.Status).To(Equal(newton.StatusCanceled))
		Expect(res.Iterations).To(Equal(2))
		Expect(res.X.IsFinite()).To(BeTrue())
	})
})

var _ = Describe("Status", func() {
	It("round-trips through its name", func() {
		for _, st := range []newton.Status{
			newton.StatusConverged,
			newton.StatusNonConvergence,
			newton.StatusSingularJacobian,
			newton.StatusInvalidInput,
			newton.StatusNonFinite,
			newton.StatusCanceled,
		} {
			parsed, ok := newton.ParseStatus(st.String())
			Expect(ok).To(BeTrue())
			Expect(parsed).To(Equal(st))
		}
		_, ok := newton.ParseStatus("bogus")
		Expect(ok).To(BeFalse())
	})
})
