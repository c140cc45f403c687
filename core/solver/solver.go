package solver

import (
	"context"
	"errors"
	"fmt"
)

// ErrInfeasible indicates the problem has no feasible solution.
var ErrInfeasible = errors.New("problem infeasible")

// ErrUnbounded indicates the objective is unbounded below.
var ErrUnbounded = errors.New("problem unbounded")

// ErrIntegerUnsupported indicates the backend cannot handle binary columns.
var ErrIntegerUnsupported = errors.New("backend does not support integer columns")

// SolveError wraps a backend failure with the name of the problem that
// triggered it. A solve failure is fatal for the run that issued it; there
// is no retry.
type SolveError struct {
	Problem string
	Err     error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("solve %s: %v", e.Problem, e.Err)
}

func (e *SolveError) Unwrap() error { return e.Err }

// Solution holds the primal values, per-row dual prices and objective value
// of a solved problem. Duals may be nil for backends or problem classes that
// do not produce them (MIP solves).
type Solution struct {
	Values    []float64
	RowDuals  []float64
	Objective float64
}

// Value returns the primal value of column i.
func (s *Solution) Value(i int) float64 { return s.Values[i] }

// Dual returns the dual price of row i, or zero when duals are absent.
func (s *Solution) Dual(i int) float64 {
	if s.RowDuals == nil {
		return 0
	}
	return s.RowDuals[i]
}

// Solver is the boundary to an external mathematical-programming backend.
// Implementations must not retain or mutate the problem.
type Solver interface {
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}
