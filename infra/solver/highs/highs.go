// Package highs adapts the HiGHS linear-programming solver to the
// core/solver boundary. It is used for the per-scenario sub-problems, which
// need the row duals HiGHS reports for LP solves. Problems with binary
// columns are rejected; the master problem goes to the lp_solve backend.
package highs

import (
	"context"
	"fmt"

	"github.com/bartolsthoorn/gohighs/highs"

	"github.com/gridopt/stochuc/core/solver"
)

// Solver solves continuous linear programs with HiGHS.
type Solver struct {
	output bool
}

// New creates a HiGHS-backed solver with log output disabled.
func New() *Solver { return &Solver{} }

// WithOutput enables the solver's own log output.
func (s *Solver) WithOutput(enabled bool) *Solver {
	s.output = enabled
	return s
}

// Solve hands the problem to HiGHS. The call blocks and cannot be
// interrupted; the context is only checked before submission.
func (s *Solver) Solve(ctx context.Context, p *solver.Problem) (*solver.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.HasBinary() {
		return nil, &solver.SolveError{Problem: p.Name, Err: solver.ErrIntegerUnsupported}
	}

	model := highs.Model{
		ColCosts: make([]float64, len(p.Cols)),
		ColLower: make([]float64, len(p.Cols)),
		ColUpper: make([]float64, len(p.Cols)),
	}
	for i, c := range p.Cols {
		model.ColCosts[i] = c.Cost
		model.ColLower[i] = c.Lower
		model.ColUpper[i] = c.Upper
	}
	for _, r := range p.Rows {
		model.AddDenseRow(r.Lower, r.Coefs, r.Upper)
	}

	sol, err := model.Solve(highs.WithOutput(s.output))
	if err != nil {
		return nil, &solver.SolveError{Problem: p.Name, Err: err}
	}
	switch {
	case sol.IsInfeasible():
		return nil, &solver.SolveError{Problem: p.Name, Err: solver.ErrInfeasible}
	case sol.IsUnbounded():
		return nil, &solver.SolveError{Problem: p.Name, Err: solver.ErrUnbounded}
	case !sol.IsOptimal():
		return nil, &solver.SolveError{Problem: p.Name, Err: fmt.Errorf("unexpected solver status %v", sol.Status)}
	}

	return &solver.Solution{
		Values:    sol.ColValues,
		RowDuals:  sol.RowDuals,
		Objective: sol.Objective,
	}, nil
}
