// Package lpsolve adapts the lp_solve mixed-integer solver to the
// core/solver boundary. It handles the binary commitment columns of the
// master problem. lp_solve's branch-and-bound does not produce usable row
// duals, so solutions carry primal values and the objective only.
package lpsolve

import (
	"context"
	"errors"
	"math"

	"github.com/costela/golpa"

	"github.com/gridopt/stochuc/core/solver"
)

// lp_solve reads bounds at or beyond 1e30 as infinite.
const infinity = 1e30

// Solver solves mixed-integer linear programs with lp_solve.
type Solver struct{}

// New creates an lp_solve-backed solver.
func New() *Solver { return &Solver{} }

// Solve hands the problem to lp_solve. The call blocks and cannot be
// interrupted; the context is only checked before submission.
func (s *Solver) Solve(ctx context.Context, p *solver.Problem) (*solver.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := golpa.NewModel(p.Name, golpa.Minimize)
	if err != nil {
		return nil, &solver.SolveError{Problem: p.Name, Err: err}
	}
	vars := make([]*golpa.Variable, len(p.Cols))
	for i, c := range p.Cols {
		var (
			v   *golpa.Variable
			err error
		)
		if c.Binary {
			v, err = m.AddDefinedVariable(c.Name, golpa.BinaryVariable, c.Cost, 0, 1)
		} else {
			v, err = m.AddDefinedVariable(c.Name, golpa.ContinuousVariable, c.Cost, clamp(c.Lower), clamp(c.Upper))
		}
		if err != nil {
			return nil, &solver.SolveError{Problem: p.Name, Err: err}
		}
		vars[i] = v
	}

	for _, r := range p.Rows {
		rowVars := make([]*golpa.Variable, 0, len(r.Coefs))
		rowCoefs := make([]float64, 0, len(r.Coefs))
		for i, coef := range r.Coefs {
			if coef != 0 {
				rowVars = append(rowVars, vars[i])
				rowCoefs = append(rowCoefs, coef)
			}
		}
		if err := m.AddConstraint(r.Lower, r.Upper, rowVars, rowCoefs); err != nil {
			return nil, &solver.SolveError{Problem: p.Name, Err: err}
		}
	}

	res, err := m.Solve()
	if err != nil {
		return nil, &solver.SolveError{Problem: p.Name, Err: mapError(err)}
	}

	sol := &solver.Solution{
		Values:    make([]float64, len(vars)),
		Objective: res.ObjectiveValue(),
	}
	for i, v := range vars {
		sol.Values[i] = res.PrimalValue(v)
	}
	return sol, nil
}

func clamp(v float64) float64 {
	if math.IsInf(v, 1) || v > infinity {
		return infinity
	}
	if math.IsInf(v, -1) || v < -infinity {
		return -infinity
	}
	return v
}

func mapError(err error) error {
	switch {
	case errors.Is(err, golpa.ErrModelInfeasible), errors.Is(err, golpa.ErrNoFeasibleFound):
		return solver.ErrInfeasible
	case errors.Is(err, golpa.ErrModelUnbounded):
		return solver.ErrUnbounded
	default:
		return err
	}
}
